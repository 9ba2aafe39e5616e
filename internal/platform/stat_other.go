//go:build !unix

package platform

// Identify is not supported outside unix; callers treat the error as "no
// identity available"
func Identify(path string) (FileID, error) {
	return FileID{}, ErrUnsupportedPlatform
}
