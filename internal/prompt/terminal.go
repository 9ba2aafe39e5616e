package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Suspender pauses any live status output while fn talks to the operator
type Suspender interface {
	Suspend(fn func())
}

// LineAsker reads answers line by line from in and writes prompts to out
type LineAsker struct {
	in  *bufio.Reader
	out io.Writer

	// EchoNewline terminates the prompt line after each answer. Set it when
	// in is not a terminal, which would otherwise have echoed the newline.
	EchoNewline bool
	// Suspender, when set, wraps every exchange with the operator
	Suspender Suspender
}

// NewLineAsker creates an asker over in and out
func NewLineAsker(in io.Reader, out io.Writer) *LineAsker {
	return &LineAsker{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Ask writes question and reads one line. A final line without a newline is
// returned as an answer; io.EOF is only returned when nothing was read.
func (a *LineAsker) Ask(question string) (answer string, err error) {
	a.suspend(func() {
		if _, err = io.WriteString(a.out, question); err != nil {
			return
		}
		var line string
		line, err = a.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(a.out)
			}
			return
		}
		if a.EchoNewline {
			fmt.Fprintln(a.out)
		}
		answer = strings.TrimRight(line, "\r\n")
	})
	return answer, err
}

// Say writes line followed by a newline
func (a *LineAsker) Say(line string) (err error) {
	a.suspend(func() {
		_, err = fmt.Fprintln(a.out, line)
	})
	return err
}

func (a *LineAsker) suspend(fn func()) {
	if a.Suspender == nil {
		fn()
		return
	}
	a.Suspender.Suspend(fn)
}
