package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
)

// linePrompter answers ASK fields by reading one line per question.
// An empty line accepts the default response.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

// terminalPrompter returns a prompter on the terminal, or nil when stdin is
// not interactive.
func terminalPrompter() docfield.Prompter {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return newLinePrompter(os.Stdin, os.Stderr)
}

func (p *linePrompter) Prompt(ctx context.Context, bookmark, prompt, defaultResponse string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if prompt == "" {
		prompt = bookmark
	}
	label := promptStyle.Render(prompt)
	if defaultResponse != "" {
		label += faintStyle.Render(" [" + defaultResponse + "]")
	}
	fmt.Fprint(p.out, label+": ")

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, fmt.Errorf("reading answer for %s: %w", bookmark, err)
	}
	answer := strings.TrimRight(line, "\r\n")
	if answer == "" {
		if defaultResponse == "" {
			return "", false, nil
		}
		return defaultResponse, true, nil
	}
	return answer, true, nil
}
