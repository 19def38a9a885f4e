package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/tkingovr/xapictl/api"
)

// Prompter asks for confirmation on a line-oriented input.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	timeout     time.Duration
	interactive bool
}

// NewPrompter creates a prompter reading answers from in and writing the
// question to out.
func NewPrompter(in io.Reader, out io.Writer, timeout time.Duration) *Prompter {
	return &Prompter{in: in, out: out, timeout: timeout, interactive: true}
}

// NewTerminalPrompter prompts on stderr and reads stdin. When stdin is not
// a terminal every request is denied without asking.
func NewTerminalPrompter(timeout time.Duration) *Prompter {
	p := NewPrompter(os.Stdin, os.Stderr, timeout)
	p.interactive = term.IsTerminal(int(os.Stdin.Fd()))
	return p
}

// Ask shows the request and waits for an answer. Only "y" or "yes"
// (any case) approves; anything else, end of input or the timeout denies.
func (p *Prompter) Ask(ctx context.Context, req *Request) (api.Verdict, error) {
	if !p.interactive {
		return req.resolve(StatusDenied), nil
	}

	if req.Message != "" {
		fmt.Fprintf(p.out, "%s (rule %s)\n", req.Message, req.Rule)
	}
	fmt.Fprintf(p.out, "Proceed with %s? [y/N] ", req.Call)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.in).ReadString('\n')
		answer <- line
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return req.resolve(StatusApproved), nil
		}
		return req.resolve(StatusDenied), nil

	case <-timer.C:
		fmt.Fprintln(p.out)
		return req.resolve(StatusTimedOut), nil

	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return req.resolve(StatusDenied), ctx.Err()
	}
}
