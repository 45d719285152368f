package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/authtree"
	"github.com/aretw0/authtree/internal/presentation/tui"
	"github.com/aretw0/authtree/pkg/domain"
	"golang.org/x/term"
)

// ErrAborted is returned when the input stream ends before a tree terminates.
var ErrAborted = errors.New("input closed before authentication finished")

// Prompter answers callbacks on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// ReadSecret reads a value without echo. It defaults to reading a line from in.
	ReadSecret func() (string, error)
	// Render formats text output messages. It defaults to tui.Plain.
	Render func(string) (string, error)
}

// NewPrompter creates a prompter reading from in and writing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, Render: tui.Plain}
	p.ReadSecret = p.readLine
	return p
}

// NewTerminalPrompter prompts on stdin and stdout. When stdin is a terminal,
// secrets are read without echo and messages are rendered as markdown.
func NewTerminalPrompter() *Prompter {
	p := NewPrompter(os.Stdin, os.Stdout)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		p.Render = tui.NewRenderer()
		p.ReadSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(p.out)
			return string(b), err
		}
	}
	return p
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Answer fills in the value of each callback. Output and hidden callbacks are
// returned unchanged.
func (p *Prompter) Answer(callbacks []domain.Callback) ([]domain.Callback, error) {
	answered := make([]domain.Callback, len(callbacks))
	for i, cb := range callbacks {
		switch cb.Type {
		case domain.CallbackTextOutput:
			msg, err := p.Render(cb.Message)
			if err != nil {
				msg = cb.Message
			}
			fmt.Fprintf(p.out, "%s\n", msg)
		case domain.CallbackName:
			fmt.Fprintf(p.out, "%s: ", label(cb, "Name"))
			v, err := p.readLine()
			if err != nil {
				return nil, err
			}
			cb.Value = v
		case domain.CallbackPassword:
			fmt.Fprintf(p.out, "%s: ", label(cb, "Password"))
			v, err := p.ReadSecret()
			if err != nil {
				return nil, err
			}
			cb.Value = v
		case domain.CallbackChoice:
			idx, err := p.choose(cb)
			if err != nil {
				return nil, err
			}
			cb.Value = idx
		case domain.CallbackConfirmation:
			fmt.Fprintf(p.out, "%s [y/n]: ", label(cb, "Continue?"))
			v, err := p.readLine()
			if err != nil {
				return nil, err
			}
			cb.Value = v
		}
		answered[i] = cb
	}
	return answered, nil
}

func (p *Prompter) choose(cb domain.Callback) (int, error) {
	fmt.Fprintf(p.out, "%s\n", label(cb, "Choose one"))
	for i, c := range cb.Choices {
		marker := " "
		if i == cb.DefaultIndex {
			marker = "*"
		}
		fmt.Fprintf(p.out, " %s %d) %s\n", marker, i, c)
	}
	for {
		fmt.Fprint(p.out, "> ")
		v, err := p.readLine()
		if err != nil {
			return 0, err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return cb.DefaultIndex, nil
		}
		idx, err := strconv.Atoi(v)
		if err == nil && idx >= 0 && idx < len(cb.Choices) {
			return idx, nil
		}
		fmt.Fprintf(p.out, "Enter a number between 0 and %d.\n", len(cb.Choices)-1)
	}
}

func label(cb domain.Callback, fallback string) string {
	if cb.Prompt != "" {
		return cb.Prompt
	}
	return fallback
}

// Authenticator is the part of the engine a terminal session drives.
type Authenticator interface {
	Authenticate(ctx context.Context, req authtree.AuthRequest) (*authtree.Response, error)
}

// Drive runs tree to a terminal result, answering every round of callbacks with p.
func Drive(ctx context.Context, eng Authenticator, tree string, targetLevel *int, p *Prompter) (*authtree.Response, error) {
	resp, err := eng.Authenticate(ctx, authtree.AuthRequest{Tree: tree, TargetAuthLevel: targetLevel})
	for err == nil && resp.Status == domain.ResultNeedInput {
		var answers []domain.Callback
		answers, err = p.Answer(resp.Callbacks)
		if err != nil {
			return nil, err
		}
		resp, err = eng.Authenticate(ctx, authtree.AuthRequest{Token: resp.Token, Callbacks: answers})
	}
	return resp, err
}
