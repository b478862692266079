package selection

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/pkg/errors"
)

// TerminalChooser prints a numbered list and reads one line. An empty line
// or "q" dismisses.
type TerminalChooser struct {
	// busy is held for a whole Choose
	busy  sync.Mutex
	out   io.Writer
	lines chan lineResult
	in    *bufio.Reader
}

type lineResult struct {
	line string
	err  error
}

func NewTerminalChooser(in io.Reader, out io.Writer) *TerminalChooser {
	return &TerminalChooser{
		out: out,
		in:  bufio.NewReader(in),
	}
}

// StdioChooser reads from stdin and writes to stdout.
func StdioChooser() *TerminalChooser {
	return NewTerminalChooser(os.Stdin, os.Stdout)
}

// ErrChooserBusy is returned when a TerminalChooser is already waiting.
var ErrChooserBusy = errors.New("terminal chooser is already waiting for a choice")

func (c *TerminalChooser) Choose(ctx context.Context, _ Presentation, descriptors []*connector.Descriptor) (int, error) {
	if !c.busy.TryLock() {
		return -1, ErrChooserBusy
	}
	defer c.busy.Unlock()

	fmt.Fprintln(c.out, "Select a wallet:")
	for i, d := range descriptors {
		fmt.Fprintf(c.out, "  %d) %s - %s\n", i+1, d.Display.Name, d.Display.Description)
	}
	fmt.Fprint(c.out, "> ")

	line, err := c.readLine(ctx)
	if err != nil {
		return -1, err
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.EqualFold(line, "q") {
		return -1, connector.ErrUserRejected
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return -1, errors.Wrapf(ErrInvalidChoice, "%q", line)
	}
	return n - 1, nil
}

// readLine gives up on ctx. The pending read is kept and its line answers
// the next Choose.
func (c *TerminalChooser) readLine(ctx context.Context) (string, error) {
	if c.lines == nil {
		c.lines = make(chan lineResult, 1)
		go func() {
			line, err := c.in.ReadString('\n')
			if err == io.EOF && line != "" {
				err = nil
			}
			c.lines <- lineResult{line: line, err: err}
		}()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-c.lines:
		c.lines = nil
		if r.err == io.EOF {
			return "", connector.ErrUserRejected
		}
		if r.err != nil {
			return "", errors.Wrap(r.err, "read choice")
		}
		return r.line, nil
	}
}
