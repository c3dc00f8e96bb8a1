package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/RevCBH/batchq/internal/cli/tui"
	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/command"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// promptPassword reads the password without echo. When in is not a
// terminal there is nobody to ask and the empty password is used.
func promptPassword(in io.Reader, out io.Writer, username, url string) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !isTerminal(f) {
		return "", nil
	}

	fmt.Fprintf(out, "Password for %s at %s: ", username, url)
	data, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(data), nil
}

// loginHint adds a re-authentication hint to authorization failures
func loginHint(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%w\nauthentication rejected: check username and password and log in again", err)
	}
	return err
}

// lineConfirmer asks the delete question on out and reads y/N from in
type lineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newLineConfirmer(in io.Reader, out io.Writer) *lineConfirmer {
	return &lineConfirmer{in: bufio.NewReader(in), out: out}
}

// ConfirmDelete implements command.Confirmer
func (c *lineConfirmer) ConfirmDelete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(c.out, "%s [y/N] ", tui.DeletePrompt(id))

	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

var _ command.Confirmer = (*lineConfirmer)(nil)
