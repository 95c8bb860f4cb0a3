package announce

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrResourceUnavailable marks a migration script that could not be read.
// There is no fallback source for the script text, so callers treat it as fatal.
var ErrResourceUnavailable = errors.New("migration script unavailable")

const separatorWidth = 80

// Announcer prints a migration script for manual application against a
// hosted SQL console. It never executes DDL itself.
type Announcer struct {
	Out        io.Writer
	ConsoleURL string
}

func New(out io.Writer, consoleURL string) *Announcer {
	return &Announcer{Out: out, ConsoleURL: consoleURL}
}

// Announce reads the script at path and emits it verbatim between two
// separator lines, followed by the manual-application instructions.
// Nothing is written when the script cannot be read.
func (a *Announcer) Announce(path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrResourceUnavailable, path, err)
	}
	a.write(string(body))
	return nil
}

func (a *Announcer) write(script string) {
	sep := strings.Repeat("=", separatorWidth)
	fmt.Fprintln(a.Out, sep)
	io.WriteString(a.Out, script)
	if !strings.HasSuffix(script, "\n") {
		fmt.Fprintln(a.Out)
	}
	fmt.Fprintln(a.Out, sep)
	fmt.Fprintln(a.Out, "Apply this migration manually:")
	fmt.Fprintf(a.Out, "  1. Open the SQL console: %s\n", a.ConsoleURL)
	fmt.Fprintln(a.Out, "  2. Paste the script printed above.")
	fmt.Fprintln(a.Out, "  3. Execute it, then re-run the schema probe.")
}
