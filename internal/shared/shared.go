// package shared defines cross-cutting helpers: logging, configuration,
// database access, migrations, and sentinel errors.
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a [log.Logger] writing to w (defaults to [os.Stderr])
// with timestamps enabled.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true})
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string. Used for sync
// run identifiers; catalog entities keep their remote-assigned ids.
func GenerateID() string {
	return uuid.New().String()
}
