package logger

import (
	"fmt"
	"log"
	"os"
)

// New returns a stdlib-backed logger for code that runs before slog is configured.
// Output goes to stderr so it never interleaves with CLI results on stdout.
func New(component string) *log.Logger {
	prefix := fmt.Sprintf("leettracker/%s: ", component)
	return log.New(os.Stderr, prefix, log.LstdFlags|log.Lmsgprefix)
}
