package migrate

import (
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4"
)

var _ migrate.Logger = (*consoleLogger)(nil)

// consoleLogger prints migration progress to the command's output.
type consoleLogger struct {
	w       io.Writer
	verbose bool
}

func (l *consoleLogger) Printf(format string, v ...any) {
	fmt.Fprintf(l.w, "[doginals] "+format, v...)
}

func (l *consoleLogger) Verbose() bool {
	return l.verbose
}
