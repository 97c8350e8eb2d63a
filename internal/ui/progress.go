package ui

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// NewSpinner creates an indeterminate progress spinner for operations
// with an unknown item count (rename planning, symbol-map building).
// Returns nil when stderr isn't a TTY, so callers can treat a nil
// spinner as a no-op; the color setting does not affect it.
func NewSpinner(description string) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return newBar(-1, os.Stderr, description)
}

func newBar(total int64, w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}
