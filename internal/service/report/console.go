package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"platewatch/internal/model"
)

// Console prints one line per decision:
//
//	<PLATE> at HH:MM:SS
//	No numbers, at HH:MM:SS
//	No correct numbers, at HH:MM:SS
//	Recognition failed, at HH:MM:SS: <error>
type Console struct {
	out io.Writer
	mu  sync.Mutex
}

// NewConsole writes to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{out: w}
}

func (c *Console) Report(d model.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, Line(d))
}

// Line formats d the way Console prints it.
func Line(d model.Decision) string {
	at := d.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	clock := at.Format(time.TimeOnly)

	switch {
	case d.Failed():
		return fmt.Sprintf("Recognition failed, at %s: %s", clock, d.Error)
	case d.Kind == model.Matched:
		return fmt.Sprintf("%s at %s", d.Plate, clock)
	case d.Kind == model.NoMatch:
		return fmt.Sprintf("No correct numbers, at %s", clock)
	default:
		return fmt.Sprintf("No numbers, at %s", clock)
	}
}
