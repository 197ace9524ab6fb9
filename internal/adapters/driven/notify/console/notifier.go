package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Notifier = (*Notifier)(nil)

// Palette colours.
const (
	colourHigh    = lipgloss.Color("#F38BA8")
	colourDefault = lipgloss.Color("#06B6D4")
	colourLow     = lipgloss.Color("#6C7086")
	colourBody    = lipgloss.Color("#CDD6F4")
)

// Notifier writes one block per notification to an io.Writer.
type Notifier struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	title map[domain.Priority]lipgloss.Style
	body  lipgloss.Style
}

// NewNotifier creates a console notifier writing to out.
// A nil out writes to stdout.
func NewNotifier(out io.Writer) *Notifier {
	if out == nil {
		out = os.Stdout
	}

	// Colour is decided by the writer, so piped output stays plain.
	r := lipgloss.NewRenderer(out)
	return &Notifier{
		out: out,
		now: time.Now,
		title: map[domain.Priority]lipgloss.Style{
			domain.PriorityHigh:    r.NewStyle().Bold(true).Foreground(colourHigh),
			domain.PriorityDefault: r.NewStyle().Bold(true).Foreground(colourDefault),
			domain.PriorityLow:     r.NewStyle().Foreground(colourLow),
		},
		body: r.NewStyle().Foreground(colourBody).PaddingLeft(2),
	}
}

// ScheduleImmediate prints note.
func (n *Notifier) ScheduleImmediate(ctx context.Context, note domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	style, ok := n.title[note.Priority]
	if !ok {
		style = n.title[domain.PriorityDefault]
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(n.out, "[%s] %s\n%s\n",
		n.now().Format("15:04"),
		style.Render(note.Title),
		n.body.Render(note.Body),
	)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}
