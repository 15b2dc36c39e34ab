package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// Console prints notifications as single lines on a terminal.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	time  lipgloss.Style
	label lipgloss.Style
	title lipgloss.Style
	body  lipgloss.Style
}

// NewConsole writes to w. Colors follow the terminal behind w and are turned
// off entirely when color is false.
func NewConsole(w io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Console{
		w:     w,
		time:  r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		label: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		title: r.NewStyle().Bold(true),
		body:  r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
	}
}

func (c *Console) Name() string {
	return "console"
}

func (c *Console) Notify(_ context.Context, n model.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.w, "%s %s %s  %s\n",
		c.time.Render(n.At.Format("15:04:05")),
		c.label.Render("ALERT"),
		c.title.Render(n.Title),
		c.body.Render(n.Body))
	return err
}
