package processor

import (
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Painter colours formatted text.
type Painter interface {
	Paint(color, s string) string
}

type plainPainter struct{}

func (plainPainter) Paint(_, s string) string { return s }

// Plain returns a painter that leaves text untouched.
func Plain() Painter { return plainPainter{} }

// StylePainter colours text with lipgloss styles, one cached style per
// colour.
type StylePainter struct {
	renderer *lipgloss.Renderer
	styles   sync.Map
}

// NewStylePainter creates a painter rendering for w. The profile is detected
// from w unless one is given.
func NewStylePainter(w io.Writer, profile ...termenv.Profile) *StylePainter {
	r := lipgloss.NewRenderer(w)
	if len(profile) > 0 {
		r.SetColorProfile(profile[0])
	}
	return &StylePainter{renderer: r}
}

func (p *StylePainter) Paint(color, s string) string {
	if color == "" || s == "" {
		return s
	}
	style, ok := p.styles.Load(color)
	if !ok {
		style, _ = p.styles.LoadOrStore(color, p.renderer.NewStyle().Foreground(lipgloss.Color(color)))
	}
	return style.(lipgloss.Style).Render(s)
}
