package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title     lipgloss.Style
	ok        lipgloss.Style
	err       lipgloss.Style
	warn      lipgloss.Style
	help      lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	detail    lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:     NewBold(t).MarginBottom(1),
		ok:        NewBold(s),
		err:       NewBold(e),
		warn:      NewStyle(w),
		help:      NewEm(h),
		tab:       NewStyle(h).Padding(0, 1),
		activeTab: NewBold(t).Padding(0, 1).Underline(true),
		detail:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1),
	}
}

// On renders s on a bg background.
func (p *Palette) On(s string, bg lipgloss.Color) string {
	return lipgloss.NewStyle().Background(bg).Render(s)
}

// As renders s in fg.
func (p *Palette) As(s string, fg lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(fg).Render(s)
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

var _ Painter = (*Palette)(nil)
