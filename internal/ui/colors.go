package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/todox/internal/shared"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// Notice renders a notification line in the style matching kind.
func (p *Palette) Notice(kind shared.NoticeKind, message string) string {
	switch kind {
	case shared.NoticeSuccess:
		return p.ok.Render("✓ " + message)
	case shared.NoticeError:
		return p.err.Render("✗ " + message)
	default:
		return p.warn.Render("• " + message)
	}
}

// Hint renders secondary text such as navigation hints.
func (p *Palette) Hint(text string) string {
	return p.help.Render(text)
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
