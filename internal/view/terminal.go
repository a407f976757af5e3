package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	itemStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	rawStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Terminal writes a view tree as indented, styled text
type Terminal struct {
	w      io.Writer
	indent string
}

// NewTerminal creates a Terminal presenter writing to w
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, indent: "  "}
}

// Render writes every node in order
func (t *Terminal) Render(nodes []Node) error {
	for _, n := range nodes {
		if err := t.render(n, 0); err != nil {
			return err
		}
	}
	return nil
}

func (t *Terminal) render(n Node, depth int) error {
	pad := strings.Repeat(t.indent, depth)
	switch v := n.(type) {
	case Section:
		style := sectionStyle
		if depth > 0 {
			style = itemStyle
		}
		if _, err := fmt.Fprintf(t.w, "%s%s\n", pad, style.Render(v.Title)); err != nil {
			return err
		}
		for _, child := range v.Children {
			if err := t.render(child, depth+1); err != nil {
				return err
			}
		}
		if depth == 0 {
			_, err := fmt.Fprintln(t.w)
			return err
		}
	case Table:
		width := 0
		for _, r := range v.Rows {
			if w := lipgloss.Width(r.Label); w > width {
				width = w
			}
		}
		label := labelStyle.Width(width + 1)
		for _, r := range v.Rows {
			if _, err := fmt.Fprintf(t.w, "%s%s %s\n", pad, label.Render(r.Label+":"), r.Value); err != nil {
				return err
			}
		}
	case List:
		for _, item := range v.Items {
			if err := t.render(item, depth); err != nil {
				return err
			}
		}
	case Leaf:
		text := v.Text
		if v.Preformatted {
			text = rawStyle.Render(text)
		}
		for _, line := range strings.Split(text, "\n") {
			if _, err := fmt.Fprintf(t.w, "%s%s\n", pad, line); err != nil {
				return err
			}
		}
	}
	return nil
}
