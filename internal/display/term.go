package display

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal styles.
var (
	DashStyle  = lipgloss.NewStyle().Faint(true)
	LinkStyle  = lipgloss.NewStyle().Underline(true)
	BadgeStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	KeyStyle   = lipgloss.NewStyle().Bold(true)
	YesStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	NoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	CodeStyle  = lipgloss.NewStyle().Faint(true)
)

// Dash is shown for absent values.
const Dash = "—"

// Format draws n as terminal text. Nested entities are indented below their
// link.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n, 0)
	return strings.TrimRight(b.String(), "\n")
}

func format(b *strings.Builder, n Node, indent int) {
	switch v := n.(type) {
	case Empty:
		b.WriteString(DashStyle.Render(Dash))
	case Text:
		b.WriteString(v.Value)
	case YesNo:
		if v.Value {
			b.WriteString(YesStyle.Render("✓ Yes"))
		} else {
			b.WriteString(NoStyle.Render("✗ No"))
		}
	case Link:
		b.WriteString(formatLink(v))
	case Color:
		b.WriteString(Swatch(v.Hex))
		b.WriteString(" ")
		if v.Link != nil {
			b.WriteString(formatLink(*v.Link))
			b.WriteString(" ")
		}
		b.WriteString(CodeStyle.Render(v.Hex))
	case TagList:
		parts := make([]string, len(v.Tags))
		for i, t := range v.Tags {
			parts[i] = formatTag(t)
		}
		b.WriteString(strings.Join(parts, " "))
	case Related:
		b.WriteString(formatLink(v.Link))
		if v.TypeName != "" {
			b.WriteString(" ")
			b.WriteString(BadgeStyle.Render(v.TypeName))
		}
		pad := strings.Repeat("  ", indent+1)
		for _, r := range v.Rows {
			b.WriteString("\n")
			b.WriteString(pad)
			b.WriteString(KeyStyle.Render(r.Key))
			b.WriteString(": ")
			format(b, r.Value, indent+1)
		}
	case Dump:
		pad := strings.Repeat("  ", indent+1)
		b.WriteString(strings.ReplaceAll(v.JSON, "\n", "\n"+pad))
	}
}

func formatLink(l Link) string {
	return LinkStyle.Render(l.Label) + CodeStyle.Render(" ["+l.EntityID+"]")
}

func formatTag(t Tag) string {
	style := lipgloss.NewStyle().Padding(0, 1)
	if t.Color != "" {
		style = style.Background(lipgloss.Color(t.Color)).Foreground(lipgloss.Color(Contrast(t.Color)))
	} else {
		style = style.Reverse(true)
	}
	return style.Render(t.Label)
}

// Swatch draws a two-cell block painted in hex.
func Swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
}

// Contrast returns black or white, whichever reads better on hex.
func Contrast(hex string) string {
	if len(hex) != 7 || hex[0] != '#' {
		return "#FFFFFF"
	}
	var rgb [3]float64
	for i := range rgb {
		c, err := strconv.ParseUint(hex[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return "#FFFFFF"
		}
		rgb[i] = float64(c)
	}
	luma := 0.299*rgb[0] + 0.587*rgb[1] + 0.114*rgb[2]
	if luma > 150 {
		return "#000000"
	}
	return "#FFFFFF"
}
