package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/ziadkadry99/meshtrust/internal/scoring"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// ratingColors follow the indicator glyphs, Very Low to Very High.
var ratingColors = map[string]lipgloss.Color{
	"Very Low":  lipgloss.Color("9"),
	"Low":       lipgloss.Color("208"),
	"Medium":    lipgloss.Color("11"),
	"High":      lipgloss.Color("10"),
	"Very High": lipgloss.Color("14"),
}

// renderRating formats a score as "<glyph> <rating> (0.00)". lipgloss drops
// the color when stdout is not a terminal.
func renderRating(score float64) string {
	rating := scoring.Rating(score)
	style := lipgloss.NewStyle().Bold(true).Foreground(ratingColors[rating])
	return fmt.Sprintf("%s %s %s", scoring.Indicator(score), style.Render(rating), mutedStyle.Render(fmt.Sprintf("(%.2f)", score)))
}
