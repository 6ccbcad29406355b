package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/mross/tempo/internal/domain"
	"github.com/mross/tempo/internal/player"
	"github.com/mross/tempo/internal/tui/styles"
)

// renderPlayerBar renders the bottom transport line: play state, track
// text, elapsed/total time and a progress gauge.
func (m Model) renderPlayerBar(width int) string {
	innerWidth := width - 2

	if !m.hasTrack {
		empty := styles.DimStyle.Render("nothing playing")
		return styles.InactiveBorder.Width(innerWidth).Render(empty)
	}

	glyph := styles.PausedChar
	if m.status == player.StatusPlaying {
		glyph = styles.PlayingChar
	}
	if m.shuffled {
		glyph += " " + styles.ShuffleChar
	}

	track := m.current.Name + " · " + m.current.DisplayArtist()
	if m.current.Album != "" {
		track += " · " + m.current.Album
	}
	if m.artwork {
		track = styles.NowChar + " " + track
	}

	elapsed := domain.FormatSeconds(int(m.position.Seconds()))
	total := domain.FormatSeconds(int(m.duration.Seconds()))
	times := elapsed + " / " + total

	// Track text gets what the gauge and times leave over.
	gaugeWidth := innerWidth / 3
	if gaugeWidth > 40 {
		gaugeWidth = 40
	}
	textWidth := innerWidth - gaugeWidth - len(times) - 6
	if textWidth < 10 {
		textWidth = 10
	}

	left := styles.AccentStyle.Render(glyph) + " " + styles.TitleStyle.Render(ansi.Truncate(track, textWidth, "…"))
	gauge := renderGauge(m.position, m.duration, gaugeWidth)

	gap := innerWidth - lipgloss.Width(left) - len(times) - gaugeWidth - 3
	if gap < 1 {
		gap = 1
	}

	line := left + strings.Repeat(" ", gap) + gauge + " " + styles.SubtitleStyle.Render(times)

	border := styles.InactiveBorder
	if m.status == player.StatusPlaying {
		border = styles.ActiveBorder
	}
	return border.Width(innerWidth).Render(line)
}

// renderGauge draws a fixed-width progress bar
func renderGauge(pos, dur time.Duration, width int) string {
	if width < 4 {
		return ""
	}
	filled := 0
	if dur > 0 {
		filled = int(float64(width) * pos.Seconds() / dur.Seconds())
		if filled > width {
			filled = width
		}
	}
	return styles.AccentStyle.Render(strings.Repeat("━", filled)) +
		styles.DimStyle.Render(strings.Repeat("─", width-filled))
}
