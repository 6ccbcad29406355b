package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Accent    = lipgloss.Color("#A78BFA")
	SlateDark = lipgloss.Color("#1F2937")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
)

// Borders
var (
	ActiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Accent)

	InactiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Accent)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(SlateDark).
			Bold(true)

	MatchStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Underline(true)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	TabInactiveStyle = lipgloss.NewStyle().
				Foreground(DimGray)
)

// Playback glyphs
const (
	PlayingChar = "▶"
	PausedChar  = "⏸"
	NowChar     = "♪"
	ShuffleChar = "⤨"
)
