package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/mross/tempo/internal/tui/styles"
)

const (
	headerHeight    = 1
	playerBarHeight = 3
	footerHeight    = 1
	minListWidth    = 20
)

// View renders the application
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.confirmLogout {
		return m.renderLogoutConfirmation()
	}

	contentHeight := m.height - headerHeight - playerBarHeight - footerHeight
	if contentHeight < 3 {
		contentHeight = 3
	}

	browseWidth := m.width * 55 / 100
	if browseWidth < minListWidth {
		browseWidth = minListWidth
	}
	queueWidth := m.width - browseWidth
	if queueWidth < minListWidth {
		queueWidth = minListWidth
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderBrowse(browseWidth, contentHeight),
		m.renderQueue(queueWidth, contentHeight),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderPlayerBar(m.width),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	albumsTab := styles.TabInactiveStyle.Render("1 Albums")
	playlistsTab := styles.TabInactiveStyle.Render("2 Playlists")
	if m.tab == TabAlbums {
		albumsTab = styles.TabActiveStyle.Render("1 Albums")
	} else {
		playlistsTab = styles.TabActiveStyle.Render("2 Playlists")
	}

	left := "  " + albumsTab + "  " + playlistsTab

	var right string
	if m.loading {
		right = m.spin.View() + " syncing "
	} else if m.trackCount > 0 {
		right = styles.DimStyle.Render(humanize.Comma(int64(m.trackCount))+" tracks") + " "
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderBrowse renders the album or playlist listing
func (m Model) renderBrowse(width, height int) string {
	border := styles.InactiveBorder
	if m.pane == PaneBrowse {
		border = styles.ActiveBorder
	}

	innerWidth := width - 2
	innerHeight := height - 2

	var title string
	if m.tab == TabAlbums {
		title = "Albums"
	} else {
		title = "Playlists"
	}
	if m.filter.Value() != "" || m.filtering {
		title = m.filter.View()
	}
	if m.jumping {
		title = m.jump.View()
	}

	rows := make([]string, 0, innerHeight)
	rows = append(rows, styles.TitleStyle.Render(ansi.Truncate(title, innerWidth, "…")))

	listHeight := innerHeight - 1
	offset := scrollOffset(m.cursor, len(m.visible), listHeight)
	for i := offset; i < len(m.visible) && i < offset+listHeight; i++ {
		idx := m.visible[i]
		var name, sub string
		if m.tab == TabAlbums {
			name = m.albums[idx].Name
			sub = m.albums[idx].AlbumArtist
		} else {
			name = m.playlists[idx].Name
		}
		line := name
		if sub != "" {
			line = name + " " + styles.SubtitleStyle.Render("· "+sub)
		}
		line = ansi.Truncate(line, innerWidth-2, "…")
		if i == m.cursor && m.pane == PaneBrowse {
			rows = append(rows, styles.SelectedStyle.Render("> "+ansi.Strip(line)))
		} else {
			rows = append(rows, "  "+line)
		}
	}
	if len(m.visible) == 0 && !m.loading {
		rows = append(rows, styles.DimStyle.Render("  nothing here"))
	}

	content := strings.Join(rows, "\n")
	return border.Width(innerWidth).Height(innerHeight).Render(content)
}

// renderQueue renders the play queue panel
func (m Model) renderQueue(width, height int) string {
	border := styles.InactiveBorder
	if m.pane == PaneQueue {
		border = styles.ActiveBorder
	}

	innerWidth := width - 2
	innerHeight := height - 2

	title := "Queue"
	if m.shuffled {
		title = "Queue " + styles.ShuffleChar
	}

	rows := make([]string, 0, innerHeight)
	rows = append(rows, styles.TitleStyle.Render(title))

	listHeight := innerHeight - 1
	offset := scrollOffset(m.queueCursor, len(m.queue), listHeight)
	for i := offset; i < len(m.queue) && i < offset+listHeight; i++ {
		t := m.queue[i]
		marker := "  "
		if i == m.queueIndex {
			marker = styles.AccentStyle.Render(styles.NowChar) + " "
		}
		line := fmt.Sprintf("%s %s", t.Name, styles.DimStyle.Render(t.FormattedDuration()))
		line = ansi.Truncate(line, innerWidth-2, "…")
		if i == m.queueCursor && m.pane == PaneQueue {
			rows = append(rows, styles.SelectedStyle.Render("> "+ansi.Strip(line)))
		} else {
			rows = append(rows, marker+line)
		}
	}
	if len(m.queue) == 0 {
		rows = append(rows, styles.DimStyle.Render("  queue is empty"))
	}

	content := strings.Join(rows, "\n")
	return border.Width(innerWidth).Height(innerHeight).Render(content)
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		if m.statusIsErr {
			return " " + styles.ErrorStyle.Render(ansi.Truncate(m.statusMsg, m.width-2, "…"))
		}
		return " " + styles.SubtitleStyle.Render(ansi.Truncate(m.statusMsg, m.width-2, "…"))
	}
	keys := "space play/pause · n/p track · s shuffle · S shuffle all · / filter · f jump · ? help · q quit"
	return " " + styles.DimStyle.Render(ansi.Truncate(keys, m.width-2, "…"))
}

func (m Model) renderHelp() string {
	help := strings.Join([]string{
		styles.TitleStyle.Render("Keys"),
		"",
		"  1 / 2        albums / playlists",
		"  tab          switch panel",
		"  j / k        move",
		"  g / G        first / last",
		"  enter        play selection",
		"  /            filter listing",
		"  f            jump to the closest name match",
		"  space        play / pause",
		"  n / p        next / previous track",
		"  ← / →        seek 10s",
		"  s            toggle shuffle",
		"  S            shuffle whole library",
		"  r            re-sync library",
		"  L            log out",
		"  q            quit",
		"",
		styles.DimStyle.Render("press esc to close"),
	}, "\n")

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		styles.ActiveBorder.Padding(1, 3).Render(help))
}

func (m Model) renderLogoutConfirmation() string {
	prompt := strings.Join([]string{
		styles.TitleStyle.Render("Log out?"),
		"",
		"This clears the saved token and local caches.",
		"",
		styles.AccentStyle.Render("y") + " confirm   " + styles.AccentStyle.Render("n") + " cancel",
	}, "\n")

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		styles.ActiveBorder.Padding(1, 3).Render(prompt))
}

// scrollOffset keeps the cursor inside the visible window
func scrollOffset(cursor, total, height int) int {
	if height <= 0 || total <= height {
		return 0
	}
	offset := cursor - height/2
	if offset < 0 {
		offset = 0
	}
	if offset > total-height {
		offset = total - height
	}
	return offset
}
