package roster

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/destiny-cli/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// StaleAfter flags rosters read from a snapshot older than this.
	StaleAfter time.Duration
}

// Roster is what the view needs, whether it comes from a live client or a
// saved snapshot.
type Roster struct {
	Platform     domain.Platform
	Username     string
	MembershipID string
	State        domain.ReadyState
	SavedAt      time.Time
	Characters   []Entry
}

type Entry struct {
	ID         domain.CharacterID
	Class      string
	PowerLevel int
	LastPlayed time.Time
}

var classNames = map[uint32]string{
	671679327:  "Hunter",
	3655393761: "Titan",
	2271682572: "Warlock",
}

func FromSession(session domain.Session, characters []domain.Character) Roster {
	roster := Roster{
		Platform:     session.Platform,
		Username:     session.Username,
		MembershipID: session.MembershipID,
		State:        session.State,
	}
	for _, character := range characters {
		entry := Entry{ID: character.ID, LastPlayed: character.LastPlayed}
		if base, err := character.Base(); err == nil {
			entry.Class = classNames[base.ClassHash]
			entry.PowerLevel = base.PowerLevel
		}
		roster.Characters = append(roster.Characters, entry)
	}
	return roster
}

func FromSnapshot(snapshot domain.SessionSnapshot) Roster {
	roster := Roster{
		Platform:     snapshot.Platform,
		Username:     snapshot.Username,
		MembershipID: snapshot.MembershipID,
		SavedAt:      snapshot.SavedAt,
	}
	for _, character := range snapshot.Characters {
		roster.Characters = append(roster.Characters, Entry{ID: character.ID, LastPlayed: character.LastPlayed})
	}
	return roster
}

func renderView(roster Roster, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Destiny Roster"),
		s.header.Render(headerLine(roster)),
	}
	if !roster.SavedAt.IsZero() {
		saved := "saved " + formatRelative(roster.SavedAt, opts.Now)
		if !opts.Now.IsZero() && opts.StaleAfter > 0 && opts.Now.Sub(roster.SavedAt) > opts.StaleAfter {
			saved += " " + s.warning.Render("[stale]")
		}
		lines = append(lines, s.header.Render(saved))
	}

	if len(roster.Characters) == 0 {
		lines = append(lines, s.empty.Render("No characters available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for i, entry := range roster.Characters {
		lines = append(lines, s.section.Render(renderEntry(entry, i == 0, opts, s)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(roster Roster) string {
	parts := []string{}
	if roster.Username != "" {
		parts = append(parts, roster.Username)
	}
	if roster.Platform != "" {
		parts = append(parts, roster.Platform.String())
	}
	if roster.MembershipID != "" {
		parts = append(parts, "membership "+roster.MembershipID)
	}
	if roster.State != 0 {
		parts = append(parts, roster.State.String())
	}
	if len(parts) == 0 {
		return "no session"
	}
	return strings.Join(parts, " | ")
}

func renderEntry(entry Entry, active bool, opts RenderOptions, s styles) string {
	title := string(entry.ID)
	if entry.Class != "" {
		title = fmt.Sprintf("%s (%s)", entry.Class, entry.ID)
	}
	titleStyle := s.character
	if active {
		titleStyle = s.active
		title += " *"
	}

	details := []string{}
	if entry.PowerLevel > 0 {
		details = append(details, fmt.Sprintf("power %d", entry.PowerLevel))
	}
	played := lipgloss.NewStyle().
		Foreground(recencyColor(entry.LastPlayed, opts.Now)).
		Render("last played " + formatRelative(entry.LastPlayed, opts.Now))
	details = append(details, played)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render(title),
		s.detail.Render(strings.Join(details, "  ")),
	)
}

func formatRelative(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return at.Format("15:04 on 02 Jan 2006")
	}

	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return plural(int(elapsed.Minutes()), "minute") + " ago"
	case elapsed < 24*time.Hour:
		return plural(int(elapsed.Hours()), "hour") + " ago"
	default:
		return plural(int(math.Floor(elapsed.Hours()/24)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// recencyColor fades from bright white (just played) to grey (a week ago).
func recencyColor(at, now time.Time) lipgloss.Color {
	if at.IsZero() || now.IsZero() {
		return lipgloss.Color("255")
	}
	window := 7 * 24 * time.Hour
	return interpolateColor(window.Seconds()-now.Sub(at).Seconds(), 0, window.Seconds())
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 faded to 255 bright
	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}
