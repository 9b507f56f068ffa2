package questionnaire

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/eliseohh/welcomebot/internal/profile"
)

// MaxMessageChars keeps every rendered chunk under Telegram's 4096 limit.
const MaxMessageChars = 4000

type RosterMode int

const (
	// RosterList renders one bullet per member.
	RosterList RosterMode = iota
	// RosterFull renders every member's full profile.
	RosterFull
)

const (
	listHeader = "👥 <b>Members:</b>\n"
	fullHeader = "📊 <b>All members:</b>"
	noMembers  = "Nobody has introduced themselves yet."
	clipMarker = "…"
)

// Mention renders how a profile is referred to, as HTML: the @username if
// there is one, otherwise a user link labelled with the full name or ID.
func Mention(p profile.Profile) string {
	if p.Username != "" {
		return "@" + html.EscapeString(p.Username)
	}
	label := html.EscapeString(p.FullName())
	if label == "" {
		label = fmt.Sprintf("ID%d", p.ID)
	}
	if !p.Linked() {
		return label
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, p.ID, label)
}

// FormatProfile renders the header line and one line per answered question
// in ascending question order. Unanswered questions are left out.
func FormatProfile(p profile.Profile) string {
	lines := []string{"👤 <b>User:</b> " + Mention(p)}

	questions := make([]int, 0, len(p.Answers))
	for q := range p.Answers {
		questions = append(questions, q)
	}
	slices.Sort(questions)

	for _, q := range questions {
		// Answers are escaped on write; only the label needs escaping here.
		lines = append(lines, fmt.Sprintf("<b>%s:</b> %s", html.EscapeString(Label(q)), p.Answers[q]))
	}
	return strings.Join(lines, "\n")
}

// FormatRoster renders all profiles into chunks of at most limit runes.
// A limit too small to hold the header and one rune of a member is raised to
// that size. Members are ordered by name. In full mode each profile block stays in one
// chunk; a block too large for any chunk loses its trailing lines.
func FormatRoster(profiles []profile.Profile, mode RosterMode, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageChars
	}

	sorted := slices.Clone(profiles)
	slices.SortFunc(sorted, func(a, b profile.Profile) int {
		if c := cmp.Compare(strings.ToLower(rosterName(a)), strings.ToLower(rosterName(b))); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	header, sep := listHeader, "\n"
	if mode == RosterFull {
		header, sep = fullHeader, "\n\n"
	}
	// Every chunk has room for at least one rune of a member after the header.
	if floor := runeLen(header) + runeLen(sep) + 1; limit < floor {
		limit = floor
	}
	if len(sorted) == 0 {
		return []string{clip(header+sep+noMembers, limit)}
	}

	room := limit - runeLen(header) - runeLen(sep)
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		if mode == RosterFull {
			parts[i] = clip(FormatProfile(p), room)
		} else {
			parts[i] = clip("• "+rosterName(p), room)
		}
	}
	return pack(header, sep, parts, limit)
}

func rosterName(p profile.Profile) string {
	if p.Username != "" {
		return "@" + html.EscapeString(p.Username)
	}
	if name := p.FullName(); name != "" {
		return html.EscapeString(name)
	}
	return fmt.Sprintf("ID%d", p.ID)
}

// pack joins header and parts with sep, starting a new chunk whenever the
// next part would push the current one past limit.
func pack(header, sep string, parts []string, limit int) []string {
	var (
		chunks []string
		b      strings.Builder
	)
	b.WriteString(header)
	size := runeLen(header)
	sepLen := runeLen(sep)

	for _, part := range parts {
		n := runeLen(part)
		if size > 0 && size+sepLen+n > limit {
			chunks = append(chunks, b.String())
			b.Reset()
			size = 0
		}
		if size > 0 {
			b.WriteString(sep)
			size += sepLen
		}
		b.WriteString(part)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// clip shortens s to at most limit runes by dropping whole trailing lines,
// so no HTML tag is cut in half.
func clip(s string, limit int) string {
	if runeLen(s) <= limit {
		return s
	}
	lines := strings.Split(s, "\n")
	for len(lines) > 1 {
		lines = lines[:len(lines)-1]
		out := strings.Join(lines, "\n") + "\n" + clipMarker
		if runeLen(out) <= limit {
			return out
		}
	}
	// A single line longer than limit; fall back to cutting runes.
	if limit <= 0 {
		return ""
	}
	r := []rune(lines[0])
	if len(r) > limit {
		r = r[:limit]
	}
	return string(r)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
