package questionnaire

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseohh/welcomebot/internal/profile"
)

func TestQuestionTable(t *testing.T) {
	require.Len(t, Questions, 14)
	for i, q := range Questions {
		assert.Equal(t, i+1, q.Index)
		assert.NotEmpty(t, q.Label)
		assert.NotEmpty(t, q.Prompt)
	}
	assert.Equal(t, "Name", Label(1))
	assert.Equal(t, "Question 15", Label(15))
}

func TestMention(t *testing.T) {
	tests := []struct {
		name string
		p    profile.Profile
		want string
	}{
		{"username wins", profile.Profile{ID: 1, Username: "ann", FirstName: "Ann"}, "@ann"},
		{"full name link", profile.Profile{ID: 7, FirstName: "Ann", LastName: "Lee"}, `<a href="tg://user?id=7">Ann Lee</a>`},
		{"bare id link", profile.Profile{ID: 7}, `<a href="tg://user?id=7">ID7</a>`},
		{"escaped name", profile.Profile{ID: 7, FirstName: "<Ann>"}, `<a href="tg://user?id=7">&lt;Ann&gt;</a>`},
		{"unlinked has no link", profile.Profile{ID: -2, FirstName: "Ann"}, "Ann"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mention(tt.p))
		})
	}
}

func TestFormatProfile(t *testing.T) {
	p := profile.New(1)
	p.Username = "ann"
	// Insert out of order; rendering must sort.
	p.SetAnswer(10, "1 May")
	p.SetAnswer(2, "23")
	p.SetAnswer(1, "<Ann>")
	p.SetAnswer(15, "extra")

	want := "👤 <b>User:</b> @ann\n" +
		"<b>Name:</b> &lt;Ann&gt;\n" +
		"<b>Age:</b> 23\n" +
		"<b>Birthday:</b> 1 May\n" +
		"<b>Question 15:</b> extra"
	assert.Equal(t, want, FormatProfile(p))
}

func TestFormatProfileIsSparse(t *testing.T) {
	p := profile.Profile{ID: 3, Answers: map[int]string{14: "three", 7: "RU"}}
	out := FormatProfile(p)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "<b>Country:</b> RU", lines[1])
	assert.Equal(t, "<b>How many?:</b> three", lines[2])
	assert.NotContains(t, out, "Name")

	empty := FormatProfile(profile.New(3))
	assert.Equal(t, `👤 <b>User:</b> <a href="tg://user?id=3">ID3</a>`, empty)
}

func TestFormatRosterList(t *testing.T) {
	profiles := []profile.Profile{
		{ID: 2, Username: "zed"},
		{ID: 1, FirstName: "Ann", LastName: "Lee"},
		{ID: 3, Username: "bob"},
	}
	chunks := FormatRoster(profiles, RosterList, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "👥 <b>Members:</b>\n\n• @bob\n• @zed\n• Ann Lee", chunks[0])
}

func TestFormatRosterEmpty(t *testing.T) {
	assert.Equal(t, []string{"👥 <b>Members:</b>\n\nNobody has introduced themselves yet."}, FormatRoster(nil, RosterList, 0))
	full := FormatRoster(nil, RosterFull, 0)
	require.Len(t, full, 1)
	assert.True(t, strings.HasPrefix(full[0], fullHeader))
}

func manyProfiles(n int) []profile.Profile {
	var out []profile.Profile
	for i := 1; i <= n; i++ {
		p := profile.New(int64(i))
		p.Username = fmt.Sprintf("user%03d", i)
		for _, q := range Questions {
			p.SetAnswer(q.Index, strings.Repeat("x", 20+i%7))
		}
		out = append(out, p)
	}
	return out
}

func TestFormatRosterFullChunks(t *testing.T) {
	profiles := manyProfiles(40)

	for _, limit := range []int{MaxMessageChars, 1500, 700} {
		t.Run(fmt.Sprint(limit), func(t *testing.T) {
			chunks := FormatRoster(profiles, RosterFull, limit)
			require.Greater(t, len(chunks), 1)
			assert.True(t, strings.HasPrefix(chunks[0], fullHeader))

			joined := strings.Join(chunks, "\n\n")
			for _, p := range profiles {
				block := FormatProfile(p)
				// Every block shows up whole in exactly one chunk.
				found := 0
				for _, c := range chunks {
					if strings.Contains(c, block) {
						found++
					}
				}
				assert.Equal(t, 1, found, p.Username)
				assert.Contains(t, joined, block)
			}
			for i, c := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), limit, "chunk %d", i)
			}
		})
	}
}

func TestFormatRosterClipsOversizedBlock(t *testing.T) {
	p := profile.New(1)
	p.Username = "verbose"
	for _, q := range Questions {
		p.SetAnswer(q.Index, strings.Repeat("word ", 30))
	}
	block := FormatProfile(p)
	limit := utf8.RuneCountInString(block) / 2

	chunks := FormatRoster([]profile.Profile{p}, RosterFull, limit)
	require.Len(t, chunks, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(chunks[0]), limit)
	assert.Contains(t, chunks[0], "👤 <b>User:</b> @verbose\n<b>Name:</b>")
	assert.True(t, strings.HasSuffix(chunks[0], clipMarker))
}

func TestFormatRosterTinyLimit(t *testing.T) {
	profiles := []profile.Profile{{ID: 1, Username: "ann"}, {ID: 2, Username: "bob"}}
	tests := []struct {
		name   string
		mode   RosterMode
		header string
		sep    string
		marker string
	}{
		{"list", RosterList, listHeader, "\n", "•"},
		{"full", RosterFull, fullHeader, "\n\n", "👤"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floor := utf8.RuneCountInString(tt.header+tt.sep) + 1
			for _, limit := range []int{1, 20, floor} {
				chunks := FormatRoster(profiles, tt.mode, limit)
				require.NotEmpty(t, chunks, "limit %d", limit)
				assert.True(t, strings.HasPrefix(chunks[0], tt.header))

				// No member disappears, however small the limit.
				marks := 0
				for _, c := range chunks {
					assert.LessOrEqual(t, utf8.RuneCountInString(c), floor, "limit %d", limit)
					marks += strings.Count(c, tt.marker)
				}
				assert.Equal(t, len(profiles), marks, "limit %d", limit)
			}
		})
	}
}

func TestFormatRosterListChunks(t *testing.T) {
	chunks := FormatRoster(manyProfiles(200), RosterList, 300)
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 300)
		total += strings.Count(c, "• @user")
	}
	assert.Equal(t, 200, total)
}

func TestWelcomeAndReplies(t *testing.T) {
	w := Welcome("@ann")
	assert.True(t, strings.HasPrefix(w, "@ann, "+WelcomeMarker))
	for _, q := range Questions {
		assert.Contains(t, w, fmt.Sprintf("%d. %s", q.Index, q.Prompt))
	}
	// The welcome text itself must parse as a valid questionnaire.
	assert.Len(t, ExtractAnswers(w), len(Questions))

	assert.Contains(t, SavedReply([]int{1, 2, 10}), "I saved: 1, 2, 10.")
}
