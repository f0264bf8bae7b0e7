package discussion

import (
	"regexp"
	"strings"
	"unicode"

	"huddle-cli/internal/model"
)

// MentionQuery describes an in-progress @mention token under the cursor.
// Offsets are byte offsets into the composition buffer.
type MentionQuery struct {
	Start  int    // offset of the '@'
	Cursor int    // offset the scan was anchored at
	Term   string // text between '@' and Cursor
}

// Scan reports whether an @mention token is being typed at cursor.
//
// It looks backward from cursor for the nearest '@'; any whitespace between
// that '@' and the cursor means the token was already finished, so there is
// no active query.
func Scan(text string, cursor int) (MentionQuery, bool) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	before := text[:cursor]
	at := strings.LastIndexByte(before, '@')
	if at == -1 {
		return MentionQuery{}, false
	}
	term := before[at+1:]
	if strings.IndexFunc(term, unicode.IsSpace) != -1 {
		return MentionQuery{}, false
	}
	return MentionQuery{Start: at, Cursor: cursor, Term: term}, true
}

// FilterCandidates returns the mention-eligible users whose username starts
// with term (case-insensitive), preserving input order. Users without a
// username can not be mentioned and are skipped. An empty term matches all
// eligible users.
func FilterCandidates(users []model.User, term string) []model.User {
	term = strings.ToLower(term)
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if u.Username == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(u.Username), term) {
			out = append(out, u)
		}
	}
	return out
}

// InsertMention replaces the in-progress token described by q with
// "@username " and returns the new buffer plus the cursor position just
// after the inserted space. The result depends only on the inputs, so
// repeating the same insertion is harmless.
func InsertMention(text string, q MentionQuery, username string) (string, int) {
	start := q.Start
	end := q.Cursor
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		start = end
	}
	out := text[:start] + "@" + username + " " + text[end:]
	return out, start + len(username) + 2
}

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the usernames of every @mention token in text,
// in order of appearance, duplicates included.
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// SplitMentions splits text into alternating plain and mention segments so
// a renderer can highlight mentions without re-parsing. Mention segments
// keep their leading '@'.
func SplitMentions(text string) []Segment {
	locs := mentionPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []Segment{{Text: text}}
	}
	var out []Segment
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			out = append(out, Segment{Text: text[prev:loc[0]]})
		}
		out = append(out, Segment{Text: text[loc[0]:loc[1]], Mention: true})
		prev = loc[1]
	}
	if prev < len(text) {
		out = append(out, Segment{Text: text[prev:]})
	}
	return out
}

// Segment is a run of message text, optionally an @mention.
type Segment struct {
	Text    string
	Mention bool
}
