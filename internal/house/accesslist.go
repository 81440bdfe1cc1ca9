package house

import (
	"regexp"
	"strings"
)

// maxLineLen is the longest list line considered; longer lines are ignored.
const maxLineLen = 100

type rule struct {
	expr  string // escaped expression, used to skip duplicates
	re    *regexp.Regexp
	allow bool
}

// AccessList is a parsed house or door permission list. The raw text is kept
// verbatim so it can be shown back to the editor.
//
// Each line is one of:
//
//	name       a player, resolved to a guid
//	@guild     every member of a guild
//	pattern    a name with * or ? wildcards; a leading ! denies matches
//	# comment
type AccessList struct {
	ids Identities

	text    string
	players map[uint32]struct{}
	guilds  map[uint32]struct{}
	rules   []rule
}

func NewAccessList(ids Identities) *AccessList {
	return &AccessList{
		ids:     ids,
		players: map[uint32]struct{}{},
		guilds:  map[uint32]struct{}{},
	}
}

// Parse replaces the list with text. Names that do not resolve are skipped.
// Empty text clears the list.
func (l *AccessList) Parse(text string) bool {
	players := map[uint32]struct{}{}
	guilds := map[uint32]struct{}{}
	var rules []rule

	for _, line := range strings.Split(text, "\n") {
		line = strings.ToLower(strings.Trim(line, " \t\r"))
		if line == "" || strings.HasPrefix(line, "#") || len(line) > maxLineLen {
			continue
		}
		switch {
		case strings.Contains(line, "@"):
			name := line[strings.Index(line, "@")+1:]
			if id, ok := l.ids.GuildIDByName(name); ok && id != 0 {
				guilds[id] = struct{}{}
			}
		case strings.ContainsAny(line, "!*?"):
			rules = appendRule(rules, line)
		default:
			if guid, ok := l.ids.GUIDByName(line); ok {
				players[guid] = struct{}{}
			}
		}
	}

	l.text = text
	l.players = players
	l.guilds = guilds
	l.rules = rules
	return true
}

// appendRule compiles a wildcard line into an anchored expression.
// Duplicates are dropped.
func appendRule(rules []rule, line string) []rule {
	allow := true
	if strings.HasPrefix(line, "!") {
		allow = false
		line = line[1:]
	}
	var b strings.Builder
	for _, r := range line {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".?")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	expr := b.String()
	if !allow {
		expr = "!" + expr
	}
	for _, r := range rules {
		if r.expr == expr {
			return rules
		}
	}
	re, err := regexp.Compile("^(?:" + strings.TrimPrefix(expr, "!") + ")$")
	if err != nil {
		return rules
	}
	return append(rules, rule{expr: expr, re: re, allow: allow})
}

// Text returns the list exactly as last parsed.
func (l *AccessList) Text() string { return l.text }

// IsInList checks wildcard rules first, in order; the first that matches
// decides. Only when none match are the player and guild sets consulted.
func (l *AccessList) IsInList(a Actor) bool {
	name := strings.ToLower(a.Name())
	for _, r := range l.rules {
		if r.re.MatchString(name) {
			return r.allow
		}
	}
	if _, ok := l.players[a.GUID()]; ok {
		return true
	}
	if _, ok := l.guilds[a.GuildID()]; ok {
		return true
	}
	return false
}
