package search

import (
	"regexp"
	"strconv"
	"strings"
)

// Context selects what plain text binds to.
type Context string

const (
	ContextMedia     Context = "media"
	ContextCharacter Context = "character"
	ContextLibrary   Context = "library"
)

// ParseContext accepts the context names plus a few plural spellings used by
// routes ("characters").
func ParseContext(s string) (Context, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "media", "":
		return ContextMedia, true
	case "character", "characters":
		return ContextCharacter, true
	case "library":
		return ContextLibrary, true
	}
	return "", false
}

// plainKey is the key free text folds into for this context.
func (c Context) plainKey() (Key, bool) {
	switch c {
	case ContextMedia, ContextLibrary:
		return KeyTitle, true
	case ContextCharacter:
		return KeyName, true
	}
	return 0, false
}

// A single pattern covers both token forms. At any offset the quoted
// alternative is tried first, so a quoted and unquoted match can never tie.
var tokenRe = regexp.MustCompile(`(-?)(\w+):(?:"([^"]*)"|(\S+))`)

var (
	numberRe = regexp.MustCompile(`^(>|<)?(\d+)$`)
	scoreRe  = regexp.MustCompile(`^(>|<)?(\d{1,2})$`)
)

// Token is one claimed key:value occurrence in the source string.
type Token struct {
	Key     Key
	Exclude bool
	Value   string
	Quoted  bool
	// Start and End are byte offsets of the token in Result.Query.
	Start, End int
	// Applied is false when the token was claimed but its value was rejected.
	Applied bool
}

// Text renders the token in canonical form.
func (t Token) Text() string {
	var b strings.Builder
	if t.Exclude {
		b.WriteByte('-')
	}
	b.WriteString(t.Key.String())
	b.WriteByte(':')
	// An unquoted value already matched \S+, so only whitespace forces quotes.
	if t.Value == "" || strings.ContainsAny(t.Value, " \t\n\f\r") {
		b.WriteString(`"` + t.Value + `"`)
	} else {
		b.WriteString(t.Value)
	}
	return b.String()
}

// Result is the outcome of parsing one query string.
type Result struct {
	Query   string
	Context Context
	Filters Filters
	Tokens  []Token
	// Plain is the unclaimed remainder, already folded into Filters.
	Plain string
}

// Parse turns free text into filters. It never fails: rejected values are
// dropped and unknown keys stay in the plain text.
func Parse(query string, ctx Context) Result {
	res := Result{Query: query, Context: ctx}

	var claimed [][2]int
	for _, m := range tokenRe.FindAllStringSubmatchIndex(query, -1) {
		key, ok := LookupKey(query[m[4]:m[5]])
		if !ok {
			continue
		}
		tok := Token{
			Key:     key,
			Exclude: m[3] > m[2],
			Start:   m[0],
			End:     m[1],
		}
		if m[6] >= 0 {
			tok.Value = query[m[6]:m[7]]
			tok.Quoted = true
		} else {
			tok.Value = query[m[8]:m[9]]
		}
		tok.Applied = res.Filters.apply(tok)
		res.Tokens = append(res.Tokens, tok)
		claimed = append(claimed, [2]int{m[0], m[1]})
	}

	res.Plain = remainder(query, claimed)
	if res.Plain != "" {
		if k, ok := ctx.plainKey(); ok {
			res.Filters.add(k, false, res.Plain)
		}
	}
	return res
}

// apply routes one token into the filters and reports whether it took effect.
func (f *Filters) apply(t Token) bool {
	if t.Exclude && !t.Key.Excludable() {
		return false
	}
	if t.Key.Kind() == KindList {
		if t.Value == "" {
			return false
		}
		f.add(t.Key, t.Exclude, t.Value)
		return true
	}
	b, ok := parseBound(t.Key, t.Value)
	if !ok {
		return false
	}
	f.set(t.Key, t.Exclude, b)
	return true
}

func parseBound(k Key, v string) (Bound, bool) {
	spec := k.spec()
	re := numberRe
	if spec.maxDigits > 0 {
		re = scoreRe
	}
	m := re.FindStringSubmatch(v)
	if m == nil {
		return Bound{}, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Bound{}, false
	}
	if spec.max > 0 && (n < spec.min || n > spec.max) {
		return Bound{}, false
	}
	b := Bound{Value: n}
	switch m[1] {
	case ">":
		b.Op = OpGT
	case "<":
		b.Op = OpLT
	}
	if spec.kind == KindRange && b.Op == OpEq {
		return Bound{}, false
	}
	return b, true
}

// remainder replaces each claimed span with a single space and trims the
// result. Interior whitespace of the unclaimed text is kept as typed.
func remainder(query string, spans [][2]int) string {
	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(query[last:s[0]])
		b.WriteByte(' ')
		last = s[1]
	}
	b.WriteString(query[last:])
	return strings.TrimSpace(b.String())
}

func quoteValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\n:") {
		return `"` + v + `"`
	}
	return v
}
