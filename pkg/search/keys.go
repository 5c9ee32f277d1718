package search

import "strings"

// Key is one of the fixed filter names understood by the query language.
type Key int

const (
	KeyTitle Key = iota
	KeyName
	KeyYear
	KeyType
	KeyStatus
	KeyTag
	KeyScore
	KeyMedia
	KeyAppearances
	KeyUserStatus
	KeyUserScore

	numKeys
)

// Kind describes the value shape a key accepts.
type Kind int

const (
	// KindList keys collect string values (OR on inclusion, AND-of-NOT on exclusion).
	KindList Kind = iota
	// KindNumber keys hold one exact value or one exclusive bound.
	KindNumber
	// KindRange keys hold one exclusive bound only.
	KindRange
)

const excludePrefix = "exclude_"

type keySpec struct {
	name       string
	kind       Kind
	excludable bool
	maxDigits  int // 0 means any number of digits
	min, max   int // inclusive bounds, checked when max > 0
}

// keySpecs is indexed by Key and drives parsing, serialization, chips and the
// server-side applier.
var keySpecs = [...]keySpec{
	KeyTitle:       {name: "title", kind: KindList, excludable: true},
	KeyName:        {name: "name", kind: KindList, excludable: true},
	KeyYear:        {name: "year", kind: KindNumber, excludable: true},
	KeyType:        {name: "type", kind: KindList, excludable: true},
	KeyStatus:      {name: "status", kind: KindList, excludable: true},
	KeyTag:         {name: "tag", kind: KindList, excludable: true},
	KeyScore:       {name: "score", kind: KindNumber, maxDigits: 2, min: 1, max: 10},
	KeyMedia:       {name: "media", kind: KindList, excludable: true},
	KeyAppearances: {name: "appearances", kind: KindRange},
	KeyUserStatus:  {name: "user_status", kind: KindList, excludable: true},
	KeyUserScore:   {name: "user_score", kind: KindNumber, maxDigits: 2, min: 1, max: 10},
}

// keySpecs must have exactly one entry per Key.
var _ = [1]struct{}{}[len(keySpecs)-int(numKeys)]

var keysByName = func() map[string]Key {
	m := make(map[string]Key, numKeys)
	for k := Key(0); k < numKeys; k++ {
		m[keySpecs[k].name] = k
	}
	return m
}()

// Keys returns every key in the fixed iteration order.
func Keys() []Key {
	out := make([]Key, 0, numKeys)
	for k := Key(0); k < numKeys; k++ {
		out = append(out, k)
	}
	return out
}

// LookupKey resolves a key name case-insensitively.
func LookupKey(name string) (Key, bool) {
	k, ok := keysByName[strings.ToLower(name)]
	return k, ok
}

func (k Key) valid() bool { return k >= 0 && k < numKeys }

func (k Key) spec() keySpec {
	if !k.valid() {
		return keySpec{}
	}
	return keySpecs[k]
}

func (k Key) String() string { return k.spec().name }

func (k Key) Kind() Kind { return k.spec().kind }

// Excludable reports whether a negated token (-key:value) is honored.
func (k Key) Excludable() bool { return k.spec().excludable }

// Param is the wire name of the inclusion parameter.
func (k Key) Param() string { return k.spec().name }

// ExcludeParam is the wire name of the exclusion parameter.
func (k Key) ExcludeParam() string { return excludePrefix + k.spec().name }

// filterName is the camelCase record name used in JSON output,
// e.g. "title" and "excludeUserStatus".
func (k Key) filterName(exclude bool) string {
	name := k.spec().name
	if !exclude {
		return name
	}
	var b strings.Builder
	b.WriteString("exclude")
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
