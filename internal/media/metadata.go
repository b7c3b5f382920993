package media

import (
	"sort"
	"strings"
)

// Context keys written alongside assets.
const (
	ContextTitle       = "title"
	ContextDescription = "description"
	ContextCollection  = "collection"
	ContextPlaylist    = "playlist"
	ContextThumbTime   = "thumbTime"
)

// Defaults substituted when a resource lacks the matching metadata.
const (
	DefaultTitle      = "Untitled"
	DefaultCollection = "General"
	DefaultThumbTime  = "0.5"
)

// Metadata is the caller-supplied text attached to an upload.
type Metadata struct {
	Title       string
	Description string
	Collection  string
	ThumbTime   string
}

// Context returns the provider context map. Title and description are always
// present; the other keys only when set.
func (m Metadata) Context() map[string]string {
	ctx := map[string]string{
		ContextTitle:       m.Title,
		ContextDescription: m.Description,
	}
	if m.Collection != "" {
		ctx[ContextCollection] = m.Collection
	}
	if m.ThumbTime != "" {
		ctx[ContextThumbTime] = m.ThumbTime
	}
	return ctx
}

// EncodeContext renders ctx in the provider wire format
// "key=value|key=value". Title and description lead, remaining keys follow in
// sorted order; "=" and "|" are escaped with a backslash.
func EncodeContext(ctx map[string]string) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := contextRank(keys[i]), contextRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(escapeContext(k))
		b.WriteByte('=')
		b.WriteString(escapeContext(ctx[k]))
	}
	return b.String()
}

// ParseContext reverses EncodeContext. Pairs without a key are skipped.
func ParseContext(s string) map[string]string {
	out := make(map[string]string)
	if s == "" {
		return out
	}

	var key, cur strings.Builder
	inValue := false
	flush := func() {
		if k := key.String(); k != "" {
			out[k] = cur.String()
		}
		key.Reset()
		cur.Reset()
		inValue = false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			if inValue {
				cur.WriteByte(s[i])
			} else {
				key.WriteByte(s[i])
			}
		case c == '=' && !inValue:
			inValue = true
		case c == '|':
			flush()
		case inValue:
			cur.WriteByte(c)
		default:
			key.WriteByte(c)
		}
	}
	flush()
	return out
}

func contextRank(key string) int {
	switch key {
	case ContextTitle:
		return 0
	case ContextDescription:
		return 1
	default:
		return 2
	}
}

var contextEscaper = strings.NewReplacer(`\`, `\\`, `=`, `\=`, `|`, `\|`)

func escapeContext(s string) string {
	return contextEscaper.Replace(s)
}
