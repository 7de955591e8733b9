package util

import (
	"strconv"
	"strings"
)

// Key returns the storage key for a namespace/id pair:
//
//	<prefix>:<len(ns)>:<ns>:<id>
//
// The namespace length makes the key unambiguous even when ns or id contain ':'.
func Key(prefix, ns, id string) string {
	return Scope(prefix, ns) + id
}

// Scope returns the key prefix shared by every id in ns. Key(p, ns, id) always
// starts with Scope(p, ns), so Scope(p, ns)+idPrefix selects an id range.
func Scope(prefix, ns string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(ns) + 8)
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(len(ns)))
	b.WriteByte(':')
	b.WriteString(ns)
	b.WriteByte(':')
	return b.String()
}

// GlobEscape escapes redis glob metacharacters so s matches literally in
// SCAN MATCH patterns.
func GlobEscape(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
