package capacity

import "strings"

// Marker maps an identifier substring to the tag type it indicates.
type Marker struct {
	Substring string
	Type      TagType
}

// DefaultMarkers are checked in order. More specific markers come first so a
// shorter marker cannot mask one that contains it.
var DefaultMarkers = []Marker{
	{Substring: "216", Type: NTAG216},
	{Substring: "215", Type: NTAG215},
	{Substring: "213", Type: NTAG213},
}

// Resolver infers a tag type from scan metadata.
type Resolver struct {
	table   *Table
	markers []Marker
}

// NewResolver creates a resolver over table. With no markers,
// DefaultMarkers is used.
func NewResolver(table *Table, markers ...Marker) *Resolver {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	ms := make([]Marker, len(markers))
	for i, m := range markers {
		ms[i] = Marker{Substring: strings.ToLower(m.Substring), Type: m.Type}
	}
	return &Resolver{table: table, markers: ms}
}

// Resolve returns the first tag type whose marker appears in serial, or the
// table's default type. It always returns a type present in the table.
func (r *Resolver) Resolve(serial string) TagType {
	typ, _ := r.Match(serial)
	return typ
}

// Match is Resolve that also reports whether a marker matched a type the
// table knows. When ok is false the returned type is the table's default.
func (r *Resolver) Match(serial string) (typ TagType, ok bool) {
	s := strings.ToLower(strings.TrimSpace(serial))
	if s == "" {
		return r.table.fallback.Name, false
	}
	for _, m := range r.markers {
		if m.Substring != "" && strings.Contains(s, m.Substring) {
			p, known := r.table.Lookup(m.Type)
			if !known {
				return r.table.fallback.Name, false
			}
			return p.Name, true
		}
	}
	return r.table.fallback.Name, false
}

// Profile resolves serial and returns the matching profile.
func (r *Resolver) Profile(serial string) Profile {
	return r.table.ProfileFor(r.Resolve(serial))
}
