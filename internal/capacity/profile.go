package capacity

import (
	"fmt"
	"sort"
	"sync"
)

// TagType identifies a family of tags with a known usable capacity.
type TagType string

const (
	NTAG213 TagType = "ntag213"
	NTAG215 TagType = "ntag215"
	NTAG216 TagType = "ntag216"

	// DefaultType is assumed when the tag type cannot be inferred.
	DefaultType = NTAG215
)

// SafetyMargin is reserved out of every tag's usable bytes for container
// framing (TLV and message headers) that per-record sizes do not model.
const SafetyMargin = 40

// Profile describes the usable user memory of a tag type.
type Profile struct {
	Name        TagType `json:"name"`
	UsableBytes int     `json:"usable_bytes"`
}

// EffectiveBudget returns the bytes available to records after the safety
// margin. Never negative.
func EffectiveBudget(p Profile) int {
	return max(0, p.UsableBytes-SafetyMargin)
}

// Table maps tag types to profiles. It is read-only once built and safe for
// concurrent use.
type Table struct {
	profiles map[TagType]Profile
	fallback Profile
}

// NewTable builds a table from the given profiles. The default type must be
// among them and every profile must have positive usable bytes.
func NewTable(defaultType TagType, profiles ...Profile) (*Table, error) {
	t := &Table{profiles: make(map[TagType]Profile, len(profiles))}
	for _, p := range profiles {
		if p.UsableBytes <= 0 {
			return nil, fmt.Errorf("profile %q: usable bytes must be positive, got %d", p.Name, p.UsableBytes)
		}
		if _, dup := t.profiles[p.Name]; dup {
			return nil, fmt.Errorf("profile %q defined twice", p.Name)
		}
		t.profiles[p.Name] = p
	}
	fallback, ok := t.profiles[defaultType]
	if !ok {
		return nil, fmt.Errorf("default profile %q not in table", defaultType)
	}
	t.fallback = fallback
	return t, nil
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := NewTable(DefaultType,
		Profile{Name: NTAG213, UsableBytes: 144},
		Profile{Name: NTAG215, UsableBytes: 504},
		Profile{Name: NTAG216, UsableBytes: 888},
	)
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTable returns the process-wide NTAG21x profile table.
func DefaultTable() *Table {
	return defaultTable()
}

// ProfileFor returns the profile for typeID, or the default profile when the
// type is unknown.
func (t *Table) ProfileFor(typeID TagType) Profile {
	if p, ok := t.profiles[typeID]; ok {
		return p
	}
	return t.fallback
}

// Lookup returns the profile for typeID and whether the table knows it.
func (t *Table) Lookup(typeID TagType) (Profile, bool) {
	p, ok := t.profiles[typeID]
	return p, ok
}

// Default returns the profile used when the tag type is unknown.
func (t *Table) Default() Profile {
	return t.fallback
}

// Profiles lists all profiles, smallest capacity first.
func (t *Table) Profiles() []Profile {
	out := make([]Profile, 0, len(t.profiles))
	for _, p := range t.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsableBytes != out[j].UsableBytes {
			return out[i].UsableBytes < out[j].UsableBytes
		}
		return out[i].Name < out[j].Name
	})
	return out
}
