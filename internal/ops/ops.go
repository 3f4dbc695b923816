package ops

import (
	"fmt"
	"strings"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/draft"
	"github.com/hpungsan/tagfit/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Address represents a validated draft address.
type Address struct {
	ByID bool
	ID   string
	Name string // normalized
}

// ValidateAddress validates addressing parameters and returns a normalized Address.
// Exactly one of id or name must be given.
func ValidateAddress(id, name string) (*Address, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	if id != "" && name != "" {
		return nil, errors.NewInvalidRequest("cannot specify both id and name; use one addressing mode")
	}
	if id != "" {
		return &Address{ByID: true, ID: id}, nil
	}

	nameNorm := draft.Normalize(name)
	if nameNorm == "" {
		return nil, errors.NewInvalidRequest("must specify either id or name")
	}
	return &Address{Name: nameNorm}, nil
}

// Target selects the tag a plan is computed for. Budget wins over TagType,
// which wins over Serial. With nothing set the default profile is used.
type Target struct {
	Serial  string `json:"serial,omitempty"`
	TagType string `json:"tag_type,omitempty"`
	Budget  *int   `json:"budget,omitempty"`
}

// ResolvedTarget is a Target with its tag type and budget worked out.
type ResolvedTarget struct {
	TagType         capacity.TagType `json:"tag_type"`
	UsableBytes     int              `json:"usable_bytes"`
	EffectiveBudget int              `json:"effective_budget"`
}

// resolveTarget works out the budget for t against table.
func resolveTarget(table *capacity.Table, t Target) (ResolvedTarget, error) {
	var profile capacity.Profile
	if typ := strings.ToLower(strings.TrimSpace(t.TagType)); typ != "" {
		p, ok := table.Lookup(capacity.TagType(typ))
		if !ok {
			return ResolvedTarget{}, errors.NewInvalidRequest(fmt.Sprintf("unknown tag_type: %s", t.TagType))
		}
		profile = p
	} else {
		profile = capacity.NewResolver(table).Profile(t.Serial)
	}

	resolved := ResolvedTarget{
		TagType:         profile.Name,
		UsableBytes:     profile.UsableBytes,
		EffectiveBudget: capacity.EffectiveBudget(profile),
	}
	if t.Budget != nil {
		if *t.Budget < 0 {
			return ResolvedTarget{}, errors.NewInvalidRequest("budget must be non-negative")
		}
		resolved.EffectiveBudget = *t.Budget
	}
	return resolved, nil
}
