package ops

import "github.com/hpungsan/tagfit/internal/capacity"

// ResolveInput contains parameters for the Resolve operation.
type ResolveInput struct {
	Serial string
}

// ResolveOutput contains the result of the Resolve operation.
type ResolveOutput struct {
	Serial string `json:"serial"`
	ResolvedTarget

	// Fallback is true when no marker matched and the default type was used.
	Fallback bool `json:"fallback"`
}

// Resolve infers the tag type and budget from a serial or identifier string.
func Resolve(table *capacity.Table, input ResolveInput) *ResolveOutput {
	typ, matched := capacity.NewResolver(table).Match(input.Serial)
	profile := table.ProfileFor(typ)

	return &ResolveOutput{
		Serial: input.Serial,
		ResolvedTarget: ResolvedTarget{
			TagType:         typ,
			UsableBytes:     profile.UsableBytes,
			EffectiveBudget: capacity.EffectiveBudget(profile),
		},
		Fallback: !matched,
	}
}
