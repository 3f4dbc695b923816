package ops

import "github.com/hpungsan/tagfit/internal/capacity"

// ProfileInfo describes one tag type and its budget.
type ProfileInfo struct {
	Name            capacity.TagType `json:"name"`
	UsableBytes     int              `json:"usable_bytes"`
	EffectiveBudget int              `json:"effective_budget"`
	Default         bool             `json:"default,omitempty"`
}

// ProfilesOutput lists the known tag profiles.
type ProfilesOutput struct {
	Profiles     []ProfileInfo `json:"profiles"`
	SafetyMargin int           `json:"safety_margin"`
}

// Profiles lists the capacity table, smallest tag first.
func Profiles(table *capacity.Table) *ProfilesOutput {
	out := &ProfilesOutput{SafetyMargin: capacity.SafetyMargin}
	def := table.Default().Name
	for _, p := range table.Profiles() {
		out.Profiles = append(out.Profiles, ProfileInfo{
			Name:            p.Name,
			UsableBytes:     p.UsableBytes,
			EffectiveBudget: capacity.EffectiveBudget(p),
			Default:         p.Name == def,
		})
	}
	return out
}
