package ops

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/db"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/record"
)

func stringPtr(s string) *string {
	return &s
}

func intPtr(n int) *int {
	return &n
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// sized returns text records whose encoded sizes are exactly sizes.
func sized(sizes ...int) []record.Record {
	out := make([]record.Record, len(sizes))
	for i, n := range sizes {
		out[i] = record.Text(strings.Repeat(string(rune('a'+i%26)), n-record.Overhead))
	}
	return out
}

func TestValidateAddress(t *testing.T) {
	addr, err := ValidateAddress("01ABC", "")
	if err != nil {
		t.Fatalf("ValidateAddress by id failed: %v", err)
	}
	if !addr.ByID || addr.ID != "01ABC" {
		t.Errorf("addr = %+v, want by id 01ABC", addr)
	}

	addr, err = ValidateAddress("", "  Front   Door ")
	if err != nil {
		t.Fatalf("ValidateAddress by name failed: %v", err)
	}
	if addr.ByID || addr.Name != "front door" {
		t.Errorf("addr = %+v, want name %q", addr, "front door")
	}

	if _, err := ValidateAddress("01ABC", "front door"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("both set: expected INVALID_REQUEST, got %v", err)
	}
	if _, err := ValidateAddress("", "   "); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("neither set: expected INVALID_REQUEST, got %v", err)
	}
}

func TestResolveTarget_Precedence(t *testing.T) {
	table := capacity.DefaultTable()

	tests := []struct {
		name       string
		target     Target
		wantType   capacity.TagType
		wantBudget int
	}{
		{"default", Target{}, capacity.NTAG215, 464},
		{"serial", Target{Serial: "NTAG213-04A2"}, capacity.NTAG213, 104},
		{"tag type beats serial", Target{Serial: "NTAG213-04A2", TagType: "NTAG216"}, capacity.NTAG216, 848},
		{"budget beats tag type", Target{TagType: "ntag216", Budget: intPtr(100)}, capacity.NTAG216, 100},
		{"zero budget", Target{Budget: intPtr(0)}, capacity.NTAG215, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTarget(table, tt.target)
			if err != nil {
				t.Fatalf("resolveTarget failed: %v", err)
			}
			if got.TagType != tt.wantType {
				t.Errorf("TagType = %q, want %q", got.TagType, tt.wantType)
			}
			if got.EffectiveBudget != tt.wantBudget {
				t.Errorf("EffectiveBudget = %d, want %d", got.EffectiveBudget, tt.wantBudget)
			}
		})
	}
}

func TestResolveTarget_Invalid(t *testing.T) {
	table := capacity.DefaultTable()

	if _, err := resolveTarget(table, Target{TagType: "ntag424"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unknown tag type: expected INVALID_REQUEST, got %v", err)
	}
	if _, err := resolveTarget(table, Target{Budget: intPtr(-1)}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("negative budget: expected INVALID_REQUEST, got %v", err)
	}
}
