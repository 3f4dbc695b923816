package planner

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/record"
)

// sized returns a text record whose encoded size is exactly n bytes.
func sized(n int, fill string) record.Record {
	return record.Text(strings.Repeat(fill, n-record.Overhead))
}

func mandatoryOf(total int) []record.Record {
	third := total / 3
	return []record.Record{
		sized(third, "u"),
		sized(third, "m"),
		sized(total-2*third, "o"),
	}
}

func TestPlan_FillsUntilBudgetExhausted(t *testing.T) {
	budget := capacity.EffectiveBudget(capacity.Profile{Name: capacity.NTAG215, UsableBytes: 504})
	records := mandatoryOf(120)
	for _, fill := range []string{"a", "b", "c", "d", "e"} {
		records = append(records, sized(70, fill))
	}

	plan, err := Plan(records, budget)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(plan.Included) != 7 {
		t.Errorf("len(Included) = %d, want 7", len(plan.Included))
	}
	if len(plan.Excluded) != 1 {
		t.Fatalf("len(Excluded) = %d, want 1", len(plan.Excluded))
	}
	if !plan.Excluded[0].Equal(records[7]) {
		t.Errorf("Excluded[0] = %v, want last reader record", plan.Excluded[0])
	}
	if plan.TotalEncodedSize != 400 {
		t.Errorf("TotalEncodedSize = %d, want 400", plan.TotalEncodedSize)
	}
	if plan.Remaining(budget) != 64 {
		t.Errorf("Remaining() = %d, want 64", plan.Remaining(budget))
	}
	if !plan.Dropped() {
		t.Error("Dropped() = false, want true")
	}
}

func TestPlan_MandatoryTooLarge(t *testing.T) {
	records := append(mandatoryOf(500), sized(20, "r"))

	plan, err := Plan(records, 464)
	if err == nil {
		t.Fatalf("Plan() = %+v, want CAPACITY_EXCEEDED", plan)
	}
	if !errors.Is(err, errors.ErrCapacityExceeded) {
		t.Fatalf("Plan() error = %v, want CAPACITY_EXCEEDED", err)
	}
	mandatory, budget, ok := errors.CapacityDetails(err)
	if !ok || mandatory != 500 || budget != 464 {
		t.Errorf("CapacityDetails() = (%d, %d, %v), want (500, 464, true)", mandatory, budget, ok)
	}
}

func TestPlan_NoOptionalRecords(t *testing.T) {
	records := mandatoryOf(90)

	plan, err := Plan(records, 464)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Excluded) != 0 {
		t.Errorf("len(Excluded) = %d, want 0", len(plan.Excluded))
	}
	if !record.EqualAll(plan.Included, records) {
		t.Errorf("Included = %v, want %v", plan.Included, records)
	}
	if plan.TotalEncodedSize != 90 {
		t.Errorf("TotalEncodedSize = %d, want 90", plan.TotalEncodedSize)
	}
	if plan.Dropped() {
		t.Error("Dropped() = true, want false")
	}
}

func TestPlan_InOrderNotSizeSorted(t *testing.T) {
	mandatory := mandatoryOf(60)
	records := append(append([]record.Record{}, mandatory...),
		sized(120, "a"), sized(30, "b"), sized(90, "c"))

	plan, err := Plan(records, 160)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	want := append(append([]record.Record{}, mandatory...), records[4])
	if !record.EqualAll(plan.Included, want) {
		t.Errorf("Included = %v, want mandatory + [30-byte record]", plan.Included)
	}
	wantExcluded := []record.Record{records[3], records[5]}
	if !record.EqualAll(plan.Excluded, wantExcluded) {
		t.Errorf("Excluded = %v, want the 120- and 90-byte records", plan.Excluded)
	}
	if plan.Remaining(160) != 70 {
		t.Errorf("Remaining() = %d, want 70", plan.Remaining(160))
	}
}

func TestPlan_FewerThanMandatoryCount(t *testing.T) {
	tests := []struct {
		name    string
		records []record.Record
		budget  int
		wantErr bool
	}{
		{name: "empty set", records: nil, budget: 0},
		{name: "two records fit", records: []record.Record{sized(50, "a"), sized(50, "b")}, budget: 100},
		{name: "two records overflow", records: []record.Record{sized(50, "a"), sized(51, "b")}, budget: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Plan(tt.records, tt.budget)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCapacityExceeded) {
					t.Fatalf("Plan() error = %v, want CAPACITY_EXCEEDED", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if !record.EqualAll(plan.Included, tt.records) {
				t.Errorf("Included = %v, want %v", plan.Included, tt.records)
			}
			if len(plan.Excluded) != 0 {
				t.Errorf("len(Excluded) = %d, want 0", len(plan.Excluded))
			}
		})
	}
}

func TestPlan_ZeroLengthPayloads(t *testing.T) {
	records := []record.Record{record.Text(""), record.URL(""), record.Opaque(nil), record.Text("")}

	plan, err := Plan(records, 4*record.Overhead)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Included) != 4 || plan.TotalEncodedSize != 4*record.Overhead {
		t.Errorf("plan = %+v, want all four records at %d bytes", plan, 4*record.Overhead)
	}
}

// randomRecords builds a record set with three mandatory records and n
// optional ones of random sizes. Every payload is distinct.
func randomRecords(rng *rand.Rand, n int) []record.Record {
	records := make([]record.Record, 0, n+MandatoryCount)
	for i := range MandatoryCount + n {
		limit := 120
		if i < MandatoryCount {
			limit = 60
		}
		pad := rng.IntN(limit)
		records = append(records, record.Text(fmt.Sprintf("%03d", i)+strings.Repeat("x", pad)))
	}
	return records
}

func TestPlan_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for i := range 500 {
		records := randomRecords(rng, rng.IntN(12))
		budget := rng.IntN(900)

		plan, err := Plan(records, budget)
		mandatory, _ := Split(records)
		if err != nil {
			if record.SizeOf(mandatory...) <= budget {
				t.Fatalf("case %d: Plan() error = %v with mandatory fitting", i, err)
			}
			continue
		}

		if plan.TotalEncodedSize > budget {
			t.Fatalf("case %d: TotalEncodedSize %d > budget %d", i, plan.TotalEncodedSize, budget)
		}
		if plan.TotalEncodedSize != record.SizeOf(plan.Included...) {
			t.Fatalf("case %d: TotalEncodedSize %d != SizeOf(Included) %d", i, plan.TotalEncodedSize, record.SizeOf(plan.Included...))
		}
		if !record.EqualAll(plan.Included[:len(mandatory)], mandatory) {
			t.Fatalf("case %d: mandatory prefix not preserved", i)
		}
		if len(plan.Included)+len(plan.Excluded) != len(records) {
			t.Fatalf("case %d: included+excluded = %d, want %d", i, len(plan.Included)+len(plan.Excluded), len(records))
		}
		if !isSubsequence(plan.Included, records) {
			t.Fatalf("case %d: Included is not an ordered subsequence of the input", i)
		}

		replan, err := Plan(plan.Included, budget)
		if err != nil {
			t.Fatalf("case %d: re-plan error = %v", i, err)
		}
		if !record.EqualAll(replan.Included, plan.Included) || len(replan.Excluded) != 0 {
			t.Fatalf("case %d: re-plan changed the plan", i)
		}
	}
}

func TestPlan_RemovingOptionalRecord(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for i := range 300 {
		records := randomRecords(rng, 2+rng.IntN(8))
		budget := 150 + rng.IntN(400)

		full, err := Plan(records, budget)
		if err != nil {
			continue
		}

		drop := MandatoryCount + rng.IntN(len(records)-MandatoryCount)
		reduced := append(append([]record.Record{}, records[:drop]...), records[drop+1:]...)
		plan, err := Plan(reduced, budget)
		if err != nil {
			t.Fatalf("case %d: Plan(reduced) error = %v", i, err)
		}

		// Decisions for records ahead of the removed one never change.
		for idx := 0; idx < drop; idx++ {
			if contains(full.Included, records[idx]) != contains(plan.Included, records[idx]) {
				t.Fatalf("case %d: decision for record %d changed after removing %d", i, idx, drop)
			}
		}

		// Removing a record that was excluded anyway leaves the plan intact.
		if !contains(full.Included, records[drop]) {
			if !record.EqualAll(plan.Included, full.Included) {
				t.Fatalf("case %d: removing excluded record %d changed Included", i, drop)
			}
		}
	}
}

func contains(rs []record.Record, r record.Record) bool {
	for _, x := range rs {
		if x.Equal(r) {
			return true
		}
	}
	return false
}

func isSubsequence(sub, seq []record.Record) bool {
	j := 0
	for _, r := range seq {
		if j < len(sub) && sub[j].Equal(r) {
			j++
		}
	}
	return j == len(sub)
}
