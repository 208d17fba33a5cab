package models

import (
	"errors"
	"testing"
	"time"

	"mooringhub/internal/core/domain"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testSizeGroup() *VesselSizeCategoryGroup {
	return &VesselSizeCategoryGroup{
		ID:   1,
		Name: "Standard",
		Categories: []VesselSizeCategory{
			{ID: 10, GroupID: 1, Name: "Small", StartSize: dec("0"), IncludeStartSize: true},
			{ID: 11, GroupID: 1, Name: "Medium", StartSize: dec("10"), IncludeStartSize: true},
			{ID: 12, GroupID: 1, Name: "Large", StartSize: dec("16"), IncludeStartSize: false},
			{ID: 13, GroupID: 1, Name: "No vessel", StartSize: dec("0"), NullVessel: true},
		},
	}
}

func TestVesselSizeCategoryGroup_Classify(t *testing.T) {
	group := testSizeGroup()

	tests := []struct {
		name   string
		length string
		wantID uint
	}{
		{"below first boundary", "5.5", 10},
		{"inclusive boundary belongs to its category", "10", 11},
		{"between boundaries", "12.75", 11},
		{"exclusive boundary rounds down", "16", 11},
		{"above exclusive boundary", "16.01", 12},
		{"well above largest boundary", "40", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := group.Classify(dec(tt.length), false)
			if err != nil {
				t.Fatalf("Classify(%s) error = %v", tt.length, err)
			}
			if cat.ID != tt.wantID {
				t.Errorf("Classify(%s) = category %d (%s), want %d", tt.length, cat.ID, cat.Name, tt.wantID)
			}
		})
	}
}

func TestVesselSizeCategoryGroup_Classify_NoMatch(t *testing.T) {
	group := &VesselSizeCategoryGroup{
		Categories: []VesselSizeCategory{
			{ID: 1, Name: "Medium", StartSize: dec("10"), IncludeStartSize: false},
		},
	}

	if _, err := group.Classify(dec("5"), false); !errors.Is(err, domain.ErrNoMatchingCategory) {
		t.Errorf("Classify below every band: error = %v, want ErrNoMatchingCategory", err)
	}
	// An exclusive boundary with no lower band to fall back on has no match.
	if _, err := group.Classify(dec("10"), false); !errors.Is(err, domain.ErrNoMatchingCategory) {
		t.Errorf("Classify on exclusive first boundary: error = %v, want ErrNoMatchingCategory", err)
	}
}

func TestVesselSizeCategoryGroup_NullVessel(t *testing.T) {
	group := testSizeGroup()

	cat, err := group.Classify(dec("12"), true)
	if err != nil {
		t.Fatalf("Classify(accept null vessel) error = %v", err)
	}
	if cat.ID != 13 {
		t.Errorf("Classify(accept null vessel) = category %d, want the null-vessel sentinel 13", cat.ID)
	}

	// No sentinel configured.
	noSentinel := &VesselSizeCategoryGroup{
		Categories: []VesselSizeCategory{{ID: 1, StartSize: dec("0"), IncludeStartSize: true}},
	}
	if _, err := noSentinel.NullVesselCategory(); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("NullVesselCategory with no sentinel: error = %v, want ErrNotConfigured", err)
	}

	// Two sentinels is equally a configuration error.
	twoSentinels := &VesselSizeCategoryGroup{
		Categories: []VesselSizeCategory{
			{ID: 1, NullVessel: true},
			{ID: 2, NullVessel: true},
		},
	}
	if _, err := twoSentinels.NullVesselCategory(); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("NullVesselCategory with two sentinels: error = %v, want ErrNotConfigured", err)
	}
}

func TestFeeSeason_DerivedDates(t *testing.T) {
	season := &FeeSeason{
		Name: "2025/26",
		Periods: []FeePeriod{
			{ID: 2, Name: "Late", StartDate: date(2025, time.October, 1)},
			{ID: 1, Name: "Early", StartDate: date(2025, time.April, 1)},
		},
	}

	start := season.StartDate()
	if start == nil || !start.Equal(date(2025, time.April, 1)) {
		t.Errorf("StartDate() = %v, want 2025-04-01", start)
	}
	end := season.EndDate()
	if end == nil || !end.Equal(date(2026, time.March, 31)) {
		t.Errorf("EndDate() = %v, want 2026-03-31", end)
	}

	empty := &FeeSeason{}
	if empty.StartDate() != nil || empty.EndDate() != nil {
		t.Error("season without periods should have no derived dates")
	}
}

func TestFeeSeason_PeriodFor(t *testing.T) {
	season := &FeeSeason{
		Periods: []FeePeriod{
			{ID: 1, StartDate: date(2025, time.April, 1)},
			{ID: 2, StartDate: date(2025, time.October, 1)},
		},
	}

	if p := season.PeriodFor(date(2025, time.June, 15)); p == nil || p.ID != 1 {
		t.Errorf("PeriodFor(mid first period) = %v, want period 1", p)
	}
	if p := season.PeriodFor(date(2025, time.October, 1)); p == nil || p.ID != 2 {
		t.Errorf("PeriodFor(second period start) = %v, want period 2", p)
	}
	if p := season.PeriodFor(date(2026, time.February, 1)); p == nil || p.ID != 2 {
		t.Errorf("PeriodFor(late in season) = %v, want period 2", p)
	}
	if p := season.PeriodFor(date(2025, time.March, 31)); p != nil {
		t.Errorf("PeriodFor(before season) = period %d, want nil", p.ID)
	}
}

func TestFeeItem_GetAbsoluteAmount(t *testing.T) {
	flat := &FeeItem{Amount: dec("150.00")}
	if got := flat.GetAbsoluteAmount(dec("12.5")); !got.Equal(dec("150.00")) {
		t.Errorf("flat amount = %s, want 150.00", got)
	}

	perMetre := &FeeItem{Amount: dec("10.55"), Incremental: true}
	if got := perMetre.GetAbsoluteAmount(dec("12.5")); !got.Equal(dec("131.88")) {
		t.Errorf("incremental amount = %s, want 131.88 (10.55 * 12.5 rounded)", got)
	}

	// A zero length vessel never multiplies a per-metre rate.
	if got := perMetre.GetAbsoluteAmount(decimal.Zero); !got.Equal(dec("10.55")) {
		t.Errorf("incremental amount for zero length = %s, want 10.55", got)
	}
}

func testConstructor() *FeeConstructor {
	newType := domain.ProposalTypeNew
	renewalType := domain.ProposalTypeRenewal
	return &FeeConstructor{
		ID: 1,
		FeeSeason: &FeeSeason{
			ID: 1,
			Periods: []FeePeriod{
				{ID: 1, StartDate: date(2025, time.April, 1)},
				{ID: 2, StartDate: date(2025, time.October, 1)},
			},
		},
		Group: testSizeGroup(),
		FeeItems: []FeeItem{
			{ID: 100, FeePeriodID: 1, VesselSizeCategoryID: 11, ProposalTypeCode: &newType, Amount: dec("200.00")},
			{ID: 101, FeePeriodID: 1, VesselSizeCategoryID: 11, ProposalTypeCode: &renewalType, Amount: dec("180.00")},
			{ID: 102, FeePeriodID: 1, VesselSizeCategoryID: 13, ProposalTypeCode: &renewalType, Amount: dec("0.00")},
		},
	}
}

func TestFeeConstructor_GetFeeItem(t *testing.T) {
	fc := testConstructor()

	item, err := fc.GetFeeItem(dec("12"), domain.ProposalTypeNew, date(2025, time.May, 1), false)
	if err != nil {
		t.Fatalf("GetFeeItem error = %v", err)
	}
	if item == nil || item.ID != 100 {
		t.Fatalf("GetFeeItem = %v, want item 100", item)
	}

	// Same period and category, different discriminator.
	item, err = fc.GetFeeItem(dec("12"), domain.ProposalTypeRenewal, date(2025, time.May, 1), false)
	if err != nil {
		t.Fatalf("GetFeeItem error = %v", err)
	}
	if item == nil || item.ID != 101 {
		t.Fatalf("GetFeeItem renewal = %v, want item 101", item)
	}

	// A period with no configured row is an expected state, not an error.
	item, err = fc.GetFeeItem(dec("12"), domain.ProposalTypeNew, date(2025, time.November, 1), false)
	if err != nil {
		t.Fatalf("GetFeeItem error = %v", err)
	}
	if item != nil {
		t.Errorf("GetFeeItem for unpriced period = item %d, want nil", item.ID)
	}

	// Null-vessel lookup routes through the sentinel category.
	item, err = fc.GetFeeItem(decimal.Zero, domain.ProposalTypeRenewal, date(2025, time.May, 1), true)
	if err != nil {
		t.Fatalf("GetFeeItem null vessel error = %v", err)
	}
	if item == nil || item.ID != 102 {
		t.Fatalf("GetFeeItem null vessel = %v, want item 102", item)
	}
}

func TestFeeConstructor_GetFeeItem_Unconfigured(t *testing.T) {
	fc := &FeeConstructor{Group: testSizeGroup()}
	if _, err := fc.GetFeeItem(dec("12"), domain.ProposalTypeNew, date(2025, time.May, 1), false); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("GetFeeItem without season: error = %v, want ErrNotConfigured", err)
	}

	fc = testConstructor()
	if _, err := fc.GetFeeItem(dec("12"), domain.ProposalTypeNew, date(2025, time.March, 1), false); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("GetFeeItem before season: error = %v, want ErrNotConfigured", err)
	}
}
