package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/core/domain"
)

func seasonStarting(id uint, start time.Time) *models.FeeSeason {
	return &models.FeeSeason{
		ID:      id,
		Periods: []models.FeePeriod{{ID: id * 10, FeeSeasonID: id, StartDate: start}},
	}
}

func twoBandGroup(id uint) *models.VesselSizeCategoryGroup {
	return &models.VesselSizeCategoryGroup{
		ID: id,
		Categories: []models.VesselSizeCategory{
			{ID: id*10 + 1, GroupID: id, Name: "Small", StartSize: dec("0"), IncludeStartSize: true},
			{ID: id*10 + 2, GroupID: id, Name: "Large", StartSize: dec("12"), IncludeStartSize: true},
		},
	}
}

func TestFeeService_ResolveConstructor(t *testing.T) {
	repo := newFakeFeeRepo()
	fc2024 := &models.FeeConstructor{
		ID: 1, ApplicationTypeCode: domain.ApplicationTypeWaitingList, FeeSeasonID: 1, Enabled: true,
		FeeSeason: seasonStarting(1, date(2024, time.April, 1)),
	}
	fc2025 := &models.FeeConstructor{
		ID: 2, ApplicationTypeCode: domain.ApplicationTypeWaitingList, FeeSeasonID: 2, Enabled: true,
		FeeSeason: seasonStarting(2, date(2025, time.April, 1)),
	}
	repo.constructors = []*models.FeeConstructor{fc2024, fc2025}
	svc := NewFeeService(repo)

	fc, err := svc.ResolveConstructor(context.Background(), domain.ApplicationTypeWaitingList, date(2025, time.June, 1))
	if err != nil {
		t.Fatalf("ResolveConstructor error = %v", err)
	}
	if fc.ID != 2 {
		t.Errorf("ResolveConstructor mid 2025 season = constructor %d, want 2", fc.ID)
	}

	fc, err = svc.ResolveConstructor(context.Background(), domain.ApplicationTypeWaitingList, date(2024, time.June, 1))
	if err != nil {
		t.Fatalf("ResolveConstructor error = %v", err)
	}
	if fc.ID != 1 {
		t.Errorf("ResolveConstructor mid 2024 season = constructor %d, want 1", fc.ID)
	}

	// The latest season ends 2026-03-31; after that nothing is current.
	if _, err := svc.ResolveConstructor(context.Background(), domain.ApplicationTypeWaitingList, date(2026, time.June, 1)); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("ResolveConstructor past every season: error = %v, want ErrNotConfigured", err)
	}

	// No schedule exists for this type at all.
	if _, err := svc.ResolveConstructor(context.Background(), domain.ApplicationTypeMooringLicence, date(2025, time.June, 1)); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("ResolveConstructor for unconfigured type: error = %v, want ErrNotConfigured", err)
	}
}

func TestFeeService_ResolveCurrentAndFuture(t *testing.T) {
	repo := newFakeFeeRepo()
	repo.constructors = []*models.FeeConstructor{
		{ID: 3, ApplicationTypeCode: domain.ApplicationTypeAnnualAdmission, Enabled: true,
			FeeSeason: seasonStarting(3, date(2026, time.April, 1))},
		{ID: 1, ApplicationTypeCode: domain.ApplicationTypeAnnualAdmission, Enabled: true,
			FeeSeason: seasonStarting(1, date(2024, time.April, 1))},
		{ID: 2, ApplicationTypeCode: domain.ApplicationTypeAnnualAdmission, Enabled: true,
			FeeSeason: seasonStarting(2, date(2025, time.April, 1))},
	}
	svc := NewFeeService(repo)

	result, err := svc.ResolveCurrentAndFuture(context.Background(), domain.ApplicationTypeAnnualAdmission, date(2024, time.June, 1))
	if err != nil {
		t.Fatalf("ResolveCurrentAndFuture error = %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("ResolveCurrentAndFuture returned %d constructors, want 3", len(result))
	}
	// Current first, then future schedules in season order.
	for i, wantID := range []uint{1, 2, 3} {
		if result[i].ID != wantID {
			t.Errorf("result[%d] = constructor %d, want %d", i, result[i].ID, wantID)
		}
	}
}

func TestFeeService_EnableConstructor_DuplicateEnabled(t *testing.T) {
	repo := newFakeFeeRepo()
	repo.seasons[1] = seasonStarting(1, date(2025, time.April, 1))
	repo.groups[1] = twoBandGroup(1)
	repo.constructors = []*models.FeeConstructor{
		{ID: 1, ApplicationTypeCode: domain.ApplicationTypeWaitingList, FeeSeasonID: 1, VesselSizeCategoryGroupID: 1, Enabled: true},
		{ID: 2, ApplicationTypeCode: domain.ApplicationTypeWaitingList, FeeSeasonID: 1, VesselSizeCategoryGroupID: 1, Enabled: false},
	}
	repo.nextID = 2
	svc := NewFeeService(repo)

	if _, err := svc.EnableConstructor(context.Background(), 2); !errors.Is(err, ErrDuplicateEnabled) {
		t.Errorf("EnableConstructor with enabled sibling: error = %v, want ErrDuplicateEnabled", err)
	}

	// Disable the sibling and enabling succeeds.
	repo.constructors[0].Enabled = false
	fc, err := svc.EnableConstructor(context.Background(), 2)
	if err != nil {
		t.Fatalf("EnableConstructor error = %v", err)
	}
	if !fc.Enabled {
		t.Error("constructor should be enabled")
	}
}

func TestFeeService_CreateConstructor(t *testing.T) {
	repo := newFakeFeeRepo()
	repo.seasons[1] = seasonStarting(1, date(2025, time.April, 1))
	repo.groups[1] = twoBandGroup(1)
	svc := NewFeeService(repo)

	if _, err := svc.CreateConstructor(context.Background(), &CreateConstructorInput{
		ApplicationTypeCode: domain.ApplicationTypeWaitingList,
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("CreateConstructor without season/group: error = %v, want ErrInvalidInput", err)
	}

	fc, err := svc.CreateConstructor(context.Background(), &CreateConstructorInput{
		ApplicationTypeCode:       domain.ApplicationTypeWaitingList,
		FeeSeasonID:               1,
		VesselSizeCategoryGroupID: 1,
		Enabled:                   true,
		IncurGST:                  true,
		AccountingCode:            "WL-01",
	})
	if err != nil {
		t.Fatalf("CreateConstructor error = %v", err)
	}
	if fc.ID == 0 {
		t.Error("constructor should be persisted with an id")
	}

	// One period x two categories x four proposal types.
	if len(repo.items) != 8 {
		t.Errorf("created %d fee items, want 8", len(repo.items))
	}

	// A second enabled constructor for the same type and season is rejected.
	if _, err := svc.CreateConstructor(context.Background(), &CreateConstructorInput{
		ApplicationTypeCode:       domain.ApplicationTypeWaitingList,
		FeeSeasonID:               1,
		VesselSizeCategoryGroupID: 1,
		Enabled:                   true,
	}); !errors.Is(err, ErrDuplicateEnabled) {
		t.Errorf("CreateConstructor duplicate enabled: error = %v, want ErrDuplicateEnabled", err)
	}
}

func TestFeeService_ReconstructFeeItems_KeepsAmounts(t *testing.T) {
	repo := newFakeFeeRepo()
	repo.seasons[1] = seasonStarting(1, date(2025, time.April, 1))
	repo.groups[1] = twoBandGroup(1)
	fc := &models.FeeConstructor{
		ID: 1, ApplicationTypeCode: domain.ApplicationTypeWaitingList,
		FeeSeasonID: 1, VesselSizeCategoryGroupID: 1, Enabled: true,
	}
	repo.constructors = []*models.FeeConstructor{fc}
	repo.nextID = 1
	svc := NewFeeService(repo)

	if err := svc.ReconstructFeeItems(context.Background(), 1); err != nil {
		t.Fatalf("ReconstructFeeItems error = %v", err)
	}
	if len(repo.items) != 8 {
		t.Fatalf("created %d fee items, want 8", len(repo.items))
	}

	// Price one row, then regenerate: the priced row survives untouched and
	// no duplicates appear.
	priced := repo.items[0]
	priced.Amount = dec("250.00")
	if err := svc.ReconstructFeeItems(context.Background(), 1); err != nil {
		t.Fatalf("ReconstructFeeItems rerun error = %v", err)
	}
	if len(repo.items) != 8 {
		t.Errorf("after rerun %d fee items, want 8", len(repo.items))
	}
	kept, err := repo.GetFeeItemByID(context.Background(), priced.ID)
	if err != nil {
		t.Fatalf("priced row disappeared: %v", err)
	}
	if !kept.Amount.Equal(dec("250.00")) {
		t.Errorf("priced row amount = %s, want 250.00", kept.Amount)
	}
}

func TestFeeService_ReconstructFeeItems_FundedSkipped(t *testing.T) {
	repo := newFakeFeeRepo()
	repo.seasons[1] = seasonStarting(1, date(2025, time.April, 1))
	repo.groups[1] = twoBandGroup(1)
	repo.constructors = []*models.FeeConstructor{
		{ID: 1, ApplicationTypeCode: domain.ApplicationTypeWaitingList, FeeSeasonID: 1, VesselSizeCategoryGroupID: 1},
	}
	repo.funded = true
	svc := NewFeeService(repo)

	if err := svc.ReconstructFeeItems(context.Background(), 1); err != nil {
		t.Fatalf("ReconstructFeeItems error = %v", err)
	}
	if len(repo.items) != 0 {
		t.Errorf("funded constructor regenerated %d items, want 0", len(repo.items))
	}
}

func TestFeeService_UpdateFeeItemAmount(t *testing.T) {
	repo := newFakeFeeRepo()
	item := &models.FeeItem{ID: 5, FeeConstructorID: 1, Amount: dec("100.00")}
	repo.items = []*models.FeeItem{item}
	svc := NewFeeService(repo)

	updated, err := svc.UpdateFeeItemAmount(context.Background(), 5, dec("12.50"), true)
	if err != nil {
		t.Fatalf("UpdateFeeItemAmount error = %v", err)
	}
	if !updated.Amount.Equal(dec("12.50")) || !updated.Incremental {
		t.Errorf("item = %s incremental=%v, want 12.50 incremental", updated.Amount, updated.Incremental)
	}

	if _, err := svc.UpdateFeeItemAmount(context.Background(), 99, dec("1"), false); !errors.Is(err, domain.ErrMissingFeeItem) {
		t.Errorf("UpdateFeeItemAmount unknown item: error = %v, want ErrMissingFeeItem", err)
	}

	// A schedule with funded payments is frozen.
	repo.funded = true
	if _, err := svc.UpdateFeeItemAmount(context.Background(), 5, dec("1"), false); !errors.Is(err, domain.ErrScheduleFrozen) {
		t.Errorf("UpdateFeeItemAmount on funded schedule: error = %v, want ErrScheduleFrozen", err)
	}
}
