package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/adapters/persistence/repositories"
	"mooringhub/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Fee service errors
var (
	ErrConstructorNotFound = errors.New("fee constructor not found")
	ErrDuplicateEnabled    = errors.New("an enabled fee constructor already exists for this application type and season")
)

// FeeService resolves fee schedules and maintains their priced rows.
type FeeService struct {
	feeRepo repositories.FeeRepository
}

// NewFeeService creates a new fee service
func NewFeeService(feeRepo repositories.FeeRepository) *FeeService {
	return &FeeService{feeRepo: feeRepo}
}

// ResolveConstructor finds the enabled fee constructor for the application
// type whose season covers targetDate: the one with the latest season start
// on or before the date, provided the season has not already ended.
func (s *FeeService) ResolveConstructor(ctx context.Context, appType domain.ApplicationType, targetDate time.Time) (*models.FeeConstructor, error) {
	constructors, err := s.feeRepo.ListEnabledConstructors(ctx, appType)
	if err != nil {
		return nil, err
	}

	current := pickCurrentConstructor(constructors, targetDate)
	if current == nil {
		log.Printf("no fee constructor configured for application type %s on %s", appType, targetDate.Format("2006-01-02"))
		return nil, domain.ErrNotConfigured
	}
	return current, nil
}

// ResolveCurrentAndFuture returns the current constructor (when one is still
// valid) followed by every constructor whose season starts strictly after
// targetDate, ordered by season start date.
func (s *FeeService) ResolveCurrentAndFuture(ctx context.Context, appType domain.ApplicationType, targetDate time.Time) ([]*models.FeeConstructor, error) {
	constructors, err := s.feeRepo.ListEnabledConstructors(ctx, appType)
	if err != nil {
		return nil, err
	}

	var result []*models.FeeConstructor
	if current := pickCurrentConstructor(constructors, targetDate); current != nil {
		result = append(result, current)
	}

	var future []*models.FeeConstructor
	for _, fc := range constructors {
		if fc.FeeSeason == nil {
			continue
		}
		start := fc.FeeSeason.StartDate()
		if start != nil && start.After(targetDate) {
			future = append(future, fc)
		}
	}
	sort.Slice(future, func(i, j int) bool {
		return future[i].FeeSeason.StartDate().Before(*future[j].FeeSeason.StartDate())
	})
	result = append(result, future...)

	if len(result) == 0 {
		return nil, domain.ErrNotConfigured
	}
	return result, nil
}

func pickCurrentConstructor(constructors []*models.FeeConstructor, targetDate time.Time) *models.FeeConstructor {
	var best *models.FeeConstructor
	var bestStart time.Time
	for _, fc := range constructors {
		if fc.FeeSeason == nil {
			continue
		}
		start := fc.FeeSeason.StartDate()
		if start == nil || start.After(targetDate) {
			continue
		}
		if best == nil || start.After(bestStart) {
			best = fc
			bestStart = *start
		}
	}
	if best == nil {
		return nil
	}
	// A resolved schedule whose season already ended is no longer current.
	if end := best.FeeSeason.EndDate(); end != nil && end.Before(targetDate) {
		return nil
	}
	return best
}

// GetConstructor gets a fee constructor by ID
func (s *FeeService) GetConstructor(ctx context.Context, id uint) (*models.FeeConstructor, error) {
	fc, err := s.feeRepo.GetConstructorByID(ctx, id)
	if err != nil {
		return nil, ErrConstructorNotFound
	}
	return fc, nil
}

// EnableConstructor enables a constructor after checking the
// at-most-one-enabled-per-season invariant, then regenerates its fee items.
func (s *FeeService) EnableConstructor(ctx context.Context, id uint) (*models.FeeConstructor, error) {
	fc, err := s.feeRepo.GetConstructorByID(ctx, id)
	if err != nil {
		return nil, ErrConstructorNotFound
	}

	count, err := s.feeRepo.CountEnabledForSeason(ctx, fc.ApplicationTypeCode, fc.FeeSeasonID, fc.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateEnabled
	}

	fc.Enabled = true
	if err := s.feeRepo.SaveConstructor(ctx, fc); err != nil {
		return nil, err
	}
	if err := s.ReconstructFeeItems(ctx, fc.ID); err != nil {
		return nil, err
	}
	return fc, nil
}

// CreateConstructorInput carries the fields needed to set up a fee schedule.
type CreateConstructorInput struct {
	ApplicationTypeCode       domain.ApplicationType `json:"application_type_code"`
	FeeSeasonID               uint                   `json:"fee_season_id"`
	VesselSizeCategoryGroupID uint                   `json:"vessel_size_category_group_id"`
	Enabled                   bool                   `json:"enabled"`
	IncurGST                  bool                   `json:"incur_gst"`
	AccountingCode            string                 `json:"accounting_code"`
}

// CreateConstructor sets up a fee schedule and generates its priced rows.
// At most one enabled constructor may exist per application type and season.
func (s *FeeService) CreateConstructor(ctx context.Context, input *CreateConstructorInput) (*models.FeeConstructor, error) {
	if input.FeeSeasonID == 0 || input.VesselSizeCategoryGroupID == 0 {
		return nil, domain.ErrInvalidInput
	}

	if input.Enabled {
		count, err := s.feeRepo.CountEnabledForSeason(ctx, input.ApplicationTypeCode, input.FeeSeasonID, 0)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrDuplicateEnabled
		}
	}

	fc := &models.FeeConstructor{
		ApplicationTypeCode:       input.ApplicationTypeCode,
		FeeSeasonID:               input.FeeSeasonID,
		VesselSizeCategoryGroupID: input.VesselSizeCategoryGroupID,
		Enabled:                   input.Enabled,
		IncurGST:                  input.IncurGST,
		AccountingCode:            input.AccountingCode,
	}
	if err := s.feeRepo.SaveConstructor(ctx, fc); err != nil {
		return nil, err
	}
	if err := s.ReconstructFeeItems(ctx, fc.ID); err != nil {
		return nil, err
	}

	log.Printf("fee constructor %d created for %s season %d", fc.ID, fc.ApplicationTypeCode, fc.FeeSeasonID)
	return s.feeRepo.GetConstructorByID(ctx, fc.ID)
}

// UpdateFeeItemAmount sets the amount of one priced row. A schedule with
// funded payments can no longer be edited.
func (s *FeeService) UpdateFeeItemAmount(ctx context.Context, feeItemID uint, amount decimal.Decimal, incremental bool) (*models.FeeItem, error) {
	item, err := s.feeRepo.GetFeeItemByID(ctx, feeItemID)
	if err != nil {
		return nil, domain.ErrMissingFeeItem
	}

	funded, err := s.feeRepo.HasFundedPayments(ctx, item.FeeConstructorID)
	if err != nil {
		return nil, err
	}
	if funded {
		return nil, domain.ErrScheduleFrozen
	}

	item.Amount = amount
	item.Incremental = incremental
	if err := s.feeRepo.UpdateFeeItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ReconstructFeeItems regenerates the full cross-product of fee items for a
// constructor: (period x size category x discriminator). Existing rows keep
// their amounts; rows no longer in the product are deleted unless a payment
// references them; a funded constructor is left untouched.
func (s *FeeService) ReconstructFeeItems(ctx context.Context, constructorID uint) error {
	fc, err := s.feeRepo.GetConstructorByID(ctx, constructorID)
	if err != nil {
		return ErrConstructorNotFound
	}
	if fc.FeeSeason == nil || fc.Group == nil {
		return domain.ErrNotConfigured
	}

	funded, err := s.feeRepo.HasFundedPayments(ctx, fc.ID)
	if err != nil {
		return err
	}
	if funded {
		log.Printf("fee constructor %d has funded payments, skipping fee item regeneration", fc.ID)
		return nil
	}

	keep := make([]uint, 0)
	for _, key := range s.feeItemKeys(fc) {
		item := &models.FeeItem{
			FeeConstructorID:     fc.ID,
			FeePeriodID:          key.FeePeriodID,
			VesselSizeCategoryID: key.VesselSizeCategoryID,
		}
		if key.ProposalTypeCode != "" {
			code := key.ProposalTypeCode
			item.ProposalTypeCode = &code
		}
		if key.AgeGroupID != 0 {
			ageGroupID := key.AgeGroupID
			item.AgeGroupID = &ageGroupID
		}
		if key.AdmissionTypeID != 0 {
			admissionTypeID := key.AdmissionTypeID
			item.AdmissionTypeID = &admissionTypeID
		}
		existing, created, err := s.feeRepo.GetOrCreateFeeItem(ctx, item)
		if err != nil {
			return err
		}
		if created {
			log.Printf("created fee item for constructor %d, period %d, category %d", fc.ID, key.FeePeriodID, key.VesselSizeCategoryID)
		}
		keep = append(keep, existing.ID)
	}

	return s.feeRepo.DeleteFeeItemsExcept(ctx, fc.ID, keep)
}

// feeItemKeys builds the discriminator cross-product for one constructor.
// DCV admission schedules discriminate by age group and admission type;
// everything else by proposal type.
func (s *FeeService) feeItemKeys(fc *models.FeeConstructor) []models.FeeItemKey {
	proposalTypes := []domain.ProposalType{
		domain.ProposalTypeNew,
		domain.ProposalTypeAmendment,
		domain.ProposalTypeRenewal,
		domain.ProposalTypeSwap,
	}

	var keys []models.FeeItemKey
	for pi := range fc.FeeSeason.Periods {
		period := &fc.FeeSeason.Periods[pi]
		for ci := range fc.Group.Categories {
			category := &fc.Group.Categories[ci]
			switch fc.ApplicationTypeCode {
			case domain.ApplicationTypeDCVAdmission:
				// Discriminators come from existing items; regeneration keeps
				// the (age group, admission type) pairs already configured.
				for i := range fc.FeeItems {
					item := &fc.FeeItems[i]
					if item.AgeGroupID == nil || item.AdmissionTypeID == nil {
						continue
					}
					keys = append(keys, models.FeeItemKey{
						FeePeriodID:          period.ID,
						VesselSizeCategoryID: category.ID,
						AgeGroupID:           *item.AgeGroupID,
						AdmissionTypeID:      *item.AdmissionTypeID,
					})
				}
			case domain.ApplicationTypeDCVPermit:
				keys = append(keys, models.FeeItemKey{
					FeePeriodID:          period.ID,
					VesselSizeCategoryID: category.ID,
				})
			default:
				for _, pt := range proposalTypes {
					keys = append(keys, models.FeeItemKey{
						FeePeriodID:          period.ID,
						VesselSizeCategoryID: category.ID,
						ProposalTypeCode:     pt,
					})
				}
			}
		}
	}
	return dedupeKeys(keys)
}

func dedupeKeys(keys []models.FeeItemKey) []models.FeeItemKey {
	seen := make(map[models.FeeItemKey]struct{}, len(keys))
	out := keys[:0]
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
