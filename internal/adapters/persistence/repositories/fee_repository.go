package repositories

import (
	"context"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/core/domain"

	"gorm.io/gorm"
)

// feeRepository implements FeeRepository
type feeRepository struct {
	db *gorm.DB
}

// NewFeeRepository creates a new fee repository
func NewFeeRepository(db *gorm.DB) FeeRepository {
	return &feeRepository{db: db}
}

// ListEnabledConstructors lists enabled fee constructors for an application
// type with their season, periods, categories and items preloaded.
func (r *feeRepository) ListEnabledConstructors(ctx context.Context, appType domain.ApplicationType) ([]*models.FeeConstructor, error) {
	var constructors []*models.FeeConstructor
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("FeeSeason.Periods").
		Preload("Group.Categories").
		Preload("FeeItems").
		Where("application_type_code = ? AND enabled = ?", appType, true).
		Find(&constructors).Error
	return constructors, err
}

// GetConstructorByID gets a fee constructor with relations
func (r *feeRepository) GetConstructorByID(ctx context.Context, id uint) (*models.FeeConstructor, error) {
	var fc models.FeeConstructor
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("FeeSeason.Periods").
		Preload("Group.Categories").
		Preload("FeeItems").
		First(&fc, id).Error
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

// GetConstructorBySeason gets the enabled constructor for a specific season
func (r *feeRepository) GetConstructorBySeason(ctx context.Context, appType domain.ApplicationType, seasonID uint) (*models.FeeConstructor, error) {
	var fc models.FeeConstructor
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("FeeSeason.Periods").
		Preload("Group.Categories").
		Preload("FeeItems").
		Where("application_type_code = ? AND fee_season_id = ? AND enabled = ?", appType, seasonID, true).
		First(&fc).Error
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

// CountEnabledForSeason counts enabled constructors for (type, season),
// excluding one constructor id. Used to enforce the at-most-one invariant.
func (r *feeRepository) CountEnabledForSeason(ctx context.Context, appType domain.ApplicationType, seasonID uint, excludeID uint) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Model(&models.FeeConstructor{}).
		Where("application_type_code = ? AND fee_season_id = ? AND enabled = ? AND id != ?", appType, seasonID, true, excludeID).
		Count(&count).Error
	return count, err
}

// SaveConstructor persists a fee constructor
func (r *feeRepository) SaveConstructor(ctx context.Context, fc *models.FeeConstructor) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(fc).Error
}

// GetOrCreateFeeItem finds the fee item matching the row's keys or creates it.
// The bool result reports whether a new row was created.
func (r *feeRepository) GetOrCreateFeeItem(ctx context.Context, item *models.FeeItem) (*models.FeeItem, bool, error) {
	var existing models.FeeItem
	query := dbFrom(ctx, r.db).WithContext(ctx).
		Where("fee_constructor_id = ? AND fee_period_id = ? AND vessel_size_category_id = ?",
			item.FeeConstructorID, item.FeePeriodID, item.VesselSizeCategoryID)
	if item.ProposalTypeCode != nil {
		query = query.Where("proposal_type_code = ?", *item.ProposalTypeCode)
	} else {
		query = query.Where("proposal_type_code IS NULL")
	}
	if item.AgeGroupID != nil {
		query = query.Where("age_group_id = ?", *item.AgeGroupID)
	} else {
		query = query.Where("age_group_id IS NULL")
	}
	if item.AdmissionTypeID != nil {
		query = query.Where("admission_type_id = ?", *item.AdmissionTypeID)
	} else {
		query = query.Where("admission_type_id IS NULL")
	}

	err := query.First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}
	if err := dbFrom(ctx, r.db).WithContext(ctx).Create(item).Error; err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func (r *feeRepository) GetFeeItemByID(ctx context.Context, id uint) (*models.FeeItem, error) {
	var item models.FeeItem
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("FeeConstructor").
		First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *feeRepository) UpdateFeeItem(ctx context.Context, item *models.FeeItem) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(item).Error
}

// DeleteFeeItemsExcept deletes fee items of a constructor not in keepIDs,
// skipping any item already referenced by a payment.
func (r *feeRepository) DeleteFeeItemsExcept(ctx context.Context, constructorID uint, keepIDs []uint) error {
	sub := r.db.Model(&models.FeeItemApplicationFee{}).Select("fee_item_id")
	query := dbFrom(ctx, r.db).WithContext(ctx).
		Where("fee_constructor_id = ?", constructorID).
		Where("id NOT IN (?)", sub)
	if len(keepIDs) > 0 {
		query = query.Where("id NOT IN ?", keepIDs)
	}
	return query.Delete(&models.FeeItem{}).Error
}

// HasFundedPayments reports whether any fee item of the constructor has
// received money. A funded constructor is frozen.
func (r *feeRepository) HasFundedPayments(ctx context.Context, constructorID uint) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Model(&models.FeeItemApplicationFee{}).
		Joins("JOIN fee_items ON fee_items.id = fee_item_application_fees.fee_item_id").
		Where("fee_items.fee_constructor_id = ?", constructorID).
		Count(&count).Error
	return count > 0, err
}

// CreateApplicationFee creates a payment attempt
func (r *feeRepository) CreateApplicationFee(ctx context.Context, fee *models.ApplicationFee) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(fee).Error
}

// UpdateApplicationFee updates a payment attempt
func (r *feeRepository) UpdateApplicationFee(ctx context.Context, fee *models.ApplicationFee) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(fee).Error
}

// GetApplicationFeeByInvoice gets a payment attempt by invoice reference
func (r *feeRepository) GetApplicationFeeByInvoice(ctx context.Context, invoiceReference string) (*models.ApplicationFee, error) {
	var fee models.ApplicationFee
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("FeeItems").
		Where("invoice_reference = ?", invoiceReference).
		First(&fee).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

// GetActiveApplicationFee gets the single non-cancelled payment attempt for a
// proposal, or gorm.ErrRecordNotFound.
func (r *feeRepository) GetActiveApplicationFee(ctx context.Context, proposalID uint) (*models.ApplicationFee, error) {
	var fee models.ApplicationFee
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("FeeItems").
		Where("proposal_id = ? AND payment_status != ?", proposalID, domain.PaymentCancelled).
		First(&fee).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

// ListApplicationFees lists all payment attempts for a proposal
func (r *feeRepository) ListApplicationFees(ctx context.Context, proposalID uint) ([]*models.ApplicationFee, error) {
	var fees []*models.ApplicationFee
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("FeeItems").
		Where("proposal_id = ?", proposalID).
		Order("created_at DESC").
		Find(&fees).Error
	return fees, err
}

// CreateFeeItemApplicationFee links a payment to a fee item
func (r *feeRepository) CreateFeeItemApplicationFee(ctx context.Context, link *models.FeeItemApplicationFee) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(link).Error
}

// UpdateFeeItemApplicationFee updates a payment link
func (r *feeRepository) UpdateFeeItemApplicationFee(ctx context.Context, link *models.FeeItemApplicationFee) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(link).Error
}

// ListPaidFeeItemLinks lists funded fee item links for a proposal's paid fees
func (r *feeRepository) ListPaidFeeItemLinks(ctx context.Context, proposalID uint) ([]*models.FeeItemApplicationFee, error) {
	var links []*models.FeeItemApplicationFee
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("FeeItem.FeePeriod.FeeSeason").
		Preload("VesselDetails").
		Joins("JOIN application_fees ON application_fees.id = fee_item_application_fees.application_fee_id").
		Where("application_fees.proposal_id = ?", proposalID).
		Where("application_fees.payment_status IN ?", []domain.PaymentStatus{domain.PaymentPaid, domain.PaymentOverPaid}).
		Find(&links).Error
	return links, err
}

// CreateFeeCalculation stores a fee calculation audit snapshot
func (r *feeRepository) CreateFeeCalculation(ctx context.Context, calc *models.FeeCalculation) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(calc).Error
}

// ListExpiredUnpaidFees lists unpaid fees created before the deadline
func (r *feeRepository) ListExpiredUnpaidFees(ctx context.Context, olderThan time.Time) ([]*models.ApplicationFee, error) {
	var fees []*models.ApplicationFee
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Proposal").
		Where("payment_status = ? AND created_at < ?", domain.PaymentUnpaid, olderThan).
		Find(&fees).Error
	return fees, err
}
