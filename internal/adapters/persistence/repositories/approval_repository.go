package repositories

import (
	"context"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/core/domain"

	"gorm.io/gorm"
)

// approvalRepository implements ApprovalRepository
type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

// Create creates a new approval
func (r *approvalRepository) Create(ctx context.Context, approval *models.Approval) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(approval).Error
}

// GetByID gets an approval by ID with relations
func (r *approvalRepository) GetByID(ctx context.Context, id uint) (*models.Approval, error) {
	var approval models.Approval
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Submitter").
		Preload("CurrentProposal.VesselDetails.Vessel").
		Preload("Moorings.Mooring").
		Preload("VesselOwnerships.VesselOwnership").
		Preload("Stickers").
		First(&approval, id).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

// Update updates an approval
func (r *approvalRepository) Update(ctx context.Context, approval *models.Approval) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(approval).Error
}

// ListCurrentByVessel lists approvals in force on the given date whose
// current proposal references the vessel.
func (r *approvalRepository) ListCurrentByVessel(ctx context.Context, vesselID uint, on time.Time) ([]*models.Approval, error) {
	var approvals []*models.Approval
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("CurrentProposal.VesselDetails").
		Joins("JOIN proposals ON proposals.id = approvals.current_proposal_id").
		Joins("JOIN vessel_details ON vessel_details.id = proposals.vessel_details_id").
		Where("vessel_details.vessel_id = ?", vesselID).
		Where("approvals.status IN ?", []domain.ApprovalStatus{domain.ApprovalCurrent, domain.ApprovalSuspended}).
		Where("approvals.start_date IS NULL OR approvals.start_date <= ?", on).
		Where("approvals.expiry_date IS NULL OR approvals.expiry_date >= ?", on).
		Find(&approvals).Error
	return approvals, err
}

// ListWaitingListAllocations lists current waiting-list allocations ordered
// by queue position.
func (r *approvalRepository) ListWaitingListAllocations(ctx context.Context) ([]*models.Approval, error) {
	var approvals []*models.Approval
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Where("kind = ? AND status = ?", domain.ApplicationTypeWaitingList, domain.ApprovalCurrent).
		Where("internal_status = ?", "waiting").
		Order("wla_order ASC, wla_queue_date ASC").
		Find(&approvals).Error
	return approvals, err
}

// ListExpiringSoon lists current approvals expiring before the given date
// that have not yet been sent a renewal notice.
func (r *approvalRepository) ListExpiringSoon(ctx context.Context, before time.Time) ([]*models.Approval, error) {
	var approvals []*models.Approval
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Submitter").
		Where("status = ?", domain.ApprovalCurrent).
		Where("renewal_sent = ?", false).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", before).
		Find(&approvals).Error
	return approvals, err
}

// ListForVesselNominationCheck lists current waiting-list allocations and
// mooring licences whose vessel nomination grace period may have lapsed.
func (r *approvalRepository) ListForVesselNominationCheck(ctx context.Context) ([]*models.Approval, error) {
	var approvals []*models.Approval
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Submitter").
		Preload("CurrentProposal.VesselOwnership").
		Where("kind IN ?", []domain.ApplicationType{domain.ApplicationTypeWaitingList, domain.ApplicationTypeMooringLicence}).
		Where("status = ?", domain.ApprovalCurrent).
		Find(&approvals).Error
	return approvals, err
}

// CreateHistory appends an approval history entry
func (r *approvalRepository) CreateHistory(ctx context.Context, history *models.ApprovalHistory) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(history).Error
}

// CreateMooringLink links a mooring to an approval
func (r *approvalRepository) CreateMooringLink(ctx context.Context, link *models.MooringOnApproval) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(link).Error
}

// UpdateMooringLink updates a mooring link
func (r *approvalRepository) UpdateMooringLink(ctx context.Context, link *models.MooringOnApproval) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(link).Error
}

// CreateVesselOwnershipLink links a vessel ownership to an approval
func (r *approvalRepository) CreateVesselOwnershipLink(ctx context.Context, link *models.VesselOwnershipOnApproval) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(link).Error
}

// UpdateVesselOwnershipLink updates a vessel ownership link
func (r *approvalRepository) UpdateVesselOwnershipLink(ctx context.Context, link *models.VesselOwnershipOnApproval) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(link).Error
}

// GetMooring gets a mooring by ID
func (r *approvalRepository) GetMooring(ctx context.Context, id uint) (*models.Mooring, error) {
	var mooring models.Mooring
	err := dbFrom(ctx, r.db).WithContext(ctx).First(&mooring, id).Error
	if err != nil {
		return nil, err
	}
	return &mooring, nil
}

// stickerRepository implements StickerRepository
type stickerRepository struct {
	db *gorm.DB
}

// NewStickerRepository creates a new sticker repository
func NewStickerRepository(db *gorm.DB) StickerRepository {
	return &stickerRepository{db: db}
}

// Create creates a new sticker
func (r *stickerRepository) Create(ctx context.Context, sticker *models.Sticker) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(sticker).Error
}

// GetByID gets a sticker by ID
func (r *stickerRepository) GetByID(ctx context.Context, id uint) (*models.Sticker, error) {
	var sticker models.Sticker
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("VesselOwnership").
		First(&sticker, id).Error
	if err != nil {
		return nil, err
	}
	return &sticker, nil
}

// Update updates a sticker
func (r *stickerRepository) Update(ctx context.Context, sticker *models.Sticker) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(sticker).Error
}

// ListByApproval lists stickers on an approval
func (r *stickerRepository) ListByApproval(ctx context.Context, approvalID uint) ([]*models.Sticker, error) {
	var stickers []*models.Sticker
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("VesselOwnership").
		Where("approval_id = ?", approvalID).
		Order("created_at ASC").
		Find(&stickers).Error
	return stickers, err
}
