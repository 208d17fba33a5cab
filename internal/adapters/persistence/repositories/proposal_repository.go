package repositories

import (
	"context"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/core/domain"

	"gorm.io/gorm"
)

// proposalRepository implements ProposalRepository
type proposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

// Create creates a new proposal
func (r *proposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(proposal).Error
}

// GetByID gets a proposal by ID with relations
func (r *proposalRepository) GetByID(ctx context.Context, id uint) (*models.Proposal, error) {
	var proposal models.Proposal
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Submitter").
		Preload("PreviousApplication").
		Preload("Approval").
		Preload("VesselDetails.Vessel").
		Preload("VesselOwnership").
		Preload("Mooring").
		Preload("Requirements").
		Preload("ListedVessels").
		First(&proposal, id).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// Update updates a proposal
func (r *proposalRepository) Update(ctx context.Context, proposal *models.Proposal) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(proposal).Error
}

// List lists proposals with pagination
func (r *proposalRepository) List(ctx context.Context, offset, limit int) ([]*models.Proposal, int64, error) {
	var proposals []*models.Proposal
	var total int64

	dbFrom(ctx, r.db).WithContext(ctx).Model(&models.Proposal{}).Count(&total)

	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("VesselDetails.Vessel").
		Preload("Approval").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&proposals).Error

	return proposals, total, err
}

// ListBySubmitter lists proposals lodged by one user
func (r *proposalRepository) ListBySubmitter(ctx context.Context, submitterID uint, offset, limit int) ([]*models.Proposal, int64, error) {
	var proposals []*models.Proposal
	var total int64

	dbFrom(ctx, r.db).WithContext(ctx).Model(&models.Proposal{}).Where("submitter_id = ?", submitterID).Count(&total)

	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("VesselDetails.Vessel").
		Preload("Approval").
		Where("submitter_id = ?", submitterID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&proposals).Error

	return proposals, total, err
}

// ListByStatus lists proposals in a processing status
func (r *proposalRepository) ListByStatus(ctx context.Context, status domain.ProcessingStatus, offset, limit int) ([]*models.Proposal, int64, error) {
	var proposals []*models.Proposal
	var total int64

	dbFrom(ctx, r.db).WithContext(ctx).Model(&models.Proposal{}).Where("processing_status = ?", status).Count(&total)

	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("VesselDetails.Vessel").
		Preload("Approval").
		Where("processing_status = ?", status).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&proposals).Error

	return proposals, total, err
}

// ListActiveByVessel lists non-terminal proposals of a kind that reference
// the vessel, excluding one proposal id. Used to detect blocking applications.
func (r *proposalRepository) ListActiveByVessel(ctx context.Context, kind domain.ApplicationType, vesselID uint, excludeProposalID uint) ([]*models.Proposal, error) {
	terminal := []domain.ProcessingStatus{
		domain.StatusApproved, domain.StatusDeclined, domain.StatusDiscarded, domain.StatusExpired,
	}
	var proposals []*models.Proposal
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Joins("JOIN vessel_details ON vessel_details.id = proposals.vessel_details_id").
		Where("proposals.kind = ?", kind).
		Where("vessel_details.vessel_id = ?", vesselID).
		Where("proposals.processing_status NOT IN ?", terminal).
		Where("proposals.id != ?", excludeProposalID).
		Find(&proposals).Error
	return proposals, err
}

// CreateRequirement creates a proposal requirement
func (r *proposalRepository) CreateRequirement(ctx context.Context, req *models.ProposalRequirement) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(req).Error
}

// ListRequirements lists non-deleted requirements for a proposal
func (r *proposalRepository) ListRequirements(ctx context.Context, proposalID uint) ([]*models.ProposalRequirement, error) {
	var reqs []*models.ProposalRequirement
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Where("proposal_id = ? AND is_deleted = ?", proposalID, false).
		Find(&reqs).Error
	return reqs, err
}

// GetVesselDetails gets a vessel details snapshot
func (r *proposalRepository) GetVesselDetails(ctx context.Context, id uint) (*models.VesselDetails, error) {
	var vd models.VesselDetails
	err := dbFrom(ctx, r.db).WithContext(ctx).Preload("Vessel").First(&vd, id).Error
	if err != nil {
		return nil, err
	}
	return &vd, nil
}
