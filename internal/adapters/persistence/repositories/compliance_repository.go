package repositories

import (
	"context"

	"mooringhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// complianceRepository implements ComplianceRepository
type complianceRepository struct {
	db *gorm.DB
}

// NewComplianceRepository creates a new compliance repository
func NewComplianceRepository(db *gorm.DB) ComplianceRepository {
	return &complianceRepository{db: db}
}

// GetOrCreate finds the compliance for (requirement, due date) or creates it.
// The bool result reports whether a new row was created.
func (r *complianceRepository) GetOrCreate(ctx context.Context, compliance *models.Compliance) (*models.Compliance, bool, error) {
	var existing models.Compliance
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Where("requirement_id = ? AND due_date = ?", compliance.RequirementID, compliance.DueDate).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}
	if err := dbFrom(ctx, r.db).WithContext(ctx).Create(compliance).Error; err != nil {
		return nil, false, err
	}
	return compliance, true, nil
}

// GetByID gets a compliance by ID with its requirement and approval
func (r *complianceRepository) GetByID(ctx context.Context, id uint) (*models.Compliance, error) {
	var compliance models.Compliance
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Requirement").
		Preload("Approval").
		First(&compliance, id).Error
	if err != nil {
		return nil, err
	}
	return &compliance, nil
}

// Update updates a compliance
func (r *complianceRepository) Update(ctx context.Context, compliance *models.Compliance) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(compliance).Error
}

// ListByApproval lists compliances on an approval
func (r *complianceRepository) ListByApproval(ctx context.Context, approvalID uint) ([]*models.Compliance, error) {
	var compliances []*models.Compliance
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Requirement").
		Where("approval_id = ?", approvalID).
		Order("due_date ASC").
		Find(&compliances).Error
	return compliances, err
}

// ListFutureByApprovalAndProposal lists not-yet-due compliances generated
// from one proposal's requirements.
func (r *complianceRepository) ListFutureByApprovalAndProposal(ctx context.Context, approvalID, proposalID uint) ([]*models.Compliance, error) {
	var compliances []*models.Compliance
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Requirement").
		Where("approval_id = ? AND proposal_id = ? AND processing_status = ?",
			approvalID, proposalID, models.ComplianceStatusFuture).
		Find(&compliances).Error
	return compliances, err
}

// Delete hard deletes a compliance
func (r *complianceRepository) Delete(ctx context.Context, id uint) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Unscoped().Delete(&models.Compliance{}, id).Error
}

// ListDueForStatusUpdate lists future and due compliances for the daily
// status sweep.
func (r *complianceRepository) ListDueForStatusUpdate(ctx context.Context) ([]*models.Compliance, error) {
	var compliances []*models.Compliance
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Preload("Approval.Submitter").
		Where("processing_status IN ?", []string{models.ComplianceStatusFuture, models.ComplianceStatusDue}).
		Find(&compliances).Error
	return compliances, err
}

// List lists compliances, optionally filtered by status
func (r *complianceRepository) List(ctx context.Context, status string, offset, limit int) ([]*models.Compliance, int64, error) {
	var compliances []*models.Compliance
	var total int64

	query := dbFrom(ctx, r.db).WithContext(ctx).Model(&models.Compliance{})
	if status != "" {
		query = query.Where("processing_status = ?", status)
	}
	query.Count(&total)

	err := query.
		Preload("Requirement").
		Order("due_date ASC").
		Offset(offset).
		Limit(limit).
		Find(&compliances).Error

	return compliances, total, err
}
