package services

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DashboardService handles dashboard operations
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// ============================================================
// Admin Dashboard
// ============================================================

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	// User Statistics
	TotalUsers      int64 `json:"total_users"`
	TotalAdmins     int64 `json:"total_admins"`
	TotalOfficers   int64 `json:"total_officers"`
	TotalApplicants int64 `json:"total_applicants"`

	// Application Statistics
	TotalProposals    int64 `json:"total_proposals"`
	DraftProposals    int64 `json:"draft_proposals"`
	InAssessment      int64 `json:"in_assessment"`
	AwaitingPayment   int64 `json:"awaiting_payment"`
	ApprovedProposals int64 `json:"approved_proposals"`
	DeclinedProposals int64 `json:"declined_proposals"`

	// Entitlement Statistics
	CurrentApprovals  int64 `json:"current_approvals"`
	WaitingListLength int64 `json:"waiting_list_length"`
	OverdueCompliances int64 `json:"overdue_compliances"`
	StickersToPrint   int64 `json:"stickers_to_print"`

	// Revenue Statistics
	PaidThisMonth float64 `json:"paid_this_month"`

	// Recent Activity
	RecentProposals []ProposalSummary `json:"recent_proposals"`
}

// ProposalSummary represents application summary
type ProposalSummary struct {
	ID              uint      `json:"id"`
	LodgementNumber string    `json:"lodgement_number"`
	Kind            string    `json:"kind"`
	ProposalType    string    `json:"proposal_type"`
	Status          string    `json:"status"`
	Submitter       string    `json:"submitter"`
	CreatedAt       time.Time `json:"created_at"`
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboardData, error) {
	data := &AdminDashboardData{}

	// User counts by role
	s.db.WithContext(ctx).Table("users").Where("deleted_at IS NULL").Count(&data.TotalUsers)
	s.db.WithContext(ctx).Table("users").Where("role = ? AND deleted_at IS NULL", "ADMIN").Count(&data.TotalAdmins)
	s.db.WithContext(ctx).Table("users").Where("role = ? AND deleted_at IS NULL", "OFFICER").Count(&data.TotalOfficers)
	s.db.WithContext(ctx).Table("users").Where("role = ? AND deleted_at IS NULL", "APPLICANT").Count(&data.TotalApplicants)

	// Application counts by status
	s.db.WithContext(ctx).Table("proposals").Where("deleted_at IS NULL").Count(&data.TotalProposals)
	s.db.WithContext(ctx).Table("proposals").
		Where("processing_status = ? AND deleted_at IS NULL", "draft").
		Count(&data.DraftProposals)
	s.db.WithContext(ctx).Table("proposals").
		Where("processing_status IN ? AND deleted_at IS NULL",
			[]string{"with_assessor", "with_assessor_requirements", "with_approver", "awaiting_endorsement", "awaiting_documents"}).
		Count(&data.InAssessment)
	s.db.WithContext(ctx).Table("proposals").
		Where("processing_status = ? AND deleted_at IS NULL", "awaiting_payment").
		Count(&data.AwaitingPayment)
	s.db.WithContext(ctx).Table("proposals").
		Where("processing_status = ? AND deleted_at IS NULL", "approved").
		Count(&data.ApprovedProposals)
	s.db.WithContext(ctx).Table("proposals").
		Where("processing_status = ? AND deleted_at IS NULL", "declined").
		Count(&data.DeclinedProposals)

	// Entitlement counts
	s.db.WithContext(ctx).Table("approvals").
		Where("status = ? AND deleted_at IS NULL", "current").
		Count(&data.CurrentApprovals)
	s.db.WithContext(ctx).Table("approvals").
		Where("kind = ? AND internal_status = ? AND deleted_at IS NULL", "wla", "waiting").
		Count(&data.WaitingListLength)
	s.db.WithContext(ctx).Table("compliances").
		Where("status = ?", "overdue").
		Count(&data.OverdueCompliances)
	s.db.WithContext(ctx).Table("stickers").
		Where("status IN ?", []string{"ready", "awaiting_printing"}).
		Count(&data.StickersToPrint)

	// This month revenue
	startOfMonth := time.Now().AddDate(0, 0, -time.Now().Day()+1).Truncate(24 * time.Hour)
	s.db.WithContext(ctx).Table("fee_item_application_fees").
		Joins("JOIN application_fees ON fee_item_application_fees.application_fee_id = application_fees.id").
		Where("application_fees.payment_status = ? AND application_fees.updated_at >= ?", "paid", startOfMonth).
		Select("COALESCE(SUM(fee_item_application_fees.amount_paid), 0)").
		Scan(&data.PaidThisMonth)

	// Recent applications
	var recent []struct {
		ID              uint
		LodgementNumber string
		Kind            string
		ProposalType    string
		Status          string
		Submitter       string
		CreatedAt       time.Time
	}
	s.db.WithContext(ctx).Table("proposals").
		Select("proposals.id, proposals.lodgement_number, proposals.kind, proposals.proposal_type_code as proposal_type, proposals.processing_status as status, users.username as submitter, proposals.created_at").
		Joins("LEFT JOIN users ON proposals.submitter_id = users.id").
		Where("proposals.deleted_at IS NULL").
		Order("proposals.created_at DESC").
		Limit(10).
		Scan(&recent)

	data.RecentProposals = make([]ProposalSummary, len(recent))
	for i, p := range recent {
		data.RecentProposals[i] = ProposalSummary{
			ID:              p.ID,
			LodgementNumber: p.LodgementNumber,
			Kind:            p.Kind,
			ProposalType:    p.ProposalType,
			Status:          p.Status,
			Submitter:       p.Submitter,
			CreatedAt:       p.CreatedAt,
		}
	}

	return data, nil
}

// ============================================================
// Officer Dashboard
// ============================================================

// OfficerDashboardData represents officer dashboard data
type OfficerDashboardData struct {
	// Work queues
	WithAssessor     int64 `json:"with_assessor"`
	WithApprover     int64 `json:"with_approver"`
	AwaitingDocuments int64 `json:"awaiting_documents"`
	ComplianceQueue  int64 `json:"compliance_queue"`
	StickersToPrint  int64 `json:"stickers_to_print"`
	StickersRecalled int64 `json:"stickers_recalled"`

	// Oldest waiting applications
	AssessmentQueue []ProposalSummary `json:"assessment_queue"`
}

// GetOfficerDashboard returns officer dashboard data
func (s *DashboardService) GetOfficerDashboard(ctx context.Context) (*OfficerDashboardData, error) {
	data := &OfficerDashboardData{}

	s.db.WithContext(ctx).Table("proposals").
		Where("processing_status IN ? AND deleted_at IS NULL", []string{"with_assessor", "with_assessor_requirements"}).
		Count(&data.WithAssessor)
	s.db.WithContext(ctx).Table("proposals").
		Where("processing_status = ? AND deleted_at IS NULL", "with_approver").
		Count(&data.WithApprover)
	s.db.WithContext(ctx).Table("proposals").
		Where("processing_status = ? AND deleted_at IS NULL", "awaiting_documents").
		Count(&data.AwaitingDocuments)
	s.db.WithContext(ctx).Table("compliances").
		Where("status = ?", "with_assessor").
		Count(&data.ComplianceQueue)
	s.db.WithContext(ctx).Table("stickers").
		Where("status IN ?", []string{"ready", "awaiting_printing"}).
		Count(&data.StickersToPrint)
	s.db.WithContext(ctx).Table("stickers").
		Where("status = ?", "to_be_returned").
		Count(&data.StickersRecalled)

	// Oldest applications waiting for assessment
	var queue []struct {
		ID              uint
		LodgementNumber string
		Kind            string
		ProposalType    string
		Status          string
		Submitter       string
		CreatedAt       time.Time
	}
	s.db.WithContext(ctx).Table("proposals").
		Select("proposals.id, proposals.lodgement_number, proposals.kind, proposals.proposal_type_code as proposal_type, proposals.processing_status as status, users.username as submitter, proposals.created_at").
		Joins("LEFT JOIN users ON proposals.submitter_id = users.id").
		Where("proposals.processing_status IN ? AND proposals.deleted_at IS NULL",
			[]string{"with_assessor", "with_assessor_requirements", "with_approver"}).
		Order("proposals.lodgement_date ASC").
		Limit(10).
		Scan(&queue)

	data.AssessmentQueue = make([]ProposalSummary, len(queue))
	for i, p := range queue {
		data.AssessmentQueue[i] = ProposalSummary{
			ID:              p.ID,
			LodgementNumber: p.LodgementNumber,
			Kind:            p.Kind,
			ProposalType:    p.ProposalType,
			Status:          p.Status,
			Submitter:       p.Submitter,
			CreatedAt:       p.CreatedAt,
		}
	}

	return data, nil
}

// ============================================================
// Applicant Dashboard
// ============================================================

// UserDashboardData represents applicant dashboard data
type UserDashboardData struct {
	// My applications
	TotalProposals   int64 `json:"total_proposals"`
	DraftProposals   int64 `json:"draft_proposals"`
	AwaitingPayment  int64 `json:"awaiting_payment"`
	ApprovedProposals int64 `json:"approved_proposals"`

	// My entitlements
	CurrentApprovals int64 `json:"current_approvals"`
	DueCompliances   int64 `json:"due_compliances"`

	// My applications list
	Proposals []ProposalSummary `json:"proposals"`
}

// GetUserDashboard returns applicant dashboard data
func (s *DashboardService) GetUserDashboard(ctx context.Context, userID uint) (*UserDashboardData, error) {
	data := &UserDashboardData{}

	s.db.WithContext(ctx).Table("proposals").
		Where("submitter_id = ? AND deleted_at IS NULL", userID).
		Count(&data.TotalProposals)
	s.db.WithContext(ctx).Table("proposals").
		Where("submitter_id = ? AND processing_status = ? AND deleted_at IS NULL", userID, "draft").
		Count(&data.DraftProposals)
	s.db.WithContext(ctx).Table("proposals").
		Where("submitter_id = ? AND processing_status = ? AND deleted_at IS NULL", userID, "awaiting_payment").
		Count(&data.AwaitingPayment)
	s.db.WithContext(ctx).Table("proposals").
		Where("submitter_id = ? AND processing_status = ? AND deleted_at IS NULL", userID, "approved").
		Count(&data.ApprovedProposals)

	s.db.WithContext(ctx).Table("approvals").
		Where("submitter_id = ? AND status = ? AND deleted_at IS NULL", userID, "current").
		Count(&data.CurrentApprovals)
	s.db.WithContext(ctx).Table("compliances").
		Joins("JOIN approvals ON compliances.approval_id = approvals.id").
		Where("approvals.submitter_id = ? AND compliances.status IN ?", userID, []string{"due", "overdue"}).
		Count(&data.DueCompliances)

	// My applications
	var proposals []struct {
		ID              uint
		LodgementNumber string
		Kind            string
		ProposalType    string
		Status          string
		CreatedAt       time.Time
	}
	s.db.WithContext(ctx).Table("proposals").
		Select("id, lodgement_number, kind, proposal_type_code as proposal_type, processing_status as status, created_at").
		Where("submitter_id = ? AND deleted_at IS NULL", userID).
		Order("created_at DESC").
		Scan(&proposals)

	data.Proposals = make([]ProposalSummary, len(proposals))
	for i, p := range proposals {
		data.Proposals[i] = ProposalSummary{
			ID:              p.ID,
			LodgementNumber: p.LodgementNumber,
			Kind:            p.Kind,
			ProposalType:    p.ProposalType,
			Status:          p.Status,
			CreatedAt:       p.CreatedAt,
		}
	}

	return data, nil
}
