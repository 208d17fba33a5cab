package services

import (
	"context"
	"errors"
	"log"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/adapters/persistence/repositories"
)

// Compliance service errors
var (
	ErrComplianceNotFound      = errors.New("compliance not found")
	ErrComplianceNotActionable = errors.New("compliance is not in an actionable status")
)

// ComplianceService schedules and progresses the recurring obligations
// attached to an issued approval.
type ComplianceService struct {
	complianceRepo repositories.ComplianceRepository
	proposalRepo   repositories.ProposalRepository
	notifier       Notifier
}

// NewComplianceService creates a new compliance service
func NewComplianceService(
	complianceRepo repositories.ComplianceRepository,
	proposalRepo repositories.ProposalRepository,
	notifier Notifier,
) *ComplianceService {
	return &ComplianceService{
		complianceRepo: complianceRepo,
		proposalRepo:   proposalRepo,
		notifier:       notifier,
	}
}

// Generate materialises compliance rows for every requirement of the
// proposal whose due date falls on or after today, one per occurrence up to
// the approval's expiry date. Requirements already past their due date raise
// no obligations. The operation is idempotent: an existing (requirement, due
// date) row is left untouched, so re-running after a partial failure only
// fills the gaps.
func (s *ComplianceService) Generate(ctx context.Context, approval *models.Approval, proposal *models.Proposal, today time.Time) error {
	reqs, err := s.proposalRepo.ListRequirements(ctx, proposal.ID)
	if err != nil {
		return err
	}

	created := 0
	for _, req := range reqs {
		if req.DueDate == nil || req.DueDate.Before(today) {
			continue
		}
		for _, dueDate := range s.occurrences(req, approval) {
			compliance := &models.Compliance{
				ApprovalID:       approval.ID,
				ProposalID:       proposal.ID,
				RequirementID:    req.ID,
				DueDate:          dueDate,
				ProcessingStatus: models.ComplianceStatusFuture,
				Text:             req.Requirement,
			}
			_, isNew, err := s.complianceRepo.GetOrCreate(ctx, compliance)
			if err != nil {
				return err
			}
			if isNew {
				created++
			}
		}
	}
	if created > 0 {
		log.Printf("✅ generated %d compliances for approval %s from proposal %s",
			created, approval.LodgementNumber, proposal.LodgementNumber)
	}
	return nil
}

// occurrences expands one requirement into its due dates: the first due date
// plus, for recurring requirements, every recurrence interval up to the
// approval's expiry.
func (s *ComplianceService) occurrences(req *models.ProposalRequirement, approval *models.Approval) []time.Time {
	dates := []time.Time{*req.DueDate}
	if !req.Recurrence || approval.ExpiryDate == nil {
		return dates
	}
	cursor := *req.DueDate
	for {
		cursor = req.NextDueDate(cursor)
		if cursor.After(*approval.ExpiryDate) {
			break
		}
		dates = append(dates, cursor)
	}
	return dates
}

// DeleteFutureForProposal removes not-yet-due compliances that were generated
// from the given proposal's requirements. Used when an amendment supersedes
// an earlier proposal: the superseded schedule is replaced, history is kept.
func (s *ComplianceService) DeleteFutureForProposal(ctx context.Context, approvalID, proposalID uint) error {
	compliances, err := s.complianceRepo.ListFutureByApprovalAndProposal(ctx, approvalID, proposalID)
	if err != nil {
		return err
	}
	for _, c := range compliances {
		if err := s.complianceRepo.Delete(ctx, c.ID); err != nil {
			return err
		}
	}
	if len(compliances) > 0 {
		log.Printf("deleted %d future compliances of proposal %d on approval %d",
			len(compliances), proposalID, approvalID)
	}
	return nil
}

// dueWindow is how far ahead of its due date a compliance becomes actionable.
const dueWindow = 14 * 24 * time.Hour

// UpdateStatuses is the daily sweep: future compliances inside the due window
// become due, due compliances past their due date become overdue. A reminder
// is sent once when a compliance first becomes due. Per-row failures are
// logged and skipped so one bad row cannot stall the sweep.
func (s *ComplianceService) UpdateStatuses(ctx context.Context, today time.Time) {
	compliances, err := s.complianceRepo.ListDueForStatusUpdate(ctx)
	if err != nil {
		log.Printf("❌ compliance status sweep failed to list: %v", err)
		return
	}

	for _, c := range compliances {
		changed := false
		switch c.ProcessingStatus {
		case models.ComplianceStatusFuture:
			if !today.Before(c.DueDate.Add(-dueWindow)) {
				c.ProcessingStatus = models.ComplianceStatusDue
				changed = true
			}
		case models.ComplianceStatusDue:
			if today.After(c.DueDate) {
				c.ProcessingStatus = models.ComplianceStatusOverdue
				changed = true
			}
		}

		if c.ProcessingStatus == models.ComplianceStatusDue && !c.ReminderSent {
			s.sendReminder(ctx, c)
			c.ReminderSent = true
			changed = true
		}

		if !changed {
			continue
		}
		if err := s.complianceRepo.Update(ctx, c); err != nil {
			log.Printf("❌ failed to update compliance %d: %v", c.ID, err)
		}
	}
}

func (s *ComplianceService) sendReminder(ctx context.Context, c *models.Compliance) {
	if s.notifier == nil || c.Approval == nil || c.Approval.Submitter == nil {
		return
	}
	err := s.notifier.Notify(ctx, "compliance_due_reminder",
		[]string{c.Approval.Submitter.Email},
		map[string]interface{}{
			"approval_lodgement_number": c.Approval.LodgementNumber,
			"requirement":               c.Text,
			"due_date":                  c.DueDate.Format("02/01/2006"),
		})
	if err != nil {
		log.Printf("⚠️ failed to send compliance reminder for %d: %v", c.ID, err)
	}
}

// Submit lodges evidence against a due or overdue compliance, moving it to
// assessment.
func (s *ComplianceService) Submit(ctx context.Context, complianceID uint, text string, now time.Time) (*models.Compliance, error) {
	compliance, err := s.getCompliance(ctx, complianceID)
	if err != nil {
		return nil, err
	}
	switch compliance.ProcessingStatus {
	case models.ComplianceStatusDue, models.ComplianceStatusOverdue:
	default:
		return nil, ErrComplianceNotActionable
	}
	if text != "" {
		compliance.Text = text
	}
	compliance.ProcessingStatus = models.ComplianceStatusWithAssessor
	compliance.LodgementDate = &now
	if err := s.complianceRepo.Update(ctx, compliance); err != nil {
		return nil, err
	}
	return compliance, nil
}

// Accept marks a lodged compliance as satisfied.
func (s *ComplianceService) Accept(ctx context.Context, complianceID uint) (*models.Compliance, error) {
	compliance, err := s.getCompliance(ctx, complianceID)
	if err != nil {
		return nil, err
	}
	if compliance.ProcessingStatus != models.ComplianceStatusWithAssessor {
		return nil, ErrComplianceNotActionable
	}
	compliance.ProcessingStatus = models.ComplianceStatusApproved
	if err := s.complianceRepo.Update(ctx, compliance); err != nil {
		return nil, err
	}
	return compliance, nil
}

// Discard abandons a compliance, for example when the underlying requirement
// no longer applies.
func (s *ComplianceService) Discard(ctx context.Context, complianceID uint) (*models.Compliance, error) {
	compliance, err := s.getCompliance(ctx, complianceID)
	if err != nil {
		return nil, err
	}
	if compliance.ProcessingStatus == models.ComplianceStatusApproved {
		return nil, ErrComplianceNotActionable
	}
	compliance.ProcessingStatus = models.ComplianceStatusDiscarded
	if err := s.complianceRepo.Update(ctx, compliance); err != nil {
		return nil, err
	}
	return compliance, nil
}

// List lists compliances with optional status filter.
func (s *ComplianceService) List(ctx context.Context, status string, offset, limit int) ([]*models.Compliance, int64, error) {
	return s.complianceRepo.List(ctx, status, offset, limit)
}

// ListByApproval lists the compliance schedule of one approval.
func (s *ComplianceService) ListByApproval(ctx context.Context, approvalID uint) ([]*models.Compliance, error) {
	return s.complianceRepo.ListByApproval(ctx, approvalID)
}

func (s *ComplianceService) getCompliance(ctx context.Context, id uint) (*models.Compliance, error) {
	compliance, err := s.complianceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrComplianceNotFound
	}
	return compliance, nil
}
