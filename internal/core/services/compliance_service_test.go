package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"mooringhub/internal/adapters/persistence/models"
)

func newComplianceFixture() (*ComplianceService, *fakeComplianceRepo, *fakeProposalRepo, *fakeNotifier) {
	complianceRepo := &fakeComplianceRepo{}
	proposalRepo := newFakeProposalRepo()
	notifier := &fakeNotifier{}
	svc := NewComplianceService(complianceRepo, proposalRepo, notifier)
	return svc, complianceRepo, proposalRepo, notifier
}

func TestComplianceService_Generate_RecurrenceAndIdempotence(t *testing.T) {
	svc, complianceRepo, proposalRepo, _ := newComplianceFixture()

	expiry := date(2025, time.August, 30)
	approval := &models.Approval{ID: 1, LodgementNumber: "MLA000001", ExpiryDate: &expiry}
	proposal := &models.Proposal{ID: 1, LodgementNumber: "ML000001"}

	monthly := models.RecurMonthly
	due := date(2025, time.July, 1)
	proposalRepo.requirements = []*models.ProposalRequirement{
		{ID: 1, ProposalID: 1, Requirement: "Lodge mooring inspection report",
			DueDate: &due, Recurrence: true, RecurrenceUnit: &monthly, RecurrenceSchedule: 1},
		{ID: 2, ProposalID: 1, Requirement: "No due date, never materialises"},
	}

	if err := svc.Generate(context.Background(), approval, proposal, due); err != nil {
		t.Fatalf("Generate error = %v", err)
	}

	// Monthly recurrence advances four weeks: 1 Jul, 29 Jul, 26 Aug all fall
	// before the 30 Aug expiry; the next occurrence does not.
	if len(complianceRepo.compliances) != 3 {
		t.Fatalf("generated %d compliances, want 3", len(complianceRepo.compliances))
	}
	wantDates := []time.Time{
		date(2025, time.July, 1),
		date(2025, time.July, 29),
		date(2025, time.August, 26),
	}
	for i, c := range complianceRepo.compliances {
		if !c.DueDate.Equal(wantDates[i]) {
			t.Errorf("compliance[%d] due %s, want %s", i, c.DueDate.Format("2006-01-02"), wantDates[i].Format("2006-01-02"))
		}
		if c.ProcessingStatus != models.ComplianceStatusFuture {
			t.Errorf("compliance[%d] status = %s, want future", i, c.ProcessingStatus)
		}
	}

	// Re-running fills gaps only; nothing is duplicated.
	if err := svc.Generate(context.Background(), approval, proposal, due); err != nil {
		t.Fatalf("Generate rerun error = %v", err)
	}
	if len(complianceRepo.compliances) != 3 {
		t.Errorf("after rerun %d compliances, want 3", len(complianceRepo.compliances))
	}
}

func TestComplianceService_Generate_NonRecurringSingleRow(t *testing.T) {
	svc, complianceRepo, proposalRepo, _ := newComplianceFixture()

	approval := &models.Approval{ID: 1}
	proposal := &models.Proposal{ID: 1}
	due := date(2025, time.July, 1)
	proposalRepo.requirements = []*models.ProposalRequirement{
		{ID: 1, ProposalID: 1, Requirement: "Provide insurance certificate", DueDate: &due},
	}

	if err := svc.Generate(context.Background(), approval, proposal, due); err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if len(complianceRepo.compliances) != 1 {
		t.Errorf("generated %d compliances, want 1", len(complianceRepo.compliances))
	}
}

func TestComplianceService_Generate_SkipsRequirementsAlreadyPastDue(t *testing.T) {
	svc, complianceRepo, proposalRepo, _ := newComplianceFixture()

	approval := &models.Approval{ID: 1}
	proposal := &models.Proposal{ID: 1}
	today := date(2025, time.July, 1)
	stale := date(2024, time.January, 1)
	live := date(2025, time.July, 1)
	proposalRepo.requirements = []*models.ProposalRequirement{
		{ID: 1, ProposalID: 1, Requirement: "Lapsed condition from an old term", DueDate: &stale},
		{ID: 2, ProposalID: 1, Requirement: "Provide insurance certificate", DueDate: &live},
	}

	if err := svc.Generate(context.Background(), approval, proposal, today); err != nil {
		t.Fatalf("Generate error = %v", err)
	}

	// A due date behind today would materialise as instantly overdue; only the
	// requirement due on or after today gets a row.
	if len(complianceRepo.compliances) != 1 {
		t.Fatalf("generated %d compliances, want 1", len(complianceRepo.compliances))
	}
	if complianceRepo.compliances[0].RequirementID != 2 {
		t.Errorf("generated for requirement %d, want 2", complianceRepo.compliances[0].RequirementID)
	}
}

func TestComplianceService_DeleteFutureForProposal(t *testing.T) {
	svc, complianceRepo, _, _ := newComplianceFixture()
	complianceRepo.compliances = []*models.Compliance{
		{ID: 1, ApprovalID: 1, ProposalID: 1, ProcessingStatus: models.ComplianceStatusFuture},
		{ID: 2, ApprovalID: 1, ProposalID: 1, ProcessingStatus: models.ComplianceStatusDue},
		{ID: 3, ApprovalID: 1, ProposalID: 2, ProcessingStatus: models.ComplianceStatusFuture},
	}

	if err := svc.DeleteFutureForProposal(context.Background(), 1, 1); err != nil {
		t.Fatalf("DeleteFutureForProposal error = %v", err)
	}

	// Only the superseded proposal's not-yet-due rows go; history stays.
	if len(complianceRepo.compliances) != 2 {
		t.Fatalf("left %d compliances, want 2", len(complianceRepo.compliances))
	}
	for _, c := range complianceRepo.compliances {
		if c.ID == 1 {
			t.Error("future compliance of the superseded proposal should be deleted")
		}
	}
}

func TestComplianceService_UpdateStatuses(t *testing.T) {
	svc, complianceRepo, _, notifier := newComplianceFixture()

	submitter := &models.User{Email: "licensee@example.com"}
	approval := &models.Approval{ID: 1, LodgementNumber: "MLA000001", Submitter: submitter}
	today := date(2025, time.July, 1)

	insideWindow := &models.Compliance{ID: 1, DueDate: date(2025, time.July, 10),
		ProcessingStatus: models.ComplianceStatusFuture, Approval: approval}
	outsideWindow := &models.Compliance{ID: 2, DueDate: date(2025, time.August, 20),
		ProcessingStatus: models.ComplianceStatusFuture, Approval: approval}
	pastDue := &models.Compliance{ID: 3, DueDate: date(2025, time.June, 20),
		ProcessingStatus: models.ComplianceStatusDue, ReminderSent: true, Approval: approval}
	complianceRepo.compliances = []*models.Compliance{insideWindow, outsideWindow, pastDue}

	svc.UpdateStatuses(context.Background(), today)

	if insideWindow.ProcessingStatus != models.ComplianceStatusDue {
		t.Errorf("compliance inside the window = %s, want due", insideWindow.ProcessingStatus)
	}
	if !insideWindow.ReminderSent {
		t.Error("reminder should be sent when a compliance first becomes due")
	}
	if outsideWindow.ProcessingStatus != models.ComplianceStatusFuture {
		t.Errorf("compliance outside the window = %s, want future", outsideWindow.ProcessingStatus)
	}
	if pastDue.ProcessingStatus != models.ComplianceStatusOverdue {
		t.Errorf("compliance past due = %s, want overdue", pastDue.ProcessingStatus)
	}

	if len(notifier.sent) != 1 || notifier.sent[0] != "compliance_due_reminder" {
		t.Errorf("notifications = %v, want one compliance_due_reminder", notifier.sent)
	}

	// A second sweep does not repeat the reminder.
	svc.UpdateStatuses(context.Background(), today)
	if len(notifier.sent) != 1 {
		t.Errorf("after second sweep %d notifications, want still 1", len(notifier.sent))
	}
}

func TestComplianceService_SubmitAcceptDiscard(t *testing.T) {
	svc, complianceRepo, _, _ := newComplianceFixture()
	compliance := &models.Compliance{ID: 1, ProcessingStatus: models.ComplianceStatusDue}
	complianceRepo.compliances = []*models.Compliance{compliance}
	now := date(2025, time.July, 5)

	// Future compliances are not yet actionable.
	compliance.ProcessingStatus = models.ComplianceStatusFuture
	if _, err := svc.Submit(context.Background(), 1, "done", now); !errors.Is(err, ErrComplianceNotActionable) {
		t.Errorf("Submit future compliance: error = %v, want ErrComplianceNotActionable", err)
	}

	compliance.ProcessingStatus = models.ComplianceStatusOverdue
	got, err := svc.Submit(context.Background(), 1, "report attached", now)
	if err != nil {
		t.Fatalf("Submit error = %v", err)
	}
	if got.ProcessingStatus != models.ComplianceStatusWithAssessor {
		t.Errorf("status = %s, want with_assessor", got.ProcessingStatus)
	}
	if got.LodgementDate == nil || !got.LodgementDate.Equal(now) {
		t.Errorf("lodgement date = %v, want %s", got.LodgementDate, now.Format("2006-01-02"))
	}
	if got.Text != "report attached" {
		t.Errorf("text = %q, want the lodged evidence", got.Text)
	}

	if _, err := svc.Accept(context.Background(), 1); err != nil {
		t.Fatalf("Accept error = %v", err)
	}
	if compliance.ProcessingStatus != models.ComplianceStatusApproved {
		t.Errorf("status = %s, want approved", compliance.ProcessingStatus)
	}

	// Approved compliances cannot be discarded, or accepted again.
	if _, err := svc.Discard(context.Background(), 1); !errors.Is(err, ErrComplianceNotActionable) {
		t.Errorf("Discard approved compliance: error = %v, want ErrComplianceNotActionable", err)
	}
	if _, err := svc.Accept(context.Background(), 1); !errors.Is(err, ErrComplianceNotActionable) {
		t.Errorf("Accept approved compliance: error = %v, want ErrComplianceNotActionable", err)
	}

	if _, err := svc.Submit(context.Background(), 404, "", now); !errors.Is(err, ErrComplianceNotFound) {
		t.Errorf("Submit unknown compliance: error = %v, want ErrComplianceNotFound", err)
	}
}
