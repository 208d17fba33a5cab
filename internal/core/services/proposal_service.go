package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/adapters/persistence/repositories"
	"mooringhub/internal/core/domain"

	"github.com/google/uuid"
)

// ProposalService drives an application through its lifecycle: lodgement,
// assessment, endorsement, payment and issuance. Every multi-entity state
// change runs inside one transaction so a failure leaves nothing half done.
type ProposalService struct {
	proposalRepo      repositories.ProposalRepository
	feeRepo           repositories.FeeRepository
	approvalService   *ApprovalService
	complianceService *ComplianceService
	stickerService    *StickerService
	pricingService    *PricingService
	directory         IdentityDirectory
	gateway           PaymentGateway
	notifier          Notifier
	tx                repositories.TxRunner
	paymentDeadline   time.Duration
}

// NewProposalService creates a new proposal service
func NewProposalService(
	proposalRepo repositories.ProposalRepository,
	feeRepo repositories.FeeRepository,
	approvalService *ApprovalService,
	complianceService *ComplianceService,
	stickerService *StickerService,
	pricingService *PricingService,
	directory IdentityDirectory,
	gateway PaymentGateway,
	notifier Notifier,
	tx repositories.TxRunner,
	paymentDeadline time.Duration,
) *ProposalService {
	return &ProposalService{
		proposalRepo:      proposalRepo,
		feeRepo:           feeRepo,
		approvalService:   approvalService,
		complianceService: complianceService,
		stickerService:    stickerService,
		pricingService:    pricingService,
		directory:         directory,
		gateway:           gateway,
		notifier:          notifier,
		tx:                tx,
		paymentDeadline:   paymentDeadline,
	}
}

// CreateProposalInput carries the fields needed to open a draft application.
type CreateProposalInput struct {
	Kind                           domain.ApplicationType `json:"kind"`
	ProposalTypeCode               domain.ProposalType    `json:"proposal_type_code"`
	SubmitterID                    uint                   `json:"submitter_id"`
	PostalAddress                  string                 `json:"postal_address"`
	VesselDetailsID                *uint                  `json:"vessel_details_id"`
	VesselOwnershipID              *uint                  `json:"vessel_ownership_id"`
	PreviousApplicationID          *uint                  `json:"previous_application_id"`
	ApprovalID                     *uint                  `json:"approval_id"`
	MooringAuthorisationPreference string                 `json:"mooring_authorisation_preference"`
	KeepExistingMooring            bool                   `json:"keep_existing_mooring"`
	MooringID                      *uint                  `json:"mooring_id"`
	WaitingListAllocationID        *uint                  `json:"waiting_list_allocation_id"`
}

// Create opens a draft application and assigns its lodgement number.
func (s *ProposalService) Create(ctx context.Context, input CreateProposalInput) (*models.Proposal, error) {
	switch input.Kind {
	case domain.ApplicationTypeWaitingList, domain.ApplicationTypeAnnualAdmission,
		domain.ApplicationTypeAuthorisedUser, domain.ApplicationTypeMooringLicence:
	default:
		return nil, domain.ErrInvalidInput
	}
	switch input.ProposalTypeCode {
	case domain.ProposalTypeNew, domain.ProposalTypeAmendment, domain.ProposalTypeRenewal, domain.ProposalTypeSwap:
	default:
		return nil, domain.ErrInvalidInput
	}
	if input.ProposalTypeCode != domain.ProposalTypeNew && input.ApprovalID == nil {
		return nil, domain.ErrInvalidInput
	}

	proposal := &models.Proposal{
		Kind:                           input.Kind,
		ProposalTypeCode:               input.ProposalTypeCode,
		ProcessingStatus:               domain.StatusDraft,
		SubmitterID:                    input.SubmitterID,
		PostalAddress:                  input.PostalAddress,
		VesselDetailsID:                input.VesselDetailsID,
		VesselOwnershipID:              input.VesselOwnershipID,
		PreviousApplicationID:          input.PreviousApplicationID,
		ApprovalID:                     input.ApprovalID,
		MooringAuthorisationPreference: input.MooringAuthorisationPreference,
		KeepExistingMooring:            input.KeepExistingMooring,
		MooringID:                      input.MooringID,
		WaitingListAllocationID:        input.WaitingListAllocationID,
	}

	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := s.proposalRepo.Create(ctx, proposal); err != nil {
			return err
		}
		// The lodgement number embeds the database id, so it is assigned
		// after the insert.
		proposal.LodgementNumber = fmt.Sprintf("%s%06d", input.Kind.LodgementPrefix(), proposal.ID)
		if err := s.proposalRepo.Update(ctx, proposal); err != nil {
			return err
		}
		return s.copyRequirements(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("proposal %s created (%s %s)", proposal.LodgementNumber, proposal.Kind, proposal.ProposalTypeCode)
	return proposal, nil
}

// copyRequirements carries the previous application's live requirements onto
// a renewal or amendment successor. Renewals clear the due dates so the
// assessor re-dates them for the new term; amendments keep them as-is.
func (s *ProposalService) copyRequirements(ctx context.Context, proposal *models.Proposal) error {
	if proposal.PreviousApplicationID == nil {
		return nil
	}
	switch proposal.ProposalTypeCode {
	case domain.ProposalTypeAmendment, domain.ProposalTypeRenewal:
	default:
		return nil
	}
	requirements, err := s.proposalRepo.ListRequirements(ctx, *proposal.PreviousApplicationID)
	if err != nil {
		return err
	}
	for _, req := range requirements {
		sourceID := req.ID
		copied := &models.ProposalRequirement{
			ProposalID:         proposal.ID,
			Requirement:        req.Requirement,
			DueDate:            req.DueDate,
			Recurrence:         req.Recurrence,
			RecurrenceUnit:     req.RecurrenceUnit,
			RecurrenceSchedule: req.RecurrenceSchedule,
			CopiedFromID:       &sourceID,
		}
		if proposal.ProposalTypeCode == domain.ProposalTypeRenewal {
			copied.DueDate = nil
		}
		if err := s.proposalRepo.CreateRequirement(ctx, copied); err != nil {
			return err
		}
	}
	return nil
}

// Submit lodges a draft application. Waiting-list and annual-admission
// applications are priced at submission: a non-zero amount parks the
// application in awaiting-payment with an invoice raised; everything else
// routes straight to assessment or endorsement.
func (s *ProposalService) Submit(ctx context.Context, proposalID, actorID uint, now time.Time) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.SubmitterID != actorID {
		return nil, domain.ErrNotAuthorized
	}
	if proposal.ProcessingStatus != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}
	if proposal.PostalAddress == "" {
		return nil, domain.ErrInvalidInput
	}

	if proposal.Kind == domain.ApplicationTypeWaitingList && proposal.VesselDetails != nil {
		blocking, err := s.proposalRepo.ListActiveByVessel(ctx, domain.ApplicationTypeWaitingList,
			proposal.VesselDetails.VesselID, proposal.ID)
		if err != nil {
			return nil, err
		}
		if len(blocking) > 0 {
			return nil, domain.ErrBlockingProposal
		}
	}

	quote, err := s.pricingService.FeeLines(ctx, proposal, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		proposal.LodgementDate = &now

		paysAtSubmission := proposal.Kind == domain.ApplicationTypeWaitingList ||
			proposal.Kind == domain.ApplicationTypeAnnualAdmission
		if paysAtSubmission && quote.TotalDue().IsPositive() {
			if err := s.raiseInvoice(ctx, proposal, quote, now); err != nil {
				return err
			}
			proposal.ProcessingStatus = domain.StatusAwaitingPayment
		} else {
			proposal.ProcessingStatus = s.statusAfterSubmit(proposal)
		}
		if err := s.proposalRepo.Update(ctx, proposal); err != nil {
			return err
		}
		return s.maybeAutoApprove(ctx, proposal, now)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("proposal %s submitted, now %s", proposal.LodgementNumber, proposal.ProcessingStatus)
	return proposal, nil
}

// statusAfterSubmit routes a lodged application. Authorised-user applications
// without a licensee-issued authority need the site licensee's endorsement
// before assessment.
func (s *ProposalService) statusAfterSubmit(proposal *models.Proposal) domain.ProcessingStatus {
	if proposal.Kind == domain.ApplicationTypeAuthorisedUser &&
		proposal.MooringAuthorisationPreference != "ria" {
		return domain.StatusAwaitingEndorsement
	}
	return domain.StatusWithAssessor
}

// maybeAutoApprove finalises an application waiting for assessment without
// human involvement when nothing assessable has changed. Runs inside the
// caller's transaction.
func (s *ProposalService) maybeAutoApprove(ctx context.Context, proposal *models.Proposal, now time.Time) error {
	if proposal.ProcessingStatus != domain.StatusWithAssessor {
		return nil
	}
	eligible, err := s.autoApproveEligible(ctx, proposal)
	if err != nil || !eligible {
		return err
	}
	proposal.AutoApprove = true
	log.Printf("✅ proposal %s auto-approved, unchanged since its previous application", proposal.LodgementNumber)
	return s.issue(ctx, proposal, now)
}

// autoApproveEligible checks the amendment/renewal checklist: same vessel and
// measurements, same ownership, same mooring preference, and no sticker still
// outstanding on the approval. Only kinds the assessor finalises directly
// qualify; the rest always go before their approver.
func (s *ProposalService) autoApproveEligible(ctx context.Context, proposal *models.Proposal) (bool, error) {
	switch proposal.ProposalTypeCode {
	case domain.ProposalTypeAmendment, domain.ProposalTypeRenewal:
	default:
		return false, nil
	}
	if proposal.Kind.HasApproverStep() {
		return false, nil
	}
	if proposal.PreviousApplicationID == nil || proposal.ApprovalID == nil {
		return false, nil
	}

	previous, err := s.proposalRepo.GetByID(ctx, *proposal.PreviousApplicationID)
	if err != nil {
		return false, err
	}
	current, err := s.resolveVesselDetails(ctx, proposal)
	if err != nil {
		return false, err
	}
	before, err := s.resolveVesselDetails(ctx, previous)
	if err != nil {
		return false, err
	}
	switch {
	case current == nil && before == nil:
	case current == nil || before == nil:
		return false, nil
	case current.VesselID != before.VesselID:
		return false, nil
	case !current.ApplicableLength.Equal(before.ApplicableLength):
		return false, nil
	}
	if !sameUintPtr(proposal.VesselOwnershipID, previous.VesselOwnershipID) {
		return false, nil
	}
	if proposal.MooringAuthorisationPreference != previous.MooringAuthorisationPreference {
		return false, nil
	}

	stickers, err := s.stickerService.ListByApproval(ctx, *proposal.ApprovalID)
	if err != nil {
		return false, err
	}
	for _, sticker := range stickers {
		if sticker.IsOutstanding() {
			return false, nil
		}
	}
	return true, nil
}

func (s *ProposalService) resolveVesselDetails(ctx context.Context, proposal *models.Proposal) (*models.VesselDetails, error) {
	if proposal.VesselDetails != nil || proposal.VesselDetailsID == nil {
		return proposal.VesselDetails, nil
	}
	return s.proposalRepo.GetVesselDetails(ctx, *proposal.VesselDetailsID)
}

func sameUintPtr(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// raiseInvoice creates the payment attempt, its fee item allocations and the
// gateway invoice, plus an audit snapshot of the calculation. A gateway
// failure aborts the enclosing transaction.
func (s *ProposalService) raiseInvoice(ctx context.Context, proposal *models.Proposal, quote *FeeQuote, now time.Time) error {
	// At most one non-cancelled payment attempt may exist per proposal.
	if _, err := s.feeRepo.GetActiveApplicationFee(ctx, proposal.ID); err == nil {
		return domain.ErrInvalidState
	}

	fee := &models.ApplicationFee{
		UUID:          uuid.NewString(),
		ProposalID:    proposal.ID,
		PaymentStatus: domain.PaymentUnpaid,
	}
	if err := s.feeRepo.CreateApplicationFee(ctx, fee); err != nil {
		return err
	}
	for _, alloc := range quote.Allocations {
		link := &models.FeeItemApplicationFee{
			FeeItemID:        alloc.FeeItem.ID,
			ApplicationFeeID: fee.ID,
			VesselDetailsID:  alloc.VesselDetailsID,
			AmountToBePaid:   alloc.Amount,
		}
		if err := s.feeRepo.CreateFeeItemApplicationFee(ctx, link); err != nil {
			return err
		}
	}

	if data, err := json.Marshal(quote); err == nil {
		calc := &models.FeeCalculation{UUID: fee.UUID, Data: string(data)}
		if err := s.feeRepo.CreateFeeCalculation(ctx, calc); err != nil {
			return err
		}
	}

	invoiceRef, err := s.gateway.CreateInvoice(ctx, quote.LineItems, proposal.SubmitterID, now.Add(s.paymentDeadline))
	if err != nil {
		log.Printf("❌ invoice creation failed for proposal %s: %v", proposal.LodgementNumber, err)
		return domain.ErrPaymentGateway
	}
	fee.InvoiceReference = invoiceRef
	return s.feeRepo.UpdateApplicationFee(ctx, fee)
}

// CompletePayment records a paid invoice and continues the interrupted
// workflow: submissions move on to assessment, final approvals finish
// issuance. It is idempotent; replaying a callback for an already-paid
// invoice changes nothing.
func (s *ProposalService) CompletePayment(ctx context.Context, invoiceReference string, now time.Time) (*models.Proposal, error) {
	fee, err := s.feeRepo.GetApplicationFeeByInvoice(ctx, invoiceReference)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	proposal, err := s.getProposal(ctx, fee.ProposalID)
	if err != nil {
		return nil, err
	}
	if fee.PaymentStatus != domain.PaymentUnpaid {
		return proposal, nil
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		fee.PaymentStatus = domain.PaymentPaid
		if err := s.feeRepo.UpdateApplicationFee(ctx, fee); err != nil {
			return err
		}
		for i := range fee.FeeItems {
			link := &fee.FeeItems[i]
			paid := link.AmountToBePaid
			link.AmountPaid = &paid
			if err := s.feeRepo.UpdateFeeItemApplicationFee(ctx, link); err != nil {
				return err
			}
		}

		if proposal.ProcessingStatus != domain.StatusAwaitingPayment {
			return nil
		}
		switch proposal.Kind {
		case domain.ApplicationTypeWaitingList, domain.ApplicationTypeAnnualAdmission:
			proposal.ProcessingStatus = s.statusAfterSubmit(proposal)
			if err := s.proposalRepo.Update(ctx, proposal); err != nil {
				return err
			}
			return s.maybeAutoApprove(ctx, proposal, now)
		default:
			return s.issue(ctx, proposal, now)
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ payment received for proposal %s (invoice %s), now %s",
		proposal.LodgementNumber, invoiceReference, proposal.ProcessingStatus)
	return proposal, nil
}

// Endorse records the site licensee's decision on an authorised-user
// application awaiting endorsement.
func (s *ProposalService) Endorse(ctx context.Context, proposalID, actorID uint, endorsed bool, reason string) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ProcessingStatus != domain.StatusAwaitingEndorsement {
		return nil, domain.ErrInvalidState
	}
	if err := s.requireMember(ctx, actorID, "endorsers"); err != nil {
		return nil, err
	}

	if endorsed {
		proposal.ProcessingStatus = domain.StatusWithAssessor
	} else {
		proposal.ProcessingStatus = domain.StatusDeclined
		if reason != "" {
			proposal.DeclineReason = &reason
		}
	}
	if err := s.proposalRepo.Update(ctx, proposal); err != nil {
		return nil, err
	}
	s.notifySubmitter(ctx, proposal, "proposal_endorsement_decision")
	return proposal, nil
}

// assessorMoves are the transitions an assessor may drive directly.
var assessorMoves = map[domain.ProcessingStatus][]domain.ProcessingStatus{
	domain.StatusWithAssessor:             {domain.StatusWithAssessorRequirements, domain.StatusAwaitingDocuments},
	domain.StatusWithAssessorRequirements: {domain.StatusWithAssessor, domain.StatusAwaitingDocuments},
	domain.StatusAwaitingDocuments:        {domain.StatusWithAssessor},
	domain.StatusWithApprover:             {domain.StatusWithAssessor, domain.StatusWithAssessorRequirements},
}

// MoveToStatus performs an assessor-driven transition. Pulling an application
// back from the approver clears the approver's comment.
func (s *ProposalService) MoveToStatus(ctx context.Context, proposalID, actorID uint, target domain.ProcessingStatus) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actorID, proposal.Kind.AssessorGroup()); err != nil {
		return nil, err
	}

	allowed := false
	for _, t := range assessorMoves[proposal.ProcessingStatus] {
		if t == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, domain.ErrInvalidState
	}

	if proposal.ProcessingStatus == domain.StatusWithApprover {
		proposal.ApproverComment = ""
	}
	proposal.ProcessingStatus = target
	if err := s.proposalRepo.Update(ctx, proposal); err != nil {
		return nil, err
	}
	if target == domain.StatusWithAssessorRequirements {
		if err := s.attachDefaultRequirements(ctx, proposal); err != nil {
			return nil, err
		}
	}
	return proposal, nil
}

// Standard conditions attached the first time an application reaches
// requirements assessment. The assessor edits or extends them from there.
var defaultRequirements = map[domain.ApplicationType][]string{
	domain.ApplicationTypeMooringLicence: {
		"Maintain public liability insurance for the nominated vessel",
		"Keep the mooring apparatus in a serviceable condition",
	},
	domain.ApplicationTypeAuthorisedUser: {
		"Maintain public liability insurance for the nominated vessel",
	},
}

func (s *ProposalService) attachDefaultRequirements(ctx context.Context, proposal *models.Proposal) error {
	existing, err := s.proposalRepo.ListRequirements(ctx, proposal.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, text := range defaultRequirements[proposal.Kind] {
		req := &models.ProposalRequirement{ProposalID: proposal.ID, Requirement: text}
		if err := s.proposalRepo.CreateRequirement(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// AddRequirementInput describes one condition to attach to a proposal.
type AddRequirementInput struct {
	Requirement        string                 `json:"requirement"`
	DueDate            *time.Time             `json:"due_date"`
	Recurrence         bool                   `json:"recurrence"`
	RecurrenceUnit     *models.RecurrenceUnit `json:"recurrence_unit"`
	RecurrenceSchedule int                    `json:"recurrence_schedule"`
}

// AddRequirement attaches a condition to an application under assessment.
func (s *ProposalService) AddRequirement(ctx context.Context, proposalID, actorID uint, input AddRequirementInput) (*models.ProposalRequirement, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actorID, proposal.Kind.AssessorGroup()); err != nil {
		return nil, err
	}
	if proposal.ProcessingStatus.IsTerminal() {
		return nil, domain.ErrInvalidState
	}
	if input.Requirement == "" {
		return nil, domain.ErrInvalidInput
	}

	req := &models.ProposalRequirement{
		ProposalID:         proposal.ID,
		Requirement:        input.Requirement,
		DueDate:            input.DueDate,
		Recurrence:         input.Recurrence,
		RecurrenceUnit:     input.RecurrenceUnit,
		RecurrenceSchedule: input.RecurrenceSchedule,
	}
	if err := s.proposalRepo.CreateRequirement(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ProposeApprovalInput is the issuance payload the assessor puts to the
// approver.
type ProposeApprovalInput struct {
	ExpiryDate *time.Time `json:"expiry_date"`
	MooringID  *uint      `json:"mooring_id"`
	Details    string     `json:"details"`
}

// ProposeApproval puts a recommendation to approve before the approver. The
// nominated mooring must fit the nominated vessel.
func (s *ProposalService) ProposeApproval(ctx context.Context, proposalID, actorID uint, input ProposeApprovalInput) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !proposal.Kind.HasApproverStep() {
		return nil, domain.ErrInvalidState
	}
	if proposal.ProcessingStatus != domain.StatusWithAssessorRequirements {
		return nil, domain.ErrInvalidState
	}
	if err := s.requireMember(ctx, actorID, proposal.Kind.AssessorGroup()); err != nil {
		return nil, err
	}

	if input.MooringID != nil && proposal.VesselDetails != nil {
		mooring, err := s.approvalService.approvalRepo.GetMooring(ctx, *input.MooringID)
		if err != nil {
			return nil, domain.ErrNotFound
		}
		if !mooring.FitsVessel(proposal.VesselDetails.ApplicableLength) {
			return nil, domain.ErrInvalidInput
		}
	}

	proposal.ProposedExpiryDate = input.ExpiryDate
	proposal.ProposedMooringID = input.MooringID
	proposal.ProposedDecline = nil
	proposal.ProcessingStatus = domain.StatusWithApprover
	if err := s.proposalRepo.Update(ctx, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// ProposeDecline puts a recommendation to decline before the approver.
func (s *ProposalService) ProposeDecline(ctx context.Context, proposalID, actorID uint, reason string) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !proposal.Kind.HasApproverStep() {
		return nil, domain.ErrInvalidState
	}
	switch proposal.ProcessingStatus {
	case domain.StatusWithAssessor, domain.StatusWithAssessorRequirements:
	default:
		return nil, domain.ErrInvalidState
	}
	if err := s.requireMember(ctx, actorID, proposal.Kind.AssessorGroup()); err != nil {
		return nil, err
	}

	proposal.ProposedDecline = &reason
	proposal.ProcessingStatus = domain.StatusWithApprover
	return proposal, s.proposalRepo.Update(ctx, proposal)
}

// FinalDecline declines an application. Waiting-list and annual-admission
// applications are declined by their assessor; the rest by their approver.
// Declining the proposal behind a reissued approval reverts the proposal to
// approved instead, leaving the entitlement as it stood. A declined
// mooring-licence offer puts its waiting-list allocation back in the queue.
func (s *ProposalService) FinalDecline(ctx context.Context, proposalID, actorID uint, reason string, now time.Time) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeFinalDecision(ctx, proposal, actorID); err != nil {
		return nil, err
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if proposal.ApprovalID != nil {
			approval, err := s.approvalService.approvalRepo.GetByID(ctx, *proposal.ApprovalID)
			if err == nil && approval.Reissued {
				approval.Reissued = false
				if err := s.approvalService.approvalRepo.Update(ctx, approval); err != nil {
					return err
				}
				proposal.ProcessingStatus = domain.StatusApproved
				return s.proposalRepo.Update(ctx, proposal)
			}
		}

		proposal.ProcessingStatus = domain.StatusDeclined
		if reason != "" {
			proposal.DeclineReason = &reason
		}
		if err := s.proposalRepo.Update(ctx, proposal); err != nil {
			return err
		}

		if proposal.Kind == domain.ApplicationTypeMooringLicence && proposal.WaitingListAllocationID != nil {
			return s.approvalService.ReinstateWaitingListAllocation(ctx, *proposal.WaitingListAllocationID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifySubmitter(ctx, proposal, "proposal_declined")
	log.Printf("proposal %s declined", proposal.LodgementNumber)
	return proposal, nil
}

// FinalApproval finally approves an application. Types that pay at approval
// are priced here: a non-zero amount parks the application in
// awaiting-payment with an invoice raised, and issuance resumes when the
// payment callback arrives; a zero amount issues synchronously. Types that
// paid at submission issue immediately.
func (s *ProposalService) FinalApproval(ctx context.Context, proposalID, actorID uint, now time.Time) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeFinalDecision(ctx, proposal, actorID); err != nil {
		return nil, err
	}
	if proposal.PostalAddress == "" {
		return nil, domain.ErrInvalidInput
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if !proposal.Kind.HasApproverStep() {
			return s.issue(ctx, proposal, now)
		}

		quote, err := s.pricingService.FeeLines(ctx, proposal, now)
		if err != nil {
			return err
		}
		if quote.TotalDue().IsPositive() {
			if err := s.raiseInvoice(ctx, proposal, quote, now); err != nil {
				return err
			}
			proposal.ProcessingStatus = domain.StatusAwaitingPayment
			return s.proposalRepo.Update(ctx, proposal)
		}
		return s.issue(ctx, proposal, now)
	})
	if err != nil {
		return nil, err
	}

	if proposal.ProcessingStatus == domain.StatusAwaitingPayment {
		s.notifySubmitter(ctx, proposal, "proposal_payment_required")
	} else {
		s.notifySubmitter(ctx, proposal, "proposal_approved")
	}
	log.Printf("proposal %s finally approved, now %s", proposal.LodgementNumber, proposal.ProcessingStatus)
	return proposal, nil
}

// issue performs the issuance unit: create or mutate the approval, replace
// the compliance schedule, reconcile stickers, and land the proposal on its
// final status. Runs inside the caller's transaction.
func (s *ProposalService) issue(ctx context.Context, proposal *models.Proposal, now time.Time) error {
	approval, created, err := s.approvalService.IssueOrUpdate(ctx, proposal, now)
	if err != nil {
		return err
	}

	if created && proposal.Kind == domain.ApplicationTypeMooringLicence && proposal.WaitingListAllocationID != nil {
		if err := s.approvalService.FulfillWaitingListAllocation(ctx, *proposal.WaitingListAllocationID); err != nil {
			return err
		}
	}

	if proposal.PreviousApplicationID != nil {
		if err := s.complianceService.DeleteFutureForProposal(ctx, approval.ID, *proposal.PreviousApplicationID); err != nil {
			return err
		}
	}
	if err := s.complianceService.Generate(ctx, approval, proposal, now); err != nil {
		return err
	}
	if err := s.stickerService.Manage(ctx, approval, proposal); err != nil {
		return err
	}

	status, err := s.stickerService.FinalStatus(ctx, approval.ID)
	if err != nil {
		return err
	}
	proposal.ApprovalID = &approval.ID
	proposal.ProcessingStatus = status
	return s.proposalRepo.Update(ctx, proposal)
}

// Reissue reopens an approved application for re-assessment without
// disturbing the issued entitlement. Another live application on the same
// vessel blocks the reopen; both would otherwise contest the entitlement.
func (s *ProposalService) Reissue(ctx context.Context, proposalID, actorID uint) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ProcessingStatus != domain.StatusApproved || proposal.ApprovalID == nil {
		return nil, domain.ErrInvalidState
	}
	group := proposal.Kind.ApproverGroup()
	if group == "" {
		group = proposal.Kind.AssessorGroup()
	}
	if err := s.requireMember(ctx, actorID, group); err != nil {
		return nil, err
	}

	if proposal.VesselDetails != nil {
		kinds := []domain.ApplicationType{
			domain.ApplicationTypeWaitingList, domain.ApplicationTypeAnnualAdmission,
			domain.ApplicationTypeAuthorisedUser, domain.ApplicationTypeMooringLicence,
		}
		for _, kind := range kinds {
			blocking, err := s.proposalRepo.ListActiveByVessel(ctx, kind, proposal.VesselDetails.VesselID, proposal.ID)
			if err != nil {
				return nil, err
			}
			if len(blocking) > 0 {
				return nil, domain.ErrBlockingProposal
			}
		}
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		approval, err := s.approvalService.approvalRepo.GetByID(ctx, *proposal.ApprovalID)
		if err != nil {
			return err
		}
		approval.Reissued = true
		if err := s.approvalService.approvalRepo.Update(ctx, approval); err != nil {
			return err
		}
		proposal.ProcessingStatus = domain.StatusWithAssessor
		return s.proposalRepo.Update(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Withdraw discards an application. The submitter may abandon a draft; an
// assessor may discard from any later pre-terminal status except while a
// payment is pending. A discarded mooring-licence offer puts its waiting-list
// allocation back in the queue.
func (s *ProposalService) Withdraw(ctx context.Context, proposalID, actorID uint, now time.Time) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ProcessingStatus.IsTerminal() || proposal.ProcessingStatus == domain.StatusAwaitingPayment {
		return nil, domain.ErrInvalidState
	}
	if proposal.SubmitterID == actorID {
		if proposal.ProcessingStatus != domain.StatusDraft {
			return nil, domain.ErrNotAuthorized
		}
	} else if err := s.requireMember(ctx, actorID, proposal.Kind.AssessorGroup()); err != nil {
		return nil, err
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		proposal.ProcessingStatus = domain.StatusDiscarded
		if err := s.proposalRepo.Update(ctx, proposal); err != nil {
			return err
		}
		if proposal.Kind == domain.ApplicationTypeMooringLicence && proposal.WaitingListAllocationID != nil {
			return s.approvalService.ReinstateWaitingListAllocation(ctx, *proposal.WaitingListAllocationID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifySubmitter(ctx, proposal, "proposal_discarded")
	log.Printf("proposal %s discarded", proposal.LodgementNumber)
	return proposal, nil
}

// DocumentsReceived returns an application to assessment once the requested
// documents arrive.
func (s *ProposalService) DocumentsReceived(ctx context.Context, proposalID, actorID uint) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ProcessingStatus != domain.StatusAwaitingDocuments {
		return nil, domain.ErrInvalidState
	}
	if err := s.requireMember(ctx, actorID, proposal.Kind.AssessorGroup()); err != nil {
		return nil, err
	}
	proposal.ProcessingStatus = domain.StatusWithAssessor
	return proposal, s.proposalRepo.Update(ctx, proposal)
}

// ExpireUnpaid is the daily sweep over invoices past the payment deadline:
// the invoice is cancelled at the gateway and the parked application expires.
// Per-row failures are logged and skipped.
func (s *ProposalService) ExpireUnpaid(ctx context.Context, now time.Time) {
	fees, err := s.feeRepo.ListExpiredUnpaidFees(ctx, now.Add(-s.paymentDeadline))
	if err != nil {
		log.Printf("❌ unpaid fee sweep failed to list: %v", err)
		return
	}

	for _, fee := range fees {
		err := s.tx.Transaction(ctx, func(ctx context.Context) error {
			fee.PaymentStatus = domain.PaymentCancelled
			if err := s.feeRepo.UpdateApplicationFee(ctx, fee); err != nil {
				return err
			}
			if fee.Proposal != nil && fee.Proposal.ProcessingStatus == domain.StatusAwaitingPayment {
				fee.Proposal.ProcessingStatus = domain.StatusExpired
				if err := s.proposalRepo.Update(ctx, fee.Proposal); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("❌ failed to expire unpaid fee %d: %v", fee.ID, err)
			continue
		}
		if fee.InvoiceReference != "" {
			if err := s.gateway.CancelInvoice(ctx, fee.InvoiceReference); err != nil {
				log.Printf("⚠️ failed to cancel invoice %s: %v", fee.InvoiceReference, err)
			}
		}
	}
}

// GetByID gets a proposal with its relations.
func (s *ProposalService) GetByID(ctx context.Context, id uint) (*models.Proposal, error) {
	return s.getProposal(ctx, id)
}

// List lists proposals with pagination.
func (s *ProposalService) List(ctx context.Context, offset, limit int) ([]*models.Proposal, int64, error) {
	return s.proposalRepo.List(ctx, offset, limit)
}

// ListBySubmitter lists one user's proposals with pagination.
func (s *ProposalService) ListBySubmitter(ctx context.Context, submitterID uint, offset, limit int) ([]*models.Proposal, int64, error) {
	return s.proposalRepo.ListBySubmitter(ctx, submitterID, offset, limit)
}

// authorizeFinalDecision checks that the actor may take the final decision
// from the proposal's current status, dispatched on the application type.
func (s *ProposalService) authorizeFinalDecision(ctx context.Context, proposal *models.Proposal, actorID uint) error {
	if proposal.Kind.HasApproverStep() {
		if proposal.ProcessingStatus != domain.StatusWithApprover {
			return domain.ErrInvalidState
		}
		return s.requireMember(ctx, actorID, proposal.Kind.ApproverGroup())
	}

	switch proposal.ProcessingStatus {
	case domain.StatusWithAssessor, domain.StatusWithAssessorRequirements:
	default:
		return domain.ErrInvalidState
	}
	return s.requireMember(ctx, actorID, proposal.Kind.AssessorGroup())
}

func (s *ProposalService) requireMember(ctx context.Context, actorID uint, groupName string) error {
	if groupName == "" {
		return domain.ErrNotAuthorized
	}
	ok, err := s.directory.IsMember(ctx, actorID, groupName)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotAuthorized
	}
	return nil
}

func (s *ProposalService) notifySubmitter(ctx context.Context, proposal *models.Proposal, templateKey string) {
	if s.notifier == nil || proposal.Submitter == nil {
		return
	}
	err := s.notifier.Notify(ctx, templateKey, []string{proposal.Submitter.Email}, map[string]interface{}{
		"lodgement_number": proposal.LodgementNumber,
		"status":           string(proposal.ProcessingStatus),
	})
	if err != nil {
		log.Printf("⚠️ failed to send %s for proposal %s: %v", templateKey, proposal.LodgementNumber, err)
	}
}

func (s *ProposalService) getProposal(ctx context.Context, id uint) (*models.Proposal, error) {
	proposal, err := s.proposalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return proposal, nil
}
