package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/adapters/persistence/repositories"
	"mooringhub/internal/core/domain"
)

// ApprovalService creates and mutates issued entitlements. An approval is
// created once, by the first successful proposal, and every later renewal or
// amendment mutates that same row so external references stay stable.
type ApprovalService struct {
	approvalRepo repositories.ApprovalRepository
}

// NewApprovalService creates a new approval service
func NewApprovalService(approvalRepo repositories.ApprovalRepository) *ApprovalService {
	return &ApprovalService{approvalRepo: approvalRepo}
}

// IssueOrUpdate issues the entitlement for a finally-approved proposal. New
// proposals create the approval; amendments mutate it in place without
// touching the expiry; renewals mutate it and push the expiry out. The bool
// result reports whether a new approval was created.
func (s *ApprovalService) IssueOrUpdate(ctx context.Context, proposal *models.Proposal, now time.Time) (*models.Approval, bool, error) {
	switch proposal.ProposalTypeCode {
	case domain.ProposalTypeAmendment, domain.ProposalTypeRenewal:
		if proposal.ApprovalID == nil {
			return nil, false, domain.ErrInvalidState
		}
		approval, err := s.approvalRepo.GetByID(ctx, *proposal.ApprovalID)
		if err != nil {
			return nil, false, err
		}
		if err := s.update(ctx, approval, proposal, now); err != nil {
			return nil, false, err
		}
		return approval, false, nil
	default:
		approval, err := s.create(ctx, proposal, now)
		if err != nil {
			return nil, false, err
		}
		return approval, true, nil
	}
}

func (s *ApprovalService) create(ctx context.Context, proposal *models.Proposal, now time.Time) (*models.Approval, error) {
	startDate := now
	approval := &models.Approval{
		Kind:              proposal.Kind,
		Status:            domain.ApprovalCurrent,
		IssueDate:         &now,
		StartDate:         &startDate,
		ExpiryDate:        proposal.ProposedExpiryDate,
		SubmitterID:       proposal.SubmitterID,
		CurrentProposalID: &proposal.ID,
	}

	if proposal.Kind == domain.ApplicationTypeWaitingList {
		waiting := "waiting"
		order, err := s.nextQueueOrder(ctx)
		if err != nil {
			return nil, err
		}
		approval.InternalStatus = &waiting
		approval.WlaOrder = &order
		approval.WlaQueueDate = &now
	}

	if err := s.approvalRepo.Create(ctx, approval); err != nil {
		return nil, err
	}

	// The lodgement number embeds the database id, so it is assigned after
	// the insert.
	approval.LodgementNumber = fmt.Sprintf("%sA%06d", proposal.Kind.LodgementPrefix(), approval.ID)
	if err := s.approvalRepo.Update(ctx, approval); err != nil {
		return nil, err
	}

	if err := s.writeHistory(ctx, approval, proposal, models.HistoryReasonNew, now); err != nil {
		return nil, err
	}
	if err := s.reconcileLinks(ctx, approval, proposal, now); err != nil {
		return nil, err
	}

	log.Printf("✅ approval %s issued for proposal %s", approval.LodgementNumber, proposal.LodgementNumber)
	return approval, nil
}

func (s *ApprovalService) update(ctx context.Context, approval *models.Approval, proposal *models.Proposal, now time.Time) error {
	approval.CurrentProposalID = &proposal.ID
	approval.IssueDate = &now
	approval.Status = domain.ApprovalCurrent
	approval.RenewalSent = false

	reason := models.HistoryReasonAmendment
	if proposal.ProposalTypeCode == domain.ProposalTypeRenewal {
		reason = models.HistoryReasonRenewal
		approval.ExpiryDate = proposal.ProposedExpiryDate
		approval.RenewalCount++
	}
	if approval.Reissued {
		reason = models.HistoryReasonReissue
		approval.Reissued = false
	}

	if err := s.approvalRepo.Update(ctx, approval); err != nil {
		return err
	}
	if err := s.writeHistory(ctx, approval, proposal, reason, now); err != nil {
		return err
	}
	if err := s.reconcileLinks(ctx, approval, proposal, now); err != nil {
		return err
	}

	log.Printf("✅ approval %s updated by proposal %s (%s)",
		approval.LodgementNumber, proposal.LodgementNumber, proposal.ProposalTypeCode)
	return nil
}

func (s *ApprovalService) writeHistory(ctx context.Context, approval *models.Approval, proposal *models.Proposal, reason models.ApprovalHistoryReason, now time.Time) error {
	return s.approvalRepo.CreateHistory(ctx, &models.ApprovalHistory{
		ApprovalID: approval.ID,
		ProposalID: proposal.ID,
		Reason:     reason,
		StartDate:  now,
		EndDate:    approval.ExpiryDate,
	})
}

// reconcileLinks brings the approval's mooring and vessel ownership links in
// line with the proposal: superseded links are end-dated, never deleted, so
// the history of what was held and when survives.
func (s *ApprovalService) reconcileLinks(ctx context.Context, approval *models.Approval, proposal *models.Proposal, now time.Time) error {
	mooringID := proposal.ProposedMooringID
	if mooringID == nil {
		mooringID = proposal.MooringID
	}

	mooringCovered := false
	for i := range approval.Moorings {
		link := &approval.Moorings[i]
		if link.EndDate != nil {
			continue
		}
		if mooringID != nil && link.MooringID == *mooringID {
			mooringCovered = true
			continue
		}
		if proposal.KeepExistingMooring {
			continue
		}
		endDate := now
		link.EndDate = &endDate
		if err := s.approvalRepo.UpdateMooringLink(ctx, link); err != nil {
			return err
		}
	}
	if mooringID != nil && !mooringCovered {
		link := &models.MooringOnApproval{
			ApprovalID:   approval.ID,
			MooringID:    *mooringID,
			SiteLicensee: approval.Kind == domain.ApplicationTypeMooringLicence,
		}
		if err := s.approvalRepo.CreateMooringLink(ctx, link); err != nil {
			return err
		}
		if err := s.writeHistory(ctx, approval, proposal, models.HistoryReasonMooringAdded, now); err != nil {
			return err
		}
	}

	ownershipCovered := false
	for i := range approval.VesselOwnerships {
		link := &approval.VesselOwnerships[i]
		if link.EndDate != nil {
			continue
		}
		if proposal.VesselOwnershipID != nil && link.VesselOwnershipID == *proposal.VesselOwnershipID {
			ownershipCovered = true
			continue
		}
		endDate := now
		link.EndDate = &endDate
		if err := s.approvalRepo.UpdateVesselOwnershipLink(ctx, link); err != nil {
			return err
		}
	}
	if proposal.VesselOwnershipID != nil && !ownershipCovered {
		link := &models.VesselOwnershipOnApproval{
			ApprovalID:        approval.ID,
			VesselOwnershipID: *proposal.VesselOwnershipID,
		}
		if err := s.approvalRepo.CreateVesselOwnershipLink(ctx, link); err != nil {
			return err
		}
		if err := s.writeHistory(ctx, approval, proposal, models.HistoryReasonVesselAdded, now); err != nil {
			return err
		}
	}
	return nil
}

// nextQueueOrder returns the next waiting-list queue position.
func (s *ApprovalService) nextQueueOrder(ctx context.Context) (int, error) {
	allocations, err := s.approvalRepo.ListWaitingListAllocations(ctx)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, a := range allocations {
		if a.WlaOrder != nil && *a.WlaOrder > max {
			max = *a.WlaOrder
		}
	}
	return max + 1, nil
}

// FulfillWaitingListAllocation marks a waiting-list allocation as consumed by
// an issued mooring licence.
func (s *ApprovalService) FulfillWaitingListAllocation(ctx context.Context, allocationID uint) error {
	allocation, err := s.approvalRepo.GetByID(ctx, allocationID)
	if err != nil {
		return err
	}
	fulfilled := "fulfilled"
	allocation.InternalStatus = &fulfilled
	allocation.Status = domain.ApprovalFulfilled
	return s.approvalRepo.Update(ctx, allocation)
}

// ReinstateWaitingListAllocation puts an allocation back in the queue at the
// end, used when the mooring licence offer it backed is declined.
func (s *ApprovalService) ReinstateWaitingListAllocation(ctx context.Context, allocationID uint, now time.Time) error {
	allocation, err := s.approvalRepo.GetByID(ctx, allocationID)
	if err != nil {
		return err
	}
	order, err := s.nextQueueOrder(ctx)
	if err != nil {
		return err
	}
	waiting := "waiting"
	allocation.InternalStatus = &waiting
	allocation.Status = domain.ApprovalCurrent
	allocation.WlaOrder = &order
	allocation.WlaQueueDate = &now
	if err := s.approvalRepo.Update(ctx, allocation); err != nil {
		return err
	}
	log.Printf("waiting list allocation %s reinstated at position %d", allocation.LodgementNumber, order)
	return nil
}

// ListWaitingListAllocations returns the waiting-list queue in queue order.
func (s *ApprovalService) ListWaitingListAllocations(ctx context.Context) ([]*models.Approval, error) {
	return s.approvalRepo.ListWaitingListAllocations(ctx)
}

// GetByID gets an approval with its relations.
func (s *ApprovalService) GetByID(ctx context.Context, id uint) (*models.Approval, error) {
	approval, err := s.approvalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return approval, nil
}
