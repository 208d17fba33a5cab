package services

import (
	"context"
	"errors"
	"log"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/adapters/persistence/repositories"
	"mooringhub/internal/core/domain"
)

// Sticker service errors
var (
	ErrStickerNotFound      = errors.New("sticker not found")
	ErrStickerNotActionable = errors.New("sticker is not in an actionable status")
)

// StickerService manages the physical stickers issued against an approval.
// Stickers are per vessel ownership: when the nominated vessel changes the
// old sticker must come back before the proposal can finish.
type StickerService struct {
	stickerRepo repositories.StickerRepository
	notifier    Notifier
}

// NewStickerService creates a new sticker service
func NewStickerService(stickerRepo repositories.StickerRepository, notifier Notifier) *StickerService {
	return &StickerService{stickerRepo: stickerRepo, notifier: notifier}
}

// Manage reconciles the approval's stickers against the proposal being
// issued. A sticker already covering the proposal's vessel ownership is kept;
// outstanding stickers for other ownerships are recalled; a new sticker is
// raised when the nominated ownership has none. Annual-admission approvals
// carry no stickers.
func (s *StickerService) Manage(ctx context.Context, approval *models.Approval, proposal *models.Proposal) error {
	if approval.Kind == domain.ApplicationTypeAnnualAdmission || approval.Kind == domain.ApplicationTypeWaitingList {
		return nil
	}

	stickers, err := s.stickerRepo.ListByApproval(ctx, approval.ID)
	if err != nil {
		return err
	}

	covered := false
	for _, sticker := range stickers {
		switch sticker.Status {
		case models.StickerStatusReturned, models.StickerStatusExpired, models.StickerStatusCancelled:
			continue
		}
		if proposal.VesselOwnershipID != nil && sticker.VesselOwnershipID != nil &&
			*sticker.VesselOwnershipID == *proposal.VesselOwnershipID {
			covered = true
			continue
		}
		// Sticker belongs to a superseded vessel: recall it.
		if sticker.Status != models.StickerStatusToBeReturned {
			sticker.Status = models.StickerStatusToBeReturned
			if err := s.stickerRepo.Update(ctx, sticker); err != nil {
				return err
			}
			log.Printf("sticker %d on approval %s recalled", sticker.ID, approval.LodgementNumber)
		}
	}

	if covered || proposal.VesselOwnershipID == nil {
		// Nothing new to issue: either the vessel keeps its sticker or no
		// vessel is nominated yet.
		return nil
	}

	sticker := &models.Sticker{
		ApprovalID:        approval.ID,
		ProposalID:        &proposal.ID,
		VesselOwnershipID: proposal.VesselOwnershipID,
		Status:            models.StickerStatusReady,
	}
	if err := s.stickerRepo.Create(ctx, sticker); err != nil {
		return err
	}
	log.Printf("sticker raised for approval %s, vessel ownership %d",
		approval.LodgementNumber, *proposal.VesselOwnershipID)
	return nil
}

// FinalStatus derives the proposal's post-issuance status from the sticker
// state: a recalled sticker outranks a pending print, which outranks done.
func (s *StickerService) FinalStatus(ctx context.Context, approvalID uint) (domain.ProcessingStatus, error) {
	stickers, err := s.stickerRepo.ListByApproval(ctx, approvalID)
	if err != nil {
		return "", err
	}

	awaitingPrint := false
	for _, sticker := range stickers {
		switch sticker.Status {
		case models.StickerStatusToBeReturned:
			return domain.StatusStickerToBeReturned, nil
		case models.StickerStatusReady, models.StickerStatusNotReadyYet, models.StickerStatusAwaitingPrinting:
			awaitingPrint = true
		}
	}
	if awaitingPrint {
		return domain.StatusPrintingSticker, nil
	}
	return domain.StatusApproved, nil
}

// MarkPrinted records that a sticker has been printed and mailed, assigning
// its physical number.
func (s *StickerService) MarkPrinted(ctx context.Context, stickerID uint, number string, printedOn time.Time) (*models.Sticker, error) {
	sticker, err := s.getSticker(ctx, stickerID)
	if err != nil {
		return nil, err
	}
	switch sticker.Status {
	case models.StickerStatusReady, models.StickerStatusNotReadyYet, models.StickerStatusAwaitingPrinting:
	default:
		return nil, ErrStickerNotActionable
	}
	sticker.Status = models.StickerStatusCurrent
	sticker.Number = &number
	sticker.PrintingDate = &printedOn
	sticker.MailingDate = &printedOn
	if err := s.stickerRepo.Update(ctx, sticker); err != nil {
		return nil, err
	}
	return sticker, nil
}

// RecordReturn records that a recalled sticker has come back.
func (s *StickerService) RecordReturn(ctx context.Context, stickerID uint) (*models.Sticker, error) {
	sticker, err := s.getSticker(ctx, stickerID)
	if err != nil {
		return nil, err
	}
	if sticker.Status != models.StickerStatusToBeReturned {
		return nil, ErrStickerNotActionable
	}
	sticker.Status = models.StickerStatusReturned
	if err := s.stickerRepo.Update(ctx, sticker); err != nil {
		return nil, err
	}
	return sticker, nil
}

// ListByApproval lists the stickers on an approval.
func (s *StickerService) ListByApproval(ctx context.Context, approvalID uint) ([]*models.Sticker, error) {
	return s.stickerRepo.ListByApproval(ctx, approvalID)
}

func (s *StickerService) getSticker(ctx context.Context, id uint) (*models.Sticker, error) {
	sticker, err := s.stickerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrStickerNotFound
	}
	return sticker, nil
}
