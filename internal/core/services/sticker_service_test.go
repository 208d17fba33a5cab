package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/core/domain"
)

func newStickerFixture() (*StickerService, *fakeStickerRepo, *fakeNotifier) {
	repo := &fakeStickerRepo{}
	notifier := &fakeNotifier{}
	return NewStickerService(repo, notifier), repo, notifier
}

func TestStickerService_Manage_RaisesForNewOwnership(t *testing.T) {
	svc, repo, _ := newStickerFixture()
	approval := &models.Approval{ID: 1, Kind: domain.ApplicationTypeMooringLicence, LodgementNumber: "MLA000001"}
	proposal := &models.Proposal{ID: 1, VesselOwnershipID: uintPtr(5)}

	if err := svc.Manage(context.Background(), approval, proposal); err != nil {
		t.Fatalf("Manage error = %v", err)
	}
	if len(repo.stickers) != 1 {
		t.Fatalf("got %d stickers, want 1", len(repo.stickers))
	}
	s := repo.stickers[0]
	if s.Status != models.StickerStatusReady {
		t.Errorf("sticker status = %s, want ready", s.Status)
	}
	if s.VesselOwnershipID == nil || *s.VesselOwnershipID != 5 {
		t.Errorf("sticker ownership = %v, want 5", s.VesselOwnershipID)
	}
}

func TestStickerService_Manage_RecallsSupersededKeepsCovering(t *testing.T) {
	svc, repo, _ := newStickerFixture()
	approval := &models.Approval{ID: 1, Kind: domain.ApplicationTypeMooringLicence}
	repo.stickers = []*models.Sticker{
		{ID: 1, ApprovalID: 1, VesselOwnershipID: uintPtr(5), Status: models.StickerStatusCurrent},
		{ID: 2, ApprovalID: 1, VesselOwnershipID: uintPtr(4), Status: models.StickerStatusCurrent},
		{ID: 3, ApprovalID: 1, VesselOwnershipID: uintPtr(3), Status: models.StickerStatusReturned},
	}
	repo.nextID = 3

	// The proposal keeps ownership 5: its sticker survives, ownership 4's is
	// recalled, the already-returned one is left alone.
	proposal := &models.Proposal{ID: 1, VesselOwnershipID: uintPtr(5)}
	if err := svc.Manage(context.Background(), approval, proposal); err != nil {
		t.Fatalf("Manage error = %v", err)
	}
	if len(repo.stickers) != 3 {
		t.Fatalf("got %d stickers, want 3 (no new sticker raised)", len(repo.stickers))
	}
	if repo.stickers[0].Status != models.StickerStatusCurrent {
		t.Errorf("covering sticker = %s, want current", repo.stickers[0].Status)
	}
	if repo.stickers[1].Status != models.StickerStatusToBeReturned {
		t.Errorf("superseded sticker = %s, want to_be_returned", repo.stickers[1].Status)
	}
	if repo.stickers[2].Status != models.StickerStatusReturned {
		t.Errorf("returned sticker = %s, want left as returned", repo.stickers[2].Status)
	}
}

func TestStickerService_Manage_SkipsStickerlessKinds(t *testing.T) {
	svc, repo, _ := newStickerFixture()
	proposal := &models.Proposal{ID: 1, VesselOwnershipID: uintPtr(5)}

	for _, kind := range []domain.ApplicationType{domain.ApplicationTypeAnnualAdmission, domain.ApplicationTypeWaitingList} {
		approval := &models.Approval{ID: 1, Kind: kind}
		if err := svc.Manage(context.Background(), approval, proposal); err != nil {
			t.Fatalf("Manage(%s) error = %v", kind, err)
		}
	}
	if len(repo.stickers) != 0 {
		t.Errorf("stickerless kinds raised %d stickers, want 0", len(repo.stickers))
	}
}

func TestStickerService_FinalStatus(t *testing.T) {
	svc, repo, _ := newStickerFixture()

	// No stickers at all: done.
	status, err := svc.FinalStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("FinalStatus error = %v", err)
	}
	if status != domain.StatusApproved {
		t.Errorf("FinalStatus(no stickers) = %s, want approved", status)
	}

	// A pending print parks the proposal on printing.
	repo.stickers = []*models.Sticker{
		{ID: 1, ApprovalID: 1, Status: models.StickerStatusCurrent},
		{ID: 2, ApprovalID: 1, Status: models.StickerStatusReady},
	}
	status, _ = svc.FinalStatus(context.Background(), 1)
	if status != domain.StatusPrintingSticker {
		t.Errorf("FinalStatus(pending print) = %s, want printing_sticker", status)
	}

	// A recall outranks everything.
	repo.stickers = append(repo.stickers, &models.Sticker{ID: 3, ApprovalID: 1, Status: models.StickerStatusToBeReturned})
	status, _ = svc.FinalStatus(context.Background(), 1)
	if status != domain.StatusStickerToBeReturned {
		t.Errorf("FinalStatus(recall outstanding) = %s, want sticker_to_be_returned", status)
	}
}

func TestStickerService_MarkPrinted(t *testing.T) {
	svc, repo, _ := newStickerFixture()
	sticker := &models.Sticker{ID: 1, ApprovalID: 1, Status: models.StickerStatusReady}
	repo.stickers = []*models.Sticker{sticker}
	printedOn := date(2025, time.July, 1)

	got, err := svc.MarkPrinted(context.Background(), 1, "S00001234", printedOn)
	if err != nil {
		t.Fatalf("MarkPrinted error = %v", err)
	}
	if got.Status != models.StickerStatusCurrent {
		t.Errorf("status = %s, want current", got.Status)
	}
	if got.Number == nil || *got.Number != "S00001234" {
		t.Errorf("number = %v, want S00001234", got.Number)
	}
	if got.PrintingDate == nil || !got.PrintingDate.Equal(printedOn) {
		t.Errorf("printing date = %v, want %s", got.PrintingDate, printedOn.Format("2006-01-02"))
	}

	// Printing twice is not a valid move.
	if _, err := svc.MarkPrinted(context.Background(), 1, "S00001235", printedOn); !errors.Is(err, ErrStickerNotActionable) {
		t.Errorf("MarkPrinted twice: error = %v, want ErrStickerNotActionable", err)
	}

	if _, err := svc.MarkPrinted(context.Background(), 404, "S1", printedOn); !errors.Is(err, ErrStickerNotFound) {
		t.Errorf("MarkPrinted unknown sticker: error = %v, want ErrStickerNotFound", err)
	}
}

func TestStickerService_RecordReturn(t *testing.T) {
	svc, repo, _ := newStickerFixture()
	sticker := &models.Sticker{ID: 1, ApprovalID: 1, Status: models.StickerStatusCurrent}
	repo.stickers = []*models.Sticker{sticker}

	// Only recalled stickers can come back.
	if _, err := svc.RecordReturn(context.Background(), 1); !errors.Is(err, ErrStickerNotActionable) {
		t.Errorf("RecordReturn current sticker: error = %v, want ErrStickerNotActionable", err)
	}

	sticker.Status = models.StickerStatusToBeReturned
	got, err := svc.RecordReturn(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecordReturn error = %v", err)
	}
	if got.Status != models.StickerStatusReturned {
		t.Errorf("status = %s, want returned", got.Status)
	}
}
