package models

import (
	"testing"
	"time"

	"mooringhub/internal/core/domain"
)

func TestApproval_IsCurrent(t *testing.T) {
	start := date(2025, time.April, 1)
	expiry := date(2026, time.March, 31)
	on := date(2025, time.August, 15)

	a := &Approval{Status: domain.ApprovalCurrent, StartDate: &start, ExpiryDate: &expiry}
	if !a.IsCurrent(on) {
		t.Error("approval within its dates should be current")
	}
	if a.IsCurrent(date(2025, time.March, 1)) {
		t.Error("approval before its start date should not be current")
	}
	if a.IsCurrent(date(2026, time.April, 1)) {
		t.Error("approval after its expiry should not be current")
	}

	// Suspended still counts as in force for coverage purposes.
	a.Status = domain.ApprovalSuspended
	if !a.IsCurrent(on) {
		t.Error("suspended approval should still count as in force")
	}

	a.Status = domain.ApprovalCancelled
	if a.IsCurrent(on) {
		t.Error("cancelled approval should not be current")
	}

	// Open-ended approvals have no expiry.
	openEnded := &Approval{Status: domain.ApprovalCurrent, StartDate: &start}
	if !openEnded.IsCurrent(date(2030, time.January, 1)) {
		t.Error("approval without expiry should stay current")
	}
}

func TestMooring_FitsVessel(t *testing.T) {
	m := &Mooring{MaxVesselLength: dec("15")}
	if !m.FitsVessel(dec("15")) {
		t.Error("vessel at the limit should fit")
	}
	if m.FitsVessel(dec("15.01")) {
		t.Error("vessel over the limit should not fit")
	}
}

func TestSticker_IsOutstanding(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StickerStatusReady, true},
		{StickerStatusNotReadyYet, true},
		{StickerStatusAwaitingPrinting, true},
		{StickerStatusToBeReturned, true},
		{StickerStatusCurrent, false},
		{StickerStatusReturned, false},
		{StickerStatusExpired, false},
		{StickerStatusCancelled, false},
	}
	for _, tt := range tests {
		s := &Sticker{Status: tt.status}
		if got := s.IsOutstanding(); got != tt.want {
			t.Errorf("IsOutstanding(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
