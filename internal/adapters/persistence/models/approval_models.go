package models

import (
	"time"

	"mooringhub/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Approval is the issued entitlement. It is created once at the first
// successful final approval and mutated in place by later renewal and
// amendment proposals.
type Approval struct {
	ID                uint                   `gorm:"primaryKey" json:"id"`
	Kind              domain.ApplicationType `gorm:"size:10;not null;index" json:"kind"`
	LodgementNumber   string                 `gorm:"size:20;uniqueIndex" json:"lodgement_number"`
	Status            domain.ApprovalStatus  `gorm:"size:20;not null;default:'current';index" json:"status"`
	IssueDate         *time.Time             `json:"issue_date"`
	StartDate         *time.Time             `gorm:"type:date" json:"start_date"`
	ExpiryDate        *time.Time             `gorm:"type:date" json:"expiry_date"`
	SubmitterID       uint                   `gorm:"not null;index" json:"submitter_id"`
	CurrentProposalID *uint                  `gorm:"index" json:"current_proposal_id"`

	Reissued     bool `gorm:"default:false" json:"reissued"`
	RenewalSent  bool `gorm:"default:false" json:"renewal_sent"`
	RenewalCount int  `gorm:"default:0" json:"renewal_count"`

	// Waiting-list allocations only.
	InternalStatus *string    `gorm:"size:20" json:"internal_status"`
	WlaOrder       *int       `json:"wla_order"`
	WlaQueueDate   *time.Time `json:"wla_queue_date"`

	// Vessel-nomination grace period bookkeeping.
	VesselNominationReminderSent bool `gorm:"default:false" json:"vessel_nomination_reminder_sent"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Submitter        *User                       `gorm:"foreignKey:SubmitterID" json:"submitter,omitempty"`
	CurrentProposal  *Proposal                   `gorm:"foreignKey:CurrentProposalID" json:"current_proposal,omitempty"`
	Moorings         []MooringOnApproval         `gorm:"foreignKey:ApprovalID" json:"moorings,omitempty"`
	VesselOwnerships []VesselOwnershipOnApproval `gorm:"foreignKey:ApprovalID" json:"vessel_ownerships,omitempty"`
	Stickers         []Sticker                   `gorm:"foreignKey:ApprovalID" json:"stickers,omitempty"`
	Histories        []ApprovalHistory           `gorm:"foreignKey:ApprovalID" json:"histories,omitempty"`
}

func (Approval) TableName() string {
	return "approvals"
}

// IsCurrent reports whether the entitlement is in force on the given date.
func (a *Approval) IsCurrent(on time.Time) bool {
	if a.Status != domain.ApprovalCurrent && a.Status != domain.ApprovalSuspended {
		return false
	}
	if a.StartDate != nil && on.Before(*a.StartDate) {
		return false
	}
	if a.ExpiryDate != nil && on.After(*a.ExpiryDate) {
		return false
	}
	return true
}

// ApprovalHistoryReason records which event a history entry describes.
type ApprovalHistoryReason string

const (
	HistoryReasonNew         ApprovalHistoryReason = "new"
	HistoryReasonRenewal     ApprovalHistoryReason = "renewal"
	HistoryReasonAmendment   ApprovalHistoryReason = "amendment"
	HistoryReasonVesselAdded ApprovalHistoryReason = "vessel_add"
	HistoryReasonMooringAdded ApprovalHistoryReason = "mooring_add"
	HistoryReasonReissue     ApprovalHistoryReason = "reissue"
)

// ApprovalHistory is one append-only entry written whenever the approval is
// issued or updated.
type ApprovalHistory struct {
	ID         uint                  `gorm:"primaryKey" json:"id"`
	ApprovalID uint                  `gorm:"not null;index" json:"approval_id"`
	ProposalID uint                  `gorm:"not null" json:"proposal_id"`
	Reason     ApprovalHistoryReason `gorm:"size:20;not null" json:"reason"`
	StartDate  time.Time             `json:"start_date"`
	EndDate    *time.Time            `json:"end_date"`
	CreatedAt  time.Time             `gorm:"autoCreateTime" json:"created_at"`

	Approval *Approval `gorm:"foreignKey:ApprovalID" json:"approval,omitempty"`
	Proposal *Proposal `gorm:"foreignKey:ProposalID" json:"proposal,omitempty"`
}

func (ApprovalHistory) TableName() string {
	return "approval_histories"
}

// Mooring is a physical mooring site.
type Mooring struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:50;uniqueIndex;not null" json:"name"`
	MaxVesselLength decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"max_vessel_length"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Mooring) TableName() string {
	return "moorings"
}

// FitsVessel reports whether a vessel of the given length may use the mooring.
func (m *Mooring) FitsVessel(length decimal.Decimal) bool {
	return length.LessThanOrEqual(m.MaxVesselLength)
}

// MooringOnApproval links a mooring to an approval; an end date closes the
// link without losing the history.
type MooringOnApproval struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ApprovalID   uint       `gorm:"not null;index" json:"approval_id"`
	MooringID    uint       `gorm:"not null;index" json:"mooring_id"`
	SiteLicensee bool       `gorm:"default:false" json:"site_licensee"`
	EndDate      *time.Time `gorm:"type:date" json:"end_date"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Approval *Approval `gorm:"foreignKey:ApprovalID" json:"approval,omitempty"`
	Mooring  *Mooring  `gorm:"foreignKey:MooringID" json:"mooring,omitempty"`
}

func (MooringOnApproval) TableName() string {
	return "moorings_on_approval"
}

// VesselOwnershipOnApproval links a vessel ownership to an approval.
type VesselOwnershipOnApproval struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ApprovalID        uint       `gorm:"not null;index" json:"approval_id"`
	VesselOwnershipID uint       `gorm:"not null;index" json:"vessel_ownership_id"`
	EndDate           *time.Time `gorm:"type:date" json:"end_date"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Approval        *Approval        `gorm:"foreignKey:ApprovalID" json:"approval,omitempty"`
	VesselOwnership *VesselOwnership `gorm:"foreignKey:VesselOwnershipID" json:"vessel_ownership,omitempty"`
}

func (VesselOwnershipOnApproval) TableName() string {
	return "vessel_ownerships_on_approval"
}

// Sticker statuses
const (
	StickerStatusReady           = "ready"
	StickerStatusNotReadyYet     = "not_ready_yet"
	StickerStatusAwaitingPrinting = "awaiting_printing"
	StickerStatusCurrent         = "current"
	StickerStatusToBeReturned    = "to_be_returned"
	StickerStatusReturned        = "returned"
	StickerStatusExpired         = "expired"
	StickerStatusCancelled       = "cancelled"
)

// Sticker is the physical sticker issued against an approval for one vessel.
type Sticker struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Number            *string   `gorm:"size:9;uniqueIndex" json:"number"`
	ApprovalID        uint      `gorm:"not null;index" json:"approval_id"`
	ProposalID        *uint     `json:"proposal_id"`
	VesselOwnershipID *uint     `gorm:"index" json:"vessel_ownership_id"`
	Status            string    `gorm:"size:20;not null;default:'ready'" json:"status"`
	PrintingDate      *time.Time `gorm:"type:date" json:"printing_date"`
	MailingDate       *time.Time `gorm:"type:date" json:"mailing_date"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Approval        *Approval        `gorm:"foreignKey:ApprovalID" json:"approval,omitempty"`
	VesselOwnership *VesselOwnership `gorm:"foreignKey:VesselOwnershipID" json:"vessel_ownership,omitempty"`
}

func (Sticker) TableName() string {
	return "stickers"
}

// IsOutstanding reports whether the sticker is still in flight, either
// waiting to be printed or waiting to come back.
func (s *Sticker) IsOutstanding() bool {
	switch s.Status {
	case StickerStatusReady, StickerStatusNotReadyYet, StickerStatusAwaitingPrinting, StickerStatusToBeReturned:
		return true
	}
	return false
}
