package models

import (
	"time"

	"mooringhub/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Proposal is one lodged application. Kind discriminates the four subtypes
// (waiting-list, annual-admission, authorised-user, mooring-licence); the
// subtype-specific behaviour is dispatched on it, never probed.
type Proposal struct {
	ID               uint                    `gorm:"primaryKey" json:"id"`
	Kind             domain.ApplicationType  `gorm:"size:10;not null;index" json:"kind"`
	ProposalTypeCode domain.ProposalType     `gorm:"size:20;not null" json:"proposal_type_code"`
	LodgementNumber  string                  `gorm:"size:20;uniqueIndex" json:"lodgement_number"`
	ProcessingStatus domain.ProcessingStatus `gorm:"size:40;not null;default:'draft';index" json:"processing_status"`

	SubmitterID   uint       `gorm:"not null;index" json:"submitter_id"`
	PostalAddress string     `gorm:"size:255" json:"postal_address"`
	LodgementDate *time.Time `json:"lodgement_date"`

	PreviousApplicationID *uint `gorm:"index" json:"previous_application_id"`
	ApprovalID            *uint `gorm:"index" json:"approval_id"`
	VesselDetailsID       *uint `gorm:"index" json:"vessel_details_id"`
	VesselOwnershipID     *uint `json:"vessel_ownership_id"`

	// Authorised-user applications only.
	MooringAuthorisationPreference string `gorm:"size:20" json:"mooring_authorisation_preference"`
	KeepExistingMooring            bool   `gorm:"default:false" json:"keep_existing_mooring"`
	MooringID                      *uint  `json:"mooring_id"`

	// Waiting-list allocation this application consumes (mooring-licence only).
	WaitingListAllocationID *uint `json:"waiting_list_allocation_id"`

	AutoApprove     bool       `gorm:"default:false" json:"auto_approve"`
	ProposedDecline *string    `gorm:"type:text" json:"proposed_decline"`
	DeclineReason   *string    `gorm:"type:text" json:"decline_reason"`
	ApproverComment string     `gorm:"type:text" json:"approver_comment"`

	// Proposed issuance payload recorded at propose-approval time.
	ProposedExpiryDate *time.Time `gorm:"type:date" json:"proposed_expiry_date"`
	ProposedMooringID  *uint      `json:"proposed_mooring_id"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Submitter           *User                 `gorm:"foreignKey:SubmitterID" json:"submitter,omitempty"`
	PreviousApplication *Proposal             `gorm:"foreignKey:PreviousApplicationID" json:"previous_application,omitempty"`
	Approval            *Approval             `gorm:"foreignKey:ApprovalID" json:"approval,omitempty"`
	VesselDetails       *VesselDetails        `gorm:"foreignKey:VesselDetailsID" json:"vessel_details,omitempty"`
	VesselOwnership     *VesselOwnership      `gorm:"foreignKey:VesselOwnershipID" json:"vessel_ownership,omitempty"`
	Mooring             *Mooring              `gorm:"foreignKey:MooringID" json:"mooring,omitempty"`
	Requirements        []ProposalRequirement `gorm:"foreignKey:ProposalID" json:"requirements,omitempty"`
	ListedVessels       []VesselDetails       `gorm:"many2many:proposal_listed_vessels" json:"listed_vessels,omitempty"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// AcceptsNullVessel reports whether the application may be lodged without a
// vessel. Only amendments and renewals of an existing entitlement may.
func (p *Proposal) AcceptsNullVessel() bool {
	switch p.Kind {
	case domain.ApplicationTypeWaitingList, domain.ApplicationTypeAuthorisedUser, domain.ApplicationTypeMooringLicence:
		return p.ProposalTypeCode == domain.ProposalTypeAmendment || p.ProposalTypeCode == domain.ProposalTypeRenewal
	}
	return false
}

// VesselLength returns the applicable length of the nominated vessel, or
// zero when no vessel is nominated.
func (p *Proposal) VesselLength() decimal.Decimal {
	if p.VesselDetails == nil {
		return decimal.Zero
	}
	return p.VesselDetails.ApplicableLength
}

// LargestVesselLength returns the largest applicable length across the
// listed vessels, falling back to the nominated vessel. Mooring-licence
// renewals price their main component against the largest vessel.
func (p *Proposal) LargestVesselLength() decimal.Decimal {
	largest := p.VesselLength()
	for i := range p.ListedVessels {
		if p.ListedVessels[i].ApplicableLength.GreaterThan(largest) {
			largest = p.ListedVessels[i].ApplicableLength
		}
	}
	return largest
}

// ProposalResponse DTO
type ProposalResponse struct {
	ID               uint                    `json:"id"`
	Kind             domain.ApplicationType  `json:"kind"`
	ProposalTypeCode domain.ProposalType     `json:"proposal_type_code"`
	LodgementNumber  string                  `json:"lodgement_number"`
	ProcessingStatus domain.ProcessingStatus `json:"processing_status"`
	SubmitterID      uint                    `json:"submitter_id"`
	ApprovalID       *uint                   `json:"approval_id"`
	LodgementDate    *time.Time              `json:"lodgement_date"`
	VesselRegoNo     string                  `json:"vessel_rego_no,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func (p *Proposal) ToResponse() *ProposalResponse {
	resp := &ProposalResponse{
		ID:               p.ID,
		Kind:             p.Kind,
		ProposalTypeCode: p.ProposalTypeCode,
		LodgementNumber:  p.LodgementNumber,
		ProcessingStatus: p.ProcessingStatus,
		SubmitterID:      p.SubmitterID,
		ApprovalID:       p.ApprovalID,
		LodgementDate:    p.LodgementDate,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.VesselDetails != nil && p.VesselDetails.Vessel != nil {
		resp.VesselRegoNo = p.VesselDetails.Vessel.RegoNo
	}
	return resp
}

// RecurrenceUnit is how often a recurring requirement falls due.
type RecurrenceUnit string

const (
	RecurWeekly  RecurrenceUnit = "weekly"
	RecurMonthly RecurrenceUnit = "monthly"
	RecurYearly  RecurrenceUnit = "yearly"
)

// ProposalRequirement is a condition attached to a proposal that turns into
// recurring compliance obligations once an approval is issued.
type ProposalRequirement struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	ProposalID         uint            `gorm:"not null;index" json:"proposal_id"`
	Requirement        string          `gorm:"type:text;not null" json:"requirement"`
	DueDate            *time.Time      `gorm:"type:date" json:"due_date"`
	Recurrence         bool            `gorm:"default:false" json:"recurrence"`
	RecurrenceUnit     *RecurrenceUnit `gorm:"size:10" json:"recurrence_unit"`
	RecurrenceSchedule int             `gorm:"default:1" json:"recurrence_schedule"`
	IsDeleted          bool            `gorm:"default:false" json:"is_deleted"`
	CopiedFromID       *uint           `gorm:"index" json:"copied_from_id"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`

	Proposal   *Proposal            `gorm:"foreignKey:ProposalID" json:"proposal,omitempty"`
	CopiedFrom *ProposalRequirement `gorm:"foreignKey:CopiedFromID" json:"copied_from,omitempty"`
}

func (ProposalRequirement) TableName() string {
	return "proposal_requirements"
}

// NextDueDate advances a due date by one recurrence interval. Monthly
// recurrence advances by four weeks, yearly by 365 days.
func (r *ProposalRequirement) NextDueDate(from time.Time) time.Time {
	schedule := r.RecurrenceSchedule
	if schedule < 1 {
		schedule = 1
	}
	unit := RecurWeekly
	if r.RecurrenceUnit != nil {
		unit = *r.RecurrenceUnit
	}
	switch unit {
	case RecurMonthly:
		return from.AddDate(0, 0, 28*schedule)
	case RecurYearly:
		return from.AddDate(0, 0, 365*schedule)
	default:
		return from.AddDate(0, 0, 7*schedule)
	}
}

// Vessel is the physical craft; ownership and measured details hang off it.
type Vessel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RegoNo    string    `gorm:"size:30;uniqueIndex;not null" json:"rego_no"`
	Name      string    `gorm:"size:100" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Vessel) TableName() string {
	return "vessels"
}

// VesselDetails is a dated snapshot of a vessel's measurements.
type VesselDetails struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	VesselID         uint            `gorm:"not null;index" json:"vessel_id"`
	ApplicableLength decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"applicable_length"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`

	Vessel *Vessel `gorm:"foreignKey:VesselID" json:"vessel,omitempty"`
}

func (VesselDetails) TableName() string {
	return "vessel_details"
}

// VesselOwnership records who owned a vessel and when the ownership ended.
type VesselOwnership struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	VesselID  uint       `gorm:"not null;index" json:"vessel_id"`
	OwnerID   uint       `gorm:"not null;index" json:"owner_id"`
	EndDate   *time.Time `gorm:"type:date" json:"end_date"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Vessel *Vessel `gorm:"foreignKey:VesselID" json:"vessel,omitempty"`
	Owner  *User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (VesselOwnership) TableName() string {
	return "vessel_ownerships"
}
