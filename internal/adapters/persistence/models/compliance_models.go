package models

import (
	"time"

	"gorm.io/gorm"
)

// Compliance statuses
const (
	ComplianceStatusFuture       = "future"
	ComplianceStatusDue          = "due"
	ComplianceStatusOverdue      = "overdue"
	ComplianceStatusWithAssessor = "with_assessor"
	ComplianceStatusApproved     = "approved"
	ComplianceStatusDiscarded    = "discarded"
)

// Compliance is one recurring obligation generated from a proposal
// requirement once an approval is issued. At most one row exists per
// (requirement, due date) pair.
type Compliance struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ApprovalID       uint       `gorm:"not null;index" json:"approval_id"`
	ProposalID       uint       `gorm:"not null;index" json:"proposal_id"`
	RequirementID    uint       `gorm:"not null;index:idx_compliance_req_due" json:"requirement_id"`
	DueDate          time.Time  `gorm:"type:date;not null;index:idx_compliance_req_due" json:"due_date"`
	ProcessingStatus string     `gorm:"size:20;not null;default:'future';index" json:"processing_status"`
	LodgementDate    *time.Time `json:"lodgement_date"`
	Text             string     `gorm:"type:text" json:"text"`
	ReminderSent     bool       `gorm:"default:false" json:"reminder_sent"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Approval    *Approval            `gorm:"foreignKey:ApprovalID" json:"approval,omitempty"`
	Proposal    *Proposal            `gorm:"foreignKey:ProposalID" json:"proposal,omitempty"`
	Requirement *ProposalRequirement `gorm:"foreignKey:RequirementID" json:"requirement,omitempty"`
}

func (Compliance) TableName() string {
	return "compliances"
}

// ComplianceResponse DTO
type ComplianceResponse struct {
	ID               uint       `json:"id"`
	ApprovalID       uint       `json:"approval_id"`
	ProposalID       uint       `json:"proposal_id"`
	RequirementID    uint       `json:"requirement_id"`
	DueDate          time.Time  `json:"due_date"`
	ProcessingStatus string     `json:"processing_status"`
	LodgementDate    *time.Time `json:"lodgement_date"`
	Text             string     `json:"text"`
}

func (c *Compliance) ToResponse() *ComplianceResponse {
	return &ComplianceResponse{
		ID:               c.ID,
		ApprovalID:       c.ApprovalID,
		ProposalID:       c.ProposalID,
		RequirementID:    c.RequirementID,
		DueDate:          c.DueDate,
		ProcessingStatus: c.ProcessingStatus,
		LodgementDate:    c.LodgementDate,
		Text:             c.Text,
	}
}
