package domain

// ApplicationType identifies the kind of entitlement an application is for.
type ApplicationType string

const (
	ApplicationTypeWaitingList     ApplicationType = "wla"
	ApplicationTypeAnnualAdmission ApplicationType = "aaa"
	ApplicationTypeAuthorisedUser  ApplicationType = "aua"
	ApplicationTypeMooringLicence  ApplicationType = "mla"
	ApplicationTypeDCVPermit       ApplicationType = "dcvp"
	ApplicationTypeDCVAdmission    ApplicationType = "dcva"
)

// LodgementPrefix returns the prefix used when building lodgement numbers.
func (t ApplicationType) LodgementPrefix() string {
	switch t {
	case ApplicationTypeWaitingList:
		return "WL"
	case ApplicationTypeAnnualAdmission:
		return "AA"
	case ApplicationTypeAuthorisedUser:
		return "AU"
	case ApplicationTypeMooringLicence:
		return "ML"
	case ApplicationTypeDCVPermit:
		return "DCVP"
	case ApplicationTypeDCVAdmission:
		return "DCV"
	}
	return "P"
}

// AssessorGroup returns the identity group whose members may assess
// applications of this type.
func (t ApplicationType) AssessorGroup() string {
	switch t {
	case ApplicationTypeWaitingList:
		return "assessors_waiting_list"
	case ApplicationTypeAnnualAdmission:
		return "assessors_annual_admission"
	case ApplicationTypeAuthorisedUser:
		return "assessors_authorised_user"
	case ApplicationTypeMooringLicence:
		return "assessors_mooring_licence"
	}
	return ""
}

// ApproverGroup returns the identity group whose members may finalise
// applications of this type. Waiting-list and annual-admission applications
// are finalised by their assessors and have no separate approver group.
func (t ApplicationType) ApproverGroup() string {
	switch t {
	case ApplicationTypeAuthorisedUser:
		return "approvers_authorised_user"
	case ApplicationTypeMooringLicence:
		return "approvers_mooring_licence"
	}
	return ""
}

// HasApproverStep reports whether final decisions require the approver role.
func (t ApplicationType) HasApproverStep() bool {
	return t.ApproverGroup() != ""
}

// ProposalType distinguishes how an application relates to an existing approval.
type ProposalType string

const (
	ProposalTypeNew       ProposalType = "new"
	ProposalTypeAmendment ProposalType = "amendment"
	ProposalTypeRenewal   ProposalType = "renewal"
	ProposalTypeSwap      ProposalType = "swap"
)

// ResetsEntitlement reports whether this proposal type starts a fresh season
// with no credit for earlier payments.
func (p ProposalType) ResetsEntitlement() bool {
	return p == ProposalTypeNew || p == ProposalTypeRenewal
}

// ProcessingStatus is the internal workflow status of a proposal.
type ProcessingStatus string

const (
	StatusDraft                    ProcessingStatus = "draft"
	StatusWithAssessor             ProcessingStatus = "with_assessor"
	StatusWithAssessorRequirements ProcessingStatus = "with_assessor_requirements"
	StatusWithApprover             ProcessingStatus = "with_approver"
	StatusAwaitingEndorsement      ProcessingStatus = "awaiting_endorsement"
	StatusAwaitingDocuments        ProcessingStatus = "awaiting_documents"
	StatusAwaitingPayment          ProcessingStatus = "awaiting_payment"
	StatusPrintingSticker          ProcessingStatus = "printing_sticker"
	StatusStickerToBeReturned      ProcessingStatus = "sticker_to_be_returned"
	StatusApproved                 ProcessingStatus = "approved"
	StatusDeclined                 ProcessingStatus = "declined"
	StatusDiscarded                ProcessingStatus = "discarded"
	StatusExpired                  ProcessingStatus = "expired"
)

// IsTerminal reports whether no further transition is possible from s.
// Note "approved" is terminal for the proposal only; the approval it created
// lives on and is mutated by later proposals.
func (s ProcessingStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusDiscarded, StatusExpired:
		return true
	}
	return false
}

// ApprovalStatus is the status of an issued entitlement.
type ApprovalStatus string

const (
	ApprovalCurrent     ApprovalStatus = "current"
	ApprovalSuspended   ApprovalStatus = "suspended"
	ApprovalExpired     ApprovalStatus = "expired"
	ApprovalCancelled   ApprovalStatus = "cancelled"
	ApprovalSurrendered ApprovalStatus = "surrendered"
	ApprovalFulfilled   ApprovalStatus = "fulfilled"
)

// PaymentStatus is the status of an invoice at the payment gateway.
type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "unpaid"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverPaid  PaymentStatus = "over_paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Role represents a user role in the system.
type Role string

const (
	RoleApplicant Role = "APPLICANT"
	RoleOfficer   Role = "OFFICER"
	RoleAdmin     Role = "ADMIN"
)
