package repositories

import (
	"context"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/core/domain"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	IsMember(ctx context.Context, userID uint, groupName string) (bool, error)
	AddToGroup(ctx context.Context, userID uint, groupName string) error
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}

// FeeRepository defines fee schedule and payment data access
type FeeRepository interface {
	ListEnabledConstructors(ctx context.Context, appType domain.ApplicationType) ([]*models.FeeConstructor, error)
	GetConstructorByID(ctx context.Context, id uint) (*models.FeeConstructor, error)
	GetConstructorBySeason(ctx context.Context, appType domain.ApplicationType, seasonID uint) (*models.FeeConstructor, error)
	CountEnabledForSeason(ctx context.Context, appType domain.ApplicationType, seasonID uint, excludeID uint) (int64, error)
	SaveConstructor(ctx context.Context, fc *models.FeeConstructor) error
	GetOrCreateFeeItem(ctx context.Context, item *models.FeeItem) (*models.FeeItem, bool, error)
	GetFeeItemByID(ctx context.Context, id uint) (*models.FeeItem, error)
	UpdateFeeItem(ctx context.Context, item *models.FeeItem) error
	DeleteFeeItemsExcept(ctx context.Context, constructorID uint, keepIDs []uint) error
	HasFundedPayments(ctx context.Context, constructorID uint) (bool, error)

	CreateApplicationFee(ctx context.Context, fee *models.ApplicationFee) error
	UpdateApplicationFee(ctx context.Context, fee *models.ApplicationFee) error
	GetApplicationFeeByInvoice(ctx context.Context, invoiceReference string) (*models.ApplicationFee, error)
	GetActiveApplicationFee(ctx context.Context, proposalID uint) (*models.ApplicationFee, error)
	ListApplicationFees(ctx context.Context, proposalID uint) ([]*models.ApplicationFee, error)
	CreateFeeItemApplicationFee(ctx context.Context, link *models.FeeItemApplicationFee) error
	UpdateFeeItemApplicationFee(ctx context.Context, link *models.FeeItemApplicationFee) error
	ListPaidFeeItemLinks(ctx context.Context, proposalID uint) ([]*models.FeeItemApplicationFee, error)
	CreateFeeCalculation(ctx context.Context, calc *models.FeeCalculation) error
	ListExpiredUnpaidFees(ctx context.Context, olderThan time.Time) ([]*models.ApplicationFee, error)
}

// ProposalRepository defines proposal data access
type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id uint) (*models.Proposal, error)
	Update(ctx context.Context, proposal *models.Proposal) error
	List(ctx context.Context, offset, limit int) ([]*models.Proposal, int64, error)
	ListBySubmitter(ctx context.Context, submitterID uint, offset, limit int) ([]*models.Proposal, int64, error)
	ListByStatus(ctx context.Context, status domain.ProcessingStatus, offset, limit int) ([]*models.Proposal, int64, error)
	ListActiveByVessel(ctx context.Context, kind domain.ApplicationType, vesselID uint, excludeProposalID uint) ([]*models.Proposal, error)
	CreateRequirement(ctx context.Context, req *models.ProposalRequirement) error
	ListRequirements(ctx context.Context, proposalID uint) ([]*models.ProposalRequirement, error)
	GetVesselDetails(ctx context.Context, id uint) (*models.VesselDetails, error)
}

// ApprovalRepository defines approval data access
type ApprovalRepository interface {
	Create(ctx context.Context, approval *models.Approval) error
	GetByID(ctx context.Context, id uint) (*models.Approval, error)
	Update(ctx context.Context, approval *models.Approval) error
	ListCurrentByVessel(ctx context.Context, vesselID uint, on time.Time) ([]*models.Approval, error)
	ListWaitingListAllocations(ctx context.Context) ([]*models.Approval, error)
	ListExpiringSoon(ctx context.Context, before time.Time) ([]*models.Approval, error)
	ListForVesselNominationCheck(ctx context.Context) ([]*models.Approval, error)
	CreateHistory(ctx context.Context, history *models.ApprovalHistory) error
	CreateMooringLink(ctx context.Context, link *models.MooringOnApproval) error
	UpdateMooringLink(ctx context.Context, link *models.MooringOnApproval) error
	CreateVesselOwnershipLink(ctx context.Context, link *models.VesselOwnershipOnApproval) error
	UpdateVesselOwnershipLink(ctx context.Context, link *models.VesselOwnershipOnApproval) error
	GetMooring(ctx context.Context, id uint) (*models.Mooring, error)
}

// StickerRepository defines sticker data access
type StickerRepository interface {
	Create(ctx context.Context, sticker *models.Sticker) error
	GetByID(ctx context.Context, id uint) (*models.Sticker, error)
	Update(ctx context.Context, sticker *models.Sticker) error
	ListByApproval(ctx context.Context, approvalID uint) ([]*models.Sticker, error)
}

// ComplianceRepository defines compliance data access
type ComplianceRepository interface {
	GetOrCreate(ctx context.Context, compliance *models.Compliance) (*models.Compliance, bool, error)
	GetByID(ctx context.Context, id uint) (*models.Compliance, error)
	Update(ctx context.Context, compliance *models.Compliance) error
	ListByApproval(ctx context.Context, approvalID uint) ([]*models.Compliance, error)
	ListFutureByApprovalAndProposal(ctx context.Context, approvalID, proposalID uint) ([]*models.Compliance, error)
	Delete(ctx context.Context, id uint) error
	ListDueForStatusUpdate(ctx context.Context) ([]*models.Compliance, error)
	List(ctx context.Context, status string, offset, limit int) ([]*models.Compliance, int64, error)
}
