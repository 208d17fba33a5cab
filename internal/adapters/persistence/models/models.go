package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'APPLICANT'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// GroupMembership assigns a user to a named authorisation group, e.g. the
// assessor or approver group for one application type.
type GroupMembership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_membership_user_group,unique" json:"user_id"`
	GroupName string    `gorm:"size:50;not null;index:idx_membership_user_group,unique" json:"group_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (GroupMembership) TableName() string {
	return "group_memberships"
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Auth
		&User{},
		&RefreshToken{},
		&GroupMembership{},
		// Fee schedule
		&FeeSeason{},
		&FeePeriod{},
		&VesselSizeCategoryGroup{},
		&VesselSizeCategory{},
		&FeeConstructor{},
		&FeeItem{},
		&AgeGroup{},
		&AdmissionType{},
		// Vessels and moorings
		&Vessel{},
		&VesselDetails{},
		&VesselOwnership{},
		&Mooring{},
		// Proposals
		&Proposal{},
		&ProposalRequirement{},
		// Payments
		&ApplicationFee{},
		&FeeItemApplicationFee{},
		&FeeCalculation{},
		// Approvals
		&Approval{},
		&ApprovalHistory{},
		&MooringOnApproval{},
		&VesselOwnershipOnApproval{},
		&Sticker{},
		// Compliances
		&Compliance{},
	)
}
