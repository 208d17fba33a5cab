package repositories

import (
	"context"

	"mooringhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := dbFrom(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername gets a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := dbFrom(ctx, r.db).WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := dbFrom(ctx, r.db).WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Save(user).Error
}

// List lists users with pagination
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	if err := dbFrom(ctx, r.db).WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := dbFrom(ctx, r.db).WithContext(ctx).Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ExistsByUsername checks if username exists
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if email exists
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// IsMember checks whether the user belongs to the named authorisation group
func (r *userRepository) IsMember(ctx context.Context, userID uint, groupName string) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Model(&models.GroupMembership{}).
		Where("user_id = ? AND group_name = ?", userID, groupName).
		Count(&count).Error
	return count > 0, err
}

// AddToGroup adds the user to the named authorisation group (idempotent)
func (r *userRepository) AddToGroup(ctx context.Context, userID uint, groupName string) error {
	membership := &models.GroupMembership{UserID: userID, GroupName: groupName}
	return dbFrom(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND group_name = ?", userID, groupName).
		FirstOrCreate(membership).Error
}
