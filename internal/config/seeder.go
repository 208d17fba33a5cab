package config

import (
	"log"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/pkg/password"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders. Every seed is get-or-create, so restarts never
// duplicate reference data.
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}
	if err := s.seedAgeGroups(); err != nil {
		return err
	}
	if err := s.seedAdmissionTypes(); err != nil {
		return err
	}
	if err := s.seedSizeCategoryGroup(); err != nil {
		return err
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	// Check if admin already exists
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "ADMIN").Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: "admin",
		Email:    "admin@mooringhub.local",
		Password: hashedPassword,
		Role:     "ADMIN",
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}

// seedAgeGroups seeds the age bands used by admission pricing
func (s *Seeder) seedAgeGroups() error {
	codes := []string{"adult", "child", "senior", "family"}
	for _, code := range codes {
		group := &models.AgeGroup{Code: code}
		if err := s.db.Where("code = ?", code).FirstOrCreate(group).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedAdmissionTypes seeds the admission types used by admission pricing
func (s *Seeder) seedAdmissionTypes() error {
	codes := []string{"landing", "extended_stay", "not_landing", "approved_events"}
	for _, code := range codes {
		admissionType := &models.AdmissionType{Code: code}
		if err := s.db.Where("code = ?", code).FirstOrCreate(admissionType).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedSizeCategoryGroup seeds a default vessel size category group: four
// length bands plus the null-vessel sentinel used when no vessel is
// nominated.
func (s *Seeder) seedSizeCategoryGroup() error {
	group := &models.VesselSizeCategoryGroup{Name: "Default vessel size categories"}
	if err := s.db.Where("name = ?", group.Name).FirstOrCreate(group).Error; err != nil {
		return err
	}

	var count int64
	s.db.Model(&models.VesselSizeCategory{}).Where("group_id = ?", group.ID).Count(&count)
	if count > 0 {
		return nil
	}

	categories := []models.VesselSizeCategory{
		{GroupID: group.ID, Name: "No vessel", StartSize: decimal.Zero, NullVessel: true},
		{GroupID: group.ID, Name: "Up to 6.5m", StartSize: decimal.Zero, IncludeStartSize: true},
		{GroupID: group.ID, Name: "6.5m to 10m", StartSize: decimal.NewFromFloat(6.5), IncludeStartSize: true},
		{GroupID: group.ID, Name: "10m to 14m", StartSize: decimal.NewFromInt(10), IncludeStartSize: true},
		{GroupID: group.ID, Name: "Over 14m", StartSize: decimal.NewFromInt(14), IncludeStartSize: true},
	}
	for i := range categories {
		if err := s.db.Create(&categories[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded vessel size categories for group %q", group.Name)
	return nil
}
