package config

import (
	"log"

	"libr-backend/internal/adapters/persistence/models"
	"libr-backend/internal/pkg/password"

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

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedUsers(); err != nil {
		log.Printf("⚠️ User seeder skipped: %v", err)
	}

	if err := SeedCatalog(s.db); err != nil {
		log.Printf("⚠️ Catalog seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedUsers seeds the default admin and two subscribed readers.
// This is for development/testing only.
func (s *Seeder) seedUsers() error {
	var count int64
	s.db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return nil
	}

	users := []struct {
		user     models.User
		password string
	}{
		{
			user: models.User{
				FName:        "Admin",
				LName:        "User",
				Age:          30,
				State:        models.StatePro,
				Username:     "admin",
				Email:        "admin@libr.local",
				Address:      "123 Admin St, City, State",
				Phone:        "555-0001",
				Role:         models.RoleAdmin,
				IsSubscribed: true,
			},
			password: "admin123456",
		},
		{
			user: models.User{
				FName:        "John",
				LName:        "Subscriber",
				Age:          25,
				State:        models.StateStudent,
				Username:     "john_sub",
				Email:        "john@libr.local",
				Address:      "456 User Ave, City, State",
				Phone:        "555-0002",
				Role:         models.RoleUser,
				IsSubscribed: true,
			},
			password: "john123456",
		},
		{
			user: models.User{
				FName:        "Jane",
				LName:        "Reader",
				Age:          28,
				State:        models.StatePro,
				Username:     "jane_sub",
				Email:        "jane@libr.local",
				Address:      "789 Reader Blvd, City, State",
				Phone:        "555-0003",
				Role:         models.RoleUser,
				IsSubscribed: true,
			},
			password: "jane123456",
		},
	}

	for _, entry := range users {
		hashed, err := password.Hash(entry.password)
		if err != nil {
			return err
		}
		entry.user.Password = hashed

		if err := s.db.Create(&entry.user).Error; err != nil {
			return err
		}
		log.Printf("   Created user: %s (%s)", entry.user.Username, entry.user.Role)
	}

	return nil
}
