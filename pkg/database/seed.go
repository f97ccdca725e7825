package database

import (
	"academy_backend/internal/config"
	"academy_backend/internal/model"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

// DefaultCatalog 默认的领导力课程目录
func DefaultCatalog() []model.Track {
	return []model.Track{
		{
			Title:       "Leadership Fundamentals",
			Description: "Core leadership skills and principles for emerging leaders",
			OrderIndex:  1,
			Modules: []model.Module{
				{Title: "Introduction to Leadership", Description: "Understanding what makes a great leader and the fundamental principles of effective leadership", ContentType: model.ContentVideo, ContentURL: strPtr("https://example.com/videos/intro-to-leadership.mp4"), OrderIndex: 1},
				{Title: "Leadership Styles", Description: "Exploring different leadership approaches: autocratic, democratic, transformational, and servant leadership", ContentType: model.ContentReading, OrderIndex: 2},
				{Title: "Communication Skills", Description: "Effective communication techniques for leaders including active listening and clear messaging", ContentType: model.ContentVideo, ContentURL: strPtr("https://example.com/videos/communication-skills.mp4"), OrderIndex: 3},
				{Title: "Team Building", Description: "Creating and managing effective teams through trust, collaboration, and shared goals", ContentType: model.ContentActivity, OrderIndex: 4},
				{Title: "Conflict Resolution", Description: "Managing and resolving team conflicts constructively and maintaining team harmony", ContentType: model.ContentReading, OrderIndex: 5},
			},
		},
		{
			Title:       "Advanced Leadership",
			Description: "Advanced techniques for experienced leaders",
			OrderIndex:  2,
			Modules: []model.Module{
				{Title: "Strategic Thinking", Description: "Developing strategic mindset and long-term planning capabilities", ContentType: model.ContentVideo, ContentURL: strPtr("https://example.com/videos/strategic-thinking.mp4"), OrderIndex: 1},
				{Title: "Change Management", Description: "Leading organizational change and managing resistance effectively", ContentType: model.ContentReading, OrderIndex: 2},
				{Title: "Decision Making", Description: "Frameworks for sound decisions under uncertainty", ContentType: model.ContentActivity, OrderIndex: 3},
				{Title: "Coaching and Mentoring", Description: "Developing others through coaching conversations and mentorship", ContentType: model.ContentVideo, OrderIndex: 4},
			},
		},
		{
			Title:       "Executive Leadership",
			Description: "Strategic leadership for executives and senior managers",
			OrderIndex:  3,
			Modules: []model.Module{
				{Title: "Vision and Mission", Description: "Crafting and communicating an organizational vision", ContentType: model.ContentReading, OrderIndex: 1},
				{Title: "Organizational Culture", Description: "Shaping culture and values across the organization", ContentType: model.ContentVideo, OrderIndex: 2},
				{Title: "Executive Presence", Description: "Building credibility and influence at the executive level", ContentType: model.ContentActivity, OrderIndex: 3},
			},
		},
	}
}

// Seed 空库时写入默认目录和管理员账号
func Seed(db *gorm.DB, cfg *config.SeedConfig) error {
	var trackCount int64
	if err := db.Model(&model.Track{}).Count(&trackCount).Error; err != nil {
		return err
	}
	if trackCount == 0 {
		tracks := DefaultCatalog()
		if err := db.Create(&tracks).Error; err != nil {
			return err
		}
		log.Printf("Seeded %d tracks", len(tracks))
	}

	if cfg.AdminEmail == "" {
		return nil
	}

	var adminCount int64
	if err := db.Model(&model.User{}).Where("email = ?", cfg.AdminEmail).Count(&adminCount).Error; err != nil {
		return err
	}
	if adminCount == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := &model.User{
			FullName: "Admin User",
			Email:    cfg.AdminEmail,
			Password: string(hashed),
			Role:     model.Admin,
		}
		if err := db.Create(admin).Error; err != nil {
			return err
		}
		log.Println("Seeded default admin account")
	}

	return nil
}
