package profile

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the requested skill, experience or certificate does not exist.
	ErrNotFound = errors.New("profile: not found")
	// ErrInvalidInput indicates a payload failed validation.
	ErrInvalidInput = errors.New("profile: invalid input")
)

// aboutMeID pins the About Me singleton row.
const aboutMeID = 1

// AboutMe is the singleton introduction shown on the about page.
type AboutMe struct {
	ID           uint64    `gorm:"column:id;primaryKey"`
	IntroText    string    `gorm:"column:intro_text;type:text;not null;default:''"`
	Resume       string    `gorm:"column:resume;size:500;not null;default:''"`
	ProfileImage string    `gorm:"column:profile_image;size:500;not null;default:''"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (AboutMe) TableName() string {
	return "about_me"
}

// Skill is a technology with self-assessed proficiency.
type Skill struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string    `gorm:"column:name;size:100;not null"`
	Image           string    `gorm:"column:image;size:500;not null;default:''"`
	ExperienceYears float64   `gorm:"column:experience_years;type:decimal(4,1);not null;default:0"`
	Proficiency     uint8     `gorm:"column:proficiency;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Skill) TableName() string {
	return "skills"
}

// Experience is one position in the work history. A nil EndYear marks the current position.
type Experience struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string    `gorm:"column:title;size:200;not null"`
	Company     string    `gorm:"column:company;size:200;not null"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	StartYear   int       `gorm:"column:start_year;not null"`
	EndYear     *int      `gorm:"column:end_year"`
	Link        *string   `gorm:"column:link;size:500"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Experience) TableName() string {
	return "experiences"
}

// Period renders the span as "start - end" or "start - Present".
func (e Experience) Period() string {
	if e.EndYear == nil {
		return fmt.Sprintf("%d - Present", e.StartYear)
	}
	return fmt.Sprintf("%d - %d", e.StartYear, *e.EndYear)
}

// Certificate is a certificate or achievement.
type Certificate struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Title        string    `gorm:"column:title;size:200;not null"`
	Description  string    `gorm:"column:description;type:text;not null;default:''"`
	Image        string    `gorm:"column:image;size:500;not null;default:''"`
	Link         *string   `gorm:"column:link;size:500"`
	ObtainedYear *int      `gorm:"column:obtained_year"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Certificate) TableName() string {
	return "certificates"
}

type AboutMeInput struct {
	IntroText    *string
	Resume       *string
	ProfileImage *string
}

type SkillInput struct {
	Name            string
	Image           string
	ExperienceYears float64
	Proficiency     int
}

type ExperienceInput struct {
	Title       string
	Company     string
	Description string
	StartYear   int
	EndYear     *int
	Link        *string
}

type CertificateInput struct {
	Title        string
	Description  string
	Image        string
	Link         *string
	ObtainedYear *int
}
