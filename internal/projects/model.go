package projects

import (
	"errors"
	"time"

	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/tags"
)

const (
	maxTitleLength = 255
	maxLinkLength  = 500
	maxOwnerLength = 150
)

var (
	// ErrNotFound indicates the project does not exist.
	ErrNotFound = errors.New("projects: not found")
	// ErrInvalidInput indicates a create or update payload failed validation.
	ErrInvalidInput = errors.New("projects: invalid input")
)

// Project is a portfolio showcase entry.
type Project struct {
	ID           string     `gorm:"column:id;primaryKey;size:36"`
	Title        string     `gorm:"column:title;size:255;not null"`
	Description  string     `gorm:"column:description;type:text;not null"`
	Image        string     `gorm:"column:image;size:500;not null;default:''"`
	GithubLink   *string    `gorm:"column:github_link;size:500"`
	LiveDemoLink *string    `gorm:"column:live_demo_link;size:500"`
	Owner        string     `gorm:"column:owner;size:150;not null;default:''"`
	Tags         []tags.Tag `gorm:"many2many:project_tag_links;"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index:idx_projects_created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Project) TableName() string {
	return "projects"
}

// Detail is a project together with its derived engagement data.
type Detail struct {
	Project
	LikesCount int64
	Comments   []comments.Comment
}

type Input struct {
	Title        string
	Description  string
	Image        string
	GithubLink   *string
	LiveDemoLink *string
	TagIDs       []uint64
}

// Patch carries optional fields for a partial update. Nil fields are left untouched;
// an empty link string clears the link.
type Patch struct {
	Title        *string
	Description  *string
	Image        *string
	GithubLink   *string
	LiveDemoLink *string
	TagIDs       *[]uint64
}

// Full converts a complete input into a patch that overwrites every field.
func (in Input) Full() Patch {
	tagIDs := in.TagIDs
	if tagIDs == nil {
		tagIDs = []uint64{}
	}
	empty := ""
	githubLink, liveDemoLink := in.GithubLink, in.LiveDemoLink
	if githubLink == nil {
		githubLink = &empty
	}
	if liveDemoLink == nil {
		liveDemoLink = &empty
	}
	return Patch{
		Title:        &in.Title,
		Description:  &in.Description,
		Image:        &in.Image,
		GithubLink:   githubLink,
		LiveDemoLink: liveDemoLink,
		TagIDs:       &tagIDs,
	}
}

func optionalLink(raw *string) *string {
	if raw == nil || *raw == "" {
		return nil
	}
	value := *raw
	return &value
}
