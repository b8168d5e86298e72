package posts

import (
	"errors"
	"time"

	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/tags"
)

const (
	maxTitleLength = 255
	maxImageLength = 500
)

var (
	// ErrNotFound indicates the post does not exist.
	ErrNotFound = errors.New("posts: not found")
	// ErrInvalidInput indicates a create or update payload failed validation.
	ErrInvalidInput = errors.New("posts: invalid input")
)

// Post is a blog entry.
type Post struct {
	ID        string     `gorm:"column:id;primaryKey;size:36"`
	Title     string     `gorm:"column:title;size:255;not null"`
	Content   string     `gorm:"column:content;type:text;not null"`
	Image     string     `gorm:"column:image;size:500;not null;default:''"`
	Tags      []tags.Tag `gorm:"many2many:post_tag_links;"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;index:idx_posts_created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Post) TableName() string {
	return "posts"
}

// Detail is a post together with its derived engagement data.
type Detail struct {
	Post
	LikesCount int64
	Comments   []comments.Comment
}

// Input carries the fields of a full create or replace.
type Input struct {
	Title   string
	Content string
	Image   string
	TagIDs  []uint64
}

// Patch carries optional fields for a partial update. Nil fields are left untouched.
type Patch struct {
	Title   *string
	Content *string
	Image   *string
	TagIDs  *[]uint64
}

// Full converts a complete input into a patch that overwrites every field.
func (in Input) Full() Patch {
	tagIDs := in.TagIDs
	if tagIDs == nil {
		tagIDs = []uint64{}
	}
	return Patch{
		Title:   &in.Title,
		Content: &in.Content,
		Image:   &in.Image,
		TagIDs:  &tagIDs,
	}
}
