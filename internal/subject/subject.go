// Package subject names the content types that accept anonymous likes and comments.
package subject

import "context"

// Kind discriminates the owner of a reaction or comment row.
type Kind string

const (
	// KindPost identifies blog posts.
	KindPost Kind = "post"
	// KindProject identifies portfolio projects.
	KindProject Kind = "project"
)

// String returns the stored representation.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether the kind is one of the known subject kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPost, KindProject:
		return true
	default:
		return false
	}
}

// Finder resolves whether a subject identifier exists.
type Finder interface {
	Exists(ctx context.Context, subjectID string) (bool, error)
}
