package reactions

import (
	"errors"
	"time"

	"github.com/jasurdev/portfolio-api/internal/subject"
)

var (
	// ErrSubjectNotFound indicates the liked post or project does not exist.
	ErrSubjectNotFound = errors.New("reactions: subject not found")
	// ErrUniquenessViolation indicates a reaction already exists for the subject and identity.
	ErrUniquenessViolation = errors.New("reactions: reaction already exists")
)

// Outcome reports the state a toggle left behind.
type Outcome string

const (
	// OutcomeLiked means the toggle created a reaction.
	OutcomeLiked Outcome = "liked"
	// OutcomeRemoved means the toggle removed a reaction.
	OutcomeRemoved Outcome = "removed"
)

// Detail returns the human readable message returned to API clients.
func (o Outcome) Detail() string {
	if o == OutcomeLiked {
		return "Liked"
	}
	return "Like removed"
}

// Reaction is one anonymous like on a subject. Rows are created and deleted, never updated.
type Reaction struct {
	ID          uint64       `gorm:"column:id;primaryKey;autoIncrement"`
	SubjectKind subject.Kind `gorm:"column:subject_kind;size:16;not null;uniqueIndex:idx_reactions_subject_identity,priority:1"`
	SubjectID   string       `gorm:"column:subject_id;size:190;not null;uniqueIndex:idx_reactions_subject_identity,priority:2"`
	Identity    string       `gorm:"column:ip_address;size:190;not null;uniqueIndex:idx_reactions_subject_identity,priority:3"`
	CreatedAt   time.Time    `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Reaction) TableName() string {
	return "reactions"
}

// Event describes a completed toggle for downstream listeners.
type Event struct {
	Kind       subject.Kind `json:"kind"`
	SubjectID  string       `json:"subject_id"`
	Outcome    Outcome      `json:"outcome"`
	Count      int64        `json:"likes_count"`
	OccurredAt time.Time    `json:"occurred_at"`
}
