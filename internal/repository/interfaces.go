package repository

import (
	"context"
	"errors"
	"time"

	"github.com/scidatahub/platform/internal/models"
)

// ErrNotFound is returned when no row satisfies a lookup or when a
// conditional write matched no row. Services translate this into the right
// HTTP failure after checking whether the entity exists at all.
var ErrNotFound = errors.New("not found")

type UserFilter struct {
	Role   string
	Search string // matches first name, last name, or email
	Page   int
	Limit  int
}

type SubmissionFilter struct {
	Statuses         []models.SubmissionStatus
	Category         string
	SubmittedBy      string
	DataType         string
	SubmitterType    string
	ValidationStatus string
	Search           string // matches title, description, or tags
	IsPublic         *bool
	ReviewedBy       string
	ReviewedFrom     *time.Time
	ReviewedTo       *time.Time
	SortBy           string
	SortOrder        string
	Page             int
	Limit            int
}

type StatsFilter struct {
	ReviewerID string
	StartDate  *time.Time
	EndDate    *time.Time
}

type CategoryStatusCount struct {
	Category models.Category         `json:"category"`
	Status   models.SubmissionStatus `json:"status"`
	Count    int                     `json:"count"`
}

type ReviewerAggregate struct {
	ReviewerID       string `json:"reviewer_id"`
	ReviewerName     string `json:"reviewer_name"`
	ReviewerEmail    string `json:"reviewer_email"`
	TotalReviewed    int    `json:"total_reviewed"`
	Approved         int    `json:"approved"`
	Rejected         int    `json:"rejected"`
	RevisionRequired int    `json:"revision_required"`
}

// ReviewAggregates is the raw aggregate set behind the review statistics
// endpoint. Rate formatting and zero-guards live in the service layer so the
// numbers here are plain counts.
type ReviewAggregates struct {
	TotalReviewed    int
	Approved         int
	Rejected         int
	RevisionRequired int
	Pending          int
	UnderReview      int
	AvgReviewHours   float64
	MinReviewHours   float64
	MaxReviewHours   float64
	ByCategory       []CategoryStatusCount
	TopReviewers     []ReviewerAggregate
}

type StatusCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type SubmissionTotals struct {
	Total       int
	Pending     int
	Approved    int
	Rejected    int
	ByCategory  []StatusCount
	BySubmitter []StatusCount
}

type ExportFilter struct {
	Category  string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}

type ExportRow struct {
	ID             string                  `json:"id"`
	Title          string                  `json:"title"`
	Category       models.Category         `json:"category"`
	Status         models.SubmissionStatus `json:"status"`
	SubmitterName  string                  `json:"submitter_name"`
	SubmitterEmail string                  `json:"submitter_email"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, f UserFilter) ([]models.User, int, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName, organization string) (models.User, error)
	TouchLastLogin(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type Submissions interface {
	Create(ctx context.Context, s models.Submission) (models.Submission, error)
	GetByID(ctx context.Context, id string) (models.Submission, error)
	List(ctx context.Context, f SubmissionFilter) ([]models.Submission, int, error)
	Update(ctx context.Context, s models.Submission) (models.Submission, error)
	Delete(ctx context.Context, id string) error

	// Review transitions. Each is a single conditional write: the expected
	// current status (and assignee, where one applies) is part of the UPDATE
	// predicate, so two concurrent transitions can never both land.
	Assign(ctx context.Context, id, reviewerID string) (models.Submission, error)
	Release(ctx context.Context, id, reviewerID string) (models.Submission, error)
	Decide(ctx context.Context, id, reviewerID string, decision models.SubmissionStatus, comments string) (models.Submission, error)
	BatchDecide(ctx context.Context, ids []string, decision models.SubmissionStatus, reviewerID, comments string) (int64, error)

	Totals(ctx context.Context) (SubmissionTotals, error)
	ReviewAggregates(ctx context.Context, f StatsFilter) (ReviewAggregates, error)
	ExportRows(ctx context.Context, f ExportFilter) ([]ExportRow, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
