package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/scidatahub/platform/internal/metrics"
	"github.com/scidatahub/platform/internal/models"
	repo "github.com/scidatahub/platform/internal/repository"
	"github.com/scidatahub/platform/internal/worker"
)

// ReviewService owns the submission status state machine. Every transition is
// a single conditional write in the store, so a stale guard check can never
// clobber a concurrent transition.
type ReviewService struct {
	subs   repo.Submissions
	users  repo.Users
	audits repo.AuditLogs
	wp     *worker.Pool
}

func NewReviewService(subs repo.Submissions, users repo.Users, audits repo.AuditLogs, wp *worker.Pool) *ReviewService {
	return &ReviewService{subs: subs, users: users, audits: audits, wp: wp}
}

func (s *ReviewService) audit(submissionID, action string, details map[string]any) {
	entry := models.AuditLog{
		EntityType: "submission",
		Action:     action,
		Details:    details,
	}
	if submissionID != "" {
		id := submissionID
		entry.EntityID = &id
	}
	if s.wp != nil {
		s.wp.Submit(func() { _ = s.audits.Create(context.Background(), entry) })
	} else {
		_ = s.audits.Create(context.Background(), entry)
	}
}

// requireReviewer resolves the reviewer and checks the review permission.
// A missing user and a missing permission are the same failure to callers.
func (s *ReviewService) requireReviewer(ctx context.Context, reviewerID string) (models.User, error) {
	if reviewerID == "" {
		return models.User{}, ErrInvalidReviewer
	}
	u, err := s.users.GetByID(ctx, reviewerID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, ErrInvalidReviewer
	}
	if err != nil {
		return models.User{}, err
	}
	if !u.HasPermission(models.PermReviewSubmission) {
		return models.User{}, ErrInvalidReviewer
	}
	return u, nil
}

type PendingQuery struct {
	Category         string
	SubmitterType    string
	ValidationStatus string
	SortBy           string
	SortOrder        string
	Page             int
	Limit            int
}

// Pending lists the review queue: everything pending or already picked up.
func (s *ReviewService) Pending(ctx context.Context, q PendingQuery) (SubmissionPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	f := repo.SubmissionFilter{
		Statuses:         []models.SubmissionStatus{models.StatusPending, models.StatusUnderReview},
		Category:         q.Category,
		SubmitterType:    q.SubmitterType,
		ValidationStatus: q.ValidationStatus,
		SortBy:           q.SortBy,
		SortOrder:        q.SortOrder,
		Page:             q.Page,
		Limit:            q.Limit,
	}
	subs, total, err := s.subs.List(ctx, f)
	if err != nil {
		return SubmissionPage{}, err
	}
	return SubmissionPage{
		Submissions: subs,
		TotalPages:  totalPages(total, q.Limit),
		CurrentPage: q.Page,
		Total:       total,
		HasNext:     q.Page*q.Limit < total,
		HasPrev:     q.Page > 1,
	}, nil
}

// Assign moves a pending submission to under_review for the given reviewer.
func (s *ReviewService) Assign(ctx context.Context, submissionID, reviewerID string) (models.Submission, error) {
	if _, err := s.requireReviewer(ctx, reviewerID); err != nil {
		return models.Submission{}, err
	}

	sub, err := s.subs.Assign(ctx, submissionID, reviewerID)
	if errors.Is(err, repo.ErrNotFound) {
		if _, getErr := s.subs.GetByID(ctx, submissionID); errors.Is(getErr, repo.ErrNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, ErrNotAssignable
	}
	if err != nil {
		return models.Submission{}, err
	}

	s.audit(sub.ID, "assigned", map[string]any{"reviewer_id": reviewerID})
	return sub, nil
}

// SubmitReview records a terminal decision made by the assigned reviewer.
func (s *ReviewService) SubmitReview(ctx context.Context, submissionID, reviewerID, decision, comments, suggestedChanges string) (models.Submission, error) {
	status, ok := models.ParseStatus(decision)
	if !ok || !status.IsDecision() {
		return models.Submission{}, ErrInvalidDecision
	}
	if _, err := s.requireReviewer(ctx, reviewerID); err != nil {
		return models.Submission{}, err
	}

	reviewComments := comments
	if status == models.StatusRevisionRequired && suggestedChanges != "" {
		reviewComments += "\n\nSuggested Changes:\n" + suggestedChanges
	}

	sub, err := s.subs.Decide(ctx, submissionID, reviewerID, status, reviewComments)
	if errors.Is(err, repo.ErrNotFound) {
		if _, getErr := s.subs.GetByID(ctx, submissionID); errors.Is(getErr, repo.ErrNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, ErrNotAuthorizedReviewer
	}
	if err != nil {
		return models.Submission{}, err
	}

	metrics.ReviewDecisionsTotal.WithLabelValues(decision).Inc()
	s.audit(sub.ID, "decision", map[string]any{"reviewer_id": reviewerID, "decision": decision})
	return sub, nil
}

// Release puts an under_review submission back in the pending queue. Only
// the assigned reviewer may release it.
func (s *ReviewService) Release(ctx context.Context, submissionID, reviewerID string) (models.Submission, error) {
	sub, err := s.subs.Release(ctx, submissionID, reviewerID)
	if errors.Is(err, repo.ErrNotFound) {
		existing, getErr := s.subs.GetByID(ctx, submissionID)
		if errors.Is(getErr, repo.ErrNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		if getErr != nil {
			return models.Submission{}, getErr
		}
		if existing.Status != models.StatusUnderReview {
			return models.Submission{}, ErrNotUnderReview
		}
		return models.Submission{}, ErrNotAssignedReviewer
	}
	if err != nil {
		return models.Submission{}, err
	}

	s.audit(sub.ID, "released", map[string]any{"reviewer_id": reviewerID})
	return sub, nil
}

type BatchResult struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

// BatchReview applies one decision to every listed submission still in an
// eligible status. revision_required is deliberately excluded: it needs
// per-submission comments to be useful.
func (s *ReviewService) BatchReview(ctx context.Context, submissionIDs []string, decision, comments, reviewerID string) (BatchResult, error) {
	status, ok := models.ParseStatus(decision)
	if !ok || (status != models.StatusApproved && status != models.StatusRejected) {
		return BatchResult{}, ErrInvalidBatchDecision
	}
	if _, err := s.requireReviewer(ctx, reviewerID); err != nil {
		return BatchResult{}, err
	}

	if comments == "" {
		comments = "Batch " + decision
	}
	modified, err := s.subs.BatchDecide(ctx, submissionIDs, status, reviewerID, comments)
	if err != nil {
		return BatchResult{}, err
	}

	metrics.ReviewDecisionsTotal.WithLabelValues(decision).Add(float64(modified))
	s.audit("", "batch_decision", map[string]any{
		"reviewer_id": reviewerID,
		"decision":    decision,
		"modified":    modified,
	})
	return BatchResult{ModifiedCount: modified}, nil
}

type ReviewedQuery struct {
	Status    string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// Reviewed lists a reviewer's past decisions, newest first.
func (s *ReviewService) Reviewed(ctx context.Context, reviewerID string, q ReviewedQuery) (SubmissionPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	f := repo.SubmissionFilter{
		ReviewedBy:   reviewerID,
		Category:     q.Category,
		ReviewedFrom: q.StartDate,
		ReviewedTo:   q.EndDate,
		SortBy:       "review_date",
		SortOrder:    "desc",
		Page:         q.Page,
		Limit:        q.Limit,
	}
	if q.Status != "" {
		if status, ok := models.ParseStatus(q.Status); ok {
			f.Statuses = []models.SubmissionStatus{status}
		}
	}
	subs, total, err := s.subs.List(ctx, f)
	if err != nil {
		return SubmissionPage{}, err
	}
	return SubmissionPage{
		Submissions: subs,
		TotalPages:  totalPages(total, q.Limit),
		CurrentPage: q.Page,
		Total:       total,
	}, nil
}

type CategoryBreakdown struct {
	Category models.Category    `json:"category"`
	Total    int                `json:"total"`
	Statuses []repo.StatusCount `json:"statuses"`
}

type ReviewerRanking struct {
	repo.ReviewerAggregate
	ApprovalRate float64 `json:"approval_rate"`
}

type ReviewStats struct {
	TotalReviewed          int                 `json:"totalReviewed"`
	Approved               int                 `json:"approved"`
	Rejected               int                 `json:"rejected"`
	RevisionRequired       int                 `json:"revisionRequired"`
	Pending                int                 `json:"pending"`
	UnderReview            int                 `json:"underReview"`
	ApprovalRate           string              `json:"approvalRate"`
	AverageReviewTimeHours float64             `json:"averageReviewTimeHours"`
	MinReviewTimeHours     float64             `json:"minReviewTimeHours"`
	MaxReviewTimeHours     float64             `json:"maxReviewTimeHours"`
	CategoryBreakdown      []CategoryBreakdown `json:"categoryBreakdown"`
	TopReviewers           []ReviewerRanking   `json:"topReviewers"`
}

func (s *ReviewService) Stats(ctx context.Context, f repo.StatsFilter) (ReviewStats, error) {
	agg, err := s.subs.ReviewAggregates(ctx, f)
	if err != nil {
		return ReviewStats{}, err
	}

	stats := ReviewStats{
		TotalReviewed:          agg.TotalReviewed,
		Approved:               agg.Approved,
		Rejected:               agg.Rejected,
		RevisionRequired:       agg.RevisionRequired,
		Pending:                agg.Pending,
		UnderReview:            agg.UnderReview,
		ApprovalRate:           "0",
		AverageReviewTimeHours: round2(agg.AvgReviewHours),
		MinReviewTimeHours:     round2(agg.MinReviewHours),
		MaxReviewTimeHours:     round2(agg.MaxReviewHours),
		CategoryBreakdown:      rollUpCategories(agg.ByCategory),
		TopReviewers:           rankReviewers(agg.TopReviewers),
	}
	if agg.TotalReviewed > 0 {
		stats.ApprovalRate = fmt.Sprintf("%.2f", float64(agg.Approved)/float64(agg.TotalReviewed)*100)
	}
	return stats, nil
}

func rollUpCategories(rows []repo.CategoryStatusCount) []CategoryBreakdown {
	var out []CategoryBreakdown
	index := map[models.Category]int{}
	for _, row := range rows {
		i, ok := index[row.Category]
		if !ok {
			i = len(out)
			index[row.Category] = i
			out = append(out, CategoryBreakdown{Category: row.Category})
		}
		out[i].Statuses = append(out[i].Statuses, repo.StatusCount{Key: string(row.Status), Count: row.Count})
		out[i].Total += row.Count
	}
	return out
}

func rankReviewers(rows []repo.ReviewerAggregate) []ReviewerRanking {
	out := make([]ReviewerRanking, len(rows))
	for i, row := range rows {
		rank := ReviewerRanking{ReviewerAggregate: row}
		if row.TotalReviewed > 0 {
			rank.ApprovalRate = round2(float64(row.Approved) / float64(row.TotalReviewed) * 100)
		}
		out[i] = rank
	}
	return out
}

type ReviewMetadata struct {
	DataIntegrity struct {
		HasValidationErrors bool `json:"hasValidationErrors"`
		ErrorCount          int  `json:"errorCount"`
		WarningCount        int  `json:"warningCount"`
	} `json:"dataIntegrity"`
	SubmissionAge struct {
		Days  int `json:"days"`
		Hours int `json:"hours"`
	} `json:"submissionAge"`
	DataSize struct {
		RecordCount int `json:"recordCount"`
		Fields      int `json:"fields"`
	} `json:"dataSize"`
}

type SubmissionDetail struct {
	Submission     models.Submission `json:"submission"`
	ReviewMetadata ReviewMetadata    `json:"reviewMetadata"`
}

// Detail returns a submission with derived metadata a reviewer cares about.
func (s *ReviewService) Detail(ctx context.Context, submissionID string) (SubmissionDetail, error) {
	sub, err := s.subs.GetByID(ctx, submissionID)
	if errors.Is(err, repo.ErrNotFound) {
		return SubmissionDetail{}, ErrSubmissionNotFound
	}
	if err != nil {
		return SubmissionDetail{}, err
	}

	var meta ReviewMetadata
	meta.DataIntegrity.HasValidationErrors = len(sub.ValidationIssues) > 0
	meta.DataIntegrity.ErrorCount = len(sub.ValidationIssues)
	for _, issue := range sub.ValidationIssues {
		if issue.Severity == models.SeverityWarning {
			meta.DataIntegrity.WarningCount++
		}
	}
	age := time.Since(sub.CreatedAt)
	meta.SubmissionAge.Days = int(age.Hours() / 24)
	meta.SubmissionAge.Hours = int(age.Hours())
	meta.DataSize.RecordCount = sub.Data.RecordCount()
	meta.DataSize.Fields = sub.Data.FieldCount()

	return SubmissionDetail{Submission: sub, ReviewMetadata: meta}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
