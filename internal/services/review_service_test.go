package services

import (
	"context"
	"testing"

	"github.com/scidatahub/platform/internal/metrics"
	"github.com/scidatahub/platform/internal/models"
	repo "github.com/scidatahub/platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	metrics.Init()
}

func newReviewFixture() (*ReviewService, *fakeSubmissions, *fakeUsers, *fakeAuditLogs) {
	subs := newFakeSubmissions()
	users := newFakeUsers()
	audits := &fakeAuditLogs{}
	// nil pool keeps audit writes synchronous in tests
	return NewReviewService(subs, users, audits, nil), subs, users, audits
}

func addReviewer(users *fakeUsers) models.User {
	return users.add(models.User{
		Email:       "reviewer@lab.org",
		FirstName:   "Rae",
		LastName:    "Chen",
		Role:        models.RoleReviewer,
		IsActive:    true,
		Permissions: models.PermissionsFor(models.RoleReviewer),
	})
}

func TestAssign_Pending(t *testing.T) {
	svc, subs, users, audits := newReviewFixture()
	reviewer := addReviewer(users)
	sub := subs.add(models.Submission{Title: "Bird counts", Status: models.StatusPending})

	got, err := svc.Assign(context.Background(), sub.ID, reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, reviewer.ID, *got.ReviewedBy)
	assert.Equal(t, 1, audits.count())
}

func TestAssign_AlreadyUnderReview(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	other := "someone-else"
	sub := subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &other})

	_, err := svc.Assign(context.Background(), sub.ID, reviewer.ID)
	assert.ErrorIs(t, err, ErrNotAssignable)
}

func TestAssign_MissingSubmission(t *testing.T) {
	svc, _, users, _ := newReviewFixture()
	reviewer := addReviewer(users)

	_, err := svc.Assign(context.Background(), "nope", reviewer.ID)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestAssign_ReviewerWithoutPermission(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	citizen := users.add(models.User{
		Email:       "c@x.org",
		Role:        models.RoleCitizen,
		IsActive:    true,
		Permissions: models.PermissionsFor(models.RoleCitizen),
	})
	sub := subs.add(models.Submission{Status: models.StatusPending})

	_, err := svc.Assign(context.Background(), sub.ID, citizen.ID)
	assert.ErrorIs(t, err, ErrInvalidReviewer)
}

func TestAssign_UnknownReviewer(t *testing.T) {
	svc, subs, _, _ := newReviewFixture()
	sub := subs.add(models.Submission{Status: models.StatusPending})

	_, err := svc.Assign(context.Background(), sub.ID, "ghost")
	assert.ErrorIs(t, err, ErrInvalidReviewer)
}

func TestSubmitReview_Approve(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	sub := subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &reviewer.ID})

	got, err := svc.SubmitReview(context.Background(), sub.ID, reviewer.ID, "approved", "solid methodology", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "solid methodology", got.ReviewComments)
	require.NotNil(t, got.ReviewDate)
}

func TestSubmitReview_RevisionAppendsSuggestedChanges(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	sub := subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &reviewer.ID})

	got, err := svc.SubmitReview(context.Background(), sub.ID, reviewer.ID, "revision_required", "close but incomplete", "add units to column 3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevisionRequired, got.Status)
	assert.Equal(t, "close but incomplete\n\nSuggested Changes:\nadd units to column 3", got.ReviewComments)
}

func TestSubmitReview_WrongReviewer(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	assigned := addReviewer(users)
	intruder := users.add(models.User{
		Email:       "other@lab.org",
		Role:        models.RoleReviewer,
		IsActive:    true,
		Permissions: models.PermissionsFor(models.RoleReviewer),
	})
	sub := subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &assigned.ID})

	_, err := svc.SubmitReview(context.Background(), sub.ID, intruder.ID, "approved", "", "")
	assert.ErrorIs(t, err, ErrNotAuthorizedReviewer)

	// the conditional write must not have landed
	current, getErr := subs.GetByID(context.Background(), sub.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusUnderReview, current.Status)
}

func TestSubmitReview_InvalidDecision(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	sub := subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &reviewer.ID})

	_, err := svc.SubmitReview(context.Background(), sub.ID, reviewer.ID, "pending", "", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)

	_, err = svc.SubmitReview(context.Background(), sub.ID, reviewer.ID, "burned", "", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestRelease_AssignedReviewer(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	sub := subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &reviewer.ID})

	got, err := svc.Release(context.Background(), sub.ID, reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ReviewedBy)
}

func TestRelease_NotUnderReview(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	sub := subs.add(models.Submission{Status: models.StatusPending})

	_, err := svc.Release(context.Background(), sub.ID, reviewer.ID)
	assert.ErrorIs(t, err, ErrNotUnderReview)
}

func TestRelease_WrongReviewer(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	other := "someone-else"
	sub := subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &other})

	_, err := svc.Release(context.Background(), sub.ID, reviewer.ID)
	assert.ErrorIs(t, err, ErrNotAssignedReviewer)
}

func TestBatchReview_SkipsIneligible(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	pending := subs.add(models.Submission{Status: models.StatusPending})
	underReview := subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &reviewer.ID})
	approved := subs.add(models.Submission{Status: models.StatusApproved})

	res, err := svc.BatchReview(context.Background(),
		[]string{pending.ID, underReview.ID, approved.ID, "missing"},
		"rejected", "", reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.ModifiedCount)

	got, _ := subs.GetByID(context.Background(), pending.ID)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, "Batch rejected", got.ReviewComments)
}

func TestBatchReview_RevisionRequiredRejected(t *testing.T) {
	svc, _, users, _ := newReviewFixture()
	reviewer := addReviewer(users)

	_, err := svc.BatchReview(context.Background(), []string{"a"}, "revision_required", "", reviewer.ID)
	assert.ErrorIs(t, err, ErrInvalidBatchDecision)
}

func TestStats_Empty(t *testing.T) {
	svc, _, _, _ := newReviewFixture()

	stats, err := svc.Stats(context.Background(), repo.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, "0", stats.ApprovalRate)
	assert.Zero(t, stats.AverageReviewTimeHours)
	assert.Zero(t, stats.TotalReviewed)
}

func TestStats_RatesAndRounding(t *testing.T) {
	svc, subs, _, _ := newReviewFixture()
	subs.aggregates = repo.ReviewAggregates{
		TotalReviewed:  3,
		Approved:       2,
		Rejected:       1,
		AvgReviewHours: 12.3456,
		MinReviewHours: 0.5,
		MaxReviewHours: 30.129,
		ByCategory: []repo.CategoryStatusCount{
			{Category: models.CategoryBiology, Status: models.StatusApproved, Count: 2},
			{Category: models.CategoryBiology, Status: models.StatusRejected, Count: 1},
			{Category: models.CategoryPhysics, Status: models.StatusApproved, Count: 1},
		},
		TopReviewers: []repo.ReviewerAggregate{
			{ReviewerID: "r1", TotalReviewed: 3, Approved: 1},
			{ReviewerID: "r2", TotalReviewed: 0},
		},
	}

	stats, err := svc.Stats(context.Background(), repo.StatsFilter{})
	require.NoError(t, err)

	assert.Equal(t, "66.67", stats.ApprovalRate)
	assert.Equal(t, 12.35, stats.AverageReviewTimeHours)
	assert.Equal(t, 30.13, stats.MaxReviewTimeHours)

	require.Len(t, stats.CategoryBreakdown, 2)
	assert.Equal(t, models.CategoryBiology, stats.CategoryBreakdown[0].Category)
	assert.Equal(t, 3, stats.CategoryBreakdown[0].Total)
	assert.Len(t, stats.CategoryBreakdown[0].Statuses, 2)

	require.Len(t, stats.TopReviewers, 2)
	assert.Equal(t, 33.33, stats.TopReviewers[0].ApprovalRate)
	assert.Zero(t, stats.TopReviewers[1].ApprovalRate)
}

func TestPending_IncludesUnderReview(t *testing.T) {
	svc, subs, users, _ := newReviewFixture()
	reviewer := addReviewer(users)
	subs.add(models.Submission{Status: models.StatusPending})
	subs.add(models.Submission{Status: models.StatusUnderReview, ReviewedBy: &reviewer.ID})
	subs.add(models.Submission{Status: models.StatusApproved})

	page, err := svc.Pending(context.Background(), PendingQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestDetail_Metadata(t *testing.T) {
	svc, subs, _, _ := newReviewFixture()
	sub := subs.add(models.Submission{
		Status: models.StatusPending,
		Data:   models.TabularPayload([]map[string]any{{"a": 1, "b": 2}, {"a": 3, "b": 4}}),
		ValidationIssues: []models.ValidationIssue{
			{Field: "data[1]", Message: "Row 2 has inconsistent number of columns", Severity: models.SeverityWarning},
		},
	})

	detail, err := svc.Detail(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.True(t, detail.ReviewMetadata.DataIntegrity.HasValidationErrors)
	assert.Equal(t, 1, detail.ReviewMetadata.DataIntegrity.ErrorCount)
	assert.Equal(t, 1, detail.ReviewMetadata.DataIntegrity.WarningCount)
	assert.Equal(t, 2, detail.ReviewMetadata.DataSize.RecordCount)
	assert.Equal(t, 2, detail.ReviewMetadata.DataSize.Fields)
}

func TestDetail_Missing(t *testing.T) {
	svc, _, _, _ := newReviewFixture()
	_, err := svc.Detail(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}
