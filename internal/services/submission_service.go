package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scidatahub/platform/internal/metrics"
	"github.com/scidatahub/platform/internal/models"
	repo "github.com/scidatahub/platform/internal/repository"
	"github.com/scidatahub/platform/internal/validation"
)

type SubmissionService struct {
	subs repo.Submissions
}

func NewSubmissionService(subs repo.Submissions) *SubmissionService {
	return &SubmissionService{subs: subs}
}

type SubmitInput struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	DataType      string          `json:"data_type"`
	Data          models.Payload  `json:"data"`
	Metadata      models.Metadata `json:"metadata"`
	SubmittedBy   string          `json:"submitted_by"`
	SubmitterType string          `json:"submitter_type"`
	Tags          []string        `json:"tags"`
	IsPublic      bool            `json:"is_public"`
}

type SubmitResult struct {
	SubmissionID     string                   `json:"submissionId"`
	ValidationStatus models.ValidationStatus  `json:"validationStatus"`
	ValidationErrors []models.ValidationIssue `json:"validationErrors"`
}

// Submit persists a new submission in pending status. A failed structural
// validation does not reject the request; the result is recorded on the
// entity and surfaced to the caller.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: invalid category", ErrInvalidInput)
	}
	dataType := models.DataTypeForm
	if in.DataType != "" {
		dt, ok := models.ParseDataType(in.DataType)
		if !ok {
			return SubmitResult{}, fmt.Errorf("%w: invalid data type", ErrInvalidInput)
		}
		dataType = dt
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		return SubmitResult{}, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if in.SubmittedBy == "" {
		return SubmitResult{}, fmt.Errorf("%w: submitter is required", ErrInvalidInput)
	}

	submitterType := models.SubmitterCitizen
	if in.SubmitterType == string(models.SubmitterResearcher) {
		submitterType = models.SubmitterResearcher
	}

	result := validation.ValidateSubmissionData(in.Data, dataType)

	meta := in.Metadata
	if meta.Timestamp == nil {
		now := time.Now()
		meta.Timestamp = &now
	}

	sub := models.Submission{
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		Category:         category,
		DataType:         dataType,
		SubmittedBy:      in.SubmittedBy,
		SubmitterType:    submitterType,
		Data:             in.Data,
		Metadata:         meta,
		Status:           models.StatusPending,
		ValidationStatus: result.Status(),
		ValidationIssues: result.Errors,
		Tags:             in.Tags,
		IsPublic:         in.IsPublic,
	}

	created, err := s.subs.Create(ctx, sub)
	if err != nil {
		return SubmitResult{}, err
	}
	metrics.SubmissionsTotal.WithLabelValues(string(category)).Inc()

	return SubmitResult{
		SubmissionID:     created.ID,
		ValidationStatus: created.ValidationStatus,
		ValidationErrors: created.ValidationIssues,
	}, nil
}

type SubmissionPage struct {
	Submissions []models.Submission `json:"submissions"`
	TotalPages  int                 `json:"totalPages"`
	CurrentPage int                 `json:"currentPage"`
	Total       int                 `json:"total"`
	HasNext     bool                `json:"hasNext"`
	HasPrev     bool                `json:"hasPrev"`
}

func (s *SubmissionService) List(ctx context.Context, f repo.SubmissionFilter) (SubmissionPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	subs, total, err := s.subs.List(ctx, f)
	if err != nil {
		return SubmissionPage{}, err
	}
	return SubmissionPage{
		Submissions: subs,
		TotalPages:  totalPages(total, f.Limit),
		CurrentPage: f.Page,
		Total:       total,
		HasNext:     f.Page*f.Limit < total,
		HasPrev:     f.Page > 1,
	}, nil
}

func (s *SubmissionService) Get(ctx context.Context, id string) (models.Submission, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Submission{}, ErrSubmissionNotFound
	}
	return sub, err
}

type UpdateInput struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Data        *models.Payload  `json:"data"`
	Metadata    *models.Metadata `json:"metadata"`
	Tags        *[]string        `json:"tags"`
	IsPublic    *bool            `json:"is_public"`
}

// Update applies an owner edit. Replacing the payload re-runs validation;
// review status is never touched here (edits do not move a submission
// through the review state machine).
func (s *SubmissionService) Update(ctx context.Context, id string, in UpdateInput) (models.Submission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return models.Submission{}, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		sub.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil && *in.Description != "" {
		sub.Description = *in.Description
	}
	if in.Category != nil {
		category, ok := models.ParseCategory(*in.Category)
		if !ok {
			return models.Submission{}, fmt.Errorf("%w: invalid category", ErrInvalidInput)
		}
		sub.Category = category
	}
	if in.Metadata != nil {
		sub.Metadata = *in.Metadata
	}
	if in.Tags != nil {
		sub.Tags = *in.Tags
	}
	if in.IsPublic != nil {
		sub.IsPublic = *in.IsPublic
	}
	if in.Data != nil {
		sub.Data = *in.Data
		result := validation.ValidateSubmissionData(sub.Data, sub.DataType)
		sub.ValidationStatus = result.Status()
		sub.ValidationIssues = result.Errors
	}

	updated, err := s.subs.Update(ctx, sub)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Submission{}, ErrSubmissionNotFound
	}
	return updated, err
}

// Delete removes the submission row; attached file references live on the
// row and go with it.
func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	err := s.subs.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrSubmissionNotFound
	}
	return err
}

type SubmissionStats struct {
	TotalSubmissions    int                `json:"totalSubmissions"`
	PendingSubmissions  int                `json:"pendingSubmissions"`
	ApprovedSubmissions int                `json:"approvedSubmissions"`
	RejectedSubmissions int                `json:"rejectedSubmissions"`
	CategoryStats       []repo.StatusCount `json:"categoryStats"`
	SubmitterTypeStats  []repo.StatusCount `json:"submitterTypeStats"`
}

func (s *SubmissionService) Stats(ctx context.Context) (SubmissionStats, error) {
	t, err := s.subs.Totals(ctx)
	if err != nil {
		return SubmissionStats{}, err
	}
	return SubmissionStats{
		TotalSubmissions:    t.Total,
		PendingSubmissions:  t.Pending,
		ApprovedSubmissions: t.Approved,
		RejectedSubmissions: t.Rejected,
		CategoryStats:       t.ByCategory,
		SubmitterTypeStats:  t.BySubmitter,
	}, nil
}

func (s *SubmissionService) Export(ctx context.Context, f repo.ExportFilter) ([]repo.ExportRow, error) {
	return s.subs.ExportRows(ctx, f)
}
