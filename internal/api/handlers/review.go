package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scidatahub/platform/internal/api/httpx"
	repo "github.com/scidatahub/platform/internal/repository"
	"github.com/scidatahub/platform/internal/services"
)

type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) Pending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.reviews.Pending(r.Context(), services.PendingQuery{
		Category:         q.Get("category"),
		SubmitterType:    q.Get("submitterType"),
		ValidationStatus: q.Get("validationStatus"),
		SortBy:           q.Get("sortBy"),
		SortOrder:        q.Get("sortOrder"),
		Page:             queryInt(r, "page", 1),
		Limit:            queryInt(r, "limit", 10),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *ReviewHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReviewerID string `json:"reviewerId"`
	}
	if err := readJSON(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sub, err := h.reviews.Assign(r.Context(), chi.URLParam(r, "submissionId"), body.ReviewerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "Submission assigned for review",
		"submission": sub,
	})
}

func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReviewerID       string `json:"reviewerId"`
		Decision         string `json:"decision"`
		Comments         string `json:"comments"`
		SuggestedChanges string `json:"suggestedChanges"`
	}
	if err := readJSON(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sub, err := h.reviews.SubmitReview(r.Context(), chi.URLParam(r, "submissionId"),
		body.ReviewerID, body.Decision, body.Comments, body.SuggestedChanges)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "Review submitted successfully",
		"submission": sub,
	})
}

func (h *ReviewHandler) Release(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReviewerID string `json:"reviewerId"`
	}
	if err := readJSON(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sub, err := h.reviews.Release(r.Context(), chi.URLParam(r, "submissionId"), body.ReviewerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "Submission released back to queue",
		"submission": sub,
	})
}

func (h *ReviewHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubmissionIDs []string `json:"submissionIds"`
		Decision      string   `json:"decision"`
		Comments      string   `json:"comments"`
		ReviewerID    string   `json:"reviewerId"`
	}
	if err := readJSON(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.reviews.BatchReview(r.Context(), body.SubmissionIDs, body.Decision, body.Comments, body.ReviewerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":       "Batch review completed",
		"modifiedCount": res.ModifiedCount,
	})
}

func (h *ReviewHandler) Reviewed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.reviews.Reviewed(r.Context(), chi.URLParam(r, "reviewerId"), services.ReviewedQuery{
		Status:    q.Get("status"),
		Category:  q.Get("category"),
		StartDate: queryTime(r, "startDate"),
		EndDate:   queryTime(r, "endDate"),
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", 10),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reviews.Stats(r.Context(), repo.StatsFilter{
		ReviewerID: r.URL.Query().Get("reviewerId"),
		StartDate:  queryTime(r, "startDate"),
		EndDate:    queryTime(r, "endDate"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *ReviewHandler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.reviews.Detail(r.Context(), chi.URLParam(r, "submissionId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, detail)
}
