package handlers

import (
	"encoding/csv"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scidatahub/platform/internal/api/httpx"
	"github.com/scidatahub/platform/internal/models"
	repo "github.com/scidatahub/platform/internal/repository"
	"github.com/scidatahub/platform/internal/services"
)

type DataHandler struct {
	subs *services.SubmissionService
}

func NewDataHandler(subs *services.SubmissionService) *DataHandler {
	return &DataHandler{subs: subs}
}

func (h *DataHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in services.SubmitInput
	if err := readJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.subs.Submit(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *DataHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repo.SubmissionFilter{
		Category:    q.Get("category"),
		SubmittedBy: q.Get("submittedBy"),
		DataType:    q.Get("dataType"),
		Search:      q.Get("search"),
		SortBy:      q.Get("sortBy"),
		SortOrder:   q.Get("sortOrder"),
		Page:        queryInt(r, "page", 1),
		Limit:       queryInt(r, "limit", 10),
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
	if status := q.Get("status"); status != "" {
		f.Statuses = statusesFromParam(status)
	}
	if v := q.Get("isPublic"); v != "" {
		isPublic := v == "true"
		f.IsPublic = &isPublic
	}

	page, err := h.subs.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *DataHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"submission": sub})
}

func (h *DataHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.UpdateInput
	if err := readJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sub, err := h.subs.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "Submission updated successfully",
		"submission": sub,
	})
}

func (h *DataHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.subs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Submission deleted successfully"})
}

func (h *DataHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.subs.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repo.ExportFilter{
		Category:  q.Get("category"),
		Status:    q.Get("status"),
		StartDate: queryTime(r, "startDate"),
		EndDate:   queryTime(r, "endDate"),
	}
	rows, err := h.subs.Export(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=submissions.csv")
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"id", "title", "category", "status", "submitterName", "submitterEmail", "createdAt", "updatedAt"})
		for _, row := range rows {
			_ = cw.Write([]string{
				row.ID, row.Title, string(row.Category), string(row.Status),
				row.SubmitterName, row.SubmitterEmail,
				row.CreatedAt.Format(time.RFC3339),
				row.UpdatedAt.Format(time.RFC3339),
			})
		}
		cw.Flush()
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=submissions.json")
	httpx.WriteJSON(w, http.StatusOK, rows)
}

func statusesFromParam(s string) []models.SubmissionStatus {
	if status, ok := models.ParseStatus(s); ok {
		return []models.SubmissionStatus{status}
	}
	return nil
}
