package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scidatahub/platform/internal/models"
	"github.com/scidatahub/platform/internal/repository"
)

type submissionsRepo struct{ pool *pgxpool.Pool }

func NewSubmissions(pool *pgxpool.Pool) repository.Submissions {
	return &submissionsRepo{pool: pool}
}

const submissionCols = `id, title, description, category, data_type, submitted_by, submitter_type,
	data, metadata, file_refs, status, reviewed_by, review_comments, review_date,
	validation_status, validation_errors, tags, is_public, created_at, updated_at`

const decidedStatuses = `('approved','rejected','revision_required')`

// sortColumns whitelists client-supplied sort keys. Anything else falls back
// to created_at.
var sortColumns = map[string]string{
	"createdAt":        "created_at",
	"created_at":       "created_at",
	"updatedAt":        "updated_at",
	"updated_at":       "updated_at",
	"title":            "title",
	"category":         "category",
	"status":           "status",
	"reviewDate":       "review_date",
	"review_date":      "review_date",
	"validationStatus": "validation_status",
}

func scanSubmission(row pgx.Row) (models.Submission, error) {
	var s models.Submission
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Category, &s.DataType, &s.SubmittedBy,
		&s.SubmitterType, &s.Data, &s.Metadata, &s.FileRefs, &s.Status, &s.ReviewedBy,
		&s.ReviewComments, &s.ReviewDate, &s.ValidationStatus, &s.ValidationIssues,
		&s.Tags, &s.IsPublic, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Submission{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}
	return s, nil
}

func (r *submissionsRepo) Create(ctx context.Context, s models.Submission) (models.Submission, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.ValidationIssues == nil {
		s.ValidationIssues = []models.ValidationIssue{}
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO submissions (id, title, description, category, data_type, submitted_by, submitter_type,
		   data, metadata, file_refs, status, validation_status, validation_errors, tags, is_public)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 RETURNING `+submissionCols,
		s.ID, s.Title, s.Description, s.Category, s.DataType, s.SubmittedBy, s.SubmitterType,
		s.Data, s.Metadata, s.FileRefs, s.Status, s.ValidationStatus, s.ValidationIssues,
		s.Tags, s.IsPublic,
	)
	return scanSubmission(row)
}

func (r *submissionsRepo) GetByID(ctx context.Context, id string) (models.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx, `SELECT `+submissionCols+` FROM submissions WHERE id=$1`, id))
}

func (r *submissionsRepo) List(ctx context.Context, f repository.SubmissionFilter) ([]models.Submission, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(f.Statuses) > 0 {
		ss := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			ss[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(ss)+")")
	}
	if f.Category != "" {
		where = append(where, "category="+arg(f.Category))
	}
	if f.SubmittedBy != "" {
		where = append(where, "submitted_by="+arg(f.SubmittedBy))
	}
	if f.DataType != "" {
		where = append(where, "data_type="+arg(f.DataType))
	}
	if f.SubmitterType != "" {
		where = append(where, "submitter_type="+arg(f.SubmitterType))
	}
	if f.ValidationStatus != "" {
		where = append(where, "validation_status="+arg(f.ValidationStatus))
	}
	if f.IsPublic != nil {
		where = append(where, "is_public="+arg(*f.IsPublic))
	}
	if f.ReviewedBy != "" {
		where = append(where, "reviewed_by="+arg(f.ReviewedBy))
	}
	if f.ReviewedFrom != nil {
		where = append(where, "review_date >= "+arg(*f.ReviewedFrom))
	}
	if f.ReviewedTo != nil {
		where = append(where, "review_date <= "+arg(*f.ReviewedTo))
	}
	if f.Search != "" {
		n := arg("%" + f.Search + "%")
		where = append(where, "(title ILIKE "+n+" OR description ILIKE "+n+
			" OR EXISTS (SELECT 1 FROM unnest(tags) tag WHERE tag ILIKE "+n+"))")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM submissions WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if strings.EqualFold(f.SortOrder, "desc") {
		dir = "DESC"
	}

	limit := arg(f.Limit)
	offset := arg((f.Page - 1) * f.Limit)
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE `+cond+
			` ORDER BY `+col+` `+dir+` LIMIT `+limit+` OFFSET `+offset,
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// Update persists an owner edit. Review fields are untouched: edits never
// move a submission through the review state machine.
func (r *submissionsRepo) Update(ctx context.Context, s models.Submission) (models.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE submissions
		    SET title=$2, description=$3, category=$4, data=$5, metadata=$6, tags=$7,
		        is_public=$8, validation_status=$9, validation_errors=$10, updated_at=now()
		  WHERE id=$1
		  RETURNING `+submissionCols,
		s.ID, s.Title, s.Description, s.Category, s.Data, s.Metadata, s.Tags,
		s.IsPublic, s.ValidationStatus, s.ValidationIssues,
	)
	return scanSubmission(row)
}

func (r *submissionsRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *submissionsRepo) Assign(ctx context.Context, id, reviewerID string) (models.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE submissions
		    SET status='under_review', reviewed_by=$2, updated_at=now()
		  WHERE id=$1 AND status='pending'
		  RETURNING `+submissionCols,
		id, reviewerID,
	)
	return scanSubmission(row)
}

func (r *submissionsRepo) Release(ctx context.Context, id, reviewerID string) (models.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE submissions
		    SET status='pending', reviewed_by=NULL, updated_at=now()
		  WHERE id=$1 AND status='under_review' AND reviewed_by=$2
		  RETURNING `+submissionCols,
		id, reviewerID,
	)
	return scanSubmission(row)
}

func (r *submissionsRepo) Decide(ctx context.Context, id, reviewerID string, decision models.SubmissionStatus, comments string) (models.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE submissions
		    SET status=$3, review_comments=$4, review_date=now(), updated_at=now()
		  WHERE id=$1 AND status='under_review' AND reviewed_by=$2
		  RETURNING `+submissionCols,
		id, reviewerID, decision, comments,
	)
	return scanSubmission(row)
}

func (r *submissionsRepo) BatchDecide(ctx context.Context, ids []string, decision models.SubmissionStatus, reviewerID, comments string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		    SET status=$2, reviewed_by=$3, review_comments=$4, review_date=now(), updated_at=now()
		  WHERE id = ANY($1) AND status IN ('pending','under_review')`,
		ids, decision, reviewerID, comments,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *submissionsRepo) Totals(ctx context.Context) (repository.SubmissionTotals, error) {
	var t repository.SubmissionTotals
	err := r.pool.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE status='pending'),
		        count(*) FILTER (WHERE status='approved'),
		        count(*) FILTER (WHERE status='rejected')
		   FROM submissions`,
	).Scan(&t.Total, &t.Pending, &t.Approved, &t.Rejected)
	if err != nil {
		return t, err
	}

	t.ByCategory, err = r.groupCounts(ctx, "category")
	if err != nil {
		return t, err
	}
	t.BySubmitter, err = r.groupCounts(ctx, "submitter_type")
	return t, err
}

func (r *submissionsRepo) groupCounts(ctx context.Context, col string) ([]repository.StatusCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+col+`, count(*) FROM submissions GROUP BY `+col+` ORDER BY count(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.StatusCount
	for rows.Next() {
		var c repository.StatusCount
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *submissionsRepo) ReviewAggregates(ctx context.Context, f repository.StatsFilter) (repository.ReviewAggregates, error) {
	var agg repository.ReviewAggregates

	base := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.ReviewerID != "" {
		base = append(base, "reviewed_by="+arg(f.ReviewerID))
	}
	if f.StartDate != nil {
		base = append(base, "review_date >= "+arg(*f.StartDate))
	}
	if f.EndDate != nil {
		base = append(base, "review_date <= "+arg(*f.EndDate))
	}
	cond := strings.Join(base, " AND ")

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FILTER (WHERE status IN `+decidedStatuses+`),
		        count(*) FILTER (WHERE status='approved'),
		        count(*) FILTER (WHERE status='rejected'),
		        count(*) FILTER (WHERE status='revision_required')
		   FROM submissions WHERE `+cond,
		args...,
	).Scan(&agg.TotalReviewed, &agg.Approved, &agg.Rejected, &agg.RevisionRequired)
	if err != nil {
		return agg, err
	}

	// Queue depth is reported platform-wide regardless of the filter.
	err = r.pool.QueryRow(ctx,
		`SELECT count(*) FILTER (WHERE status='pending'),
		        count(*) FILTER (WHERE status='under_review')
		   FROM submissions`,
	).Scan(&agg.Pending, &agg.UnderReview)
	if err != nil {
		return agg, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT coalesce(avg(extract(epoch FROM review_date - created_at)/3600), 0),
		        coalesce(min(extract(epoch FROM review_date - created_at)/3600), 0),
		        coalesce(max(extract(epoch FROM review_date - created_at)/3600), 0)
		   FROM submissions
		  WHERE `+cond+` AND status IN `+decidedStatuses+` AND review_date IS NOT NULL`,
		args...,
	).Scan(&agg.AvgReviewHours, &agg.MinReviewHours, &agg.MaxReviewHours)
	if err != nil {
		return agg, err
	}

	agg.ByCategory, err = r.categoryBreakdown(ctx, cond, args)
	if err != nil {
		return agg, err
	}

	if f.ReviewerID == "" {
		// Date bounds still apply to the ranking; the reviewer filter would
		// make a top-10 meaningless.
		agg.TopReviewers, err = r.topReviewers(ctx, f)
		if err != nil {
			return agg, err
		}
	}
	return agg, nil
}

func (r *submissionsRepo) categoryBreakdown(ctx context.Context, cond string, args []any) ([]repository.CategoryStatusCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, status, count(*)
		   FROM submissions
		  WHERE `+cond+` AND status IN `+decidedStatuses+`
		  GROUP BY category, status
		  ORDER BY sum(count(*)) OVER (PARTITION BY category) DESC, category, status`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.CategoryStatusCount
	for rows.Next() {
		var c repository.CategoryStatusCount
		if err := rows.Scan(&c.Category, &c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *submissionsRepo) topReviewers(ctx context.Context, f repository.StatsFilter) ([]repository.ReviewerAggregate, error) {
	where := []string{"s.status IN " + decidedStatuses, "s.reviewed_by IS NOT NULL"}
	args := []any{}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		where = append(where, "s.review_date >= $"+strconv.Itoa(len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		where = append(where, "s.review_date <= $"+strconv.Itoa(len(args)))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.reviewed_by, trim(u.first_name || ' ' || u.last_name), u.email,
		        count(*),
		        count(*) FILTER (WHERE s.status='approved'),
		        count(*) FILTER (WHERE s.status='rejected'),
		        count(*) FILTER (WHERE s.status='revision_required')
		   FROM submissions s
		   JOIN users u ON u.id = s.reviewed_by
		  WHERE `+strings.Join(where, " AND ")+`
		  GROUP BY s.reviewed_by, u.first_name, u.last_name, u.email
		  ORDER BY count(*) DESC
		  LIMIT 10`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ReviewerAggregate
	for rows.Next() {
		var a repository.ReviewerAggregate
		if err := rows.Scan(&a.ReviewerID, &a.ReviewerName, &a.ReviewerEmail,
			&a.TotalReviewed, &a.Approved, &a.Rejected, &a.RevisionRequired); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *submissionsRepo) ExportRows(ctx context.Context, f repository.ExportFilter) ([]repository.ExportRow, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Category != "" {
		where = append(where, "s.category="+arg(f.Category))
	}
	if f.Status != "" {
		where = append(where, "s.status="+arg(f.Status))
	}
	if f.StartDate != nil {
		where = append(where, "s.created_at >= "+arg(*f.StartDate))
	}
	if f.EndDate != nil {
		where = append(where, "s.created_at <= "+arg(*f.EndDate))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.title, s.category, s.status,
		        trim(u.first_name || ' ' || u.last_name), u.email, s.created_at, s.updated_at
		   FROM submissions s
		   JOIN users u ON u.id = s.submitted_by
		  WHERE `+strings.Join(where, " AND ")+`
		  ORDER BY s.created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ExportRow
	for rows.Next() {
		var e repository.ExportRow
		if err := rows.Scan(&e.ID, &e.Title, &e.Category, &e.Status,
			&e.SubmitterName, &e.SubmitterEmail, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
