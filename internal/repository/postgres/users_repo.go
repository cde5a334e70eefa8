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

type usersRepo struct{ pool *pgxpool.Pool }

func NewUsers(pool *pgxpool.Pool) repository.Users {
	return &usersRepo{pool: pool}
}

const userCols = `id, email, password_hash, first_name, last_name, role, organization,
	is_active, is_verified, permissions, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	var perms []string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.Organization, &u.IsActive, &u.IsVerified, &perms, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, repository.ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	u.Permissions = toPermissions(perms)
	return u, nil
}

func toPermissions(ss []string) []models.Permission {
	out := make([]models.Permission, len(ss))
	for i, s := range ss {
		out[i] = models.Permission(s)
	}
	return out
}

func fromPermissions(ps []models.Permission) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role, organization, is_active, is_verified, permissions)
		 VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+userCols,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Organization,
		u.IsActive, u.IsVerified, fromPermissions(u.Permissions),
	)
	return scanUser(row)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=lower($1)`, email))
}

func (r *usersRepo) List(ctx context.Context, f repository.UserFilter) ([]models.User, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, "role=$"+strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(first_name ILIKE $"+n+" OR last_name ILIKE $"+n+" OR email ILIKE $"+n+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx,
		`SELECT `+userCols+` FROM users WHERE `+cond+
			` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id, firstName, lastName, organization string) (models.User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET
			first_name=coalesce(nullif($2,''), first_name),
			last_name=coalesce(nullif($3,''), last_name),
			organization=coalesce(nullif($4,''), organization),
			updated_at=now()
		 WHERE id=$1
		 RETURNING `+userCols,
		id, firstName, lastName, organization,
	)
	return scanUser(row)
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login=now(), updated_at=now() WHERE id=$1`, id)
	return err
}

func (r *usersRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active=$2, updated_at=now() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
