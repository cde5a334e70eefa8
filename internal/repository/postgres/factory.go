package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	repo "github.com/scidatahub/platform/internal/repository"
)

type Repositories struct {
	Users       repo.Users
	Submissions repo.Submissions
	AuditLogs   repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:       &usersRepo{pool},
		Submissions: &submissionsRepo{pool},
		AuditLogs:   &auditLogsRepo{pool},
	}
}
