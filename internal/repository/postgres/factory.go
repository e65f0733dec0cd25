package postgres

import (
	repo "github.com/eduhub/edupay/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Transactions repo.Transactions
	Carts        repo.Carts
	Users        repo.Users
	AuditLogs    repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Transactions: &transactionsRepo{pool},
		Carts:        &cartsRepo{pool},
		Users:        &usersRepo{pool},
		AuditLogs:    &auditLogsRepo{pool},
	}
}
