package auth

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jordancooper-dev/keygate/repository"
)

// repoStore adapts *repository.Repository to the TxStore interface
type repoStore struct {
	repo *repository.Repository
}

// NewStore wraps a repository so the Validator can open validation
// transactions against it.
func NewStore(repo *repository.Repository) TxStore {
	return &repoStore{repo: repo}
}

func (s *repoStore) Begin(ctx context.Context) (KeyTx, error) {
	tx, txRepo, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &repoTx{tx: tx, Repository: txRepo}, nil
}

// repoTx is a repository bound to one open transaction
type repoTx struct {
	tx pgx.Tx
	*repository.Repository
}

func (t *repoTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *repoTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
