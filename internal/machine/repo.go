package machine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetInstallation(ctx context.Context) (*Installation, error)
	CreateInstallation(ctx context.Context, in *Installation) error
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) GetInstallation(ctx context.Context) (*Installation, error) {
	var in Installation
	err := r.db.GetContext(ctx, &in, getInstallationSQL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get installation: %w", err)
	}
	return &in, nil
}

func (r *repo) CreateInstallation(ctx context.Context, in *Installation) error {
	_, err := r.db.ExecContext(ctx, createInstallationSQL, in.InstallUUID, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("create installation: %w", err)
	}
	return nil
}
