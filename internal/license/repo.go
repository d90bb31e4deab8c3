package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Get(ctx context.Context, productID uint64, key string) (*Record, error)
	List(ctx context.Context) ([]Record, error)

	Upsert(ctx context.Context, tx *sqlx.Tx, rec *Record) error
	Delete(ctx context.Context, tx *sqlx.Tx, productID uint64, key string) (bool, error)
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, productID uint64, key string) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, getLicenseSQL, productID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}
	return &rec, nil
}

func (r *repo) List(ctx context.Context) ([]Record, error) {
	var out []Record
	err := r.db.SelectContext(ctx, &out, listLicensesSQL)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	return out, nil
}

func (r *repo) Upsert(ctx context.Context, tx *sqlx.Tx, rec *Record) error {
	_, err := tx.ExecContext(ctx, upsertLicenseSQL,
		rec.ProductID,
		rec.LicenseKey,
		rec.MachineCode,
		rec.Payload,
		rec.Signature,
		rec.SignDate,
		rec.Expires,
		rec.ActivatedAt,
	)
	if err != nil {
		return fmt.Errorf("save license: %w", err)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, tx *sqlx.Tx, productID uint64, key string) (bool, error) {
	res, err := tx.ExecContext(ctx, deleteLicenseSQL, productID, key)
	if err != nil {
		return false, fmt.Errorf("delete license: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete license: %w", err)
	}
	return n > 0, nil
}
