package machine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"winsbygroup.com/licenseagent/internal/sqlite"
)

type Service struct {
	repo Repository
	db   *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:   db,
		repo: New(db),
	}
}

// InstallID returns the UUID generated the first time this database was used.
func (s *Service) InstallID(ctx context.Context) (string, error) {
	in, err := s.repo.GetInstallation(ctx)
	if err != nil {
		return "", err
	}
	if in != nil {
		return in.InstallUUID, nil
	}

	in = &Installation{
		InstallUUID: uuid.NewString(),
		CreatedAt:   time.Now().Unix(),
	}
	if err := s.repo.CreateInstallation(ctx, in); err != nil {
		if !sqlite.IsUniqueConstraintError(err) {
			return "", err
		}
		// another process created it first
		in, err = s.repo.GetInstallation(ctx)
		if err != nil {
			return "", err
		}
		if in == nil {
			return "", fmt.Errorf("installation vanished after conflict")
		}
	}
	return in.InstallUUID, nil
}

// Code returns the machine code for this installation on the given host.
func (s *Service) Code(ctx context.Context, hostID string) (string, error) {
	id, err := s.InstallID(ctx)
	if err != nil {
		return "", err
	}
	return Fingerprint(hostID, id)
}
