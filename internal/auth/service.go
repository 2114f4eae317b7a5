package auth

import (
	"context"
	"time"

	"github.com/courierdash/courierdash/internal/shared"
)

// Service wraps the session registry business rules. Password checking is
// not done here: the upstream dashboard API authenticates and issues the
// credential, this side only records the outcome.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a new Service. audit may be nil.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, rec SessionRecord) error {
	if err := s.repo.CreateSession(ctx, rec); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:     rec.Email,
			Action:    "session.login",
			SessionID: rec.ID,
			Meta:      map[string]any{"role": rec.Role, "ip": rec.IP},
			At:        time.Now(),
		})
	}
	return nil
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:    "session.logout",
			SessionID: id,
			At:        time.Now(),
		})
	}
	return nil
}

// PurgeLapsed removes registry rows past their expiry and reports which
// sessions they were.
func (s *Service) PurgeLapsed(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.repo.DeleteLapsed(ctx, now)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		for _, id := range ids {
			_ = s.audit.Record(ctx, shared.AuditLog{
				Action:    "session.auto_logout",
				SessionID: id,
				At:        now,
			})
		}
	}
	return ids, nil
}
