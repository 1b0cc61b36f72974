package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// Store is the persistence the Reconciler needs.
type Store interface {
	// Session loads one session without its messages.
	Session(ctx context.Context, sessionID string) (*models.Session, error)
	// Messages returns a session's messages ordered by timestamp.
	Messages(ctx context.Context, sessionID string) ([]models.Message, error)
	// Candidates lists the sessions a batch sync should examine.
	Candidates(ctx context.Context, f Filter) ([]models.Session, error)
	// SaveCompletion writes only the derived completion fields.
	SaveCompletion(ctx context.Context, sessionID string, r Result) error
}

// Filter narrows a batch sync. The zero value selects every session.
type Filter struct {
	SessionIDs       []string
	Source           models.Source
	ArchiveStatus    models.ArchiveStatus
	CompletionStatus models.CompletionStatus
}

// GormStore implements Store on a GORM connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Session implements Store.
func (s *GormStore) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	var sess models.Session
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errdefs.NotFoundf("completion: session %s", sessionID)
		}
		return nil, fmt.Errorf("completion: load session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// Messages implements Store.
func (s *GormStore) Messages(ctx context.Context, sessionID string) ([]models.Message, error) {
	var msgs []models.Message
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("timestamp ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("completion: messages for %s: %w", sessionID, err)
	}
	return msgs, nil
}

// Candidates implements Store.
func (s *GormStore) Candidates(ctx context.Context, f Filter) ([]models.Session, error) {
	q := s.db.WithContext(ctx).Model(&models.Session{})
	if len(f.SessionIDs) > 0 {
		q = q.Where("session_id IN ?", f.SessionIDs)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.ArchiveStatus != "" {
		q = q.Where("archive_status = ?", f.ArchiveStatus)
	}
	if f.CompletionStatus != "" {
		q = q.Where("completion_status = ?", f.CompletionStatus)
	}
	var sessions []models.Session
	if err := q.Order("session_id ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("completion: list sessions: %w", err)
	}
	return sessions, nil
}

// SaveCompletion implements Store.
func (s *GormStore) SaveCompletion(ctx context.Context, sessionID string, r Result) error {
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"completion_status": r.Status,
			"completed_at":      r.CompletedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("completion: save %s: %w", sessionID, err)
	}
	return nil
}
