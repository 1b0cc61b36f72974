// Package session implements chat session operations: appending messages,
// reading with on-read completion repair, listing, archiving, deletion and
// statistics.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/completion"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/ingest"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service runs session operations against the database.
type Service struct {
	db  *gorm.DB
	rec *completion.Reconciler
	now func() time.Time
}

// Opts holds parameters for creating a Service.
type Opts struct {
	DB         *gorm.DB
	Reconciler *completion.Reconciler
	Clock      func() time.Time
}

// NewService creates a Service.
func NewService(opts Opts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("session: db is required")
	}
	if opts.Reconciler == nil {
		return nil, fmt.Errorf("session: reconciler is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: opts.DB, rec: opts.Reconciler, now: clock}, nil
}

// Append stores msg, creating its session if absent, and reconciles the
// session's completion status before returning it.
func (s *Service) Append(ctx context.Context, msg ingest.ChatMessage) (*models.Session, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess := models.Session{
			SessionID:    msg.SessionID,
			Source:       msg.Source,
			CustomerName: msg.CustomerName,
			ContactID:    msg.ContactID,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sess).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if msg.CustomerName != nil {
			if err := tx.Model(&models.Session{}).
				Where("session_id = ? AND (customer_name IS NULL OR customer_name = '')", msg.SessionID).
				Update("customer_name", *msg.CustomerName).Error; err != nil {
				return fmt.Errorf("set customer name: %w", err)
			}
		}
		m := models.Message{
			SessionID: msg.SessionID,
			Sender:    msg.Sender,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: append to %s: %w", msg.SessionID, err)
	}
	metrics.MessagesIngested.WithLabelValues(string(msg.Source), string(msg.Sender)).Inc()

	if _, _, err := s.rec.Reconcile(ctx, msg.SessionID); err != nil {
		return nil, fmt.Errorf("session: reconcile %s: %w", msg.SessionID, err)
	}
	return s.load(ctx, msg.SessionID)
}

// Get returns a session with its messages, repairing completion status on
// the way out.
func (s *Service) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.rec.Repair(ctx, sess)
	return sess, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC, id ASC") }).
		Where("session_id = ?", sessionID).
		First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errdefs.NotFoundf("session %s", sessionID)
		}
		return nil, fmt.Errorf("session: load %s: %w", sessionID, err)
	}
	return &sess, nil
}

// Archive marks a session archived.
func (s *Service) Archive(ctx context.Context, sessionID string) (*models.Session, error) {
	now := s.now().UTC()
	return s.setArchive(ctx, sessionID, models.ArchiveArchived, &now)
}

// Unarchive returns a session to active.
func (s *Service) Unarchive(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.setArchive(ctx, sessionID, models.ArchiveActive, nil)
}

func (s *Service) setArchive(ctx context.Context, sessionID string, status models.ArchiveStatus, at *time.Time) (*models.Session, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"archive_status": status,
			"archived_at":    at,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("session: set %s %s: %w", sessionID, status, err)
	}
	log.WithFields(log.Fields{"session_id": sessionID, "archive_status": status}).Info("session archive status changed")
	return s.Get(ctx, sessionID)
}

// Delete removes a session and its messages. Leads are keyed by session id
// but are not removed.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res := tx.Where("session_id = ?", sessionID).Delete(&models.Session{})
		if res.Error != nil {
			return fmt.Errorf("delete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errdefs.NotFoundf("session %s", sessionID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			return err
		}
		return fmt.Errorf("session: delete %s: %w", sessionID, err)
	}
	log.WithField("session_id", sessionID).Info("session deleted")
	return nil
}

// refreshDecaying syncs sessions stored as in_progress. Only those can change
// status without a new message (by aging out of the freshness window), so
// after this a query on stored completion_status is accurate.
func (s *Service) refreshDecaying(ctx context.Context) {
	_, err := s.rec.Sync(ctx, completion.TriggerRead, completion.Filter{CompletionStatus: models.CompletionInProgress})
	if err != nil {
		log.WithError(err).Warn("session: refresh in-progress sessions")
	}
}
