// Package qa implements the session review workflow: a closed transition
// table, capability checks, attribution, optimistic writes and the
// edge-triggered issue notification.
package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/completion"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"gorm.io/gorm"
)

// notifyTimeout bounds a post-commit dispatch. It is detached from the
// request context so a client disconnect does not drop the alert.
const notifyTimeout = 30 * time.Second

// Request is one QA write.
type Request struct {
	SessionID   string
	Target      models.QAStatus
	Actor       Actor
	Notes       *string
	DevFeedback *string
	// Expected, when set, must equal the stored status or the write fails
	// with ErrConflict.
	Expected *models.QAStatus
}

// Result describes a committed write.
type Result struct {
	Session  *models.Session
	Previous models.QAStatus
	Notified bool
}

// Service applies QA writes.
type Service struct {
	db       *gorm.DB
	rec      *completion.Reconciler
	notifier notify.Dispatcher
	baseURL  string
	now      func() time.Time
}

// ServiceOpts holds parameters for creating a Service.
type ServiceOpts struct {
	DB         *gorm.DB
	Reconciler *completion.Reconciler // repairs completion status on the returned session
	Notifier   notify.Dispatcher      // nil disables notifications
	BaseURL    string                 // dashboard URL used in alerts
	Clock      func() time.Time
}

// NewService creates a Service.
func NewService(opts ServiceOpts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("qa: db is required")
	}
	if opts.Reconciler == nil {
		return nil, fmt.Errorf("qa: reconciler is required")
	}
	s := &Service{db: opts.DB, rec: opts.Reconciler, notifier: opts.Notifier, baseURL: opts.BaseURL, now: opts.Clock}
	if s.notifier == nil {
		s.notifier = notify.NewMulti()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Update validates, authorizes and commits req. The issue notification is
// sent after the write commits; a delivery failure is logged and does not
// fail the update.
func (s *Service) Update(ctx context.Context, req Request) (*Result, error) {
	if req.SessionID == "" {
		return nil, errdefs.Validationf("session_id is required")
	}
	if !req.Target.Valid() {
		return nil, errdefs.Validationf("target_qa_status %q is not one of unchecked, passed, issue, fixed", req.Target)
	}
	if _, err := NewActor(req.Actor.Identity, req.Actor.Capabilities...); err != nil {
		return nil, err
	}
	if err := Authorize(req.Actor, req.Target, req.DevFeedback != nil); err != nil {
		return nil, err
	}

	var sess models.Session
	if err := s.db.WithContext(ctx).Where("session_id = ?", req.SessionID).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errdefs.NotFoundf("qa: session %s", req.SessionID)
		}
		return nil, fmt.Errorf("qa: load session %s: %w", req.SessionID, err)
	}
	from := sess.QAStatus
	if req.Expected != nil && *req.Expected != from {
		return nil, errdefs.Conflictf("qa: session %s is %s, expected %s", req.SessionID, from, *req.Expected)
	}
	if err := CheckTransition(from, req.Target); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]interface{}{
		"qa_status":            req.Target,
		"qa_status_updated_by": req.Actor.Identity,
		"qa_status_updated_at": now,
	}
	if req.Notes != nil {
		updates["qa_notes"] = *req.Notes
	}
	if req.DevFeedback != nil {
		updates["dev_feedback"] = *req.DevFeedback
		updates["dev_feedback_by"] = req.Actor.Identity
		updates["dev_feedback_at"] = now
	}
	if err := s.compareAndSet(ctx, req.SessionID, from, updates); err != nil {
		return nil, err
	}
	metrics.QATransitions.WithLabelValues(string(from), string(req.Target)).Inc()

	sess = models.Session{}
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC, id ASC") }).
		Where("session_id = ?", req.SessionID).
		First(&sess).Error
	if err != nil {
		return nil, fmt.Errorf("qa: reload session %s: %w", req.SessionID, err)
	}
	// The alert and the response both carry completion status.
	s.rec.Repair(ctx, &sess)
	log.WithFields(log.Fields{
		"session_id": req.SessionID,
		"from":       from,
		"to":         req.Target,
		"actor":      req.Actor.Identity,
	}).Info("qa status written")

	res := &Result{Session: &sess, Previous: from}
	if EntersIssue(from, req.Target) {
		s.dispatch(ctx, &sess, from, req.Actor.Identity, now)
		res.Notified = true
	}
	return res, nil
}

// compareAndSet writes updates only if the row still has the observed
// status. Zero rows affected means another writer got there first.
func (s *Service) compareAndSet(ctx context.Context, sessionID string, observed models.QAStatus, updates map[string]interface{}) error {
	tx := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("session_id = ? AND qa_status = ?", sessionID, observed).
		Updates(updates)
	if tx.Error != nil {
		return fmt.Errorf("qa: update session %s: %w", sessionID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return errdefs.Conflictf("qa: session %s changed since it was read as %s", sessionID, observed)
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, sess *models.Session, from models.QAStatus, actor string, at time.Time) {
	alert := notify.NewAlert(sess, from, actor, len(sess.Messages), s.baseURL, at)

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(nctx, alert); err != nil {
		log.WithField("session_id", sess.SessionID).WithError(err).Error("qa issue notification failed")
	}
}
