package completion

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/models"
)

// Trigger names the call site that asked for reconciliation.
type Trigger string

const (
	TriggerIngest   Trigger = "ingest"
	TriggerRead     Trigger = "read"
	TriggerBatch    Trigger = "batch"
	TriggerManual   Trigger = "manual"
	TriggerSchedule Trigger = "schedule"
)

// SyncResult summarizes a batch sync.
type SyncResult struct {
	Scanned        int      `json:"scanned"`
	CorrectedCount int      `json:"corrected_count"`
	FailedIDs      []string `json:"failed_ids"`
}

// Reconciler keeps stored completion_status equal to what Detect computes.
// It holds no locks: Detect depends only on append-only messages and the
// clock, so concurrent reconciliations of a session converge.
type Reconciler struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// ReconcilerOpts holds parameters for creating a Reconciler.
type ReconcilerOpts struct {
	Store  Store
	Policy Policy
	Clock  func() time.Time // defaults to time.Now
}

// NewReconciler creates a Reconciler.
func NewReconciler(opts ReconcilerOpts) (*Reconciler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("completion: store is required")
	}
	if opts.Policy.Freshness < 0 {
		return nil, fmt.Errorf("completion: freshness must not be negative")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Reconciler{store: opts.Store, policy: opts.Policy, now: clock}, nil
}

// Policy returns the detection policy in use.
func (r *Reconciler) Policy() Policy { return r.policy }

// Reconcile recomputes one session from storage and persists the result if
// it changed. Used on ingest, where the caller must not return before the
// new status is durable. The returned bool reports whether a write happened.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (Result, bool, error) {
	sess, err := r.store.Session(ctx, sessionID)
	if err != nil {
		return Result{}, false, err
	}
	msgs, err := r.store.Messages(ctx, sessionID)
	if err != nil {
		return Result{}, false, err
	}

	res := Detect(msgs, r.now(), r.policy)
	if res.Matches(sess.CompletionStatus, sess.CompletedAt) {
		return res, false, nil
	}
	if err := r.store.SaveCompletion(ctx, sessionID, res); err != nil {
		metrics.CompletionWriteFailures.WithLabelValues(string(TriggerIngest)).Inc()
		return Result{}, false, err
	}
	metrics.CompletionWrites.WithLabelValues(string(TriggerIngest)).Inc()
	log.WithFields(log.Fields{
		"session_id": sessionID,
		"from":       sess.CompletionStatus,
		"to":         res.Status,
		"trigger":    TriggerIngest,
	}).Debug("completion status updated")
	return res, true, nil
}

// Repair is the read-path trigger. sess must have its Messages loaded. The
// struct is corrected in place even when persisting fails, so callers never
// serialize a stale value; the failure is logged and left for the next
// trigger to retry.
func (r *Reconciler) Repair(ctx context.Context, sess *models.Session) bool {
	res := Detect(sess.Messages, r.now(), r.policy)
	if res.Matches(sess.CompletionStatus, sess.CompletedAt) {
		return false
	}

	from := sess.CompletionStatus
	sess.CompletionStatus = res.Status
	sess.CompletedAt = res.CompletedAt

	entry := log.WithFields(log.Fields{
		"session_id": sess.SessionID,
		"from":       from,
		"to":         res.Status,
		"trigger":    TriggerRead,
	})
	if err := r.store.SaveCompletion(ctx, sess.SessionID, res); err != nil {
		metrics.CompletionWriteFailures.WithLabelValues(string(TriggerRead)).Inc()
		entry.WithError(err).Warn("completion repair not persisted")
		return true
	}
	metrics.CompletionWrites.WithLabelValues(string(TriggerRead)).Inc()
	entry.Debug("completion status repaired on read")
	return true
}

// RepairAll runs Repair over a page of sessions and returns how many changed.
func (r *Reconciler) RepairAll(ctx context.Context, sessions []models.Session) int {
	changed := 0
	for i := range sessions {
		if r.Repair(ctx, &sessions[i]) {
			changed++
		}
	}
	return changed
}

// Sync recomputes every session matching f and persists the ones that
// changed. A failure on one session is logged and recorded in FailedIDs; the
// remaining sessions are still processed. Only a failure to list candidates
// aborts the run.
func (r *Reconciler) Sync(ctx context.Context, trigger Trigger, f Filter) (SyncResult, error) {
	metrics.SyncRuns.WithLabelValues(string(trigger)).Inc()

	sessions, err := r.store.Candidates(ctx, f)
	if err != nil {
		return SyncResult{}, err
	}

	now := r.now()
	result := SyncResult{Scanned: len(sessions), FailedIDs: []string{}}
	for i := range sessions {
		sess := &sessions[i]
		if err := ctx.Err(); err != nil {
			return result, err
		}

		msgs, err := r.store.Messages(ctx, sess.SessionID)
		if err != nil {
			r.recordFailure(&result, trigger, sess.SessionID, err)
			continue
		}
		res := Detect(msgs, now, r.policy)
		if res.Matches(sess.CompletionStatus, sess.CompletedAt) {
			continue
		}
		if err := r.store.SaveCompletion(ctx, sess.SessionID, res); err != nil {
			r.recordFailure(&result, trigger, sess.SessionID, err)
			continue
		}
		result.CorrectedCount++
		metrics.CompletionWrites.WithLabelValues(string(trigger)).Inc()
	}

	log.WithFields(log.Fields{
		"trigger":   trigger,
		"scanned":   result.Scanned,
		"corrected": result.CorrectedCount,
		"failed":    len(result.FailedIDs),
	}).Info("completion sync finished")
	return result, nil
}

func (r *Reconciler) recordFailure(result *SyncResult, trigger Trigger, sessionID string, err error) {
	perr := &errdefs.PersistenceError{SessionID: sessionID, Err: err}
	metrics.CompletionWriteFailures.WithLabelValues(string(trigger)).Inc()
	log.WithFields(log.Fields{
		"session_id": sessionID,
		"trigger":    trigger,
	}).WithError(perr).Error("completion sync skipped session")
	result.FailedIDs = append(result.FailedIDs, sessionID)
}
