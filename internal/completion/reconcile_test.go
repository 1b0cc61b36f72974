package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Session{}, &models.Message{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedSession(t *testing.T, db *gorm.DB, id string, msgs ...models.Message) {
	t.Helper()
	require.NoError(t, db.Create(&models.Session{SessionID: id, Source: models.SourceWebChat}).Error)
	for i := range msgs {
		msgs[i].SessionID = id
		require.NoError(t, db.Create(&msgs[i]).Error)
	}
}

// countingStore counts SaveCompletion calls and can fail chosen sessions.
type countingStore struct {
	Store
	mu     sync.Mutex
	saves  int
	failOn map[string]bool
}

func (c *countingStore) SaveCompletion(ctx context.Context, sessionID string, r Result) error {
	c.mu.Lock()
	c.saves++
	fail := c.failOn[sessionID]
	c.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return c.Store.SaveCompletion(ctx, sessionID, r)
}

func (c *countingStore) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func newTestReconciler(t *testing.T, store Store, now time.Time) *Reconciler {
	t.Helper()
	rec, err := NewReconciler(ReconcilerOpts{
		Store:  store,
		Policy: policy,
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)
	return rec
}

func TestNewReconciler_Validation(t *testing.T) {
	_, err := NewReconciler(ReconcilerOpts{})
	assert.ErrorContains(t, err, "store is required")

	_, err = NewReconciler(ReconcilerOpts{Store: NewGormStore(nil), Policy: Policy{Freshness: -time.Hour}})
	assert.ErrorContains(t, err, "freshness")
}

func TestReconcile_PersistsAndIsIdempotent(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "s-1",
		msg(models.SenderUser, "hi", t0),
		msg(models.SenderAI, "we'll get back within 24 hours", t0.Add(time.Minute)),
	)
	store := &countingStore{Store: NewGormStore(db)}
	rec := newTestReconciler(t, store, t0.Add(1000*time.Hour))
	ctx := context.Background()

	res, changed, err := rec.Reconcile(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.CompletionComplete, res.Status)

	var stored models.Session
	require.NoError(t, db.First(&stored, "session_id = ?", "s-1").Error)
	assert.Equal(t, models.CompletionComplete, stored.CompletionStatus)
	require.NotNil(t, stored.CompletedAt)

	_, changed, err = rec.Reconcile(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, store.Saves(), "second reconcile must not write")
}

func TestReconcile_UnknownSession(t *testing.T) {
	rec := newTestReconciler(t, NewGormStore(testDB(t)), t0)
	_, _, err := rec.Reconcile(context.Background(), "missing")
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestReconcile_WriteFailureSurfaces(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "s-1", msg(models.SenderUser, "hi", t0))
	store := &countingStore{Store: NewGormStore(db), failOn: map[string]bool{"s-1": true}}
	rec := newTestReconciler(t, store, t0.Add(time.Hour))

	_, _, err := rec.Reconcile(context.Background(), "s-1")
	assert.Error(t, err)
}

func TestRepair_CorrectsInPlaceAndPersists(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "s-1", msg(models.SenderUser, "hi", t0))
	store := &countingStore{Store: NewGormStore(db)}
	rec := newTestReconciler(t, store, t0.Add(time.Hour))

	var sess models.Session
	require.NoError(t, db.Preload("Messages").First(&sess, "session_id = ?", "s-1").Error)
	require.Equal(t, models.CompletionIncomplete, sess.CompletionStatus)

	assert.True(t, rec.Repair(context.Background(), &sess))
	assert.Equal(t, models.CompletionInProgress, sess.CompletionStatus)

	var stored models.Session
	require.NoError(t, db.First(&stored, "session_id = ?", "s-1").Error)
	assert.Equal(t, models.CompletionInProgress, stored.CompletionStatus)

	assert.False(t, rec.Repair(context.Background(), &sess))
	assert.Equal(t, 1, store.Saves())
}

func TestRepair_WriteFailureStillReturnsCorrectedValue(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "s-1", msg(models.SenderUser, "hi", t0))
	store := &countingStore{Store: NewGormStore(db), failOn: map[string]bool{"s-1": true}}
	rec := newTestReconciler(t, store, t0.Add(time.Hour))

	var sess models.Session
	require.NoError(t, db.Preload("Messages").First(&sess, "session_id = ?", "s-1").Error)
	assert.True(t, rec.Repair(context.Background(), &sess))
	assert.Equal(t, models.CompletionInProgress, sess.CompletionStatus)

	var stored models.Session
	require.NoError(t, db.First(&stored, "session_id = ?", "s-1").Error)
	assert.Equal(t, models.CompletionIncomplete, stored.CompletionStatus)
}

func TestRepairAll_CountsChanges(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "a", msg(models.SenderUser, "hi", t0))
	seedSession(t, db, "b", msg(models.SenderUser, "hi", t0.Add(-48*time.Hour)))
	rec := newTestReconciler(t, NewGormStore(db), t0.Add(time.Hour))

	var sessions []models.Session
	require.NoError(t, db.Preload("Messages").Order("session_id").Find(&sessions).Error)
	assert.Equal(t, 1, rec.RepairAll(context.Background(), sessions))
	assert.Equal(t, models.CompletionInProgress, sessions[0].CompletionStatus)
	assert.Equal(t, models.CompletionIncomplete, sessions[1].CompletionStatus)
}

func TestSync_PartialFailureContinues(t *testing.T) {
	db := testDB(t)
	for _, id := range []string{"1", "2", "3"} {
		seedSession(t, db, id, msg(models.SenderUser, "hi", t0))
	}
	store := &countingStore{Store: NewGormStore(db), failOn: map[string]bool{"2": true}}
	rec := newTestReconciler(t, store, t0.Add(time.Hour))

	res, err := rec.Sync(context.Background(), TriggerManual, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.CorrectedCount)
	assert.Equal(t, []string{"2"}, res.FailedIDs)

	var s3 models.Session
	require.NoError(t, db.First(&s3, "session_id = ?", "3").Error)
	assert.Equal(t, models.CompletionInProgress, s3.CompletionStatus)
}

func TestSync_IdempotentSecondRun(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "a", msg(models.SenderAI, "we reply within 24 hours", t0))
	seedSession(t, db, "b", msg(models.SenderUser, "hi", t0))
	seedSession(t, db, "c")
	store := &countingStore{Store: NewGormStore(db)}
	rec := newTestReconciler(t, store, t0.Add(time.Hour))
	ctx := context.Background()

	first, err := rec.Sync(ctx, TriggerBatch, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.CorrectedCount, "c is already incomplete")
	saves := store.Saves()

	second, err := rec.Sync(ctx, TriggerBatch, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.CorrectedCount)
	assert.Empty(t, second.FailedIDs)
	assert.NotNil(t, second.FailedIDs)
	assert.Equal(t, saves, store.Saves(), "second sync must not write")
}

func TestSync_Filter(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "a", msg(models.SenderUser, "hi", t0))
	seedSession(t, db, "b", msg(models.SenderUser, "hi", t0))
	rec := newTestReconciler(t, NewGormStore(db), t0.Add(time.Hour))

	res, err := rec.Sync(context.Background(), TriggerManual, Filter{SessionIDs: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.CorrectedCount)

	var a models.Session
	require.NoError(t, db.First(&a, "session_id = ?", "a").Error)
	assert.Equal(t, models.CompletionIncomplete, a.CompletionStatus)
}

func TestSync_StalenessDemotesInProgress(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "a", msg(models.SenderUser, "hi", t0))
	ctx := context.Background()

	_, err := newTestReconciler(t, NewGormStore(db), t0.Add(time.Hour)).Sync(ctx, TriggerBatch, Filter{})
	require.NoError(t, err)
	res, err := newTestReconciler(t, NewGormStore(db), t0.Add(13*time.Hour)).Sync(ctx, TriggerBatch, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CorrectedCount)

	var a models.Session
	require.NoError(t, db.First(&a, "session_id = ?", "a").Error)
	assert.Equal(t, models.CompletionIncomplete, a.CompletionStatus)
}

func TestSync_CancelledContext(t *testing.T) {
	db := testDB(t)
	seedSession(t, db, "a", msg(models.SenderUser, "hi", t0))
	rec := newTestReconciler(t, NewGormStore(db), t0.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rec.Sync(ctx, TriggerBatch, Filter{})
	assert.Error(t, err)
}
