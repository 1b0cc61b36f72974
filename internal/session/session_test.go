package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/switchboard/internal/completion"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/ingest"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

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

type fixture struct {
	db  *gorm.DB
	svc *Service
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testDB(t), now: t0}
	clock := func() time.Time { return f.now }
	rec, err := completion.NewReconciler(completion.ReconcilerOpts{
		Store:  completion.NewGormStore(f.db),
		Policy: completion.Policy{Marker: "within 24 hours", Freshness: 12 * time.Hour},
		Clock:  clock,
	})
	require.NoError(t, err)
	f.svc, err = NewService(Opts{DB: f.db, Reconciler: rec, Clock: clock})
	require.NoError(t, err)
	return f
}

func (f *fixture) append(t *testing.T, id string, sender models.Sender, content string, at time.Time) *models.Session {
	t.Helper()
	sess, err := f.svc.Append(context.Background(), ingest.ChatMessage{
		SessionID: id,
		Source:    models.SourceWebChat,
		Sender:    sender,
		Content:   content,
		Timestamp: at,
	})
	require.NoError(t, err)
	return sess
}

func (f *fixture) stored(t *testing.T, id string) models.Session {
	t.Helper()
	var sess models.Session
	require.NoError(t, f.db.First(&sess, "session_id = ?", id).Error)
	return sess
}

func TestAppend_CreatesSessionAndReconciles(t *testing.T) {
	f := newFixture(t)
	sess := f.append(t, "web_1", models.SenderUser, "hi", t0)

	assert.Equal(t, models.CompletionInProgress, sess.CompletionStatus)
	assert.Len(t, sess.Messages, 1)
	assert.Equal(t, models.CompletionInProgress, f.stored(t, "web_1").CompletionStatus)

	sess = f.append(t, "web_1", models.SenderAI, "we'll get back within 24 hours", t0.Add(time.Minute))
	assert.Equal(t, models.CompletionComplete, sess.CompletionStatus)
	require.NotNil(t, sess.CompletedAt)
	assert.Len(t, sess.Messages, 2)
	assert.Equal(t, models.CompletionComplete, f.stored(t, "web_1").CompletionStatus)
}

func TestAppend_CustomerNameFilledOnce(t *testing.T) {
	f := newFixture(t)
	name := "Dana"
	_, err := f.svc.Append(context.Background(), ingest.ChatMessage{
		SessionID: "web_2", Source: models.SourceWebChat, Sender: models.SenderUser,
		Content: "hi", Timestamp: t0, CustomerName: &name,
	})
	require.NoError(t, err)

	other := "Someone Else"
	sess, err := f.svc.Append(context.Background(), ingest.ChatMessage{
		SessionID: "web_2", Source: models.SourceWebChat, Sender: models.SenderUser,
		Content: "again", Timestamp: t0, CustomerName: &other,
	})
	require.NoError(t, err)
	require.NotNil(t, sess.CustomerName)
	assert.Equal(t, "Dana", *sess.CustomerName)
}

func TestAppend_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Append(context.Background(), ingest.ChatMessage{SessionID: "x", Source: "sms", Sender: models.SenderUser, Content: "hi", Timestamp: t0})
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}

func TestGet_RepairsStaleStatus(t *testing.T) {
	f := newFixture(t)
	f.append(t, "web_1", models.SenderUser, "hi", t0)

	f.now = t0.Add(13 * time.Hour)
	sess, err := f.svc.Get(context.Background(), "web_1")
	require.NoError(t, err)
	assert.Equal(t, models.CompletionIncomplete, sess.CompletionStatus)
	assert.Equal(t, models.CompletionIncomplete, f.stored(t, "web_1").CompletionStatus)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.append(t, "web_"+strconv.Itoa(i), models.SenderUser, "hi", t0)
	}
	f.append(t, "web_0", models.SenderAI, "within 24 hours", t0)

	res, err := f.svc.List(context.Background(), ListFilter{PerPage: 2, Page: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, int64(5), res.Pagination.Total)
	assert.Equal(t, 3, res.Pagination.Pages)
	assert.True(t, res.Pagination.HasNext)
	assert.True(t, res.Pagination.HasPrev)
	for _, item := range res.Items {
		assert.Nil(t, item.Messages)
		assert.Equal(t, 1, item.MessageCount)
	}

	res, err = f.svc.List(context.Background(), ListFilter{CompletionStatus: models.CompletionComplete})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "web_0", res.Items[0].SessionID)
	assert.Equal(t, 2, res.Items[0].MessageCount)

	res, err = f.svc.List(context.Background(), ListFilter{Query: "web_3"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestList_CompletionFilterSeesDecay(t *testing.T) {
	f := newFixture(t)
	f.append(t, "web_1", models.SenderUser, "hi", t0)
	f.now = t0.Add(13 * time.Hour)

	res, err := f.svc.List(context.Background(), ListFilter{CompletionStatus: models.CompletionInProgress})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	res, err = f.svc.List(context.Background(), ListFilter{CompletionStatus: models.CompletionIncomplete})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestList_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), ListFilter{QAStatus: "archived"})
	assert.ErrorIs(t, err, errdefs.ErrValidation)
	_, err = f.svc.List(context.Background(), ListFilter{PerPage: 101})
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}

func TestArchiveUnarchive(t *testing.T) {
	f := newFixture(t)
	f.append(t, "web_1", models.SenderUser, "hi", t0)

	sess, err := f.svc.Archive(context.Background(), "web_1")
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveArchived, sess.ArchiveStatus)
	assert.NotNil(t, sess.ArchivedAt)

	sess, err = f.svc.Unarchive(context.Background(), "web_1")
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveActive, sess.ArchiveStatus)
	assert.Nil(t, sess.ArchivedAt)

	_, err = f.svc.Archive(context.Background(), "nope")
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.append(t, "web_1", models.SenderUser, "hi", t0)

	require.NoError(t, f.svc.Delete(context.Background(), "web_1"))
	var n int64
	f.db.Model(&models.Message{}).Where("session_id = ?", "web_1").Count(&n)
	assert.Zero(t, n)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), "web_1"), errdefs.ErrNotFound)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.append(t, "web_1", models.SenderUser, "hi", t0)
	f.append(t, "web_2", models.SenderAI, "within 24 hours", t0)
	_, err := f.svc.Archive(context.Background(), "web_2")
	require.NoError(t, err)

	st, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Total)
	assert.Equal(t, int64(2), st.Messages)
	assert.Equal(t, int64(1), st.ByCompletion[models.CompletionComplete])
	assert.Equal(t, int64(1), st.ByCompletion[models.CompletionInProgress])
	assert.Equal(t, int64(0), st.ByCompletion[models.CompletionIncomplete])
	assert.Equal(t, int64(2), st.ByQA[models.QAUnchecked])
	assert.Equal(t, int64(1), st.ByArchive[models.ArchiveArchived])
	assert.Equal(t, int64(2), st.BySource[models.SourceWebChat])
	assert.Equal(t, int64(0), st.BySource[models.SourceMessenger])
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(1, 20, 0)
	assert.Equal(t, 0, p.Pages)
	assert.False(t, p.HasNext)
	p = NewPagination(2, 20, 41)
	assert.Equal(t, 3, p.Pages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
}
