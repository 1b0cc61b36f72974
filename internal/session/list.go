package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// Page size limits for List.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ListFilter selects and pages sessions. Zero-valued fields do not filter.
type ListFilter struct {
	Source           models.Source
	CompletionStatus models.CompletionStatus
	QAStatus         models.QAStatus
	ArchiveStatus    models.ArchiveStatus
	Query            string // substring of customer name or session id
	DateFrom         *time.Time
	DateTo           *time.Time
	Page             int
	PerPage          int
}

// Normalize applies paging defaults and validates enum fields.
func (f *ListFilter) Normalize() error {
	if f.Source != "" && !f.Source.Valid() {
		return errdefs.Validationf("source %q is not one of messenger, web_chat, embed_chat", f.Source)
	}
	if f.CompletionStatus != "" && !f.CompletionStatus.Valid() {
		return errdefs.Validationf("completion_status %q is not one of complete, in_progress, incomplete", f.CompletionStatus)
	}
	if f.QAStatus != "" && !f.QAStatus.Valid() {
		return errdefs.Validationf("qa_status %q is not one of unchecked, passed, issue, fixed", f.QAStatus)
	}
	if f.ArchiveStatus != "" && !f.ArchiveStatus.Valid() {
		return errdefs.Validationf("archive_status %q is not one of active, archived", f.ArchiveStatus)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return errdefs.Validationf("date_to is before date_from")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PerPage < 1:
		f.PerPage = DefaultPerPage
	case f.PerPage > MaxPerPage:
		return errdefs.Validationf("per_page %d exceeds %d", f.PerPage, MaxPerPage)
	}
	return nil
}

// Summary is a session row for list views: the session without its
// messages, plus message aggregates.
type Summary struct {
	models.Session
	MessageCount  int        `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Pagination describes a page within a result set.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// NewPagination computes page counts for total rows.
func NewPagination(page, perPage int, total int64) Pagination {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// ListResult is one page of sessions.
type ListResult struct {
	Items      []Summary  `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// List returns a page of sessions, newest first. Every returned session has
// its completion status repaired.
func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	if f.CompletionStatus != "" {
		s.refreshDecaying(ctx)
	}

	q := s.db.WithContext(ctx).Model(&models.Session{})
	q = applyFilter(q, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("session: count: %w", err)
	}

	var sessions []models.Session
	err := applyFilter(s.db.WithContext(ctx).Model(&models.Session{}), f).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC, id ASC") }).
		Order("created_at DESC, session_id ASC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	s.rec.RepairAll(ctx, sessions)

	items := make([]Summary, len(sessions))
	for i := range sessions {
		sess := sessions[i]
		items[i] = Summary{
			MessageCount:  len(sess.Messages),
			LastMessageAt: sess.LastMessageAt(),
		}
		sess.Messages = nil
		items[i].Session = sess
	}
	return &ListResult{Items: items, Pagination: NewPagination(f.Page, f.PerPage, total)}, nil
}

func applyFilter(q *gorm.DB, f ListFilter) *gorm.DB {
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.CompletionStatus != "" {
		q = q.Where("completion_status = ?", f.CompletionStatus)
	}
	if f.QAStatus != "" {
		q = q.Where("qa_status = ?", f.QAStatus)
	}
	if f.ArchiveStatus != "" {
		q = q.Where("archive_status = ?", f.ArchiveStatus)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + term + "%"
		q = q.Where("(customer_name LIKE ? OR session_id LIKE ?)", like, like)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at <= ?", *f.DateTo)
	}
	return q
}
