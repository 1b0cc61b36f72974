// Package inquiry manages email inquiries received from the helpdesk.
package inquiry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ValidStatus reports whether s is an accepted inquiry status.
func ValidStatus(s string) bool {
	for _, v := range models.InquiryStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Validate checks the fields required to store an inquiry.
func Validate(inq *models.EmailInquiry) error {
	var missing []string
	if strings.TrimSpace(inq.TicketID) == "" {
		missing = append(missing, "ticket_id")
	}
	if strings.TrimSpace(inq.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(inq.SenderEmail) == "" {
		missing = append(missing, "sender_email")
	}
	if inq.ReceivedDate.IsZero() {
		missing = append(missing, "received_date")
	}
	if len(missing) > 0 {
		return errdefs.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if inq.Status == "" {
		inq.Status = "skipped"
	}
	if !ValidStatus(inq.Status) {
		return errdefs.Validationf("status %q is not one of %s", inq.Status, strings.Join(models.InquiryStatuses, ", "))
	}
	return nil
}

// Update carries the mutable fields of an inquiry. Nil fields are left as is.
type Update struct {
	Status      *string `json:"status"`
	Engaged     *bool   `json:"engaged"`
	AIResponse  *string `json:"ai_response"`
	InquiryType *string `json:"inquiry_type"`
}

// ListFilter selects and pages inquiries.
type ListFilter struct {
	Status      string
	Engaged     *bool
	SenderEmail string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PerPage     int
}

// ListResult is one page of inquiries.
type ListResult struct {
	Items      []models.EmailInquiry `json:"items"`
	Pagination session.Pagination    `json:"pagination"`
}

// Stats summarizes inquiries.
type Stats struct {
	Total          int64   `json:"total_inquiries"`
	Engaged        int64   `json:"engaged_inquiries"`
	Pending        int64   `json:"pending_inquiries"`
	Processed      int64   `json:"processed_inquiries"`
	Ignored        int64   `json:"ignored_inquiries"`
	EngagementRate float64 `json:"engagement_rate"`
}

// Service reads and writes inquiries.
type Service struct {
	db *gorm.DB
}

// NewService creates a Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create stores a new inquiry.
func (s *Service) Create(ctx context.Context, inq *models.EmailInquiry) error {
	if err := Validate(inq); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(inq).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errdefs.Conflictf("inquiry for ticket %s already exists", inq.TicketID)
		}
		return fmt.Errorf("inquiry: create %s: %w", inq.TicketID, err)
	}
	log.WithFields(log.Fields{"id": inq.ID, "ticket_id": inq.TicketID}).Info("inquiry created")
	return nil
}

// UpsertByTicket stores a webhook delivery. Redelivery of a known ticket
// refreshes its content but keeps status, engagement and AI response.
func (s *Service) UpsertByTicket(ctx context.Context, inq *models.EmailInquiry) error {
	if err := Validate(inq); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticket_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subject", "body", "sender_email", "sender_name", "ticket_url", "updated_at"}),
	}).Create(inq).Error
	if err != nil {
		return fmt.Errorf("inquiry: upsert ticket %s: %w", inq.TicketID, err)
	}
	var stored models.EmailInquiry
	if err := s.db.WithContext(ctx).Where("ticket_id = ?", inq.TicketID).First(&stored).Error; err != nil {
		return fmt.Errorf("inquiry: reload ticket %s: %w", inq.TicketID, err)
	}
	*inq = stored
	return nil
}

// Get returns one inquiry.
func (s *Service) Get(ctx context.Context, id uint) (*models.EmailInquiry, error) {
	var inq models.EmailInquiry
	if err := s.db.WithContext(ctx).First(&inq, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errdefs.NotFoundf("inquiry %d", id)
		}
		return nil, fmt.Errorf("inquiry: load %d: %w", id, err)
	}
	return &inq, nil
}

// Update applies u to inquiry id.
func (s *Service) Update(ctx context.Context, id uint, u Update) (*models.EmailInquiry, error) {
	inq, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if u.Status != nil {
		if !ValidStatus(*u.Status) {
			return nil, errdefs.Validationf("status %q is not one of %s", *u.Status, strings.Join(models.InquiryStatuses, ", "))
		}
		changes["status"] = *u.Status
	}
	if u.Engaged != nil {
		changes["engaged"] = *u.Engaged
	}
	if u.AIResponse != nil {
		changes["ai_response"] = *u.AIResponse
	}
	if u.InquiryType != nil {
		changes["inquiry_type"] = *u.InquiryType
	}
	if len(changes) == 0 {
		return inq, nil
	}
	if err := s.db.WithContext(ctx).Model(inq).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("inquiry: update %d: %w", id, err)
	}
	log.WithField("id", id).Info("inquiry updated")
	return s.Get(ctx, id)
}

// Delete removes inquiry id.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.EmailInquiry{}, id)
	if res.Error != nil {
		return fmt.Errorf("inquiry: delete %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errdefs.NotFoundf("inquiry %d", id)
	}
	log.WithField("id", id).Info("inquiry deleted")
	return nil
}

// List returns a page of inquiries, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, errdefs.Validationf("status %q is not one of %s", f.Status, strings.Join(models.InquiryStatuses, ", "))
	}
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PerPage < 1:
		f.PerPage = session.DefaultPerPage
	case f.PerPage > session.MaxPerPage:
		return nil, errdefs.Validationf("per_page %d exceeds %d", f.PerPage, session.MaxPerPage)
	}

	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.EmailInquiry{})
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Engaged != nil {
			q = q.Where("engaged = ?", *f.Engaged)
		}
		if f.SenderEmail != "" {
			q = q.Where("sender_email = ?", f.SenderEmail)
		}
		if f.DateFrom != nil {
			q = q.Where("received_date >= ?", *f.DateFrom)
		}
		if f.DateTo != nil {
			q = q.Where("received_date <= ?", *f.DateTo)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("inquiry: count: %w", err)
	}
	items := []models.EmailInquiry{}
	if err := filtered().Order("created_at DESC, id DESC").
		Offset((f.Page - 1) * f.PerPage).Limit(f.PerPage).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("inquiry: list: %w", err)
	}
	return &ListResult{Items: items, Pagination: session.NewPagination(f.Page, f.PerPage, total)}, nil
}

// Stats counts inquiries by engagement and status.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	for _, c := range []struct {
		dst  *int64
		cond []interface{}
	}{
		{&st.Total, nil},
		{&st.Engaged, []interface{}{"engaged = ?", true}},
		{&st.Pending, []interface{}{"status = ?", "pending"}},
		{&st.Processed, []interface{}{"status = ?", "processed"}},
		{&st.Ignored, []interface{}{"status = ?", "ignored"}},
	} {
		q := s.db.WithContext(ctx).Model(&models.EmailInquiry{})
		if len(c.cond) > 0 {
			q = q.Where(c.cond[0], c.cond[1:]...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("inquiry: stats: %w", err)
		}
	}
	if st.Total > 0 {
		st.EngagementRate = math.Round(float64(st.Engaged)/float64(st.Total)*10000) / 100
	}
	return &st, nil
}
