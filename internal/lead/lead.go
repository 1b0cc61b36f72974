// Package lead stores lead qualification data captured from conversations.
package lead

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// placeholders are values that count as "not yet captured" and may be
// overwritten by a later upsert.
var placeholders = map[string]bool{
	"":              true,
	"Unknown":       true,
	"Web Chat User": true,
}

func isPlaceholder(v string) bool {
	return placeholders[strings.TrimSpace(v)]
}

type stringField struct {
	column string
	ptr    func(*models.Lead) *string
}

var stringFields = []stringField{
	{"full_name", func(l *models.Lead) *string { return &l.FullName }},
	{"email", func(l *models.Lead) *string { return &l.Email }},
	{"phone_number", func(l *models.Lead) *string { return &l.PhoneNumber }},
	{"company_name", func(l *models.Lead) *string { return &l.CompanyName }},
	{"ai_interest_reason", func(l *models.Lead) *string { return &l.AIInterestReason }},
	{"business_challenges", func(l *models.Lead) *string { return &l.BusinessChallenges }},
	{"business_goals_6_12m", func(l *models.Lead) *string { return &l.BusinessGoals6To12M }},
	{"ai_implementation_known", func(l *models.Lead) *string { return &l.AIImplementationKnown }},
	{"ai_implementation_timeline", func(l *models.Lead) *string { return &l.AIImplementationTimeline }},
}

// Merge copies fields from src into dst where dst holds no real value yet.
// Placeholder values in src are ignored. It returns the changed columns.
func Merge(dst *models.Lead, src models.Lead) []string {
	var changed []string
	for _, f := range stringFields {
		in := strings.TrimSpace(*f.ptr(&src))
		if isPlaceholder(in) {
			continue
		}
		if cur := f.ptr(dst); isPlaceholder(*cur) {
			*cur = in
			changed = append(changed, f.column)
		}
	}
	if src.AIBudgetAllocated != nil && dst.AIBudgetAllocated == nil {
		v := *src.AIBudgetAllocated
		dst.AIBudgetAllocated = &v
		changed = append(changed, "ai_budget_allocated")
	}
	return changed
}

// UpsertResult reports what an upsert did.
type UpsertResult struct {
	Lead    *models.Lead `json:"lead"`
	Created bool         `json:"created"`
	Updated []string     `json:"updated_fields"`
}

// Service reads and writes leads.
type Service struct {
	db        *gorm.DB
	extractor *Extractor
}

// NewService creates a Service. extractor may be nil when AI extraction is
// not configured.
func NewService(db *gorm.DB, extractor *Extractor) *Service {
	return &Service{db: db, extractor: extractor}
}

// Get returns the lead for a session.
func (s *Service) Get(ctx context.Context, sessionID string) (*models.Lead, error) {
	var l models.Lead
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errdefs.NotFoundf("lead for session %s", sessionID)
		}
		return nil, fmt.Errorf("lead: load %s: %w", sessionID, err)
	}
	return &l, nil
}

// Upsert creates the session's lead from in, or merges in into the existing
// lead without overwriting captured values.
func (s *Service) Upsert(ctx context.Context, sessionID string, in models.Lead) (*UpsertResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errdefs.Validationf("session_id is required")
	}
	res := &UpsertResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh := models.Lead{SessionID: sessionID}
		Merge(&fresh, in)
		created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
		if created.Error != nil {
			return fmt.Errorf("create: %w", created.Error)
		}
		if created.RowsAffected == 1 {
			res.Lead = &fresh
			res.Created = true
			return nil
		}

		var existing models.Lead
		if err := tx.Where("session_id = ?", sessionID).First(&existing).Error; err != nil {
			return fmt.Errorf("load: %w", err)
		}
		res.Lead = &existing
		res.Updated = Merge(&existing, in)
		if len(res.Updated) == 0 {
			return nil
		}
		cols := append([]string{"updated_at"}, res.Updated...)
		if err := tx.Model(&existing).Select(cols).Updates(&existing).Error; err != nil {
			return fmt.Errorf("update: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lead: upsert %s: %w", sessionID, err)
	}
	log.WithFields(log.Fields{
		"session_id": sessionID,
		"created":    res.Created,
		"updated":    strings.Join(res.Updated, ","),
	}).Info("lead upserted")
	return res, nil
}
