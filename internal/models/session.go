package models

import "time"

// Session is one end-to-end conversation with a lead or customer.
type Session struct {
	SessionID    string  `gorm:"primaryKey;size:100" json:"session_id"`
	Source       Source  `gorm:"size:16;not null;index" json:"source"`
	CustomerName *string `gorm:"size:255" json:"customer_name,omitempty"`
	ContactID    *string `gorm:"size:255" json:"contact_id,omitempty"`

	// Derived from Messages; written only by the completion reconciler.
	CompletionStatus CompletionStatus `gorm:"size:16;default:incomplete;index" json:"completion_status"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`

	ArchiveStatus ArchiveStatus `gorm:"size:16;default:active;index" json:"archive_status"`
	ArchivedAt    *time.Time    `json:"archived_at,omitempty"`

	QAStatus          QAStatus   `gorm:"column:qa_status;size:16;default:unchecked;index" json:"qa_status"`
	QANotes           *string    `gorm:"column:qa_notes;type:text" json:"qa_notes,omitempty"`
	QAStatusUpdatedBy *string    `gorm:"column:qa_status_updated_by;size:255" json:"qa_status_updated_by,omitempty"`
	QAStatusUpdatedAt *time.Time `gorm:"column:qa_status_updated_at" json:"qa_status_updated_at,omitempty"`

	DevFeedback   *string    `gorm:"column:dev_feedback;type:text" json:"dev_feedback,omitempty"`
	DevFeedbackBy *string    `gorm:"column:dev_feedback_by;size:255" json:"dev_feedback_by,omitempty"`
	DevFeedbackAt *time.Time `gorm:"column:dev_feedback_at" json:"dev_feedback_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []Message `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// LastMessageAt returns the newest message timestamp among loaded Messages,
// or nil when none are loaded.
func (s *Session) LastMessageAt() *time.Time {
	var last *time.Time
	for i := range s.Messages {
		ts := s.Messages[i].Timestamp
		if last == nil || ts.After(*last) {
			last = &ts
		}
	}
	return last
}
