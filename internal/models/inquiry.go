package models

import "time"

// EmailInquiry is a support ticket received from Gorgias.
type EmailInquiry struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID     string    `gorm:"size:100;not null;uniqueIndex" json:"ticket_id"`
	Subject      string    `gorm:"type:text;not null" json:"subject"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	SenderEmail  string    `gorm:"size:255;not null;index" json:"sender_email"`
	SenderName   string    `gorm:"size:255" json:"sender_name,omitempty"`
	ReceivedDate time.Time `gorm:"not null;index" json:"received_date"`
	InquiryType  string    `gorm:"size:100" json:"inquiry_type,omitempty"`
	TicketURL    string    `gorm:"size:500" json:"ticket_url,omitempty"`
	Status       string    `gorm:"size:50;not null;default:skipped;index" json:"status"`
	Engaged      bool      `gorm:"not null;default:false;index" json:"engaged"`
	AIResponse   string    `gorm:"type:text" json:"ai_response,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InquiryStatuses lists the accepted EmailInquiry.Status values.
var InquiryStatuses = []string{"engaged", "skipped", "pending", "processed", "ignored"}
