package models

import "time"

// Lead holds contact and qualification data captured during a conversation.
// It is keyed by session_id but not owned by the Session: it may exist
// before the session row or outlive it.
type Lead struct {
	ID                       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID                string    `gorm:"size:100;not null;uniqueIndex" json:"session_id"`
	FullName                 string    `gorm:"size:255" json:"full_name,omitempty"`
	Email                    string    `gorm:"size:255;index" json:"email,omitempty"`
	PhoneNumber              string    `gorm:"size:64" json:"phone_number,omitempty"`
	CompanyName              string    `gorm:"size:255" json:"company_name,omitempty"`
	AIInterestReason         string    `gorm:"column:ai_interest_reason;type:text" json:"ai_interest_reason,omitempty"`
	BusinessChallenges       string    `gorm:"type:text" json:"business_challenges,omitempty"`
	BusinessGoals6To12M      string    `gorm:"column:business_goals_6_12m;type:text" json:"business_goals_6_12m,omitempty"`
	AIImplementationKnown    string    `gorm:"column:ai_implementation_known;type:text" json:"ai_implementation_known,omitempty"`
	AIImplementationTimeline string    `gorm:"column:ai_implementation_timeline;type:text" json:"ai_implementation_timeline,omitempty"`
	AIBudgetAllocated        *bool     `gorm:"column:ai_budget_allocated" json:"ai_budget_allocated,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}
