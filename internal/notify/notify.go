// Package notify delivers QA issue alerts to the team.
//
// The QA workflow calls a Dispatcher exactly once per transition into the
// issue state, after the transition is committed. Delivery is best-effort:
// a failed send is reported to the caller as an error for logging but never
// undoes or blocks the transition.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/models"
)

// ColorError is the attachment/embed color of a QA issue alert.
const ColorError = "#e53935"

// Alert is the snapshot sent when a session's QA status becomes issue.
type Alert struct {
	SessionID        string                  `json:"session_id"`
	QANotes          string                  `json:"qa_notes"`
	Actor            string                  `json:"actor"`
	PreviousStatus   models.QAStatus         `json:"previous_status"`
	Source           models.Source           `json:"source"`
	CustomerName     string                  `json:"customer_name,omitempty"`
	CompletionStatus models.CompletionStatus `json:"completion_status"`
	MessageCount     int                     `json:"message_count"`
	DashboardURL     string                  `json:"dashboard_url,omitempty"`
	OccurredAt       time.Time               `json:"occurred_at"`
}

// NewAlert builds an Alert from a committed session snapshot.
func NewAlert(sess *models.Session, previous models.QAStatus, actor string, messageCount int, baseURL string, at time.Time) Alert {
	a := Alert{
		SessionID:        sess.SessionID,
		Actor:            actor,
		PreviousStatus:   previous,
		Source:           sess.Source,
		CompletionStatus: sess.CompletionStatus,
		MessageCount:     messageCount,
		OccurredAt:       at,
	}
	if sess.QANotes != nil {
		a.QANotes = *sess.QANotes
	}
	if sess.CustomerName != nil {
		a.CustomerName = *sess.CustomerName
	}
	if baseURL != "" {
		a.DashboardURL = fmt.Sprintf("%s/sessions/%s", baseURL, sess.SessionID)
	}
	return a
}

// FormattedEvent is an Alert rendered for chat platforms.
type FormattedEvent struct {
	Title  string
	Body   string
	Color  string
	Fields []Field
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// Event renders a for chat platforms.
func (a Alert) Event() FormattedEvent {
	body := a.QANotes
	if body == "" {
		body = "(no notes)"
	}
	if a.DashboardURL != "" {
		body += "\n" + a.DashboardURL
	}
	customer := a.CustomerName
	if customer == "" {
		customer = "unknown"
	}
	return FormattedEvent{
		Title: fmt.Sprintf("QA issue flagged on session %s", a.SessionID),
		Body:  body,
		Color: ColorError,
		Fields: []Field{
			{Name: "Flagged by", Value: a.Actor, Short: true},
			{Name: "Previous status", Value: string(a.PreviousStatus), Short: true},
			{Name: "Source", Value: string(a.Source), Short: true},
			{Name: "Customer", Value: customer, Short: true},
			{Name: "Completion", Value: a.CompletionStatus.Label(), Short: true},
			{Name: "Messages", Value: strconv.Itoa(a.MessageCount), Short: true},
		},
	}
}

// Dispatcher sends an Alert somewhere.
type Dispatcher interface {
	Notify(ctx context.Context, a Alert) error
}

// Channel is a named Dispatcher, one per delivery target.
type Channel interface {
	Dispatcher
	Name() string
}

// Multi fans an Alert out to every channel. A failing channel does not
// prevent delivery to the others.
type Multi struct {
	channels []Channel
}

// NewMulti returns a Multi over channels. With no channels it is a no-op.
func NewMulti(channels ...Channel) *Multi {
	return &Multi{channels: channels}
}

// Channels returns the configured channel names.
func (m *Multi) Channels() []string {
	names := make([]string, len(m.channels))
	for i, ch := range m.channels {
		names[i] = ch.Name()
	}
	return names
}

// Notify implements Dispatcher. The returned error joins one
// *errdefs.DeliveryError per failed channel.
func (m *Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Notify(ctx, a); err != nil {
			metrics.Notifications.WithLabelValues(ch.Name(), "failed").Inc()
			errs = append(errs, &errdefs.DeliveryError{SessionID: a.SessionID, Channel: ch.Name(), Err: err})
			continue
		}
		metrics.Notifications.WithLabelValues(ch.Name(), "sent").Inc()
		log.WithFields(log.Fields{
			"session_id": a.SessionID,
			"channel":    ch.Name(),
		}).Info("qa issue notification sent")
	}
	return errors.Join(errs...)
}
