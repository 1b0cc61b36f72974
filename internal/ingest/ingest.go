// Package ingest turns inbound webhook and widget payloads into chat
// messages and email inquiries.
package ingest

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
)

// MessengerSessionPrefix prefixes the page-scoped user id to form a session id.
const MessengerSessionPrefix = "messenger_"

// ChatMessage is one message to append, with the session metadata needed to
// create the session when it does not exist yet.
type ChatMessage struct {
	SessionID    string
	Source       models.Source
	Sender       models.Sender
	Content      string
	Timestamp    time.Time
	CustomerName *string
	ContactID    *string
}

// Validate checks required fields and enum values.
func (m ChatMessage) Validate() error {
	if strings.TrimSpace(m.SessionID) == "" {
		return errdefs.Validationf("session_id is required")
	}
	if len(m.SessionID) > 100 {
		return errdefs.Validationf("session_id exceeds 100 characters")
	}
	if !m.Source.Valid() {
		return errdefs.Validationf("source %q is not one of messenger, web_chat, embed_chat", m.Source)
	}
	if !m.Sender.Valid() {
		return errdefs.Validationf("sender %q is not one of user, ai", m.Sender)
	}
	if strings.TrimSpace(m.Content) == "" {
		return errdefs.Validationf("content is required")
	}
	if m.Timestamp.IsZero() {
		return errdefs.Validationf("timestamp is required")
	}
	return nil
}

// ParseWidget parses the JSON body of POST /api/chat/messages. A missing
// session_id gets a generated one; a missing timestamp takes now.
func ParseWidget(body []byte, now time.Time) (ChatMessage, error) {
	if !gjson.ValidBytes(body) {
		return ChatMessage{}, errdefs.Validationf("request body is not valid JSON")
	}
	doc := gjson.ParseBytes(body)

	msg := ChatMessage{
		SessionID: doc.Get("session_id").String(),
		Source:    models.Source(doc.Get("source").String()),
		Sender:    models.Sender(doc.Get("sender").String()),
		Content:   doc.Get("content").String(),
	}
	if msg.Source == "" {
		msg.Source = models.SourceWebChat
	}
	if msg.SessionID == "" {
		msg.SessionID = "web_" + uuid.NewString()
	}

	ts, err := parseTimestamp(doc.Get("timestamp"), now)
	if err != nil {
		return ChatMessage{}, err
	}
	msg.Timestamp = ts

	if v := doc.Get("customer_name"); v.Exists() && v.String() != "" {
		name := v.String()
		msg.CustomerName = &name
	}
	if v := doc.Get("contact_id"); v.Exists() && v.String() != "" {
		id := v.String()
		msg.ContactID = &id
	}
	return msg, msg.Validate()
}

// parseTimestamp accepts RFC 3339 strings or unix epoch numbers (seconds,
// or milliseconds when the value is too large to be seconds). Missing
// values default to now.
func parseTimestamp(v gjson.Result, now time.Time) (time.Time, error) {
	switch v.Type {
	case gjson.Null:
		return now.UTC(), nil
	case gjson.Number:
		if v.Int() <= 0 {
			return time.Time{}, errdefs.Validationf("timestamp %s is not a positive epoch", v.Raw)
		}
		return epoch(v.Int()), nil
	case gjson.String:
		if v.String() == "" {
			return now.UTC(), nil
		}
		ts, err := time.Parse(time.RFC3339, v.String())
		if err != nil {
			return time.Time{}, errdefs.Validationf("timestamp %q is not RFC 3339", v.String())
		}
		return ts.UTC(), nil
	}
	return time.Time{}, errdefs.Validationf("timestamp must be a string or number")
}

func epoch(n int64) time.Time {
	if n > 1e11 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
