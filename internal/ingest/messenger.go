package ingest

import (
	"time"

	"github.com/tidwall/gjson"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
)

// ParseMessenger extracts text messages from a Facebook page webhook
// delivery. Each entry[].messaging[] event with message.text becomes one
// ChatMessage in session messenger_<psid>. Echoes of the page's own replies
// are recorded as AI messages addressed to the recipient. Non-text events
// (read receipts, postbacks, attachments) are skipped. An event without a
// timestamp is stamped with now.
func ParseMessenger(body []byte, now time.Time) ([]ChatMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, errdefs.Validationf("request body is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if obj := doc.Get("object").String(); obj != "page" {
		return nil, errdefs.Validationf("webhook object %q is not page", obj)
	}

	var out []ChatMessage
	for _, entry := range doc.Get("entry").Array() {
		for _, ev := range entry.Get("messaging").Array() {
			text := ev.Get("message.text").String()
			if text == "" {
				continue
			}
			sender := models.SenderUser
			psid := ev.Get("sender.id").String()
			if ev.Get("message.is_echo").Bool() {
				sender = models.SenderAI
				psid = ev.Get("recipient.id").String()
			}
			if psid == "" {
				continue
			}
			ts, err := parseTimestamp(ev.Get("timestamp"), now)
			if err != nil {
				return nil, err
			}
			contact := psid
			msg := ChatMessage{
				SessionID: MessengerSessionPrefix + psid,
				Source:    models.SourceMessenger,
				Sender:    sender,
				Content:   text,
				Timestamp: ts,
				ContactID: &contact,
			}
			if err := msg.Validate(); err != nil {
				return nil, err
			}
			out = append(out, msg)
		}
	}
	return out, nil
}
