package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
)

var now = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func TestParseWidget(t *testing.T) {
	body := `{"session_id":"web_1","source":"embed_chat","sender":"ai","content":"We'll get back within 24 hours","timestamp":"2026-04-01T09:30:00Z","customer_name":"Dana"}`
	msg, err := ParseWidget([]byte(body), now)
	require.NoError(t, err)

	assert.Equal(t, "web_1", msg.SessionID)
	assert.Equal(t, models.SourceEmbedChat, msg.Source)
	assert.Equal(t, models.SenderAI, msg.Sender)
	assert.Equal(t, time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC), msg.Timestamp)
	require.NotNil(t, msg.CustomerName)
	assert.Equal(t, "Dana", *msg.CustomerName)
	assert.Nil(t, msg.ContactID)
}

func TestParseWidget_Defaults(t *testing.T) {
	msg, err := ParseWidget([]byte(`{"sender":"user","content":"hi"}`), now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.SessionID, "web_"))
	assert.Equal(t, models.SourceWebChat, msg.Source)
	assert.Equal(t, now, msg.Timestamp)
}

func TestParseWidget_EpochTimestamps(t *testing.T) {
	msg, err := ParseWidget([]byte(`{"session_id":"s","sender":"user","content":"hi","timestamp":1775037600}`), now)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1775037600, 0).UTC(), msg.Timestamp)

	msg, err = ParseWidget([]byte(`{"session_id":"s","sender":"user","content":"hi","timestamp":1775037600123}`), now)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1775037600123).UTC(), msg.Timestamp)
}

func TestParseWidget_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":   `{"session_id":`,
		"bad sender": `{"session_id":"s","sender":"bot","content":"hi"}`,
		"bad source": `{"session_id":"s","source":"sms","sender":"user","content":"hi"}`,
		"no content": `{"session_id":"s","sender":"user","content":"  "}`,
		"bad time":   `{"session_id":"s","sender":"user","content":"hi","timestamp":"yesterday"}`,
		"long id":    `{"session_id":"` + strings.Repeat("x", 101) + `","sender":"user","content":"hi"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWidget([]byte(body), now)
			assert.ErrorIs(t, err, errdefs.ErrValidation)
		})
	}
}

const messengerDelivery = `{
  "object": "page",
  "entry": [{
    "id": "PAGE",
    "time": 1775037600000,
    "messaging": [
      {"sender": {"id": "991"}, "recipient": {"id": "PAGE"}, "timestamp": 1775037600000,
       "message": {"mid": "m1", "text": "hi, do you do AI audits?"}},
      {"sender": {"id": "PAGE"}, "recipient": {"id": "991"}, "timestamp": 1775037660000,
       "message": {"mid": "m2", "is_echo": true, "text": "Yes! We'll get back within 24 hours"}},
      {"sender": {"id": "991"}, "recipient": {"id": "PAGE"}, "timestamp": 1775037670000,
       "read": {"watermark": 1775037660000}}
    ]
  }]
}`

func TestParseMessenger(t *testing.T) {
	msgs, err := ParseMessenger([]byte(messengerDelivery), now)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "messenger_991", msgs[0].SessionID)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, models.SourceMessenger, msgs[0].Source)
	assert.Equal(t, time.UnixMilli(1775037600000).UTC(), msgs[0].Timestamp)
	assert.Equal(t, "991", *msgs[0].ContactID)

	assert.Equal(t, "messenger_991", msgs[1].SessionID, "echo is filed under the recipient")
	assert.Equal(t, models.SenderAI, msgs[1].Sender)
}

func TestParseMessenger_WrongObject(t *testing.T) {
	_, err := ParseMessenger([]byte(`{"object":"instagram","entry":[]}`), now)
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}

func TestParseMessenger_NoTextEvents(t *testing.T) {
	msgs, err := ParseMessenger([]byte(`{"object":"page","entry":[{"messaging":[{"sender":{"id":"1"},"postback":{"payload":"GET_STARTED"}}]}]}`), now)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestParseMessenger_Timestamps(t *testing.T) {
	event := func(ts string) []byte {
		return []byte(`{"object":"page","entry":[{"messaging":[{"sender":{"id":"7"},"recipient":{"id":"PAGE"}` + ts + `,"message":{"text":"hi"}}]}]}`)
	}

	msgs, err := ParseMessenger(event(""), now)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, now, msgs[0].Timestamp, "missing timestamp defaults to now")

	msgs, err = ParseMessenger(event(`,"timestamp":null`), now)
	require.NoError(t, err)
	assert.Equal(t, now, msgs[0].Timestamp)

	for name, ts := range map[string]string{
		"zero":    `,"timestamp":0`,
		"garbage": `,"timestamp":"soon"`,
		"object":  `,"timestamp":{}`,
	} {
		_, err := ParseMessenger(event(ts), now)
		assert.ErrorIs(t, err, errdefs.ErrValidation, name)
	}
}

func TestParseGorgias(t *testing.T) {
	body := `{"ticket":{
	  "id": 4411,
	  "subject": "Pricing for enterprise plan",
	  "channel": "email",
	  "uri": "https://acme.gorgias.com/api/tickets/4411",
	  "created_datetime": "2026-04-01T08:00:00Z",
	  "customer": {"email": "lee@example.com", "firstname": "Lee", "lastname": "Park"},
	  "messages": [{"body_text": "Can you send pricing?", "sender": {"email": "lee@example.com"}}]
	}}`
	inq, err := ParseGorgias([]byte(body), now)
	require.NoError(t, err)

	assert.Equal(t, "4411", inq.TicketID)
	assert.Equal(t, "Pricing for enterprise plan", inq.Subject)
	assert.Equal(t, "Can you send pricing?", inq.Body)
	assert.Equal(t, "lee@example.com", inq.SenderEmail)
	assert.Equal(t, "Lee Park", inq.SenderName)
	assert.Equal(t, "email", inq.InquiryType)
	assert.Equal(t, "pending", inq.Status)
	assert.Equal(t, time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC), inq.ReceivedDate)
}

func TestParseGorgias_FlatAndDefaults(t *testing.T) {
	inq, err := ParseGorgias([]byte(`{"id":"7","customer":{"email":"a@b.c","name":"Al"},"excerpt":"hello"}`), now)
	require.NoError(t, err)
	assert.Equal(t, "(no subject)", inq.Subject)
	assert.Equal(t, "hello", inq.Body)
	assert.Equal(t, "Al", inq.SenderName)
	assert.Equal(t, now, inq.ReceivedDate)
}

func TestParseGorgias_Invalid(t *testing.T) {
	_, err := ParseGorgias([]byte(`{"subject":"x"}`), now)
	assert.ErrorIs(t, err, errdefs.ErrValidation)
	_, err = ParseGorgias([]byte(`{"id":1}`), now)
	assert.ErrorIs(t, err, errdefs.ErrValidation)
	_, err = ParseGorgias([]byte(`nope`), now)
	assert.ErrorIs(t, err, errdefs.ErrValidation)
}
