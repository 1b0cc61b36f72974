package ingest

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
)

// ParseGorgias maps a Gorgias ticket webhook to an EmailInquiry. The ticket
// may be the whole body or nested under "ticket". New inquiries start as
// pending.
func ParseGorgias(body []byte, now time.Time) (models.EmailInquiry, error) {
	if !gjson.ValidBytes(body) {
		return models.EmailInquiry{}, errdefs.Validationf("request body is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if t := doc.Get("ticket"); t.IsObject() {
		doc = t
	}

	inq := models.EmailInquiry{
		TicketID:    doc.Get("id").String(),
		Subject:     doc.Get("subject").String(),
		SenderEmail: firstNonEmpty(doc.Get("customer.email").String(), doc.Get("messages.0.sender.email").String()),
		SenderName:  customerName(doc),
		InquiryType: doc.Get("channel").String(),
		TicketURL:   doc.Get("uri").String(),
		Status:      "pending",
	}
	inq.Body = firstNonEmpty(
		doc.Get("messages.0.body_text").String(),
		doc.Get("messages.0.stripped_text").String(),
		doc.Get("excerpt").String(),
	)

	inq.ReceivedDate = now.UTC()
	if raw := doc.Get("created_datetime").String(); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return models.EmailInquiry{}, errdefs.Validationf("created_datetime %q is not RFC 3339", raw)
		}
		inq.ReceivedDate = ts.UTC()
	}

	switch {
	case inq.TicketID == "":
		return models.EmailInquiry{}, errdefs.Validationf("ticket id is required")
	case inq.SenderEmail == "":
		return models.EmailInquiry{}, errdefs.Validationf("ticket %s has no customer email", inq.TicketID)
	}
	if inq.Subject == "" {
		inq.Subject = "(no subject)"
	}
	return inq, nil
}

func customerName(doc gjson.Result) string {
	if name := doc.Get("customer.name").String(); name != "" {
		return name
	}
	first := doc.Get("customer.firstname").String()
	last := doc.Get("customer.lastname").String()
	return strings.TrimSpace(first + " " + last)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
