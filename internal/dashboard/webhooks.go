package dashboard

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/ingest"
)

// verifyMessenger answers the Facebook subscription handshake.
func (h *handlers) verifyMessenger(c *gin.Context) {
	token := h.opts.VerifyToken
	got := c.Query("hub.verify_token")
	if token == "" || c.Query("hub.mode") != "subscribe" ||
		subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// receiveMessenger stores each text event of a delivery. Facebook redelivers
// the whole batch on any non-200 answer, so an event that fails to store is
// logged and skipped rather than failing the events already committed.
func (h *handlers) receiveMessenger(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, errdefs.Validationf("read body: %v", err))
		return
	}
	msgs, err := ingest.ParseMessenger(body, h.opts.Clock())
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	var failed []string
	for _, m := range msgs {
		if _, err := h.opts.Sessions.Append(ctx, m); err != nil {
			log.WithError(err).WithField("session_id", m.SessionID).Error("messenger event not stored")
			failed = append(failed, m.SessionID)
		}
	}
	log.WithFields(log.Fields{"messages": len(msgs), "failed": len(failed)}).Debug("messenger delivery processed")
	ok(c, http.StatusOK, gin.H{"received": len(msgs) - len(failed), "failed": len(failed)})
}

func (h *handlers) receiveGorgias(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, errdefs.Validationf("read body: %v", err))
		return
	}
	inq, err := ingest.ParseGorgias(body, h.opts.Clock())
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.opts.Inquiries.UpsertByTicket(c.Request.Context(), &inq); err != nil {
		fail(c, err)
		return
	}
	log.WithField("ticket_id", inq.TicketID).Info("gorgias ticket stored")
	ok(c, http.StatusOK, inq)
}
