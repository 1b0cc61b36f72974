package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/completion"
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/ingest"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/qa"
	"github.com/zulandar/switchboard/internal/session"
)

func (h *handlers) appendMessage(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, errdefs.Validationf("read body: %v", err))
		return
	}
	msg, err := ingest.ParseWidget(body, h.opts.Clock())
	if err != nil {
		fail(c, err)
		return
	}
	sess, err := h.opts.Sessions.Append(c.Request.Context(), msg)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, sess)
}

func (h *handlers) listSessions(c *gin.Context) {
	f := session.ListFilter{
		Source:           models.Source(c.Query("source")),
		CompletionStatus: models.CompletionStatus(c.Query("completion_status")),
		QAStatus:         models.QAStatus(c.Query("qa_status")),
		ArchiveStatus:    models.ArchiveStatus(c.Query("archive_status")),
		Query:            c.Query("q"),
	}
	var err error
	if f.Page, err = queryInt(c, "page"); err != nil {
		fail(c, err)
		return
	}
	if f.PerPage, err = queryInt(c, "per_page"); err != nil {
		fail(c, err)
		return
	}
	if f.DateFrom, err = queryTime(c, "date_from", false); err != nil {
		fail(c, err)
		return
	}
	if f.DateTo, err = queryTime(c, "date_to", true); err != nil {
		fail(c, err)
		return
	}

	res, err := h.opts.Sessions.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// sessionDetail is a session with its messages and lead, if any.
type sessionDetail struct {
	*models.Session
	Lead *models.Lead `json:"lead"`
}

func (h *handlers) getSession(c *gin.Context) {
	ctx := c.Request.Context()
	sess, err := h.opts.Sessions.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	detail := sessionDetail{Session: sess}
	l, err := h.opts.Leads.Get(ctx, sess.SessionID)
	switch {
	case err == nil:
		detail.Lead = l
	case !errors.Is(err, errdefs.ErrNotFound):
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, detail)
}

func (h *handlers) deleteSession(c *gin.Context) {
	if err := h.opts.Sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "session deleted")
}

func (h *handlers) archiveSession(c *gin.Context) {
	sess, err := h.opts.Sessions.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

func (h *handlers) unarchiveSession(c *gin.Context) {
	sess, err := h.opts.Sessions.Unarchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

type syncRequest struct {
	SessionIDs       []string `json:"session_ids"`
	Source           string   `json:"source"`
	ArchiveStatus    string   `json:"archive_status"`
	CompletionStatus string   `json:"completion_status"`
}

func (h *handlers) syncSessions(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			fail(c, err)
			return
		}
	}
	f := completion.Filter{SessionIDs: req.SessionIDs}
	if req.Source != "" {
		src, err := models.ParseSource(req.Source)
		if err != nil {
			fail(c, err)
			return
		}
		f.Source = src
	}
	if req.ArchiveStatus != "" {
		as, err := models.ParseArchiveStatus(req.ArchiveStatus)
		if err != nil {
			fail(c, err)
			return
		}
		f.ArchiveStatus = as
	}
	if req.CompletionStatus != "" {
		cs, err := models.ParseCompletionStatus(req.CompletionStatus)
		if err != nil {
			fail(c, err)
			return
		}
		f.CompletionStatus = cs
	}

	res, err := h.opts.Reconciler.Sync(c.Request.Context(), completion.TriggerManual, f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *handlers) stats(c *gin.Context) {
	st, err := h.opts.Sessions.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

type qaRequest struct {
	TargetQAStatus   string  `json:"target_qa_status"`
	ActorIdentity    string  `json:"actor_identity"`
	RoleCapability   string  `json:"role_capability"`
	Notes            *string `json:"notes"`
	DevFeedback      *string `json:"dev_feedback"`
	ExpectedQAStatus *string `json:"expected_qa_status"`
}

func (h *handlers) updateQA(c *gin.Context) {
	var req qaRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	target, err := models.ParseQAStatus(req.TargetQAStatus)
	if err != nil {
		fail(c, err)
		return
	}
	caps, err := qa.ParseCapabilities(req.RoleCapability)
	if err != nil {
		fail(c, err)
		return
	}
	actor, err := qa.NewActor(req.ActorIdentity, caps...)
	if err != nil {
		fail(c, err)
		return
	}
	update := qa.Request{
		SessionID:   c.Param("id"),
		Target:      target,
		Actor:       actor,
		Notes:       req.Notes,
		DevFeedback: req.DevFeedback,
	}
	if req.ExpectedQAStatus != nil {
		expected, err := models.ParseQAStatus(*req.ExpectedQAStatus)
		if err != nil {
			fail(c, err)
			return
		}
		update.Expected = &expected
	}

	res, err := h.opts.QA.Update(c.Request.Context(), update)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res.Session)
}
