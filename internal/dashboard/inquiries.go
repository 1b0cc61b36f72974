package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/inquiry"
	"github.com/zulandar/switchboard/internal/models"
)

func (h *handlers) listInquiries(c *gin.Context) {
	f := inquiry.ListFilter{
		Status:      c.Query("status"),
		SenderEmail: c.Query("sender_email"),
	}
	var err error
	if f.Engaged, err = queryBool(c, "engaged"); err != nil {
		fail(c, err)
		return
	}
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
	res, err := h.opts.Inquiries.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *handlers) createInquiry(c *gin.Context) {
	var inq models.EmailInquiry
	if err := bindJSON(c, &inq); err != nil {
		fail(c, err)
		return
	}
	inq.ID = 0
	if err := h.opts.Inquiries.Create(c.Request.Context(), &inq); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, inq)
}

func (h *handlers) getInquiry(c *gin.Context) {
	id, err := paramUint(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	inq, err := h.opts.Inquiries.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, inq)
}

func (h *handlers) updateInquiry(c *gin.Context) {
	id, err := paramUint(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var u inquiry.Update
	if err := bindJSON(c, &u); err != nil {
		fail(c, err)
		return
	}
	inq, err := h.opts.Inquiries.Update(c.Request.Context(), id, u)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, inq)
}

func (h *handlers) deleteInquiry(c *gin.Context) {
	id, err := paramUint(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.opts.Inquiries.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "inquiry deleted")
}

func (h *handlers) inquiryStats(c *gin.Context) {
	st, err := h.opts.Inquiries.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}
