package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/models"
)

func (h *handlers) getLead(c *gin.Context) {
	l, err := h.opts.Leads.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, l)
}

func (h *handlers) upsertLead(c *gin.Context) {
	var in models.Lead
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	res, err := h.opts.Leads.Upsert(c.Request.Context(), c.Param("session_id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	ok(c, code, res)
}

func (h *handlers) extractLead(c *gin.Context) {
	res, err := h.opts.Leads.ExtractForSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
