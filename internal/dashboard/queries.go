package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/inquiry"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/session"
)

// recentLimit caps the session tables on the overview page.
const recentLimit = 10

// overviewData gathers everything the overview page renders. Failures are
// logged and leave that section empty rather than failing the page.
func overviewData(ctx context.Context, svc Services) gin.H {
	data := gin.H{
		"Stats":        &session.Stats{},
		"Inquiries":    &inquiry.Stats{},
		"Issues":       []session.Summary{},
		"Recent":       []session.Summary{},
		"QAStatuses":   models.QAStatuses,
		"Completions":  models.CompletionStatuses,
		"Sources":      models.Sources,
		"GeneratedAt":  time.Now(),
		"Subscribers":  0,
		"HasSessions":  false,
		"HasInquiries": false,
	}

	if st, err := svc.Sessions.Stats(ctx); err != nil {
		log.WithError(err).Warn("overview: session stats")
	} else {
		data["Stats"] = st
		data["HasSessions"] = st.Total > 0
	}
	if st, err := svc.Inquiries.Stats(ctx); err != nil {
		log.WithError(err).Warn("overview: inquiry stats")
	} else {
		data["Inquiries"] = st
		data["HasInquiries"] = st.Total > 0
	}

	issues, err := svc.Sessions.List(ctx, session.ListFilter{
		QAStatus:      models.QAIssue,
		ArchiveStatus: models.ArchiveActive,
		PerPage:       recentLimit,
	})
	if err != nil {
		log.WithError(err).Warn("overview: open issues")
	} else {
		data["Issues"] = issues.Items
	}

	recent, err := svc.Sessions.List(ctx, session.ListFilter{
		ArchiveStatus: models.ArchiveActive,
		PerPage:       recentLimit,
	})
	if err != nil {
		log.WithError(err).Warn("overview: recent sessions")
	} else {
		data["Recent"] = recent.Items
	}

	if svc.Events != nil {
		data["Subscribers"] = svc.Events.Subscribers()
	}
	return data
}

// TimeAgo renders t relative to now, e.g. "5m ago". Nil and zero times
// render as a dash.
func TimeAgo(t any) string {
	var when time.Time
	switch v := t.(type) {
	case time.Time:
		when = v
	case *time.Time:
		if v != nil {
			when = *v
		}
	}
	if when.IsZero() {
		return "—"
	}
	d := time.Since(when)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}
