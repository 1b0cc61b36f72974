package models

import "github.com/zulandar/switchboard/internal/errdefs"

// Source identifies the channel a session arrived through.
type Source string

const (
	SourceMessenger Source = "messenger"
	SourceWebChat   Source = "web_chat"
	SourceEmbedChat Source = "embed_chat"
)

// Sources lists every Source in display order.
var Sources = []Source{SourceMessenger, SourceWebChat, SourceEmbedChat}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceMessenger, SourceWebChat, SourceEmbedChat:
		return true
	}
	return false
}

// ParseSource converts raw input to a Source.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.Valid() {
		return "", errdefs.Validationf("source %q is not one of messenger, web_chat, embed_chat", raw)
	}
	return s, nil
}

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderAI:
		return true
	}
	return false
}

// ParseSender converts raw input to a Sender.
func ParseSender(raw string) (Sender, error) {
	s := Sender(raw)
	if !s.Valid() {
		return "", errdefs.Validationf("sender %q is not one of user, ai", raw)
	}
	return s, nil
}

// CompletionStatus is the derived conversation outcome. It is written only by
// the completion reconciler.
type CompletionStatus string

const (
	CompletionComplete   CompletionStatus = "complete"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionIncomplete CompletionStatus = "incomplete"
)

// CompletionStatuses lists every CompletionStatus in display order.
var CompletionStatuses = []CompletionStatus{CompletionComplete, CompletionInProgress, CompletionIncomplete}

// Valid reports whether c is a known completion status.
func (c CompletionStatus) Valid() bool {
	switch c {
	case CompletionComplete, CompletionInProgress, CompletionIncomplete:
		return true
	}
	return false
}

// ParseCompletionStatus converts raw input to a CompletionStatus.
func ParseCompletionStatus(raw string) (CompletionStatus, error) {
	c := CompletionStatus(raw)
	if !c.Valid() {
		return "", errdefs.Validationf("completion_status %q is not one of complete, in_progress, incomplete", raw)
	}
	return c, nil
}

// ArchiveStatus is independent of completion and QA.
type ArchiveStatus string

const (
	ArchiveActive   ArchiveStatus = "active"
	ArchiveArchived ArchiveStatus = "archived"
)

// Valid reports whether a is a known archive status.
func (a ArchiveStatus) Valid() bool {
	switch a {
	case ArchiveActive, ArchiveArchived:
		return true
	}
	return false
}

// ParseArchiveStatus converts raw input to an ArchiveStatus.
func ParseArchiveStatus(raw string) (ArchiveStatus, error) {
	a := ArchiveStatus(raw)
	if !a.Valid() {
		return "", errdefs.Validationf("archive_status %q is not one of active, archived", raw)
	}
	return a, nil
}

// QAStatus is the review state of a session.
type QAStatus string

const (
	QAUnchecked QAStatus = "unchecked"
	QAPassed    QAStatus = "passed"
	QAIssue     QAStatus = "issue"
	QAFixed     QAStatus = "fixed"
)

// QAStatuses lists every QAStatus in workflow order.
var QAStatuses = []QAStatus{QAUnchecked, QAPassed, QAIssue, QAFixed}

// Valid reports whether q is a known QA status.
func (q QAStatus) Valid() bool {
	switch q {
	case QAUnchecked, QAPassed, QAIssue, QAFixed:
		return true
	}
	return false
}

// ParseQAStatus converts raw input to a QAStatus.
func ParseQAStatus(raw string) (QAStatus, error) {
	q := QAStatus(raw)
	if !q.Valid() {
		return "", errdefs.Validationf("qa_status %q is not one of unchecked, passed, issue, fixed", raw)
	}
	return q, nil
}

// Label returns the dashboard badge text for q.
func (q QAStatus) Label() string {
	switch q {
	case QAUnchecked:
		return "Unchecked"
	case QAPassed:
		return "Passed"
	case QAIssue:
		return "Issue"
	case QAFixed:
		return "Fixed"
	}
	return string(q)
}

// Label returns the dashboard badge text for c.
func (c CompletionStatus) Label() string {
	switch c {
	case CompletionComplete:
		return "Complete"
	case CompletionInProgress:
		return "In progress"
	case CompletionIncomplete:
		return "Incomplete"
	}
	return string(c)
}
