// Package metrics declares Switchboard's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompletionWrites counts persisted completion_status changes by trigger.
	CompletionWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_completion_writes_total",
		Help: "Completion status changes persisted by the reconciler, by trigger (ingest, read, batch, manual, schedule).",
	}, []string{"trigger"})
	// CompletionWriteFailures counts failed completion_status writes by trigger.
	CompletionWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_completion_write_failures_total",
		Help: "Completion status writes that failed, by trigger.",
	}, []string{"trigger"})
	// SyncRuns counts batch reconciliation runs by trigger.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_completion_sync_runs_total",
		Help: "Batch completion sync runs, by trigger.",
	}, []string{"trigger"})
	// QATransitions counts committed QA writes by from/to state.
	QATransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_qa_transitions_total",
		Help: "Committed QA status writes, by prior and new state.",
	}, []string{"from", "to"})
	// Notifications counts QA issue alerts by channel and result.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_notifications_total",
		Help: "QA issue notifications attempted, by channel and result (sent, failed).",
	}, []string{"channel", "result"})
	// MessagesIngested counts appended chat messages by source and sender.
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_messages_ingested_total",
		Help: "Chat messages appended to sessions, by source and sender.",
	}, []string{"source", "sender"})
)
