package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
)

func TestQASetCmd(t *testing.T) {
	path := writeConfig(t, "")
	gdb := openDB(t, path)
	if err := gdb.Create(&models.Session{SessionID: "web_1", Source: models.SourceWebChat}).Error; err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "qa", "set", "web_1", "issue", "--config", path, "--actor", "rita", "--notes", "wrong price")
	if err != nil {
		t.Fatalf("qa set issue: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Unchecked -> Issue") {
		t.Errorf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "Notified: [dashboard]") {
		t.Errorf("expected notification line, got: %s", out)
	}

	_, err = run(t, "qa", "set", "web_1", "fixed", "--config", path, "--actor", "rita")
	if !errors.Is(err, errdefs.ErrUnauthorized) {
		t.Fatalf("reviewer marking fixed: err = %v, want unauthorized", err)
	}

	out, err = run(t, "qa", "set", "web_1", "fixed", "--config", path, "--actor", "dev", "--role", "developer", "--dev-feedback", "prompt updated")
	if err != nil {
		t.Fatalf("qa set fixed: %v\n%s", err, out)
	}

	var got models.Session
	if err := gdb.First(&got, "session_id = ?", "web_1").Error; err != nil {
		t.Fatal(err)
	}
	if got.QAStatus != models.QAFixed {
		t.Errorf("qa_status = %s, want fixed", got.QAStatus)
	}
	if got.QANotes == nil || *got.QANotes != "wrong price" {
		t.Errorf("qa_notes = %v, want preserved", got.QANotes)
	}
	if got.DevFeedbackBy == nil || *got.DevFeedbackBy != "dev" {
		t.Errorf("dev_feedback_by = %v, want dev", got.DevFeedbackBy)
	}
}

func TestQASetCmd_Validation(t *testing.T) {
	path := writeConfig(t, "")
	openDB(t, path)

	if _, err := run(t, "qa", "set", "web_1", "done", "--config", path, "--actor", "rita"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("unknown status: err = %v", err)
	}
	if _, err := run(t, "qa", "set", "web_1", "passed", "--config", path); err == nil {
		t.Error("expected error without --actor")
	}
	if _, err := run(t, "qa", "set", "web_9", "passed", "--config", path, "--actor", "rita"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("missing session: err = %v", err)
	}
}
