package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command runs a shell command template for each alert, e.g.
// "notify-send 'QA issue' '{{.SessionID}}: {{.Notes}}'". Substituted values
// are escaped for use inside single quotes. The same values are exported as
// SB_* environment variables.
type Command struct {
	template string
}

// NewCommand returns a Command channel for template.
func NewCommand(template string) (*Command, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("notify: command template is required")
	}
	return &Command{template: template}, nil
}

// Name implements Channel.
func (c *Command) Name() string { return "command" }

// Notify implements Dispatcher.
func (c *Command) Notify(ctx context.Context, a Alert) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", templateAlert(c.template, a))
	cmd.Env = append(os.Environ(),
		"SB_SESSION_ID="+a.SessionID,
		"SB_QA_NOTES="+a.QANotes,
		"SB_ACTOR="+a.Actor,
		"SB_SOURCE="+string(a.Source),
		"SB_URL="+a.DashboardURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// templateAlert replaces placeholders in the command template with alert values.
func templateAlert(command string, a Alert) string {
	r := strings.NewReplacer(
		"{{.SessionID}}", shellEscape(a.SessionID),
		"{{.Notes}}", shellEscape(a.QANotes),
		"{{.Actor}}", shellEscape(a.Actor),
		"{{.Source}}", shellEscape(string(a.Source)),
		"{{.Customer}}", shellEscape(a.CustomerName),
		"{{.URL}}", shellEscape(a.DashboardURL),
	)
	return r.Replace(command)
}

// shellEscape makes s safe inside a single-quoted shell string.
func shellEscape(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
