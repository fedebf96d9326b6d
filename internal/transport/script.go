package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// exTempFail is the sysexits.h EX_TEMPFAIL status. Scripts exit with it to
// mark a failure transient and worth retrying.
const exTempFail = 75

// ScriptTransport hands notifications to an external command. Recipient
// and message details arrive in NOTIFY_* environment variables and as a
// JSON document on stdin, so both shell one-liners and structured
// consumers work without flag parsing.
type ScriptTransport struct {
	command string
	args    []string
}

// NewScriptTransport creates the script channel from configuration.
func NewScriptTransport(cfg *conf.ScriptChannelSettings) (*ScriptTransport, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("script command is required")
	}
	return &ScriptTransport{
		command: cfg.Command,
		args:    slices.Clone(cfg.Args),
	}, nil
}

// Name returns the channel identifier the transport serves.
func (t *ScriptTransport) Name() string { return ChannelScript }

// Send runs the command once per notification. A zero exit means
// delivered; EX_TEMPFAIL means try again later; anything else is a
// permanent failure carrying the script's output.
func (t *ScriptTransport) Send(ctx context.Context, recipient *notification.Recipient, title, body string) error {
	// G204: Command and args come from validated configuration, not user input.
	cmd := exec.CommandContext(ctx, t.command, t.args...) //nolint:gosec // Configuration-sourced command execution is intentional

	env := os.Environ()
	env = append(env,
		"NOTIFY_RECIPIENT_ID="+recipient.ID,
		"NOTIFY_RECIPIENT_NAME="+recipient.Name,
		"NOTIFY_RECIPIENT_EMAIL="+recipient.Email,
		"NOTIFY_RECIPIENT_PHONE="+recipient.Phone,
		"NOTIFY_TITLE="+title,
		"NOTIFY_BODY="+body,
		"NOTIFY_TIMESTAMP="+time.Now().UTC().Format(time.RFC3339),
	)
	cmd.Env = env

	payload, err := json.Marshal(map[string]any{
		"recipient": recipient,
		"title":     title,
		"body":      body,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return notification.PermanentError(fmt.Errorf("failed to marshal script payload: %w", err))
	}
	cmd.Stdin = bytes.NewReader(payload)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("script cancelled: %w", ctx.Err())
		}
		scriptErr := fmt.Errorf("script failed: %w, output: %s", err, truncate(string(out), maxScriptOutput))
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == exTempFail {
			return notification.RetryableError(scriptErr)
		}
		return notification.PermanentError(scriptErr)
	}
	return nil
}
