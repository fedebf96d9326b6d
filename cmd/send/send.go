package send

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tresorkaseka/Flashnotify/internal/archive"
	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/dispatch"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/transport"
)

// stopTimeout bounds the dispatcher drain after the result arrives.
const stopTimeout = 5 * time.Second

// Command returns a cobra command that dispatches one notification through
// the configured delivery channels and waits for its result.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		recipientID string
		name        string
		email       string
		phone       string
		preferred   string
		category    string
		title       string
		message     string
		channel     string
		template    string
		vars        []string
		metadata    []string
		ttl         time.Duration
		wait        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a single notification and wait for the result",
		Long: `Send one notification through the configured delivery channels.

Examples:
  # Direct notification
  flashnotify send --recipient=alice --email=alice@example.org \
    --category=weather --title="Storm Warning" --message="Heavy rain expected tonight"

  # Render a registered template
  flashnotify send --recipient=alice --email=alice@example.org \
    --template=weather-alert --var="event=Storm Warning" --var="details=Heavy rain expected"

  # Pin the channel and attach metadata
  flashnotify send --recipient=ops --phone=+15551230100 --channel=sms \
    --category=security --title="Login Alert" --message="New device sign-in" \
    --metadata="confidence=0.95" --metadata="source=auth"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = recipientID
			}
			recipient := &notification.Recipient{
				ID:               recipientID,
				Name:             name,
				Email:            email,
				Phone:            phone,
				PreferredChannel: preferred,
			}
			if err := recipient.Validate(); err != nil {
				return err
			}

			var n *notification.Notification
			if template != "" {
				for _, conflicting := range []string{"category", "title", "message"} {
					if cmd.Flags().Changed(conflicting) {
						return fmt.Errorf("--template cannot be combined with --%s", conflicting)
					}
				}
				varsMap, err := parseKeyValues(vars)
				if err != nil {
					return err
				}
				n, err = notification.DefaultTemplateRegistry().Build(template, recipient, varsMap)
				if err != nil {
					return err
				}
			} else {
				cat, err := notification.ParseCategory(category)
				if err != nil {
					return err
				}
				n = notification.New(recipient, cat, title, message)
			}

			metadataMap, err := parseKeyValues(metadata)
			if err != nil {
				return err
			}
			for key, value := range metadataMap {
				n = n.WithMetadata(key, value)
			}
			if channel != "" {
				n = n.WithChannel(channel)
			}
			if ttl > 0 {
				n = n.WithTTL(ttl)
			}

			result, err := deliver(cmd.Context(), settings, n, wait)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Notification %s: status=%s priority=%s rounds=%d attempts=%d\n",
				result.NotificationID, result.Status, result.Priority, result.Rounds, len(result.Attempts))
			if sent := result.SuccessfulChannels(); len(sent) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  delivered via %s\n", strings.Join(sent, ", "))
			}
			if failed := result.FailedChannels(); len(failed) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed on %s\n", strings.Join(failed, ", "))
			}

			if !result.Succeeded() {
				if result.Error != "" {
					return fmt.Errorf("notification not delivered (%s): %s", result.Status, result.Error)
				}
				return fmt.Errorf("notification not delivered (%s)", result.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recipientID, "recipient", "", "Recipient identifier")
	cmd.Flags().StringVar(&name, "name", "", "Recipient display name (defaults to the recipient identifier)")
	cmd.Flags().StringVar(&email, "email", "", "Recipient email address")
	cmd.Flags().StringVar(&phone, "phone", "", "Recipient phone number in international format")
	cmd.Flags().StringVar(&preferred, "preferred", "", "Recipient preferred channel for non-critical notifications")
	cmd.Flags().StringVar(&category, "category", "academic", "Notification category: weather|security|health|infrastructure|academic")
	cmd.Flags().StringVar(&title, "title", "Test Notification", "Notification title")
	cmd.Flags().StringVar(&message, "message", "This is a test notification", "Notification message")
	cmd.Flags().StringVar(&channel, "channel", "", "Pin delivery to a single channel instead of priority-based selection")
	cmd.Flags().StringVar(&template, "template", "", "Render a registered template instead of --title and --message")
	cmd.Flags().StringSliceVar(&vars, "var", nil, "Template variables in format key=value")
	cmd.Flags().StringSliceVar(&metadata, "metadata", nil, "Metadata key-value pairs in format key=value (supports numbers, booleans, and strings)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Discard the notification if not delivered within this duration (0 to disable)")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "Time to wait for the delivery result")

	return cmd
}

// deliver runs a short-lived dispatcher around a single synchronous
// submission. The archive is opened when an output is enabled so the result
// lands in the same store the daemon writes to.
func deliver(ctx context.Context, settings *conf.Settings, n *notification.Notification, wait time.Duration) (*notification.DispatchResult, error) {
	var repo notification.Repository
	store := archive.New(settings)
	if store != nil {
		if err := store.Open(); err != nil {
			return nil, fmt.Errorf("failed to open result archive: %w", err)
		}
		defer func() { _ = store.Close() }()
		repo = store
	}

	transports, err := transport.Setup(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to set up delivery channels: %w", err)
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("no delivery channels enabled, enable at least one under 'channels:' in the configuration")
	}
	defer transport.CloseAll(transports)

	dispatcher := dispatch.New(dispatch.ConfigFromSettings(settings), repo, nil)
	for _, t := range transports {
		if err := dispatcher.Register(t.Name(), t); err != nil {
			return nil, fmt.Errorf("failed to register channel %s: %w", t.Name(), err)
		}
	}
	if err := dispatcher.Start(); err != nil {
		return nil, err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = dispatcher.Stop(stopCtx)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return dispatcher.SubmitSync(waitCtx, n)
}

// parseKeyValues turns key=value pairs into a map. Values are coerced to
// number (float64), then boolean, otherwise kept as strings.
func parseKeyValues(pairs []string) (map[string]any, error) {
	parsed := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid key-value format: %s (expected key=value)", kv)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			parsed[key] = floatVal
		} else if boolVal, err := strconv.ParseBool(value); err == nil {
			parsed[key] = boolVal
		} else {
			parsed[key] = value
		}
	}
	return parsed, nil
}
