package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tresorkaseka/Flashnotify/internal/archive"
	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/dispatch"
)

// queryTimeout bounds the health endpoint request.
const queryTimeout = 5 * time.Second

// healthStatus mirrors the JSON body served by the daemon's health endpoint,
// plus the source the data came from.
type healthStatus struct {
	Status   string                   `json:"status"`
	Channels []dispatch.ChannelHealth `json:"channels,omitempty"`
	Totals   map[string]int64         `json:"totals,omitempty"`
	Averages []archive.ChannelAverage `json:"channel_averages,omitempty"`
	Source   string                   `json:"source"`
}

// Command returns a cobra command that lists the delivery channels with
// their breaker state and recorded delivery averages.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		endpoint string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List delivery channels with breaker state and averages",
		Long: `Query a running daemon's health endpoint for live channel state.

When no daemon is reachable the command falls back to the archived delivery
aggregates, which carry totals and averages but no live breaker state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if endpoint == "" {
				endpoint = settings.Observability.Listen
			}

			status, daemonErr := queryDaemon(cmd.Context(), endpoint)
			if daemonErr != nil {
				var archiveErr error
				status, archiveErr = queryArchive(cmd.Context(), settings)
				if archiveErr != nil {
					return fmt.Errorf("no daemon at %s (%v) and no archive available: %w", endpoint, daemonErr, archiveErr)
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			render(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Health endpoint address of a running daemon (defaults to observability.listen)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")

	return cmd
}

// queryDaemon asks a running daemon for its health snapshot. A degraded
// daemon answers 503 with a full body, which is still a valid answer.
func queryDaemon(ctx context.Context, listen string) (*healthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(listen), http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("health endpoint answered %s", resp.Status)
	}

	var status healthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	status.Source = "daemon"
	return &status, nil
}

// queryArchive reads totals and averages straight from the result archive.
func queryArchive(ctx context.Context, settings *conf.Settings) (*healthStatus, error) {
	store := archive.New(settings)
	if store == nil {
		return nil, fmt.Errorf("no archive output enabled")
	}
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("failed to open result archive: %w", err)
	}
	defer func() { _ = store.Close() }()

	status := &healthStatus{Status: "offline", Source: "archive"}
	var err error
	if status.Totals, err = store.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if status.Averages, err = store.ChannelAverages(ctx); err != nil {
		return nil, err
	}
	return status, nil
}

// healthURL turns a listen address into the health endpoint URL. Wildcard
// and port-only addresses are queried over loopback.
func healthURL(listen string) string {
	switch {
	case strings.HasPrefix(listen, ":"):
		listen = "localhost" + listen
	case strings.HasPrefix(listen, "0.0.0.0:"):
		listen = "localhost" + strings.TrimPrefix(listen, "0.0.0.0")
	}
	return "http://" + listen + "/healthz"
}

func render(w io.Writer, status *healthStatus) {
	fmt.Fprintf(w, "Status: %s (from %s)\n", status.Status, status.Source)

	if len(status.Channels) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "CHANNEL\tHEALTHY\tCIRCUIT\tFAILURES\tAVG DURATION\tLAST FAILURE")
		for _, ch := range status.Channels {
			last := "-"
			if !ch.LastFailure.IsZero() {
				last = ch.LastFailure.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%s\t%s\n",
				ch.Name, ch.Healthy, ch.CircuitState, ch.Failures,
				ch.AverageDuration.Round(time.Millisecond), last)
		}
		_ = tw.Flush()
	}

	if len(status.Averages) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "CHANNEL\tATTEMPTS\tSUCCESS RATE\tAVG ATTEMPT")
		for _, avg := range status.Averages {
			fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.1fms\n",
				avg.Channel, avg.Attempts, avg.SuccessRate*100, avg.AvgDurationMs)
		}
		_ = tw.Flush()
	}

	if len(status.Totals) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "STATUS\tTOTAL")
		for _, st := range slices.Sorted(maps.Keys(status.Totals)) {
			fmt.Fprintf(tw, "%s\t%d\n", st, status.Totals[st])
		}
		_ = tw.Flush()
	}
}
