package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/appraiser/internal/adapters/repository"
	"github.com/okian/appraiser/internal/domain/model"
)

// apiError mirrors the service's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newClient(server string, timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(server, "/"))
	c.SetTimeout(timeout)
	c.SetHeader("Accept", "application/json")
	return c
}

func remoteError(resp *resty.Response) error {
	if e, ok := resp.Error().(*apiError); ok && e.Code != "" {
		return fmt.Errorf("%w: %s: %s (%s)", ErrRemote, resp.Status(), e.Message, e.Code)
	}
	return fmt.Errorf("%w: %s", ErrRemote, resp.Status())
}

func newRemoteCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
		output  string
	)

	cmd := &cobra.Command{
		Use:   "remote <ign>",
		Short: "Ask a running appraiser service to value a player.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			e := getEnv(cmd.Context())

			var res model.ValuationResult
			resp, err := newClient(server, timeout).R().
				SetContext(cmd.Context()).
				SetPathParam("ign", args[0]).
				SetResult(&res).
				SetError(&apiError{}).
				Get("/inventory/{ign}")
			if err != nil {
				return fmt.Errorf("%w: %w", ErrRemote, err)
			}
			if resp.IsError() {
				return remoteError(resp)
			}

			if err := printValuation(e.out, output, res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%w: %s", ErrValuationFailed, res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "base URL of the appraiser service")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format: json or table")
	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	var (
		server string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the most valuable players known to a running service.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := getEnv(cmd.Context())

			var entries []repository.Entry
			resp, err := newClient(server, 30*time.Second).R().
				SetContext(cmd.Context()).
				SetQueryParam("limit", fmt.Sprint(limit)).
				SetResult(&entries).
				SetError(&apiError{}).
				Get("/leaderboard")
			if err != nil {
				return fmt.Errorf("%w: %w", ErrRemote, err)
			}
			if resp.IsError() {
				return remoteError(resp)
			}

			t := newTable(e.out)
			t.AppendHeader(table.Row{"#", "Player", "USD", "Coins", "Shards", "Items", "Valued"})
			for _, en := range entries {
				t.AppendRow(table.Row{
					en.Rank, en.PlayerID, en.TotalUSD, en.TotalCoins, en.TotalShards,
					en.ItemCount, en.ValuedAt.Format(time.RFC3339),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "base URL of the appraiser service")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of players to show")
	return cmd
}
