package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/appraiser/internal/adapters/browser"
	service "github.com/okian/appraiser/internal/app"
	"github.com/okian/appraiser/internal/domain/valuation"
	"github.com/okian/appraiser/pkg/logger"
)

// snapshotPlayer names the result when a saved page is valued without a name.
const snapshotPlayer = "snapshot"

func newValueCmd() *cobra.Command {
	var (
		htmlPath string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "value [ign]",
		Short: "Value a player's inventory with a local browser, or a saved profile page with --html.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			e := getEnv(cmd.Context())

			player := snapshotPlayer
			if len(args) == 1 {
				player = args[0]
			} else if htmlPath == "" {
				return ErrMissingPlayer
			}
			name, err := service.NormalizeName(player)
			if err != nil {
				return err
			}

			var (
				launcher browser.Launcher
				opts     []valuation.Option
			)
			if htmlPath != "" {
				page, err := os.ReadFile(htmlPath)
				if err != nil {
					return fmt.Errorf("read snapshot: %w", err)
				}
				launcher = browser.NewSnapshot(page, browser.WithSnapshotLogger(logger.Named("browser")))
				// A saved page is already rendered.
				opts = append(opts, valuation.WithSettleDelay(0), valuation.WithNavigationRate(0))
			} else {
				launcher = service.ChromeFromConfig(e.cfg)
			}

			resolver := service.ResolverFromConfig(cmd.Context(), e.cfg)
			agg := service.AggregatorFromConfig(e.cfg, launcher, resolver, opts...)

			res := agg.Scrape(cmd.Context(), name)
			if err := printValuation(e.out, output, res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%w: %s", ErrValuationFailed, res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "value a saved profile page instead of launching a browser")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format: json or table")
	return cmd
}
