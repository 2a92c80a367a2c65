package commands

import (
	"github.com/spf13/cobra"

	"github.com/forecastnet/roundcast/internal/listener"
	"github.com/forecastnet/roundcast/internal/printer"
)

var listenerCmd = &cobra.Command{
	Use:   "listener",
	Short: "Print every agent result until interrupted",
	Long: `Subscribe to every forecast_results_<round> channel and print each result
as it arrives. Stop with Ctrl-C; a per-round summary is printed on exit.`,
	Args: cobra.NoArgs,
	RunE: runListener,
}

func init() {
	rootCmd.AddCommand(listenerCmd)
}

func runListener(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	rounds, err := s.cfg.RoundLayout()
	if err != nil {
		return printer.Error("invalid round layout", err.Error(), nil)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	bus, err := s.connectBus(ctx, "listener")
	if err != nil {
		return err
	}
	defer bus.Close()

	l := listener.New(bus, rounds, s.observer, printer.Result)
	runErr := l.Run(ctx)

	summary := l.Summary()
	rows := make([]printer.SummaryRow, 0, len(summary))
	for _, r := range summary {
		rows = append(rows, printer.SummaryRow{
			Round:   r.Round,
			Channel: rounds.ResultsChannel(r.Round),
			Results: r.Results,
			Parsed:  r.Parsed,
			Mean:    r.Mean,
		})
	}
	printer.Println()
	printer.Summary(rows)

	if runErr != nil {
		return printer.Error("listener stopped", runErr.Error(), nil)
	}
	return nil
}
