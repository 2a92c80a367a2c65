package commands

import (
	"github.com/spf13/cobra"

	"github.com/forecastnet/roundcast/internal/moderator"
	"github.com/forecastnet/roundcast/internal/printer"
)

var moderatorCmd = &cobra.Command{
	Use:   "moderator",
	Short: "Announce one random event per round",
	Long: `Announce one randomly chosen event on forecast_event_<round> for every
round, after moderator.start_delay and with moderator.round_interval between
rounds. Announcements nobody receives are lost, so start the agents first.`,
	Args: cobra.NoArgs,
	RunE: runModerator,
}

func init() {
	rootCmd.AddCommand(moderatorCmd)
}

func runModerator(cmd *cobra.Command, args []string) error {
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

	bus, err := s.connectBus(ctx, "moderator")
	if err != nil {
		return err
	}
	defer bus.Close()

	m := moderator.New(bus, rounds,
		moderator.WithObserver(s.observer),
		moderator.WithStartDelay(s.cfg.Moderator.StartDelay),
		moderator.WithInterval(s.cfg.Moderator.RoundInterval),
	)
	announced, err := m.Announce(ctx)
	if err != nil && !interrupted(ctx, err) {
		return printer.Error("moderator failed", err.Error(), nil)
	}

	delivered := 0
	for _, a := range announced {
		if a.Err != nil {
			printer.Warning("Round %d: publish failed: %v\n", a.Round, a.Err)
			continue
		}
		if a.Receivers == 0 {
			printer.Warning("Round %d: nobody was listening on %s\n", a.Round, a.Channel)
			continue
		}
		delivered++
		printer.Step("Round %d: %s (%d receivers)\n", a.Round, a.Event, a.Receivers)
	}
	printer.Success("Announced %d of %d rounds to at least one agent\n", delivered, rounds.Count)
	return nil
}
