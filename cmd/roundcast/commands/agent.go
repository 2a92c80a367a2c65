package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forecastnet/roundcast/internal/agent"
	"github.com/forecastnet/roundcast/internal/blackboard"
	"github.com/forecastnet/roundcast/internal/config"
	"github.com/forecastnet/roundcast/internal/core"
	"github.com/forecastnet/roundcast/internal/eventbus"
	"github.com/forecastnet/roundcast/internal/fleet"
	"github.com/forecastnet/roundcast/internal/oracle"
	"github.com/forecastnet/roundcast/internal/printer"
	"github.com/forecastnet/roundcast/internal/protocol"
)

var agentID string

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Play every round as a forecasting agent",
	Long: `Play every round as a forecasting agent.

For each round the agent subscribes to forecast_event_<round>, waits for the
moderator's announcement, looks up its reference note, asks the language
model for a forecast and publishes it on forecast_results_<round>.

The identity comes from --id, then ROUNDCAST_AGENT_ID, then agent.id.
Set agent.ids (or ROUNDCAST_AGENT_IDS=agent_1,agent_2) to play several
agents from one process.

Requires OPENAI_API_KEY, or GEMINI_API_KEY with oracle.provider=gemini.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().StringVar(&agentID, "id", "", "Agent identifier (e.g. agent_1)")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	if agentID != "" {
		s.cfg.Agent.ID = agentID
		s.cfg.Agent.IDs = nil
	}
	if err := s.cfg.RequireOracleKey(); err != nil {
		return printer.Error("missing API key", err.Error(), []string{
			"Export the key or add it to a .env file in the working directory",
		})
	}
	rounds, err := s.cfg.RoundLayout()
	if err != nil {
		return printer.Error("invalid round layout", err.Error(), nil)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	o, err := newOracle(ctx, s.cfg.Oracle)
	if err != nil {
		return printer.Error("failed to create oracle client", err.Error(), nil)
	}

	bus, err := s.connectBus(ctx, "agent")
	if err != nil {
		return err
	}
	defer bus.Close()
	store, err := s.connectStore(ctx, "agent")
	if err != nil {
		return err
	}
	defer store.Close()

	player, err := newPlayer(s.cfg, bus, store, o, rounds, s.observer)
	if err != nil {
		return printer.Error("invalid agent", err.Error(), nil)
	}
	if err := player.Run(ctx); err != nil {
		if interrupted(ctx, err) {
			printer.Warning("%s interrupted\n", player.Name())
			return nil
		}
		return printer.Error(fmt.Sprintf("%s failed", player.Name()), err.Error(), nil)
	}
	printer.Success("%s finished %d rounds\n", player.Name(), rounds.Count)
	return nil
}

// newPlayer returns a single agent, or a fleet when several ids are set.
func newPlayer(cfg *config.Config, bus eventbus.Bus, store blackboard.Store, o oracle.Oracle, rounds protocol.Rounds, observer core.Observer) (core.Participant, error) {
	build := func(id string) (core.Participant, error) {
		label := cfg.Agent.Label
		if len(cfg.Agent.IDs) > 1 {
			label = ""
		}
		return agent.New(agent.Config{
			ID:         id,
			Label:      label,
			RoundDelay: cfg.Agent.RoundDelay,
			MaxTokens:  cfg.Oracle.MaxTokens,
		}, bus, store, o, rounds, observer)
	}

	ids := cfg.AgentIDs()
	if len(ids) == 1 {
		return build(ids[0])
	}
	f := fleet.New("agents", fleet.FactoryFunc(build))
	for _, id := range ids {
		if err := f.Spawn(id); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func newOracle(ctx context.Context, cfg config.OracleConfig) (oracle.Oracle, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return oracle.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	default:
		return oracle.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	}
}
