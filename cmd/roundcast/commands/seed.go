package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forecastnet/roundcast/internal/printer"
	"github.com/forecastnet/roundcast/internal/seeder"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write each agent's reference notes into Redis",
	Long: `Write every agent's per-event reference notes into Redis.

Entries are stored under vectorized_info:<agent_id>:<event>. Running seed
again overwrites the same keys. The built-in notes are used unless seed.file
(or ROUNDCAST_SEED_FILE) points at a YAML file of the form:

  agent_1:
    "Will AI replace 30% of jobs by 2040?": "..."`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signalContext(cmd)
	defer stop()

	tables := seeder.DefaultTables()
	if s.cfg.Seed.File != "" {
		if tables, err = seeder.LoadTables(s.cfg.Seed.File); err != nil {
			return printer.Error("failed to load seed file", err.Error(), nil)
		}
	}

	store, err := s.connectStore(ctx, "seeder")
	if err != nil {
		return err
	}
	defer store.Close()

	written, err := seeder.New(store, s.observer).Seed(ctx, tables)
	if err != nil {
		return printer.Error(
			"seeding failed",
			fmt.Sprintf("Wrote %d of %d entries before failing: %v", written, tables.Len(), err),
			[]string{"Entries already written are kept; run seed again once Redis is healthy"},
		)
	}
	printer.Success("Seeded %d reference entries for %d agents\n", written, len(tables))
	return nil
}
