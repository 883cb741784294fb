package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   CmdCheck,
	Short: "Validate configuration and load the catalog without serving",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Logging)

	cat, err := loadCatalog(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config ok: mode=%s timeout=%dms source=%s\n", cfg.Aggregate.Mode, cfg.Aggregate.Timeout, cfg.Catalog.Source)
	counts := cat.Counts()
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(out, "  %-12s %d records\n", kind, counts[kind])
	}
	return nil
}
