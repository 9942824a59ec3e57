package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mind-engage/studentexam/internal/exam"
)

func newMigrateLedgerCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate-ledger",
		Short: "Assign exam ids to legacy attempt records keyed by title",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			store, err := a.sqlStore()
			if err != nil {
				return err
			}
			rep, err := store.MigrateLegacyTitles(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("migrate ledger: %w", err)
			}
			printMigrationReport(os.Stdout, rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

func printMigrationReport(w io.Writer, rep exam.MigrationReport) {
	fmt.Fprintln(w, "Ledger migration summary:")
	if rep.DryRun {
		fmt.Fprintln(w, "  (dry-run mode, no changes made)")
	}
	titles := make([]string, 0, len(rep.Migrated))
	for t := range rep.Migrated {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	for _, t := range titles {
		fmt.Fprintf(w, "  migrated   %q: %d records\n", t, rep.Migrated[t])
	}
	for _, t := range rep.Ambiguous {
		fmt.Fprintf(w, "  ambiguous  %q: several exams share this title, skipped\n", t)
	}
	for _, t := range rep.Unmatched {
		fmt.Fprintf(w, "  unmatched  %q: no exam has this title\n", t)
	}
	for _, t := range rep.Conflicted {
		fmt.Fprintf(w, "  conflicted %q: attempt numbers collide with existing records, skipped\n", t)
	}
}
