package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/localstore"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.json>",
	Short: "Load items into the local workspace from a search result file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	resp, err := content.ParseResult(data)
	if err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	b, err := localstore.Open(cfg.Local)
	if err != nil {
		return fmt.Errorf("opening local workspace: %w", err)
	}
	defer b.Close()

	n, err := b.Seed(resp)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d items into %s\n", n, cfg.Local.Path)
	return nil
}
