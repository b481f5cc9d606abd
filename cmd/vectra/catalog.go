package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Work with template catalog files",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate a catalog directory without starting the server",
	Long: `Load a catalog directory and run every load-time check: unknown keys,
block types, blueprint references, template placeholders, filter value
schemas and forbidden patterns.

Without a directory the built-in catalog is checked.

Examples:
  vectra catalog validate ./catalog
  vectra catalog validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := catalog.Defaults()
		name := "built-in catalog"
		if len(args) == 1 {
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", args[0])
			}
			src = os.DirFS(args[0])
			name = args[0]
		}

		snap, err := catalog.Load(src)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		fmt.Printf("%s is valid\n", name)
		fmt.Printf("  Version:    %s\n", snap.Version)
		fmt.Printf("  Profiles:   %d\n", len(snap.Profiles()))
		fmt.Printf("  Blueprints: %d\n", len(snap.Blueprints()))
		fmt.Printf("  Blocks:     %d\n", len(snap.Blocks()))
		fmt.Printf("  Filters:    %d\n", len(snap.Filters()))
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
