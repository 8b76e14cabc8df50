package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aecvision/internal/catalog"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached captions",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached caption so the next build asks the model again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			store, err := catalog.Open(cmd.Context(), cfg.CatalogPath())
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			removed, err := store.ClearCaptions(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear captions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached captions\n", removed)
			return nil
		},
	})
	return cacheCmd
}
