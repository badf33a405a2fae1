package main

import (
	"fmt"
	"time"

	"github.com/lychee-technology/propgrid"
	"github.com/lychee-technology/propgrid/factory"
	"github.com/spf13/cobra"
)

// stateCmd manages stored collapse state directly, without a document.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show, save or delete the collapse state of a view key",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored collapsed names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := factory.NewCollapseStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := store.Load(cmd.Context(), cfg.Storage.Key)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "key:      %s\n", snap.Key)
		fmt.Fprintf(out, "snapshot: %s\n", snap.ID)
		fmt.Fprintf(out, "saved:    %s\n", snap.SavedAt.Format(time.RFC3339))
		for _, name := range snap.Names.Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	},
}

var stateSaveCmd = &cobra.Command{
	Use:   "save [NAME...]",
	Short: "Replace the stored collapsed names",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := factory.NewCollapseStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := store.Save(cmd.Context(), cfg.Storage.Key, propgrid.NewCollapsedNames(args...))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %d names as %s\n", snap.Names.Len(), snap.ID)
		return nil
	},
}

var stateDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Forget the collapse state of the view key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := factory.NewCollapseStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Delete(cmd.Context(), cfg.Storage.Key)
	},
}

func init() {
	stateCmd.AddCommand(stateShowCmd, stateSaveCmd, stateDeleteCmd)
	rootCmd.AddCommand(stateCmd)
}
