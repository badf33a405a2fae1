package main

import (
	"fmt"
	"strconv"

	"github.com/lychee-technology/propgrid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var collapseOutput string

// collapseCmd, expandCmd and toggleCmd change the collapse state of
// composites, store it under the view key and print the resulting rows.
var collapseCmd = &cobra.Command{
	Use:   "collapse FILE PATH...",
	Short: "Collapse composites and remember it for the view",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeCollapsed(cmd, args[0], args[1:], func(s *session, p propgrid.Property) bool {
			return s.model.SetCollapsed(p, true)
		})
	},
}

var expandCmd = &cobra.Command{
	Use:   "expand FILE PATH...",
	Short: "Expand composites and remember it for the view",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeCollapsed(cmd, args[0], args[1:], func(s *session, p propgrid.Property) bool {
			return s.model.SetCollapsed(p, false)
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle FILE ROW",
	Short: "Toggle the composite shown at a row index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid row index %q", args[1])
		}
		ctx := cmd.Context()
		s, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		if index < 0 || index >= s.model.RowCount() {
			return propgrid.NewIndexOutOfRangeError(index, s.model.RowCount())
		}
		if !s.model.ToggleRow(index) {
			return fmt.Errorf("row %d is not a composite", index)
		}
		if err := s.save(ctx); err != nil {
			return err
		}
		return writeRows(cmd.OutOrStdout(), s.model, collapseOutput)
	},
}

func changeCollapsed(cmd *cobra.Command, file string, paths []string, apply func(*session, propgrid.Property) bool) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, file)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, path := range paths {
		p, err := s.lookup(path)
		if err != nil {
			return err
		}
		if !apply(s, p) {
			zap.S().Infow("collapse state unchanged", "path", path,
				"hint", "the property is hidden, not a composite or already in that state")
		}
	}
	if err := s.save(ctx); err != nil {
		return err
	}
	return writeRows(cmd.OutOrStdout(), s.model, collapseOutput)
}

func init() {
	for _, cmd := range []*cobra.Command{collapseCmd, expandCmd, toggleCmd} {
		cmd.Flags().StringVarP(&collapseOutput, "output", "o", "text", "Output format: text, json, yaml")
		rootCmd.AddCommand(cmd)
	}
}
