package main

import (
	"github.com/lychee-technology/propgrid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var setOutput string

// setCmd parses a value through the property's type and assigns it. The
// document itself is not rewritten; the resulting rows are printed.
var setCmd = &cobra.Command{
	Use:   "set FILE PATH VALUE",
	Short: "Check and assign a value, then print the rows",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := s.lookup(args[1])
		if err != nil {
			return err
		}
		value, err := propgrid.ParseValue(p.Type(), args[2])
		if err != nil {
			return err
		}

		if row := s.model.RowOf(p); row != nil && row.Visible {
			err = s.model.SetValueAt(row.RowIndex, value)
		} else if p.ReadOnly() {
			err = propgrid.NewReadOnlyPropertyError(p.Name())
		} else {
			err = p.SetValue(value)
		}
		if err != nil {
			return err
		}
		zap.S().Infow("value assigned", "path", args[1], "value", p.Value())

		s.model.Select(p)
		return writeRows(cmd.OutOrStdout(), s.model, setOutput)
	},
}

func init() {
	setCmd.Flags().StringVarP(&setOutput, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(setCmd)
}
