package main

import (
	"github.com/spf13/cobra"
)

type renderOptions struct {
	Output      string
	Select      string
	ExpandAll   bool
	CollapseAll bool
	Save        bool
}

func (opts *renderOptions) RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format: text, json, yaml")
	cmd.Flags().StringVar(&opts.Select, "select", "", "Dotted path of the property to mark as selected")
	cmd.Flags().BoolVar(&opts.ExpandAll, "expand-all", false, "Expand every composite")
	cmd.Flags().BoolVar(&opts.CollapseAll, "collapse-all", false, "Collapse every composite")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "Store the state produced by --expand-all or --collapse-all")
	cmd.MarkFlagsMutuallyExclusive("expand-all", "collapse-all")
}

var renderOpts renderOptions

// renderCmd prints the visible rows of a document.
var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Print the visible rows of a property document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		switch {
		case renderOpts.ExpandAll:
			s.model.ExpandAll()
		case renderOpts.CollapseAll:
			s.model.CollapseAll()
		}
		if renderOpts.Select != "" {
			p, err := s.lookup(renderOpts.Select)
			if err != nil {
				return err
			}
			s.model.Select(p)
		}
		if renderOpts.Save && (renderOpts.ExpandAll || renderOpts.CollapseAll) {
			if err := s.save(ctx); err != nil {
				return err
			}
		}
		return writeRows(cmd.OutOrStdout(), s.model, renderOpts.Output)
	},
}

func init() {
	renderOpts.RegisterFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}
