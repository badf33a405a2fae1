package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lychee-technology/propgrid"
	"github.com/lychee-technology/propgrid/factory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchOutput string

// watchCmd re-renders a document every time it changes on disk. The row
// model is kept across reloads, so the collapse state follows the names.
var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Render a document and re-render it whenever the file changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		if err := writeRows(out, s.model, watchOutput); err != nil {
			return err
		}

		err = factory.WatchFile(ctx, cfg, args[0], nil, func(root *propgrid.ComposedProperty) {
			s.root = root
			s.model.SetModel(root)
			fmt.Fprintln(out)
			if err := writeRows(out, s.model, watchOutput); err != nil {
				zap.S().Warnw("render failed", "err", err)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(watchCmd)
}
