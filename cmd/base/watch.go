package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simobern/base/pkg/adapters/lifecycle"
	"github.com/simobern/base/pkg/core"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [pattern]",
		Short: "Print change events until interrupted",
		Long: `Streams create, modify and delete events for documents whose
"collection/id" path matches the glob pattern (default "**").`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "**"
			if len(args) == 1 {
				pattern = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(cmd.Context())

			w, ok := db.(core.Watchable)
			if !ok {
				return fmt.Errorf("watch: %w", core.ErrUnsupported)
			}
			src := lifecycle.NewSource(w, pattern)
			if err := src.Start(ctx); err != nil {
				return err
			}
			a.logger.Info("watching", "pattern", pattern)

			out := cmd.OutOrStdout()
			for e := range src.Events() {
				if _, err := fmt.Fprintln(out, e); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
