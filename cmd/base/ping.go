package main

import (
	"github.com/spf13/cobra"

	"github.com/simobern/base/pkg/core"
)

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), a.output)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			res, err := db.Command(ctx, core.D{{Key: "ping", Value: 1}})
			if err != nil {
				return err
			}
			return p.Document(res)
		},
	}
}
