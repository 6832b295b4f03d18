package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simobern/base/pkg/core"
)

func (a *app) removeCmd() *cobra.Command {
	var (
		query string
		one   bool
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "remove <collection>",
		Short: "Delete the documents that match a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ReadOnly {
				return core.ErrReadOnly
			}
			q, err := parseDoc(query)
			if err != nil {
				return err
			}
			if len(q) == 0 && !all {
				return fmt.Errorf("refusing to remove every document of %s without --all", args[0])
			}
			ctx := cmd.Context()
			return a.withCollection(ctx, args[0], func(c core.Collection) error {
				n, err := c.Remove(ctx, q, core.RemoveOptions{JustOne: one})
				if err != nil {
					return err
				}
				a.logger.Info("removed documents", "collection", c.Name(), "count", n)
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query document (JSON or YAML)")
	cmd.Flags().BoolVar(&one, "one", false, "Remove at most one document")
	cmd.Flags().BoolVar(&all, "all", false, "Allow an empty query")
	return cmd
}
