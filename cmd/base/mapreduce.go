package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/simobern/base/pkg/store"
)

func (a *app) mapReduceCmd() *cobra.Command {
	var (
		mapName    string
		reduceName string
		query      string
	)
	cmd := &cobra.Command{
		Use:   "mapreduce <collection>",
		Short: "Run a map/reduce job with inline output",
		Long: `Loads <map>.js and <reduce>.js from the functions directory (the "functions"
config key, default mongo_functions next to the config file) and runs them
over the collection. Only adapters that implement the mapreduce command
support it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseDoc(query)
			if err != nil {
				return err
			}
			fsys := os.DirFS(a.functionsDir())
			mapFn, err := store.LoadCode(fsys, mapName, nil)
			if err != nil {
				return err
			}
			reduceFn, err := store.LoadCode(fsys, reduceName, nil)
			if err != nil {
				return err
			}
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

			res, err := db.Command(ctx, store.MapReduceCommand(args[0], mapFn, reduceFn, q, nil))
			if err != nil {
				return err
			}
			return p.Document(res)
		},
	}
	cmd.Flags().StringVar(&mapName, "map", "map", "Name of the map function file")
	cmd.Flags().StringVar(&reduceName, "reduce", "reduce", "Name of the reduce function file")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query document (JSON or YAML)")
	return cmd
}
