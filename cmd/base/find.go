package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simobern/base/pkg/core"
)

func (a *app) findCmd() *cobra.Command {
	var (
		query  string
		fields string
		sort   string
		skip   int64
		limit  int64
	)
	cmd := &cobra.Command{
		Use:   "find <collection>",
		Short: "Print the documents of a collection that match a query",
		Example: `  base find users --query '{"age": {"$gt": 30}}' --sort -age --limit 10
  base find users --fields '{"name": 1}' -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseDoc(query)
			if err != nil {
				return err
			}
			f, err := parseDoc(fields)
			if err != nil {
				return err
			}
			p, err := newPrinter(cmd.OutOrStdout(), a.output)
			if err != nil {
				return err
			}
			opts := core.FindOptions{Sort: parseSort(sort), Skip: skip, Limit: limit}
			if len(f) > 0 {
				opts.Fields = f
			}

			ctx := cmd.Context()
			return a.withCollection(ctx, args[0], func(c core.Collection) error {
				rs, err := c.Find(ctx, q, opts)
				if err != nil {
					return err
				}
				defer rs.Close(ctx)
				for rs.Next(ctx) {
					if err := p.Document(rs.Document()); err != nil {
						return err
					}
				}
				return rs.Err()
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query document (JSON or YAML)")
	cmd.Flags().StringVar(&fields, "fields", "", "Projection document")
	cmd.Flags().StringVar(&sort, "sort", "", "Sort fields, comma separated; prefix with - for descending")
	cmd.Flags().Int64Var(&skip, "skip", 0, "Number of documents to skip")
	cmd.Flags().Int64Var(&limit, "limit", 0, "Maximum number of documents (0 for all)")
	return cmd
}

func (a *app) countCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "count <collection>",
		Short: "Count the documents that match a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseDoc(query)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withCollection(ctx, args[0], func(c core.Collection) error {
				n, err := c.Count(ctx, q)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query document (JSON or YAML)")
	return cmd
}

func (a *app) distinctCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "distinct <collection> <key>",
		Short: "Print the distinct values of a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseDoc(query)
			if err != nil {
				return err
			}
			p, err := newPrinter(cmd.OutOrStdout(), a.output)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withCollection(ctx, args[0], func(c core.Collection) error {
				res, err := c.Distinct(ctx, args[1], q)
				if err != nil {
					return err
				}
				values, ok := res.([]any)
				if !ok {
					return p.Value(res)
				}
				for _, v := range values {
					if err := p.Value(v); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query document (JSON or YAML)")
	return cmd
}
