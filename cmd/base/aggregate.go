package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simobern/base/pkg/adapters/fs"
	"github.com/simobern/base/pkg/aggregation"
	"github.com/simobern/base/pkg/core"
)

type aggregateFlags struct {
	pipeline string
	match    string
	unwind   string
	groupBy  string
	count    string
	sums     []string
	avgs     []string
	sort     string
	limit    int64
}

func (a *app) aggregateCmd() *cobra.Command {
	var f aggregateFlags
	cmd := &cobra.Command{
		Use:   "aggregate <collection>",
		Short: "Run an aggregation pipeline over a collection",
		Long: `Runs a pipeline read from a file (a JSON or YAML document with a "pipeline"
list), or one built from the match/unwind/group/sort/limit flags in that order.`,
		Example: `  base aggregate posts --unwind tags --group-by tags --count n --sort -n
  base aggregate orders --match '{"status": "paid"}' --group-by customer --sum total=amount
  base aggregate orders --pipeline report.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				pipeline []core.Document
				err      error
			)
			if f.pipeline != "" {
				pipeline, err = readPipeline(f.pipeline)
			} else {
				pipeline, err = f.build()
			}
			if err != nil {
				return err
			}
			p, err := newPrinter(cmd.OutOrStdout(), a.output)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return a.withCollection(ctx, args[0], func(c core.Collection) error {
				a.logger.Debug("aggregate", "collection", c.Name(), "stages", len(pipeline))
				docs, err := c.Aggregate(ctx, pipeline)
				if err != nil {
					return err
				}
				for _, doc := range docs {
					if err := p.Document(doc); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.pipeline, "pipeline", "p", "", "File holding the pipeline")
	flags.StringVar(&f.match, "match", "", "$match stage document")
	flags.StringVar(&f.unwind, "unwind", "", "Array field to unwind")
	flags.StringVar(&f.groupBy, "group-by", "", "Field to group by")
	flags.StringVar(&f.count, "count", "", "Name of a per-group document count")
	flags.StringArrayVar(&f.sums, "sum", nil, "Per-group sum as name=field (repeatable)")
	flags.StringArrayVar(&f.avgs, "avg", nil, "Per-group average as name=field (repeatable)")
	flags.StringVar(&f.sort, "sort", "", "Sort fields, comma separated; prefix with - for descending")
	flags.Int64Var(&f.limit, "limit", 0, "Maximum number of results")
	cmd.MarkFlagsMutuallyExclusive("pipeline", "match")
	cmd.MarkFlagsMutuallyExclusive("pipeline", "group-by")
	return cmd
}

func (f aggregateFlags) build() ([]core.Document, error) {
	b := aggregation.New()
	if f.match != "" {
		m, err := parseDoc(f.match)
		if err != nil {
			return nil, err
		}
		b.Match(m)
	}
	if f.unwind != "" {
		b.Unwind(f.unwind)
	}
	if f.groupBy != "" {
		group := core.Document{core.KeyID: aggregation.Field(f.groupBy)}
		if f.count != "" {
			group[f.count] = aggregation.Sum(1)
		}
		for _, s := range f.sums {
			name, field, err := splitAccumulator(s)
			if err != nil {
				return nil, err
			}
			group[name] = aggregation.Sum(field)
		}
		for _, s := range f.avgs {
			name, field, err := splitAccumulator(s)
			if err != nil {
				return nil, err
			}
			group[name] = aggregation.Avg(field)
		}
		b.Group(group)
	} else if f.count != "" || len(f.sums) > 0 || len(f.avgs) > 0 {
		return nil, fmt.Errorf("--count, --sum and --avg require --group-by")
	}
	if f.sort != "" {
		b.Sort(parseSort(f.sort))
	}
	if f.limit > 0 {
		b.Limit(f.limit)
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("empty pipeline: use --pipeline or the stage flags")
	}
	return b.Pipeline(), nil
}

func splitAccumulator(s string) (string, string, error) {
	name, field, ok := strings.Cut(s, "=")
	if !ok || name == "" || field == "" {
		return "", "", fmt.Errorf("invalid accumulator %q: want name=field", s)
	}
	return name, field, nil
}

// readPipeline loads {pipeline: [stage, ...]} from a JSON or YAML file.
func readPipeline(path string) ([]core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	ser, err := fs.SerializerFor(format)
	if err != nil {
		return nil, err
	}
	doc, err := ser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline file %s: %w", path, err)
	}
	stages, ok := doc["pipeline"].([]any)
	if !ok {
		return nil, fmt.Errorf("invalid pipeline file %s: missing pipeline list", path)
	}
	pipeline := make([]core.Document, 0, len(stages))
	for i, s := range stages {
		stage, ok := core.AsDocument(s)
		if !ok {
			return nil, fmt.Errorf("invalid pipeline file %s: stage %d is not a document", path, i)
		}
		pipeline = append(pipeline, stage)
	}
	return pipeline, nil
}
