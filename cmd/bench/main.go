package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/simobern/base/pkg/adapters/fs"
	"github.com/simobern/base/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of documents to generate")
	format := flag.String("format", "json", "File format: json or yaml")
	keep := flag.Bool("keep", false, "Keep the benchmark directory after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "base_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := fs.New(fs.Config{Path: benchDir, Format: *format, Logger: logger})
	if err != nil {
		panic(err)
	}
	ctx := context.TODO()
	if err := db.Initialize(ctx); err != nil {
		panic(err)
	}
	events := db.Collection("events")

	fmt.Printf("Generating %d documents in %s...\n", *count, benchDir)
	startGen := time.Now()
	for i := 0; i < *count; i++ {
		err := events.Insert(ctx, core.Document{
			"_id":   fmt.Sprintf("event_%06d", i),
			"n":     int64(i),
			"kind":  []string{"click", "view", "buy"}[i%3],
			"at":    time.Now().UTC(),
			"tags":  []any{"benchmark", "test"},
			"props": core.Document{"score": float64(i) / 3},
		})
		if err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	query := core.Document{"kind": "buy"}

	// Run 1: cold, every file is parsed and cached
	fmt.Println("Running Count (Run 1 - Cold)...")
	start := time.Now()
	n, err := events.Count(ctx, query)
	if err != nil {
		panic(err)
	}
	cold := time.Since(start)
	fmt.Printf("Run 1 Result: %v (Matches: %d)\n", cold, n)

	// Run 2: warm, unchanged files come from the cache
	fmt.Println("Running Count (Run 2 - Warm)...")
	start = time.Now()
	n, err = events.Count(ctx, query)
	if err != nil {
		panic(err)
	}
	warm := time.Since(start)
	fmt.Printf("Run 2 Result: %v (Matches: %d)\n", warm, n)

	// Run 3: aggregation over the warm cache
	start = time.Now()
	rows, err := events.Aggregate(ctx, []core.Document{
		{"$group": core.Document{"_id": "$kind", "n": core.Document{"$sum": 1}}},
	})
	if err != nil {
		panic(err)
	}
	agg := time.Since(start)

	state := db.State().(fs.DatabaseState)
	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d documents, %s):\n", *count, *format)
	fmt.Printf("  Cold:      %v\n", cold)
	fmt.Printf("  Warm:      %v\n", warm)
	fmt.Printf("  Aggregate: %v (%d groups)\n", agg, len(rows))
	fmt.Printf("  Cache:     %d entries, %d hits, %d misses\n", state.CacheSize, state.CacheHits, state.CacheMisses)
	fmt.Printf("--------------------------------------------------\n")
}
