package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"github.com/simobern/base/pkg/core"
)

// MapReduceCommand builds a map/reduce command over collection with inline
// output. When config is given it replaces the mapreduce, map, reduce and
// query entries; its keys also override "out".
func MapReduceCommand(collection string, mapFn, reduceFn core.Code, query core.Document, config core.D) core.D {
	out := core.E{Key: "out", Value: core.Document{"inline": 1}}

	if len(config) > 0 {
		cmd := append(core.D{}, config...)
		if _, ok := config.Get("out"); !ok {
			cmd = append(cmd, out)
		}
		return cmd
	}
	cmd := core.D{
		{Key: "mapreduce", Value: collection},
		{Key: "map", Value: mapFn},
		{Key: "reduce", Value: reduceFn},
		out,
	}
	if len(query) > 0 {
		cmd = append(cmd, core.E{Key: "query", Value: query})
	}
	return cmd
}

// MapReduce runs MapReduceCommand against the repository collection. A failed
// command, or one whose result is not ok, is logged and yields nil.
func (r *Repository) MapReduce(ctx context.Context, mapFn, reduceFn core.Code, query core.Document, config core.D) (core.Document, error) {
	cmd := MapReduceCommand(r.coll.Name(), mapFn, reduceFn, query, config)
	res, err := r.session.db.Command(ctx, cmd)
	if err != nil {
		r.log(ctx).Error("MapReduce error", "error", err)
		return nil, nil
	}
	if !ok(res["ok"]) {
		r.log(ctx).Error("MapReduce error", "result", res)
		return nil, nil
	}
	return res, nil
}

func ok(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	return false
}

// LoadCode reads "<name>.js" from fsys as a server-side function.
func LoadCode(fsys fs.FS, name string, scope core.Document) (core.Code, error) {
	src, err := fs.ReadFile(fsys, path.Clean(name)+".js")
	if err != nil {
		return core.Code{}, fmt.Errorf("load function %s: %w", name, err)
	}
	return core.Code{Source: string(src), Scope: scope}, nil
}
