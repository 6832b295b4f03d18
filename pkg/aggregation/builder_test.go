package aggregation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simobern/base/pkg/aggregation"
	"github.com/simobern/base/pkg/core"
)

func TestBuilder_EmptySpecsAreDropped(t *testing.T) {
	b := aggregation.New().
		Match(core.Document{}).
		Project(nil).
		Group(core.Document{}).
		Sort(core.D{})

	assert.Zero(t, b.Len())
	assert.Empty(t, b.Pipeline())
}

func TestBuilder_CallOrder(t *testing.T) {
	b := aggregation.New().
		Limit(10).
		Match(core.Document{}).
		Match(core.Document{"status": "active"}).
		Unwind("tags").
		Skip(5)

	assert.Equal(t, []core.Document{
		{"$limit": int64(10)},
		{"$match": core.Document{"status": "active"}},
		{"$unwind": "$tags"},
		{"$skip": int64(5)},
	}, b.Pipeline())
}

func TestBuilder_EndToEnd(t *testing.T) {
	pipeline := aggregation.New().
		Match(core.Document{"status": "active"}).
		Group(core.Document{"_id": "$user", "total": aggregation.Sum("amount")}).
		Sort(core.D{{Key: "total", Value: -1}}).
		Pipeline()

	assert.Equal(t, []core.Document{
		{"$match": core.Document{"status": "active"}},
		{"$group": core.Document{"_id": "$user", "total": core.Document{"$sum": "$amount"}}},
		{"$sort": core.D{{Key: "total", Value: -1}}},
	}, pipeline)
}

func TestBuilder_PipelineIsACopy(t *testing.T) {
	b := aggregation.New().Limit(1)
	p := b.Pipeline()
	p[0] = core.Document{"$skip": 2}

	b.Skip(3)
	assert.Equal(t, core.Document{"$limit": int64(1)}, b.Pipeline()[0])
	assert.Len(t, p, 1)
}

func TestAccumulators(t *testing.T) {
	tests := []struct {
		name string
		got  core.Document
		want core.Document
	}{
		{"sum literal", aggregation.Sum(1), core.Document{"$sum": 1}},
		{"sum float literal", aggregation.Sum(2.5), core.Document{"$sum": 2.5}},
		{"sum field", aggregation.Sum("amount"), core.Document{"$sum": "$amount"}},
		{"sum prefixed field", aggregation.Sum("$amount"), core.Document{"$sum": "$amount"}},
		{"sum numeric string", aggregation.Sum("5"), core.Document{"$sum": int64(5)}},
		{"sum negative float string", aggregation.Sum("-2.5"), core.Document{"$sum": -2.5}},
		{"sum exponent string", aggregation.Sum("1e3"), core.Document{"$sum": 1000.0}},
		{"sum field named like a word", aggregation.Sum("e"), core.Document{"$sum": "$e"}},
		{"push one", aggregation.Push("name"), core.Document{"$push": "$name"}},
		{"push many", aggregation.Push("a", "b"), core.Document{"$push": []any{"$a", "$b"}}},
		{"addToSet", aggregation.AddToSet("tag"), core.Document{"$addToSet": "$tag"}},
		{"first", aggregation.First("x"), core.Document{"$first": "$x"}},
		{"last", aggregation.Last("x"), core.Document{"$last": "$x"}},
		{"max", aggregation.Max("x"), core.Document{"$max": "$x"}},
		{"min", aggregation.Min("x"), core.Document{"$min": "$x"}},
		{"avg", aggregation.Avg("x"), core.Document{"$avg": "$x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
