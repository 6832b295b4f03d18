package core

import "context"

// SliceResultSet is a ResultSet over an in-memory slice. Adapters that
// materialise results eagerly (memory, fs) return it.
type SliceResultSet struct {
	docs []Document
	pos  int
	err  error
}

// NewSliceResultSet wraps docs.
func NewSliceResultSet(docs []Document) *SliceResultSet {
	return &SliceResultSet{docs: docs, pos: -1}
}

func (s *SliceResultSet) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		s.err = err
		s.pos = len(s.docs)
		return false
	}
	if s.pos+1 >= len(s.docs) {
		s.pos = len(s.docs)
		return false
	}
	s.pos++
	return true
}

func (s *SliceResultSet) Document() Document {
	if s.pos < 0 || s.pos >= len(s.docs) {
		return nil
	}
	return s.docs[s.pos]
}

func (s *SliceResultSet) Err() error { return s.err }

func (s *SliceResultSet) Close(ctx context.Context) error {
	s.pos = len(s.docs)
	return nil
}

var _ ResultSet = (*SliceResultSet)(nil)
