package schema

import (
	"context"

	"github.com/leapstack-labs/leapqa/pkg/frame"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// MergeRead returns a read function joining the instances of left and right
// for the same key. Both sides go through their own read caches.
func MergeRead(left, right *Schema, on []string, how table.Join) ReadFunc {
	on = append([]string(nil), on...)
	return func(ctx context.Context, key any) (*table.Table, error) {
		l, err := left.New(ctx, key)
		if err != nil {
			return nil, err
		}
		r, err := right.New(ctx, key)
		if err != nil {
			return nil, err
		}
		m, err := l.Merge(r.Frame, on, how)
		if err != nil {
			return nil, err
		}
		return m.Table()
	}
}

// MergeColumns returns unbound copies of the columns of left followed by
// those of right, without their rules.
func MergeColumns(left, right *Schema) []*frame.Column {
	var out []*frame.Column
	for _, s := range []*Schema{left, right} {
		for _, c := range s.columns {
			out = append(out, frame.NewColumn(c.Name(),
				frame.InTable(c.Table()),
				frame.OfKind(c.Kind()),
				frame.Described(c.Description())))
		}
	}
	return out
}
