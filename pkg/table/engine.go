package table

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/gorilla"
)

// Row selection and matching run on gorilla data frames holding row
// positions, never values. Positions are stored 1-based so that a zero or a
// null both read back as "no row".
const (
	rowColumn      = "__row"
	keepColumn     = "__keep"
	leftKeyColumn  = "__left_key"
	leftRowColumn  = "__left_row"
	rightKeyColumn = "__right_key"
	rightRowColumn = "__right_row"
)

var joinTypes = map[Join]gorilla.JoinType{
	JoinInner: gorilla.InnerJoin,
	JoinLeft:  gorilla.LeftJoin,
	JoinRight: gorilla.RightJoin,
}

// keptRows returns, in ascending order, the positions whose mask is true.
func keptRows(mask []bool) ([]int, error) {
	if len(mask) == 0 {
		return nil, nil
	}
	mem := memory.NewGoAllocator()
	rows := gorilla.NewSeries(rowColumn, positions(len(mask)), mem)
	defer rows.Release()
	keep := gorilla.NewSeries(keepColumn, mask, mem)
	defer keep.Release()
	df := gorilla.NewDataFrame(rows, keep)
	defer df.Release()

	out, err := df.Lazy().
		Filter(gorilla.Col(keepColumn).Eq(gorilla.Lit(true))).
		Select(rowColumn).
		Collect()
	if err != nil {
		return nil, fmt.Errorf("filter rows: %w", err)
	}
	defer out.Release()

	idx, err := readPositions(out, rowColumn)
	if err != nil {
		return nil, err
	}
	idx = slices.DeleteFunc(idx, func(i int) bool { return i < 0 })
	slices.Sort(idx)
	return idx, nil
}

// joinKeys is the encoded join key of every row of one side. Rows with a
// null key component are not valid and never match.
type joinKeys struct {
	keys  []string
	valid []bool
}

func (k joinKeys) matchable() (keys []string, rows []int64) {
	for i, ok := range k.valid {
		if ok {
			keys = append(keys, k.keys[i])
			rows = append(rows, int64(i)+1)
		}
	}
	return keys, rows
}

// matchRows pairs the rows of left and right with equal keys. Unmatched rows
// of the driving side (left for inner and left joins, right for right joins)
// are paired with -1 unless the join is inner. Pairs are ordered by the
// driving side, then the other side.
func matchRows(left, right joinKeys, how Join) (leftIdx, rightIdx []int, err error) {
	jt, ok := joinTypes[how]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrJoin, how)
	}

	lKeys, lRows := left.matchable()
	rKeys, rRows := right.matchable()

	type pair struct{ l, r int }
	var pairs []pair
	switch {
	case len(lKeys) > 0 && len(rKeys) > 0:
		mem := memory.NewGoAllocator()
		ldf := positionFrame(mem, leftKeyColumn, lKeys, leftRowColumn, lRows)
		defer ldf.Release()
		rdf := positionFrame(mem, rightKeyColumn, rKeys, rightRowColumn, rRows)
		defer rdf.Release()

		joined, err := ldf.Join(rdf, &gorilla.JoinOptions{
			Type:     jt,
			LeftKey:  leftKeyColumn,
			RightKey: rightKeyColumn,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("join rows: %w", err)
		}
		defer joined.Release()

		ls, err := readPositions(joined, leftRowColumn)
		if err != nil {
			return nil, nil, err
		}
		rs, err := readPositions(joined, rightRowColumn)
		if err != nil {
			return nil, nil, err
		}
		for i := range ls {
			pairs = append(pairs, pair{ls[i], rs[i]})
		}
	case how == JoinLeft:
		for _, r := range lRows {
			pairs = append(pairs, pair{int(r) - 1, -1})
		}
	case how == JoinRight:
		for _, r := range rRows {
			pairs = append(pairs, pair{-1, int(r) - 1})
		}
	}

	// Rows with null keys take part only as unmatched rows of the driving side.
	switch how {
	case JoinLeft:
		for i, ok := range left.valid {
			if !ok {
				pairs = append(pairs, pair{i, -1})
			}
		}
	case JoinRight:
		for i, ok := range right.valid {
			if !ok {
				pairs = append(pairs, pair{-1, i})
			}
		}
	}

	slices.SortFunc(pairs, func(a, b pair) int {
		if how == JoinRight {
			return cmp.Or(cmp.Compare(a.r, b.r), cmp.Compare(a.l, b.l))
		}
		return cmp.Or(cmp.Compare(a.l, b.l), cmp.Compare(a.r, b.r))
	})

	leftIdx = make([]int, len(pairs))
	rightIdx = make([]int, len(pairs))
	for i, p := range pairs {
		leftIdx[i], rightIdx[i] = p.l, p.r
	}
	return leftIdx, rightIdx, nil
}

func positionFrame(mem memory.Allocator, keyName string, keys []string, rowName string, rows []int64) *gorilla.DataFrame {
	ks := gorilla.NewSeries(keyName, keys, mem)
	defer ks.Release()
	rs := gorilla.NewSeries(rowName, rows, mem)
	defer rs.Release()
	return gorilla.NewDataFrame(ks, rs)
}

// readPositions converts a 1-based position column back to 0-based indices.
// Nulls and zeros become -1.
func readPositions(df *gorilla.DataFrame, name string) ([]int, error) {
	s, ok := df.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in row engine result", ErrNoColumn, name)
	}
	arr := s.Array()
	defer arr.Release()

	ints, ok := arr.(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("%w: row engine column %q is %s, want %s", ErrType, name, arr.DataType(), arrow.PrimitiveTypes.Int64)
	}
	out := make([]int, ints.Len())
	for i := range out {
		if ints.IsNull(i) || ints.Value(i) <= 0 {
			out[i] = -1
			continue
		}
		out[i] = int(ints.Value(i)) - 1
	}
	return out, nil
}

func positions(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i) + 1
	}
	return out
}
