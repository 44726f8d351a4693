package table

import (
	"fmt"
	"strings"
)

// Join is the row-matching mode of a merge.
type Join string

// Supported join modes.
const (
	JoinInner Join = "inner"
	JoinLeft  Join = "left"
	JoinRight Join = "right"
)

// ParseJoin validates a join name. An empty name is an inner join.
func ParseJoin(s string) (Join, error) {
	switch j := Join(strings.ToLower(strings.TrimSpace(s))); j {
	case "":
		return JoinInner, nil
	case JoinInner, JoinLeft, JoinRight:
		return j, nil
	default:
		return "", fmt.Errorf("%w: %q (expected inner, left or right)", ErrJoin, s)
	}
}

// MergeOptions control how two tables are combined.
type MergeOptions struct {
	// On lists the key columns present in both tables.
	On []string
	// How is the join mode; the zero value is an inner join.
	How Join
}

// Merge joins t with right on equal key values.
//
// Key columns appear once. Non-key columns present on both sides are
// qualified as "table.column" when both tables are named and suffixed
// with "_x" and "_y" otherwise. Null keys never match. Output rows follow
// the driving side's order: left for inner and left joins, right for
// right joins.
func (t *Table) Merge(right *Table, opts MergeOptions) (*Table, error) {
	how := opts.How
	if how == "" {
		how = JoinInner
	}
	if _, err := ParseJoin(string(how)); err != nil {
		return nil, err
	}
	if len(opts.On) == 0 {
		return nil, fmt.Errorf("%w: merge requires at least one key column", ErrJoin)
	}
	for _, k := range opts.On {
		if !t.HasColumn(k) {
			return nil, fmt.Errorf("left side: %w: %q", ErrNoColumn, k)
		}
		if !right.HasColumn(k) {
			return nil, fmt.Errorf("right side: %w: %q", ErrNoColumn, k)
		}
	}

	leftIdx, rightIdx, err := matchRows(t.joinKeys(opts.On), right.joinKeys(opts.On), how)
	if err != nil {
		return nil, err
	}
	return t.assemble(right, opts.On, leftIdx, rightIdx, how)
}

func (t *Table) assemble(right *Table, on []string, leftIdx, rightIdx []int, how Join) (*Table, error) {
	keys := make(map[string]bool, len(on))
	for _, k := range on {
		keys[k] = true
	}

	rename := func(c, table, suffix string) string {
		if keys[c] || !t.HasColumn(c) || !right.HasColumn(c) {
			return c
		}
		if t.name != "" && right.name != "" && t.name != right.name {
			return table + "." + c
		}
		return c + suffix
	}
	leftName := func(c string) string { return rename(c, t.name, "_x") }
	rightName := func(c string) string { return rename(c, right.name, "_y") }

	cols := make([]*Series, 0, len(t.names)+len(right.names)-len(on))
	for _, c := range t.names {
		if keys[c] && how == JoinRight {
			cols = append(cols, right.cols[c].Take(rightIdx))
			continue
		}
		cols = append(cols, t.cols[c].Take(leftIdx).Rename(leftName(c)))
	}
	for _, c := range right.names {
		if keys[c] {
			continue
		}
		cols = append(cols, right.cols[c].Take(rightIdx).Rename(rightName(c)))
	}
	out, err := New(cols...)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return out, nil
}

func (t *Table) joinKeys(on []string) joinKeys {
	k := joinKeys{keys: make([]string, t.rows), valid: make([]bool, t.rows)}
	for i := range t.rows {
		if t.nullKey(i, on) {
			continue
		}
		k.keys[i] = t.rowKey(i, on)
		k.valid[i] = true
	}
	return k
}

func (t *Table) nullKey(i int, on []string) bool {
	for _, k := range on {
		if t.cols[k].values[i] == nil {
			return true
		}
	}
	return false
}
