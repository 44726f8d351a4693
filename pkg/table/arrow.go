package table

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FromRecord copies an Arrow record into a table.
// Unsupported Arrow types are read through their string form.
func FromRecord(rec arrow.Record) (*Table, error) {
	cols := make([]*Series, rec.NumCols())
	for j := range cols {
		arr := rec.Column(j)
		vals := make([]any, arr.Len())
		for i := range vals {
			if arr.IsNull(i) {
				continue
			}
			vals[i] = arrowValue(arr, i)
		}
		cols[j] = NewSeries(rec.ColumnName(j), vals)
	}
	return New(cols...)
}

func arrowValue(arr arrow.Array, i int) any {
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return a.Value(i)
	case *array.Int16:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return a.Value(i)
	case *array.Uint16:
		return a.Value(i)
	case *array.Uint32:
		return a.Value(i)
	case *array.Uint64:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Date32:
		return a.Value(i).ToTime().UTC()
	case *array.Date64:
		return a.Value(i).ToTime().UTC()
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC()
	default:
		return arr.ValueStr(i)
	}
}

// ToRecord converts the table to an Arrow record allocated from mem.
// The caller must release the record.
func (t *Table) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	fields := make([]arrow.Field, len(t.names))
	for j, n := range t.names {
		fields[j] = arrow.Field{Name: n, Type: arrowType(t.cols[n].Kind()), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for j, n := range t.names {
		if err := appendSeries(b.Field(j), t.cols[n]); err != nil {
			return nil, fmt.Errorf("column %q: %w", n, err)
		}
	}
	return b.NewRecord(), nil
}

func arrowType(k Kind) arrow.DataType {
	switch k {
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindInt:
		return arrow.PrimitiveTypes.Int64
	case KindFloat:
		return arrow.PrimitiveTypes.Float64
	case KindTime:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	default:
		return arrow.BinaryTypes.String
	}
}

func appendSeries(fb array.Builder, s *Series) error {
	for i, v := range s.values {
		if v == nil {
			fb.AppendNull()
			continue
		}
		ok := false
		switch b := fb.(type) {
		case *array.BooleanBuilder:
			var x bool
			if x, ok = v.(bool); ok {
				b.Append(x)
			}
		case *array.Int64Builder:
			var x int64
			if x, ok = v.(int64); ok {
				b.Append(x)
			}
		case *array.Float64Builder:
			var x float64
			if x, ok = toFloat(v); ok {
				b.Append(x)
			}
		case *array.TimestampBuilder:
			var x time.Time
			if x, ok = v.(time.Time); ok {
				b.Append(arrow.Timestamp(x.UnixMicro()))
			}
		case *array.StringBuilder:
			b.Append(Format(v))
			ok = true
		}
		if !ok {
			return fmt.Errorf("%w: element %d is %s, column is %s", ErrType, i, KindOf(v), s.Kind())
		}
	}
	return nil
}

// WriteArrow writes the table to w as an Arrow IPC stream with one record
// batch.
func (t *Table) WriteArrow(w io.Writer) error {
	mem := memory.NewGoAllocator()
	rec, err := t.ToRecord(mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return fmt.Errorf("write record: %w", err)
	}
	return iw.Close()
}

// ReadArrow reads an Arrow IPC stream into a single table, concatenating
// its record batches.
func ReadArrow(r io.Reader) (*Table, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open arrow stream: %w", err)
	}
	defer rdr.Release()

	fields := rdr.Schema().Fields()
	values := make([][]any, len(fields))
	for rdr.Next() {
		part, err := FromRecord(rdr.Record())
		if err != nil {
			return nil, err
		}
		for j, n := range part.names {
			values[j] = append(values[j], part.cols[n].values...)
		}
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read arrow stream: %w", err)
	}

	cols := make([]*Series, len(fields))
	for j, f := range fields {
		cols[j] = NewSeries(f.Name, values[j])
	}
	return New(cols...)
}
