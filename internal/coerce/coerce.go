package coerce

import (
	"database/sql/driver"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DateLayout is the output format for date values, always rendered in UTC.
const DateLayout = "2006-01-02T15:04:05Z"

// Value normalizes a terminal value before it is placed into an output document.
// Rules are tried in order: decimals become float64, dates and timestamps become
// UTC strings, protobuf wrappers and SQL null types are unwrapped. Anything else
// is returned unchanged.
func Value(v any) any {
	if f, ok := decimalValue(v); ok {
		return f
	}
	if s, ok := dateValue(v); ok {
		return s
	}
	if s, ok := timestampValue(v); ok {
		return s
	}
	if u, ok := wrappedValue(v); ok {
		return u
	}
	return v
}

func decimalValue(v any) (float64, bool) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.InexactFloat64(), true
	case *decimal.Decimal:
		if d == nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	case *big.Float:
		if d == nil {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	case *big.Rat:
		if d == nil {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	}
	return 0, false
}

func dateValue(v any) (string, bool) {
	switch t := v.(type) {
	case time.Time:
		return FormatDate(t), true
	case *time.Time:
		if t == nil {
			return "", false
		}
		return FormatDate(*t), true
	}
	return "", false
}

// FormatDate renders t in UTC with second precision.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func timestampValue(v any) (string, bool) {
	ts, ok := v.(*timestamppb.Timestamp)
	if !ok || ts == nil {
		return "", false
	}
	return FormatTimestamp(ts.AsTime()), true
}

// FormatTimestamp renders t in UTC as ISO-8601 extended, with fractional
// seconds only when present.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func wrappedValue(v any) (any, bool) {
	switch w := v.(type) {
	case *wrapperspb.StringValue:
		return w.GetValue(), true
	case *wrapperspb.BoolValue:
		return w.GetValue(), true
	case *wrapperspb.Int32Value:
		return w.GetValue(), true
	case *wrapperspb.Int64Value:
		return w.GetValue(), true
	case *wrapperspb.UInt32Value:
		return w.GetValue(), true
	case *wrapperspb.UInt64Value:
		return w.GetValue(), true
	case *wrapperspb.FloatValue:
		return w.GetValue(), true
	case *wrapperspb.DoubleValue:
		return w.GetValue(), true
	case *wrapperspb.BytesValue:
		return w.GetValue(), true
	case *structpb.Value:
		return w.AsInterface(), true
	case *durationpb.Duration:
		return w.AsDuration().String(), true
	case decimal.NullDecimal:
		if !w.Valid {
			return nil, true
		}
		return w.Decimal.InexactFloat64(), true
	case driver.Valuer:
		dv, err := w.Value()
		if err != nil || dv == nil {
			return nil, true
		}
		return Value(dv), true
	}
	return nil, false
}
