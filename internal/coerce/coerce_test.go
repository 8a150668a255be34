package coerce

import (
	"database/sql"
	"math/big"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestValue_Decimals(t *testing.T) {
	d := decimal.RequireFromString("0.012")
	require.Equal(t, 0.012, Value(d))
	require.Equal(t, 0.012, Value(&d))
	require.Equal(t, 0.25, Value(big.NewRat(1, 4)))
	require.Equal(t, 1.5, Value(big.NewFloat(1.5)))
	require.Equal(t, 0.012, Value(decimal.NewNullDecimal(d)))
	require.Nil(t, Value(decimal.NullDecimal{}))
}

func TestValue_Dates(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	dt := time.Date(2020, 12, 15, 1, 30, 0, 0, est)
	require.Equal(t, "2020-12-15T06:30:00Z", Value(dt))
	require.Equal(t, "2020-12-15T06:30:00Z", Value(&dt))

	withNanos := time.Date(2020, 12, 16, 1, 30, 0, 500_000_000, est)
	require.Equal(t, "2020-12-16T06:30:00Z", Value(withNanos), "dates drop sub-second precision")
}

func TestValue_Timestamps(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	ts := timestamppb.New(time.Date(2020, 12, 16, 1, 30, 0, 0, est))
	require.Equal(t, "2020-12-16T06:30:00Z", Value(ts))

	frac := timestamppb.New(time.Date(2020, 12, 16, 1, 30, 0, 250_000_000, est))
	require.Equal(t, "2020-12-16T06:30:00.25Z", Value(frac))
}

func TestValue_Wrappers(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"string", wrapperspb.String("x"), "x"},
		{"bool", wrapperspb.Bool(true), true},
		{"int32", wrapperspb.Int32(7), int32(7)},
		{"int64", wrapperspb.Int64(7), int64(7)},
		{"double", wrapperspb.Double(1.25), 1.25},
		{"struct value", structpb.NewStringValue("s"), "s"},
		{"duration", durationpb.New(90 * time.Second), "1m30s"},
		{"sql null string", sql.NullString{String: "a", Valid: true}, "a"},
		{"sql null string invalid", sql.NullString{}, nil},
		{"sql null time", sql.NullTime{Time: time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC), Valid: true}, "2021-01-02T03:04:05Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Value(tt.in)); diff != "" {
				t.Fatalf("Value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValue_PassThrough(t *testing.T) {
	for _, v := range []any{1, int64(2), "s", true, 1.5, []byte("b"), map[string]any{"a": 1}, nil} {
		if diff := cmp.Diff(v, Value(v)); diff != "" {
			t.Fatalf("pass-through mismatch (-want +got):\n%s", diff)
		}
	}
}
