package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		cents   int64
		wantErr error
	}{
		{in: "500.00", cents: 50000},
		{in: "12.5", cents: 1250},
		{in: "0", cents: 0},
		{in: "-3.10", cents: -310},
		{in: "1.005", wantErr: ErrPrecision},
		{in: "92233720368547758.07", cents: math.MaxInt64},
		{in: "92233720368547758.08", wantErr: ErrOutOfRange},
		{in: "1000000000000000000000", wantErr: ErrOutOfRange},
		{in: "-92233720368547758.09", wantErr: ErrOutOfRange},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr != nil {
			require.ErrorIs(t, err, tt.wantErr, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.cents, got.Cents(), tt.in)
	}

	_, err := Parse("twelve")
	require.Error(t, err)
}

func TestJSON(t *testing.T) {
	var payload struct {
		Price Amount `json:"price"`
		Total Amount `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 500, "total": "1000.00"}`), &payload))
	require.Equal(t, Amount(50000), payload.Price)
	require.Equal(t, Amount(100000), payload.Total)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{"price": 500.00, "total": 1000.00}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"price": 9.999}`), &payload))
}

func TestWithinAndSign(t *testing.T) {
	require.True(t, Amount(1000).Within(1001, 1))
	require.False(t, Amount(1000).Within(1002, 1))
	require.ErrorIs(t, Amount(-1).NonNegative(), ErrNegative)
	require.NoError(t, Amount(0).NonNegative())
	require.Equal(t, "7.05", FromCents(705).String())
}

func TestCheckedArithmetic(t *testing.T) {
	sub, err := FromCents(1250).Times(3)
	require.NoError(t, err)
	require.Equal(t, Amount(3750), sub)

	zero, err := FromCents(math.MaxInt64).Times(0)
	require.NoError(t, err)
	require.Zero(t, zero)

	_, err = FromCents(5_000_000_000_000_000_000).Times(2)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = FromCents(100).Times(-1)
	require.Error(t, err)

	sum, err := FromCents(100).Plus(FromCents(-40))
	require.NoError(t, err)
	require.Equal(t, Amount(60), sum)

	_, err = FromCents(math.MaxInt64).Plus(FromCents(1))
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = FromCents(math.MinInt64).Plus(FromCents(-1))
	require.ErrorIs(t, err, ErrOutOfRange)
}
