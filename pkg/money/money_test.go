package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse("125.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("125.50")))

	d, err = Parse("0.005")
	require.NoError(t, err)
	assert.Equal(t, "0.01", d.StringFixed(2), "parse rounds to cents")

	_, err = Parse("not-a-number")
	assert.Error(t, err)

	_, err = Parse("")
	assert.Error(t, err)
}

func TestShare(t *testing.T) {
	total := MustParse("100.00")

	assert.Equal(t, "50.00", Share(total, 50).StringFixed(2))
	assert.Equal(t, "33.33", Share(total, 33).StringFixed(2))
	assert.Equal(t, "0.00", Share(total, 0).StringFixed(2))
	assert.Equal(t, "100.00", Share(total, 100).StringFixed(2))

	// Cent rounding on awkward totals
	assert.Equal(t, "33.34", Share(MustParse("66.67"), 50).StringFixed(2))
}

func TestSumIsExact(t *testing.T) {
	// 0.10 added ten times must be exactly 1.00, the case float64 gets wrong.
	amounts := make([]decimal.Decimal, 10)
	for i := range amounts {
		amounts[i] = MustParse("0.10")
	}

	assert.True(t, Sum(amounts...).Equal(MustParse("1.00")))
}

func TestIsPositive(t *testing.T) {
	assert.True(t, IsPositive(MustParse("0.01")))
	assert.False(t, IsPositive(Zero))
	assert.False(t, IsPositive(MustParse("-5.00")))
}
