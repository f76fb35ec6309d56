package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "GHS 165.00", Format("", decimal.NewFromInt(165)))
	assert.Equal(t, "USD 0.10", Format("USD", decimal.RequireFromString("0.1")))
	assert.Equal(t, "GHS 10.01", Format("GHS", decimal.RequireFromString("10.005")))
}

func TestParse(t *testing.T) {
	v, err := Parse(" 150.50 ")
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("150.5")))

	_, err = Parse("-1")
	assert.Error(t, err)

	_, err = Parse("ten")
	assert.Error(t, err)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, "2.35", Round2(decimal.RequireFromString("2.345")).String())
}
