package drc20

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		maxDec      uint16
		expected    string
		shouldError bool
	}{
		{name: "integer", input: "1000", maxDec: 18, expected: "1000"},
		{name: "fraction", input: "0.25", maxDec: 2, expected: "0.25"},
		{name: "max uint64", input: "18446744073709551615", maxDec: 0, expected: "18446744073709551615"},
		{name: "too many decimals", input: "0.125", maxDec: 2, shouldError: true},
		{name: "overflow", input: "18446744073709551616", maxDec: 18, shouldError: true},
		{name: "leading dot", input: ".5", maxDec: 18, shouldError: true},
		{name: "trailing dot", input: "5.", maxDec: 18, shouldError: true},
		{name: "sign", input: "-5", maxDec: 18, shouldError: true},
		{name: "plus sign", input: "+5", maxDec: 18, shouldError: true},
		{name: "exponent", input: "1e3", maxDec: 18, shouldError: true},
		{name: "empty", input: "", maxDec: 18, shouldError: true},
		{name: "not a number", input: "abc", maxDec: 18, shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ParseNumber(tt.input, tt.maxDec)
			if tt.shouldError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(actual), "expected %s, got %s", tt.expected, actual)
		})
	}
}

func TestParsePayload(t *testing.T) {
	t.Run("deploy with defaults", func(t *testing.T) {
		payload, err := ParsePayload("text/plain;charset=utf-8", []byte(`{"p":"drc-20","op":"deploy","tick":"DOGE","max":"21000000"}`))
		require.NoError(t, err)
		assert.Equal(t, OperationDeploy, payload.Op)
		assert.Equal(t, "doge", payload.Tick)
		assert.Equal(t, "DOGE", payload.OriginalTick)
		assert.Equal(t, uint16(MaxDecimals), payload.Dec)
		assert.True(t, payload.Max.Equal(decimal.NewFromInt(21000000)))
		assert.True(t, payload.Lim.Equal(payload.Max))
	})
	t.Run("deploy with lim and dec", func(t *testing.T) {
		payload, err := ParsePayload("application/json", []byte(`{"p":"drc-20","op":"deploy","tick":"wow!","max":"1000","lim":"100","dec":"2"}`))
		require.NoError(t, err)
		assert.Equal(t, uint16(2), payload.Dec)
		assert.True(t, payload.Lim.Equal(decimal.NewFromInt(100)))
	})
	t.Run("mint", func(t *testing.T) {
		payload, err := ParsePayload("text/plain", []byte(`{"p":"drc-20","op":"mint","tick":"doge","amt":"4.2"}`))
		require.NoError(t, err)
		assert.Equal(t, OperationMint, payload.Op)
		assert.True(t, payload.Amt.Equal(decimal.RequireFromString("4.2")))
	})

	tests := []struct {
		name        string
		contentType string
		content     string
	}{
		{name: "unsupported content type", contentType: "image/png", content: `{"p":"drc-20","op":"mint","tick":"doge","amt":"1"}`},
		{name: "too short", contentType: "text/plain", content: `{"p":"drc-20","op":"mint"}`},
		{name: "not json", contentType: "text/plain", content: `this is not json but it is long enough to parse`},
		{name: "wrong protocol", contentType: "text/plain", content: `{"p":"brc-20","op":"mint","tick":"doge","amt":"1"}`},
		{name: "unknown op", contentType: "text/plain", content: `{"p":"drc-20","op":"burn","tick":"doge","amt":"1"}`},
		{name: "tick too long", contentType: "text/plain", content: `{"p":"drc-20","op":"mint","tick":"dogex","amt":"1"}`},
		{name: "tick too short", contentType: "text/plain", content: `{"p":"drc-20","op":"mint","tick":"dog","amt":"1"}`},
		{name: "numeric amount", contentType: "text/plain", content: `{"p":"drc-20","op":"mint","tick":"doge","amt":1}`},
		{name: "missing amount", contentType: "text/plain", content: `{"p":"drc-20","op":"mint","tick":"doge","x":"1"}`},
		{name: "deploy missing max", contentType: "text/plain", content: `{"p":"drc-20","op":"deploy","tick":"doge","lim":"1"}`},
		{name: "deploy dec too large", contentType: "text/plain", content: `{"p":"drc-20","op":"deploy","tick":"doge","max":"1","dec":"19"}`},
		{name: "deploy max exceeds dec", contentType: "text/plain", content: `{"p":"drc-20","op":"deploy","tick":"doge","max":"1.5","dec":"0"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(tt.contentType, []byte(tt.content))
			assert.Error(t, err)
		})
	}
}
