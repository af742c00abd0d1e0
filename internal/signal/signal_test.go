package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_LabeledFields(t *testing.T) {
	s := Extract("BUY Symbol: AAPL Price: 123.45")
	require.NotNil(t, s)
	assert.Equal(t, Buy, s.Action)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, 123.45, s.Price)
	assert.True(t, s.Actionable())
}

func TestExtract_NoSignalToken(t *testing.T) {
	if s := Extract("Just checking in"); s != nil {
		t.Fatalf("want nil signal, got %+v", s)
	}
}

func TestExtract_MissingPriceIsNotActionable(t *testing.T) {
	s := Extract("SELL TSLA")
	require.NotNil(t, s)
	assert.Equal(t, Sell, s.Action)
	assert.Equal(t, "TSLA", s.Symbol)
	assert.Equal(t, 0.0, s.Price)
	assert.False(t, s.Actionable())
}

func TestExtract_CaseInsensitiveAction(t *testing.T) {
	s := Extract("please buy Symbol: MSFT Price: 99.10")
	require.NotNil(t, s)
	assert.Equal(t, Buy, s.Action)
	assert.Equal(t, "MSFT", s.Symbol)
}

func TestExtract_FirstActionWins(t *testing.T) {
	s := Extract("SELL then BUY Symbol: NVDA Price: 42.00")
	require.NotNil(t, s)
	assert.Equal(t, Sell, s.Action)
}

func TestExtract_ActionTokenNotTakenAsSymbol(t *testing.T) {
	s := Extract("BUY NVDA 42.50")
	require.NotNil(t, s)
	assert.Equal(t, "NVDA", s.Symbol)
	assert.Equal(t, 42.50, s.Price)
}

func TestExtract_NoUppercaseRun(t *testing.T) {
	s := Extract("buy something at 12.50")
	require.NotNil(t, s)
	assert.Equal(t, "", s.Symbol)
	assert.False(t, s.Actionable())
}

func TestExtract_LabeledBeatsBare(t *testing.T) {
	// The stray uppercase word appears first, the label still wins.
	s := Extract("URGENT BUY Symbol: AMD Price: 101.25")
	require.NotNil(t, s)
	assert.Equal(t, "AMD", s.Symbol)
}

func TestActionable(t *testing.T) {
	tests := []struct {
		name string
		sig  *Signal
		want bool
	}{
		{"nil", nil, false},
		{"complete buy", &Signal{Buy, "AAPL", 10.5}, true},
		{"complete sell", &Signal{Sell, "T", 0.01}, true},
		{"zero price", &Signal{Buy, "AAPL", 0}, false},
		{"negative price", &Signal{Sell, "AAPL", -1}, false},
		{"empty symbol", &Signal{Buy, "", 10.5}, false},
		{"lowercase symbol", &Signal{Buy, "aapl", 10.5}, false},
		{"symbol too long", &Signal{Buy, "ABCDEFG", 10.5}, false},
		{"bad action", &Signal{Action("HOLD"), "AAPL", 10.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sig.Actionable())
		})
	}
}
