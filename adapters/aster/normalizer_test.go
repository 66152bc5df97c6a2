package aster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormSymbol(t *testing.T) {
	assert.Equal(t, "BTC-USD", NormSymbol("BTCUSDT"))
	assert.Equal(t, "ASTER-USD", NormSymbol("ASTER-USD"))
	assert.Equal(t, "ETH-USD", NormSymbol("ETHUSD"))
}

func TestExchangeSymbol(t *testing.T) {
	for in, want := range map[string]string{
		"BTCUSDT":   "BTCUSDT",
		"btc-usd":   "BTCUSDT",
		"ETH/USDT":  "ETHUSDT",
		" sol_usd ": "SOLUSDT",
	} {
		assert.Equal(t, want, ExchangeSymbol(in), in)
	}
	assert.Equal(t, "BTC-USD", NormSymbol(ExchangeSymbol("btc-usd")))
}
