package aster

import "strings"

// ExchangeSymbol turns user input like "btc-usd" or "BTC/USDT" into the
// exchange form "BTCUSDT".
func ExchangeSymbol(sym string) string {
	s := strings.ToUpper(strings.TrimSpace(sym))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	if strings.HasSuffix(s, "USD") && !strings.HasSuffix(s, "USDT") {
		s += "T"
	}
	return s
}

// NormSymbol converts "BTCUSDT" -> "BTC-USD" for display. Leaves dashed forms alone.
func NormSymbol(sym string) string {
	if strings.Contains(sym, "-") {
		return sym
	}
	if strings.HasSuffix(sym, "USDT") {
		return strings.TrimSuffix(sym, "USDT") + "-USD"
	}
	if strings.HasSuffix(sym, "USD") {
		return strings.TrimSuffix(sym, "USD") + "-USD"
	}
	return sym
}
