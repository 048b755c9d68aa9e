package domain

import (
	"regexp"
	"strings"
)

type InstrumentClass string

const (
	ClassAShare    InstrumentClass = "a_share"
	ClassFund      InstrumentClass = "fund"
	ClassHKConnect InstrumentClass = "hk_connect"
	ClassHKStock   InstrumentClass = "hk_stock"
	ClassUSStock   InstrumentClass = "us_stock"
	ClassGold      InstrumentClass = "gold"
	ClassCash      InstrumentClass = "cash"
	ClassBond      InstrumentClass = "bond"
	ClassUnknown   InstrumentClass = "unknown"
)

var (
	reSixDigit  = regexp.MustCompile(`^\d{6}$`)
	reHKStock   = regexp.MustCompile(`^0\d{4}$`)
	reHKConnect = regexp.MustCompile(`^H\d{5}$`)
	reUSStock   = regexp.MustCompile(`^[A-Z]+$`)
)

// A-share code prefixes: Shenzhen main board and SME (000-003), ChiNext
// (300, 301), Shanghai main board (600-605), STAR market (688, 689).
var aSharePrefixes = []string{
	"000", "001", "002", "003",
	"300", "301",
	"600", "601", "603", "605",
	"688", "689",
}

// ETF/LOF code prefixes: Shanghai ETF (510, 513, 588) and LOF (501, 502),
// Shenzhen ETF (159) and LOF (160-166).
var etfLofPrefixes = []string{
	"510", "513", "588", "501", "502",
	"159", "160", "161", "162", "163", "164", "165", "166",
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Classify maps a (symbol, currency, asset hint) triple onto an instrument
// class. It is total: every input lands on a class, with ClassUnknown as the
// terminal bucket. Rules are ordered; the first match wins.
func Classify(symbol, currency, assetHint string) InstrumentClass {
	symbol = NormalizeSymbol(symbol)
	currency = NormalizeCurrency(currency)
	assetHint = strings.ToLower(strings.TrimSpace(assetHint))

	// Explicit exchange prefix wins over everything.
	if strings.HasPrefix(symbol, "SH") || strings.HasPrefix(symbol, "SZ") {
		return ClassAShare
	}

	if currency == "CNY" && reSixDigit.MatchString(symbol) {
		if assetHint == "etf" || assetHint == "fund" {
			return ClassFund
		}
		if hasAnyPrefix(symbol, etfLofPrefixes) {
			return ClassFund
		}
		if hasAnyPrefix(symbol, aSharePrefixes) {
			return ClassAShare
		}
		// Unlisted 6-digit CNY codes are most likely OTC funds.
		return ClassFund
	}

	// Stock Connect codes: H + 5-digit HK code (e.g. H00700).
	if reHKConnect.MatchString(symbol) {
		return ClassHKConnect
	}

	if currency == "HKD" || reHKStock.MatchString(symbol) {
		return ClassHKStock
	}

	if strings.Contains(symbol, "AU") || strings.Contains(symbol, "GOLD") {
		return ClassGold
	}

	if symbol == "CASH" {
		return ClassCash
	}

	if currency == "USD" || reUSStock.MatchString(symbol) {
		return ClassUSStock
	}

	if strings.Contains(symbol, "BOND") {
		return ClassBond
	}

	return ClassUnknown
}

// FundFirstHint reports whether an asset hint should push fund NAV sources to
// the front of the A-share chain. Any explicit non-stock hint qualifies.
func FundFirstHint(assetHint string) bool {
	assetHint = strings.ToLower(strings.TrimSpace(assetHint))
	return assetHint != "" && assetHint != "stock"
}

// HKConnectCode strips the leading H from a Stock Connect symbol,
// e.g. "H00700" -> "00700".
func HKConnectCode(symbol string) string {
	if len(symbol) > 1 && (symbol[0] == 'H' || symbol[0] == 'h') {
		return symbol[1:]
	}
	return symbol
}
