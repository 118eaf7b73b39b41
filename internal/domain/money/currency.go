package money

import "strings"

// DefaultMinorUnits applies to every currency not listed in minorUnits.
const DefaultMinorUnits = 2

// ISO 4217 exponents that differ from DefaultMinorUnits.
var minorUnits = map[string]int32{
	"BIF": 0,
	"CLP": 0,
	"DJF": 0,
	"GNF": 0,
	"ISK": 0,
	"JPY": 0,
	"KMF": 0,
	"KRW": 0,
	"PYG": 0,
	"RWF": 0,
	"UGX": 0,
	"UYI": 0,
	"VND": 0,
	"VUV": 0,
	"XAF": 0,
	"XOF": 0,
	"XPF": 0,

	"BHD": 3,
	"IQD": 3,
	"JOD": 3,
	"KWD": 3,
	"LYD": 3,
	"OMR": 3,
	"TND": 3,

	"CLF": 4,
	"UYW": 4,

	"BTC": 8,
}

var crypto = map[string]struct{}{
	"BTC":  {},
	"ETH":  {},
	"XRP":  {},
	"SOL":  {},
	"DOGE": {},
}

// Normalize upper-cases and trims a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// MinorUnits returns the number of decimal places of the currency's minor unit.
func MinorUnits(code string) int32 {
	if d, ok := minorUnits[code]; ok {
		return d
	}
	return DefaultMinorUnits
}

func IsCrypto(code string) bool {
	_, ok := crypto[code]
	return ok
}
