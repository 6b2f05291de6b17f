package types

import "strings"

// CURRENCY_CODES_SYMBOLS is a map of 3 digit ISO currency codes to their symbols
var CURRENCY_CODES_SYMBOLS = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"aud": "AU$",
	"cad": "CA$",
	"chf": "CHF",
	"sek": "kr",
	"nzd": "NZ$",
	"hkd": "HK$",
	"sgd": "S$",
	"jpy": "¥",
	"cny": "¥",
	"inr": "₹",
	"brl": "R$",
	"mxn": "MX$",
	"krw": "₩",
	"try": "₺",
	"zar": "R",
	"myr": "RM",
}

// currencyPrecisionOverrides holds the ISO 4217 minor-unit count for
// currencies that do not use two decimal places
var currencyPrecisionOverrides = map[string]int32{
	"bhd": 3,
	"iqd": 3,
	"jod": 3,
	"kwd": 3,
	"lyd": 3,
	"omr": 3,
	"tnd": 3,
	"jpy": 0,
	"krw": 0,
	"vnd": 0,
	"clp": 0,
	"isk": 0,
}

// GetCurrencySymbol returns the symbol for a given currency code
// if the code is not found, it returns the code itself
func GetCurrencySymbol(code string) string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[strings.ToLower(code)]; ok {
		return symbol
	}
	return code
}

// GetCurrencyPrecision returns the number of minor-unit decimal places for a
// given ISO 4217 currency code. All monetary rounding must go through this.
func GetCurrencyPrecision(code string) int32 {
	if precision, ok := currencyPrecisionOverrides[strings.ToLower(code)]; ok {
		return precision
	}
	return 2
}

// IsSameCurrency compares two ISO 4217 codes case-insensitively
func IsSameCurrency(a, b string) bool {
	return strings.EqualFold(a, b)
}
