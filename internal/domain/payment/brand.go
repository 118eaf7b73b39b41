package payment

import (
	"strconv"
	"strings"
)

type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandAmex       Brand = "amex"
	BrandUnknown    Brand = ""
)

func ParseBrand(s string) (Brand, bool) {
	switch b := Brand(strings.ToLower(strings.TrimSpace(s))); b {
	case BrandVisa, BrandMastercard, BrandAmex:
		return b, true
	}
	return BrandUnknown, false
}

// DetectBrand infers the card network from the number prefix and length.
func DetectBrand(number string) Brand {
	n := strings.ReplaceAll(number, " ", "")
	if !digitsOnly(n) {
		return BrandUnknown
	}

	switch {
	case strings.HasPrefix(n, "4") && (len(n) == 13 || len(n) == 16 || len(n) == 19):
		return BrandVisa
	case (strings.HasPrefix(n, "34") || strings.HasPrefix(n, "37")) && len(n) == 15:
		return BrandAmex
	case len(n) == 16 && isMastercardPrefix(n):
		return BrandMastercard
	}
	return BrandUnknown
}

func isMastercardPrefix(n string) bool {
	two, _ := strconv.Atoi(n[:2])
	if two >= 51 && two <= 55 {
		return true
	}
	four, _ := strconv.Atoi(n[:4])
	return four >= 2221 && four <= 2720
}

// LuhnValid runs the mod-10 checksum over the card number.
func LuhnValid(number string) bool {
	n := strings.ReplaceAll(number, " ", "")
	if len(n) < 12 || !digitsOnly(n) {
		return false
	}

	sum := 0
	double := false
	for i := len(n) - 1; i >= 0; i-- {
		d := int(n[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
