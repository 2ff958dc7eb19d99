package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Card networks.
const (
	NetworkVisa       = "visa"
	NetworkMastercard = "mastercard"
	NetworkAmex       = "amex"
	NetworkRupay      = "rupay"
	NetworkUnknown    = "unknown"
)

var (
	vpaPattern    = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9]+$`)
	digitsPattern = regexp.MustCompile(`^\d{13,19}$`)
)

func cleanCardNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

// IsValidVPA reports whether vpa has the localpart@handle shape.
func IsValidVPA(vpa string) bool {
	return vpaPattern.MatchString(vpa)
}

// IsValidCardNumber runs the Luhn check on a 13-19 digit number.
// Spaces and dashes are ignored.
func IsValidCardNumber(number string) bool {
	clean := cleanCardNumber(number)
	if !digitsPattern.MatchString(clean) {
		return false
	}

	sum := 0
	double := false
	for i := len(clean) - 1; i >= 0; i-- {
		d := int(clean[i] - '0')
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

func DetectCardNetwork(number string) string {
	clean := cleanCardNumber(number)
	if strings.HasPrefix(clean, "4") {
		return NetworkVisa
	}
	if len(clean) < 2 {
		return NetworkUnknown
	}
	firstTwo, err := strconv.Atoi(clean[:2])
	if err != nil {
		return NetworkUnknown
	}
	switch {
	case firstTwo >= 51 && firstTwo <= 55:
		return NetworkMastercard
	case firstTwo == 34 || firstTwo == 37:
		return NetworkAmex
	case firstTwo == 60 || firstTwo == 65 || (firstTwo >= 81 && firstTwo <= 89):
		return NetworkRupay
	}
	return NetworkUnknown
}

// CardLast4 returns the last four digits of the cleaned number.
func CardLast4(number string) string {
	clean := cleanCardNumber(number)
	if len(clean) <= 4 {
		return clean
	}
	return clean[len(clean)-4:]
}

// IsValidExpiry reports whether month/year is not before the month of now.
// Two-digit years are read as 20YY.
func IsValidExpiry(month, year string, now time.Time) bool {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return false
	}
	year = strings.TrimSpace(year)
	y, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	if len(year) == 2 {
		y += 2000
	}

	expiry := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return !expiry.Before(current)
}
