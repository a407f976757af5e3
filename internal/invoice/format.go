package invoice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	crore = 1e7
	lakh  = 1e5
)

// dateLayouts are tried in order when formatting dates
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02-Jan-2006",
	"02-Jan-06",
	"2 Jan 2006",
	"02 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var printer = message.NewPrinter(language.English)

// ParseAmount converts a loosely formatted amount to a number.
// Thousands separators, currency symbols and codes are ignored.
func ParseAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.NewReplacer(",", "", "₹", "", "Rs.", "", "Rs", "", "INR", "", " ", "").Replace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FormatCurrency renders an amount in the given ISO currency.
// INR uses Cr/L abbreviations for large values; unknown codes fall back to
// "<CODE> <value>". Missing or non-numeric amounts render as ₹0.
func FormatCurrency(amount any, code string) string {
	value, ok := ParseAmount(amount)
	if !ok {
		return "₹0"
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "INR"
	}

	if code == "INR" {
		switch {
		case value >= crore:
			return fmt.Sprintf("₹%.1fCr", value/crore)
		case value >= lakh:
			return fmt.Sprintf("₹%.1fL", value/lakh)
		default:
			return "₹" + groupIndian(value)
		}
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %s", code, strconv.FormatFloat(value, 'f', -1, 64))
	}
	sign := ""
	if value < 0 {
		sign, value = "-", -value
	}
	scale, _ := currency.Standard.Rounding(unit)
	return sign + printer.Sprint(currency.Symbol(unit)) + printer.Sprint(number.Decimal(value, number.Scale(scale)))
}

// groupIndian formats value with at most two decimals and en-IN digit grouping
func groupIndian(value float64) string {
	s := strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var groups []string
	if len(intPart) > 3 {
		groups = append(groups, intPart[len(intPart)-3:])
		intPart = intPart[:len(intPart)-3]
		for len(intPart) > 2 {
			groups = append([]string{intPart[len(intPart)-2:]}, groups...)
			intPart = intPart[:len(intPart)-2]
		}
	}
	if intPart != "" {
		groups = append([]string{intPart}, groups...)
	}

	out := sign + strings.Join(groups, ",")
	if hasFrac {
		out += "." + frac
	}
	return out
}

// FormatDate renders a date as "2 Jan 2006"; unparseable input is returned
// unchanged and empty input yields "N/A".
func FormatDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "N/A"
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2 Jan 2006")
		}
	}
	return value
}
