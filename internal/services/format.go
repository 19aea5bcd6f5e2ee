package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Trend direction labels.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// round rounds half away from zero to places decimals.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// money rounds to cents.
func money(v float64) float64 {
	return round(v, 2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

// ParseDate accepts YYYY-MM-DD or YYYY-MM and returns the first of the month
// for the latter. A timestamp suffix is ignored.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > 10 {
		value = value[:10]
	}
	if t, err := time.Parse(models.DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01", value); err == nil {
		return t, nil
	}
	return time.Time{}, utils.NewValidationErrorf("%s %q is not a date, expected YYYY-MM-DD", field, value)
}

// isKeyword reports whether value is one of the relative-date keywords.
func isKeyword(value string, keywords ...string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, k := range keywords {
		if v == k {
			return true
		}
	}
	return false
}

// directionOf classifies a signed change against a symmetric threshold.
func directionOf(change, threshold float64) string {
	switch {
	case change > threshold:
		return TrendIncreasing
	case change < -threshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
