package entitlement

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fkhayef/rentguard/internal/domain"
)

const day = 24 * time.Hour

// Calendar-ish units used by admins: a month is 30 days, a year 365.
var unitSpans = map[string]time.Duration{
	"d": day,
	"w": 7 * day,
	"m": 30 * day,
	"y": 365 * day,
}

var rentalPattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// ParseDuration reads a rental span such as "1d", "2w", "3m" or "1y".
// Go duration syntax ("36h", "90m30s") is accepted too; note that a bare
// "m" suffix means months, not minutes. Zero and negative spans are
// rejected with domain.ErrInvalidDuration.
func ParseDuration(input string) (time.Duration, error) {
	value := strings.ToLower(strings.TrimSpace(input))
	if value == "" {
		return 0, fmt.Errorf("%w: empty", domain.ErrInvalidDuration)
	}

	if match := rentalPattern.FindStringSubmatch(value); match != nil {
		amount, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, input)
		}
		span := unitSpans[match[2]]
		if amount > math.MaxInt64/int64(span) {
			return 0, fmt.Errorf("%w: %q is too long", domain.ErrInvalidDuration, input)
		}
		d := time.Duration(amount) * span
		if err := domain.ValidateDuration(d); err != nil {
			return 0, err
		}
		return d, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, input)
	}
	if err := domain.ValidateDuration(d); err != nil {
		return 0, err
	}
	return d, nil
}
