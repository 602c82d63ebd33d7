// README: Parsing and formatting of the human readable distance/duration text stored on rides.
package maps

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoText      = errors.New("no text to parse")
	ErrUnparseable = errors.New("unparseable text")
)

var (
	distanceRe = regexp.MustCompile(`^([0-9][0-9,]*(?:\.[0-9]+)?|\.[0-9]+)\s*(km|m|mi|ft)?$`)
	durationRe = regexp.MustCompile(`([0-9]+)\s*(days?|hours?|hrs?|mins?|minutes?)\b`)
)

// ParseDistance converts text such as "1.5 km" or "500 m" into kilometres.
// A bare number is read as kilometres.
func ParseDistance(text string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, ErrNoText
	}
	m := distanceRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: distance %q", ErrUnparseable, text)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: distance %q", ErrUnparseable, text)
	}
	switch m[2] {
	case "m":
		v /= 1000
	case "mi":
		v *= 1.609344
	case "ft":
		v *= 0.0003048
	}
	return v, nil
}

// DistanceKm is the lossy form of ParseDistance: anything it cannot read is 0.
func DistanceKm(text string) float64 {
	v, err := ParseDistance(text)
	if err != nil {
		return 0
	}
	return v
}

// ParseDurationMinutes converts text such as "1 hour 5 mins" into minutes.
func ParseDurationMinutes(text string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, ErrNoText
	}
	parts := durationRe.FindAllStringSubmatch(s, -1)
	if len(parts) == 0 {
		return 0, fmt.Errorf("%w: duration %q", ErrUnparseable, text)
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p[1])
		if err != nil {
			return 0, fmt.Errorf("%w: duration %q", ErrUnparseable, text)
		}
		switch {
		case strings.HasPrefix(p[2], "day"):
			total += n * 24 * 60
		case strings.HasPrefix(p[2], "h"):
			total += n * 60
		default:
			total += n
		}
	}
	return total, nil
}

// FormatDistance renders metres the way the Directions API does.
func FormatDistance(meters int) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	return strconv.FormatFloat(math.Round(float64(meters)/100)/10, 'f', 1, 64) + " km"
}

// FormatDuration renders d as "1 hour 5 mins". Anything under a minute is "1 min".
func FormatDuration(d time.Duration) string {
	mins := int(math.Round(d.Minutes()))
	if mins < 1 {
		mins = 1
	}
	var parts []string
	if h := mins / 60; h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m := mins % 60; m > 0 {
		parts = append(parts, plural(m, "min"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
