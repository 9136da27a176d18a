package htmlreport

import (
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

const day = 24 * time.Hour

// FormatDuration renders an elapsed time in short form: "850ms", "2s",
// "3m", "1h", "2d". Values are rounded to the largest whole unit that fits.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d >= day:
		return roundUnit(d, day) + "d"
	case d >= time.Hour:
		return roundUnit(d, time.Hour) + "h"
	case d >= time.Minute:
		return roundUnit(d, time.Minute) + "m"
	case d >= time.Second:
		return roundUnit(d, time.Second) + "s"
	default:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
}

func roundUnit(d, unit time.Duration) string {
	return strconv.FormatInt(int64(math.Round(float64(d)/float64(unit))), 10)
}

// Timestamp layouts by convention.
const (
	layoutUS       = "1/2/2006, 3:04:05 PM"
	layoutDayFirst = "02/01/2006, 15:04:05"
	layoutISO      = "2006-01-02 15:04:05"
)

// FormatTimestamp renders t the way readers in the given locale expect.
// An undetermined locale falls back to an ISO-like layout.
func FormatTimestamp(t time.Time, locale language.Tag) string {
	return t.Format(timestampLayout(locale))
}

func timestampLayout(locale language.Tag) string {
	if locale == language.Und {
		return layoutISO
	}
	region, confidence := locale.Region()
	if confidence == language.No {
		return layoutISO
	}
	switch region.String() {
	case "US", "PH":
		return layoutUS
	default:
		return layoutDayFirst
	}
}
