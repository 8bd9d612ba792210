package timeutil

import (
	"time"
)

// GST is Gulf Standard Time (UTC+4), the shop's local zone
var GST *time.Location

func init() {
	var err error
	GST, err = time.LoadLocation("Asia/Dubai")
	if err != nil {
		// Fallback: create fixed zone if Asia/Dubai not available
		GST = time.FixedZone("GST", 4*60*60)
	}
}

// Now returns the current time in GST
func Now() time.Time {
	return time.Now().In(GST)
}

// ToGST converts any time to GST
func ToGST(t time.Time) time.Time {
	return t.In(GST)
}

// FormatGST formats a time in GST using the given layout
func FormatGST(t time.Time, layout string) string {
	return t.In(GST).Format(layout)
}

// Common layouts for receipts and listings
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
