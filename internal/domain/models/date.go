package models

import (
	"encoding/json"
	"time"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
)

// DateLayout is the calendar date form accepted next to RFC 3339.
const DateLayout = "2006-01-02"

const errDateFormat = "Dates must use the YYYY-MM-DD format"

// Date is a request timestamp that also accepts a plain calendar date, read
// as midnight UTC.
type Date struct {
	time.Time
}

// ParseDate reads raw as RFC 3339 or YYYY-MM-DD. dateOnly reports that the
// calendar form matched.
func ParseDate(raw string) (t time.Time, dateOnly bool, err error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err = time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, false, apperr.Validation(errDateFormat)
	}
	return t, true, nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperr.Validation(errDateFormat)
	}
	t, _, err := ParseDate(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns the wrapped time, or nil for a nil Date.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}
