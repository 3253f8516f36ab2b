// Package codec converts item records between their domain form, where
// temporal fields hold time.Time values, and their stored form, where the
// same fields hold ISO-8601 strings. Every other field passes through
// untouched; the codec validates nothing else.
package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pantrywisely/pantry/pkg/types"
)

// ISOLayout matches the browser's Date.prototype.toISOString output.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in UTC using ISOLayout. Years outside 0..9999 use
// the expanded form with a sign and six year digits, as toISOString does:
// "+010000-01-01T00:00:00.000Z".
func FormatTime(t time.Time) string {
	u := t.UTC()
	y := u.Year()
	if y >= 0 && y <= 9999 {
		return u.Format(ISOLayout)
	}
	sign := '+'
	if y < 0 {
		sign, y = '-', -y
	}
	return fmt.Sprintf("%c%06d", sign, y) + u.Format("-01-02T15:04:05.000Z")
}

// ParseTime accepts RFC 3339 timestamps with or without fractional seconds,
// expanded-year timestamps as written by FormatTime, and bare YYYY-MM-DD
// dates, which are read as UTC midnight.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, ok := parseExpandedYear(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parsing time %q: not an ISO-8601 timestamp", s)
}

// parseExpandedYear parses "±YYYYYY-MM-DDTHH:MM:SS[.fff](Z|±hh:mm)".
func parseExpandedYear(s string) (time.Time, bool) {
	if len(s) < 8 || (s[0] != '+' && s[0] != '-') || s[7] != '-' {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(s[1:7])
	if err != nil || year < 0 {
		return time.Time{}, false
	}
	if s[0] == '-' {
		year = -year
	}
	// 2000 is a leap year, so Feb 29 parses; time.Date below rejects it for
	// other years by normalizing to Mar 1.
	rest, err := time.Parse(time.RFC3339Nano, "2000"+s[7:])
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, rest.Month(), rest.Day(), rest.Hour(), rest.Minute(), rest.Second(), rest.Nanosecond(), rest.Location())
	if t.Month() != rest.Month() || t.Day() != rest.Day() {
		return time.Time{}, false
	}
	return t, true
}

// Serialize returns a shallow copy of rec with each temporal time.Time or
// *time.Time value replaced by its ISO-8601 string. A nil *time.Time becomes
// nil. Strings are left alone, so serializing twice is a no-op.
func Serialize(rec types.Record) types.Record {
	out := rec.Clone()
	for _, field := range types.TemporalFields {
		v, ok := out[field]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			out[field] = FormatTime(t)
		case *time.Time:
			if t == nil {
				out[field] = nil
			} else {
				out[field] = FormatTime(*t)
			}
		}
	}
	return out
}

// Deserialize returns a shallow copy of rec with each temporal string value
// parsed into a time.Time. Missing fields, non-string values and strings that
// do not parse are left unchanged, so deserializing twice is a no-op.
func Deserialize(rec types.Record) types.Record {
	out := rec.Clone()
	for _, field := range types.TemporalFields {
		s, ok := out[field].(string)
		if !ok {
			continue
		}
		if t, err := ParseTime(s); err == nil {
			out[field] = t
		}
	}
	return out
}

// Decode deserializes rec and fills dst. A *types.Record receives the
// deserialized record itself, with time.Time values in the temporal fields.
// Any other dst is filled through encoding/json, so it must be a pointer to
// a struct with json tags matching the record's field names; only typed
// time fields there receive dates.
func Decode(rec types.Record, dst any) error {
	if r, ok := dst.(*types.Record); ok {
		*r = Deserialize(rec)
		return nil
	}
	data, err := json.Marshal(Deserialize(rec))
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return nil
}

// Encode returns the stored form of item.
func Encode(item types.Item) types.SerializedItem {
	return Serialize(item.Record())
}

// EncodeReplace returns the stored form of item with unset optional fields
// as nil, for writes that replace a stored item rather than merge into it.
func EncodeReplace(item types.Item) types.SerializedItem {
	return Serialize(item.ReplaceRecord())
}
