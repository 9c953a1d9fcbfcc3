package sqlite

import "time"

// dateLayout matches the ISO-extended YYYY-MM-DD encoding §6.1 mandates
// for the JSON wire format; the schema (§6.4) stores dates as text using
// the same encoding so a raw table dump and the API agree.
const dateLayout = "2006-01-02"

func marshalDate(t time.Time) string { return t.Format(dateLayout) }

func unmarshalDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
