package domain

import (
	"testing"
)

// FuzzParseUserID checks parsing never panics and accepted ids round-trip.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("80351110224678912")
	f.Add("0")
	f.Add("not-a-snowflake")
	f.Add("'; DROP TABLE fields;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("42\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseUserID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseUserID(id.String())
		if err != nil {
			t.Errorf("valid ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed ID value")
		}
	})
}
