package patients

import (
	"crypto/rand"
	"fmt"
	"time"
)

// idCharset holds the characters used for the random patient ID suffix.
const idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// NewPatientID generates a patient identifier in the form PT-<year>-<XXXX>
// where XXXX is a random alphanumeric suffix, e.g. PT-2026-A7B3.
func NewPatientID() string {
	suffix := make([]byte, 4)
	raw := make([]byte, 4)
	if _, err := rand.Read(raw); err != nil {
		// crypto/rand should never fail; fall back to a time-derived suffix.
		nano := timeNow().UnixNano()
		for i := range suffix {
			suffix[i] = idCharset[int(nano>>(uint(i)*8))&0xff%len(idCharset)]
		}
	} else {
		for i, b := range raw {
			suffix[i] = idCharset[int(b)%len(idCharset)]
		}
	}
	return fmt.Sprintf("PT-%d-%s", timeNow().Year(), suffix)
}

// ValidPatientID reports whether id has the PT-<4 digit year>-<4 char> form.
func ValidPatientID(id string) bool {
	if len(id) != 12 {
		return false
	}
	if id[:3] != "PT-" || id[7] != '-' {
		return false
	}
	for _, c := range id[3:7] {
		if c < '0' || c > '9' {
			return false
		}
	}
	for _, c := range id[8:] {
		if !isIDChar(byte(c)) {
			return false
		}
	}
	return true
}

func isIDChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
