// Package validate applies the structural acceptance rules to canonical
// records. A record is accepted only when both its StationID and DateTime
// pass the strict format guards; anything else is rejected in full and
// archived in the file's audit payload. Rejection is never fatal to a file.
package validate

import (
	"regexp"
	"strings"

	"github.com/Rohit-Borah/NHP-API/internal/records"
)

// stationIDPattern guards against garbage and partial reads: a leading '&'
// followed by exactly 8 hex characters, case-insensitive.
var stationIDPattern = regexp.MustCompile(`^&[0-9A-Fa-f]{8}$`)

// dateTimePatterns are the only accepted timestamp shapes: day-first with a
// 2-digit year, day-first with a 4-digit year, or ISO-ordered date, each with
// '-' or '/' separators and an HH:MM[:SS] time. No timezone suffixes.
var dateTimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{2}[-/]\d{2}[-/]\d{2} \d{2}:\d{2}(:\d{2})?$`),
	regexp.MustCompile(`^\d{2}[-/]\d{2}[-/]\d{4} \d{2}:\d{2}(:\d{2})?$`),
	regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2} \d{2}:\d{2}(:\d{2})?$`),
}

// Rejected is one record that failed validation, with the reason kept for
// logging. The audit payload archives the record's recovered fields.
type Rejected struct {
	Record records.Record
	Reason string
}

// ValidStationID reports whether v (after trimming) matches the station
// identifier format.
func ValidStationID(v *string) bool {
	if v == nil {
		return false
	}
	return stationIDPattern.MatchString(strings.TrimSpace(*v))
}

// ValidDateTime reports whether v (after trimming) matches one of the
// accepted timestamp formats.
func ValidDateTime(v *string) bool {
	if v == nil {
		return false
	}
	s := strings.TrimSpace(*v)
	for _, p := range dateTimePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Partition splits records into accepted and rejected sets. Both rules are
// mandatory; a record failing either is rejected whole.
func Partition(in []records.Record) (accepted []records.Record, rejected []Rejected) {
	for _, rec := range in {
		switch {
		case !ValidStationID(rec.StationID):
			rejected = append(rejected, Rejected{Record: rec, Reason: "invalid StationID"})
		case !ValidDateTime(rec.DateTime):
			rejected = append(rejected, Rejected{Record: rec, Reason: "invalid DateTime"})
		default:
			accepted = append(accepted, rec)
		}
	}
	return accepted, rejected
}
