// Package schema reconciles the raw rows of one telemetry file onto the
// canonical 15-column record shape.
//
// Field stations ship the same feed under wildly inconsistent headers
// ("StnID", "station id", "Batt", "baro", ...), sometimes with no header at
// all, sometimes with the timestamp split across separate Date and Time
// columns. The reconciler detects the header, maps every spelling through an
// explicit synonym table, merges Date+Time, creates missing canonical columns
// as absent, and drops everything it does not recognize.
package schema

import (
	"strings"

	"github.com/Rohit-Borah/NHP-API/internal/records"
)

// Intermediate column names produced by normalization and consumed by the
// Date+Time merge. They are not part of the canonical set.
const (
	colDate = "Date"
	colTime = "Time"
)

// synonyms maps a normalized header token (lower-cased, stripped of spaces,
// ampersands, and underscores) to its canonical column name. Unrecognized
// tokens pass through and are dropped later since they are not canonical.
var synonyms = map[string]string{
	"stationid":      "StationID",
	"station":        "StationID",
	"stid":           "StationID",
	"stnid":          "StationID",
	"dateandtime":    "DateTime",
	"datetime":       "DateTime",
	"datetimestamp":  "DateTime",
	"date":           colDate,
	"time":           colTime,
	"mobilenumber":   "MobileNumber",
	"mobile":         "MobileNumber",
	"mob":            "MobileNumber",
	"battery":        "Battery",
	"batt":           "Battery",
	"batteryvolt":    "Battery",
	"batteryvoltage": "Battery",
	"waterlevel":     "WaterLevel",
	"wl":             "WaterLevel",
	"hourlyrain":     "HourlyRain",
	"hourrain":       "HourlyRain",
	"dailyrain":      "DailyRain",
	"dailyrainfall":  "DailyRain",
	"rain24":         "DailyRain",
	"at":             "AT",
	"airtemp":        "AT",
	"temp":           "AT",
	"snowdepth":      "SnowDepth",
	"snow":           "SnowDepth",
	"evaporation":    "Evaporation",
	"evap":           "Evaporation",
	"ws":             "WS",
	"wd":             "WD",
	"atpressure":     "At.pressure",
	"pressure":       "At.pressure",
	"baro":           "At.pressure",
	"rh":             "RH",
	"humidity":       "RH",
	"sunradiation":   "SunRadiation",
	"solar":          "SunRadiation",
	"radiation":      "SunRadiation",
}

// normalizeToken folds a raw header cell into synonym-table form.
func normalizeToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "&", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	return strings.ToLower(s)
}

// CanonicalName resolves one raw header cell. The second result is false when
// the token is not a known synonym; the trimmed original is returned so the
// caller can keep it as an ad-hoc name (later dropped).
func CanonicalName(raw string) (string, bool) {
	if name, ok := synonyms[normalizeToken(raw)]; ok {
		return name, true
	}
	return strings.TrimSpace(raw), false
}

// HasHeader reports whether row looks like a header: any lower-cased token
// containing "station" or "date" marks it as one.
func HasHeader(row []string) bool {
	for _, cell := range row {
		s := strings.ToLower(cell)
		if strings.Contains(s, "station") || strings.Contains(s, "date") {
			return true
		}
	}
	return false
}

// NormalizeHeader maps every raw header cell through the synonym table.
func NormalizeHeader(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i], _ = CanonicalName(cell)
	}
	return out
}

// Reconcile assembles raw rows into canonical records.
//
// If the first row is a header it is normalized and consumed; otherwise
// canonical names are assigned positionally. Separate Date and Time columns
// merge into DateTime with a single space. Canonical columns missing from the
// file come out nil; non-canonical columns are dropped. Rows where every
// canonical field is absent are pruned.
func Reconcile(rows [][]string) []records.Record {
	if len(rows) == 0 {
		return nil
	}

	var names []string
	data := rows
	if HasHeader(rows[0]) {
		names = NormalizeHeader(rows[0])
		data = rows[1:]
	} else {
		n := len(rows[0])
		if n > records.NumColumns {
			n = records.NumColumns
		}
		names = records.Columns[:n]
	}

	// Source index per name; first occurrence wins on duplicate headers.
	srcIdx := make(map[string]int, len(names))
	for i, name := range names {
		if _, dup := srcIdx[name]; !dup {
			srcIdx[name] = i
		}
	}
	dateIdx, hasDate := srcIdx[colDate]
	timeIdx, hasTime := srcIdx[colTime]
	mergeDateTime := hasDate && hasTime

	canonIdx := make([]int, records.NumColumns) // canonical position -> source index, -1 when absent
	for i, col := range records.Columns {
		if si, ok := srcIdx[col]; ok {
			canonIdx[i] = si
		} else {
			canonIdx[i] = -1
		}
	}

	out := make([]records.Record, 0, len(data))
	for _, row := range data {
		var rec records.Record
		for i := range records.Columns {
			si := canonIdx[i]
			if si < 0 || si >= len(row) {
				continue
			}
			rec.Set(i, cell(row[si]))
		}
		if mergeDateTime {
			rec.DateTime = mergedDateTime(row, dateIdx, timeIdx)
		}
		if rec.IsEmpty() {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// cell converts a raw token to an optional value: empty becomes absent,
// everything else passes through verbatim.
func cell(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mergedDateTime joins the Date and Time cells of row with one space. Each
// part is trimmed; if both are empty the field stays absent.
func mergedDateTime(row []string, dateIdx, timeIdx int) *string {
	var d, t string
	if dateIdx < len(row) {
		d = strings.TrimSpace(row[dateIdx])
	}
	if timeIdx < len(row) {
		t = strings.TrimSpace(row[timeIdx])
	}
	if d == "" && t == "" {
		return nil
	}
	v := d + " " + t
	return &v
}
