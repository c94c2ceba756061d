// Package records defines the canonical telemetry record shape shared by the
// reconciler, validator, fingerprint, and storage layers.
//
// A record is one observation from one station at one timestamp. All values
// are carried as optional text: the ingest never coerces numerics, and an
// absent field is nil (never the string "null"). Fixing the column set at the
// type level keeps the storage contract stable for downstream readers.
package records

// Canonical column names in storage order. The data table has one TEXT column
// per entry plus the fingerprint key.
var Columns = []string{
	"StationID",
	"DateTime",
	"MobileNumber",
	"Battery",
	"WaterLevel",
	"HourlyRain",
	"DailyRain",
	"AT",
	"SnowDepth",
	"Evaporation",
	"WS",
	"WD",
	"At.pressure",
	"RH",
	"SunRadiation",
}

// NumColumns is the width of the canonical record.
const NumColumns = 15

// Record is a single canonical observation. Fields mirror Columns in order;
// nil means the source file carried no value for that column.
type Record struct {
	StationID    *string
	DateTime     *string
	MobileNumber *string
	Battery      *string
	WaterLevel   *string
	HourlyRain   *string
	DailyRain    *string
	AirTemp      *string // column "AT"
	SnowDepth    *string
	Evaporation  *string
	WindSpeed    *string // column "WS"
	WindDir      *string // column "WD"
	Pressure     *string // column "At.pressure"
	Humidity     *string // column "RH"
	SunRadiation *string
}

// fieldPtrs returns addressable references to the fields in canonical column
// order. Index positions match Columns.
func (r *Record) fieldPtrs() [NumColumns]**string {
	return [NumColumns]**string{
		&r.StationID,
		&r.DateTime,
		&r.MobileNumber,
		&r.Battery,
		&r.WaterLevel,
		&r.HourlyRain,
		&r.DailyRain,
		&r.AirTemp,
		&r.SnowDepth,
		&r.Evaporation,
		&r.WindSpeed,
		&r.WindDir,
		&r.Pressure,
		&r.Humidity,
		&r.SunRadiation,
	}
}

// Get returns the value of the i'th canonical column.
func (r *Record) Get(i int) *string {
	return *r.fieldPtrs()[i]
}

// Set assigns the i'th canonical column.
func (r *Record) Set(i int, v *string) {
	*r.fieldPtrs()[i] = v
}

// Values returns the field values in canonical column order.
func (r *Record) Values() []*string {
	ptrs := r.fieldPtrs()
	out := make([]*string, NumColumns)
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// IsEmpty reports whether every canonical field is absent. Such rows are
// structural artifacts (blank lines, separator rows) rather than data.
func (r *Record) IsEmpty() bool {
	for _, p := range r.fieldPtrs() {
		if *p != nil {
			return false
		}
	}
	return true
}

// Map returns a column-name → value mapping with nil for absent fields. Used
// when archiving rejected rows into the audit payload.
func (r *Record) Map() map[string]*string {
	out := make(map[string]*string, NumColumns)
	vals := r.Values()
	for i, name := range Columns {
		out[name] = vals[i]
	}
	return out
}
