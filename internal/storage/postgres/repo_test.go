package postgres

import (
	"strings"
	"testing"

	"github.com/Rohit-Borah/NHP-API/internal/records"
	"github.com/Rohit-Borah/NHP-API/internal/storage"
)

func TestPgIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"rtdas_ingest", `"rtdas_ingest"`},
		{"At.pressure", `"At.pressure"`},
		{`odd"name`, `"odd""name"`},
	}
	for _, tt := range tests {
		if got := pgIdent(tt.in); got != tt.want {
			t.Errorf("pgIdent(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPgFQN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"rtdas_ingest", `"rtdas_ingest"`},
		{"public.rtdas_ingest", `"public"."rtdas_ingest"`},
	}
	for _, tt := range tests {
		if got := pgFQN(tt.in); got != tt.want {
			t.Errorf("pgFQN(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	sql := buildInsertSQL("rtdas_ingest")
	if !strings.HasPrefix(sql, `INSERT INTO "rtdas_ingest" (`) {
		t.Errorf("unexpected prefix: %s", sql)
	}
	if !strings.HasSuffix(sql, `ON CONFLICT ("uuid") DO NOTHING`) {
		t.Errorf("missing conflict clause: %s", sql)
	}
	for _, col := range records.Columns {
		if !strings.Contains(sql, pgIdent(col)) {
			t.Errorf("column %s missing from insert", col)
		}
	}
	if !strings.Contains(sql, "$16") {
		t.Errorf("want 16 placeholders (15 columns plus fingerprint): %s", sql)
	}
	if strings.Contains(sql, "$17") {
		t.Errorf("too many placeholders: %s", sql)
	}
}

func TestInsertArgs(t *testing.T) {
	t.Parallel()

	v := "&1A2B3C4D"
	row := storage.Row{
		Record: records.Record{StationID: &v},
		UUID:   "00000000-0000-5000-8000-000000000001",
	}
	args := insertArgs(row)
	if len(args) != records.NumColumns+1 {
		t.Fatalf("args = %d, want %d", len(args), records.NumColumns+1)
	}
	if got, ok := args[0].(*string); !ok || *got != v {
		t.Errorf("args[0] = %v, want StationID value", args[0])
	}
	if args[1] != (*string)(nil) {
		t.Errorf("absent field must pass a nil pointer, got %#v", args[1])
	}
	if args[records.NumColumns] != row.UUID {
		t.Errorf("last arg = %v, want fingerprint", args[records.NumColumns])
	}
}

func TestJSONArg(t *testing.T) {
	t.Parallel()

	if got := jsonArg(nil); got != nil {
		t.Errorf("jsonArg(nil) = %v, want nil", got)
	}
	if got := jsonArg([]byte(`[]`)); got != `[]` {
		t.Errorf("jsonArg = %v, want string form", got)
	}
}
