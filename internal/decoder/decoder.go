// Package decoder turns a raw telemetry file into an ordered sequence of
// string rows, tolerating the byte-level corruption common in field-logger
// output. Embedded NUL bytes are stripped, ill-formed UTF-8 sequences are
// dropped, and lines that cannot be tokenized into the file's row shape are
// diverted into a bad-lines set instead of aborting the read.
//
// The decoder assigns no column names or types; header detection and schema
// reconciliation happen downstream.
package decoder

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const utf8BOM = "\uFEFF"

// maxLineBytes bounds a single physical line. Logger corruption occasionally
// glues records together; 1 MiB is far beyond any legitimate row.
const maxLineBytes = 1 << 20

// BadLine is a physical line that could not be tokenized into the file's row
// shape. The raw text is preserved for the audit payload.
type BadLine struct {
	Line int // 1-based physical line number
	Raw  string
	Err  error
}

// Result holds the decoded rows and the diverted bad lines for one file.
type Result struct {
	Rows [][]string
	Bad  []BadLine
}

// scrub drops ill-formed UTF-8 from the stream: invalid sequences are first
// replaced with U+FFFD and then removed entirely, matching a permissive
// decode that ignores undecodable bytes.
var scrub = transform.Chain(
	runes.ReplaceIllFormed(),
	runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8.RuneError })),
)

// DecodeFile reads and decodes the file at path. Only a total read failure is
// returned as an error; tokenization irregularities land in Result.Bad.
func DecodeFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	res, err := Decode(f)
	if err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return res, nil
}

// Decode consumes r to EOF and tokenizes it line by line.
//
// Tokenization is per physical line so that the raw text of a failed line can
// be quarantined verbatim; multi-line quoted fields are not a shape this feed
// produces. The expected token count is taken from the first line that
// tokenizes cleanly; any later line with a different count is diverted.
func Decode(r io.Reader) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read: %w", err)
	}

	// NUL bytes are a common artifact of interrupted logger writes and break
	// downstream tokenization; remove them before text decoding.
	raw = bytes.ReplaceAll(raw, []byte{0}, nil)

	var res Result
	sc := bufio.NewScanner(transform.NewReader(bytes.NewReader(raw), scrub))
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	expected := -1
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if line == 1 {
			text = strings.TrimPrefix(text, utf8BOM)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		row, err := tokenize(text)
		if err != nil {
			res.Bad = append(res.Bad, BadLine{Line: line, Raw: text, Err: err})
			continue
		}
		if expected < 0 {
			expected = len(row)
		} else if len(row) != expected {
			res.Bad = append(res.Bad, BadLine{
				Line: line,
				Raw:  text,
				Err:  fmt.Errorf("field count mismatch: expected %d, got %d", expected, len(row)),
			})
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return Result{}, fmt.Errorf("scan: %w", err)
	}
	return res, nil
}

// tokenize splits one line on commas, honoring quoted fields.
func tokenize(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	row, err := cr.Read()
	if err != nil {
		return nil, err
	}
	return row, nil
}
