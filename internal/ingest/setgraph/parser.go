// Package setgraph imports Setgraph CSV exports: parse, validate, propose
// exercise mappings, and rebuild workouts from the flat set stream.
package setgraph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Column order of a Setgraph export. The header row is always skipped.
const (
	colExerciseName = iota
	colDate
	colRepetitions
	colWeightLb
	colWeightKg
	colNote
	colLabelName
)

// Export is the scanned content of a CSV file.
type Export struct {
	// Rows holds every row that has both an exercise name and a date.
	Rows []models.SetgraphRow
	// Invalid counts data rows dropped for a missing name or date.
	Invalid int
	// NonPositiveReps counts kept rows whose repetitions value is <= 0.
	NonPositiveReps int
}

// Scan reads a Setgraph CSV export record by record. Quoted fields may span
// lines.
func Scan(r io.Reader) (*Export, error) {
	rr := recordReader{r: bufio.NewReader(r)}

	exp := &Export{}
	header := true
	for {
		line, err := rr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		row := parseRow(splitLine(line))
		if row.ExerciseName == "" || row.Date == "" {
			exp.Invalid++
			continue
		}
		if row.Repetitions <= 0 {
			exp.NonPositiveReps++
		}
		exp.Rows = append(exp.Rows, row)
	}
	return exp, nil
}

// recordReader splits a CSV stream into records on newlines outside double
// quotes. A CR before a record break is dropped.
type recordReader struct {
	r   *bufio.Reader
	buf strings.Builder
}

// next returns the next raw record, or io.EOF once the stream is exhausted.
func (rr *recordReader) next() (string, error) {
	rr.buf.Reset()
	inQuotes := false
	read := false
	for {
		c, err := rr.r.ReadByte()
		if err == io.EOF {
			if !read {
				return "", io.EOF
			}
			return strings.TrimRight(rr.buf.String(), "\r"), nil
		}
		if err != nil {
			return "", err
		}
		read = true
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == '\n' && !inQuotes:
			return strings.TrimRight(rr.buf.String(), "\r"), nil
		}
		rr.buf.WriteByte(c)
	}
}

// Parse returns the usable rows of a Setgraph export. Rows missing a name or
// date are dropped without error.
func Parse(r io.Reader) ([]models.SetgraphRow, error) {
	exp, err := Scan(r)
	if err != nil {
		return nil, err
	}
	return exp.Rows, nil
}

// ValidationResult is the verdict shown to the user before an import.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	RowCount int      `json:"row_count"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validate reports whether the export can be imported. Invalid rows are
// reported as one aggregate error; non-positive repetitions only warn.
func (e *Export) Validate() ValidationResult {
	res := ValidationResult{RowCount: len(e.Rows), Errors: []string{}}
	if e.Invalid > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%d rows are missing an exercise name or date", e.Invalid))
	}
	if len(e.Rows) == 0 {
		res.Errors = append(res.Errors, "no exercise rows found")
	}
	if e.NonPositiveReps > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d rows have zero or negative repetitions", e.NonPositiveReps))
	}
	res.Valid = len(res.Errors) == 0
	return res
}

// splitLine splits one CSV record on commas, treating commas inside double
// quotes as text. A doubled quote inside a quoted field is a literal quote.
func splitLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, strings.TrimSpace(cur.String()))
}

func parseRow(fields []string) models.SetgraphRow {
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	reps, _ := parseNumber(get(colRepetitions))
	return models.SetgraphRow{
		ExerciseName: get(colExerciseName),
		Date:         get(colDate),
		Repetitions:  reps,
		WeightLb:     parseOptional(get(colWeightLb)),
		WeightKg:     parseOptional(get(colWeightKg)),
		Note:         get(colNote),
		LabelName:    get(colLabelName),
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseOptional(s string) *float64 {
	f, ok := parseNumber(s)
	if !ok {
		return nil
	}
	return &f
}

// timestampLayouts are tried in order. Layouts without a zone parse as UTC,
// which keeps the wall-clock date exactly as written.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a Setgraph date column.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// calendarDate is the date portion of t in its own location.
func calendarDate(t time.Time) string {
	return t.Format("2006-01-02")
}
