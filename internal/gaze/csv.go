package gaze

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/gazekit/platform/internal/errors"
)

// CSVHeader is the canonical header row for gaze trace exports.
var CSVHeader = []string{"elapsedTime(seconds)", "x", "y"}

// ParseCSV reads a gaze trace from CSV. A header row is expected but a
// headerless file whose first row parses as numbers is also accepted.
func ParseCSV(r io.Reader) (Trace, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	var trace Trace
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.InvalidTrace, "malformed CSV at line %d", line+1)
		}
		line++

		if len(record) < 3 {
			return nil, errors.Newf(errors.InvalidTrace, "line %d: expected 3 columns, got %d", line, len(record))
		}

		// Skip a header row in first position.
		if line == 1 && !isNumeric(record[0]) {
			continue
		}

		sample, err := parseRecord(record, line)
		if err != nil {
			return nil, err
		}
		trace = append(trace, sample)
	}

	if len(trace) == 0 {
		return nil, errors.New(errors.InvalidTrace, "no gaze samples in input")
	}
	return trace, nil
}

func parseRecord(record []string, line int) (Sample, error) {
	elapsed, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
	if err != nil {
		return Sample{}, errors.Wrapf(err, errors.InvalidTrace, "line %d: bad elapsed time %q", line, record[0])
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return Sample{}, errors.Wrapf(err, errors.InvalidTrace, "line %d: bad x %q", line, record[1])
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return Sample{}, errors.Wrapf(err, errors.InvalidTrace, "line %d: bad y %q", line, record[2])
	}
	return Sample{Elapsed: elapsed, X: x, Y: y}, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// WriteCSV writes a trace in the canonical CSV format, header included.
func WriteCSV(w io.Writer, trace Trace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.Wrap(err, errors.Internal, "writing CSV header")
	}
	for _, s := range trace {
		record := []string{
			strconv.FormatFloat(s.Elapsed, 'f', 3, 64),
			strconv.FormatFloat(s.X, 'f', 2, 64),
			strconv.FormatFloat(s.Y, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.Internal, "writing CSV record")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.Internal, "flushing CSV")
	}
	return nil
}
