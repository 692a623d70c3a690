package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fuzzyga/internal/fuzzy"
)

// Parse reads a whitespace separated table. The first non-blank line is the
// header; its last column names the output and the others name the inputs.
// Blank lines are skipped.
func Parse(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	var rows [][]string
	var lines []int
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		rows = append(rows, strings.Fields(text))
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return build(rows, lines)
}

// ParseCSV reads a comma separated table with the same header rule as Parse.
func ParseCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	var lines []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset csv: %w", err)
		}
		if blankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		fields := make([]string, len(record))
		for i, f := range record {
			fields[i] = strings.TrimSpace(f)
		}
		rows = append(rows, fields)
		lines = append(lines, line)
	}
	return build(rows, lines)
}

// LoadFile parses path as CSV when it has a .csv extension and as a
// whitespace table otherwise.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var d *Dataset
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		d, err = ParseCSV(f)
	} else {
		d, err = Parse(f)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return d, nil
}

func build(rows [][]string, lines []int) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: got %d columns", ErrTooFewColumns, len(header))
	}
	variables, err := fuzzy.Variables(header[:len(header)-1]...)
	if err != nil {
		return nil, fmt.Errorf("dataset header: %w", err)
	}
	output := header[len(header)-1]

	points := make([]DataPoint, 0, len(rows)-1)
	for r, row := range rows[1:] {
		line := lines[r+1]
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d columns, header has %d", ErrColumnCount, line, len(row), len(header))
		}
		values := make([]float64, len(row))
		for i, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[i], err)
			}
			values[i] = v
		}
		inputs := make(fuzzy.Inputs, len(variables))
		for i, v := range variables {
			inputs[v] = values[i]
		}
		points = append(points, DataPoint{Inputs: inputs, Expected: values[len(values)-1]})
	}
	return &Dataset{variables: variables, output: output, points: points}, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Write serializes d as a whitespace table readable by Parse.
func Write(w io.Writer, d *Dataset) error {
	bw := bufio.NewWriter(w)
	header := make([]string, 0, len(d.variables)+1)
	for _, v := range d.variables {
		header = append(header, v.Name())
	}
	output := d.output
	if output == "" {
		output = "out"
	}
	header = append(header, output)
	if _, err := fmt.Fprintln(bw, strings.Join(header, " ")); err != nil {
		return err
	}

	fields := make([]string, len(header))
	for _, p := range d.points {
		for i, v := range d.variables {
			fields[i] = strconv.FormatFloat(p.Inputs.Value(v), 'g', -1, 64)
		}
		fields[len(fields)-1] = strconv.FormatFloat(p.Expected, 'g', -1, 64)
		if _, err := fmt.Fprintln(bw, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes d to path with Write.
func WriteFile(path string, d *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, d); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
