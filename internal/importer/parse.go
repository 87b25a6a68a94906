package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// DefaultWeight is used for rows without a weight column.
const DefaultWeight = 1.0

// ErrUnsupportedFormat is returned for file extensions the importer cannot read.
var ErrUnsupportedFormat = errors.New("unsupported synonym file format")

// RowError describes a row that could not be turned into an edge.
type RowError struct {
	Sheet  string `json:"sheet,omitempty"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	if e.Sheet != "" {
		return fmt.Sprintf("%s row %d: %s", e.Sheet, e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ParseResult holds the edges read from a file and the rows that were skipped.
type ParseResult struct {
	Edges   []*models.SynonymEdge
	Skipped []RowError
}

// ParseSynonyms reads synonym rows from content based on ext (with leading dot).
// Rows are term, synonym and an optional weight in [0,1]. A first row whose
// weight column is not numeric, or that reads "term", is treated as a header.
func ParseSynonyms(content []byte, ext string) (*ParseResult, error) {
	switch strings.ToLower(ext) {
	case ".xlsx":
		return parseWorkbook(content)
	case ".csv", ".txt":
		return parseDelimited(content, ',')
	case ".tsv":
		return parseDelimited(content, '\t')
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parseWorkbook(content []byte) (*ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	res := &ParseResult{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		collectRows(res, sheet, rows, nil)
	}
	return res, nil
}

func parseDelimited(content []byte, comma rune) (*ParseResult, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = comma
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	var lines []int
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read delimited file: %w", err)
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}
	res := &ParseResult{}
	collectRows(res, "", rows, lines)
	return res, nil
}

// collectRows parses rows into res. lines holds the source line of each row;
// when nil the row index is used.
func collectRows(res *ParseResult, sheet string, rows [][]string, lines []int) {
	first := true
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		edge, reason := parseRow(row)
		header := first
		first = false
		if reason != "" {
			if header || isHeader(row) {
				continue
			}
			line := i + 1
			if lines != nil {
				line = lines[i]
			}
			res.Skipped = append(res.Skipped, RowError{Sheet: sheet, Row: line, Reason: reason})
			continue
		}
		res.Edges = append(res.Edges, edge)
	}
}

func parseRow(row []string) (*models.SynonymEdge, string) {
	if len(row) < 2 {
		return nil, "expected at least term and synonym columns"
	}
	term := strings.TrimSpace(row[0])
	syn := strings.TrimSpace(row[1])
	if term == "" || syn == "" {
		return nil, "empty term or synonym"
	}
	if isHeader(row) {
		return nil, "header row"
	}
	weight := DefaultWeight
	if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
		w, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Sprintf("weight %q is not a number", row[2])
		}
		if w < 0 || w > 1 {
			return nil, fmt.Sprintf("weight %v outside [0,1]", w)
		}
		weight = w
	}
	return &models.SynonymEdge{Term: term, Synonym: syn, Weight: weight}, ""
}

func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "term")
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
