// Package export serialises an extraction result for download
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a download format
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts json, csv or xlsx in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSV, XLSX:
		return f, nil
	case "":
		return JSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType is the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Download is an export ready to hand to the user. Remote exports carry a
// URL instead of data.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
	URL         string
}

// Filename names the download: extraction-<id>.<ext> when the service
// assigned an id, otherwise <file>_data.<ext>
func Filename(extractionID, sourceName string, f Format) string {
	if extractionID != "" {
		return fmt.Sprintf("extraction-%s.%s", extractionID, f)
	}
	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "invoice"
	}
	return fmt.Sprintf("%s_data.%s", base, f)
}

// Local builds the download without calling the service
func Local(f Format, result any, extractionID, sourceName string) (Download, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case JSON:
		data, err = MarshalJSON(result)
	case CSV:
		data = MarshalCSV(result)
	case XLSX:
		data, err = MarshalXLSX(result)
	default:
		return Download{}, fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return Download{}, err
	}
	return Download{
		Filename:    Filename(extractionID, sourceName, f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

// MarshalJSON pretty prints with two-space indentation
func MarshalJSON(result any) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json export: %w", err)
	}
	return data, nil
}

// Row is one flattened field
type Row struct {
	Field string
	Value string
}

// Flatten walks the result and returns one row per leaf. Object keys are
// joined with "." and visited in sorted order; array elements are indexed
// with [i].
func Flatten(result any) []Row {
	var rows []Row
	flatten("", result, &rows)
	return rows
}

func flatten(prefix string, v any, rows *[]Row) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}
			flatten(name, t[k], rows)
		}
	case []any:
		for i, item := range t {
			flatten(fmt.Sprintf("%s[%d]", prefix, i), item, rows)
		}
	default:
		if prefix == "" {
			prefix = "result"
		}
		*rows = append(*rows, Row{Field: prefix, Value: cell(t)})
	}
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// MarshalCSV writes a Field,Value header and the flattened rows with every
// cell quoted
func MarshalCSV(result any) []byte {
	var buf bytes.Buffer
	writeRecord(&buf, "Field", "Value")
	for _, r := range Flatten(result) {
		writeRecord(&buf, r.Field, r.Value)
	}
	return buf.Bytes()
}

func writeRecord(buf *bytes.Buffer, cells ...string) {
	for i, c := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(c, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

// MarshalXLSX writes the flattened rows into a single-sheet workbook
func MarshalXLSX(result any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Extraction"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Field", "Value"}); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", bold); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}

	for i, r := range Flatten(result) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("locating row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &[]any{r.Field, r.Value}); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
		return nil, fmt.Errorf("sizing field column: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "B", 60); err != nil {
		return nil, fmt.Errorf("sizing value column: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
