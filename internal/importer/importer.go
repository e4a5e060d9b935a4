package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"lingofocus/internal/models"
)

// ErrUnsupportedFormat is returned for files that are not xlsx, csv or pipe text
var ErrUnsupportedFormat = errors.New("importer: unsupported format")

// Format identifies the layout of an import file
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// FieldSeparator splits the fields of one pipe-delimited line
const FieldSeparator = "|"

// ImportConfig defines the import configuration
type ImportConfig struct {
	Format        Format
	PromptColumn  string // Column with the Korean prompt
	AnswerColumn  string // Column with the English answer
	TagColumn     string // Column with the part of speech
	ExampleColumn string // Column with the example sentence
	SheetName     string // Empty selects the first sheet
	StartRow      int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Format:        FormatXLSX,
		PromptColumn:  "A",
		AnswerColumn:  "B",
		TagColumn:     "C",
		ExampleColumn: "D",
		StartRow:      2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Skipped        int
	Errors         []string
	Items          []models.Item
}

// FormatFromFilename picks the format from a file extension
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".txt", ".psv":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Import reads items from r in the configured format
func Import(r io.Reader, config ImportConfig) (*ImportResult, error) {
	switch config.Format {
	case FormatXLSX:
		return importFromExcel(r, config)
	case FormatCSV:
		return importFromCSV(r, config)
	case FormatText:
		items, err := ParseDelimited(r)
		if err != nil {
			return nil, err
		}
		return &ImportResult{TotalProcessed: len(items), Items: items}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, config.Format)
	}
}

// ParseDelimited reads one item per line as prompt|answer|tag|example.
// Blank lines and lines starting with # are skipped; tag and example are optional.
func ParseDelimited(r io.Reader) ([]models.Item, error) {
	var items []models.Item
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parts := strings.SplitN(text, FieldSeparator, 4)
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: want prompt%sanswer, got %q", line, FieldSeparator, text)
		}
		item := models.Item{Prompt: parts[0], Answer: parts[1]}
		if len(parts) > 2 {
			item.Tag = parts[2]
		}
		if len(parts) > 3 {
			item.Example = parts[3]
		}
		items = append(items, item.Normalize())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read delimited: %w", err)
	}
	return items, nil
}

// importFromExcel imports items from an Excel workbook
func importFromExcel(r io.Reader, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return collectRows(rows, config)
}

// importFromCSV imports items from a CSV file
func importFromCSV(r io.Reader, config ImportConfig) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	// Spreadsheet exports often start with a UTF-8 byte order mark
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return collectRows(rows, config)
}

func collectRows(rows [][]string, config ImportConfig) (*ImportResult, error) {
	cols, err := resolveColumns(config)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		item := models.Item{
			Prompt:  cell(row, cols.prompt),
			Answer:  cell(row, cols.answer),
			Tag:     cell(row, cols.tag),
			Example: cell(row, cols.example),
		}.Normalize()
		if item.Prompt == "" || item.Answer == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: prompt and answer are required", i+1))
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

type columns struct {
	prompt, answer, tag, example int
}

func resolveColumns(config ImportConfig) (columns, error) {
	var cols columns
	targets := []struct {
		name string
		dst  *int
	}{
		{config.PromptColumn, &cols.prompt},
		{config.AnswerColumn, &cols.answer},
		{config.TagColumn, &cols.tag},
		{config.ExampleColumn, &cols.example},
	}
	for _, t := range targets {
		if t.name == "" {
			*t.dst = -1
			continue
		}
		n, err := excelize.ColumnNameToNumber(t.name)
		if err != nil {
			return columns{}, fmt.Errorf("invalid column %q: %w", t.name, err)
		}
		*t.dst = n - 1
	}
	if cols.prompt < 0 || cols.answer < 0 {
		return columns{}, fmt.Errorf("prompt and answer columns are required")
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
