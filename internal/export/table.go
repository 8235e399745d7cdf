// Package export renders tabular data into downloadable documents.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
)

// Format selects the output document type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat is returned for formats other than xlsx, csv and pdf.
var ErrUnsupportedFormat = fmt.Errorf("export: unsupported format: %w", httpx.ErrValidation)

// ParseFormat normalises raw, defaulting to xlsx.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
}

// Column describes one output column. Width is in spreadsheet character units.
type Column struct {
	Title string
	Width float64
}

// Table is the data handed to a renderer.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

// Artifact is a rendered document.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render produces t in format f. now stamps the filename and document header.
func Render(t Table, f Format, now time.Time) (Artifact, error) {
	var (
		body []byte
		err  error
		ct   string
	)
	switch f {
	case FormatXLSX:
		body, err = renderXLSX(t)
		ct = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		body, err = renderCSV(t)
		ct = "text/csv; charset=utf-8"
	case FormatPDF:
		body, err = renderPDF(t, now)
		ct = "application/pdf"
	default:
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Filename:    fmt.Sprintf("%s_%s.%s", slug(t.Title), now.Format("20060102_150405"), f),
		ContentType: ct,
		Body:        body,
	}, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "export"
	}
	return s
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
