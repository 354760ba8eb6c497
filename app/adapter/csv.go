package adapter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/portal"
)

// CSVAdapter ingests portals that publish their breach log as a CSV
// download. The header row names the fields; every data row becomes one
// raw row keyed by header. Count coercion is the normalizer's job.
type CSVAdapter struct {
	fetcher *Fetcher
}

func NewCSVAdapter(fetcher *Fetcher) *CSVAdapter {
	return &CSVAdapter{fetcher: fetcher}
}

func (a *CSVAdapter) Type() string {
	return "csv"
}

func (a *CSVAdapter) Run(ctx context.Context, p portal.Portal) ([]normalize.RawRow, error) {
	data, err := a.fetcher.Get(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CSV: %w", err)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode CSV body: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	if delim := p.Param("delimiter", ","); delim != "," && delim != "" {
		reader.Comma = rune(delim[0])
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []normalize.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		row := make(normalize.RawRow, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// decodeText returns the body as UTF-8, assuming Latin-1 for bodies that
// are not valid UTF-8. State portals are inconsistent about encoding.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
