// Package normalize turns raw adapter rows into the canonical row shape
// consumed by the store client. Normalization is total: coercion failures
// substitute safe defaults instead of failing the row, so a malformed
// source value never drops a record from the ingestion path.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/breachwatch/breach-comb/app/portal"
)

// RawRow is an adapter-produced field mapping, as fetched.
type RawRow map[string]any

// Row is a normalized row. Keys are stable per adapter type so that the
// content fingerprint is computed over the same key set for equal payloads.
type Row map[string]any

// countSeparators are stripped from count fields before integer parsing.
var countSeparators = strings.NewReplacer(",", "", " ", "", " ", "")

// Normalize produces the canonical row for a raw adapter row. The portal id
// always overwrites any adapter-supplied value, and the affected-individuals
// count is coerced to a non-negative integer under the "records" key.
func Normalize(raw RawRow, p portal.Portal) Row {
	row := make(Row, len(raw)+2)
	for k, v := range raw {
		row[k] = v
	}

	countField := p.CountField
	if countField == "" {
		countField = "records"
		// CSV portals overwhelmingly follow the HHS column naming.
		if _, ok := row["Individuals Affected"]; ok && p.Type == "csv" {
			countField = "Individuals Affected"
		}
	}
	count := CoerceCount(row[countField])
	if countField != "records" {
		delete(row, countField)
	}
	row["records"] = count

	row["_portal"] = p.ID

	return row
}

// CoerceCount parses an affected-individuals count. Thousands separators
// are stripped; blank, missing, or unparseable values (including "UNKN"
// placeholders) normalize to 0 so the row still ingests.
func CoerceCount(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		if n < 0 {
			return 0
		}
		return n
	case int64:
		if n < 0 {
			return 0
		}
		return int(n)
	case float64:
		if n < 0 {
			return 0
		}
		return int(n)
	case string:
		s := strings.TrimSpace(countSeparators.Replace(n))
		if s == "" {
			return 0
		}
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// dateLayouts are the formats breach portals are known to publish.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
	time.RFC3339,
}

// FormatDate reformats a source date string to YYYY-MM-DD. The boolean is
// false when no known layout matches; callers must then omit the value
// rather than pass a malformed date through.
func FormatDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
