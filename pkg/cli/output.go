package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrintJSON writes v as indented JSON followed by a newline.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTable writes rows under upper-cased column headers. Columns are
// padded to their widest cell and separated by two spaces.
func PrintTable(w io.Writer, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
	}
	writeTableLine(w, widths, header)
	for _, row := range rows {
		writeTableLine(w, widths, row)
	}
}

func writeTableLine(w io.Writer, widths []int, cells []string) {
	var sb strings.Builder
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if i == len(widths)-1 {
			sb.WriteString(cell)
			break
		}
		sb.WriteString(cell)
		sb.WriteString(strings.Repeat(" ", width-len(cell)+2))
	}
	_, _ = fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
}

// PrintDetail writes one "key: value" line per field, sorted by key with
// the values aligned.
func PrintDetail(w io.Writer, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	maxLen := 0
	for k := range fields {
		keys = append(keys, k)
		if len(k) > maxLen {
			maxLen = len(k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		pad := strings.Repeat(" ", maxLen-len(k))
		_, _ = fmt.Fprintf(w, "%s:%s  %s\n", k, pad, detailValue(fields[k]))
	}
}

func detailValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any, []any, []string:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
