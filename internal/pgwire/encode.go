package pgwire

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/pgcatalog"
	"duck-pgcatalog/internal/sqlrewrite"
)

const (
	dateLayout        = "2006-01-02"
	timestampLayout   = "2006-01-02 15:04:05.999999"
	timestamptzLayout = "2006-01-02 15:04:05.999999-07"
)

// formatCode resolves the format of column i from Bind format codes: none
// means text, a single code applies to every column.
func formatCode(formats []int16, i int) int16 {
	switch {
	case len(formats) == 0:
		return pgtype.TextFormatCode
	case len(formats) == 1:
		return formats[0]
	case i < len(formats):
		return formats[i]
	}
	return pgtype.TextFormatCode
}

func rowDescription(cols []engine.Column, formats []int16) *pgproto3.RowDescription {
	fields := make([]pgproto3.FieldDescription, len(cols))
	for i, col := range cols {
		size := int16(-1)
		if t, ok := pgcatalog.LookupType(col.TypeOid); ok {
			size = t.Len
		}
		fields[i] = pgproto3.FieldDescription{
			Name:         []byte(col.Name),
			DataTypeOID:  col.TypeOid,
			DataTypeSize: size,
			TypeModifier: -1,
			Format:       formatCode(formats, i),
		}
	}
	return &pgproto3.RowDescription{Fields: fields}
}

func (c *session) dataRow(cols []engine.Column, formats []int16, row []any) (*pgproto3.DataRow, error) {
	values := make([][]byte, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		oid := uint32(pgtype.UnknownOID)
		if i < len(cols) {
			oid = cols[i].TypeOid
		}
		if formatCode(formats, i) == pgtype.BinaryFormatCode {
			buf, err := c.types.Encode(oid, pgtype.BinaryFormatCode, v, nil)
			if err != nil {
				return nil, fmt.Errorf("encode column %d as binary: %w", i+1, err)
			}
			values[i] = buf
			continue
		}
		values[i] = []byte(formatText(c.types, oid, v))
	}
	return &pgproto3.DataRow{Values: values}, nil
}

// formatText renders v in PostgreSQL text output format.
func formatText(m *pgtype.Map, oid uint32, v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "t"
		}
		return "f"
	case []byte:
		return `\x` + hex.EncodeToString(x)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case time.Time:
		switch oid {
		case pgtype.DateOID:
			return x.Format(dateLayout)
		case pgtype.TimestamptzOID:
			return x.Format(timestamptzLayout)
		}
		return x.Format(timestampLayout)
	case []any:
		var elem uint32 = pgtype.UnknownOID
		if t, ok := pgcatalog.LookupType(oid); ok && t.Elem != 0 {
			elem = t.Elem
		}
		return formatArray(m, elem, x)
	}
	if buf, err := m.Encode(oid, pgtype.TextFormatCode, v, nil); err == nil && buf != nil {
		return string(buf)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func formatArray(m *pgtype.Map, elem uint32, items []any) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		if item == nil {
			b.WriteString("NULL")
			continue
		}
		b.WriteString(quoteArrayElement(formatText(m, elem, item)))
	}
	b.WriteByte('}')
	return b.String()
}

func quoteArrayElement(s string) string {
	if s != "" && !strings.EqualFold(s, "null") && !strings.ContainsAny(s, "{},\"\\ \t\n") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// decodeParams renders Bind parameter values as SQL literals.
func (c *session) decodeParams(oids []uint32, formats []int16, raw [][]byte) ([]string, error) {
	out := make([]string, len(raw))
	for i, value := range raw {
		if value == nil {
			out[i] = "NULL"
			continue
		}
		switch formatCode(formats, i) {
		case pgtype.TextFormatCode:
			out[i] = sqlrewrite.QuoteLiteral(string(value))
		case pgtype.BinaryFormatCode:
			lit, err := binaryLiteral(c.types, oids[i], value)
			if err != nil {
				return nil, fmt.Errorf("parameter $%d: %w", i+1, err)
			}
			out[i] = lit
		default:
			return nil, domain.ErrValidation("parameter $%d: unsupported format code %d", i+1, formatCode(formats, i))
		}
	}
	return out, nil
}

func binaryLiteral(m *pgtype.Map, oid uint32, raw []byte) (string, error) {
	t, ok := m.TypeForOID(oid)
	if !ok {
		return "", domain.ErrNotImplemented("binary parameters of type oid %d are not supported", oid)
	}
	v, err := t.Codec.DecodeValue(m, oid, pgtype.BinaryFormatCode, raw)
	if err != nil {
		return "", domain.ErrValidation("decode %s: %v", t.Name, err)
	}

	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return floatLiteral(float64(x), 32), nil
	case float64:
		return floatLiteral(x, 64), nil
	case string:
		return sqlrewrite.QuoteLiteral(x), nil
	case []byte:
		return `'\x` + hex.EncodeToString(x) + `'::BLOB`, nil
	case [16]byte:
		return sqlrewrite.QuoteLiteral(uuid.UUID(x).String()) + "::UUID", nil
	case time.Time:
		switch oid {
		case pgtype.DateOID:
			return sqlrewrite.QuoteLiteral(x.Format(dateLayout)) + "::DATE", nil
		case pgtype.TimestamptzOID:
			return sqlrewrite.QuoteLiteral(x.UTC().Format(timestamptzLayout)) + "::TIMESTAMPTZ", nil
		}
		return sqlrewrite.QuoteLiteral(x.Format(timestampLayout)) + "::TIMESTAMP", nil
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return "", domain.ErrValidation("decode %s: %v", t.Name, err)
		}
		if s, ok := dv.(string); ok {
			if _, err := strconv.ParseFloat(s, 64); err == nil {
				return s, nil
			}
			return sqlrewrite.QuoteLiteral(s), nil
		}
	}
	return "", domain.ErrNotImplemented("binary parameters of type %s are not supported", t.Name)
}

func floatLiteral(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sqlrewrite.QuoteLiteral(formatFloat(f, bits)) + "::DOUBLE"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// scanParams calls fn for every $n placeholder outside quoted text.
func scanParams(query string, fn func(start, end, n int)) {
	for i := 0; i < len(query); i++ {
		switch query[i] {
		case '\'', '"':
			end := strings.IndexByte(query[i+1:], query[i])
			if end < 0 {
				return
			}
			i += end + 1
		case '-':
			if i+1 < len(query) && query[i+1] == '-' {
				for i < len(query) && query[i] != '\n' {
					i++
				}
			}
		case '$':
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j == i+1 {
				continue
			}
			n, err := strconv.Atoi(query[i+1 : j])
			if err == nil {
				fn(i, j, n)
			}
			i = j - 1
		}
	}
}

// paramCount returns the highest placeholder number in query.
func paramCount(query string) int {
	highest := 0
	scanParams(query, func(_, _, n int) {
		highest = max(highest, n)
	})
	return highest
}

// substituteParams replaces $n placeholders with the rendered literals.
func substituteParams(query string, params []string) (string, error) {
	var b strings.Builder
	var err error
	last := 0
	scanParams(query, func(start, end, n int) {
		if err != nil {
			return
		}
		if n < 1 || n > len(params) {
			err = domain.ErrValidation("there is no parameter $%d", n)
			return
		}
		b.WriteString(query[last:start])
		b.WriteString(params[n-1])
		last = end
	})
	if err != nil {
		return "", err
	}
	b.WriteString(query[last:])
	return b.String(), nil
}
