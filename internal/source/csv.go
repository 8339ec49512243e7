package source

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
)

// Column is a result column with its SQL Server type name, upper case.
type Column struct {
	Name string
	Type string
}

// Field is one formatted CSV value.
type Field struct {
	Value string
	Null  bool
}

// FormatValue renders a scanned SQL Server value the way PostgreSQL
// parses it in CSV input.
func FormatValue(typ string, v any) (Field, error) {
	if v == nil {
		return Field{Null: true}, nil
	}
	switch x := v.(type) {
	case []byte:
		return formatBytes(typ, x)
	case string:
		return Field{Value: x}, nil
	case bool:
		if x {
			return Field{Value: "t"}, nil
		}
		return Field{Value: "f"}, nil
	case int64:
		return Field{Value: strconv.FormatInt(x, 10)}, nil
	case float64:
		bits := 64
		if typ == "REAL" {
			bits = 32
		}
		return Field{Value: strconv.FormatFloat(x, 'g', -1, bits)}, nil
	case time.Time:
		return Field{Value: formatTime(typ, x)}, nil
	default:
		return Field{Value: fmt.Sprint(x)}, nil
	}
}

func formatBytes(typ string, b []byte) (Field, error) {
	switch typ {
	case "UNIQUEIDENTIFIER":
		var u mssql.UniqueIdentifier
		if err := u.Scan(b); err != nil {
			return Field{}, fmt.Errorf("uniqueidentifier: %w", err)
		}
		return Field{Value: strings.ToLower(u.String())}, nil
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return Field{Value: string(b)}, nil
	case "BINARY", "VARBINARY", "IMAGE", "TIMESTAMP", "ROWVERSION", "UDT":
		return Field{Value: `\x` + hex.EncodeToString(b)}, nil
	default:
		return Field{Value: string(b)}, nil
	}
}

func formatTime(typ string, t time.Time) string {
	switch typ {
	case "DATE":
		return t.Format("2006-01-02")
	case "TIME":
		return t.Format("15:04:05.999999999")
	case "DATETIMEOFFSET":
		return t.Format("2006-01-02 15:04:05.999999999Z07:00")
	default:
		return t.Format("2006-01-02 15:04:05.999999999")
	}
}

// writeRecord writes one CSV line. Empty non-null values and values that
// would otherwise be misread are quoted.
func writeRecord(w *bufio.Writer, fields []Field) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if f.Null {
			continue
		}
		if !needsQuotes(f.Value) {
			if _, err := w.WriteString(f.Value); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := w.WriteString(strings.ReplaceAll(f.Value, `"`, `""`)); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func needsQuotes(s string) bool {
	if s == "" || s == `\.` {
		return true
	}
	if strings.ContainsAny(s, ",\"\r\n") {
		return true
	}
	return s[0] == ' ' || s[0] == '\t' || s[len(s)-1] == ' ' || s[len(s)-1] == '\t'
}

func headerFields(cols []Column) []Field {
	out := make([]Field, len(cols))
	for i, c := range cols {
		out[i] = Field{Value: c.Name}
	}
	return out
}
