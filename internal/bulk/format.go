package bulk

import (
	"strings"

	"github.com/vvka-141/pgfastload/internal/schema"
)

// ColumnResolver maps a file's header names onto the physical columns of a
// table. *schema.Catalog implements it.
type ColumnResolver interface {
	ResolveColumns(key schema.TableKey, header []string) ([]string, error)
}

// Format holds the CSV options of every COPY. Empty fields keep the
// PostgreSQL defaults: an unquoted empty field is NULL and the escape
// character is the quote.
type Format struct {
	Null   string
	Escape string
}

// Options renders the WITH clause.
func (f Format) Options() string {
	var b strings.Builder
	b.WriteString("WITH (FORMAT csv, HEADER true")
	if f.Null != "" {
		b.WriteString(", NULL ")
		b.WriteString(quoteLiteral(f.Null))
	}
	if f.Escape != "" {
		b.WriteString(", ESCAPE ")
		b.WriteString(quoteLiteral(f.Escape))
	}
	b.WriteString(")")
	return b.String()
}

func resolveColumns(r ColumnResolver, table schema.Table, header []string) ([]string, error) {
	if r == nil {
		return header, nil
	}
	return r.ResolveColumns(table.Key(), header)
}

func columnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
