package record

import (
	"fmt"
	"strings"
)

// ReconstructSchema renders a Table SDI object as a CREATE TABLE
// statement, a pure function of the Table JSON. It uses
// vendor-neutral SQL: plain column definitions, generated-column
// expressions, prefix-length index parts, sort direction, fulltext/
// spatial indexes, foreign-key referential actions, explicit
// AUTO_INCREMENT, ROW_FORMAT, table comment, and partition definitions.
func ReconstructSchema(t *Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE `%s` (\n", t.Name)

	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "  "+columnDefinition(c))
	}
	for _, idx := range t.Indexes {
		lines = append(lines, "  "+indexDefinition(idx))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, "  "+foreignKeyDefinition(fk))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")

	var opts []string
	if t.Engine != "" {
		opts = append(opts, fmt.Sprintf("ENGINE=%s", t.Engine))
	}
	if t.RowFormat != "" {
		opts = append(opts, fmt.Sprintf("ROW_FORMAT=%s", t.RowFormat))
	}
	if hasAutoIncrement(t.Columns) {
		opts = append(opts, "AUTO_INCREMENT=1")
	}
	if t.Comment != "" {
		opts = append(opts, fmt.Sprintf("COMMENT=%q", t.Comment))
	}
	if len(opts) > 0 {
		b.WriteString(" " + strings.Join(opts, " "))
	}

	if len(t.Partitions) > 0 {
		b.WriteString("\n" + partitionClause(t.Partitions))
	}
	b.WriteString(";")
	return b.String()
}

func hasAutoIncrement(cols []Column) bool {
	for _, c := range cols {
		if c.IsAutoIncrement {
			return true
		}
	}
	return false
}

func columnDefinition(c Column) string {
	def := fmt.Sprintf("`%s` %s", c.Name, c.Type)
	if len(c.Elements) > 0 {
		quoted := make([]string, len(c.Elements))
		for i, e := range c.Elements {
			quoted[i] = fmt.Sprintf("'%s'", e)
		}
		def = fmt.Sprintf("`%s` %s(%s)", c.Name, c.Type, strings.Join(quoted, ","))
	}
	if c.GeneratedExpr != "" {
		kind := "STORED"
		if c.IsVirtual {
			kind = "VIRTUAL"
		}
		def += fmt.Sprintf(" GENERATED ALWAYS AS (%s) %s", c.GeneratedExpr, kind)
	}
	if !c.IsNullable {
		def += " NOT NULL"
	}
	if c.IsAutoIncrement {
		def += " AUTO_INCREMENT"
	}
	if c.DefaultValue != "" && c.GeneratedExpr == "" {
		def += fmt.Sprintf(" DEFAULT %s", c.DefaultValue)
	}
	return def
}

func indexDefinition(idx Index) string {
	kind := "KEY"
	switch strings.ToUpper(idx.Type) {
	case "PRIMARY":
		kind = "PRIMARY KEY"
	case "FULLTEXT":
		kind = "FULLTEXT KEY"
	case "SPATIAL":
		kind = "SPATIAL KEY"
	default:
		if idx.IsUnique {
			kind = "UNIQUE KEY"
		}
	}

	parts := make([]string, len(idx.Elements))
	for i, e := range idx.Elements {
		part := fmt.Sprintf("`%s`", e.ColumnName)
		if e.PrefixLength > 0 {
			part += fmt.Sprintf("(%d)", e.PrefixLength)
		}
		if e.Descending {
			part += " DESC"
		}
		parts[i] = part
	}

	if kind == "PRIMARY KEY" {
		return fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(parts, ","))
	}
	return fmt.Sprintf("%s `%s` (%s)", kind, idx.Name, strings.Join(parts, ","))
}

func foreignKeyDefinition(fk ForeignKey) string {
	cols := quoteAll(fk.Columns)
	refCols := quoteAll(fk.ReferencedCols)
	def := fmt.Sprintf("CONSTRAINT `%s` FOREIGN KEY (%s) REFERENCES `%s` (%s)",
		fk.Name, strings.Join(cols, ","), fk.ReferencedTable, strings.Join(refCols, ","))
	if fk.UpdateRule != "" {
		def += fmt.Sprintf(" ON UPDATE %s", fk.UpdateRule)
	}
	if fk.DeleteRule != "" {
		def += fmt.Sprintf(" ON DELETE %s", fk.DeleteRule)
	}
	return def
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("`%s`", n)
	}
	return out
}

func partitionClause(parts []Partition) string {
	defs := make([]string, len(parts))
	for i, p := range parts {
		def := fmt.Sprintf("PARTITION `%s`", p.Name)
		if p.Description != "" {
			def += fmt.Sprintf(" VALUES %s", p.Description)
		}
		defs[i] = def
	}
	return fmt.Sprintf("PARTITION BY KEY ()\n(%s)", strings.Join(defs, ",\n"))
}
