package record

import (
	"encoding/json"

	"github.com/ibdtool/ibdtool/internal/compression"
	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/types"
)

// SDIObject is one decoded SDI record: a Table or Tablespace dictionary
// object.
type SDIObject struct {
	Type       page.SDIObjectType
	ID         uint64
	RawJSON    json.RawMessage
	Table      *Table       // populated when Type == SDIObjectTable
	Tablespace *TableSpaceDD // populated when Type == SDIObjectTablespace
}

// Table mirrors the subset of MySQL 8.0's dd::Table SDI JSON the schema
// reconstructor needs: columns, indexes, foreign keys, partitioning,
// row format, charset/collation, and version id.
type Table struct {
	Name            string           `json:"name"`
	Engine          string           `json:"engine"`
	RowFormat       string           `json:"row_format"`
	Collation       string           `json:"collation_id"`
	Comment         string           `json:"comment"`
	MySQLVersionID  int              `json:"mysql_version_id"`
	Columns         []Column         `json:"columns"`
	Indexes         []Index          `json:"indexes"`
	ForeignKeys     []ForeignKey     `json:"foreign_keys"`
	Partitions      []Partition      `json:"partitions"`
}

// Column is one SDI column definition.
type Column struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	IsNullable     bool     `json:"is_nullable"`
	IsAutoIncrement bool    `json:"is_auto_increment"`
	GeneratedExpr  string   `json:"generation_expression,omitempty"`
	IsVirtual      bool     `json:"is_virtual,omitempty"`
	Elements       []string `json:"elements,omitempty"` // ENUM/SET element list
	CharsetName    string   `json:"collation_name,omitempty"`
	DefaultValue   string   `json:"default_value,omitempty"`
}

// IndexElement is one key part within an Index.
type IndexElement struct {
	ColumnName   string `json:"column_name"`
	PrefixLength int    `json:"length,omitempty"`
	Descending   bool   `json:"order_descending,omitempty"`
}

// Index is one SDI index definition.
type Index struct {
	Name      string         `json:"name"`
	IsUnique  bool           `json:"is_unique"`
	Type      string         `json:"type"` // e.g. "PRIMARY", "FULLTEXT", "SPATIAL"
	Elements  []IndexElement `json:"elements"`
}

// ForeignKey is one SDI foreign-key definition, including referential
// actions.
type ForeignKey struct {
	Name             string   `json:"name"`
	Columns          []string `json:"columns"`
	ReferencedTable  string   `json:"referenced_table_name"`
	ReferencedCols   []string `json:"referenced_columns"`
	UpdateRule       string   `json:"update_rule"`
	DeleteRule       string   `json:"delete_rule"`
}

// Partition is one SDI partition definition.
type Partition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TableSpaceDD mirrors dd::Tablespace SDI JSON: just enough to identify
// the tablespace a Table SDI record belongs to.
type TableSpaceDD struct {
	Name    string `json:"name"`
	Engine  string `json:"engine"`
	Comment string `json:"comment,omitempty"`
}

// ExtractSDI scans pages, a map from page number to resolved type and
// raw page bytes, for SDI records, following any overflow chain into
// SDI_BLOB pages, concatenating compressed bytes, and zlib-inflating the
// result into parsed JSON. The map is ranged over in Go's unspecified
// order, so the returned objects are not sorted by page number; fetch
// resolves an overflow page's raw bytes by page number.
func ExtractSDI(pages map[int]PageInfo, fetch func(n int) ([]byte, error)) ([]SDIObject, error) {
	var objects []SDIObject
	for n, info := range pages {
		if info.Type != page.TypeSDI {
			continue
		}
		objs, err := extractFromSDIPage(info.Buf, fetch)
		if err != nil {
			return nil, ibderrors.ParseWrap(err, "extracting SDI records from page %d", n)
		}
		objects = append(objects, objs...)
	}
	return objects, nil
}

// PageInfo is the minimal view ExtractSDI needs of a decoded page:
// its resolved type (vendor-ambiguity already settled by the caller)
// and raw bytes.
type PageInfo struct {
	Type page.Type
	Buf  []byte
}

// NewPageInfo constructs a PageInfo, used by callers in the report layer
// that already hold a resolved page.Type alongside page bytes.
func NewPageInfo(t page.Type, buf []byte) PageInfo {
	return PageInfo{Type: t, Buf: buf}
}

func extractFromSDIPage(buf []byte, fetch func(n int) ([]byte, error)) ([]SDIObject, error) {
	var objects []SDIObject
	body := buf[page.DataOffsetIndex:]
	offset := 0
	for offset+page.SDIRecordHeaderSize <= len(body) {
		hdr, err := page.ParseSDIRecordHeader(body[offset:])
		if err != nil {
			break
		}
		if hdr.CompressedLength == 0 {
			break
		}
		start := offset + page.SDIRecordHeaderSize
		end := start + int(hdr.CompressedLength)
		var compressed []byte
		if end <= len(body) {
			compressed = body[start:end]
		} else {
			// Overflow: what's on this page plus the SDI_BLOB chain.
			compressed = append(compressed, body[start:]...)
			remaining := int(hdr.CompressedLength) - (len(body) - start)
			chainBuf, err := followSDIBlobChain(buf, remaining, fetch)
			if err != nil {
				return nil, err
			}
			compressed = append(compressed, chainBuf...)
		}

		raw, err := compression.InflateZlib(compressed)
		if err != nil {
			return nil, ibderrors.ParseWrap(err, "inflating SDI record %d", hdr.ID)
		}

		obj := SDIObject{Type: hdr.ObjectType, ID: hdr.ID, RawJSON: raw}
		switch hdr.ObjectType {
		case page.SDIObjectTable:
			var t Table
			if err := json.Unmarshal(raw, &t); err != nil {
				return nil, ibderrors.ParseWrap(err, "parsing Table SDI JSON for id %d", hdr.ID)
			}
			obj.Table = &t
		case page.SDIObjectTablespace:
			var ts TableSpaceDD
			if err := json.Unmarshal(raw, &ts); err != nil {
				return nil, ibderrors.ParseWrap(err, "parsing Tablespace SDI JSON for id %d", hdr.ID)
			}
			obj.Tablespace = &ts
		}
		objects = append(objects, obj)

		if end <= len(body) {
			offset = end
		} else {
			break // rest of this page's body belonged to the overflowed record
		}
	}
	return objects, nil
}

// followSDIBlobChain reads successive SDI_BLOB overflow pages via the
// FIL header's next-page pointer until remaining compressed bytes have
// been collected.
func followSDIBlobChain(firstPage []byte, remaining int, fetch func(n int) ([]byte, error)) ([]byte, error) {
	h, err := page.ParseHeader(firstPage)
	if err != nil {
		return nil, err
	}
	next := h.Next
	var out []byte
	for remaining > 0 {
		if next == types.FILNull {
			return nil, ibderrors.Parse("SDI_BLOB chain ended with %d bytes still expected", remaining)
		}
		buf, err := fetch(int(next))
		if err != nil {
			return nil, err
		}
		blobHdr, err := page.ParseBlobHeader(buf)
		if err != nil {
			return nil, err
		}
		dataStart := page.DataOffset + page.BlobHeaderSize
		take := int(blobHdr.PartLen)
		if take > remaining {
			take = remaining
		}
		if dataStart+take > len(buf) {
			return nil, ibderrors.Parse("SDI_BLOB page truncated")
		}
		out = append(out, buf[dataStart:dataStart+take]...)
		remaining -= take
		next = blobHdr.NextPage
	}
	return out, nil
}
