package qana

// PartTableParams describes a partitioned table's chunking metadata, as
// looked up from the partitioning catalog.
type PartTableParams struct {
	// DirDb/DirTable/DirCol name the director table and column this
	// table's rows are keyed against. For a director table itself these
	// equal the table's own (db, table) and its director column.
	DirDb    string
	DirTable string
	DirCol   string

	// PartCols is (lonCol, latCol, subChunkCol), the three partitioning
	// columns resolved per chunked table reference.
	PartCols [3]string

	// SecIndexCols is the set of columns exposed as a secondary-index
	// lookup accelerator for this table.
	SecIndexCols []string

	// IsChunked reports whether this table is partitioned at all. A
	// non-partitioned table is silently skipped by restrictor expansion.
	IsChunked bool
}

// HasSecIndexCol reports whether col is declared as a secondary index
// column on this table.
func (p PartTableParams) HasSecIndexCol(col string) bool {
	for _, c := range p.SecIndexCols {
		if c == col {
			return true
		}
	}
	return false
}

// HasDistinctDirector reports whether this table's director table differs
// from the table itself — i.e. this is a child table whose director-column
// lookups must be rewritten to the director table.
func (p PartTableParams) HasDistinctDirector(db, table string) bool {
	return p.DirDb != "" && p.DirTable != "" && (p.DirDb != db || p.DirTable != table)
}

// Metadata is the reader the analysis passes consume to resolve
// partitioning information. It is an external collaborator boundary:
// concrete implementations (the configuration store) live outside this
// package; qana only depends on this interface.
type Metadata interface {
	IsKnownDB(db string) bool
	IsKnownTable(db, table string) bool
	PartTableParams(db, table string) (PartTableParams, error)
}
