package qana

// fakeMetadata is a minimal in-memory Metadata used across this package's
// tests.
type fakeMetadata struct {
	dbs    map[string]bool
	tables map[string]PartTableParams // key "db.table"
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{dbs: map[string]bool{}, tables: map[string]PartTableParams{}}
}

func (m *fakeMetadata) addTable(db, table string, p PartTableParams) *fakeMetadata {
	m.dbs[db] = true
	if p.DirDb == "" {
		p.DirDb = db
	}
	if p.DirTable == "" {
		p.DirTable = table
	}
	m.tables[db+"."+table] = p
	return m
}

func (m *fakeMetadata) IsKnownDB(db string) bool {
	return m.dbs[db]
}

func (m *fakeMetadata) IsKnownTable(db, table string) bool {
	_, ok := m.tables[db+"."+table]
	return ok
}

func (m *fakeMetadata) PartTableParams(db, table string) (PartTableParams, error) {
	p, ok := m.tables[db+"."+table]
	if !ok {
		return PartTableParams{}, ErrMissingMetadata.New("table " + db + "." + table)
	}
	return p, nil
}
