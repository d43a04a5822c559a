package qana

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// yamlTable is the on-disk shape of one table entry in a YAML partitioning
// catalog: a plain, readable format for tests and standalone tools that
// don't want to implement their own Metadata.
type yamlTable struct {
	DirDb        string   `yaml:"dirDb"`
	DirTable     string   `yaml:"dirTable"`
	DirCol       string   `yaml:"dirCol"`
	PartCols     []string `yaml:"partCols"`
	SecIndexCols []string `yaml:"secIndexCols"`
	Chunked      bool     `yaml:"chunked"`
}

type yamlDB struct {
	Tables map[string]yamlTable `yaml:"tables"`
}

type yamlCatalog struct {
	Databases map[string]yamlDB `yaml:"databases"`
}

// YAMLMetadata is a Metadata implementation backed by a parsed YAML
// partitioning catalog.
type YAMLMetadata struct {
	catalog yamlCatalog
}

// LoadYAMLMetadataFile reads and parses a partitioning catalog from path.
func LoadYAMLMetadataFile(path string) (*YAMLMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadYAMLMetadata(data)
}

// LoadYAMLMetadata parses a partitioning catalog from raw YAML bytes.
func LoadYAMLMetadata(data []byte) (*YAMLMetadata, error) {
	var cat yamlCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("qana: parsing metadata catalog: %w", err)
	}
	return &YAMLMetadata{catalog: cat}, nil
}

func (m *YAMLMetadata) IsKnownDB(db string) bool {
	_, ok := m.catalog.Databases[db]
	return ok
}

func (m *YAMLMetadata) IsKnownTable(db, table string) bool {
	d, ok := m.catalog.Databases[db]
	if !ok {
		return false
	}
	_, ok = d.Tables[table]
	return ok
}

func (m *YAMLMetadata) PartTableParams(db, table string) (PartTableParams, error) {
	d, ok := m.catalog.Databases[db]
	if !ok {
		return PartTableParams{}, ErrMissingMetadata.New("database " + db)
	}
	t, ok := d.Tables[table]
	if !ok {
		return PartTableParams{}, ErrMissingMetadata.New("table " + db + "." + table)
	}
	var cols [3]string
	copy(cols[:], t.PartCols)
	dirDb, dirTable := t.DirDb, t.DirTable
	if dirDb == "" {
		dirDb = db
	}
	if dirTable == "" {
		dirTable = table
	}
	return PartTableParams{
		DirDb:        dirDb,
		DirTable:     dirTable,
		DirCol:       t.DirCol,
		PartCols:     cols,
		SecIndexCols: t.SecIndexCols,
		IsChunked:    t.Chunked,
	}, nil
}
