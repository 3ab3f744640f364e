package transitions

import (
	"fmt"
	"io"
	"os"

	"github.com/dukex/supplyflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a transition table override file.
//
//	document_types:
//	  wt:
//	    initial: draft
//	    transitions:
//	      draft: [pending_approval, cancelled]
type File struct {
	DocumentTypes map[models.DocumentType]Table `yaml:"document_types"`
}

// Load reads tables from YAML and merges them over the built-in tables.
// A type present in the file replaces the built-in table entirely.
func Load(r io.Reader) (*Validator, error) {
	var file File

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	err := decoder.Decode(&file)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode transition tables: %w", err)
	}

	tables := BuiltinTables()
	for docType, table := range file.DocumentTypes {
		tables[docType] = table
	}

	return NewValidator(tables)
}

// LoadFile is Load for a path. An empty path yields the built-in tables.
func LoadFile(path string) (*Validator, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transition tables %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}

// Marshal renders the validator's tables as YAML in the File layout.
func Marshal(v *Validator) ([]byte, error) {
	return yaml.Marshal(File{DocumentTypes: v.Tables()})
}
