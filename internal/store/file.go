package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ganttline/internal/model"
)

// FileSource is the source name used for items loaded from the items file.
const FileSource = "file"

// itemsFile is the on-disk shape:
//
//	items:
//	  - id: "1"
//	    name: Kickoff
//	    start: 2021-01-01
//	    end: 2021-01-03
//
// A bare top-level list is accepted too.
type itemsFile struct {
	Items []model.Item `yaml:"items" json:"items"`
}

// DecodeItems parses YAML or JSON item data. format is "json" or "yaml";
// an empty format sniffs the first non-space byte. Malformed dates surface
// as *datemath.InvalidDateError.
func DecodeItems(data []byte, format string) ([]model.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.Item{}, nil
	}
	if format == "" {
		format = "yaml"
		if trimmed[0] == '{' || trimmed[0] == '[' {
			format = "json"
		}
	}

	var (
		items []model.Item
		err   error
	)
	switch format {
	case "json":
		if trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &items)
		} else {
			var f itemsFile
			err = json.Unmarshal(trimmed, &f)
			items = f.Items
		}
	case "yaml":
		var root yaml.Node
		if err = yaml.Unmarshal(trimmed, &root); err != nil {
			break
		}
		if len(root.Content) > 0 && root.Content[0].Kind == yaml.SequenceNode {
			err = root.Content[0].Decode(&items)
		} else {
			var f itemsFile
			err = root.Decode(&f)
			items = f.Items
		}
	default:
		return nil, fmt.Errorf("unsupported items format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	if err := model.ValidateAll(items); err != nil {
		return nil, err
	}
	return items, nil
}

func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// ReadItemsFile reads and decodes an items file.
func ReadItemsFile(path string) ([]model.Item, error) {
	if path == "" {
		return nil, errors.New("items file path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	items, err := DecodeItems(data, formatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// LoadFile replaces the FileSource items with the contents of path.
func (s *Store) LoadFile(path string) error {
	items, err := ReadItemsFile(path)
	if err != nil {
		return err
	}
	return s.Replace(FileSource, items)
}
