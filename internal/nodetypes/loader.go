// Package nodetypes loads node type descriptions from disk, validates them,
// and serves them from a registry with atomic snapshot swap.
package nodetypes

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pitabwire/flowdeck/model"
)

// File is the parsed contents of a single node type file.
type File struct {
	Path      string
	Checksum  string
	NodeTypes []model.NodeTypeDescription
}

// Loader scans directories for node type files. A file holds either one
// description or a list of descriptions, encoded as JSON or YAML.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll recursively scans directories for *.json, *.yaml and *.yml files.
func (l *Loader) LoadAll(directories []string) ([]File, error) {
	var files []File

	for _, dir := range directories {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".json", ".yaml", ".yml":
			default:
				return nil
			}

			f, err := l.LoadFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			files = append(files, f)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
		}
	}

	return files, nil
}

// LoadFile loads and parses a single node type file and computes its SHA-256
// checksum.
func (l *Loader) LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var nodeTypes []model.NodeTypeDescription
	if strings.EqualFold(filepath.Ext(path), ".json") {
		nodeTypes, err = decodeJSON(data)
	} else {
		nodeTypes, err = decodeYAML(data)
	}
	if err != nil {
		return File{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	return File{
		Path:      path,
		Checksum:  fmt.Sprintf("%x", sha256.Sum256(data)),
		NodeTypes: nodeTypes,
	}, nil
}

func decodeJSON(data []byte) ([]model.NodeTypeDescription, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []model.NodeTypeDescription
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var nt model.NodeTypeDescription
	if err := json.Unmarshal(trimmed, &nt); err != nil {
		return nil, err
	}
	return []model.NodeTypeDescription{nt}, nil
}

func decodeYAML(data []byte) ([]model.NodeTypeDescription, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []model.NodeTypeDescription
		if err := root.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var nt model.NodeTypeDescription
	if err := root.Decode(&nt); err != nil {
		return nil, err
	}
	return []model.NodeTypeDescription{nt}, nil
}
