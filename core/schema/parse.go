package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Set accumulates raw class fragments before resolution. Fragments of
// the same class collected from several documents or files deep-merge:
// scalars are overwritten by the latest occurrence, attribute and
// relation maps merge key by key.
type Set struct {
	specs map[string]*classSpec
	order []string
}

// NewSet returns an empty fragment set.
func NewSet() *Set {
	return &Set{specs: make(map[string]*classSpec)}
}

// Len returns the number of distinct classes collected.
func (s *Set) Len() int {
	return len(s.specs)
}

// Names returns the class names in first-seen order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Merge folds every fragment of other into s.
func (s *Set) Merge(other *Set) {
	for _, name := range other.order {
		s.add(name, *other.specs[name])
	}
}

func (s *Set) add(name string, spec classSpec) {
	into, ok := s.specs[name]
	if !ok {
		into = &classSpec{}
		s.specs[name] = into
		s.order = append(s.order, name)
	}
	mergeClassSpec(into, spec)
}

// Parse collects class fragments from one YAML stream. A document
// either holds a name-keyed collection under "entity_classes" or a
// single class carrying "name". Other document shapes are skipped.
func Parse(data []byte) (*Set, error) {
	set := NewSet()
	if err := set.parseInto(data); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Set) parseInto(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}

		root := docRoot(&doc)
		if root == nil || root.Kind != yaml.MappingNode {
			continue
		}

		if coll := mappingValue(root, "entity_classes"); coll != nil && coll.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(coll.Content); i += 2 {
				name := coll.Content[i].Value
				var spec classSpec
				if coll.Content[i+1].Kind == yaml.MappingNode {
					if err := coll.Content[i+1].Decode(&spec); err != nil {
						return fmt.Errorf("class %q: %w", name, err)
					}
				}
				s.add(name, spec)
			}
			continue
		}

		if mappingValue(root, "name") != nil {
			var spec classSpec
			if err := root.Decode(&spec); err != nil {
				return fmt.Errorf("parse class document: %w", err)
			}
			if spec.Name != "" {
				s.add(spec.Name, spec)
			}
		}
	}
}

// ParseFile collects class fragments from one YAML file.
func ParseFile(path string) (*Set, error) {
	set := NewSet()
	if err := set.parseFile(path); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Set) parseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}
	if err := s.parseInto(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadDir collects class fragments from every *.yaml / *.yml file below
// dir, in sorted path order.
func LoadDir(dir string) (*Set, error) {
	set := NewSet()
	if err := set.loadDir(dir); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Set) loadDir(dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isSchemaFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	sort.Strings(files)
	for _, f := range files {
		if err := s.parseFile(f); err != nil {
			return err
		}
	}
	return nil
}

// LoadPaths collects class fragments from a mix of files, directories
// and doublestar glob patterns (e.g. "schema/**/*.yaml"). Matches are
// loaded in sorted order per pattern.
func LoadPaths(patterns []string) (*Set, error) {
	set := NewSet()

	for _, pattern := range patterns {
		if containsGlob(pattern) {
			matches, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				return nil, fmt.Errorf("glob %s: %w", pattern, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				info, err := os.Stat(m)
				if err != nil {
					return nil, fmt.Errorf("stat %s: %w", m, err)
				}
				if info.IsDir() || !isSchemaFile(m) {
					continue
				}
				if err := set.parseFile(m); err != nil {
					return nil, err
				}
			}
			continue
		}

		info, err := os.Stat(pattern)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", pattern, err)
		}
		if info.IsDir() {
			if err := set.loadDir(pattern); err != nil {
				return nil, err
			}
			continue
		}
		if err := set.parseFile(pattern); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// isSchemaFile matches *.yaml and *.yml.
func isSchemaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// containsGlob reports whether the path carries glob metacharacters.
func containsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// docRoot unwraps a document node to its content mapping.
func docRoot(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		return n.Content[0]
	}
	return n
}

// mappingValue returns the value node for key, or nil.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
