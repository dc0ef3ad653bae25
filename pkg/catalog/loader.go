package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseOption tunes decoding.
type ParseOption func(*parseConfig)

type parseConfig struct {
	lenientTypes bool
	labeler      func(string) string
}

// WithLenientTypes maps unknown field types to TypeAny instead of failing.
func WithLenientTypes() ParseOption {
	return func(c *parseConfig) { c.lenientTypes = true }
}

// WithLabeler overrides how missing labels are derived from field names.
func WithLabeler(fn func(string) string) ParseOption {
	return func(c *parseConfig) {
		if fn != nil {
			c.labeler = fn
		}
	}
}

func newParseConfig(opts []ParseOption) parseConfig {
	cfg := parseConfig{labeler: DefaultLabeler}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Parse decodes a JSON or YAML configuration and validates it.
func Parse(data []byte, source string, opts ...ParseOption) (*FormConfiguration, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ConfigurationError{Source: source, Problems: []string{"document is empty"}}
	}

	var cfg FormConfiguration
	if err := json.Unmarshal(data, &cfg); err != nil {
		cfg = FormConfiguration{}
		if yerr := yaml.Unmarshal(data, &cfg); yerr != nil {
			return nil, &ConfigurationError{Source: source, Problems: []string{"invalid JSON or YAML"}, Err: yerr}
		}
	}

	if err := Prepare(&cfg, source, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a configuration file.
func LoadFile(path string, opts ...ParseOption) (*FormConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Err: err}
	}
	return Parse(data, path, opts...)
}

// LoadFS parses every JSON/YAML file in fsys, keyed by path.
func LoadFS(fsys fs.FS, opts ...ParseOption) (map[string]*FormConfiguration, error) {
	out := make(map[string]*FormConfiguration)
	if fsys == nil {
		return out, nil
	}
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isConfigFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", path, err)
		}
		cfg, err := Parse(data, path, opts...)
		if err != nil {
			return err
		}
		out[path] = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prepare fills derived defaults on a decoded configuration and validates it.
// Server payloads decoded elsewhere go through the same checks.
func Prepare(cfg *FormConfiguration, source string, opts ...ParseOption) error {
	if cfg == nil {
		return &ConfigurationError{Source: source, Problems: []string{"no form configuration found"}}
	}
	pc := newParseConfig(opts)
	for _, g := range Groups() {
		sections := cfg.Sections(g)
		for i := range sections {
			for j := range sections[i].Fields {
				field := &sections[i].Fields[j]
				field.FieldName = strings.TrimSpace(field.FieldName)
				field.Type = FieldType(strings.ToLower(strings.TrimSpace(string(field.Type))))
				if field.Type == "" {
					field.Type = TypeText
				}
				if pc.lenientTypes && !field.Type.Known() {
					field.Type = TypeAny
				}
				if strings.TrimSpace(field.Label) == "" {
					field.Label = pc.labeler(field.FieldName)
				}
			}
		}
	}

	if problems := Validate(cfg); len(problems) > 0 {
		return &ConfigurationError{Source: source, Problems: problems}
	}
	return nil
}

// Validate returns every structural problem found in cfg.
func Validate(cfg *FormConfiguration) []string {
	if cfg == nil {
		return []string{"no form configuration found"}
	}
	var problems []string
	for _, g := range Groups() {
		seenSections := map[string]struct{}{}
		for i, section := range cfg.Sections(g) {
			name := strings.TrimSpace(section.SectionName)
			if name == "" {
				problems = append(problems, fmt.Sprintf("%s section %d has no name", g, i))
				continue
			}
			if _, dup := seenSections[name]; dup {
				problems = append(problems, fmt.Sprintf("%s section %q is declared twice", g, name))
			}
			seenSections[name] = struct{}{}

			seenFields := map[string]struct{}{}
			for j, field := range section.Fields {
				if field.FieldName == "" {
					problems = append(problems, fmt.Sprintf("%s/%s field %d has no name", g, name, j))
					continue
				}
				if _, dup := seenFields[field.FieldName]; dup {
					problems = append(problems, fmt.Sprintf("%s/%s field %q is declared twice", g, name, field.FieldName))
				}
				seenFields[field.FieldName] = struct{}{}
				if !field.Type.Known() {
					problems = append(problems, fmt.Sprintf("%s/%s field %q has unknown type %q", g, name, field.FieldName, field.Type))
				}
				if field.MaxLength < 0 {
					problems = append(problems, fmt.Sprintf("%s/%s field %q has negative maxLength", g, name, field.FieldName))
				}
			}
		}
	}
	sort.Strings(problems)
	return problems
}

func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
