// Package template resolves pandoc template definitions and per-document
// front matter into conversion options.
package template

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Definition describes one named pandoc template.
type Definition struct {
	Name      string            `yaml:"name"`
	Engine    string            `yaml:"engine"`
	Args      []string          `yaml:"args"`
	Variables map[string]string `yaml:"variables"`
}

// builtins cover the common cases when no template directory is
// configured.
var builtins = map[string]Definition{
	"default": {
		Name:   "default",
		Engine: "xelatex",
		Args:   []string{"--standalone", "--number-sections", "--toc", "--highlight-style=pygments"},
	},
	"plain": {
		Name:   "plain",
		Engine: "xelatex",
		Args:   []string{"--standalone"},
	},
}

// Loader resolves template definitions and document metadata.
type Loader struct {
	dir string
	log *slog.Logger
}

// NewLoader creates a loader. dir may be empty, in which case only the
// builtin templates resolve.
func NewLoader(dir string, log *slog.Logger) *Loader {
	return &Loader{dir: dir, log: log}
}

// LoadTemplate resolves a template by name. A YAML file in the template
// directory overrides a builtin of the same name.
func (l *Loader) LoadTemplate(name string) (Definition, error) {
	if l.dir != "" {
		path := filepath.Join(l.dir, name+".yaml")
		data, err := os.ReadFile(path)
		if err == nil {
			var def Definition
			if err := yaml.Unmarshal(data, &def); err != nil {
				return Definition{}, fmt.Errorf("failed to parse template %s: %w", path, err)
			}
			if def.Name == "" {
				def.Name = name
			}
			return def, nil
		}
	}

	if def, ok := builtins[name]; ok {
		return def, nil
	}
	return Definition{}, fmt.Errorf("unknown template: %s", name)
}

// LoadMetadata extracts YAML front matter from a Markdown document. A
// document without front matter yields an empty map.
func (l *Loader) LoadMetadata(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() || strings.TrimRight(scanner.Text(), " \t") != "---" {
		return map[string]any{}, nil
	}

	var lines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimRight(line, " \t") == "---" {
			closed = true
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if !closed {
		return map[string]any{}, nil
	}

	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse front matter: %w", err)
	}
	return meta, nil
}

// Merge combines a template definition with document metadata into
// pandoc arguments. Metadata keys become -M options; template variables
// become -V options.
func (l *Loader) Merge(def Definition, meta map[string]any) []string {
	args := append([]string{}, def.Args...)

	varKeys := make([]string, 0, len(def.Variables))
	for k := range def.Variables {
		varKeys = append(varKeys, k)
	}
	sort.Strings(varKeys)
	for _, k := range varKeys {
		args = append(args, "-V", fmt.Sprintf("%s=%s", k, def.Variables[k]))
	}

	metaKeys := make([]string, 0, len(meta))
	for k := range meta {
		metaKeys = append(metaKeys, k)
	}
	sort.Strings(metaKeys)
	for _, k := range metaKeys {
		args = append(args, "-M", fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return args
}
