package notifier

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Catalog holds named message templates loaded from the embedded YAML file.
type Catalog struct {
	entries map[string]catalogEntry
}

type catalogEntry struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Rendered is a template after placeholder substitution.
type Rendered struct {
	Subject string
	Body    string
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	catalog, err := ParseCatalog(templatesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded template catalog is invalid: %v", err))
	}
	return catalog
})

// DefaultCatalog returns the embedded template catalog.
func DefaultCatalog() *Catalog { return defaultCatalog() }

// ParseCatalog loads a catalog from YAML.
func ParseCatalog(raw []byte) (*Catalog, error) {
	entries := map[string]catalogEntry{}
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	return &Catalog{entries: entries}, nil
}

// Render fills the named template with data.
func (c *Catalog) Render(name string, data map[string]any) (*Rendered, error) {
	entry, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	body, err := renderText(entry.Body, data)
	if err != nil {
		return nil, fmt.Errorf("render template %q: %w", name, err)
	}
	subject, err := renderText(entry.Subject, data)
	if err != nil {
		return nil, fmt.Errorf("render subject %q: %w", name, err)
	}
	return &Rendered{Subject: subject, Body: body}, nil
}

func renderText(text string, data map[string]any) (string, error) {
	tmpl, err := template.New("message").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
