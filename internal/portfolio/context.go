// Package portfolio holds the static personal-context document the chat
// assistant is allowed to answer from, and renders it into a system prompt.
package portfolio

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

// Context is the read-only portfolio document. It is built once at process
// start and passed by pointer to whatever needs it.
type Context struct {
	Personal     Personal     `yaml:"personal"`
	Bio          string       `yaml:"bio"`
	Experience   []Experience `yaml:"experience"`
	Projects     []Project    `yaml:"projects"`
	Skills       SkillSet     `yaml:"skills"`
	AvailableFor []string     `yaml:"availableFor"`
}

// Personal carries identity and contact fields.
type Personal struct {
	Name            string `yaml:"name"`
	Title           string `yaml:"title"`
	Company         string `yaml:"company"`
	Location        string `yaml:"location"`
	YearsExperience string `yaml:"yearsExperience"`
	Specialization  string `yaml:"specialization"`
	Email           string `yaml:"email"`
	Social          Social `yaml:"social"`
}

// Social holds profile links.
type Social struct {
	GitHub        string `yaml:"github"`
	LinkedIn      string `yaml:"linkedin"`
	Twitter       string `yaml:"twitter"`
	GoogleScholar string `yaml:"googleScholar"`
}

// Experience is one position in the work history.
type Experience struct {
	Title            string   `yaml:"title"`
	Company          string   `yaml:"company"`
	Duration         string   `yaml:"duration"`
	Responsibilities []string `yaml:"responsibilities"`
}

// Project is a featured project summary.
type Project struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Technologies []string `yaml:"technologies"`
}

// SkillGroup is one category of the skills mapping.
type SkillGroup struct {
	Category string
	Items    []string
}

// SkillSet is the skills-by-category mapping. Document order is kept so the
// rendered prompt is stable across runs.
type SkillSet []SkillGroup

// UnmarshalYAML decodes a mapping of category -> list while preserving key order.
func (s *SkillSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("skills: expected mapping, got node kind %d", value.Kind)
	}
	out := make(SkillSet, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var items []string
		if err := value.Content[i+1].Decode(&items); err != nil {
			return fmt.Errorf("skills %q: %w", value.Content[i].Value, err)
		}
		out = append(out, SkillGroup{Category: value.Content[i].Value, Items: items})
	}
	*s = out
	return nil
}

// Categories returns the category names in document order.
func (s SkillSet) Categories() []string {
	names := make([]string, len(s))
	for i, g := range s {
		names[i] = g.Category
	}
	return names
}

// FirstName returns the first word of the subject's name.
func (c *Context) FirstName() string {
	for i, r := range c.Personal.Name {
		if r == ' ' {
			return c.Personal.Name[:i]
		}
	}
	return c.Personal.Name
}

// Validate checks the fields the prompt depends on.
func (c *Context) Validate() error {
	if c.Personal.Name == "" {
		return errors.New("personal.name is required")
	}
	if c.Personal.Title == "" {
		return errors.New("personal.title is required")
	}
	if len(c.Skills) == 0 {
		return errors.New("skills must contain at least one category")
	}
	return nil
}

// Load reads a portfolio document from path. An empty path selects the
// embedded default document.
func Load(path string) (*Context, error) {
	data := defaultDocument
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read portfolio context: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes and validates a YAML portfolio document.
func Parse(data []byte) (*Context, error) {
	var c Context
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode portfolio context: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portfolio context: %w", err)
	}
	return &c, nil
}
