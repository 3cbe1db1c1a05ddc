package agents

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed personas.yaml
var defaultPersonas []byte

type Persona struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Heading     string   `yaml:"heading"`
	Temperature float64  `yaml:"temperature"`
	DomainTerms []string `yaml:"domain_terms"`
	SourceTerms []string `yaml:"source_terms"`
	Persona     string   `yaml:"persona"`
	Guidance    string   `yaml:"guidance"`
}

// LoadPersonas reads mentor definitions from path, or the built-in council
// when path is empty.
func LoadPersonas(path string) ([]Persona, error) {
	data := defaultPersonas
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading personas file: %w", err)
		}
	}
	return ParsePersonas(data)
}

func ParsePersonas(data []byte) ([]Persona, error) {
	var personas []Persona
	if err := yaml.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("error parsing personas: %w", err)
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("no personas defined")
	}

	for i, p := range personas {
		if p.Name == "" || p.Persona == "" {
			return nil, fmt.Errorf("persona %d is missing a name or persona text", i)
		}
		if p.Heading == "" {
			personas[i].Heading = strings.ToUpper(p.Name)
		}
	}
	return personas, nil
}

// Matches reports whether a document's domain or source belongs to this mentor.
func (p Persona) Matches(domain, source string) bool {
	domain, source = strings.ToLower(domain), strings.ToLower(source)
	for _, term := range p.DomainTerms {
		if strings.Contains(domain, strings.ToLower(term)) {
			return true
		}
	}
	for _, term := range p.SourceTerms {
		if strings.Contains(source, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
