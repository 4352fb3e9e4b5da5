package llm

import (
	"embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"
	"gopkg.in/yaml.v3"
)

// DefaultPromptVersion is the prompt shipped with the binary.
const DefaultPromptVersion = "v1"

//go:embed prompts/*.yaml
var promptFS embed.FS

// PromptConfig is the instruction text and response schema sent with every
// analysis request. It is loaded from versioned YAML rather than built in
// code so it can be swapped without touching the call sites.
type PromptConfig struct {
	Version     string     `yaml:"version"`
	Instruction string     `yaml:"instruction"`
	Schema      SchemaNode `yaml:"schema"`
}

// SchemaNode is a provider-neutral subset of JSON schema. Properties are a
// list to keep their declared order.
type SchemaNode struct {
	Name        string       `yaml:"name,omitempty"`
	Type        string       `yaml:"type"`
	Description string       `yaml:"description,omitempty"`
	Enum        []string     `yaml:"enum,omitempty"`
	Items       *SchemaNode  `yaml:"items,omitempty"`
	Properties  []SchemaNode `yaml:"properties,omitempty"`
	Required    []string     `yaml:"required,omitempty"`
}

// LoadPrompt loads an embedded prompt by version (e.g. "v1").
func LoadPrompt(version string) (*PromptConfig, error) {
	data, err := promptFS.ReadFile("prompts/ecg-" + version + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown prompt version %q: %w", version, err)
	}
	return parsePrompt(data)
}

// LoadPromptFile loads a prompt override from disk.
func LoadPromptFile(path string) (*PromptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	return parsePrompt(data)
}

func parsePrompt(data []byte) (*PromptConfig, error) {
	var p PromptConfig
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompt yaml: %w", err)
	}
	p.Instruction = strings.TrimSpace(dedent.Dedent(p.Instruction))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the schema still describes an ecg.AnalysisResult.
func (p *PromptConfig) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("prompt version is required")
	}
	if p.Instruction == "" {
		return fmt.Errorf("prompt %s: instruction is required", p.Version)
	}
	if err := validateNode(&p.Schema, "schema"); err != nil {
		return fmt.Errorf("prompt %s: %w", p.Version, err)
	}
	if p.Schema.Type != "object" {
		return fmt.Errorf("prompt %s: top-level schema must be an object", p.Version)
	}

	metrics := p.Schema.property("metrics")
	if metrics == nil || metrics.Type != "array" || metrics.Items == nil || metrics.Items.Type != "object" {
		return fmt.Errorf("prompt %s: metrics must be an array of objects", p.Version)
	}
	for _, field := range []string{"name", "value", "interpretation"} {
		if prop := metrics.Items.property(field); prop == nil || prop.Type != "string" {
			return fmt.Errorf("prompt %s: metric field %q must be a string", p.Version, field)
		}
	}

	level := p.Schema.property("arrhythmiaLevel")
	if level == nil || level.Type != "string" {
		return fmt.Errorf("prompt %s: arrhythmiaLevel must be a string", p.Version)
	}
	got := slices.Clone(level.Enum)
	want := ecg.LevelStrings()
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		return fmt.Errorf("prompt %s: arrhythmiaLevel enum must be %v, got %v", p.Version, ecg.LevelStrings(), level.Enum)
	}

	if summary := p.Schema.property("summary"); summary == nil || summary.Type != "string" {
		return fmt.Errorf("prompt %s: summary must be a string", p.Version)
	}
	for _, field := range []string{"metrics", "arrhythmiaLevel", "summary"} {
		if !slices.Contains(p.Schema.Required, field) {
			return fmt.Errorf("prompt %s: %q must be required", p.Version, field)
		}
	}
	return nil
}

func validateNode(n *SchemaNode, path string) error {
	if _, ok := geminiTypes[n.Type]; !ok {
		return fmt.Errorf("%s: unsupported type %q", path, n.Type)
	}
	if n.Type == "array" && n.Items == nil {
		return fmt.Errorf("%s: array without items", path)
	}
	if n.Items != nil {
		if err := validateNode(n.Items, path+".items"); err != nil {
			return err
		}
	}
	for i := range n.Properties {
		prop := &n.Properties[i]
		if prop.Name == "" {
			return fmt.Errorf("%s: property %d has no name", path, i)
		}
		if err := validateNode(prop, path+"."+prop.Name); err != nil {
			return err
		}
	}
	for _, req := range n.Required {
		if n.property(req) == nil {
			return fmt.Errorf("%s: required property %q is not declared", path, req)
		}
	}
	return nil
}

func (n *SchemaNode) property(name string) *SchemaNode {
	for i := range n.Properties {
		if n.Properties[i].Name == name {
			return &n.Properties[i]
		}
	}
	return nil
}

var geminiTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"array":   genai.TypeArray,
	"string":  genai.TypeString,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"boolean": genai.TypeBoolean,
}

var openaiTypes = map[string]jsonschema.DataType{
	"object":  jsonschema.Object,
	"array":   jsonschema.Array,
	"string":  jsonschema.String,
	"integer": jsonschema.Integer,
	"number":  jsonschema.Number,
	"boolean": jsonschema.Boolean,
}

// GeminiSchema converts the schema into Gemini's structured-output format.
func (p *PromptConfig) GeminiSchema() *genai.Schema {
	return toGeminiSchema(&p.Schema)
}

func toGeminiSchema(n *SchemaNode) *genai.Schema {
	s := &genai.Schema{
		Type:        geminiTypes[n.Type],
		Description: n.Description,
		Enum:        n.Enum,
		Required:    n.Required,
	}
	if n.Items != nil {
		s.Items = toGeminiSchema(n.Items)
	}
	if len(n.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(n.Properties))
		s.PropertyOrdering = make([]string, 0, len(n.Properties))
		for i := range n.Properties {
			prop := &n.Properties[i]
			s.Properties[prop.Name] = toGeminiSchema(prop)
			s.PropertyOrdering = append(s.PropertyOrdering, prop.Name)
		}
	}
	return s
}

// OpenAISchema converts the schema into a strict JSON schema for the
// chat completions response_format.
func (p *PromptConfig) OpenAISchema() jsonschema.Definition {
	return toOpenAISchema(&p.Schema)
}

func toOpenAISchema(n *SchemaNode) jsonschema.Definition {
	d := jsonschema.Definition{
		Type:        openaiTypes[n.Type],
		Description: n.Description,
		Enum:        n.Enum,
		Required:    n.Required,
	}
	if n.Items != nil {
		items := toOpenAISchema(n.Items)
		d.Items = &items
	}
	if n.Type == "object" {
		d.Properties = make(map[string]jsonschema.Definition, len(n.Properties))
		for i := range n.Properties {
			prop := &n.Properties[i]
			d.Properties[prop.Name] = toOpenAISchema(prop)
		}
		d.AdditionalProperties = false
	}
	return d
}
