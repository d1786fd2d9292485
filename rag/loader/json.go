package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smallnest/faqgraph/rag"
	"gopkg.in/yaml.v3"
)

// JSONLoader reads FAQs from a JSON or YAML file. The file holds either a
// list of FAQs or an object with a "faqs" list.
type JSONLoader struct {
	path string
}

// NewJSONLoader creates a loader for path. YAML is read for .yaml/.yml
// extensions.
func NewJSONLoader(path string) *JSONLoader {
	return &JSONLoader{path: path}
}

type faqFile struct {
	FAQs []rag.FAQ `json:"faqs" yaml:"faqs"`
}

// Load implements FAQLoader.
func (l *JSONLoader) Load(ctx context.Context) ([]rag.FAQ, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read faq file %s: %w", l.path, err)
	}

	var faqs []rag.FAQ
	switch strings.ToLower(filepath.Ext(l.path)) {
	case ".yaml", ".yml":
		faqs, err = decodeYAML(data)
	default:
		faqs, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse faq file %s: %w", l.path, err)
	}
	if err := validate(faqs); err != nil {
		return nil, fmt.Errorf("invalid faq file %s: %w", l.path, err)
	}
	return faqs, nil
}

func decodeJSON(data []byte) ([]rag.FAQ, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var faqs []rag.FAQ
		err := json.Unmarshal(trimmed, &faqs)
		return faqs, err
	}
	var f faqFile
	err := json.Unmarshal(trimmed, &f)
	return f.FAQs, err
}

func decodeYAML(data []byte) ([]rag.FAQ, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		var faqs []rag.FAQ
		err := node.Decode(&faqs)
		return faqs, err
	}
	var f faqFile
	err := node.Decode(&f)
	return f.FAQs, err
}
