package candidates

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// ErrInvalidDocument is returned when a candidate document fails validation.
var ErrInvalidDocument = errors.New("invalid candidate document")

// Document is one region's ordered candidate list.
type Document struct {
	RegionKey  string `json:"regionKey"`
	RegionName string `json:"regionName"`
	Items      []Item `json:"items"`
}

// Item is one geography division awaiting account creation.
type Item struct {
	Division string  `json:"division"`
	Domain   string  `json:"domain"`
	Payload  Payload `json:"payload"`
}

// Payload is the creation request body. Only "name" is interpreted.
type Payload map[string]any

// Name returns the payload's trimmed "name" field, or "" when absent.
func (p Payload) Name() string {
	name, _ := p["name"].(string)
	return strings.TrimSpace(name)
}

// Candidate binds an item to its region for the orchestrator.
type Candidate struct {
	RegionKey string
	Item
}

// Name returns the target account name.
func (c Candidate) Name() string {
	return c.Payload.Name()
}

// String identifies the candidate in logs.
func (c Candidate) String() string {
	return fmt.Sprintf("%s/%s (%s)", c.RegionKey, c.Division, c.Domain)
}

// Candidates returns the document's items bound to its region, in order.
func (d *Document) Candidates() []Candidate {
	out := make([]Candidate, 0, len(d.Items))
	for _, item := range d.Items {
		out = append(out, Candidate{RegionKey: d.RegionKey, Item: item})
	}
	return out
}

// Load reads and validates a candidate document from path.
func Load(path string) (*Document, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate list: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON or YAML candidate document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks required fields. All item problems are reported at once.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.RegionKey) == "" {
		return fmt.Errorf("%w: regionKey is required", ErrInvalidDocument)
	}

	var problems []string
	for i, item := range d.Items {
		if strings.TrimSpace(item.Division) == "" {
			problems = append(problems, fmt.Sprintf("items[%d]: division is required", i))
		}
		if item.Payload.Name() == "" {
			problems = append(problems, fmt.Sprintf("items[%d]: payload.name is required", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
	}
	return nil
}
