package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

// ErrInvalidDocument is returned when an import file cannot be interpreted.
var ErrInvalidDocument = errors.New("invalid technician document")

// stringList accepts either a comma-delimited string or a sequence of strings.
type stringList []string

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = core.ParseSpecialties(value.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*s = out
		return nil
	}
	return fmt.Errorf("%w: line %d: expected string or list", ErrInvalidDocument, value.Line)
}

type technicianDoc struct {
	Name        string     `yaml:"name"`
	Email       string     `yaml:"email"`
	Phone       string     `yaml:"phone"`
	Service     string     `yaml:"service"`
	Description string     `yaml:"description"`
	Specialties stringList `yaml:"specialties"`
	Languages   stringList `yaml:"languages"`
	Location    string     `yaml:"location"`
	Address     string     `yaml:"address"`
	Rating      float64    `yaml:"rating"`
	ReviewCount int        `yaml:"reviewCount"`
	Available   *bool      `yaml:"isAvailable"`
}

func (d technicianDoc) technician() *core.Technician {
	available := true
	if d.Available != nil {
		available = *d.Available
	}
	return &core.Technician{
		Name:        strings.TrimSpace(d.Name),
		Email:       d.Email,
		Phone:       d.Phone,
		Service:     strings.TrimSpace(d.Service),
		Description: d.Description,
		Specialties: []string(d.Specialties),
		Languages:   []string(d.Languages),
		Location:    d.Location,
		Address:     d.Address,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		Available:   available,
	}
}

// Load reads technicians from YAML or JSON. The document is either a list of
// technicians or a mapping with a "technicians" list. Specialties and
// languages may be given as a list or as one comma-delimited string.
// Every technician is validated.
func Load(r io.Reader) ([]*core.Technician, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	var docs []technicianDoc
	body := &root
	if body.Kind == yaml.DocumentNode && len(body.Content) > 0 {
		body = body.Content[0]
	}
	switch body.Kind {
	case yaml.SequenceNode:
		if err := body.Decode(&docs); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	case yaml.MappingNode:
		var wrapper struct {
			Technicians []technicianDoc `yaml:"technicians"`
		}
		if err := body.Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		docs = wrapper.Technicians
	default:
		return nil, fmt.Errorf("%w: expected a list or a technicians mapping", ErrInvalidDocument)
	}

	out := make([]*core.Technician, 0, len(docs))
	for i, d := range docs {
		t := d.technician()
		if err := core.ValidateTechnician(t); err != nil {
			return nil, fmt.Errorf("technician %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// LoadFile reads technicians from a YAML or JSON file.
func LoadFile(path string) ([]*core.Technician, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Unseen returns the incoming technicians that are not already present in
// existing, matching on name and email case-insensitively.
func Unseen(existing, incoming []*core.Technician) []*core.Technician {
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[identity(t)] = struct{}{}
	}
	out := make([]*core.Technician, 0, len(incoming))
	for _, t := range incoming {
		key := identity(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func identity(t *core.Technician) string {
	return strings.ToLower(t.Name) + "\x00" + strings.ToLower(t.Email)
}
