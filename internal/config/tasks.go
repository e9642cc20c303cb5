package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aayamfest/ambassador/backend/internal/models"
)

//go:embed tasks.yaml
var defaultTasks []byte

type taskCatalogue struct {
	Tasks []models.CreateTaskRequest `yaml:"tasks"`
}

// LoadTasks reads the task catalogue from path, or the built-in one when
// path is empty. Every entry is validated and names must be unique.
func LoadTasks(path string) ([]models.CreateTaskRequest, error) {
	data := defaultTasks
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read task catalogue: %w", err)
		}
	}
	return ParseTasks(data)
}

// ParseTasks decodes and validates a YAML task catalogue.
func ParseTasks(data []byte) ([]models.CreateTaskRequest, error) {
	var cat taskCatalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse task catalogue: %w", err)
	}

	seen := make(map[string]bool, len(cat.Tasks))
	for i, t := range cat.Tasks {
		if err := validate.Struct(t); err != nil {
			return nil, fmt.Errorf("invalid task at index %d: %w", i, err)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate task name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return cat.Tasks, nil
}
