// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"retail-chat-workers/internal/common/validation"
)

//go:embed activities.json
var defaultActivities []byte

// Default returns the activity registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	return parse(defaultActivities)
}

// LoadRegistry reads a registry file; an empty path yields Default.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks id naming and task-type uniqueness.
func (r *ActivityRegistry) Validate() error {
	var problems []string
	seen := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if err := validation.ValidateActivityNaming(a.ID); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", a.ID, err))
		}
		if a.TaskType == "" {
			problems = append(problems, fmt.Sprintf("%s: missing taskType", a.ID))
		} else if seen[a.TaskType] {
			problems = append(problems, fmt.Sprintf("%s: duplicate taskType %s", a.ID, a.TaskType))
		}
		seen[a.TaskType] = true
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("%s: invalid timeout %q", a.ID, a.Timeout))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid registry: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Find returns the activity bound to a Zeebe task type.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// ValidateInput validates job variables against the activity's input schema.
func (a *Activity) ValidateInput(vars map[string]interface{}) (*validation.ValidationResult, error) {
	return validation.ValidateInput(vars, a.InputSchema)
}

// TimeoutDuration falls back to def when the activity has no parsable timeout.
func (a *Activity) TimeoutDuration(def time.Duration) time.Duration {
	if d, err := time.ParseDuration(a.Timeout); err == nil && d > 0 {
		return d
	}
	return def
}
