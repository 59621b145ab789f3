// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"retail-chat-workers/pkg/registry"
)

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ExitOnError)
		path := fs.String("path", "", "Registry file (empty checks the embedded registry)")
		_ = fs.Parse(args)
		return validateRegistry(*path, out)

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		path := fs.String("path", "pkg/registry/activities.json", "Registry file")
		taskType := fs.String("taskType", "", "Zeebe task type of the activity")
		field := fs.String("field", "", "Field to update (status, version, timeout, retries)")
		value := fs.String("value", "", "New value")
		_ = fs.Parse(args)
		if *taskType == "" || *field == "" || *value == "" {
			return fmt.Errorf("taskType, field and value are required for update")
		}
		if err := updateActivity(*path, *taskType, *field, *value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated %s: %s = %s\n", *taskType, *field, *value)
		return nil

	case "check-input":
		fs := flag.NewFlagSet("check-input", flag.ExitOnError)
		path := fs.String("path", "", "Registry file (empty uses the embedded registry)")
		taskType := fs.String("taskType", "", "Zeebe task type of the activity")
		vars := fs.String("vars", "", "JSON file holding the job variables")
		_ = fs.Parse(args)
		if *taskType == "" || *vars == "" {
			return fmt.Errorf("taskType and vars are required for check-input")
		}
		return checkInput(*path, *taskType, *vars, out)

	default:
		help()
		return nil
	}
}

func validateRegistry(path string, out io.Writer) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}
	for _, a := range reg.Activities {
		if a.DisplayName == "" {
			return fmt.Errorf("activity %s missing displayName", a.ID)
		}
		if len(a.ErrorCodes) == 0 {
			return fmt.Errorf("activity %s declares no error codes", a.ID)
		}
	}
	fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func updateActivity(path, taskType, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	activity, ok := reg.Find(taskType)
	if !ok {
		return fmt.Errorf("no activity with task type %s", taskType)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", value, err)
		}
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("invalid retries value %q", value)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return saveRegistry(reg, path)
}

// checkInput runs a job variables file through an activity's input schema.
func checkInput(path, taskType, varsPath string, out io.Writer) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, ok := reg.Find(taskType)
	if !ok {
		return fmt.Errorf("no activity with task type %s", taskType)
	}

	data, err := os.ReadFile(varsPath)
	if err != nil {
		return err
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("parse variables: %w", err)
	}

	result, err := activity.ValidateInput(vars)
	if err != nil {
		return err
	}
	if !result.Valid {
		for _, msg := range result.GetErrorMessages() {
			fmt.Fprintln(out, "  "+msg)
		}
		return fmt.Errorf("%d schema violation(s) for %s", len(result.Errors), taskType)
	}
	fmt.Fprintf(out, "Variables are valid for %s.\n", taskType)
	return nil
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  validate     Validate a registry file or the embedded registry
  update       Update one field of an activity
  check-input  Validate job variables against an activity's input schema

Examples:
  registry-updater validate
  registry-updater update -taskType capture-lead -field timeout -value 90s
  registry-updater check-input -taskType generate-chat-response -vars job.json`)
}
