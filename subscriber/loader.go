package subscriber

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

/* The initial subscriber set is declared in subscribers.yaml and loaded at
 * process start. Runtime appends (admin API) do not touch the file.
 */

// File represents the structure of subscribers.yaml
type File struct {
	Subscribers []Config `yaml:"subscribers"`
}

// Config represents a single subscriber entry in the YAML file
type Config struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	BaseURL     string `yaml:"base_url"`
	WebhookPath string `yaml:"webhook_path"`
	VerifyPath  string `yaml:"verify_path"`
	Enabled     *bool  `yaml:"enabled"`    // Optional: defaults to true
	TimeoutMS   int    `yaml:"timeout_ms"` // Optional: 0 means phase default
}

// LoadFile reads and parses a subscribers YAML file, returning validated
// subscribers in file order. Duplicate identifiers are rejected here so a
// bad file fails fast at startup rather than at resolution time.
func LoadFile(path string) ([]Subscriber, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading subscribers file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing subscribers YAML: %w", err)
	}

	seen := make(map[string]bool, len(file.Subscribers))
	subs := make([]Subscriber, 0, len(file.Subscribers))
	for _, c := range file.Subscribers {
		// Absent enabled flag means enabled
		enabled := true
		if c.Enabled != nil {
			enabled = *c.Enabled
		}

		sub := Subscriber{
			ID:          c.ID,
			Name:        c.Name,
			BaseURL:     c.BaseURL,
			WebhookPath: c.WebhookPath,
			VerifyPath:  c.VerifyPath,
			Enabled:     enabled,
			Timeout:     time.Duration(c.TimeoutMS) * time.Millisecond,
		}
		sub.Normalize()

		if err := sub.Validate(); err != nil {
			return nil, fmt.Errorf("validating subscriber: %w", err)
		}
		if seen[sub.ID] {
			return nil, fmt.Errorf("subscriber %s: %w", sub.ID, ErrDuplicateID)
		}
		seen[sub.ID] = true
		subs = append(subs, sub)
	}

	return subs, nil
}
