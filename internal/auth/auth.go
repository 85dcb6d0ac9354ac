// Package auth resolves bearer API keys to projects.
package auth

import (
	"fmt"
	"strings"

	"github.com/straja-ai/arrhythmia/internal/config"
)

// Project is the runtime identity behind an API key.
type Project struct {
	ID string
}

// Auth maps API keys to projects. With no projects configured it is open.
type Auth struct {
	keys map[string]Project
}

// NewFromConfig builds an Auth instance from the loaded config.
func NewFromConfig(cfg *config.Config) (*Auth, error) {
	keys := make(map[string]Project)
	for _, p := range cfg.Projects {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("project with empty id in config")
		}
		for _, key := range p.APIKeys {
			if key == "" {
				continue
			}
			if owner, exists := keys[key]; exists {
				return nil, fmt.Errorf("api key of project %q already belongs to project %q", p.ID, owner.ID)
			}
			keys[key] = Project{ID: p.ID}
		}
	}
	return &Auth{keys: keys}, nil
}

// Required reports whether requests must carry an API key.
func (a *Auth) Required() bool {
	return a != nil && len(a.keys) > 0
}

// Lookup returns the project for a given API key, if any.
func (a *Auth) Lookup(apiKey string) (Project, bool) {
	if a == nil {
		return Project{}, false
	}
	p, ok := a.keys[apiKey]
	return p, ok
}

// ParseBearerToken extracts the token from an Authorization header value.
func ParseBearerToken(h string) (string, bool) {
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
