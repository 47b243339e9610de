package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// WhitelistConfig gates terminal command execution. When disabled, every
// command is admitted. Patterns are glob expressions matched against the
// whole command string, e.g. "git *" or "npm run *".
type WhitelistConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

// Matcher compiles the patterns into a predicate suitable for the
// terminal manager. A disabled whitelist returns a nil predicate,
// meaning allow-all.
func (w WhitelistConfig) Matcher() (func(command string) bool, error) {
	if !w.Enabled {
		return nil, nil
	}

	globs := make([]glob.Glob, 0, len(w.Patterns))
	for _, pattern := range w.Patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid whitelist pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	return func(command string) bool {
		command = strings.TrimSpace(command)
		for _, g := range globs {
			if g.Match(command) {
				return true
			}
		}
		return false
	}, nil
}
