package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate checks a configuration for problems that would surface later as
// confusing runtime failures.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Output.Path) == "" {
		return fmt.Errorf("output.path must not be empty")
	}
	for _, pattern := range cfg.Walk.IgnorePatterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("walk.ignore_patterns: invalid pattern %q: %w", pattern, err)
		}
	}
	for _, dir := range cfg.Walk.IgnoreDirs {
		if strings.ContainsAny(dir, "/\\") {
			return fmt.Errorf("walk.ignore_dirs: %q must be a bare directory name, not a path", dir)
		}
	}
	return nil
}
