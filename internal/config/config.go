// Package config loads project-level configuration for the preprocessor
// and target selection from an optional ".cuik.kdl" file: defaults are
// filled first, then overridden node-by-node from the parsed document.
package config

// Config is the project configuration consumed by the driver before
// preprocessing begins.
type Config struct {
	// Target selects a registered target.Desc by name (e.g. "x86_64").
	Target string
	// System selects the OS family predefines within the target
	// ("windows" or "linux").
	System string
	// Include is the ordered list of user search paths for #include "...".
	Include []string
	// Defines are macro bindings injected as if from a command-line -D,
	// applied in order after the target's own predefines.
	Defines []Define
	// ThinErrors, when true, suppresses line previews/carets in diagnostics.
	ThinErrors bool
}

// Define is one "-D key=value" style binding.
type Define struct {
	Key   string
	Value string
}

// Default returns the configuration used when no .cuik.kdl is present.
func Default() *Config {
	return &Config{
		Target:     "x86_64",
		System:     "linux",
		Include:    nil,
		Defines:    nil,
		ThinErrors: false,
	}
}
