/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
nostrstore uses it to derive store open options (database path, busy timeout,
scratch capacity) from YAML/JSON configuration without verbose type
assertions and nil checks.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "busy_timeout": "5s",
	    "path":         "events.db",
	    "tracing":      true,
	})

	timeout := cfg.Duration("busy_timeout", 5*time.Second) // 5s
	path := cfg.String("path", ":memory:")                 // "events.db"
	tracing := cfg.Bool("tracing", false)                  // true

# File Loading

Load configuration from YAML or JSON files:

	cfg, err := config.FromFile("store.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	// Or load from bytes
	cfg, err = config.FromYAML(yamlBytes)
	cfg, err = config.FromJSON(jsonBytes)

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation. However, if the original map is modified
externally, behavior is undefined.
*/
package config
