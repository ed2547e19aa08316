// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for inkwell.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: the complete configuration, one struct per TOML section
//   - ValidateErrors: every problem Validate found
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (INKWELL_*, OPENAI_API_KEY)
//   - ~/.inkwell/config.toml (or $INKWELL_HOME/config.toml)
//   - ~/.inkwell/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model, _ := cfg.Get("cloud.model")
package config
