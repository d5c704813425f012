// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for askrod.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Base URL and timeout of the answering service
//   - RevealConfig: Typing effect cadence
//   - LogConfig: Rotating log file settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ASKROD_*, NEXT_PUBLIC_BACKEND_URL)
//   - ~/.askrod/config.toml
//   - ~/.askrod/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := query.NewClient(cfg.Backend.URL, query.WithTimeout(cfg.BackendTimeout()))
package config
