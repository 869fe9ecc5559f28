// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the loader's own configuration
// document, following internal/config's json-schema-validated decode
// pattern.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// S3 holds the remote object-store backend settings. Zero value (Bucket
// empty) means "use the local filesystem" per Config.UsesS3.
type S3 struct {
	Endpoint        string `json:"endpoint,omitempty"`
	Bucket          string `json:"bucket,omitempty"`
	Prefix          string `json:"prefix,omitempty"`
	Region          string `json:"region,omitempty"`
	AccessKey       string `json:"access_key,omitempty"`
	SecretKey       string `json:"secret_key,omitempty"`
	UsePathStyle    bool   `json:"use_path_style,omitempty"`
	BufferSizeBytes int    `json:"buffer_size_bytes,omitempty"`
}

// Config is the loader's own configuration document.
type Config struct {
	LogDir                string `json:"logdir"`
	ReloadIntervalSeconds int    `json:"reload_interval_seconds,omitempty"`
	ChecksumAlways        bool   `json:"checksum_always,omitempty"`
	SamplesPerPlugin      string `json:"samples_per_plugin,omitempty"`
	NumWorkers            int    `json:"num_workers,omitempty"`
	S3                    *S3    `json:"s3,omitempty"`
}

// UsesS3 reports whether the document selects the S3 backend.
func (c *Config) UsesS3() bool { return c.S3 != nil && c.S3.Bucket != "" }

// ReloadInterval returns the configured inter-cycle delay, defaulting to 5
// seconds to match spec.md §6's CLI default.
func (c *Config) ReloadInterval() time.Duration {
	if c.ReloadIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ReloadIntervalSeconds) * time.Second
}

// Load reads, schema-validates, and strictly decodes the document at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := Validate(raw); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}
