// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

const configSchema = `{
  "type": "object",
  "description": "Configuration for the event-file loading core.",
  "properties": {
    "logdir": {
      "description": "Root path or object-store prefix to load event files from.",
      "type": "string"
    },
    "reload_interval_seconds": {
      "description": "Seconds to sleep between reload cycles.",
      "type": "integer",
      "minimum": 1
    },
    "checksum_always": {
      "description": "Verify the payload CRC before every structured decode instead of only on decode failure.",
      "type": "boolean"
    },
    "samples_per_plugin": {
      "description": "Per-plugin reservoir capacity overrides, e.g. 'images=10,scalars=all'.",
      "type": "string"
    },
    "num_workers": {
      "description": "Bound on concurrent per-run commit fan-out during a reload cycle.",
      "type": "integer",
      "minimum": 1
    },
    "s3": {
      "description": "Remote object-store backend configuration; omit to use the local filesystem.",
      "type": "object",
      "properties": {
        "endpoint": { "type": "string" },
        "bucket": { "type": "string" },
        "prefix": { "type": "string" },
        "region": { "type": "string" },
        "access_key": { "type": "string" },
        "secret_key": { "type": "string" },
        "use_path_style": { "type": "boolean" },
        "buffer_size_bytes": { "type": "integer", "minimum": 1 }
      },
      "required": ["bucket"]
    }
  },
  "required": ["logdir"]
}`
