// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command metric-loader wires a log-directory loader over a local or S3
// storage backend and drives its reload cycle. It demonstrates the core
// library's construction, not the full process contract described in
// spec.md §6 (no port file, no bind/serve, no stdin watchdog, no exit-code
// table) — those belong to a process wrapper outside this core's scope.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/ClusterCockpit/cc-metric-loader/internal/commit"
	"github.com/ClusterCockpit/cc-metric-loader/internal/config"
	"github.com/ClusterCockpit/cc-metric-loader/internal/logdir"
	"github.com/ClusterCockpit/cc-metric-loader/pkg/storage"
)

func main() {
	var (
		flagLogDir           string
		flagReload           string
		flagChecksum         bool
		flagSamplesPerPlugin string
		flagConfigFile       string
	)
	flag.StringVar(&flagLogDir, "logdir", "", "Root path to watch for event files")
	flag.StringVar(&flagReload, "reload", "5", "Inter-cycle delay in seconds, or \"once\" for a single cycle")
	flag.BoolVar(&flagChecksum, "checksum", false, "Verify payload CRC before every decode, instead of only on decode failure")
	flag.StringVar(&flagSamplesPerPlugin, "samples_per_plugin", "", "Comma-separated plugin=N|all reservoir capacity overrides")
	flag.StringVar(&flagConfigFile, "config", "", "Optional JSON config file; when set it replaces the flags above, except that -reload once still runs a single cycle")
	flag.Parse()

	cfg, err := resolveConfig(flagConfigFile, flagLogDir, flagReload, flagChecksum, flagSamplesPerPlugin)
	if err != nil {
		cclog.Fatalf("metric-loader: %s", err.Error())
	}

	overrides, err := config.ParseSamplingHints(cfg.SamplesPerPlugin)
	if err != nil {
		cclog.Fatalf("metric-loader: --samples_per_plugin: %s", err.Error())
	}

	backend, err := newBackend(cfg)
	if err != nil {
		cclog.Fatalf("metric-loader: %s", err.Error())
	}

	opts := []logdir.Option{
		logdir.WithChecksumAlways(cfg.ChecksumAlways),
		logdir.WithCapacityOverrides(overrides),
		logdir.WithSeed(uint64(time.Now().UnixNano())),
	}
	if cfg.NumWorkers > 0 {
		// A non-positive value leaves the loader's own
		// NumCPU-derived default in place.
		opts = append(opts, logdir.WithNumWorkers(cfg.NumWorkers))
	}

	snapshot := commit.New()
	loader := logdir.New(backend, snapshot, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cclog.Info("metric-loader: shutting down")
		cancel()
	}()

	interval := cfg.ReloadInterval()
	if flagReload == "once" {
		interval = 0
	}

	if err := loader.Run(ctx, interval); err != nil {
		cclog.Fatalf("metric-loader: reload failed: %s", err.Error())
	}
	cclog.Infof("metric-loader: known runs: %d", len(snapshot.Runs()))
}

// resolveConfig builds a config.Config either from a JSON file or from the
// subset of CLI flags this core consumes.
func resolveConfig(configFile, logDir, reload string, checksum bool, samplesPerPlugin string) (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}

	cfg := &config.Config{
		LogDir:           logDir,
		ChecksumAlways:   checksum,
		SamplesPerPlugin: samplesPerPlugin,
	}
	if reload != "once" {
		if d, err := time.ParseDuration(reload + "s"); err == nil {
			cfg.ReloadIntervalSeconds = int(d.Seconds())
		}
	}
	return cfg, nil
}

func newBackend(cfg *config.Config) (storage.Storage, error) {
	if cfg.UsesS3() {
		return storage.NewS3(storage.S3Config{
			Endpoint:     cfg.S3.Endpoint,
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			Region:       cfg.S3.Region,
			UsePathStyle: cfg.S3.UsePathStyle,
			BufferSize:   cfg.S3.BufferSizeBytes,
		})
	}
	return storage.NewLocalFS(cfg.LogDir), nil
}
