// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"sync"
	"time"
)

// credentialFetcher produces fresh AWS-style credentials plus how long
// they remain valid.
type credentialFetcher func(ctx context.Context) (accessKey, secretKey string, ttl time.Duration, err error)

// lazyCredentials is the "lazily-refreshed credential store" of spec.md §5:
// read paths take only a read lock when the cached credentials are still
// valid; a refresh takes the write lock, double-checking validity in case
// another goroutine refreshed first. Anonymous credentials (fetch == nil)
// short-circuit without ever locking.
type lazyCredentials struct {
	fetch credentialFetcher

	mu        sync.RWMutex
	accessKey string
	secretKey string
	expiresAt time.Time
}

func newLazyCredentials(fetch credentialFetcher) *lazyCredentials {
	return &lazyCredentials{fetch: fetch}
}

// Get returns currently valid credentials, refreshing them if necessary.
func (c *lazyCredentials) Get(ctx context.Context) (accessKey, secretKey string, err error) {
	if c.fetch == nil {
		return "", "", nil
	}

	c.mu.RLock()
	if c.valid() {
		ak, sk := c.accessKey, c.secretKey
		c.mu.RUnlock()
		return ak, sk, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.accessKey, c.secretKey, nil
	}

	ak, sk, ttl, err := c.fetch(ctx)
	if err != nil {
		return "", "", err
	}
	c.accessKey, c.secretKey = ak, sk
	c.expiresAt = time.Now().Add(ttl)
	return ak, sk, nil
}

func (c *lazyCredentials) valid() bool {
	return !c.expiresAt.IsZero() && time.Now().Before(c.expiresAt)
}
