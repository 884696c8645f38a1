/*
 * Copyright (c) 2026 Rowgate Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package client

import (
	"context"

	"rowgate/internal/logging"
)

// ManagedClient ties a client to the owning process lifecycle. The
// underlying driver connects lazily, so Start has nothing to do; Stop
// drives Shutdown and waits for it to settle so buffered edits are flushed
// before the process exits.
type ManagedClient struct {
	Client

	logger *logging.Logger
}

// NewManagedClient wraps the given client with start/stop hooks.
func NewManagedClient(c Client) *ManagedClient {
	return &ManagedClient{
		Client: c,
		logger: logging.NewLogger("client"),
	}
}

// Start is registered as the process start hook.
func (c *ManagedClient) Start() error {
	c.logger.Info("Client started")
	return nil
}

// Stop shuts the client down and waits for the shutdown to settle or the
// context to expire.
func (c *ManagedClient) Stop(ctx context.Context) error {
	c.logger.Info("Stopping client")
	if _, err := c.Shutdown().Wait(ctx); err != nil {
		c.logger.Error("Client shutdown failed", "error", err)
		return err
	}
	c.logger.Info("Client stopped")
	return nil
}
