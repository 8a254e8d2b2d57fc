/*
 * Copyright 2024 Raamsri Kumar <raam@tinkershack.in> and The StrataSTOR Authors
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

package httpclient

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClientAppliesConfig(t *testing.T) {
	cfg := NewClientConfig()
	cfg.BaseURL = "http://localhost:8052"
	cfg.Timeout = 5 * time.Second
	cfg.RetryCount = 2

	c := NewClient(cfg)

	assert.Equal(t, "http://localhost:8052", c.Client.BaseURL)
	assert.Equal(t, 2, c.Client.RetryCount)
	assert.True(t, strings.HasPrefix(c.Client.Header.Get("User-Agent"), "Bexec-Agent/"))
}

func TestNewClientConfigDefaults(t *testing.T) {
	cfg := NewClientConfig()

	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, defaultRetryCount, cfg.RetryCount)
	assert.NotNil(t, cfg.Headers)
}
