// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "ingest")
	assert.Contains(t, names, "benchmark")
}

func TestSplitHostPortRejectsMissingColon(t *testing.T) {
	_, _, err := splitHostPort("localhost")
	assert.Error(t, err)
}

func TestSplitHostPortSplitsHostAndPort(t *testing.T) {
	host, port, err := splitHostPort("localhost:6379")
	assert.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, "6379", port)
}
