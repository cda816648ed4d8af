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

// Package cmd provides the vexd CLI: serve, ingest, and benchmark
// subcommands over the vex knowledge base core.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vexd",
		Short:   "Vex retrieval core: cosine vector store and section segmenter",
		Version: Version,
	}
	cmd.SetVersionTemplate("vexd version {{.Version}}\n")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newBenchmarkCmd())

	return cmd
}

// Execute runs the vexd root command.
func Execute() error {
	return newRootCmd().Execute()
}
