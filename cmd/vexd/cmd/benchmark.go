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
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/uzqw/vex/internal/loadtest"
)

func newBenchmarkCmd() *cobra.Command {
	var (
		addr        string
		concurrency int
		totalOps    int
		dim         int
		mode        string
	)

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Load-test a running vexd server with concurrent VADD/VSEARCH traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := loadtest.Run(loadtest.Options{
				Addr:        addr,
				Concurrency: concurrency,
				TotalOps:    totalOps,
				Dimension:   dim,
				Mode:        mode,
			})
			if err != nil {
				return err
			}
			printBenchmarkResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", net.JoinHostPort("localhost", "6379"), "Server address")
	cmd.Flags().IntVar(&concurrency, "concurrency", 50, "Number of concurrent connections")
	cmd.Flags().IntVar(&totalOps, "n", 100000, "Total number of operations")
	cmd.Flags().IntVar(&dim, "dim", 128, "Vector dimension")
	cmd.Flags().StringVar(&mode, "mode", "insert", "Benchmark mode: insert or search")

	return cmd
}

func printBenchmarkResult(cmd *cobra.Command, result *loadtest.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Benchmark Results ===")
	fmt.Fprintf(out, "Total Time:    %v\n", result.TotalTime)
	fmt.Fprintf(out, "QPS:           %.0f ops/sec\n", result.QPS)
	fmt.Fprintf(out, "Success:       %d\n", result.SuccessCount)
	fmt.Fprintf(out, "Errors:        %d\n", result.ErrorCount)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Latency Statistics:")
	fmt.Fprintf(out, "  Min:         %v\n", result.MinLatency)
	fmt.Fprintf(out, "  Avg:         %v\n", result.AvgLatency)
	fmt.Fprintf(out, "  P50:         %v\n", result.P50Latency)
	fmt.Fprintf(out, "  P95:         %v\n", result.P95Latency)
	fmt.Fprintf(out, "  P99:         %v\n", result.P99Latency)
	fmt.Fprintf(out, "  Max:         %v\n", result.MaxLatency)
}
