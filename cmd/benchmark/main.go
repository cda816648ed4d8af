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

package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/uzqw/vex/internal/loadtest"
)

var (
	host        = flag.String("host", "localhost", "Server host")
	port        = flag.String("port", "6379", "Server port")
	concurrency = flag.Int("concurrency", 50, "Number of concurrent connections")
	totalOps    = flag.Int("n", 100000, "Total number of operations")
	mode        = flag.String("mode", "insert", "Benchmark mode: insert or search")
	dim         = flag.Int("dim", 128, "Vector dimension")
	showVer     = flag.Bool("version", false, "Show version and exit")

	// Version is set at build time via ldflags
	Version = "dev"
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("Vex benchmark version %s\n", Version)
		return
	}

	fmt.Println("=== Vex Benchmark ===")
	fmt.Printf("Mode:        %s\n", *mode)
	fmt.Printf("Host:        %s:%s\n", *host, *port)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Total Ops:   %d\n", *totalOps)
	fmt.Printf("Dimensions:  %d\n", *dim)
	fmt.Println("---")

	result, err := loadtest.Run(loadtest.Options{
		Addr:        net.JoinHostPort(*host, *port),
		Concurrency: *concurrency,
		TotalOps:    *totalOps,
		Dimension:   *dim,
		Mode:        *mode,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printResult(result)
}

func printResult(result *loadtest.Result) {
	fmt.Println()
	fmt.Println("=== Benchmark Results ===")
	fmt.Printf("Total Time:    %v\n", result.TotalTime)
	fmt.Printf("QPS:           %.0f ops/sec\n", result.QPS)
	fmt.Printf("Success:       %d\n", result.SuccessCount)
	fmt.Printf("Errors:        %d\n", result.ErrorCount)
	fmt.Println()
	fmt.Println("Latency Statistics:")
	fmt.Printf("  Min:         %v\n", result.MinLatency)
	fmt.Printf("  Avg:         %v\n", result.AvgLatency)
	fmt.Printf("  P50:         %v\n", result.P50Latency)
	fmt.Printf("  P95:         %v\n", result.P95Latency)
	fmt.Printf("  P99:         %v\n", result.P99Latency)
	fmt.Printf("  Max:         %v\n", result.MaxLatency)
}
