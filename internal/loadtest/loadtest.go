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

// Package loadtest drives concurrent VADD/VSEARCH load against a vexd
// server over RESP, shared by cmd/benchmark and vexd's "benchmark"
// subcommand.
package loadtest

import (
	"fmt"
	"math/rand"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/protocol"
)

// Options configures a benchmark run.
type Options struct {
	Addr        string
	Concurrency int
	TotalOps    int
	Dimension   int
	Mode        string // "insert" or "search"
}

// Result summarizes a completed run.
type Result struct {
	TotalOps     int
	TotalTime    time.Duration
	QPS          float64
	AvgLatency   time.Duration
	P50Latency   time.Duration
	P95Latency   time.Duration
	P99Latency   time.Duration
	MinLatency   time.Duration
	MaxLatency   time.Duration
	SuccessCount int64
	ErrorCount   int64
}

// Run executes the configured benchmark and returns its result.
func Run(opts Options) (*Result, error) {
	switch opts.Mode {
	case "insert":
		return runInsert(opts), nil
	case "search":
		return runSearch(opts), nil
	default:
		return nil, fmt.Errorf("loadtest: unknown mode %q", opts.Mode)
	}
}

func runInsert(opts Options) *Result {
	var successCount, errorCount atomic.Int64
	latencies := make([]time.Duration, opts.TotalOps)
	opsPerWorker := opts.TotalOps / opts.Concurrency

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", opts.Addr)
			if err != nil {
				errorCount.Add(int64(opsPerWorker))
				return
			}
			defer conn.Close()

			writer := protocol.NewRESPWriter(conn)
			reader := protocol.NewRESPReader(conn)

			for j := 0; j < opsPerWorker; j++ {
				idx := workerID*opsPerWorker + j
				id := uuid.New().String()
				vector := randomVector(opts.Dimension)

				opStart := time.Now()
				cmd := []string{"VADD", id, formatVector(vector)}
				if err := sendCommand(writer, cmd); err != nil {
					errorCount.Add(1)
					continue
				}
				if _, err := reader.ReadCommand(); err != nil {
					errorCount.Add(1)
					continue
				}
				latencies[idx] = time.Since(opStart)
				successCount.Add(1)
			}
		}(w)
	}
	wg.Wait()

	return summarize(opts.TotalOps, latencies, time.Since(start), successCount.Load(), errorCount.Load())
}

func runSearch(opts Options) *Result {
	prepareSearchData(opts.Addr, opts.Dimension)

	var successCount, errorCount atomic.Int64
	latencies := make([]time.Duration, opts.TotalOps)
	opsPerWorker := opts.TotalOps / opts.Concurrency

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", opts.Addr)
			if err != nil {
				errorCount.Add(int64(opsPerWorker))
				return
			}
			defer conn.Close()

			writer := protocol.NewRESPWriter(conn)
			reader := protocol.NewRESPReader(conn)

			for j := 0; j < opsPerWorker; j++ {
				idx := workerID*opsPerWorker + j
				vector := randomVector(opts.Dimension)

				opStart := time.Now()
				cmd := []string{"VSEARCH", formatVector(vector), "10"}
				if err := sendCommand(writer, cmd); err != nil {
					errorCount.Add(1)
					continue
				}
				if _, err := reader.ReadCommand(); err != nil {
					errorCount.Add(1)
					continue
				}
				latencies[idx] = time.Since(opStart)
				successCount.Add(1)
			}
		}(w)
	}
	wg.Wait()

	return summarize(opts.TotalOps, latencies, time.Since(start), successCount.Load(), errorCount.Load())
}

func prepareSearchData(addr string, dim int) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return
	}
	defer conn.Close()

	writer := protocol.NewRESPWriter(conn)
	reader := protocol.NewRESPReader(conn)

	for i := 0; i < 1000; i++ {
		id := uuid.New().String()
		vector := randomVector(dim)
		cmd := []string{"VADD", id, formatVector(vector)}
		if err := sendCommand(writer, cmd); err != nil {
			continue
		}
		_, _ = reader.ReadCommand()
	}
}

func sendCommand(writer *protocol.RESPWriter, cmd []string) error {
	if err := writer.WriteArray(cmd); err != nil {
		return err
	}
	return writer.Flush()
}

func randomVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = rand.Float32()*2 - 1
	}
	return vec
}

func formatVector(vec []float32) string {
	result := "["
	for i, v := range vec {
		if i > 0 {
			result += ", "
		}
		result += fmt.Sprintf("%.6f", v)
	}
	result += "]"
	return result
}

func summarize(totalOps int, latencies []time.Duration, totalTime time.Duration, successCount, errorCount int64) *Result {
	valid := make([]time.Duration, 0, successCount)
	for _, l := range latencies {
		if l > 0 {
			valid = append(valid, l)
		}
	}

	if len(valid) == 0 {
		return &Result{TotalOps: totalOps, TotalTime: totalTime, SuccessCount: successCount, ErrorCount: errorCount}
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i] < valid[j] })

	var total time.Duration
	for _, l := range valid {
		total += l
	}

	n := len(valid)
	return &Result{
		TotalOps:     totalOps,
		TotalTime:    totalTime,
		QPS:          float64(successCount) / totalTime.Seconds(),
		AvgLatency:   total / time.Duration(n),
		P50Latency:   valid[n*50/100],
		P95Latency:   valid[min(n*95/100, n-1)],
		P99Latency:   valid[min(n*99/100, n-1)],
		MinLatency:   valid[0],
		MaxLatency:   valid[n-1],
		SuccessCount: successCount,
		ErrorCount:   errorCount,
	}
}
