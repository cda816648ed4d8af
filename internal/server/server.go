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

// Package server implements the RESP command loop shared by cmd/server
// and vexd's "serve" subcommand: accept connections, parse commands,
// dispatch to the CVS.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/metrics"
	"github.com/uzqw/vex/internal/protocol"
	"github.com/uzqw/vex/internal/store"
	"github.com/uzqw/vex/pkg/logger"
)

// Server dispatches RESP commands against a single CVS instance.
type Server struct {
	store *store.Store
	log   *logger.Logger
}

// New constructs a Server bound to store s.
func New(s *store.Store, log *logger.Logger) *Server {
	return &Server{store: s, log: log}
}

// ListenAndServe binds addr and serves connections until ctx is
// cancelled. Each connection is handled in its own goroutine.
func (srv *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	defer listener.Close()

	srv.log.Info("server started successfully", slog.String("addr", addr))

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	go srv.monitorMemory(ctx)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				srv.log.Info("shutting down server")
				return nil
			default:
				srv.log.Error("failed to accept connection", slog.String("error", err.Error()))
				continue
			}
		}

		metrics.Global().IncrementActiveConnections()
		go srv.handleConnection(ctx, conn)
	}
}

func (srv *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		metrics.Global().DecrementActiveConnections()
	}()

	requestID := uuid.New().String()
	connLog := srv.log.WithRequestID(ctx, requestID)

	connLog.Info("new connection", slog.String("remote", conn.RemoteAddr().String()))

	reader := protocol.NewRESPReader(conn)
	writer := protocol.NewRESPWriter(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		cmd, err := reader.ReadCommand()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				connLog.Debug("connection closed")
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				connLog.Info("connection timeout")
				return
			}
			connLog.Warn("protocol error", slog.String("error", err.Error()))
			if writeErr := writer.WriteError(err.Error()); writeErr != nil {
				return
			}
			if flushErr := writer.Flush(); flushErr != nil {
				return
			}
			return
		}

		if len(cmd) == 0 {
			continue
		}

		start := time.Now()
		srv.processCommand(writer, cmd)
		latency := time.Since(start)

		connLog.Debug("command executed",
			slog.String("cmd", cmd[0]),
			slog.Int("args", len(cmd)-1),
			slog.Duration("latency", latency),
		)

		if err := writer.Flush(); err != nil {
			connLog.Error("failed to flush response", slog.String("error", err.Error()))
			return
		}
	}
}

func (srv *Server) processCommand(writer *protocol.RESPWriter, cmd []string) {
	command := strings.ToUpper(cmd[0])

	switch command {
	case "PING":
		srv.handlePing(writer, cmd)
	case "ECHO":
		srv.handleEcho(writer, cmd)
	case "VADD":
		srv.handleVAdd(writer, cmd)
	case "VDEL":
		srv.handleVDel(writer, cmd)
	case "VSEARCH":
		srv.handleVSearch(writer, cmd)
	case "SAVE":
		srv.handleSave(writer, cmd)
	case "LOAD":
		srv.handleLoad(writer, cmd)
	case "STATS", "INFO":
		srv.handleStats(writer)
	case "CLEAR":
		srv.handleClear(writer)
	case "QUIT":
		_ = writer.WriteSimpleString("OK")
	default:
		_ = writer.WriteError(fmt.Sprintf("unknown command '%s'", command))
	}
}

func (srv *Server) handlePing(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) == 1 {
		_ = writer.WriteSimpleString("PONG")
	} else {
		_ = writer.WriteBulkString(cmd[1])
	}
}

func (srv *Server) handleEcho(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'echo' command")
		return
	}
	_ = writer.WriteBulkString(cmd[1])
}

// handleVAdd handles VADD <uuid> "[0.1, 0.2, 0.3]".
func (srv *Server) handleVAdd(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vadd' command")
		return
	}

	id, err := uuid.Parse(cmd[1])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid id: %s", err.Error()))
		return
	}

	values, err := protocol.FastVectorParser(cmd[2])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}

	if err := srv.store.Add(store.Vector{ID: id, Values: values}); err != nil {
		_ = writer.WriteError(err.Error())
		return
	}

	metrics.Global().IncrementVectors()
	_ = writer.WriteSimpleString("OK")
}

// handleVDel handles VDEL <uuid>.
func (srv *Server) handleVDel(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'vdel' command")
		return
	}

	id, err := uuid.Parse(cmd[1])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid id: %s", err.Error()))
		return
	}

	if srv.store.Remove(id) {
		metrics.Global().DecrementVectors()
		_ = writer.WriteInteger(1)
	} else {
		_ = writer.WriteInteger(0)
	}
}

// handleVSearch handles VSEARCH "[0.1, 0.2, 0.3]" k.
func (srv *Server) handleVSearch(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vsearch' command")
		return
	}

	var k int
	if _, err := fmt.Sscanf(cmd[2], "%d", &k); err != nil || k <= 0 {
		_ = writer.WriteError("k must be a positive integer")
		return
	}

	query, err := protocol.FastVectorParser(cmd[1])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}

	metrics.Global().IncrementSearches()
	results, err := srv.store.Search(query, k)
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID.String()
	}

	_ = writer.WriteArray(ids)
}

// handleSave handles SAVE <path>, using the flock-guarded path so a
// concurrent snapshot writer can't tear the file.
func (srv *Server) handleSave(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'save' command")
		return
	}

	if err := srv.store.SaveToFile(context.Background(), cmd[1]); err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteSimpleString("OK")
}

// handleLoad handles LOAD <path>.
func (srv *Server) handleLoad(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'load' command")
		return
	}

	if err := srv.store.LoadFromFile(context.Background(), cmd[1]); err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteSimpleString("OK")
}

// handleStats handles STATS/INFO.
func (srv *Server) handleStats(writer *protocol.RESPWriter) {
	jsonStr, err := metrics.Global().JSON()
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteBulkString(jsonStr)
}

// handleClear handles CLEAR.
func (srv *Server) handleClear(writer *protocol.RESPWriter) {
	srv.store.Clear()
	_ = writer.WriteSimpleString("OK")
}

func (srv *Server) monitorMemory(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.Global().SetMemoryUsage(m.Alloc)
		}
	}
}
