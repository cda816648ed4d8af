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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/uzqw/vex/internal/chunk"
	"github.com/uzqw/vex/internal/config"
	"github.com/uzqw/vex/internal/metadata"
	"github.com/uzqw/vex/internal/metrics"
	"github.com/uzqw/vex/internal/model"
	"github.com/uzqw/vex/internal/refimpl"
	"github.com/uzqw/vex/internal/section"
	"github.com/uzqw/vex/internal/segment"
	"github.com/uzqw/vex/internal/store"
)

// defaultBoundaries are the segment boundaries used when no real
// sentence/paragraph segmenter is configured: sentence-ending
// punctuation followed by a space, and newlines. Because a segment ends
// at the first boundary reached, "\n" always ends a segment before
// "\n\n" can match, so a blank line yields a segment of its own.
var defaultBoundaries = []string{"\n\n", ". ", "! ", "? ", "\n"}

func newIngestCmd() *cobra.Command {
	var (
		name         string
		snapshotPath string
	)

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Segment, chunk, embed, and index a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if snapshotPath != "" {
				cfg.Store.SnapshotPath = snapshotPath
			}
			if name == "" {
				name = args[0]
			}
			return runIngest(cmd.Context(), cfg, args[0], name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for the ingested file (defaults to the path)")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Override snapshot path to write after ingest")

	return cmd
}

func runIngest(ctx context.Context, cfg config.Config, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tokenizer := refimpl.WordTokenCounter{}
	embedder, err := refimpl.NewHashEmbedder(cfg.Store.Dimension)
	if err != nil {
		return err
	}

	segReader := segment.NewReader(bufio.NewReader(f), defaultBoundaries)
	chunkReader, err := chunk.NewReader(segReader, tokenizer, chunk.Config{
		MaxTokensPerChunk: cfg.Chunking.MaxTokensPerChunk,
	})
	if err != nil {
		return err
	}

	fileID := uuid.New()
	sectionReader, err := section.NewReader(chunkReader, tokenizer, embedder, fileID, section.Config{
		MaxTokensPerSection:      cfg.Sectioning.MaxTokensPerSection,
		Lookahead:                cfg.Sectioning.Lookahead,
		StdDevMultiplier:         cfg.Sectioning.StdDevMultiplier,
		MinSimilarity:            cfg.Sectioning.MinSimilarity,
		TokenStrictnessThreshold: cfg.Sectioning.TokenStrictnessThreshold,
		MinChunksPerSection:      cfg.Sectioning.MinChunksPerSection,
		MinTokensPerSection:      cfg.Sectioning.MinTokensPerSection,
	})
	if err != nil {
		return err
	}

	vstore, err := store.New(cfg.Store.Dimension)
	if err != nil {
		return err
	}

	var meta *metadata.Store
	if m, err := connectMetadata(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: metadata store unavailable, continuing CVS-only: %v\n", err)
	} else {
		meta = m
		defer meta.Close()
	}

	if meta != nil {
		if err := meta.CreateFile(ctx, model.File{ID: fileID, Name: name}); err != nil {
			return err
		}
	}

	var sectionCount, chunkCount int
	for {
		out, err := sectionReader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("segment file: %w", err)
		}

		sectionCount++
		chunkCount += len(out.Chunks)
		metrics.Global().IncrementSectionsEmitted()

		for _, c := range out.Chunks {
			if err := vstore.Add(store.Vector{ID: c.ID, Values: c.Embedding}); err != nil {
				return fmt.Errorf("index chunk %s: %w", c.ID, err)
			}
		}

		if meta != nil {
			if err := meta.CreateSection(ctx, out.Section); err != nil {
				return err
			}
			for _, c := range out.Chunks {
				if err := meta.CreateChunk(ctx, c); err != nil {
					return err
				}
			}
		}
	}

	if cfg.Store.SnapshotPath != "" {
		if err := vstore.SaveToFile(ctx, cfg.Store.SnapshotPath); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	fmt.Printf("ingested %s: %d sections, %d chunks\n", name, sectionCount, chunkCount)
	return nil
}

func connectMetadata(ctx context.Context, cfg config.Config) (*metadata.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return metadata.New(connectCtx, cfg.Metadata.DSN, cfg.Metadata.MaxConns, cfg.Metadata.ChunkCacheSize)
}
