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

// Package metadata is the CRUD store for File/Section/Chunk relational
// metadata: the spec's "external collaborator" the CVS and segmenter
// hand identifiers to, backed by Postgres. Deleting a File cascades to
// its Sections and their Chunks at the schema level.
package metadata

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uzqw/vex/internal/model"
)

// Store is a Postgres-backed CRUD store for File/Section/Chunk, with a
// bounded read-through cache in front of chunk lookups.
type Store struct {
	pool       *pgxpool.Pool
	chunkCache *lru.Cache[uuid.UUID, model.Chunk]
}

// New connects to Postgres at dsn, applies the schema (idempotent), and
// returns a Store with a chunk cache bounded to cacheSize entries.
func New(ctx context.Context, dsn string, maxConns int, cacheSize int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("metadata: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("metadata: connect: %w", err)
	}

	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[uuid.UUID, model.Chunk](cacheSize)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("metadata: create cache: %w", err)
	}

	s := &Store{pool: pool, chunkCache: cache}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const statements = `
CREATE TABLE IF NOT EXISTS files (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	content_hash BYTEA
);

CREATE TABLE IF NOT EXISTS sections (
	id UUID PRIMARY KEY,
	file_id UUID NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	section_index INT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	additional_context TEXT NOT NULL DEFAULT '',
	embedding BYTEA,
	UNIQUE (file_id, section_index)
);

CREATE TABLE IF NOT EXISTS chunks (
	id UUID PRIMARY KEY,
	section_id UUID NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
	chunk_index INT NOT NULL,
	content TEXT NOT NULL,
	embedding BYTEA,
	UNIQUE (section_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS sections_file_idx ON sections (file_id);
CREATE INDEX IF NOT EXISTS chunks_section_idx ON chunks (section_id);
`
	_, err := s.pool.Exec(ctx, statements)
	if err != nil {
		return fmt.Errorf("metadata: ensure schema: %w", err)
	}
	return nil
}
