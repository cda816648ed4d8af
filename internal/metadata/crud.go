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

package metadata

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uzqw/vex/internal/model"
)

// CreateFile inserts f.
func (s *Store) CreateFile(ctx context.Context, f model.File) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO files (id, name, content_hash) VALUES ($1, $2, $3)`,
		f.ID, f.Name, f.ContentHash)
	if err != nil {
		return fmt.Errorf("metadata: create file: %w", err)
	}
	return nil
}

// GetFile retrieves a File by id.
func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (model.File, error) {
	var f model.File
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, content_hash FROM files WHERE id = $1`, id,
	).Scan(&f.ID, &f.Name, &f.ContentHash)
	if err != nil {
		return model.File{}, fmt.Errorf("metadata: get file %s: %w", id, err)
	}
	return f, nil
}

// FileExists reports whether a File with the given id exists.
func (s *Store) FileExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("metadata: check file %s exists: %w", id, err)
	}
	return exists, nil
}

// ListFiles returns every File in the store.
func (s *Store) ListFiles(ctx context.Context) ([]model.File, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, content_hash FROM files ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("metadata: list files: %w", err)
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.Name, &f.ContentHash); err != nil {
			return nil, fmt.Errorf("metadata: scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: iterate files: %w", err)
	}
	return files, nil
}

// UpdateFile overwrites the name and content hash of the File with f.ID.
func (s *Store) UpdateFile(ctx context.Context, f model.File) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE files SET name = $2, content_hash = $3 WHERE id = $1`,
		f.ID, f.Name, f.ContentHash)
	if err != nil {
		return fmt.Errorf("metadata: update file %s: %w", f.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("metadata: update file %s: %w", f.ID, pgx.ErrNoRows)
	}
	return nil
}

// DeleteFile removes f and, via ON DELETE CASCADE, all of its Sections
// and their Chunks. Invalidates any cached chunks belonging to those
// sections.
func (s *Store) DeleteFile(ctx context.Context, id uuid.UUID) error {
	sections, err := s.ListSectionsByFile(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("metadata: delete file %s: %w", id, err)
	}

	for _, sec := range sections {
		for _, cid := range sec.ChunkIDs {
			s.chunkCache.Remove(cid)
		}
	}
	return nil
}

// CreateSection inserts sec.
func (s *Store) CreateSection(ctx context.Context, sec model.Section) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sections (id, file_id, section_index, summary, additional_context, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sec.ID, sec.FileID, sec.SectionIndex, sec.Summary, sec.AdditionalContext, encodeFloats(sec.Embedding))
	if err != nil {
		return fmt.Errorf("metadata: create section: %w", err)
	}
	return nil
}

// GetSection retrieves a Section by id, populating ChunkIDs in
// ascending chunk-index order.
func (s *Store) GetSection(ctx context.Context, id uuid.UUID) (model.Section, error) {
	var sec model.Section
	var embedding []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, file_id, section_index, summary, additional_context, embedding
		 FROM sections WHERE id = $1`, id,
	).Scan(&sec.ID, &sec.FileID, &sec.SectionIndex, &sec.Summary, &sec.AdditionalContext, &embedding)
	if err != nil {
		return model.Section{}, fmt.Errorf("metadata: get section %s: %w", id, err)
	}
	sec.Embedding = decodeFloats(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT id FROM chunks WHERE section_id = $1 ORDER BY chunk_index ASC`, id)
	if err != nil {
		return model.Section{}, fmt.Errorf("metadata: list chunk ids for section %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid uuid.UUID
		if err := rows.Scan(&cid); err != nil {
			return model.Section{}, fmt.Errorf("metadata: scan chunk id: %w", err)
		}
		sec.ChunkIDs = append(sec.ChunkIDs, cid)
	}
	if err := rows.Err(); err != nil {
		return model.Section{}, fmt.Errorf("metadata: iterate chunk ids: %w", err)
	}

	return sec, nil
}

// GetSectionByIndex retrieves the Section at sectionIndex within fileID.
func (s *Store) GetSectionByIndex(ctx context.Context, fileID uuid.UUID, sectionIndex int) (model.Section, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM sections WHERE file_id = $1 AND section_index = $2`, fileID, sectionIndex,
	).Scan(&id)
	if err != nil {
		return model.Section{}, fmt.Errorf("metadata: get section %d of file %s: %w", sectionIndex, fileID, err)
	}
	return s.GetSection(ctx, id)
}

// ListSectionsByFile returns every Section belonging to fileID, in
// ascending section-index order.
func (s *Store) ListSectionsByFile(ctx context.Context, fileID uuid.UUID) ([]model.Section, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM sections WHERE file_id = $1 ORDER BY section_index ASC`, fileID)
	if err != nil {
		return nil, fmt.Errorf("metadata: list sections for file %s: %w", fileID, err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("metadata: scan section id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: iterate section ids: %w", err)
	}

	sections := make([]model.Section, 0, len(ids))
	for _, id := range ids {
		sec, err := s.GetSection(ctx, id)
		if err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, nil
}

// DeleteSection removes sec and, via ON DELETE CASCADE, its Chunks.
func (s *Store) DeleteSection(ctx context.Context, id uuid.UUID) error {
	sec, err := s.GetSection(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("metadata: delete section %s: %w", id, err)
	}

	for _, cid := range sec.ChunkIDs {
		s.chunkCache.Remove(cid)
	}
	return nil
}

// CreateChunk inserts c and primes the read-through cache.
func (s *Store) CreateChunk(ctx context.Context, c model.Chunk) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chunks (id, section_id, chunk_index, content, embedding)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.SectionID, c.ChunkIndex, c.Content, encodeFloats(c.Embedding))
	if err != nil {
		return fmt.Errorf("metadata: create chunk: %w", err)
	}
	s.chunkCache.Add(c.ID, c)
	return nil
}

// GetChunk retrieves a Chunk by id, serving from the read-through cache
// when present.
func (s *Store) GetChunk(ctx context.Context, id uuid.UUID) (model.Chunk, error) {
	if c, ok := s.chunkCache.Get(id); ok {
		return c, nil
	}

	var c model.Chunk
	var embedding []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, section_id, chunk_index, content, embedding FROM chunks WHERE id = $1`, id,
	).Scan(&c.ID, &c.SectionID, &c.ChunkIndex, &c.Content, &embedding)
	if err != nil {
		return model.Chunk{}, fmt.Errorf("metadata: get chunk %s: %w", id, err)
	}
	c.Embedding = decodeFloats(embedding)

	s.chunkCache.Add(id, c)
	return c, nil
}

// GetChunkByIndex retrieves the Chunk at chunkIndex within sectionID.
func (s *Store) GetChunkByIndex(ctx context.Context, sectionID uuid.UUID, chunkIndex int) (model.Chunk, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM chunks WHERE section_id = $1 AND chunk_index = $2`, sectionID, chunkIndex,
	).Scan(&id)
	if err != nil {
		return model.Chunk{}, fmt.Errorf("metadata: get chunk %d of section %s: %w", chunkIndex, sectionID, err)
	}
	return s.GetChunk(ctx, id)
}

// ListChunksBySection returns every Chunk belonging to sectionID, in
// ascending chunk-index order.
func (s *Store) ListChunksBySection(ctx context.Context, sectionID uuid.UUID) ([]model.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, section_id, chunk_index, content, embedding
		 FROM chunks WHERE section_id = $1 ORDER BY chunk_index ASC`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("metadata: list chunks for section %s: %w", sectionID, err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var embedding []byte
		if err := rows.Scan(&c.ID, &c.SectionID, &c.ChunkIndex, &c.Content, &embedding); err != nil {
			return nil, fmt.Errorf("metadata: scan chunk: %w", err)
		}
		c.Embedding = decodeFloats(embedding)
		chunks = append(chunks, c)
		s.chunkCache.Add(c.ID, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: iterate chunks: %w", err)
	}
	return chunks, nil
}

// DeleteChunk removes the chunk with the given id and invalidates its
// cache entry.
func (s *Store) DeleteChunk(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("metadata: delete chunk %s: %w", id, err)
	}
	s.chunkCache.Remove(id)
	return nil
}

// encodeFloats packs a []float32 into little-endian bytes for storage
// in a BYTEA column, matching internal/store/codec.go's wire layout.
func encodeFloats(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloats(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
