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

// Package section implements the Section Segmenter: a lazy sequence of
// chunk groups produced by statistical analysis of embedding similarity
// against a running centroid, with adaptive thresholds.
package section

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/model"
	"github.com/uzqw/vex/internal/simd"
	"github.com/uzqw/vex/internal/vexerr"
)

// TokenCounter mirrors the external tokenizer contract.
type TokenCounter interface {
	CountTokens(text string) int
}

// Embedder is the external, fallible, potentially slow embedding
// collaborator. Its failures propagate verbatim, wrapped in
// vexerr.ErrEmbedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSource yields raw chunk text lazily, matching *chunk.Reader's
// shape without importing it directly.
type ChunkSource interface {
	Next(ctx context.Context) (string, error)
}

// Config is the statistical SectioningConfig variant (the threshold/start-stop
// variant is legacy and not implemented).
type Config struct {
	MaxTokensPerSection      int
	Lookahead                int
	StdDevMultiplier         float64
	MinSimilarity            float64
	TokenStrictnessThreshold float64
	MinChunksPerSection      int
	MinTokensPerSection      int
	StopSignals              []string
}

func (c Config) validate() error {
	if c.MaxTokensPerSection <= 0 {
		return fmt.Errorf("section: max tokens per section must be positive, got %d", c.MaxTokensPerSection)
	}
	if c.Lookahead < 0 {
		return fmt.Errorf("section: lookahead must be non-negative, got %d", c.Lookahead)
	}
	if c.MinChunksPerSection < 1 {
		return fmt.Errorf("section: min chunks per section must be at least 1, got %d", c.MinChunksPerSection)
	}
	return nil
}

// Output is one emitted section together with the chunks it owns, ready
// for the metadata store and the cosine vector store.
type Output struct {
	Section model.Section
	Chunks  []model.Chunk
}

type embeddedChunk struct {
	content   string
	tokens    int
	embedding []float32
	mag       float32
}

// Reader is the Section Segmenter's pull-based iterator. Not safe for
// concurrent use; not restartable.
type Reader struct {
	src       ChunkSource
	tokenizer TokenCounter
	embedder  Embedder
	cfg       Config
	fileID    uuid.UUID

	embedDim int

	lookahead    []embeddedChunk
	upstreamDone bool
	initialized  bool
	done         bool

	centroid      []float32
	sectionChunks []embeddedChunk
	currentTokens int

	nextSectionIndex int
}

// NewReader creates a Section Segmenter reader. fileID is stamped onto
// every emitted section.
func NewReader(src ChunkSource, tokenizer TokenCounter, embedder Embedder, fileID uuid.UUID, cfg Config) (*Reader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Reader{src: src, tokenizer: tokenizer, embedder: embedder, fileID: fileID, cfg: cfg}, nil
}

// Next returns the next section, or io.EOF once the stream (and any
// final non-empty section) is exhausted. On cancellation it returns
// vexerr.ErrCancelled and no partial section is ever emitted.
func (r *Reader) Next(ctx context.Context) (Output, error) {
	if r.done {
		return Output{}, io.EOF
	}

	if !r.initialized {
		if err := r.fillLookahead(ctx); err != nil {
			return Output{}, err
		}
		r.initialized = true
		if len(r.lookahead) == 0 {
			r.done = true
			return Output{}, io.EOF
		}
		r.seed(r.popLookahead())
	}

	for {
		if err := ctx.Err(); err != nil {
			return Output{}, vexerr.ErrCancelled
		}

		if err := r.fillLookahead(ctx); err != nil {
			return Output{}, err
		}

		if len(r.lookahead) == 0 {
			r.done = true
			return r.emit(), nil
		}

		if err := ctx.Err(); err != nil {
			return Output{}, vexerr.ErrCancelled
		}

		c := r.popLookahead()

		centroidMag := simd.Magnitude(r.centroid)
		sim := simd.Cosine(c.embedding, c.mag, r.centroid, centroidMag)

		threshold := r.computeThreshold(centroidMag)
		splitBySimilarity := float64(sim) < threshold && r.meetsMinimums(c)
		splitBySize := r.currentTokens+c.tokens > r.cfg.MaxTokensPerSection

		if splitBySimilarity || splitBySize {
			out := r.emit()
			r.seed(c)
			return out, nil
		}

		r.accept(c)
	}
}

func (r *Reader) seed(c embeddedChunk) {
	r.sectionChunks = []embeddedChunk{c}
	r.centroid = append([]float32(nil), c.embedding...)
	r.currentTokens = c.tokens
}

func (r *Reader) accept(c embeddedChunk) {
	n := len(r.sectionChunks)
	for i := range r.centroid {
		r.centroid[i] = (r.centroid[i]*float32(n) + c.embedding[i]) / float32(n+1)
	}
	r.sectionChunks = append(r.sectionChunks, c)
	r.currentTokens += c.tokens
}

func (r *Reader) popLookahead() embeddedChunk {
	c := r.lookahead[0]
	r.lookahead = r.lookahead[1:]
	return c
}

// fillLookahead tops the lookahead queue up to cfg.Lookahead entries (at
// least one) by pulling and embedding chunks from upstream.
func (r *Reader) fillLookahead(ctx context.Context) error {
	target := r.cfg.Lookahead
	if target < 1 {
		target = 1
	}
	for len(r.lookahead) < target && !r.upstreamDone {
		if err := ctx.Err(); err != nil {
			return vexerr.ErrCancelled
		}

		text, err := r.src.Next(ctx)
		if err == io.EOF {
			r.upstreamDone = true
			break
		}
		if err != nil {
			return err
		}

		ec, err := r.embed(ctx, text)
		if err != nil {
			return err
		}
		r.lookahead = append(r.lookahead, ec)
	}
	return nil
}

func (r *Reader) embed(ctx context.Context, text string) (embeddedChunk, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return embeddedChunk{}, fmt.Errorf("%w: %v", vexerr.ErrEmbedder, err)
	}
	if r.embedDim == 0 {
		r.embedDim = len(vec)
	} else if len(vec) != r.embedDim {
		return embeddedChunk{}, fmt.Errorf("%w: embedding length %d, expected %d", vexerr.ErrDimensionMismatch, len(vec), r.embedDim)
	}
	return embeddedChunk{
		content:   text,
		tokens:    r.tokenizer.CountTokens(text),
		embedding: vec,
		mag:       simd.Magnitude(vec),
	}, nil
}

// computeThreshold implements the statistical threshold formula followed
// by the token-strictness adjustment.
func (r *Reader) computeThreshold(centroidMag float32) float64 {
	samples := make([]float64, 0, len(r.lookahead)+len(r.sectionChunks))
	for _, c := range r.lookahead {
		samples = append(samples, float64(simd.Cosine(c.embedding, c.mag, r.centroid, centroidMag)))
	}
	if len(samples) < 5 {
		for _, c := range r.sectionChunks {
			samples = append(samples, float64(simd.Cosine(c.embedding, c.mag, r.centroid, centroidMag)))
		}
	}

	base := r.cfg.MinSimilarity
	if len(samples) >= 3 {
		mean := meanOf(samples)
		sd := stddevOf(samples, mean)
		base = math.Max(r.cfg.MinSimilarity, mean-r.cfg.StdDevMultiplier*sd)
	}

	u := float64(r.currentTokens) / float64(r.cfg.MaxTokensPerSection)
	adjusted := base
	if u >= r.cfg.TokenStrictnessThreshold {
		denom := 1 - r.cfg.TokenStrictnessThreshold
		var e float64
		if denom > 0 {
			e = (u - r.cfg.TokenStrictnessThreshold) / denom
		}
		adjusted = base * (1 + 0.5*e*e)
	}
	return math.Min(0.95, math.Max(r.cfg.MinSimilarity, adjusted))
}

// meetsMinimums implements the minimum-requirements policy gating
// whether a similarity-based split may fire.
func (r *Reader) meetsMinimums(candidate embeddedChunk) bool {
	chunkCount := len(r.sectionChunks)
	if chunkCount < r.cfg.MinChunksPerSection || r.currentTokens < r.cfg.MinTokensPerSection {
		return false
	}

	lastStartsStop := chunkCount > 0 && startsWithAny(r.sectionChunks[chunkCount-1].content, r.cfg.StopSignals)
	if lastStartsStop {
		return true
	}

	if len(r.cfg.StopSignals) > 0 && chunkCount <= 2 && startsWithAny(candidate.content, r.cfg.StopSignals) {
		required := 1.5 * float64(r.cfg.MinTokensPerSection)
		return float64(r.currentTokens) >= required
	}
	return true
}

func (r *Reader) emit() Output {
	sectionID := uuid.New()
	chunks := make([]model.Chunk, len(r.sectionChunks))
	chunkIDs := make([]uuid.UUID, len(r.sectionChunks))
	for i, ec := range r.sectionChunks {
		id := uuid.New()
		chunks[i] = model.Chunk{
			ID:         id,
			SectionID:  sectionID,
			ChunkIndex: i,
			Content:    ec.content,
			Embedding:  ec.embedding,
		}
		chunkIDs[i] = id
	}
	sec := model.Section{
		ID:           sectionID,
		FileID:       r.fileID,
		SectionIndex: r.nextSectionIndex,
		ChunkIDs:     chunkIDs,
		Embedding:    append([]float32(nil), r.centroid...),
	}
	r.nextSectionIndex++
	return Output{Section: sec, Chunks: chunks}
}

func startsWithAny(text string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddevOf(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}
