package vector

import (
	"context"
	"fmt"
	"log/slog"

	"ideascope/internal/models"
	"ideascope/internal/providers"
	"ideascope/internal/storage"
	"ideascope/internal/util"
)

// Index ties embeddings to the chunk store. All operations are namespaced by
// run id, so every assessment sees only its own evidence.
type Index struct {
	manager  *providers.Manager
	chunks   *storage.ChunkRepo
	searcher *Searcher
	dim      int
	logger   *slog.Logger
}

func NewIndex(manager *providers.Manager, db *storage.DB, dim int, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		manager:  manager,
		chunks:   storage.NewChunkRepo(db),
		searcher: NewSearcher(db.Pool),
		dim:      dim,
		logger:   logger,
	}
}

// AddPaper embeds a paper's valid chunks and upserts them into the run's
// namespace. Papers with no valid chunks are skipped with a warning rather
// than failing the run.
func (ix *Index) AddPaper(ctx context.Context, runID string, paper *models.Paper) (int, error) {
	valid := paper.ValidChunks()
	if len(valid) == 0 {
		ix.logger.Warn("paper has no valid chunks to index",
			"run_id", runID, "paper_id", paper.PaperID)
		return 0, nil
	}

	inputs := make([]string, len(valid))
	for i, c := range valid {
		inputs[i] = c.Text
	}
	vectors, err := ix.embed(ctx, providers.EmbedRequest{
		Operation: "index_chunks",
		Kind:      providers.EmbedDocument,
		Inputs:    inputs,
		Dimension: ix.dim,
	})
	if err != nil {
		return 0, fmt.Errorf("embed chunks for %s: %w", paper.PaperID, err)
	}
	if len(vectors) != len(valid) {
		return 0, fmt.Errorf("embed count mismatch for %s: got %d want %d", paper.PaperID, len(vectors), len(valid))
	}

	records := make([]storage.ChunkRecord, 0, len(valid))
	for i, c := range valid {
		lit := ToLiteral(vectors[i])
		records = append(records, storage.ChunkRecord{
			ChunkID:         c.ChunkID,
			RunID:           runID,
			PaperID:         c.PaperID,
			Heading:         c.Heading,
			HeadingIndex:    c.HeadingIndex,
			ChunkIndex:      c.ChunkIndex,
			Text:            c.Text,
			EmbeddingVector: &lit,
		})
	}
	if err := ix.chunks.UpsertChunks(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Search embeds the query text and returns the topK most similar chunks.
// paperID, when non-empty, restricts the search to a single paper.
func (ix *Index) Search(ctx context.Context, runID, query string, topK int, paperID string) ([]SearchHit, error) {
	vectors, err := ix.embed(ctx, providers.EmbedRequest{
		Operation: "search",
		Kind:      providers.EmbedQuery,
		Inputs:    []string{query},
		Dimension: ix.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, util.ErrIndexUnavailable
	}
	filters := SearchFilters{}
	if paperID != "" {
		filters.PaperIDs = []string{paperID}
	}
	return ix.searcher.SearchChunks(ctx, runID, vectors[0], topK, filters)
}

func (ix *Index) Count(ctx context.Context, runID string) (int, error) {
	return ix.chunks.CountByRun(ctx, runID)
}

func (ix *Index) Clear(ctx context.Context, runID string) error {
	return ix.chunks.DeleteByRun(ctx, runID)
}

func (ix *Index) ChunksByPaper(ctx context.Context, runID, paperID string) ([]models.Chunk, error) {
	return ix.chunks.ListChunksByPaper(ctx, runID, paperID)
}

// embed tries providers in preferred order so a dead provider does not take
// the index down with it.
func (ix *Index) embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, error) {
	var lastErr error
	for _, i := range ix.manager.PreferredEmbedOrder() {
		p, ref := ix.manager.EmbedProviderByIndex(i)
		vectors, info, err := p.Embed(ctx, req)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		ix.logger.Warn("embed provider failed",
			"provider", ref.Name, "model", info.Model,
			"error_type", string(providers.ClassifyError(err)), "err", err)
	}
	if lastErr == nil {
		lastErr = util.ErrIndexUnavailable
	}
	return nil, lastErr
}
