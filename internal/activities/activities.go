package activities

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"ideascope/internal/arxiv"
	"ideascope/internal/chunker"
	"ideascope/internal/config"
	"ideascope/internal/docproc"
	"ideascope/internal/models"
	"ideascope/internal/providers"
	"ideascope/internal/retrieval"
	"ideascope/internal/scoring"
	"ideascope/internal/storage"
	"ideascope/internal/util"
	"ideascope/internal/vector"
)

type Activities struct {
	cfg       config.Config
	runRepo   *storage.RunRepo
	paperRepo *storage.PaperRepo
	auditRepo *storage.OracleAuditRepo
	index     *vector.Index
	retriever *retrieval.Retriever
	providers *providers.Manager
	arxiv     *arxiv.Client
	processor *docproc.Processor
	chunker   *chunker.Chunker
	logger    *slog.Logger
}

func New(cfg config.Config, db *storage.DB, logger *slog.Logger) (*Activities, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	index := vector.NewIndex(pm, db, cfg.EmbedDim, logger)
	return &Activities{
		cfg:       cfg,
		runRepo:   storage.NewRunRepo(db),
		paperRepo: storage.NewPaperRepo(db),
		auditRepo: storage.NewOracleAuditRepo(db),
		index:     index,
		retriever: retrieval.New(index, cfg.RAGTopK, cfg.SimilarityThreshold, logger),
		providers: pm,
		arxiv:     arxiv.NewClient(cfg.ArxivBaseURL, logger),
		processor: docproc.New(cfg.DataOutRoot, logger),
		chunker:   chunker.New(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize, logger),
		logger:    logger,
	}, nil
}

func (a *Activities) UpdateRunStatusActivity(ctx context.Context, in UpdateRunStatusInput) error {
	return a.runRepo.UpdateStatus(ctx, in.RunID, models.RunStatus(in.Status), in.FailReason)
}

// ClearIndexActivity empties the run's vector namespace. Idempotent; clearing
// a namespace that was never populated is a no-op.
func (a *Activities) ClearIndexActivity(ctx context.Context, in ClearIndexInput) error {
	return a.index.Clear(ctx, in.RunID)
}

func (a *Activities) SplitSentencesActivity(ctx context.Context, in SplitSentencesInput) (SplitSentencesOutput, error) {
	_ = ctx
	return SplitSentencesOutput{Sentences: util.SplitSentences(in.IdeaText)}, nil
}

func (a *Activities) ExtractKeywordsActivity(ctx context.Context, in ExtractKeywordsInput) (ExtractKeywordsOutput, error) {
	extractor := scoring.NewKeywordExtractor(a.firstLLM(), a.cfg.NumKeywords, a.logger)
	keywords, usage, err := extractor.Extract(ctx, in.IdeaText)
	if err != nil {
		return ExtractKeywordsOutput{}, err
	}
	return ExtractKeywordsOutput{Keywords: keywords, CostUSD: a.costUSD(usage)}, nil
}

func (a *Activities) SetRunKeywordsActivity(ctx context.Context, in SetRunKeywordsInput) error {
	return a.runRepo.SetKeywords(ctx, in.RunID, in.Keywords)
}

// DiscoverPapersActivity searches arXiv for every keyword, dedupes by arXiv
// id, caps to MaxPapers and persists the candidates.
func (a *Activities) DiscoverPapersActivity(ctx context.Context, in DiscoverPapersInput) (DiscoverPapersOutput, error) {
	papers, err := a.arxiv.SearchKeywords(ctx, in.Keywords, in.PapersPerKeyword)
	if err != nil {
		return DiscoverPapersOutput{}, err
	}
	if in.MaxPapers > 0 && len(papers) > in.MaxPapers {
		papers = papers[:in.MaxPapers]
	}
	for i := range papers {
		papers[i].PaperID = fmt.Sprintf("paper_%02d", i+1)
		if err := a.paperRepo.UpsertPaper(ctx, in.RunID, papers[i]); err != nil {
			return DiscoverPapersOutput{}, err
		}
	}
	return DiscoverPapersOutput{Papers: papers}, nil
}

// ProcessPaperActivity downloads and extracts one paper, then chunks it.
// The returned paper carries headings and chunks for indexing.
func (a *Activities) ProcessPaperActivity(ctx context.Context, in ProcessPaperInput) (ProcessPaperOutput, error) {
	paper := in.Paper
	if err := a.processor.ProcessPaper(ctx, in.RunID, &paper); err != nil {
		_ = a.paperRepo.MarkProcessed(ctx, in.RunID, paper.PaperID, err.Error())
		return ProcessPaperOutput{}, err
	}
	a.chunker.ProcessPaper(&paper)
	if err := a.paperRepo.MarkProcessed(ctx, in.RunID, paper.PaperID, ""); err != nil {
		return ProcessPaperOutput{}, err
	}
	return ProcessPaperOutput{
		Paper:       paper,
		TotalChunks: paper.TotalChunks(),
		ValidChunks: len(paper.ValidChunks()),
	}, nil
}

func (a *Activities) IndexPaperActivity(ctx context.Context, in IndexPaperInput) (IndexPaperOutput, error) {
	n, err := a.index.AddPaper(ctx, in.RunID, &in.Paper)
	if err != nil {
		return IndexPaperOutput{}, err
	}
	return IndexPaperOutput{ChunksIndexed: n}, nil
}

// Layer1ScoreActivity runs per-paper originality analysis with the provider
// the workflow selected. Transport failures return an error for workflow
// failover; malformed oracle output degrades to a zero-filled result.
func (a *Activities) Layer1ScoreActivity(ctx context.Context, in Layer1ScoreInput) (Layer1ScoreOutput, error) {
	provider, ref := a.providers.LLMProviderByIndex(in.ProviderIndex)
	scorer := scoring.NewLayer1Scorer(provider, a.retriever, a.logger)

	paperContext := a.retriever.ContextForPaper(ctx, in.RunID, in.IdeaText, in.Paper.PaperID, a.cfg.RAGTopK)
	result, err := scorer.ScorePaper(ctx, in.RunID, in.IdeaText, in.Sentences, in.Paper, paperContext)
	if err != nil {
		return Layer1ScoreOutput{}, fmt.Errorf("layer1 via %s failed: %w", ref.Raw, err)
	}
	usage := providers.TokenUsage{PromptTokens: result.TokensUsed}
	return Layer1ScoreOutput{
		Result:       result,
		ProviderName: ref.Name,
		CostUSD:      a.costUSD(usage),
	}, nil
}

// RealityCheckActivity asks the oracle whether the idea already exists as a
// known product or established research area. Advisory: oracle failures
// degrade to a neutral result inside the checker.
func (a *Activities) RealityCheckActivity(ctx context.Context, in RealityCheckInput) (RealityCheckOutput, error) {
	checker := scoring.NewRealityChecker(a.firstLLM(), a.logger)
	result, usage := checker.Check(ctx, in.IdeaText)
	return RealityCheckOutput{Result: result, CostUSD: a.costUSD(usage)}, nil
}

func (a *Activities) AggregateActivity(ctx context.Context, in AggregateInput) (AggregateOutput, error) {
	agg := scoring.NewAggregator(
		a.cfg.HighOverlapThreshold, a.cfg.MediumOverlapThreshold,
		a.cfg.ScoreRedMax, a.cfg.ScoreYellowMax,
		a.firstLLM(), a.logger,
	)
	result := agg.Aggregate(ctx, in.Results, in.Sentences, in.Cost)
	if in.RealityCheck != nil {
		agg.ApplyRealityCheck(&result, *in.RealityCheck)
	}
	return AggregateOutput{Result: result}, nil
}

// SaveResultActivity persists the final assessment and writes the report
// artifact under the run's data directory.
func (a *Activities) SaveResultActivity(ctx context.Context, in SaveResultInput) (SaveResultOutput, error) {
	// The oracle audit log is the authoritative cost record; prefer it when
	// it exceeds the workflow's running tally.
	if audited, err := a.auditRepo.TotalCostByRun(ctx, in.RunID); err == nil && audited > in.Result.Cost.Total {
		in.Result.Cost.Total = audited
	} else if err != nil {
		a.logger.Warn("audited cost unavailable", "run_id", in.RunID, "err", err)
	}
	if err := a.runRepo.SaveResult(ctx, in.RunID, in.Result); err != nil {
		return SaveResultOutput{}, err
	}
	path := filepath.Join(a.cfg.DataOutRoot, in.RunID, "report.json")
	if err := util.WriteJSONAtomic(path, in.Result); err != nil {
		return SaveResultOutput{}, err
	}
	return SaveResultOutput{ReportPath: path}, nil
}

func (a *Activities) LogOracleCallActivity(ctx context.Context, in LogOracleCallInput) error {
	return a.auditRepo.Insert(ctx, storage.OracleCallRecord{
		Operation:        in.Operation,
		RunID:            in.RunID,
		PaperID:          in.PaperID,
		ProviderName:     in.ProviderName,
		Model:            in.Model,
		Status:           in.Status,
		ErrorType:        in.ErrorType,
		PromptTokens:     in.PromptTokens,
		CompletionTokens: in.CompletionTokens,
		CostUSD:          in.CostUSD,
	})
}

func (a *Activities) firstLLM() providers.LLMProvider {
	order := a.providers.PreferredLLMOrder()
	if len(order) == 0 {
		p, _ := a.providers.LLMProviderByIndex(0)
		return p
	}
	p, _ := a.providers.LLMProviderByIndex(order[0])
	return p
}

func (a *Activities) costUSD(usage providers.TokenUsage) float64 {
	return float64(usage.PromptTokens)/1e6*a.cfg.InputTokenPrice +
		float64(usage.CompletionTokens)/1e6*a.cfg.OutputTokenPrice
}
