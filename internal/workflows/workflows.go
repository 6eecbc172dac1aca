package workflows

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"ideascope/internal/activities"
	"ideascope/internal/models"
	"ideascope/internal/providers"
	"ideascope/internal/scoring"
)

const (
	QueryGetProgress    = "GetProgress"
	QueryGetPaperStatus = "GetPaperStatus"
)

type providerState struct {
	disabledUntil map[int]time.Time
	retries       map[string]int
}

func newProviderState() providerState {
	return providerState{disabledUntil: map[int]time.Time{}, retries: map[string]int{}}
}

// OriginalityWorkflow drives one assessment end to end: keywords, arXiv
// discovery, per-paper child workflows, then aggregation. Aggregation runs
// strictly after every paper result is in.
func OriginalityWorkflow(ctx workflow.Context, input OriginalityInput) (models.Layer2Result, error) {
	progress := RunProgress{
		RunID:    input.RunID,
		Stage:    "init",
		PerPaper: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (RunProgress, error) {
		return progress, nil
	}); err != nil {
		return models.Layer2Result{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	_ = workflow.ExecuteActivity(ctx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{
		RunID: input.RunID, Status: string(models.RunRunning),
	}).Get(ctx, nil)

	failRun := func(reason string) {
		_ = workflow.ExecuteActivity(ctx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{
			RunID: input.RunID, Status: string(models.RunFailed), FailReason: reason,
		}).Get(ctx, nil)
	}

	// Every run starts with a clean vector namespace.
	progress.Stage = "clear_index"
	if err := workflow.ExecuteActivity(ctx, "ClearIndexActivity", activities.ClearIndexInput{RunID: input.RunID}).Get(ctx, nil); err != nil {
		failRun("clear index: " + err.Error())
		return models.Layer2Result{}, err
	}

	// General-knowledge existence check runs before the literature search;
	// its verdict only matters at aggregation, and losing it never fails
	// the run.
	progress.Stage = "reality_check"
	var realityOut activities.RealityCheckOutput
	realityOK := true
	if err := workflow.ExecuteActivity(ctx, "RealityCheckActivity", activities.RealityCheckInput{
		RunID: input.RunID, IdeaText: input.IdeaText,
	}).Get(ctx, &realityOut); err != nil {
		realityOK = false
	}

	progress.Stage = "split_sentences"
	var sentOut activities.SplitSentencesOutput
	if err := workflow.ExecuteActivity(ctx, "SplitSentencesActivity", activities.SplitSentencesInput{IdeaText: input.IdeaText}).Get(ctx, &sentOut); err != nil {
		failRun("split sentences: " + err.Error())
		return models.Layer2Result{}, err
	}
	sentences := sentOut.Sentences

	progress.Stage = "keywords"
	var kwOut activities.ExtractKeywordsOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractKeywordsActivity", activities.ExtractKeywordsInput{
		RunID: input.RunID, IdeaText: input.IdeaText,
	}).Get(ctx, &kwOut); err != nil {
		failRun("keyword extraction: " + err.Error())
		return models.Layer2Result{}, err
	}
	progress.Keywords = kwOut.Keywords
	_ = workflow.ExecuteActivity(ctx, "SetRunKeywordsActivity", activities.SetRunKeywordsInput{
		RunID: input.RunID, Keywords: kwOut.Keywords,
	}).Get(ctx, nil)

	progress.Stage = "discover_papers"
	var discovered activities.DiscoverPapersOutput
	if err := workflow.ExecuteActivity(ctx, "DiscoverPapersActivity", activities.DiscoverPapersInput{
		RunID:            input.RunID,
		Keywords:         kwOut.Keywords,
		PapersPerKeyword: input.PapersPerKeyword,
		MaxPapers:        input.MaxPapers,
	}).Get(ctx, &discovered); err != nil {
		failRun("paper discovery: " + err.Error())
		return models.Layer2Result{}, err
	}
	progress.TotalPapers = len(discovered.Papers)

	progress.Stage = "analyze_papers"
	maxChildren := input.MaxConcurrentPapers
	if maxChildren <= 0 {
		maxChildren = 3
	}
	// Papers left unscored when the budget lapses are skipped whole, never
	// half-scored.
	deadline := workflow.Now(ctx).Add(durationOrDefault(input.DeadlineSeconds, 1800))
	results := make([]models.Layer1Result, 0, len(discovered.Papers))
	layer1Cost := 0.0

	for i := 0; i < len(discovered.Papers); i += maxChildren {
		if workflow.Now(ctx).After(deadline) {
			for _, paper := range discovered.Papers[i:] {
				progress.PerPaper[paper.PaperID] = "skipped"
			}
			break
		}
		end := i + maxChildren
		if end > len(discovered.Papers) {
			end = len(discovered.Papers)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		batch := discovered.Papers[i:end]
		for _, paper := range batch {
			progress.PerPaper[paper.PaperID] = "processing"
			cwo := workflow.ChildWorkflowOptions{
				WorkflowID: "paper-" + sanitizeID(input.RunID) + "-" + sanitizeID(paper.PaperID),
			}
			childCtx := workflow.WithChildOptions(ctx, cwo)
			futures = append(futures, workflow.ExecuteChildWorkflow(childCtx, PaperAssessWorkflow, PaperAssessInput{
				RunID:           input.RunID,
				IdeaText:        input.IdeaText,
				Sentences:       sentences,
				Paper:           paper,
				LLMProviders:    input.LLMProviders,
				CooldownSeconds: input.CooldownSeconds,
			}))
		}
		for idx, f := range futures {
			paperID := batch[idx].PaperID
			var out PaperAssessOutput
			if err := f.Get(ctx, &out); err != nil {
				progress.Failed++
				progress.PerPaper[paperID] = "failed"
				continue
			}
			progress.PerPaper[paperID] = out.Status
			if out.Status == "failed" {
				progress.Failed++
				continue
			}
			progress.Done++
			results = append(results, out.Result)
			layer1Cost += out.CostUSD
		}
	}

	progress.Stage = "aggregate"
	cost := models.CostBreakdown{
		Keywords:     kwOut.CostUSD,
		Layer1:       layer1Cost,
		RealityCheck: realityOut.CostUSD,
	}
	cost.Total = cost.Keywords + cost.Layer1 + cost.Layer2 + cost.Retrieval + cost.RealityCheck

	aggIn := activities.AggregateInput{
		RunID:     input.RunID,
		Results:   results,
		Sentences: sentences,
		Cost:      cost,
	}
	if realityOK {
		aggIn.RealityCheck = &realityOut.Result
	}
	var aggOut activities.AggregateOutput
	if err := workflow.ExecuteActivity(ctx, "AggregateActivity", aggIn).Get(ctx, &aggOut); err != nil {
		failRun("aggregate: " + err.Error())
		return models.Layer2Result{}, err
	}
	result := aggOut.Result
	result.ProcessingSeconds = workflow.Now(ctx).Sub(workflow.GetInfo(ctx).WorkflowStartTime).Seconds()

	progress.Stage = "save"
	if err := workflow.ExecuteActivity(ctx, "SaveResultActivity", activities.SaveResultInput{
		RunID: input.RunID, Result: result,
	}).Get(ctx, nil); err != nil {
		failRun("save result: " + err.Error())
		return models.Layer2Result{}, err
	}

	progress.Stage = "done"
	return result, nil
}

// PaperAssessWorkflow processes, indexes and scores a single paper. A paper
// that cannot be processed yields a zero-filled result with Status "failed"
// instead of an error, so one bad PDF never sinks the run.
func PaperAssessWorkflow(ctx workflow.Context, input PaperAssessInput) (PaperAssessOutput, error) {
	status := map[string]string{"step": "init"}
	if err := workflow.SetQueryHandler(ctx, QueryGetPaperStatus, func() (map[string]string, error) {
		return status, nil
	}); err != nil {
		return PaperAssessOutput{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	degraded := func(reason string) PaperAssessOutput {
		status["step"] = "failed"
		status["reason"] = reason
		return PaperAssessOutput{
			Status: "failed",
			Result: scoring.ZeroLayer1Result(input.Paper, input.Sentences),
		}
	}

	status["step"] = "process"
	var processed activities.ProcessPaperOutput
	if err := workflow.ExecuteActivity(ctx, "ProcessPaperActivity", activities.ProcessPaperInput{
		RunID: input.RunID, Paper: input.Paper,
	}).Get(ctx, &processed); err != nil {
		return degraded("process: " + err.Error()), nil
	}

	status["step"] = "index"
	var indexed activities.IndexPaperOutput
	if err := workflow.ExecuteActivity(ctx, "IndexPaperActivity", activities.IndexPaperInput{
		RunID: input.RunID, Paper: processed.Paper,
	}).Get(ctx, &indexed); err != nil {
		return degraded("index: " + err.Error()), nil
	}

	status["step"] = "layer1"
	llmProviders := input.LLMProviders
	if llmProviders <= 0 {
		llmProviders = 1
	}
	state := newProviderState()
	cooldown := durationOrDefault(input.CooldownSeconds, 900)

	scoreOut, err := callLayer1WithFailover(ctx, &state, llmProviders, cooldown, activities.Layer1ScoreInput{
		RunID:     input.RunID,
		IdeaText:  input.IdeaText,
		Sentences: input.Sentences,
		Paper:     processed.Paper,
	})
	if err != nil {
		return degraded("layer1: " + err.Error()), nil
	}

	status["step"] = "done"
	return PaperAssessOutput{
		Status:  "scored",
		Result:  scoreOut.Result,
		CostUSD: scoreOut.CostUSD,
	}, nil
}

// callLayer1WithFailover rotates through configured providers, putting quota
// and rate limited providers on cooldown rather than hammering them.
func callLayer1WithFailover(ctx workflow.Context, state *providerState, providerCount int, cooldown time.Duration, input activities.Layer1ScoreInput) (activities.Layer1ScoreOutput, error) {
	var lastErr error
	for attempt := 0; attempt < providerCount*4; attempt++ {
		idx := attempt % providerCount
		if isProviderDisabled(ctx, state, idx) {
			continue
		}
		input.ProviderIndex = idx
		var out activities.Layer1ScoreOutput
		err := workflow.ExecuteActivity(ctx, "Layer1ScoreActivity", input).Get(ctx, &out)
		if err == nil {
			_ = workflow.ExecuteActivity(ctx, "LogOracleCallActivity", activities.LogOracleCallInput{
				Operation:    "layer1_score",
				RunID:        input.RunID,
				PaperID:      input.Paper.PaperID,
				ProviderName: out.ProviderName,
				Model:        out.Model,
				Status:       "ok",
				PromptTokens: out.Result.TokensUsed,
				CostUSD:      out.CostUSD,
			}).Get(ctx, nil)
			return out, nil
		}
		lastErr = err
		errType := providers.ClassifyError(err)
		_ = workflow.ExecuteActivity(ctx, "LogOracleCallActivity", activities.LogOracleCallInput{
			Operation:    "layer1_score",
			RunID:        input.RunID,
			PaperID:      input.Paper.PaperID,
			ProviderName: fmt.Sprintf("provider-%d", idx),
			Status:       "failed",
			ErrorType:    string(errType),
		}).Get(ctx, nil)

		key := fmt.Sprintf("layer1-%d", idx)
		state.retries[key]++
		switch errType {
		case providers.ErrorQuota:
			disableProviderUntil(ctx, state, idx, cooldown)
		case providers.ErrorRate:
			if state.retries[key] <= 2 {
				workflow.Sleep(ctx, time.Duration(state.retries[key]*2)*time.Second)
				attempt--
			} else {
				disableProviderUntil(ctx, state, idx, 2*time.Minute)
			}
		case providers.ErrorTransient:
			if state.retries[key] <= 2 {
				workflow.Sleep(ctx, time.Duration(state.retries[key])*time.Second)
				attempt--
			}
		default:
			disableProviderUntil(ctx, state, idx, time.Minute)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all layer1 providers exhausted")
	}
	return activities.Layer1ScoreOutput{}, lastErr
}

func isProviderDisabled(ctx workflow.Context, state *providerState, idx int) bool {
	until, ok := state.disabledUntil[idx]
	if !ok {
		return false
	}
	return workflow.Now(ctx).Before(until)
}

func disableProviderUntil(ctx workflow.Context, state *providerState, idx int, d time.Duration) {
	state.disabledUntil[idx] = workflow.Now(ctx).Add(d)
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

func durationOrDefault(seconds int, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
