package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ideascope/internal/config"
	"ideascope/internal/models"
	"ideascope/internal/observability/logging"
	"ideascope/internal/providers"
	"ideascope/internal/retrieval"
	"ideascope/internal/scoring"
	"ideascope/internal/storage"
	"ideascope/internal/vector"
	"ideascope/internal/workflows"

	"github.com/google/uuid"
	"log/slog"

	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg       config.Config
	db        *storage.DB
	runRepo   *storage.RunRepo
	paperRepo *storage.PaperRepo
	index     *vector.Index
	retriever *retrieval.Retriever
	providers *providers.Manager
	temporal  tclient.Client
	logger    *slog.Logger
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger := logging.NewJSONLogger("ideascope-api", cfg.LogLevel)
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	index := vector.NewIndex(pm, db, cfg.EmbedDim, logger)
	return &Server{
		cfg:       cfg,
		db:        db,
		runRepo:   storage.NewRunRepo(db),
		paperRepo: storage.NewPaperRepo(db),
		index:     index,
		retriever: retrieval.New(index, cfg.RAGTopK, cfg.SimilarityThreshold, logger),
		providers: pm,
		temporal:  tc,
		logger:    logger,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/v1/analyses", s.handleAnalyses)
	mux.HandleFunc("/v1/analyses/", s.handleAnalysisScoped)
	mux.HandleFunc("/v1/followups", s.handleFollowups)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		runs, err := s.runRepo.ListRuns(r.Context(), 50)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"analyses": runs})
	case http.MethodPost:
		s.handleCreateAnalysis(w, r)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

// handleFollowups generates clarifying questions for an idea. The client
// may send the answered questions back on create to enrich the analysis.
func (s *Server) handleFollowups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		IdeaText string `json:"idea_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.IdeaText = strings.TrimSpace(req.IdeaText)
	if req.IdeaText == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("idea_text is required"))
		return
	}

	gen := scoring.NewFollowupGenerator(s.providers.FirstLLMProvider(), s.logger)
	questions, _ := gen.Questions(r.Context(), req.IdeaText)
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdeaText  string                    `json:"idea_text"`
		Questions []models.FollowupQuestion `json:"questions,omitempty"`
		Answers   []string                  `json:"answers,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.IdeaText = strings.TrimSpace(req.IdeaText)
	if req.IdeaText == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("idea_text is required"))
		return
	}
	// The run stores the idea as the user wrote it; the workflow analyzes
	// the clarified version when answers came back.
	ideaForAnalysis := scoring.EnrichIdea(req.IdeaText, req.Questions, req.Answers)

	runID := uuid.NewString()
	wfID := "originality-" + runID
	if err := s.runRepo.CreateRun(r.Context(), models.Run{
		RunID:      runID,
		IdeaText:   req.IdeaText,
		Status:     models.RunPending,
		WorkflowID: wfID,
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       wfID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.OriginalityWorkflow, workflows.OriginalityInput{
		RunID:               runID,
		IdeaText:            ideaForAnalysis,
		MaxConcurrentPapers: s.cfg.MaxConcurrentPapers,
		PapersPerKeyword:    s.cfg.PapersPerKeyword,
		MaxPapers:           s.cfg.MaxPapersToAnalyze,
		LLMProviders:        s.providers.LLMCount(),
		CooldownSeconds:     s.cfg.ProviderCooldownSecs,
		DeadlineSeconds:     s.cfg.AnalysisDeadlineSecs,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":      runID,
		"workflow_id": we.GetID(),
	})
}

func (s *Server) handleAnalysisScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/analyses/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	runID := parts[0]

	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	if len(parts) == 1 {
		s.handleGetAnalysis(w, r, runID)
		return
	}
	if len(parts) == 2 && parts[1] == "progress" {
		s.handleProgress(w, r, runID)
		return
	}
	if len(parts) == 2 && parts[1] == "papers" {
		papers, err := s.paperRepo.ListPapersByRun(r.Context(), runID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"papers": papers})
		return
	}
	if len(parts) == 2 && parts[1] == "matches" {
		s.handleMatches(w, r, runID)
		return
	}
	if len(parts) == 3 && parts[1] == "papers" {
		paper, err := s.paperRepo.GetPaper(r.Context(), runID, parts[2])
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, paper)
		return
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := s.runRepo.GetRun(r.Context(), runID)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := s.runRepo.GetRun(r.Context(), runID)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}

	var prog workflows.RunProgress
	resp, qErr := s.temporal.QueryWorkflow(r.Context(), run.WorkflowID, "", workflows.QueryGetProgress)
	if qErr != nil {
		// No live workflow to query. Derive a coarse view from the DB.
		papers, pErr := s.paperRepo.ListPapersByRun(r.Context(), runID)
		if pErr != nil {
			writeErr(w, http.StatusInternalServerError, pErr)
			return
		}
		per := make(map[string]string, len(papers))
		done := 0
		failed := 0
		for _, p := range papers {
			switch {
			case p.IsProcessed:
				per[p.PaperID] = "processed"
				done++
			case p.ProcessingError != "":
				per[p.PaperID] = "failed"
				failed++
			default:
				per[p.PaperID] = "pending"
			}
		}
		writeJSON(w, http.StatusOK, workflows.RunProgress{
			RunID:       runID,
			Stage:       string(run.Status),
			Keywords:    run.Keywords,
			TotalPapers: len(papers),
			Done:        done,
			Failed:      failed,
			PerPaper:    per,
		})
		return
	}
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

// handleMatches is the click-through behind a flagged sentence: re-run the
// retrieval for that sentence against the run's indexed papers and return
// the evidence sections.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request, runID string) {
	sentence := strings.TrimSpace(r.URL.Query().Get("sentence"))
	if sentence == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("sentence is required"))
		return
	}
	paperID := strings.TrimSpace(r.URL.Query().Get("paper_id"))
	topK := s.cfg.RAGTopK
	if v := r.URL.Query().Get("top_k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topK = n
		}
	}

	matches := s.retriever.FindMatchesForSentence(r.Context(), runID, sentence, paperID)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   runID,
		"sentence": sentence,
		"matches":  matches,
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "IS-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "IS-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "IS-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "IS-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "IS-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "IS-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "IS-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "IS-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "idea_text is required"):
			msg = "An idea text is required to start an analysis."
		case strings.Contains(raw, "sentence is required"):
			msg = "A sentence query parameter is required."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}
