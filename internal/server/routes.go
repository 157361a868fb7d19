package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Nat1anWasTaken/paperly/internal/chat"
	"github.com/Nat1anWasTaken/paperly/internal/defra"
	"github.com/Nat1anWasTaken/paperly/internal/store"
	"github.com/Nat1anWasTaken/paperly/internal/summarize"
	"github.com/Nat1anWasTaken/paperly/internal/translate"
)

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("POST /papers/file", s.handlePresignUpload)
	mux.HandleFunc("GET /papers", s.handleListPapers)
	mux.HandleFunc("GET /papers/{id}", s.handleGetPaper)
	mux.HandleFunc("GET /papers/{id}/blocks", s.handlePaperBlocks)
	mux.HandleFunc("POST /papers/{id}/chat", s.handleChat)

	mux.HandleFunc("POST /analyses", s.handleCreateAnalysis)
	mux.HandleFunc("GET /analyses", s.handleListAnalyses)
	mux.HandleFunc("GET /analyses/{id}", s.handleGetAnalysis)

	mux.HandleFunc("POST /translations/blocks/{id}", s.handleTranslateBlock)
	mux.HandleFunc("GET /translations/blocks/{id}", s.handleGetTranslation)

	mux.HandleFunc("POST /summaries/blocks/{id}", s.handleSummarizeBlock)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Defra  string `json:"defra,omitempty"`
}

// handleHealth returns basic server health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady returns readiness including DefraDB health.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Defra: "ok"}

	if s.defra == nil {
		resp.Status = "degraded"
		resp.Defra = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if err := s.defra.HealthCheck(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Defra = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// PresignUploadRequest asks for a direct-upload URL for a PDF.
type PresignUploadRequest struct {
	Filename string `json:"filename"`
}

// PresignUploadResponse carries the URL to PUT the file to and the key to
// reference it by when creating an analysis.
type PresignUploadResponse struct {
	UploadURL string `json:"upload_url"`
	FileKey   string `json:"file_key"`
}

func (s *Server) handlePresignUpload(w http.ResponseWriter, r *http.Request) {
	var req PresignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !strings.EqualFold(filepath.Ext(req.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF uploads are supported")
		return
	}

	key := "papers/" + uuid.New().String() + ".pdf"
	url, err := s.uploads.PresignPut(r.Context(), key, "application/pdf")
	if err != nil {
		s.logger.Error("failed to presign upload", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create upload URL")
		return
	}

	writeJSON(w, http.StatusOK, PresignUploadResponse{UploadURL: url, FileKey: key})
}

// AnalysisResponse is the JSON shape of an analysis.
type AnalysisResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	FileKey      string `json:"file_key"`
	PaperID      string `json:"paper_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

func analysisJSON(a *store.Analysis) AnalysisResponse {
	return AnalysisResponse{
		ID:           a.ID,
		Status:       string(a.Status),
		FileKey:      a.FileKey,
		PaperID:      a.PaperID,
		ErrorMessage: a.ErrorMessage,
		CreatedAt:    a.CreatedAt,
	}
}

// CreateAnalysisRequest starts processing for an uploaded file.
type CreateAnalysisRequest struct {
	FileKey string `json:"file_key"`
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FileKey) == "" {
		writeError(w, http.StatusBadRequest, "file_key is required")
		return
	}

	a, err := s.stores.Analyses.Create(r.Context(), req.FileKey)
	if err != nil {
		s.logger.Error("failed to create analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create analysis")
		return
	}

	writeJSON(w, http.StatusCreated, analysisJSON(a))
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.stores.Analyses.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list analyses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	out := make([]AnalysisResponse, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, analysisJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := defra.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis ID")
		return
	}

	a, err := s.stores.Analyses.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get analysis", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get analysis")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, analysisJSON(a))
}

// PaperResponse is the JSON shape of a paper.
type PaperResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at,omitempty"`
}

func paperJSON(p *store.Paper) PaperResponse {
	return PaperResponse{ID: p.ID, Title: p.Title, CreatedAt: p.CreatedAt}
}

func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	papers, err := s.stores.Papers.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list papers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list papers")
		return
	}
	out := make([]PaperResponse, 0, len(papers))
	for _, p := range papers {
		out = append(out, paperJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := defra.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid paper ID")
		return
	}

	p, err := s.stores.Papers.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get paper", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get paper")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "paper not found")
		return
	}
	writeJSON(w, http.StatusOK, paperJSON(p))
}

// BlockResponse is the JSON shape of a content block. Fields outside the
// block's kind are omitted.
type BlockResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	Text            string `json:"text,omitempty"`
	Title           string `json:"title,omitempty"`
	Level           int    `json:"level,omitempty"`
	Author          string `json:"author,omitempty"`
	ReferenceNumber int    `json:"reference_number,omitempty"`

	Caption      string `json:"caption,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	FigureNumber int    `json:"figure_number,omitempty"`

	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`

	Equation string `json:"equation,omitempty"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`

	Authors         []string `json:"authors,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
	Journal         string   `json:"journal,omitempty"`
	Volume          string   `json:"volume,omitempty"`
	Issue           string   `json:"issue,omitempty"`
	Pages           string   `json:"pages,omitempty"`
	DOI             string   `json:"doi,omitempty"`

	Question      string   `json:"question,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

func blockJSON(b *store.Block) BlockResponse {
	resp := BlockResponse{
		ID:              b.ID,
		Kind:            string(b.Kind),
		Text:            b.Text,
		Title:           b.Title,
		Level:           b.Level,
		Author:          b.Author,
		ReferenceNumber: b.ReferenceNumber,
		Caption:         b.Caption,
		ImageURL:        b.ImageURL,
		FigureNumber:    b.FigureNumber,
		Columns:         b.Columns,
		Rows:            b.Rows,
		Equation:        b.Equation,
		Code:            b.Code,
		Language:        b.Language,
		Authors:         b.Authors,
		PublicationYear: b.PublicationYear,
		Journal:         b.Journal,
		Volume:          b.Volume,
		Issue:           b.Issue,
		Pages:           b.Pages,
		DOI:             b.DOI,
		Question:        b.Question,
		Options:         b.Options,
		Explanation:     b.Explanation,
	}
	if b.Kind == store.KindQuiz {
		answer := b.CorrectAnswer
		resp.CorrectAnswer = &answer
	}
	return resp
}

// handlePaperBlocks returns a paper's blocks in reading order.
func (s *Server) handlePaperBlocks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := defra.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid paper ID")
		return
	}

	blocks, err := s.stores.Blocks.BlocksInOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNoHead) || errors.Is(err, store.ErrMultipleHeads) ||
			errors.Is(err, store.ErrChainCycle) || errors.Is(err, store.ErrDanglingNext) {
			s.logger.Error("block chain is malformed", "paper_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "paper content is malformed")
			return
		}
		s.logger.Error("failed to load blocks", "paper_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load blocks")
		return
	}

	out := make([]BlockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockJSON(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// TranslationResponse is the JSON shape of a translation.
type TranslationResponse struct {
	ID       string `json:"id"`
	BlockID  string `json:"block_id"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

func translationJSON(t *store.Translation) TranslationResponse {
	return TranslationResponse{ID: t.ID, BlockID: t.BlockID, Content: t.Content, Language: t.Language}
}

// TranslateBlockRequest asks for a block translation.
type TranslateBlockRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleTranslateBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req TranslateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Language) == "" {
		writeError(w, http.StatusBadRequest, "language is required")
		return
	}

	t, err := s.translator.Translate(r.Context(), id, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, translate.ErrBlockNotFound):
			writeError(w, http.StatusNotFound, "block not found")
		case errors.Is(err, translate.ErrNotTranslatable):
			writeError(w, http.StatusUnprocessableEntity, "block kind is not translatable")
		case errors.Is(err, translate.ErrUnsupportedLanguage):
			writeError(w, http.StatusBadRequest, "unsupported language")
		default:
			s.logger.Error("failed to translate block", "block_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to translate block")
		}
		return
	}

	writeJSON(w, http.StatusOK, translationJSON(t))
}

func (s *Server) handleGetTranslation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := defra.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid block ID")
		return
	}
	language := strings.TrimSpace(r.URL.Query().Get("language"))
	if language == "" {
		writeError(w, http.StatusBadRequest, "language query parameter is required")
		return
	}

	t, err := s.stores.Translations.Find(r.Context(), id, language)
	if err != nil {
		s.logger.Error("failed to look up translation", "block_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up translation")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "translation not found")
		return
	}
	writeJSON(w, http.StatusOK, translationJSON(t))
}

// SummaryResponse is the JSON shape of a block summary.
type SummaryResponse struct {
	BlockID string `json:"block_id"`
	Summary string `json:"summary"`
}

func (s *Server) handleSummarizeBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	summary, err := s.summaries.Summarize(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, summarize.ErrBlockNotFound):
			writeError(w, http.StatusNotFound, "block not found")
		case errors.Is(err, summarize.ErrNoContent):
			writeError(w, http.StatusUnprocessableEntity, "block has no summarizable content")
		default:
			s.logger.Error("failed to summarize block", "block_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to summarize block")
		}
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{BlockID: id, Summary: summary})
}

// ChatMessage is one prior turn in a paper conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest asks a question about a paper, optionally carrying the
// conversation so far.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}

// ChatResponse carries the model's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := defra.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid paper ID")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	history := make([]chat.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, chat.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := s.chatter.Ask(r.Context(), id, history, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrPaperNotFound):
			writeError(w, http.StatusNotFound, "paper not found")
		case errors.Is(err, chat.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "chat history roles must be user or assistant")
		default:
			s.logger.Error("failed to answer chat", "paper_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to answer chat")
		}
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}
