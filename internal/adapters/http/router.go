package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/ports"
	"github.com/tawandam/policy-assistant/internal/observability/metrics"
)

type Router struct {
	service  string
	chatUC   ports.ChatService
	ingestUC ports.DocumentIngestor
	repo     ports.DocumentReader
	metrics  *metrics.HTTPServerMetrics
	limiter  *RateLimiter
	logger   *slog.Logger
}

func NewRouter(
	service string,
	chatUC ports.ChatService,
	ingestUC ports.DocumentIngestor,
	repo ports.DocumentReader,
	serverMetrics *metrics.HTTPServerMetrics,
	limiter *RateLimiter,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		service:  service,
		chatUC:   chatUC,
		ingestUC: ingestUC,
		repo:     repo,
		metrics:  serverMetrics,
		limiter:  limiter,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/chat", rt.chat)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	if rt.limiter != nil {
		handler = rt.limiter.middleware(handler)
	}
	handler = rt.logRequests(handler)
	return tagRequestID(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message string                    `json:"message"`
	History []domain.ConversationTurn `json:"history"`
}

type chatResponse struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources,omitempty"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	start := time.Now()
	answer, err := rt.chatUC.Answer(r.Context(), req.Message, req.History)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
			return
		}
		// Full detail stays server-side; the client gets a user-safe line.
		rt.logger.Error("chat pipeline failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": userSafeMessage(err)})
		return
	}

	rt.observeChat(answer, time.Since(start))

	writeJSON(w, http.StatusOK, chatResponse{
		Response: answer.Text,
		Sources:  sourceNames(answer.Sources),
	})
}

func (rt *Router) observeChat(answer *domain.ChatAnswer, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordChatObservation(rt.service, string(answer.Branch), answer.Retrieved, answer.Relevant, duration)
	rt.metrics.RecordClassification(rt.service, string(answer.Label))
	if answer.Retrieved > 0 {
		rt.metrics.RecordBestDistance(rt.service, answer.BestDistance)
	}
}

// sourceNames dedupes cited chunk sources, preserving ascending-distance
// order of first appearance.
func sourceNames(chunks []domain.RetrievedChunk) []string {
	if len(chunks) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(chunks))
	names := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.Source]; ok {
			continue
		}
		seen[chunk.Source] = struct{}{}
		names = append(names, chunk.Source)
	}
	return names
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.logger.Error("document upload failed",
			"request_id", requestIDFromContext(r.Context()),
			"filename", fileHeader.Filename,
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": userSafeMessage(err)})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": userSafeMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
