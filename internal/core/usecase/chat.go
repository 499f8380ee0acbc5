package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/ports"
	"github.com/tawandam/policy-assistant/internal/core/prompts"
)

// ChatConfig carries the tunables of the question-answering pipeline. The
// relevance threshold and history window started life as hardcoded numbers;
// they are configuration now but the defaults are not calibrated.
type ChatConfig struct {
	TopK                int
	RelevanceThreshold  float64
	HistoryWindow       int
	WebSearchResults    int
	PolicyTemperature   float64
	FallbackTemperature float64
}

func (c ChatConfig) withDefaults() ChatConfig {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.RelevanceThreshold <= 0 {
		c.RelevanceThreshold = 0.8
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 6
	}
	if c.WebSearchResults <= 0 {
		c.WebSearchResults = 3
	}
	if c.PolicyTemperature <= 0 {
		c.PolicyTemperature = 0.3
	}
	if c.FallbackTemperature <= 0 {
		c.FallbackTemperature = 0.7
	}
	return c
}

type ChatUseCase struct {
	classifier ports.QuestionClassifier
	store      ports.VectorStore
	searcher   ports.WebSearcher
	generator  ports.AnswerGenerator
	prompts    *prompts.Library
	cfg        ChatConfig
	logger     *slog.Logger
}

func NewChatUseCase(
	classifier ports.QuestionClassifier,
	store ports.VectorStore,
	searcher ports.WebSearcher,
	generator ports.AnswerGenerator,
	promptLibrary *prompts.Library,
	cfg ChatConfig,
	logger *slog.Logger,
) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		classifier: classifier,
		store:      store,
		searcher:   searcher,
		generator:  generator,
		prompts:    promptLibrary,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}
}

// Answer runs the full pipeline for one question: classify and retrieve
// concurrently, gate the retrieved context on nearest-neighbour distance,
// pick a prompt branch, then generate.
func (uc *ChatUseCase) Answer(ctx context.Context, question string, history []domain.ConversationTurn) (*domain.ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer question", errors.New("empty question"))
	}

	if !uc.generator.Configured() {
		return &domain.ChatAnswer{
			Text:   prompts.NotConfiguredReply,
			Branch: domain.BranchDecline,
			Label:  domain.LabelPolicy,
		}, nil
	}

	// Classification and retrieval are independent remote calls.
	var (
		label  domain.QuestionLabel
		chunks []domain.RetrievedChunk
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		label, err = uc.classifier.Classify(gctx, question)
		return err
	})
	g.Go(func() error {
		var err error
		chunks, err = uc.store.Query(gctx, question, uc.cfg.TopK)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	relevant := Relevant(chunks, uc.cfg.RelevanceThreshold)

	answer := &domain.ChatAnswer{
		Label:     label,
		Retrieved: len(chunks),
		Relevant:  relevant,
	}
	if len(chunks) > 0 {
		answer.BestDistance = chunks[0].Distance
	}

	systemPrompt, temperature := uc.composePrompt(ctx, question, label, chunks, relevant, answer)

	text, err := uc.generator.Generate(ctx, systemPrompt, capHistory(history, uc.cfg.HistoryWindow), question, temperature)
	if err != nil {
		return nil, err
	}
	answer.Text = text
	return answer, nil
}

// composePrompt selects the branch in priority order: policy context, web
// context, graceful decline. It mutates answer's Branch and Sources.
func (uc *ChatUseCase) composePrompt(
	ctx context.Context,
	question string,
	label domain.QuestionLabel,
	chunks []domain.RetrievedChunk,
	relevant bool,
	answer *domain.ChatAnswer,
) (systemPrompt string, temperature float64) {
	if label == domain.LabelPolicy && relevant {
		answer.Branch = domain.BranchPolicy
		answer.Sources = chunks
		return uc.prompts.PolicyPrompt(joinChunks(chunks)), uc.cfg.PolicyTemperature
	}

	webContext := uc.searchWeb(ctx, question)
	if webContext != "" {
		answer.Branch = domain.BranchWeb
		return uc.prompts.WebPrompt(webContext), uc.cfg.FallbackTemperature
	}

	answer.Branch = domain.BranchDecline
	return uc.prompts.DeclinePrompt(), uc.cfg.FallbackTemperature
}

// searchWeb degrades to empty context on any provider failure; the pipeline
// then proceeds with the decline branch.
func (uc *ChatUseCase) searchWeb(ctx context.Context, question string) string {
	if uc.searcher == nil {
		return ""
	}
	formatted, err := uc.searcher.Search(ctx, question, uc.cfg.WebSearchResults)
	if err != nil {
		uc.logger.Warn("web search unavailable, continuing without external context",
			"error", err,
		)
		return ""
	}
	return formatted
}

// joinChunks concatenates chunk texts in ascending-distance order with
// blank-line separators.
func joinChunks(chunks []domain.RetrievedChunk) string {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	return strings.Join(texts, "\n\n")
}

// capHistory keeps only the most recent turns, preserving order.
func capHistory(history []domain.ConversationTurn, window int) []domain.ConversationTurn {
	if len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
