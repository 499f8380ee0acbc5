package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/prompts"
)

type classifierFake struct {
	label domain.QuestionLabel
	err   error
	calls int
}

func (f *classifierFake) Classify(_ context.Context, _ string) (domain.QuestionLabel, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.label, nil
}

type vectorStoreFake struct {
	chunks []domain.RetrievedChunk
	err    error
	calls  int
}

func (f *vectorStoreFake) IndexChunks(_ context.Context, _ *domain.Document, _ []string) error {
	return nil
}

func (f *vectorStoreFake) Query(_ context.Context, _ string, _ int) ([]domain.RetrievedChunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type searcherFake struct {
	context string
	err     error
	calls   int
}

func (f *searcherFake) Search(_ context.Context, _ string, _ int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.context, nil
}

type generatorFake struct {
	configured   bool
	reply        string
	err          error
	systemPrompt string
	history      []domain.ConversationTurn
	question     string
	temperature  float64
}

func (f *generatorFake) Generate(_ context.Context, systemPrompt string, history []domain.ConversationTurn, question string, temperature float64) (string, error) {
	f.systemPrompt = systemPrompt
	f.history = history
	f.question = question
	f.temperature = temperature
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *generatorFake) Configured() bool {
	return f.configured
}

func newChatForTest(t *testing.T, classifier *classifierFake, store *vectorStoreFake, searcher *searcherFake, generator *generatorFake) *ChatUseCase {
	t.Helper()

	library, err := prompts.Load("", "hr_formal")
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}
	return NewChatUseCase(classifier, store, searcher, generator, library, ChatConfig{}, nil)
}

func TestChat_PolicyBranch(t *testing.T) {
	classifier := &classifierFake{label: domain.LabelPolicy}
	store := &vectorStoreFake{chunks: []domain.RetrievedChunk{
		{Source: "dress_code.pdf", Index: 0, Text: "Business casual applies Monday to Thursday.", Distance: 0.3},
		{Source: "dress_code.pdf", Index: 1, Text: "Fridays are casual.", Distance: 0.6},
	}}
	searcher := &searcherFake{context: "should not be used"}
	generator := &generatorFake{configured: true, reply: "Business casual applies."}

	uc := newChatForTest(t, classifier, store, searcher, generator)

	answer, err := uc.Answer(context.Background(), "What is the dress code?", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Branch != domain.BranchPolicy {
		t.Errorf("branch = %q, want policy", answer.Branch)
	}
	if searcher.calls != 0 {
		t.Errorf("web search invoked %d times, want 0", searcher.calls)
	}
	if !strings.Contains(generator.systemPrompt, "Business casual applies Monday to Thursday.") {
		t.Errorf("policy prompt does not embed the retrieved chunk:\n%s", generator.systemPrompt)
	}
	if !strings.Contains(generator.systemPrompt, "Business casual applies Monday to Thursday.\n\nFridays are casual.") {
		t.Errorf("chunks not joined in ascending-distance order with blank lines:\n%s", generator.systemPrompt)
	}
	if generator.temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", generator.temperature)
	}
	if len(answer.Sources) != 2 {
		t.Errorf("sources = %d, want 2", len(answer.Sources))
	}
	if !answer.Relevant || answer.BestDistance != 0.3 {
		t.Errorf("observations = relevant:%v best:%v", answer.Relevant, answer.BestDistance)
	}
}

func TestChat_WebBranchForGeneralQuestion(t *testing.T) {
	classifier := &classifierFake{label: domain.LabelGeneral}
	store := &vectorStoreFake{chunks: []domain.RetrievedChunk{
		{Text: "Leave policy text", Distance: 0.2},
	}}
	searcher := &searcherFake{context: "Harare Weather\nSunny, 28C.\n\nForecast\nClear skies."}
	generator := &generatorFake{configured: true, reply: "It's sunny in Harare."}

	uc := newChatForTest(t, classifier, store, searcher, generator)

	answer, err := uc.Answer(context.Background(), "What's the weather in Harare?", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Branch != domain.BranchWeb {
		t.Errorf("branch = %q, want web", answer.Branch)
	}
	// The store is still queried; a GENERAL label discards its result.
	if store.calls != 1 {
		t.Errorf("vector store queried %d times, want 1", store.calls)
	}
	if !strings.Contains(generator.systemPrompt, "Sunny, 28C.") {
		t.Errorf("web prompt does not embed search context:\n%s", generator.systemPrompt)
	}
	if generator.temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", generator.temperature)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("web branch must not cite policy sources, got %d", len(answer.Sources))
	}
}

func TestChat_WebBranchWhenGateFails(t *testing.T) {
	classifier := &classifierFake{label: domain.LabelPolicy}
	store := &vectorStoreFake{chunks: []domain.RetrievedChunk{
		{Text: "Unrelated text", Distance: 1.3},
	}}
	searcher := &searcherFake{context: "Some result\nBody."}
	generator := &generatorFake{configured: true, reply: "From the web."}

	uc := newChatForTest(t, classifier, store, searcher, generator)

	answer, err := uc.Answer(context.Background(), "Who won the cup final?", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Branch != domain.BranchWeb {
		t.Errorf("branch = %q, want web", answer.Branch)
	}
	if searcher.calls != 1 {
		t.Errorf("web search invoked %d times, want 1", searcher.calls)
	}
}

func TestChat_DeclineWhenNoContext(t *testing.T) {
	classifier := &classifierFake{label: domain.LabelGeneral}
	store := &vectorStoreFake{}
	searcher := &searcherFake{context: ""}
	generator := &generatorFake{configured: true, reply: "I don't have that information."}

	uc := newChatForTest(t, classifier, store, searcher, generator)

	answer, err := uc.Answer(context.Background(), "Something obscure", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Branch != domain.BranchDecline {
		t.Errorf("branch = %q, want decline", answer.Branch)
	}
	if !strings.Contains(generator.systemPrompt, "contact HR") {
		t.Errorf("decline prompt not selected:\n%s", generator.systemPrompt)
	}
}

func TestChat_WebSearchFailureDegradesToDecline(t *testing.T) {
	classifier := &classifierFake{label: domain.LabelGeneral}
	store := &vectorStoreFake{}
	searcher := &searcherFake{err: errors.New("tavily: 503 service unavailable")}
	generator := &generatorFake{configured: true, reply: "I can't help with that right now."}

	uc := newChatForTest(t, classifier, store, searcher, generator)

	answer, err := uc.Answer(context.Background(), "What's trending today?", nil)
	if err != nil {
		t.Fatalf("web search failure must not fail the request: %v", err)
	}
	if answer.Branch != domain.BranchDecline {
		t.Errorf("branch = %q, want decline", answer.Branch)
	}
}

func TestChat_NotConfigured(t *testing.T) {
	classifier := &classifierFake{label: domain.LabelPolicy}
	store := &vectorStoreFake{}
	generator := &generatorFake{configured: false}

	uc := newChatForTest(t, classifier, store, &searcherFake{}, generator)

	answer, err := uc.Answer(context.Background(), "What is the leave policy?", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Text != prompts.NotConfiguredReply {
		t.Errorf("text = %q, want the fixed not-configured reply", answer.Text)
	}
	if classifier.calls != 0 || store.calls != 0 {
		t.Errorf("pipeline ran despite missing configuration: classify=%d query=%d", classifier.calls, store.calls)
	}
}

func TestChat_HistoryCappedToWindow(t *testing.T) {
	classifier := &classifierFake{label: domain.LabelPolicy}
	store := &vectorStoreFake{chunks: []domain.RetrievedChunk{{Text: "ctx", Distance: 0.1}}}
	generator := &generatorFake{configured: true, reply: "ok"}

	uc := newChatForTest(t, classifier, store, &searcherFake{}, generator)

	history := make([]domain.ConversationTurn, 10)
	for i := range history {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		history[i] = domain.ConversationTurn{Role: role, Content: strings.Repeat("x", i+1)}
	}

	if _, err := uc.Answer(context.Background(), "follow-up", history); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(generator.history) != 6 {
		t.Fatalf("history length = %d, want 6", len(generator.history))
	}
	// The most recent turns survive, in original order.
	if generator.history[0].Content != history[4].Content {
		t.Errorf("history window dropped the wrong turns")
	}
	if generator.history[5].Content != history[9].Content {
		t.Errorf("history window reordered turns")
	}
}

func TestChat_RetrievalFailureIsTerminal(t *testing.T) {
	classifier := &classifierFake{label: domain.LabelPolicy}
	store := &vectorStoreFake{err: domain.WrapError(domain.ErrStoreUnavailable, "query", errors.New("connection refused"))}
	generator := &generatorFake{configured: true}

	uc := newChatForTest(t, classifier, store, &searcherFake{}, generator)

	_, err := uc.Answer(context.Background(), "What is the dress code?", nil)
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestChat_ClassifierFailureIsTerminal(t *testing.T) {
	classifier := &classifierFake{err: domain.WrapError(domain.ErrGenerationUnavailable, "classify", errors.New("429"))}
	store := &vectorStoreFake{}
	generator := &generatorFake{configured: true}

	uc := newChatForTest(t, classifier, store, &searcherFake{}, generator)

	_, err := uc.Answer(context.Background(), "What is the dress code?", nil)
	if !domain.IsKind(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("err = %v, want ErrGenerationUnavailable", err)
	}
}

func TestChat_EmptyQuestionRejected(t *testing.T) {
	uc := newChatForTest(t, &classifierFake{}, &vectorStoreFake{}, &searcherFake{}, &generatorFake{configured: true})

	_, err := uc.Answer(context.Background(), "   ", nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
