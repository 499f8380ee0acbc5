package groq

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/infrastructure/resilience"
)

const (
	answerMaxTokens     = 1024
	classifierMaxTokens = 5
)

// Client talks to the Groq OpenAI-compatible chat-completions API.
type Client struct {
	baseURL         string
	apiKey          string
	genModel        string
	classifierModel string
	httpClient      *http.Client
	executor        *resilience.Executor
	usageObserver   func(model string, promptTokens, completionTokens int)
}

func New(baseURL, apiKey, genModel, classifierModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		genModel:        genModel,
		classifierModel: classifierModel,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		executor:        executor,
	}
}

// Configured reports whether an API key is present. When it is not, the chat
// endpoint degrades to a fixed reply instead of failing each request.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// SetUsageObserver registers a callback receiving provider-reported token
// counts per successful completion. Called from the request goroutine.
func (c *Client) SetUsageObserver(observer func(model string, promptTokens, completionTokens int)) {
	c.usageObserver = observer
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify labels a question POLICY or GENERAL with a single constrained
// completion: temperature zero and a token budget small enough to force a
// one-word answer. Unparseable output normalizes to POLICY.
func (c *Classifier) Classify(ctx context.Context, question string) (domain.QuestionLabel, error) {
	raw, err := c.client.complete(ctx, "classify", completionRequest{
		Model: c.client.classifierModel,
		Messages: []chatMessage{
			{Role: "system", Content: classifierInstruction},
			{Role: "user", Content: question},
		},
		Temperature: 0,
		MaxTokens:   classifierMaxTokens,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrGenerationUnavailable, "classify question", err)
	}
	return domain.NormalizeLabel(raw), nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Configured() bool {
	return g.client.Configured()
}

// Generate produces the final answer from a composed system prompt, prior
// turns and the current question. History order is preserved between the
// system prompt and the question.
func (g *Generator) Generate(ctx context.Context, systemPrompt string, history []domain.ConversationTurn, question string, temperature float64) (string, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, turn := range history {
		messages = append(messages, chatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: question})

	answer, err := g.client.complete(ctx, "generate", completionRequest{
		Model:       g.client.genModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrGenerationUnavailable, "generate answer", err)
	}
	return answer, nil
}

const classifierInstruction = `You are a router for an employee assistant.
Reply with exactly one word.
Reply POLICY if the question is about company policies, procedures, benefits, conduct, leave, dress code or other internal workplace topics.
Reply GENERAL for everything else.`
