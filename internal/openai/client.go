package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fixwise/fixwise/internal/service"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the OpenAI model used for answer generation and validation
	DefaultChatModel = openai.GPT4oMini
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions, expected 1536")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the chat API returns no choices
	ErrEmptyCompletion = errors.New("no completion returned")
)

// API defines the OpenAI surface the client depends on
type API interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
	CreateChatCompletion(ctx context.Context, systemPrompt, userMessage string, jsonOutput bool) (string, error)
}

// Client wraps the OpenAI API client. It serves three roles: embedding
// generation for similarity search, answer generation from fused context, and
// model-assisted answer validation.
type Client struct {
	api        API
	dimensions int
}

type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
}

func NewOpenAIAdapter(apiKey string, embeddingModel openai.EmbeddingModel, chatModel string) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIAdapter{
		client:         openai.NewClient(apiKey),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateChatCompletion calls the OpenAI chat API, optionally forcing a JSON
// object response.
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, systemPrompt, userMessage string, jsonOutput bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.ChatModel),
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

// GenerateAnswer produces a support answer from the assembled context prompt
func (c *Client) GenerateAnswer(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	if userQuery == "" {
		return "", ErrEmptyText
	}
	return c.api.CreateChatCompletion(ctx, systemPrompt, userQuery, false)
}

const validationSystemPrompt = `You are a quality evaluator for technical support answers.
Score the answer on three criteria, each from 0.0 to 1.0:
- completeness: does it address all parts of the question?
- accuracy: are the steps technically plausible and specific?
- relevance: does it match the product, brand, and context provided?

Respond with a JSON object:
{"completeness": 0.0, "accuracy": 0.0, "relevance": 0.0, "suggestions": ["..."]}`

type validationResponse struct {
	Completeness float32  `json:"completeness"`
	Accuracy     float32  `json:"accuracy"`
	Relevance    float32  `json:"relevance"`
	Suggestions  []string `json:"suggestions"`
}

// ScoreAnswer rates a generated answer via a structured-output chat call. It
// implements service.ValidationModel; callers fall back to heuristics when it
// errors.
func (c *Client) ScoreAnswer(ctx context.Context, question, answer, contextSummary string) (*service.CriteriaScores, []string, error) {
	userMessage := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nContext:\n%s", question, answer, contextSummary)

	raw, err := c.api.CreateChatCompletion(ctx, validationSystemPrompt, userMessage, true)
	if err != nil {
		return nil, nil, fmt.Errorf("validation completion: %w", err)
	}

	var parsed validationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, nil, fmt.Errorf("validation response parse: %w", err)
	}

	return &service.CriteriaScores{
		Completeness: clamp01(parsed.Completeness),
		Accuracy:     clamp01(parsed.Accuracy),
		Relevance:    clamp01(parsed.Relevance),
	}, parsed.Suggestions, nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
