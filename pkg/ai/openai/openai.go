package openai

import (
	"sync"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrentRequests = 4
	defaultRequestTimeoutMin     = 5
)

// GraphOpenAIClient is a client for interacting with the AI models used in
// the graph pipeline. It manages separate OpenAI clients for embeddings
// and chat/completion tasks so both concerns can point at different
// OpenAI-compatible endpoints.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	embeddingModel   string
	descriptionModel string
	extractionModel  string

	embeddingURL string
	embeddingKey string
	chatURL      string
	chatKey      string

	timeoutMin int
	reqLock    *semaphore.Weighted
	limits     *ai.CallLimiter

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for
// creating a new GraphOpenAIClient.
//
// EmbeddingModel specifies the model used for embeddings.
// DescriptionModel specifies the model used for summaries and answers.
// ExtractionModel specifies the model used for entity extraction.
// EmbeddingURL and EmbeddingKey configure the embedding API endpoint.
// ChatURL and ChatKey configure the chat/completion API endpoint.
// MaxConcurrentRequests bounds in-flight embedding requests.
// RequestTimeoutMin bounds the duration of a single embedding request.
// Limits is an optional shared rate limiter applied to every call.
type NewGraphOpenAIClientParams struct {
	EmbeddingModel   string
	DescriptionModel string
	ExtractionModel  string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	MaxConcurrentRequests int64
	RequestTimeoutMin     int
	Limits                *ai.CallLimiter
}

// NewGraphOpenAIClient creates and returns a new GraphOpenAIClient
// configured with the provided parameters. It initializes separate OpenAI
// clients for embeddings and chat/completion tasks.
//
// Example:
//
//	params := openai.NewGraphOpenAIClientParams{
//		EmbeddingModel:   "text-embedding-3-small",
//		DescriptionModel: "gpt-4o-mini",
//		ExtractionModel:  "gpt-4o-mini",
//		EmbeddingURL:     "https://api.openai.com/v1",
//		EmbeddingKey:     os.Getenv("OPENAI_API_KEY"),
//		ChatURL:          "https://api.openai.com/v1",
//		ChatKey:          os.Getenv("OPENAI_API_KEY"),
//	}
//	client := openai.NewGraphOpenAIClient(params)
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = defaultMaxConcurrentRequests
	}
	if params.RequestTimeoutMin <= 0 {
		params.RequestTimeoutMin = defaultRequestTimeoutMin
	}

	return &GraphOpenAIClient{
		embeddingModel:   params.EmbeddingModel,
		descriptionModel: params.DescriptionModel,
		extractionModel:  params.ExtractionModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,

		timeoutMin: params.RequestTimeoutMin,
		reqLock:    semaphore.NewWeighted(params.MaxConcurrentRequests),
		limits:     params.Limits,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
