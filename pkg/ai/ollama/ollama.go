package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrentRequests = 2
	defaultRequestTimeoutMin     = 10
)

// GraphOllamaClient implements the ai.Client interface using Ollama as the
// backend. It supports text generation, schema-constrained generation, and
// embeddings via locally-hosted models.
type GraphOllamaClient struct {
	embeddingModel   string
	descriptionModel string
	extractionModel  string

	timeoutMin int
	reqLock    *semaphore.Weighted
	limits     *ai.CallLimiter

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
type NewGraphOllamaClientParams struct {
	EmbeddingModel   string
	DescriptionModel string
	ExtractionModel  string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
	RequestTimeoutMin     int
	Limits                *ai.CallLimiter
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new Ollama-based AI client with the specified configuration.
// It connects to the Ollama server at the given BaseURL (or the default if empty)
// and uses the configured models for different AI operations.
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = defaultMaxConcurrentRequests
	}
	if params.RequestTimeoutMin <= 0 {
		params.RequestTimeoutMin = defaultRequestTimeoutMin
	}

	return &GraphOllamaClient{
		embeddingModel:   params.EmbeddingModel,
		descriptionModel: params.DescriptionModel,
		extractionModel:  params.ExtractionModel,

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

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}
