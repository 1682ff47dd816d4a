package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/scrypster/nedindex/internal/breaker"
)

const sparqlResultsJSON = "application/sparql-results+json"

// EndpointOptions configures a remote SPARQL endpoint client.
type EndpointOptions struct {
	// Timeout bounds each HTTP request (default: 60s).
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing queries; zero disables throttling.
	RequestsPerSecond float64

	// Burst is the limiter's burst size (default: 1).
	Burst int

	// MaxFailures consecutive failures open the circuit (default: 3).
	MaxFailures uint32

	// BreakerTimeout is how long the circuit stays open (default: 30s).
	BreakerTimeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// UserAgent is sent with every request.
	UserAgent string
}

// Endpoint runs queries against a remote SPARQL 1.1 endpoint.
type Endpoint struct {
	url       string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *breaker.CircuitBreaker
	timeout   time.Duration
	userAgent string
}

// Ensure *Endpoint implements Source at compile time.
var _ Source = (*Endpoint)(nil)

// NewEndpoint validates endpointURL and returns a client for it.
func NewEndpoint(endpointURL string, opts EndpointOptions) (*Endpoint, error) {
	u, err := url.Parse(endpointURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid endpoint URL %q", ErrSourceUnavailable, endpointURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "nedindex/1.0"
	}

	return &Endpoint{
		url:     u.String(),
		client:  client,
		limiter: rate.NewLimiter(limit, opts.Burst),
		breaker: breaker.New(breaker.Config{
			Name:        "sparql:" + u.Host,
			MaxFailures: opts.MaxFailures,
			Timeout:     opts.BreakerTimeout,
		}),
		timeout:   opts.Timeout,
		userAgent: ua,
	}, nil
}

// URL returns the endpoint address.
func (e *Endpoint) URL() string { return e.url }

// BreakerState reports the state of the endpoint's circuit breaker.
func (e *Endpoint) BreakerState() string { return e.breaker.State() }

// Select sends q to the endpoint and decodes the JSON result bindings.
func (e *Endpoint) Select(ctx context.Context, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, e.url, err)
	}

	res, err := e.breaker.Execute(ctx, func() (interface{}, error) {
		return e.do(ctx, q.String())
	})
	if err != nil {
		if errors.Is(err, ErrMalformedQuery) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, e.url, err)
	}
	return res.([]Row), nil
}

func (e *Endpoint) do(ctx context.Context, queryText string) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	form := url.Values{"query": {queryText}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", sparqlResultsJSON)
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: endpoint rejected query: %s", ErrMalformedQuery, strings.TrimSpace(string(msg)))
		}
		return nil, fmt.Errorf("endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	return decodeResults(resp.Body)
}

// sparqlResults mirrors the SPARQL 1.1 Query Results JSON format.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlBinding `json:"bindings"`
	} `json:"results"`
}

type sparqlBinding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

func decodeResults(r io.Reader) ([]Row, error) {
	var res sparqlResults
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}

	rows := make([]Row, 0, len(res.Results.Bindings))
	for _, b := range res.Results.Bindings {
		row := make(Row, len(b))
		for name, v := range b {
			switch v.Type {
			case "uri":
				row[name] = IRIValue(v.Value)
			case "bnode":
				row[name] = BlankValue(v.Value)
			case "literal", "typed-literal":
				if v.Lang != "" {
					row[name] = LangLiteralValue(v.Value, v.Lang)
				} else {
					row[name] = LiteralValue(v.Value, v.Datatype)
				}
			default:
				return nil, fmt.Errorf("decode results: unknown binding type %q", v.Type)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
