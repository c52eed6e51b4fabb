package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"churninsight/dashboard/internal/config"
	"churninsight/dashboard/internal/metrics"
	"churninsight/dashboard/internal/models"
)

const maxResponseBytes = 32 << 20

// BackendClient talks to the churn prediction API. Every failed call returns a
// *TransportError. List-like reads return the decoded JSON untouched so the
// normalizer can reconcile its shape.
type BackendClient interface {
	SearchClients(ctx context.Context, filters models.FilterState) (interface{}, error)
	ListClients(ctx context.Context, page, size int) (interface{}, error)
	FilterOptions(ctx context.Context) (models.Payload, error)
	AutocompleteUserID(ctx context.Context, prefix string) ([]string, error)
	ClientsByStatus(ctx context.Context, status string, page, size int) (interface{}, error)
	HighRiskClients(ctx context.Context, page, size int) (interface{}, error)
	Statistics(ctx context.Context) (models.Payload, error)
	TotalCount(ctx context.Context) (interface{}, error)
	Aggregates(ctx context.Context) (models.Aggregates, error)
	Predict(ctx context.Context, req models.PredictionRequest) (models.Payload, error)
	PredictStats(ctx context.Context, req models.PredictionRequest) (models.Payload, error)
	UploadBatch(ctx context.Context, fileName string, content io.Reader) (models.Payload, error)
	BatchStatus(ctx context.Context, jobID string) (models.Payload, error)
	Health(ctx context.Context) (models.Payload, error)
	ClearCache(ctx context.Context) error
}

type backendClient struct {
	cfg     config.BackendConfig
	http    *http.Client
	metrics *metrics.Collector
	log     *zap.Logger
}

// NewBackendClient builds a client from the backend configuration. A nil
// httpClient uses a default client; deadlines come from the request context.
func NewBackendClient(cfg config.BackendConfig, httpClient *http.Client, collector *metrics.Collector, log *zap.Logger) BackendClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = cfg.BaseURL
	}
	return &backendClient{
		cfg:     cfg,
		http:    httpClient,
		metrics: collector,
		log:     log,
	}
}

type request struct {
	endpoint    string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	public      bool
	timeout     time.Duration
}

func (b *backendClient) SearchClients(ctx context.Context, filters models.FilterState) (interface{}, error) {
	return b.do(ctx, request{endpoint: "clients.search", path: "/clients", query: FilterQuery(filters)})
}

func (b *backendClient) ListClients(ctx context.Context, page, size int) (interface{}, error) {
	q := pageQuery(page, size)
	return b.withFallback(ctx,
		request{endpoint: "clients.list", path: "/clients", query: q},
		"/public/clients/list",
	)
}

func (b *backendClient) FilterOptions(ctx context.Context) (models.Payload, error) {
	raw, err := b.withFallback(ctx,
		request{endpoint: "clients.filter_options", path: "/clients/filter-options"},
		"/public/clients/statistics",
	)
	if err != nil {
		return nil, err
	}
	return toPayload(raw), nil
}

func (b *backendClient) AutocompleteUserID(ctx context.Context, prefix string) ([]string, error) {
	raw, err := b.do(ctx, request{
		endpoint: "clients.autocomplete",
		path:     "/clients/autocomplete/user-id",
		query:    url.Values{"prefix": {prefix}},
	})
	if err != nil {
		return nil, err
	}

	items, ok := raw.([]interface{})
	if !ok {
		items, _ = toPayload(raw)["content"].([]interface{})
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := toText(item); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (b *backendClient) ClientsByStatus(ctx context.Context, status string, page, size int) (interface{}, error) {
	return b.do(ctx, request{
		endpoint: "clients.by_status",
		path:     "/clients/by-status/" + url.PathEscape(status),
		query:    pageQuery(page, size),
	})
}

func (b *backendClient) HighRiskClients(ctx context.Context, page, size int) (interface{}, error) {
	return b.do(ctx, request{endpoint: "clients.high_risk", path: "/clients/high-risk", query: pageQuery(page, size)})
}

func (b *backendClient) Statistics(ctx context.Context) (models.Payload, error) {
	raw, err := b.withFallback(ctx,
		request{endpoint: "clients.statistics", path: "/clients/statistics"},
		"/public/clients/statistics",
	)
	if err != nil {
		return nil, err
	}
	return toPayload(raw), nil
}

func (b *backendClient) TotalCount(ctx context.Context) (interface{}, error) {
	return b.withFallback(ctx,
		request{endpoint: "clients.count", path: "/clients/count"},
		"/public/clients/count",
	)
}

// Aggregates reads /clients/aggregates, or maps the public statistics onto the
// same shape when the authenticated call fails.
func (b *backendClient) Aggregates(ctx context.Context) (models.Aggregates, error) {
	raw, err := b.do(ctx, request{endpoint: "clients.aggregates", path: "/clients/aggregates"})
	if err == nil {
		return NormalizeAggregates(toPayload(raw)), nil
	}
	if IsAborted(err) {
		return models.Aggregates{}, err
	}

	public, pubErr := b.do(ctx, request{endpoint: "clients.aggregates", path: "/public/clients/statistics", public: true})
	if pubErr != nil {
		return models.Aggregates{}, err
	}
	b.metrics.RecordFallback("clients.aggregates")
	b.log.Warn("aggregates served from public statistics", zap.Error(err))
	return AggregatesFromPublicStats(toPayload(public)), nil
}

func (b *backendClient) Predict(ctx context.Context, req models.PredictionRequest) (models.Payload, error) {
	return b.postJSON(ctx, "predict", "/predict", req)
}

func (b *backendClient) PredictStats(ctx context.Context, req models.PredictionRequest) (models.Payload, error) {
	return b.postJSON(ctx, "stats", "/stats", req)
}

// UploadBatch streams content as the multipart field "file".
func (b *backendClient) UploadBatch(ctx context.Context, fileName string, content io.Reader) (models.Payload, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", fileName)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	raw, err := b.do(ctx, request{
		endpoint:    "batch.upload",
		method:      http.MethodPost,
		path:        "/predict/batch",
		body:        pr,
		contentType: mw.FormDataContentType(),
		timeout:     b.cfg.UploadTimeout,
	})
	// Unblocks the writer if the transport never read the body.
	pr.Close()
	if err != nil {
		return nil, err
	}
	return toPayload(raw), nil
}

func (b *backendClient) BatchStatus(ctx context.Context, jobID string) (models.Payload, error) {
	raw, err := b.do(ctx, request{endpoint: "batch.status", path: "/predict/batch/status/" + url.PathEscape(jobID)})
	if err != nil {
		return nil, err
	}
	return toPayload(raw), nil
}

func (b *backendClient) Health(ctx context.Context) (models.Payload, error) {
	raw, err := b.do(ctx, request{endpoint: "health", path: "/health"})
	if err != nil {
		return nil, err
	}
	return toPayload(raw), nil
}

func (b *backendClient) ClearCache(ctx context.Context) error {
	_, err := b.do(ctx, request{endpoint: "cache.clear", method: http.MethodPost, path: "/cache/clear"})
	return err
}

func (b *backendClient) postJSON(ctx context.Context, endpoint, path string, body interface{}) (models.Payload, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Message: "failed to encode request", Err: err}
	}
	raw, err := b.do(ctx, request{
		endpoint:    endpoint,
		method:      http.MethodPost,
		path:        path,
		body:        bytes.NewReader(data),
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	return toPayload(raw), nil
}

// withFallback retries a failed authenticated read against its public mirror.
// When both fail the authenticated error is returned.
func (b *backendClient) withFallback(ctx context.Context, primary request, publicPath string) (interface{}, error) {
	raw, err := b.do(ctx, primary)
	if err == nil || IsAborted(err) {
		return raw, err
	}

	fallback := primary
	fallback.path = publicPath
	fallback.public = true
	public, pubErr := b.do(ctx, fallback)
	if pubErr != nil {
		b.log.Debug("public fallback failed", zap.String("endpoint", primary.endpoint), zap.Error(pubErr))
		return nil, err
	}

	b.metrics.RecordFallback(primary.endpoint)
	b.log.Warn("served from public endpoint",
		zap.String("endpoint", primary.endpoint),
		zap.String("path", publicPath),
		zap.Error(err),
	)
	return public, nil
}

func (b *backendClient) do(ctx context.Context, r request) (interface{}, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = b.cfg.RequestTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := r.method
	if method == "" {
		method = http.MethodGet
	}
	base := b.cfg.BaseURL
	if r.public {
		base = b.cfg.PublicBaseURL
	}
	target := base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, r.body)
	if err != nil {
		return nil, &TransportError{Endpoint: r.endpoint, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.public && b.cfg.Username != "" {
		req.SetBasicAuth(b.cfg.Username, b.cfg.Password)
	}

	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		b.metrics.RecordBackendRequest(r.endpoint, 0, time.Since(start))
		return nil, &TransportError{Endpoint: r.endpoint, Message: fmt.Sprintf("%s request failed", r.endpoint), Err: err}
	}
	defer resp.Body.Close()
	b.metrics.RecordBackendRequest(r.endpoint, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: r.endpoint, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Endpoint: r.endpoint,
			Status:   resp.StatusCode,
			Message:  errorMessage(data, resp.StatusCode),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &TransportError{
			Endpoint: r.endpoint,
			Status:   resp.StatusCode,
			Message:  "invalid JSON in response",
			Err:      err,
		}
	}
	return decoded, nil
}

// errorMessage prefers the body's message, then its error field.
func errorMessage(body []byte, status int) string {
	var p map[string]interface{}
	if err := json.Unmarshal(body, &p); err == nil {
		if msg := toText(p["message"]); msg != "" {
			return msg
		}
		if msg := toText(p["error"]); msg != "" {
			return msg
		}
	}
	return "HTTP " + strconv.Itoa(status)
}

func pageQuery(page, size int) url.Values {
	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
}
