package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// maxBackoff caps the delay between retries
const maxBackoff = 30 * time.Second

// OotoConfig holds the settings of the ooto face API client, loaded from
// OOTO_* environment variables
type OotoConfig struct {
	BaseURL       string        `envconfig:"BASE_URL" required:"true"`
	AppID         string        `envconfig:"APP_ID" required:"true"`
	AppKey        string        `envconfig:"APP_KEY" required:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"60s"`
	RetryCount    int           `envconfig:"RETRY_COUNT" default:"2"`
	RetryBackoff  time.Duration `envconfig:"RETRY_BACKOFF" default:"1s"`
	CheckLiveness bool          `envconfig:"CHECK_LIVENESS" default:"false"`
	CheckDeepfake bool          `envconfig:"CHECK_DEEPFAKE" default:"false"`
}

// LoadOotoConfig reads the client configuration from the environment
func LoadOotoConfig() (OotoConfig, error) {
	var cfg OotoConfig

	if err := envconfig.Process("OOTO", &cfg); err != nil {
		return cfg, fmt.Errorf("load ooto config: %w", err)
	}

	return cfg, nil
}

// OotoClient is the HTTP client for the ooto face API
type OotoClient struct {
	httpClient *http.Client
	config     OotoConfig
	base       *url.URL
	log        *slog.Logger
}

// OotoOption configures an OotoClient
type OotoOption func(*OotoClient)

// WithHTTPClient replaces the HTTP client requests are sent with
func WithHTTPClient(hc *http.Client) OotoOption {
	return func(c *OotoClient) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger retries are reported on
func WithLogger(l *slog.Logger) OotoOption {
	return func(c *OotoClient) {
		c.log = l
	}
}

var _ Provider = (*OotoClient)(nil)

// NewOotoClient returns a client for the API at cfg.BaseURL
func NewOotoClient(cfg OotoConfig, opts ...OotoOption) (*OotoClient, error) {

	base, err := url.Parse(cfg.BaseURL)

	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", cfg.BaseURL)
	}

	// endpoints resolve relative to the base path
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &OotoClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		base:       base,
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// wire formats of the ooto API

type scoreFlagJSON struct {
	Score *float64 `json:"score"`
	Fine  *bool    `json:"fine"`
}

type faceJSON struct {
	Liveness *scoreFlagJSON `json:"liveness"`
	Deepfake *scoreFlagJSON `json:"deepfake"`
	Quality  *struct {
		Gender string `json:"gender"`
		Age    int    `json:"age"`
	} `json:"quality"`
}

type templateJSON struct {
	TemplateID *string   `json:"templateId"`
	Similarity *float64  `json:"similarity"`
	Face       *faceJSON `json:"face"`
}

// resultJSON accepts the template fields both at the top level of the
// result and nested under enroll or search
type resultJSON struct {
	templateJSON
	Enroll *templateJSON `json:"enroll"`
	Search *templateJSON `json:"search"`
}

type responseJSON struct {
	TransactionID string     `json:"transactionId"`
	Result        resultJSON `json:"result"`
}

type errorJSON struct {
	TransactionID string `json:"transactionId"`
	Result        *struct {
		Status string `json:"status"`
		Code   int    `json:"code"`
		Info   string `json:"info"`
	} `json:"result"`
}

type deleteRequest struct {
	TemplateID string `json:"templateId"`
}

// Enroll uploads the image to create a template
func (c *OotoClient) Enroll(ctx context.Context, jpeg []byte, templateID string) (*EnrollResult, error) {

	fields := map[string]string{}
	if templateID != "" {
		fields["templateId"] = templateID
	}

	body, contentType, err := photoForm(jpeg, fields)

	if err != nil {
		return nil, err
	}

	var resp responseJSON

	if err := c.doRequestWithRetry(ctx, "add", c.checkQuery(), body, contentType, &resp); err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}

	t := resp.Result.pick(resp.Result.Enroll)

	return &EnrollResult{
		TransactionID: resp.TransactionID,
		TemplateID:    deref(t.TemplateID),
		ExternalID:    templateID,
		Face:          t.Face.details(),
	}, nil
}

// Identify uploads the image and searches it against enrolled templates
func (c *OotoClient) Identify(ctx context.Context, jpeg []byte) (*IdentifyResult, error) {

	body, contentType, err := photoForm(jpeg, nil)

	if err != nil {
		return nil, err
	}

	var resp responseJSON

	if err := c.doRequestWithRetry(ctx, "identify", c.checkQuery(), body, contentType, &resp); err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	t := resp.Result.pick(resp.Result.Search)

	res := &IdentifyResult{
		TransactionID: resp.TransactionID,
		TemplateID:    deref(t.TemplateID),
		Face:          t.Face.details(),
	}

	res.Matched = res.TemplateID != ""

	if t.Similarity != nil {
		res.Similarity = *t.Similarity
	}

	return res, nil
}

// Delete removes the template
func (c *OotoClient) Delete(ctx context.Context, templateID string) (*DeleteResult, error) {

	if templateID == "" {
		return nil, fmt.Errorf("delete: %w: empty template id", ErrNotFound)
	}

	body, err := json.Marshal(deleteRequest{TemplateID: templateID})

	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp responseJSON

	if err := c.doRequestWithRetry(ctx, "delete", nil, body, "application/json", &resp); err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}

	return &DeleteResult{TransactionID: resp.TransactionID}, nil
}

// checkQuery returns the liveness and deepfake query parameters
func (c *OotoClient) checkQuery() url.Values {
	return url.Values{
		"check_liveness": {strconv.FormatBool(c.config.CheckLiveness)},
		"check_deepfake": {strconv.FormatBool(c.config.CheckDeepfake)},
	}
}

// calculateBackoff doubles the base delay for every attempt after the first
func calculateBackoff(base time.Duration, attempt int) time.Duration {

	if base <= 0 {
		base = time.Second
	}

	d := base
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}

	if d > maxBackoff {
		d = maxBackoff
	}

	return d
}

// doRequestWithRetry posts to the endpoint, retrying transport failures and
// server errors with exponential backoff
func (c *OotoClient) doRequestWithRetry(ctx context.Context, endpoint string, query url.Values,
	body []byte, contentType string, result any) error {

	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := calculateBackoff(c.config.RetryBackoff, attempt)

			c.log.Warn("retrying face service request", "endpoint", endpoint,
				"attempt", attempt, "backoff", backoff, "error", lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = c.doRequest(ctx, endpoint, query, body, contentType, result)

		if lastErr == nil {
			return nil
		}

		// don't retry on context errors
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.retryable() {
			return lastErr
		}

		if errors.Is(lastErr, ErrInvalidResponse) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}

// doRequest executes a single POST
func (c *OotoClient) doRequest(ctx context.Context, endpoint string, query url.Values,
	body []byte, contentType string, result any) error {

	u := c.base.ResolveReference(&url.URL{Path: endpoint})
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))

	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APP-ID", c.config.AppID)
	req.Header.Set("APP-KEY", c.config.AppKey)

	resp, err := c.httpClient.Do(req)

	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)

	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	return nil
}

// parseAPIError builds an APIError from an error response, the body may not
// be JSON at all
func parseAPIError(status int, body []byte) *APIError {

	apiErr := &APIError{StatusCode: status}

	var payload errorJSON

	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.TransactionID = payload.TransactionID

		if payload.Result != nil {
			apiErr.Status = payload.Result.Status
			apiErr.Code = payload.Result.Code
			apiErr.Info = payload.Result.Info
		}
	}

	return apiErr
}

// photoForm builds the multipart body carrying the JPEG as the photo part
func photoForm(jpeg []byte, fields map[string]string) ([]byte, string, error) {

	if err := validateImage(jpeg); err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="photo.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := w.CreatePart(h)

	if err != nil {
		return nil, "", fmt.Errorf("create photo part: %w", err)
	}

	if _, err := part.Write(jpeg); err != nil {
		return nil, "", fmt.Errorf("write photo part: %w", err)
	}

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// pick returns the nested template result when present
func (r resultJSON) pick(nested *templateJSON) templateJSON {
	if nested != nil {
		return *nested
	}
	return r.templateJSON
}

func (f *faceJSON) details() *FaceDetails {

	if f == nil {
		return nil
	}

	d := &FaceDetails{
		Liveness: f.Liveness.flag(),
		Deepfake: f.Deepfake.flag(),
	}

	if f.Quality != nil {
		d.Gender = f.Quality.Gender
		d.Age = f.Quality.Age
	}

	return d
}

func (s *scoreFlagJSON) flag() *ScoreFlag {

	if s == nil {
		return nil
	}

	out := &ScoreFlag{}

	if s.Score != nil {
		out.Score = *s.Score
	}
	if s.Fine != nil {
		out.Fine = *s.Fine
	}

	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
