package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2/clientcredentials"

	"sulla-quiz-service/internal/domain"
)

// DefaultPath is the learning-path endpoint that records section completion.
const DefaultPath = "/api/learning-path/progress"

type Config struct {
	// URL is the full progress endpoint, e.g. https://learn.example.com/api/learning-path/progress.
	URL string
	// MetricsURL is optional; when empty RefreshMetrics is a no-op.
	MetricsURL string

	// Token is a static bearer token. Ignored when client credentials are set.
	Token        string
	TokenURL     string
	ClientID     string
	ClientSecret string

	Timeout              time.Duration
	MaxRetries           uint64
	RetryInitialInterval time.Duration
}

// Client talks to the progress-tracking service.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	var h *http.Client
	if cfg.TokenURL != "" && cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		h = cc.Client(context.Background())
	} else {
		h = &http.Client{}
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 200 * time.Millisecond
	}
	return &Client{cfg: cfg, http: h}
}

type progressRequest struct {
	UserID      string `json:"userId"`
	ModuleID    string `json:"moduleId"`
	SectionID   string `json:"sectionId"`
	Completed   bool   `json:"completed"`
	QuizScore   int    `json:"quizScore"`
	TimeSpent   int64  `json:"timeSpent"`
	PageURL     string `json:"pageUrl,omitempty"`
	NextURL     string `json:"nextUrl,omitempty"`
	SectionName string `json:"sectionName,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ReportProgress posts one completed attempt. Network errors, 5xx and 429 are retried.
func (c *Client) ReportProgress(ctx context.Context, report domain.CompletionReport) error {
	body, err := json.Marshal(progressRequest{
		UserID:      report.UserID,
		ModuleID:    report.Context.ModuleID,
		SectionID:   report.Context.SectionID,
		Completed:   report.Passed,
		QuizScore:   report.Percentage,
		TimeSpent:   report.TimeSpentSeconds(),
		PageURL:     report.Context.PageURL,
		NextURL:     report.Context.NextURL,
		SectionName: report.Context.SectionName,
	})
	if err != nil {
		return &domain.ProgressReportError{Err: err}
	}

	op := func() error {
		status, msg, err := c.post(ctx, c.cfg.URL, body)
		if err != nil {
			return &domain.ProgressReportError{Err: err}
		}
		if status/100 == 2 {
			return nil
		}
		perr := &domain.ProgressReportError{StatusCode: status, Message: msg}
		if status >= 500 || status == http.StatusTooManyRequests {
			return perr
		}
		return backoff.Permanent(perr)
	}
	return backoff.Retry(op, c.policy(ctx))
}

// RefreshMetrics asks the service to recompute aggregate metrics for a user.
func (c *Client) RefreshMetrics(ctx context.Context, userID string) error {
	if c.cfg.MetricsURL == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{"userId": userID})
	status, _, err := c.post(ctx, c.cfg.MetricsURL, body)
	if err != nil {
		return &domain.MetricsRefreshError{Err: err}
	}
	if status/100 != 2 {
		return &domain.MetricsRefreshError{StatusCode: status}
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" && c.cfg.TokenURL == "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer res.Body.Close()
	if res.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, res.Body)
		return res.StatusCode, "", nil
	}

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		if eb.Message != "" {
			return res.StatusCode, eb.Message, nil
		}
		if eb.Error != "" {
			return res.StatusCode, eb.Error, nil
		}
	}
	return res.StatusCode, http.StatusText(res.StatusCode), nil
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.RetryInitialInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, c.cfg.MaxRetries), ctx)
}
