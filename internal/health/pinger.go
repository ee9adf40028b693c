// Package health polls the feed server's /ping endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stepamak/pump-tracker/internal/feed"
	"github.com/stepamak/pump-tracker/internal/logger"
	"github.com/stepamak/pump-tracker/internal/observability"
)

const maxBody = 64 << 10

// Outcome classifies a probe.
type Outcome int

const (
	OutcomeNone Outcome = iota // no probe yet, or no URL
	OutcomeOK
	OutcomeFail
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFail:
		return "fail"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "none"
	}
}

// Result is the outcome of one probe.
type Result struct {
	Outcome Outcome
	RTT     time.Duration
	Status  int
	Err     error
	At      time.Time
}

// String renders the result for display: "<n> ms", "fail", "timeout" or "--".
func (r Result) String() string {
	switch r.Outcome {
	case OutcomeOK:
		return fmt.Sprintf("%d ms", r.RTT.Milliseconds())
	case OutcomeFail:
		return "fail"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "--"
	}
}

// Config configures the pinger.
type Config struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
	Timeout  time.Duration `koanf:"timeout"`
}

// DefaultConfig returns the default pinger configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Interval: 2 * time.Second,
		Timeout:  2 * time.Second,
	}
}

// PingURL derives the health URL from a feed endpoint: ws becomes http,
// wss becomes https, host and port are kept and the path is /ping.
func PingURL(endpoint string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	var scheme string
	switch strings.ToLower(u.Scheme) {
	case "ws", "http":
		scheme = "http"
	case "wss", "https":
		scheme = "https"
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("endpoint has no host")
	}

	out := url.URL{Scheme: scheme, Host: u.Host, Path: "/ping"}
	return out.String(), nil
}

// bodyOK reports whether body is JSON with "status" equal to "ok", ignoring case.
func bodyOK(body []byte) bool {
	js, err := simplejson.NewJson(body)
	if err != nil {
		return false
	}
	status, err := js.Get("status").String()
	return err == nil && strings.EqualFold(strings.TrimSpace(status), "ok")
}

// Pinger probes one URL.
type Pinger struct {
	url     string
	apiKey  string
	cfg     Config
	client  *http.Client
	log     *zap.Logger
	metrics *observability.Metrics

	failLog rate.Sometimes
	last    atomic.Pointer[Result]
}

// Option customizes a Pinger.
type Option func(*Pinger)

// WithHTTPClient replaces the probe client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pinger) { p.client = c }
}

// WithLogger sets the pinger logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pinger) { p.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pinger) { p.metrics = m }
}

// NewPinger creates a pinger for the feed endpoint.
func NewPinger(endpoint, apiKey string, cfg Config, opts ...Option) (*Pinger, error) {
	pingURL, err := PingURL(endpoint)
	if err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	p := &Pinger{
		url:     pingURL,
		apiKey:  apiKey,
		cfg:     cfg,
		client:  &http.Client{},
		log:     logger.Named("health"),
		metrics: observability.DefaultMetrics,
		failLog: rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.last.Store(&Result{})
	return p, nil
}

// URL returns the probed URL.
func (p *Pinger) URL() string {
	return p.url
}

// Last returns the most recent result.
func (p *Pinger) Last() Result {
	return *p.last.Load()
}

// Probe performs one GET bounded by the configured timeout.
func (p *Pinger) Probe(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	res := p.probe(ctx)
	res.At = time.Now()
	p.last.Store(&res)

	p.metrics.RecordPing(res.Outcome.String(), res.RTT)
	if res.Outcome != OutcomeOK {
		p.failLog.Do(func() {
			p.log.Warn("ping failed", zap.String("url", p.url), zap.Stringer("outcome", res.Outcome),
				zap.Int("status", res.Status), logger.FieldErr(res.Err))
		})
	}
	return res
}

func (p *Pinger) probe(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Result{Outcome: OutcomeFail, Err: err}
	}
	if p.apiKey != "" {
		req.Header.Set(feed.APIKeyHeader, p.apiKey)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Outcome: classify(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	rtt := time.Since(start)
	if err != nil {
		return Result{Outcome: classify(err), Status: resp.StatusCode, Err: err}
	}

	if (resp.StatusCode >= 200 && resp.StatusCode < 300) || bodyOK(body) {
		return Result{Outcome: OutcomeOK, RTT: rtt, Status: resp.StatusCode}
	}
	return Result{
		Outcome: OutcomeFail,
		Status:  resp.StatusCode,
		Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
	}
}

func classify(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return OutcomeTimeout
	}
	return OutcomeFail
}

// Run probes immediately and then every interval until ctx is done.
// onResult, if non-nil, is called after each probe.
func (p *Pinger) Run(ctx context.Context, onResult func(Result)) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		res := p.Probe(ctx)
		if ctx.Err() != nil {
			return
		}
		if onResult != nil {
			onResult(res)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
