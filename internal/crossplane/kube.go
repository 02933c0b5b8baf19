package crossplane

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// KubeGateway talks to a Kubernetes API server over plain HTTP(S).
//
// It expects the raw API surface, not an aggregation layer:
//
//	Core:   GET /api/v1/namespaces/{ns}/{plural}/{name}
//	Groups: GET /apis/{group}/{version}/.../{plural}/{name}
//
// Authentication is a bearer token (service account or kubeconfig token);
// resolving credentials is the caller's problem.
type KubeGateway struct {
	Server      string
	BearerToken string
	Timeout     time.Duration
	HTTP        *http.Client
	UserAgent   string
	Insecure    bool
	Logger      *slog.Logger
}

func NewKubeGateway(server string) *KubeGateway {
	return &KubeGateway{
		Server:    strings.TrimRight(server, "/"),
		Timeout:   15 * time.Second,
		UserAgent: "lazyxplane/0.0.1",
		Logger:    slog.Default(),
	}
}

func (g *KubeGateway) client() *http.Client {
	if g.HTTP != nil {
		return g.HTTP
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if g.Insecure {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // explicit user flag
	}

	return &http.Client{Timeout: g.Timeout, Transport: transport}
}

// Fetch implements Gateway.
func (g *KubeGateway) Fetch(ctx context.Context, method, path string, in any) (map[string]any, error) {
	u, err := url.Parse(g.Server)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	// Keep any query string the caller baked into the path (field selectors).
	p := path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		p = path[:i]
		u.RawQuery = path[i+1:]
	}
	u.Path = strings.TrimRight(u.Path, "/") + p

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
	if g.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.BearerToken)
	}

	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	res, err := g.client().Do(req)
	dur := time.Since(start)
	if err != nil {
		hint := ""
		es := err.Error()
		if strings.Contains(es, "x509") || strings.Contains(es, "certificate") {
			hint = " (TLS error: try --insecure or set LAZYXPLANE_INSECURE=true)"
		}

		logger.Error("cluster request failed",
			"method", method,
			"path", path,
			"duration_ms", dur.Milliseconds(),
			"err", err,
		)
		return nil, fmt.Errorf("cluster request failed: %w%s", err, hint)
	}
	defer res.Body.Close()

	b, _ := io.ReadAll(res.Body)

	logger.Debug("cluster request",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"duration_ms", dur.Milliseconds(),
	)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(b))
		if len(msg) > 500 {
			msg = msg[:500] + "…"
		}
		if res.StatusCode != http.StatusNotFound {
			// 404 is routine here: the tracer probes scope guesses.
			logger.Warn("cluster non-2xx response",
				"method", method,
				"path", path,
				"status", res.StatusCode,
			)
		}
		return nil, &FetchError{StatusCode: res.StatusCode, Message: msg}
	}

	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
