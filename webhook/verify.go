package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrEmptyID      = errors.New("certificate id is empty")
	ErrUnknownLevel = errors.New("unknown course level")
)

// maxBody caps how much of a verifier response is kept
const maxBody = 1 << 20

// Verification is the verifier's answer for one certificate id
type Verification struct {
	Level    string `json:"level"`
	Status   int    `json:"status"`
	OK       bool   `json:"ok"`
	Body     string `json:"body"`
	Endpoint string `json:"endpoint"`
}

// Label reads like "200 OK" or "404 Error"
func (v Verification) Label() string {
	if v.OK {
		return fmt.Sprintf("%d OK", v.Status)
	}
	return fmt.Sprintf("%d Error", v.Status)
}

type Verifier struct {
	endpoints map[string]string
	client    *http.Client
}

func NewVerifier(endpoints map[string]string, timeout time.Duration) *Verifier {
	return &Verifier{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

// Levels returns the configured course levels in sorted order
func (v *Verifier) Levels() []string {
	levels := make([]string, 0, len(v.endpoints))
	for level := range v.endpoints {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	return levels
}

// Endpoint returns the path of a level's endpoint without scheme and host
func (v *Verifier) Endpoint(level string) (string, error) {
	endpoint, ok := v.endpoints[level]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	return shortEndpoint(endpoint), nil
}

func shortEndpoint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.RequestURI()
}

// Verify looks up a certificate id. Non-2xx answers are returned as a
// Verification with OK unset, network failures as an error.
func (v *Verifier) Verify(ctx context.Context, level, id string) (Verification, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Verification{}, ErrEmptyID
	}
	endpoint, ok := v.endpoints[level]
	if !ok {
		return Verification{}, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	target := endpoint + "?" + url.Values{"id": {id}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Verification{}, err
	}

	start := time.Now()
	resp, err := v.client.Do(req)
	if err != nil {
		log.WithFields(log.Fields{
			"level": level,
			"error": err,
		}).Error("Error reaching verifier")
		return Verification{}, fmt.Errorf("reaching verifier: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Verification{}, fmt.Errorf("reading verifier response: %w", err)
	}

	result := Verification{
		Level:    level,
		Status:   resp.StatusCode,
		OK:       resp.StatusCode >= 200 && resp.StatusCode <= 299,
		Body:     string(body),
		Endpoint: shortEndpoint(target),
	}

	log.WithFields(log.Fields{
		"level":    level,
		"status":   result.Status,
		"duration": time.Since(start).String(),
	}).Info("Verified certificate")

	return result, nil
}
