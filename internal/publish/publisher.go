package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
)

// maxResponseBody caps how much of a provider response we read back.
const maxResponseBody = 4096

// Publisher envía un post a una plataforma concreta usando un access token ya
// fresco. Devuelve el id del post del lado del proveedor.
type Publisher interface {
	Publish(ctx context.Context, accessToken string, p posts.Post) (providerPostID string, err error)
}

// request is what a platform builder produces: endpoint plus payload.
type request struct {
	Method  string
	URL     string
	JSON    any        // JSON body, exclusive with Form
	Form    url.Values // form body
	Headers map[string]string

	// IDPath extracts the created post id from the JSON response,
	// dot-separated (e.g. "data.id").
	IDPath string
}

// builder arma la request de publicación de una plataforma.
type builder func(token string, p posts.Post) (request, error)

// restPublisher ejecuta la request de un builder y clasifica el resultado.
// Todas las plataformas comparten este esqueleto; solo el builder cambia.
type restPublisher struct {
	platform providers.Platform
	build    builder
	http     *http.Client
}

func newRESTPublisher(platform providers.Platform, b builder) *restPublisher {
	return &restPublisher{
		platform: platform,
		build:    b,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *restPublisher) Publish(ctx context.Context, token string, p posts.Post) (string, error) {
	spec, err := r.build(token, p)
	if err != nil {
		return "", err
	}

	var body io.Reader
	contentType := ""
	switch {
	case spec.JSON != nil:
		raw, err := json.Marshal(spec.JSON)
		if err != nil {
			return "", &Error{Class: ClassPermanent, Reason: "marshal payload", Err: err}
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	case spec.Form != nil:
		body = strings.NewReader(spec.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return "", &Error{Class: ClassPermanent, Reason: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		// Timeouts y errores de red son siempre reintentables.
		return "", &Error{Class: ClassTransient, Reason: "network error", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode/100 != 2 {
		return "", classifyStatus(resp.StatusCode, string(raw))
	}

	id := extractID(raw, spec.IDPath)
	if id == "" {
		// Publicado pero sin id reconocible: no es un fallo.
		id = "unknown"
	}
	return id, nil
}

// classifyStatus maps an HTTP status to a failure class.
func classifyStatus(status int, body string) *Error {
	reason := fmt.Sprintf("status %d: %s", status, body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Class: ClassCredentialInvalid, Reason: reason}
	case status == http.StatusTooManyRequests || status >= 500:
		return &Error{Class: ClassTransient, Reason: reason}
	default:
		return &Error{Class: ClassPermanent, Reason: reason}
	}
}

// extractID walks a dot-separated path through the response JSON.
func extractID(raw []byte, path string) string {
	if path == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	for _, key := range strings.Split(path, ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return ""
		}
		v = m[key]
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return ""
	}
}

// ClassOf returns the failure class of err, defaulting to transient for
// unclassified errors so unknown conditions get retried instead of burned.
func ClassOf(err error) Class {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Class
	}
	return ClassTransient
}
