package platform

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

	"github.com/artpar/runway/internal/core/domain"
)

// =============================================================================
// Knative Serving Client
// =============================================================================

// serviceLabel is the label Knative sets on every revision of a service.
const serviceLabel = "serving.knative.dev/service"

// KnativeConfig holds configuration for the Knative Serving API client.
// Cloud Run's admin API v1 serves the same resource model, with the
// project as namespace.
type KnativeConfig struct {
	// Endpoint is the API base URL, e.g. https://europe-west1-run.googleapis.com
	Endpoint string

	// Namespace is the Knative namespace (the project ID on Cloud Run).
	Namespace string

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration
}

// DefaultKnativeConfig returns default client configuration.
func DefaultKnativeConfig() KnativeConfig {
	return KnativeConfig{
		Endpoint: "https://europe-west1-run.googleapis.com",
		Timeout:  30 * time.Second,
	}
}

// KnativePlatform implements Platform over the Knative Serving REST API.
type KnativePlatform struct {
	endpoint   string
	namespace  string
	token      string
	httpClient *http.Client
}

// NewKnativePlatform creates a new Knative Serving client.
func NewKnativePlatform(cfg KnativeConfig) *KnativePlatform {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &KnativePlatform{
		endpoint:  strings.TrimSuffix(cfg.Endpoint, "/"),
		namespace: cfg.Namespace,
		token:     cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// =============================================================================
// Wire Types
// =============================================================================

type objectMeta struct {
	Name              string            `json:"name"`
	ResourceVersion   string            `json:"resourceVersion,omitempty"`
	Generation        int64             `json:"generation,omitempty"`
	CreationTimestamp time.Time         `json:"creationTimestamp"`
	Labels            map[string]string `json:"labels,omitempty"`
}

type trafficTarget struct {
	RevisionName   string `json:"revisionName,omitempty"`
	Percent        int    `json:"percent"`
	LatestRevision *bool  `json:"latestRevision,omitempty"`
	Tag            string `json:"tag,omitempty"`
}

type condition struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type serviceResource struct {
	Metadata objectMeta `json:"metadata"`
	Status   struct {
		Traffic                   []trafficTarget `json:"traffic"`
		LatestReadyRevisionName   string          `json:"latestReadyRevisionName"`
		LatestCreatedRevisionName string          `json:"latestCreatedRevisionName"`
	} `json:"status"`
}

type revisionResource struct {
	Metadata objectMeta `json:"metadata"`
	Spec     struct {
		Containers []struct {
			Image string `json:"image"`
		} `json:"containers"`
	} `json:"spec"`
	Status struct {
		Conditions []condition `json:"conditions"`
	} `json:"status"`
}

type revisionList struct {
	Items []revisionResource `json:"items"`
}

type statusBody struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// Platform Implementation
// =============================================================================

// Revisions lists the revisions labelled with the service name.
func (k *KnativePlatform) Revisions(ctx context.Context, service string) ([]domain.Revision, error) {
	query := url.Values{"labelSelector": {serviceLabel + "=" + service}}
	path := fmt.Sprintf("/apis/serving.knative.dev/v1/namespaces/%s/revisions?%s", k.namespace, query.Encode())

	var list revisionList
	if err := k.do(ctx, "Revisions", service, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	revs := make([]domain.Revision, 0, len(list.Items))
	for _, item := range list.Items {
		rev := domain.Revision{
			ID:        item.Metadata.Name,
			Label:     item.Metadata.Labels["app.kubernetes.io/version"],
			Service:   service,
			CreatedAt: item.Metadata.CreationTimestamp,
			Ready:     isReady(item.Status.Conditions),
		}
		if len(item.Spec.Containers) > 0 {
			rev.Image = item.Spec.Containers[0].Image
		}
		revs = append(revs, rev)
	}
	return revs, nil
}

// Traffic returns the routed traffic reported in the service status.
func (k *KnativePlatform) Traffic(ctx context.Context, service string) (domain.TrafficTable, string, error) {
	var svc serviceResource
	if err := k.do(ctx, "Traffic", service, http.MethodGet, k.servicePath(service), nil, &svc); err != nil {
		return nil, "", err
	}

	table := make(domain.TrafficTable, 0, len(svc.Status.Traffic))
	for _, t := range svc.Status.Traffic {
		name := t.RevisionName
		if name == "" && t.LatestRevision != nil && *t.LatestRevision {
			name = svc.Status.LatestReadyRevisionName
		}
		table = append(table, domain.TrafficTarget{RevisionID: name, Percent: t.Percent})
	}
	return table, svc.Metadata.ResourceVersion, nil
}

// UpdateTraffic reads the service, replaces spec.traffic and writes it back.
// The service is round-tripped as raw JSON so fields this client does not
// model are preserved. The write carries the resourceVersion that was read,
// so the API server refuses it if the service changed in between.
func (k *KnativePlatform) UpdateTraffic(ctx context.Context, service string, table domain.TrafficTable, generation string) error {
	const op = "UpdateTraffic"

	var raw map[string]any
	if err := k.do(ctx, op, service, http.MethodGet, k.servicePath(service), nil, &raw); err != nil {
		return err
	}

	metadata, _ := raw["metadata"].(map[string]any)
	spec, _ := raw["spec"].(map[string]any)
	if metadata == nil || spec == nil {
		return NewPlatformError(op, service, 0, "service has no metadata or spec", ErrInvalidResponse)
	}

	current, _ := metadata["resourceVersion"].(string)
	if generation != "" && current != generation {
		return NewPlatformError(op, service, http.StatusConflict,
			fmt.Sprintf("resourceVersion %s is stale (current %s)", generation, current), ErrConflict)
	}

	pinned := false
	targets := make([]trafficTarget, 0, len(table))
	for _, t := range table {
		targets = append(targets, trafficTarget{
			RevisionName:   t.RevisionID,
			Percent:        t.Percent,
			LatestRevision: &pinned,
		})
	}
	spec["traffic"] = targets

	body, err := json.Marshal(raw)
	if err != nil {
		return NewPlatformError(op, service, 0, "failed to marshal service", ErrInvalidResponse)
	}

	return k.do(ctx, op, service, http.MethodPut, k.servicePath(service), body, nil)
}

// =============================================================================
// Helpers
// =============================================================================

func (k *KnativePlatform) servicePath(service string) string {
	return fmt.Sprintf("/apis/serving.knative.dev/v1/namespaces/%s/services/%s", k.namespace, service)
}

// do sends a request and decodes a JSON response into out when non-nil.
func (k *KnativePlatform) do(ctx context.Context, op, service, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, k.endpoint+path, reader)
	if err != nil {
		return NewPlatformError(op, service, 0, fmt.Sprintf("failed to create request: %v", err), ErrConnectionFailed)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if k.token != "" {
		req.Header.Set("Authorization", "Bearer "+k.token)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return NewPlatformError(op, service, 0, err.Error(), ErrTimeout)
		}
		return NewPlatformError(op, service, 0, err.Error(), ErrConnectionFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return statusError(op, service, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewPlatformError(op, service, resp.StatusCode, fmt.Sprintf("failed to decode response: %v", err), ErrInvalidResponse)
	}
	return nil
}

// statusError maps an HTTP error status to a PlatformError.
func statusError(op, service string, code int, body []byte) *PlatformError {
	message := strings.TrimSpace(string(body))
	var status statusBody
	if json.Unmarshal(body, &status) == nil {
		if status.Error.Message != "" {
			message = status.Error.Message
		} else if status.Message != "" {
			message = status.Message
		}
	}
	message = fmt.Sprintf("platform returned %d: %s", code, message)

	var kind error
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		kind = ErrUnauthorized
	case code == http.StatusNotFound:
		kind = ErrServiceNotFound
	case code == http.StatusConflict || code == http.StatusPreconditionFailed:
		kind = ErrConflict
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		kind = ErrTimeout
	default:
		kind = ErrRejected
	}
	return NewPlatformError(op, service, code, message, kind)
}

func isReady(conditions []condition) bool {
	for _, c := range conditions {
		if c.Type == "Ready" {
			return c.Status == "True"
		}
	}
	return false
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
