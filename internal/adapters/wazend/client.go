package wazend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/constants"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/ratelimiting"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const maxOperationTime = 5 * time.Second

// Wazend bodies are small JSON documents
const maxBodySize = 1 << 20

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type wazendMetricsCollection struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	throttledCount  metric.Int64Counter
}

func setupWazendMetrics(meter metric.Meter) (wazendMetricsCollection, error) {
	requestCount, err := meter.Int64Counter("wazend/request_count")
	if err != nil {
		return wazendMetricsCollection{}, fmt.Errorf("failed to create request count metric: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		"wazend/request_duration",
		metric.WithUnit("s"),
	)
	if err != nil {
		return wazendMetricsCollection{}, fmt.Errorf("failed to create request duration metric: %w", err)
	}

	throttledCount, err := meter.Int64Counter("wazend/throttled_count")
	if err != nil {
		return wazendMetricsCollection{}, fmt.Errorf("failed to create throttled count metric: %w", err)
	}

	return wazendMetricsCollection{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		throttledCount:  throttledCount,
	}, nil
}

type Client struct {
	httpClient HttpClient
	baseURL    string
	limiter    ratelimiting.RequestLimiter
	nowFunc    func() time.Time

	metrics wazendMetricsCollection
	tracer  trace.Tracer
}

func NewClient(httpClient HttpClient, baseURL string, nowFunc func() time.Time, afterFunc func(time.Duration) <-chan time.Time) (*Client, error) {
	const name = "eliteseller/adapters/wazend"

	meter := otel.Meter(name)
	tracer := otel.Tracer(name)

	metrics, err := setupWazendMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	limiter := ratelimiting.NewWindowLimitRequestLimiter(240, time.Minute, nowFunc, afterFunc)

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limiter:    limiter,
		nowFunc:    nowFunc,

		metrics: metrics,
		tracer:  tracer,
	}, nil
}

// ProfileURL is the resource URL of the profile of a session
func ProfileURL(baseURL string, session string) string {
	return fmt.Sprintf("%s/api/%s/profile", strings.TrimSuffix(baseURL, "/"), url.PathEscape(session))
}

// SessionsURL is the prefix shared by every resource URL of a session
func SessionsURL(baseURL string, session string) string {
	return fmt.Sprintf("%s/api/%s/", strings.TrimSuffix(baseURL, "/"), url.PathEscape(session))
}

func sessionActionURL(baseURL string, session string, action domain.SessionAction) string {
	return fmt.Sprintf("%s/api/sessions/%s/%s", baseURL, url.PathEscape(session), action)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetProfile fetches the WhatsApp profile of a session.
//
// A 422 means the session has no profile yet, and is returned as a normal Result.
// Errors are only returned when no response was received.
func (c *Client) GetProfile(ctx context.Context, credential string, session string) (domain.Result, error) {
	ctx, span := c.tracer.Start(ctx, "Wazend.GetProfile", trace.WithAttributes(attribute.String("session", session)))
	defer span.End()

	if err := domain.ValidateSessionName(session); err != nil {
		return domain.Result{}, err
	}

	result, err := c.do(ctx, "get_profile", http.MethodGet, ProfileURL(c.baseURL, session), credential)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.Result{}, err
	}
	return result, nil
}

// ControlSession sends a control action to a session. The response body is passed through.
func (c *Client) ControlSession(ctx context.Context, credential string, session string, action domain.SessionAction) (domain.Result, error) {
	ctx, span := c.tracer.Start(
		ctx,
		"Wazend.ControlSession",
		trace.WithAttributes(attribute.String("session", session), attribute.String("action", string(action))),
	)
	defer span.End()

	if err := domain.ValidateSessionName(session); err != nil {
		return domain.Result{}, err
	}
	if _, err := domain.ParseSessionAction(string(action)); err != nil {
		return domain.Result{}, err
	}

	result, err := c.do(ctx, "control_session_"+string(action), http.MethodPost, sessionActionURL(c.baseURL, session, action), credential)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.Result{}, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, operation string, method string, url string, credential string) (domain.Result, error) {
	logger := logging.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		reporting.Report(ctx, err)
		return domain.Result{}, err
	}

	req.Header.Set("User-Agent", constants.USER_AGENT)
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("X-Api-Key", credential)
	}

	var statusCode int
	var data []byte
	ran := c.limiter.Limit(ctx, maxOperationTime, func() {
		start := c.nowFunc()
		defer func() {
			c.metrics.requestDuration.Record(
				ctx,
				c.nowFunc().Sub(start).Seconds(),
				metric.WithAttributes(attribute.String("operation", operation)),
			)
		}()

		var resp *http.Response
		resp, err = c.httpClient.Do(req)
		if err != nil {
			err = fmt.Errorf("failed to send request: %w", err)
			return
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		data, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			err = fmt.Errorf("failed to read response body: %w", err)
			return
		}
	})
	if !ran {
		c.metrics.throttledCount.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
		logger.WarnContext(ctx, "Did not call Wazend due to rate limiting", "operation", operation, "ctx_error", ctx.Err())
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			return domain.Result{}, fmt.Errorf("%w: waiting for Wazend capacity: %w", domain.ErrAborted, ctxErr)
		}
		return domain.Result{}, fmt.Errorf("%w: too many requests to Wazend", domain.ErrTemporarilyUnavailable)
	}

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			reporting.Report(ctx, err, map[string]string{"operation": operation})
		}
		return domain.Result{}, err
	}

	c.metrics.requestCount.Add(
		ctx,
		1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status_code", strconv.Itoa(statusCode)),
		),
	)

	result := resultFromResponse(statusCode, data)
	if result.Failed() {
		logger.WarnContext(
			ctx,
			"Wazend returned an error",
			"operation", operation,
			"statusCode", statusCode,
			"errorMessage", result.ErrorMessage,
		)
	}

	return result, nil
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func resultFromResponse(statusCode int, data []byte) domain.Result {
	var payload json.RawMessage
	if len(data) > 0 && json.Valid(data) {
		payload = json.RawMessage(data)
	}

	if statusCode >= 200 && statusCode < 300 || statusCode == http.StatusUnprocessableEntity {
		return domain.Result{
			StatusCode: statusCode,
			Payload:    payload,
		}
	}

	return domain.Result{
		StatusCode:   statusCode,
		Payload:      payload,
		ErrorMessage: errorMessageFromPayload(statusCode, payload),
	}
}

func errorMessageFromPayload(statusCode int, payload json.RawMessage) string {
	if payload != nil {
		var response errorResponse
		if err := json.Unmarshal(payload, &response); err == nil {
			if response.Error != nil && response.Error.Message != "" {
				return response.Error.Message
			}
			if response.Message != "" {
				return response.Message
			}
		}
	}

	return fmt.Sprintf("Wazend returned status code %d", statusCode)
}
