// Package probe issues single HTTP requests against OpenAI-compatible
// endpoints, classifies the outcome and records every attempt to the audit
// log sink.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/rs/zerolog"

	"github.com/ssrsss/API-Check/internal/endpoint"
	"github.com/ssrsss/API-Check/internal/logger"
	"github.com/ssrsss/API-Check/internal/models"
)

// modelsFetchTimeout is the fixed deadline for list-models requests.
const modelsFetchTimeout = 10 * time.Second

const (
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024
	scannerMaxBuffer     = 10 * 1024 * 1024
)

// Sink accepts completed request records. Implementations must be best-effort:
// a persistence failure must never fail the probe that produced the record.
type Sink interface {
	Save(ctx context.Context, rec *models.LogRecord)
}

// Executor issues probes. Safe for concurrent use by multiple workers.
type Executor struct {
	client *resty.Client
	sink   Sink
	log    zerolog.Logger
}

// NewExecutor creates a probe executor writing audit records to sink.
func NewExecutor(sink Sink) *Executor {
	return &Executor{
		client: resty.New(),
		sink:   sink,
		log:    logger.GetLogger(),
	}
}

// FetchModels lists the models offered by the endpoint. It accepts either a
// top-level JSON array or an object with a data array; any other shape is a
// format error. Exactly one LogRecord is written per call.
func (e *Executor) FetchModels(ctx context.Context, cfg *models.ApiConfig) ([]models.Model, error) {
	url := endpoint.Resolve(cfg, endpoint.KindModels)
	if url == "" {
		e.record(ctx, cfg, models.ProbeKindModels, "", "GET", url, 0, 0, "", "", ErrMissingEndpoint.Error())
		return nil, ErrMissingEndpoint
	}

	reqCtx, cancel := context.WithTimeout(ctx, modelsFetchTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.prepareRequest(reqCtx, cfg).Get(url)
	if err != nil {
		perr := classifyTransport(err, int(modelsFetchTimeout.Seconds()))
		e.record(ctx, cfg, models.ProbeKindModels, "", "GET", url, 0, elapsedMs(start), "", "", perr.Error())
		return nil, perr
	}

	body, readErr := drainBody(resp)
	if readErr != nil {
		perr := classifyTransport(readErr, int(modelsFetchTimeout.Seconds()))
		e.record(ctx, cfg, models.ProbeKindModels, "", "GET", url, resp.StatusCode(), elapsedMs(start), "", "", perr.Error())
		return nil, perr
	}

	// Success means 2xx exactly; a 3xx is as much a failure as a 4xx here.
	if !resp.IsSuccess() {
		herr := &HTTPError{StatusCode: resp.StatusCode(), Body: body}
		e.record(ctx, cfg, models.ProbeKindModels, "", "GET", url, resp.StatusCode(), elapsedMs(start), "", body, herr.Error())
		return nil, herr
	}

	list, perr := parseModelList(body)
	latency := elapsedMs(start)
	if perr != nil {
		e.record(ctx, cfg, models.ProbeKindModels, "", "GET", url, resp.StatusCode(), latency, "", body, perr.Error())
		return nil, perr
	}

	e.record(ctx, cfg, models.ProbeKindModels, "", "GET", url, resp.StatusCode(), latency, "", body, "")
	return list, nil
}

// TestLatency measures the wall-clock latency of a minimal one-token chat
// completion against the endpoint. With useStream the response body is
// consumed as a stream to completion so the measurement covers generation.
// The returned result never carries an error out; failures are classified
// into the result status.
func (e *Executor) TestLatency(ctx context.Context, cfg *models.ApiConfig, modelID string, timeoutSec int, useStream bool) models.ProbeResult {
	result := models.ProbeResult{
		Kind:      models.ProbeKindLatency,
		Status:    models.StatusError,
		Timestamp: time.Now(),
	}

	url := endpoint.Resolve(cfg, endpoint.KindChat)
	if url == "" {
		result.Message = ErrMissingEndpoint.Error()
		e.record(ctx, cfg, models.ProbeKindLatency, modelID, "POST", url, 0, 0, "", "", result.Message)
		return result
	}

	req := openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "hi"},
		},
		MaxTokens: 1,
		Stream:    useStream,
	}
	payload, err := mergeParams(req, cfg.Params)
	if err != nil {
		result.Message = err.Error()
		e.record(ctx, cfg, models.ProbeKindLatency, modelID, "POST", url, 0, 0, "", "", result.Message)
		return result
	}
	result.RequestBody = string(payload)

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := e.prepareRequest(reqCtx, cfg).SetBody(payload).Post(url)
	if err != nil {
		perr := classifyTransport(err, timeoutSec)
		result.Message = perr.Error()
		e.record(ctx, cfg, models.ProbeKindLatency, modelID, "POST", url, 0, elapsedMs(start), result.RequestBody, "", result.Message)
		return result
	}

	body, readErr := drainBody(resp)
	result.StatusCode = resp.StatusCode()
	result.ResponseBody = body
	if readErr != nil {
		perr := classifyTransport(readErr, timeoutSec)
		result.Message = perr.Error()
		e.record(ctx, cfg, models.ProbeKindLatency, modelID, "POST", url, resp.StatusCode(), elapsedMs(start), result.RequestBody, body, result.Message)
		return result
	}

	if !resp.IsSuccess() {
		herr := &HTTPError{StatusCode: resp.StatusCode(), Body: body}
		result.Message = herr.Error()
		e.record(ctx, cfg, models.ProbeKindLatency, modelID, "POST", url, resp.StatusCode(), elapsedMs(start), result.RequestBody, body, result.Message)
		return result
	}

	if !useStream {
		var parsed chatCompletionResponse
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			ferr := &FormatError{Detail: err.Error()}
			result.Message = ferr.Error()
			e.record(ctx, cfg, models.ProbeKindLatency, modelID, "POST", url, resp.StatusCode(), elapsedMs(start), result.RequestBody, body, result.Message)
			return result
		}
	}

	// Latency covers the fully drained (streaming) or fully parsed body.
	result.LatencyMs = elapsedMs(start)
	result.Status = models.StatusSuccess
	e.record(ctx, cfg, models.ProbeKindLatency, modelID, "POST", url, resp.StatusCode(), result.LatencyMs, result.RequestBody, body, "")
	return result
}

// TestToolSupport checks whether the model answers a synthetic get_weather
// tool definition with a structured tool call. A response carrying at least
// one tool call (or a legacy function call) in the first choice is supported;
// a plain-text answer is unsupported; non-2xx or transport failures are
// errors.
func (e *Executor) TestToolSupport(ctx context.Context, cfg *models.ApiConfig, modelID string, timeoutSec int) models.ProbeResult {
	result := models.ProbeResult{
		Kind:      models.ProbeKindTool,
		Status:    models.StatusError,
		Timestamp: time.Now(),
	}

	url := endpoint.Resolve(cfg, endpoint.KindChat)
	if url == "" {
		result.Message = ErrMissingEndpoint.Error()
		e.record(ctx, cfg, models.ProbeKindTool, modelID, "POST", url, 0, 0, "", "", result.Message)
		return result
	}

	req := openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "What is the weather like in Paris today?"},
		},
		Tools:      []openai.Tool{weatherTool()},
		ToolChoice: "auto",
	}
	payload, err := mergeParams(req, cfg.Params)
	if err != nil {
		result.Message = err.Error()
		e.record(ctx, cfg, models.ProbeKindTool, modelID, "POST", url, 0, 0, "", "", result.Message)
		return result
	}
	result.RequestBody = string(payload)

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := e.prepareRequest(reqCtx, cfg).SetBody(payload).Post(url)
	if err != nil {
		perr := classifyTransport(err, timeoutSec)
		result.Message = perr.Error()
		e.record(ctx, cfg, models.ProbeKindTool, modelID, "POST", url, 0, elapsedMs(start), result.RequestBody, "", result.Message)
		return result
	}

	body, readErr := drainBody(resp)
	result.StatusCode = resp.StatusCode()
	result.ResponseBody = body
	if readErr != nil {
		perr := classifyTransport(readErr, timeoutSec)
		result.Message = perr.Error()
		e.record(ctx, cfg, models.ProbeKindTool, modelID, "POST", url, resp.StatusCode(), elapsedMs(start), result.RequestBody, body, result.Message)
		return result
	}

	latency := elapsedMs(start)
	if !resp.IsSuccess() {
		herr := &HTTPError{StatusCode: resp.StatusCode(), Body: body}
		result.Message = herr.Error()
		e.record(ctx, cfg, models.ProbeKindTool, modelID, "POST", url, resp.StatusCode(), latency, result.RequestBody, body, result.Message)
		return result
	}

	result.LatencyMs = latency
	var parsed chatCompletionResponse
	if err := json.Unmarshal([]byte(body), &parsed); err == nil && len(parsed.Choices) > 0 &&
		(len(parsed.Choices[0].Message.ToolCalls) > 0 || hasValue(parsed.Choices[0].Message.FunctionCall)) {
		result.Status = models.StatusSupported
	} else {
		result.Status = models.StatusUnsupported
		result.Message = "model answered without a tool call"
	}

	e.record(ctx, cfg, models.ProbeKindTool, modelID, "POST", url, resp.StatusCode(), latency, result.RequestBody, body, "")
	return result
}

func weatherTool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        "get_weather",
			Description: "Get the current weather for a location",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"location": map[string]any{
						"type":        "string",
						"description": "The city to get the weather for",
					},
				},
				"required": []string{"location"},
			},
		},
	}
}

func (e *Executor) prepareRequest(ctx context.Context, cfg *models.ApiConfig) *resty.Request {
	req := e.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(cfg.APIKey) != "" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey))
	}
	for k, v := range cfg.Headers {
		req.SetHeader(k, v)
	}
	return req
}

// drainBody reads the raw response body to completion.
func drainBody(resp *resty.Response) (string, error) {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return "", nil
	}
	defer resp.RawResponse.Body.Close()
	data, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return string(data), err
	}
	return string(data), nil
}

// mergeParams serializes the request and overlays the config's fixed body
// parameters on top of it.
func mergeParams(req openai.ChatCompletionRequest, params map[string]any) ([]byte, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return raw, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for k, v := range params {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func parseModelList(body string) ([]models.Model, error) {
	trimmed := strings.TrimSpace(body)

	if strings.HasPrefix(trimmed, "[") {
		var list []models.Model
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, &FormatError{Detail: err.Error()}
		}
		return list, nil
	}

	var wrapped struct {
		Data []models.Model `json:"data"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil || wrapped.Data == nil {
		return nil, &FormatError{Detail: "expected a model array or an object with a data array"}
	}
	return wrapped.Data, nil
}

// classifyTransport maps a fetch-level failure to the error taxonomy.
// timeoutSec is used only for the timeout message; 0 means unknown.
func classifyTransport(err error, timeoutSec int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Seconds: timeoutSec}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Seconds: timeoutSec}
	}
	return &TransportError{Err: err}
}

// hasValue reports whether a raw JSON field is present and not null.
func hasValue(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func (e *Executor) record(ctx context.Context, cfg *models.ApiConfig, kind models.ProbeKind, model, method, url string, status int, latencyMs int64, reqBody, respBody, errStr string) {
	rec := &models.LogRecord{
		Timestamp:    time.Now().UnixMilli(),
		Kind:         string(kind),
		EndpointID:   cfg.ID,
		EndpointName: cfg.Name,
		Model:        model,
		Method:       method,
		URL:          url,
		StatusCode:   status,
		LatencyMs:    latencyMs,
		RequestBody:  reqBody,
		ResponseBody: respBody,
		Error:        errStr,
	}
	e.sink.Save(ctx, rec)
}

// chatCompletionResponse is the subset of the OpenAI-compatible completion
// shape the probes inspect. Unknown provider fields are ignored.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content      string            `json:"content"`
			ToolCalls    []json.RawMessage `json:"tool_calls"`
			FunctionCall json.RawMessage   `json:"function_call"`
		} `json:"message"`
	} `json:"choices"`
}

// chatStreamChunk is one SSE data frame of a streamed completion.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}
