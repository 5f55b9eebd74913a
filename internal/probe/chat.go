package probe

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/ssrsss/API-Check/internal/endpoint"
	"github.com/ssrsss/API-Check/internal/models"
)

// ChunkHandler receives one content fragment per streamed delta.
type ChunkHandler func(content string)

// SendChat runs a full chat exchange against the endpoint's chat URL.
//
// With req.Stream the response is consumed as Server-Sent Events: each
// data frame's first-choice delta content is accumulated and delivered to
// onChunk as it arrives, until the literal [DONE] frame or end of stream
// (a provider may close without sending the sentinel; both are terminal).
// Without streaming the content is extracted from the parsed body and
// delivered once.
//
// Unlike the test-style probes SendChat returns its failure to the caller,
// after writing exactly one LogRecord. The accumulated content so far is
// returned alongside the error.
func (e *Executor) SendChat(ctx context.Context, cfg *models.ApiConfig, req openai.ChatCompletionRequest, onChunk ChunkHandler) (string, error) {
	url := endpoint.Resolve(cfg, endpoint.KindChat)
	if url == "" {
		e.record(ctx, cfg, models.ProbeKindChat, req.Model, "POST", url, 0, 0, "", "", ErrMissingEndpoint.Error())
		return "", ErrMissingEndpoint
	}

	payload, err := mergeParams(req, cfg.Params)
	if err != nil {
		e.record(ctx, cfg, models.ProbeKindChat, req.Model, "POST", url, 0, 0, "", "", err.Error())
		return "", err
	}
	reqBody := string(payload)

	start := time.Now()
	resp, err := e.prepareRequest(ctx, cfg).SetBody(payload).Post(url)
	if err != nil {
		perr := classifyTransport(err, 0)
		e.record(ctx, cfg, models.ProbeKindChat, req.Model, "POST", url, 0, elapsedMs(start), reqBody, "", perr.Error())
		return "", perr
	}

	if !resp.IsSuccess() {
		body, _ := drainBody(resp)
		herr := &HTTPError{StatusCode: resp.StatusCode(), Body: body}
		e.record(ctx, cfg, models.ProbeKindChat, req.Model, "POST", url, resp.StatusCode(), elapsedMs(start), reqBody, body, herr.Error())
		return "", herr
	}

	if req.Stream {
		return e.consumeChatStream(ctx, cfg, req.Model, url, reqBody, resp, start, onChunk)
	}

	body, readErr := drainBody(resp)
	if readErr != nil {
		perr := classifyTransport(readErr, 0)
		e.record(ctx, cfg, models.ProbeKindChat, req.Model, "POST", url, resp.StatusCode(), elapsedMs(start), reqBody, body, perr.Error())
		return "", perr
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil || len(parsed.Choices) == 0 {
		ferr := &FormatError{Detail: "response carries no choices"}
		e.record(ctx, cfg, models.ProbeKindChat, req.Model, "POST", url, resp.StatusCode(), elapsedMs(start), reqBody, body, ferr.Error())
		return "", ferr
	}

	content := parsed.Choices[0].Message.Content
	if onChunk != nil && content != "" {
		onChunk(content)
	}

	e.record(ctx, cfg, models.ProbeKindChat, req.Model, "POST", url, resp.StatusCode(), elapsedMs(start), reqBody, body, "")
	return content, nil
}

// consumeChatStream drains the SSE body, forwarding content fragments. The
// LogRecord keeps the full raw SSE text.
func (e *Executor) consumeChatStream(ctx context.Context, cfg *models.ApiConfig, model, url, reqBody string, resp *resty.Response, start time.Time, onChunk ChunkHandler) (string, error) {
	defer resp.RawResponse.Body.Close()

	var content strings.Builder
	var raw strings.Builder

	scanner := bufio.NewScanner(resp.RawResponse.Body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

	for scanner.Scan() {
		line := scanner.Text()
		raw.WriteString(line)
		raw.WriteString("\n")

		data, found := strings.CutPrefix(line, dataPrefix)
		if !found {
			continue
		}
		if data == doneMarker {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			e.log.Debug().Err(err).Str("endpoint", cfg.Name).Msg("skipping malformed stream chunk")
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			content.WriteString(chunk.Choices[0].Delta.Content)
			if onChunk != nil {
				onChunk(chunk.Choices[0].Delta.Content)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		perr := classifyTransport(err, 0)
		e.record(ctx, cfg, models.ProbeKindChat, model, "POST", url, resp.StatusCode(), elapsedMs(start), reqBody, raw.String(), perr.Error())
		return content.String(), perr
	}

	e.record(ctx, cfg, models.ProbeKindChat, model, "POST", url, resp.StatusCode(), elapsedMs(start), reqBody, raw.String(), "")
	return content.String(), nil
}
