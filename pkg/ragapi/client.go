// Package ragapi is the HTTP boundary to the RAG backend. It knows the wire
// format of the three chat endpoints and nothing about session state.
package ragapi

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

	"ragchat-client/internal/dto"
	"ragchat-client/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	OpListChats         = "list_chats"
	OpCreateChat        = "create_chat"
	OpGetKnowledgeGraph = "get_knowledge_graph"

	maxErrorBody = 4 << 10
)

var emptyGraph = json.RawMessage("{}")

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.ILogger
	tracer     trace.Tracer
}

func NewClient(baseURL string, timeout time.Duration, log logger.ILogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		tracer:     otel.Tracer("ragchat-client/ragapi"),
	}
}

// ListChats fetches every chat visible to the caller, in backend order.
func (c *Client) ListChats(ctx context.Context, headers map[string]string) ([]dto.ChatResponse, error) {
	var chats []dto.ChatResponse
	if err := c.do(ctx, OpListChats, http.MethodGet, "/rag/chats/", headers, nil, &chats); err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []dto.ChatResponse{}
	}
	return chats, nil
}

func (c *Client) CreateChat(ctx context.Context, headers map[string]string, name string) (*dto.ChatResponse, error) {
	var chat dto.ChatResponse
	body := dto.CreateChatRequest{Name: name}
	if err := c.do(ctx, OpCreateChat, http.MethodPost, "/rag/chats/", headers, body, &chat); err != nil {
		return nil, err
	}
	if chat.Id == "" {
		return nil, &RemoteError{Op: OpCreateChat, Err: errors.New("response has no chat id")}
	}
	return &chat, nil
}

// GetKnowledgeGraph returns the opaque graph of a chat. A response without
// graph_data, or with a null one, is an empty graph rather than an error.
func (c *Client) GetKnowledgeGraph(ctx context.Context, headers map[string]string, chatId string) (json.RawMessage, error) {
	var res dto.KnowledgeGraphResponse
	path := "/rag/chats/" + url.PathEscape(chatId) + "/knowledge_graph/"
	if err := c.do(ctx, OpGetKnowledgeGraph, http.MethodGet, path, headers, nil, &res); err != nil {
		return nil, err
	}
	if len(res.GraphData) == 0 || bytes.Equal(bytes.TrimSpace(res.GraphData), []byte("null")) {
		return emptyGraph, nil
	}
	return res.GraphData, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, headers map[string]string, in, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "ragapi."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	fail := func(status int, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("RagAPI", "Request failed", map[string]interface{}{
			"op":     op,
			"status": status,
			"error":  err.Error(),
		})
		return &RemoteError{Op: op, StatusCode: status, Err: err}
	}

	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fail(0, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fail(0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(resp.StatusCode, fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(msg))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	c.logger.Debug("RagAPI", "Request succeeded", map[string]interface{}{"op": op, "status": resp.StatusCode})
	return nil
}
