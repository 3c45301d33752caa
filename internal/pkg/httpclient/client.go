// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Resolver 把服务名解析为一个可用实例的地址。
// 生产环境由 nacos.Client 实现；测试中可以用固定地址的实现替代。
type Resolver interface {
	Resolve(serviceName string) (ip string, port int, err error)
}

// ErrStatus 表示下游返回了非 2xx 状态码。
type ErrStatus struct {
	StatusCode int
	Body       string
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("downstream returned status %d: %s", e.StatusCode, e.Body)
}

// Client 是一个可追踪的、可注入的HTTP客户端
type Client struct {
	Tracer     trace.Tracer
	Resolver   Resolver
	HTTPClient *http.Client // 持有一个可复用的HTTP客户端实例
}

// NewClient 创建一个新的客户端实例
func NewClient(tracer trace.Tracer, resolver Resolver) *Client {
	// 在这里创建 http.Client，并且不设置 Timeout 字段
	// 让其完全受控于每次请求传入的 context
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		Resolver:   resolver,
		HTTPClient: httpClient,
	}
}

// PostJSON 向 serviceName 的 path 发起 POST，请求体和响应体都是 JSON。
// respBody 为 nil 时忽略响应内容。
func (c *Client) PostJSON(ctx context.Context, serviceName, path string, reqBody, respBody interface{}) error {
	return c.doJSON(ctx, http.MethodPost, serviceName, path, reqBody, respBody)
}

// GetJSON 向 serviceName 的 path 发起 GET 并解析 JSON 响应。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, respBody interface{}) error {
	return c.doJSON(ctx, http.MethodGet, serviceName, path, nil, respBody)
}

func (c *Client) doJSON(ctx context.Context, method, serviceName, path string, reqBody, respBody interface{}) error {
	spanName := fmt.Sprintf("call-%s", serviceName)
	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ip, port, err := c.Resolver.Resolve(serviceName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	downstreamURL := fmt.Sprintf("http://%s:%d%s", ip, port, path)

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			span.RecordError(err)
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, downstreamURL, body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", downstreamURL),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := &ErrStatus{StatusCode: resp.StatusCode, Body: string(raw)}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return statusErr
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode downstream response")
			return err
		}
	}
	return nil
}
