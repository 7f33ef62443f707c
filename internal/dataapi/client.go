package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client 只读数据边界的 HTTP 客户端。任何失败原样上抛，不自动重试。
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient 创建 Client。
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return parseAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// parseAPIError 尽量还原服务端的 {error, details}；解析不了就带上原文。
func parseAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &APIError{StatusCode: status, Message: payload.Error, Details: payload.Details}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// Tickers 拉取 instrument 目录。
func (c *Client) Tickers(ctx context.Context) ([]Ticker, error) {
	var out struct {
		Tickers []Ticker `json:"tickers"`
	}
	if err := c.get(ctx, "/tickers", nil, &out); err != nil {
		return nil, err
	}
	return out.Tickers, nil
}

// Indexes 拉取指数目录。
func (c *Client) Indexes(ctx context.Context) ([]Index, error) {
	var out struct {
		Indexes []Index `json:"indexes"`
	}
	if err := c.get(ctx, "/indexes", nil, &out); err != nil {
		return nil, err
	}
	return out.Indexes, nil
}

// InstrumentMeta 拉取 instrument 的 sector/industry 元信息。
func (c *Client) InstrumentMeta(ctx context.Context, ticker string) (InstrumentMeta, error) {
	var out InstrumentMeta
	q := url.Values{"ticker": {ticker}}
	if err := c.get(ctx, "/instrument-meta", q, &out); err != nil {
		return InstrumentMeta{}, err
	}
	return out, nil
}

// FeatureCatalog 拉取特征目录（不带 ticker 的 /features）。
func (c *Client) FeatureCatalog(ctx context.Context) ([]Feature, error) {
	var out struct {
		Features []Feature `json:"features"`
	}
	if err := c.get(ctx, "/features", nil, &out); err != nil {
		return nil, err
	}
	return out.Features, nil
}

// Bars 拉取日线 K 线，日期按日历对齐，缺口记录在 meta 里。
func (c *Client) Bars(ctx context.Context, ticker, from, to string) (BarsResult, error) {
	var out BarsResult
	q := url.Values{"ticker": {ticker}, "from": {from}, "to": {to}}
	if err := c.get(ctx, "/bars", q, &out); err != nil {
		return BarsResult{}, err
	}
	return out, nil
}

// Features 拉取若干特征在指定区间的观测序列。
func (c *Client) Features(ctx context.Context, ticker, from, to string, names []string) (FeaturesResult, error) {
	var out FeaturesResult
	q := url.Values{
		"ticker": {ticker},
		"from":   {from},
		"to":     {to},
		"names":  {strings.Join(names, ",")},
	}
	if err := c.get(ctx, "/features", q, &out); err != nil {
		return FeaturesResult{}, err
	}
	return out, nil
}

// IndexSeries 拉取指数序列（已折算到 instrument 价格坐标系）。
func (c *Client) IndexSeries(ctx context.Context, instrument, from, to string, names []string) (IndexSeriesResult, error) {
	var out IndexSeriesResult
	q := url.Values{
		"instrument": {instrument},
		"from":       {from},
		"to":         {to},
		"names":      {strings.Join(names, ",")},
	}
	if err := c.get(ctx, "/index-series", q, &out); err != nil {
		return IndexSeriesResult{}, err
	}
	return out, nil
}

// FeatureSettings 读取持久化的特征颜色表。服务端历史上存在两种形状：
// {"features": {name: {color}}} 和扁平的 {name: color}，两者都接受；
// 空颜色与非字符串条目直接丢弃。
func (c *Client) FeatureSettings(ctx context.Context) (map[string]FeatureSetting, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/feature-settings", nil, &raw); err != nil {
		return nil, err
	}
	return coerceFeatureSettings(raw)
}

func coerceFeatureSettings(raw json.RawMessage) (map[string]FeatureSetting, error) {
	var wrapped struct {
		Features map[string]FeatureSetting `json:"features"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Features != nil {
		return pruneEmptyColors(wrapped.Features), nil
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err == nil {
		out := make(map[string]FeatureSetting, len(flat))
		for name, color := range flat {
			out[name] = FeatureSetting{Color: color}
		}
		return pruneEmptyColors(out), nil
	}
	return nil, fmt.Errorf("parsing feature settings: unrecognized shape")
}

func pruneEmptyColors(in map[string]FeatureSetting) map[string]FeatureSetting {
	out := make(map[string]FeatureSetting, len(in))
	for name, s := range in {
		if name == "" || s.Color == "" {
			continue
		}
		out[name] = s
	}
	return out
}

// SaveFeatureSettings 全量写回特征颜色表。
func (c *Client) SaveFeatureSettings(ctx context.Context, settings map[string]FeatureSetting) error {
	body := struct {
		Features map[string]FeatureSetting `json:"features"`
	}{Features: settings}
	return c.postJSON(ctx, "/feature-settings", body, nil)
}

// Health 探活。
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.get(ctx, "/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}
