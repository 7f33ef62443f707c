package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chartscope/internal/adjust"
	dash "chartscope/internal/dashboard"
	"chartscope/internal/dataapi"
	"chartscope/internal/pkg/clock"
	"chartscope/internal/series"
)

type stubSource struct{}

func (stubSource) Tickers(context.Context) ([]dataapi.Ticker, error) {
	return []dataapi.Ticker{{Ticker: "600519"}, {Ticker: "000858"}}, nil
}

func (stubSource) Indexes(context.Context) ([]dataapi.Index, error) {
	return []dataapi.Index{{ID: "sh000300", Label: "沪深300"}}, nil
}

func (stubSource) InstrumentMeta(_ context.Context, ticker string) (dataapi.InstrumentMeta, error) {
	return dataapi.InstrumentMeta{Ticker: ticker}, nil
}

func (stubSource) FeatureCatalog(context.Context) ([]dataapi.Feature, error) {
	return []dataapi.Feature{{Name: "rsi"}, {Name: "turnover"}}, nil
}

func (stubSource) Bars(context.Context, string, string, string) (dataapi.BarsResult, error) {
	return dataapi.BarsResult{}, nil
}

func (stubSource) Features(context.Context, string, string, string, []string) (dataapi.FeaturesResult, error) {
	return dataapi.FeaturesResult{Features: map[string][]series.RawPoint{}}, nil
}

func (stubSource) IndexSeries(context.Context, string, string, string, []string) (dataapi.IndexSeriesResult, error) {
	return dataapi.IndexSeriesResult{}, nil
}

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	clk := clock.NewFake()
	svc := dash.NewService(context.Background(), dash.Config{
		Source:       stubSource{},
		Adjust:       adjust.NewStore(adjust.StoreConfig{Clock: clk}),
		LoadDebounce: 150 * time.Millisecond,
		Clock:        clk,
	})
	if err := svc.LoadCatalogs(context.Background()); err != nil {
		t.Fatalf("目录加载失败: %v", err)
	}
	srv, err := NewHTTPServer(HTTPConfig{Svc: svc})
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *HTTPServer, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	var payload map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &payload)
	return w, payload
}

// TestStateEndpoint 初始状态：无选区、无视图、不在加载。
func TestStateEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w, payload := doJSON(t, srv, http.MethodGet, "/api/dashboard/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码异常: %d", w.Code)
	}
	if payload["loading"] != false {
		t.Fatalf("初始不应在加载: %v", payload["loading"])
	}
	if payload["instrument"] != "" {
		t.Fatalf("初始不应有选中标的: %v", payload["instrument"])
	}
}

// TestSelectUnknownTicker 未知 ticker 返回 404，选择状态不变。
func TestSelectUnknownTicker(t *testing.T) {
	srv := newTestServer(t)
	w, _ := doJSON(t, srv, http.MethodPost, "/api/dashboard/select", `{"ticker":"999999"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("未知 ticker 应 404, 实际=%d", w.Code)
	}
	_, payload := doJSON(t, srv, http.MethodGet, "/api/dashboard/state", "")
	if payload["instrument"] != "" {
		t.Fatalf("失败的选择不应留下状态: %v", payload["instrument"])
	}
}

// TestFilterNarrowsCatalog 过滤是大小写不敏感子串匹配。
func TestFilterNarrowsCatalog(t *testing.T) {
	srv := newTestServer(t)
	w, payload := doJSON(t, srv, http.MethodPost, "/api/dashboard/filter",
		`{"catalog":"features","query":"RS"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码异常: %d", w.Code)
	}
	items, _ := payload["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("过滤结果应只剩 rsi, 实际=%v", payload["items"])
	}
}

// TestToggleFeatureAccepted 勾选合法特征返回 202 并出现在状态里。
func TestToggleFeatureAccepted(t *testing.T) {
	srv := newTestServer(t)
	w, _ := doJSON(t, srv, http.MethodPost, "/api/dashboard/toggle",
		`{"catalog":"features","id":"rsi"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("状态码异常: %d", w.Code)
	}
	_, payload := doJSON(t, srv, http.MethodGet, "/api/dashboard/state", "")
	feats, _ := payload["features"].([]any)
	if len(feats) != 1 || feats[0] != "rsi" {
		t.Fatalf("状态应包含勾选的特征: %v", payload["features"])
	}
}

// TestRangeValidation 日期必须是 YYYY-MM-DD。
func TestRangeValidation(t *testing.T) {
	srv := newTestServer(t)
	w, _ := doJSON(t, srv, http.MethodPost, "/api/dashboard/range", `{"from":"2024-01-01"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("缺 to 应 400, 实际=%d", w.Code)
	}
	w, _ = doJSON(t, srv, http.MethodPost, "/api/dashboard/range", `{"from":"01/02/2024","to":"2024-01-31"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("非法日期格式应 400, 实际=%d", w.Code)
	}
	w, _ = doJSON(t, srv, http.MethodPost, "/api/dashboard/range", `{"from":"2024-01-01","to":"2024-01-31"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("合法区间应 202, 实际=%d", w.Code)
	}
}

// TestChartBeforeLoad 尚无视图时图表页返回占位 HTML 而非报错。
func TestChartBeforeLoad(t *testing.T) {
	srv := newTestServer(t)
	w, _ := doJSON(t, srv, http.MethodGet, "/chart", "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码异常: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "尚未加载") {
		t.Fatalf("应返回占位页面")
	}
}
