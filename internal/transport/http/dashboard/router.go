package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chartscope/internal/adjust"
	"chartscope/internal/catalog"
	dash "chartscope/internal/dashboard"
	"chartscope/internal/dataapi"
	"chartscope/internal/diag"
	"chartscope/internal/transport/http/dashboard/ui"

	"github.com/gin-gonic/gin"
)

// HTTPServer 看板的 Gin 入口：静态首页 + 图表页 + JSON 控制接口。
type HTTPServer struct {
	addr      string
	svc       *dash.Service
	health    func(ctx context.Context) (dataapi.Health, error)
	router    *gin.Engine
	indexHTML []byte
}

type HTTPConfig struct {
	Addr string
	Svc  *dash.Service
	// Health 可选的上游探活；为 nil 时 /health 只报告本进程状态。
	Health func(ctx context.Context) (dataapi.Health, error)
}

func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Svc == nil {
		return nil, errors.New("service 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	staticFS, err := ui.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("加载前端静态资源失败: %w", err)
	}
	indexHTML, err := ui.Index()
	if err != nil {
		return nil, fmt.Errorf("加载前端首页失败: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.StaticFS("/static", staticFS)

	s := &HTTPServer{
		addr:      cfg.Addr,
		svc:       cfg.Svc,
		health:    cfg.Health,
		router:    router,
		indexHTML: indexHTML,
	}
	s.registerRoutes()
	return s, nil
}

// Handler 暴露底层 handler，测试用。
func (s *HTTPServer) Handler() http.Handler { return s.router }

func (s *HTTPServer) registerRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/chart", s.handleChart)
	api := s.router.Group("/api/dashboard")
	api.GET("/state", s.handleState)
	api.GET("/catalogs", s.handleCatalogs)
	api.POST("/filter", s.handleFilter)
	api.POST("/select", s.handleSelect)
	api.POST("/range", s.handleRange)
	api.POST("/toggle", s.handleToggle)
	api.POST("/settings", s.handleSettings)
	api.POST("/rescale", s.handleRescale)
	api.POST("/renormalize", s.handleRenormalize)
	api.POST("/reset", s.handleReset)
	api.POST("/clear", s.handleClear)
	api.GET("/diagnostics", s.handleDiagnostics)
	api.GET("/health", s.handleHealth)
}

func (s *HTTPServer) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.indexHTML)
}

func (s *HTTPServer) handleChart(c *gin.Context) {
	view := s.svc.View()
	if view == nil {
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte("<html><body>尚未加载任何数据</body></html>"))
		return
	}
	page, err := dash.RenderHTML(view)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *HTTPServer) handleState(c *gin.Context) {
	from, to := s.svc.Range()
	c.JSON(http.StatusOK, gin.H{
		"loading":    s.svc.Loading(),
		"instrument": s.svc.Tickers.Current(),
		"from":       from,
		"to":         to,
		"features":   s.svc.Features.Selected(),
		"indexes":    s.svc.Indexes.Selected(),
		"view":       s.svc.View(),
	})
}

func (s *HTTPServer) handleCatalogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tickers":  s.svc.Tickers.Items(),
		"features": s.svc.Features.Items(),
		"indexes":  s.svc.Indexes.Items(),
	})
}

func (s *HTTPServer) handleFilter(c *gin.Context) {
	var req struct {
		Catalog string `json:"catalog" binding:"required"`
		Query   string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, ok := s.catalogByName(req.Catalog)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未知目录: " + req.Catalog})
		return
	}
	cat.SetFilter(req.Query)
	c.JSON(http.StatusOK, gin.H{"items": cat.Items()})
}

func (s *HTTPServer) handleSelect(c *gin.Context) {
	var req struct {
		Ticker string `json:"ticker" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.svc.SelectInstrument(req.Ticker) {
		c.JSON(http.StatusNotFound, gin.H{"error": "未知 ticker: " + req.Ticker})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"instrument": req.Ticker})
}

func (s *HTTPServer) handleRange(c *gin.Context) {
	var req struct {
		From string `json:"from" binding:"required"`
		To   string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from/to is required"})
		return
	}
	for _, d := range []string{req.From, req.To} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "日期格式应为 YYYY-MM-DD: " + d})
			return
		}
	}
	s.svc.SetRange(req.From, req.To)
	c.JSON(http.StatusAccepted, gin.H{"from": req.From, "to": req.To})
}

func (s *HTTPServer) handleToggle(c *gin.Context) {
	var req struct {
		Catalog string `json:"catalog" binding:"required"`
		ID      string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var ok bool
	switch req.Catalog {
	case "features":
		ok = s.svc.ToggleFeature(req.ID)
	case "indexes":
		ok = s.svc.ToggleIndex(req.ID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "未知目录: " + req.Catalog})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "未知条目: " + req.ID})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": req.ID})
}

func (s *HTTPServer) handleSettings(c *gin.Context) {
	var req struct {
		Name   string   `json:"name" binding:"required"`
		Color  *string  `json:"color"`
		Scale  *float64 `json:"scale"`
		Offset *float64 `json:"offset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings := s.svc.UpdateSettings(req.Name, adjustUpdate(req.Color, req.Scale, req.Offset))
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (s *HTTPServer) handleRescale(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": s.svc.Rescale(req.Name)})
}

func (s *HTTPServer) handleReset(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": s.svc.ResetAdjustment(req.Name)})
}

func (s *HTTPServer) handleRenormalize(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.svc.Renormalize(req.Name)
	c.JSON(http.StatusOK, gin.H{"name": req.Name})
}

func (s *HTTPServer) handleClear(c *gin.Context) {
	s.svc.ClearAdjustments()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *HTTPServer) handleDiagnostics(c *gin.Context) {
	view := s.svc.View()
	if view == nil {
		c.String(http.StatusOK, "尚未加载任何数据\n")
		return
	}
	c.String(http.StatusOK, diag.ViewTable(view))
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	upstream, err := s.health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "upstream_error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "upstream": upstream})
}

func (s *HTTPServer) catalogByName(name string) (*catalog.Catalog, bool) {
	switch name {
	case "tickers":
		return s.svc.Tickers, true
	case "features":
		return s.svc.Features, true
	case "indexes":
		return s.svc.Indexes, true
	}
	return nil, false
}

func adjustUpdate(color *string, scale, offset *float64) adjust.Update {
	return adjust.Update{Color: color, Scale: scale, Offset: offset}
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
