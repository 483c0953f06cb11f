package gateway

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/shopgate/internal/config"
	"github.com/nao1215/shopgate/pkg/apierror"
	"github.com/nao1215/shopgate/pkg/httpclient"
	"github.com/nao1215/shopgate/pkg/metrics"
	"github.com/nao1215/shopgate/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "api-gateway"

// proxyMethods はルートが受け付けるHTTPメソッド。
var proxyMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// forwardedHeaders は上流に転送するリクエストヘッダー。
var forwardedHeaders = []string{"Content-Type", "Accept", "Authorization"}

// route は公開パスと転送先クライアントの組。
type route struct {
	config.Route
	// client は転送先サービスのクライアント。
	client *httpclient.Client
}

// Server はAPI GatewayのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// routes は起動時に確定したルート表。
	routes []route
	// metrics は上流呼び出しの結果を記録する。
	metrics *metrics.Registry
	// logger は構造化ロガー。
	logger *slog.Logger
}

// NewServer は新しいGatewayサーバーを生成する。
// ルート表に重複や不正なURLがある場合はエラーを返す。
func NewServer(cfg *config.Gateway, reg *metrics.Registry, logger *slog.Logger) (*Server, error) {
	routes, err := newRouteTable(cfg.Routes(), cfg.UpstreamTimeout)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:  router,
		routes:  routes,
		metrics: reg,
		logger:  logger,
	}
	s.setupRoutes()

	return s, nil
}

// newRouteTable はルート設定を検証し、サービスごとのクライアントを生成する。
func newRouteTable(routes []config.Route, timeout time.Duration) ([]route, error) {
	if timeout <= 0 {
		timeout = httpclient.DefaultTimeout
	}

	seen := make(map[string]struct{}, len(routes))
	table := make([]route, 0, len(routes))
	var errs []error
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, "/") || r.Path == "/" {
			errs = append(errs, fmt.Errorf("ルート %q: パスは / で始まるサブパスである必要があります", r.Path))
			continue
		}
		if _, dup := seen[r.Path]; dup {
			errs = append(errs, fmt.Errorf("ルート %q: パスが重複しています", r.Path))
			continue
		}
		seen[r.Path] = struct{}{}

		if r.ServiceName == "" {
			errs = append(errs, fmt.Errorf("ルート %q: サービス名が必要です", r.Path))
		}
		u, err := url.Parse(r.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("ルート %q: ベースURL %q が不正です", r.Path, r.BaseURL))
			continue
		}

		table = append(table, route{
			Route:  r,
			client: httpclient.New(strings.TrimRight(r.BaseURL, "/"), httpclient.WithTimeout(timeout)),
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return table, nil
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	for _, rt := range s.routes {
		handler := s.handleProxy(rt)
		for _, method := range proxyMethods {
			s.router.Handle(method, rt.Path, handler)
			s.router.Handle(method, rt.Path+"/*rest", handler)
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": serviceName})
	})

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.router.NoRoute(func(c *gin.Context) {
		apierror.Write(c, apierror.New(apierror.KindRouteNotFound, "対応するルートがありません", nil))
	})
}

// handleProxy は指定されたサービスにリクエストを転送するハンドラを返す。
// パスとクエリは受信したものをそのまま使う。
func (s *Server) handleProxy(rt route) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body io.Reader
		if c.Request.Method != http.MethodGet {
			body = c.Request.Body
		}

		start := time.Now()
		resp, err := rt.client.Forward(
			c.Request.Context(),
			c.Request.Method,
			c.Request.URL.Path,
			c.Request.URL.RawQuery,
			body,
			upstreamHeader(c),
		)
		if err != nil {
			s.observe(rt.ServiceName, 0, start)
			s.logger.Warn("プロキシエラー",
				slog.String("service", rt.ServiceName),
				slog.String("base_url", rt.client.BaseURL()),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
				slog.String("error", err.Error()),
			)
			apierror.Write(c, apierror.NewUpstreamUnavailable("内部サービスとの通信に失敗しました", err))
			return
		}
		defer resp.Body.Close()
		s.observe(rt.ServiceName, resp.StatusCode, start)

		// レスポンスのContent-Typeとボディをそのまま転送
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}
		c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, nil)
	}
}

// upstreamHeader は上流に渡すリクエストヘッダーを組み立てる。
func upstreamHeader(c *gin.Context) http.Header {
	header := http.Header{}
	for _, key := range forwardedHeaders {
		if v := c.GetHeader(key); v != "" {
			header.Set(key, v)
		}
	}
	if id := middleware.GetRequestID(c); id != "" {
		header.Set(middleware.HeaderRequestID, id)
	}
	return header
}

func (s *Server) observe(service string, status int, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveUpstream(service, status, time.Since(start))
	}
}
