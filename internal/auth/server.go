package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/shopgate/pkg/apierror"
	"github.com/nao1215/shopgate/pkg/metrics"
	"github.com/nao1215/shopgate/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "auth-service"

// Server は認証ブローカーのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// broker は認証ブローカー。
	broker *Broker
	// verifier は保護リソースのBearerトークン検証器。
	verifier middleware.TokenVerifier
	// metrics は /metrics で公開するレジストリ。
	metrics *metrics.Registry
}

// NewServer は新しい認証サーバーを生成する。
func NewServer(broker *Broker, verifier middleware.TokenVerifier, reg *metrics.Registry, logger *slog.Logger, allowedOrigins []string) *Server {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(allowedOrigins))

	s := &Server{
		router:   router,
		broker:   broker,
		verifier: verifier,
		metrics:  reg,
	}
	s.setupRoutes()

	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 認証不要のエンドポイント
	auth := s.router.Group("/api/auth")
	{
		auth.POST("/login", s.handleLogin())
		auth.POST("/register", s.handleRegister())
		auth.POST("/refresh", s.handleRefresh())
		auth.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "UP", "service": serviceName})
		})
	}

	// Bearerトークン必須のエンドポイント
	protected := s.router.Group("/api")
	protected.Use(middleware.BearerAuth(s.verifier))
	{
		protected.GET("/protected/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, MessageResponse{Message: "pong"})
		})
		protected.GET("/me", middleware.Authenticated(s.handleMe))
	}

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// 公開されていないパスはトークンの検証を先に行う
	s.router.NoRoute(middleware.BearerAuth(s.verifier), func(c *gin.Context) {
		apierror.Write(c, apierror.New(apierror.KindRouteNotFound, "リソースが見つかりません", nil))
	})
}

// handleLogin はログインハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierror.Write(c, invalidBody(err))
			return
		}

		bundle, err := s.broker.Login(c.Request.Context(), req)
		if err != nil {
			apierror.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, bundle)
	}
}

// handleRegister はユーザー登録ハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierror.Write(c, invalidBody(err))
			return
		}

		msg, err := s.broker.Register(c.Request.Context(), req)
		if err != nil {
			apierror.Write(c, err)
			return
		}
		c.JSON(http.StatusCreated, MessageResponse{Message: msg})
	}
}

// handleRefresh はトークン再発行ハンドラを返す。
func (s *Server) handleRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierror.Write(c, invalidBody(err))
			return
		}

		bundle, err := s.broker.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			apierror.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, bundle)
	}
}

// handleMe は認証済みユーザーの情報を返す。
func (s *Server) handleMe(c *gin.Context, identity middleware.Identity) {
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"name":          identity.Name,
	})
}

// invalidBody はJSONとして解釈できないリクエストボディのエラーを返す。
func invalidBody(err error) error {
	e := apierror.NewValidation("リクエストボディのJSONが不正です", nil)
	e.Cause = err
	return e
}
