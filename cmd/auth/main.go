// 認証サービスのエントリポイント。
// IDプロバイダーとの間でトークン発行とユーザー登録を仲介し、
// Bearerトークンで保護されたエンドポイントを提供する。
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/shopgate/internal/auth"
	"github.com/nao1215/shopgate/internal/config"
	"github.com/nao1215/shopgate/internal/idp"
	"github.com/nao1215/shopgate/pkg/logging"
	"github.com/nao1215/shopgate/pkg/metrics"
	"github.com/nao1215/shopgate/pkg/middleware"
)

// shutdownTimeout は終了シグナル受信後に処理中のリクエストを待つ時間。
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("認証サービスの起動に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadAuth(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	broker := auth.NewBroker(idp.NewClient(cfg.Keycloak), logger, reg)
	server := auth.NewServer(broker, newVerifier(ctx, cfg, logger), reg, logger, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("認証サービスを起動します", slog.String("addr", srv.Addr), slog.String("realm", cfg.Keycloak.Realm))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("認証サービスを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newVerifier は保護リソースのトークン検証器を生成する。
// 共有秘密鍵が設定されていればHS256、そうでなければレルムのJWKSで検証する。
func newVerifier(ctx context.Context, cfg *config.Auth, logger *slog.Logger) middleware.TokenVerifier {
	if cfg.Guard.HMACSecret != "" {
		logger.Info("HS256でBearerトークンを検証します")
		return middleware.NewHMACVerifier(cfg.Guard.HMACSecret, cfg.Keycloak.IssuerURL())
	}
	return middleware.NewOIDCVerifier(ctx, cfg.Keycloak.IssuerURL(), cfg.Keycloak.JWKSURL(), &http.Client{Timeout: cfg.Keycloak.Timeout})
}
