// API Gatewayのエントリポイント。
// 公開パスごとに割り当てたバックエンドサービスへリクエストを転送する。
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

	"github.com/nao1215/shopgate/internal/config"
	"github.com/nao1215/shopgate/internal/gateway"
	"github.com/nao1215/shopgate/pkg/logging"
	"github.com/nao1215/shopgate/pkg/metrics"
)

// shutdownTimeout は終了シグナル受信後に処理中のリクエストを待つ時間。
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Gatewayサービスの起動に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadGateway(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)

	server, err := gateway.NewServer(cfg, metrics.NewRegistry(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		for _, r := range cfg.Routes() {
			logger.Info("ルートを登録しました", slog.String("path", r.Path), slog.String("service", r.ServiceName), slog.String("base_url", r.BaseURL))
		}
		logger.Info("Gatewayサービスを起動します", slog.String("addr", srv.Addr))
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

	logger.Info("Gatewayサービスを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
