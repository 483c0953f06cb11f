package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setAuthEnv は認証サービスの必須環境変数を設定する。
func setAuthEnv(t *testing.T) {
	t.Helper()

	t.Setenv("KEYCLOAK_SERVER_URL", "http://keycloak:8080/")
	t.Setenv("KEYCLOAK_REALM", "shopifake")
	t.Setenv("KEYCLOAK_CLIENT_ID", "shop-backend")
	t.Setenv("KEYCLOAK_CLIENT_SECRET", "s3cr3t")
	// 空の環境変数は未設定として扱われる
	for _, env := range []string{"PORT", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "KEYCLOAK_TIMEOUT", "GUARD_HMAC_SECRET"} {
		t.Setenv(env, "")
	}
}

// TestLoadAuth は認証サービスの設定読み込みを検証する。
// t.Setenv を使うため並列実行しない。
func TestLoadAuth(t *testing.T) {
	t.Run("環境変数から読み込みデフォルト値が補完されること", func(t *testing.T) {
		setAuthEnv(t)

		cfg, err := LoadAuth("")
		if err != nil {
			t.Fatalf("LoadAuth()でエラーが発生: %v", err)
		}
		if cfg.Port != DefaultAuthPort {
			t.Errorf("Port = %q, want %q", cfg.Port, DefaultAuthPort)
		}
		if cfg.Keycloak.Realm != "shopifake" {
			t.Errorf("Realm = %q, want %q", cfg.Keycloak.Realm, "shopifake")
		}
		if cfg.Keycloak.Timeout != DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", cfg.Keycloak.Timeout, DefaultTimeout)
		}
		if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != DefaultAllowedOrigin {
			t.Errorf("AllowedOrigins = %v, want [%s]", cfg.AllowedOrigins, DefaultAllowedOrigin)
		}
		if got := cfg.Keycloak.TokenURL(); got != "http://keycloak:8080/realms/shopifake/protocol/openid-connect/token" {
			t.Errorf("TokenURL() = %q", got)
		}
		if got := cfg.Keycloak.JWKSURL(); got != "http://keycloak:8080/realms/shopifake/protocol/openid-connect/certs" {
			t.Errorf("JWKSURL() = %q", got)
		}
	})

	t.Run("タイムアウトとCORSオリジンを環境変数で上書きできること", func(t *testing.T) {
		setAuthEnv(t)
		t.Setenv("KEYCLOAK_TIMEOUT", "2s")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

		cfg, err := LoadAuth("")
		if err != nil {
			t.Fatalf("LoadAuth()でエラーが発生: %v", err)
		}
		if cfg.Keycloak.Timeout != 2*time.Second {
			t.Errorf("Timeout = %v, want 2s", cfg.Keycloak.Timeout)
		}
		if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
			t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
		}
	})

	t.Run("必須項目が欠けている場合にすべての欠落項目を報告すること", func(t *testing.T) {
		t.Setenv("KEYCLOAK_SERVER_URL", "")
		t.Setenv("KEYCLOAK_REALM", "")
		t.Setenv("KEYCLOAK_CLIENT_ID", "")
		t.Setenv("KEYCLOAK_CLIENT_SECRET", "")

		_, err := LoadAuth("")
		if err == nil {
			t.Fatal("LoadAuth()がエラーを返すべきだが、nilが返った")
		}
		for _, key := range []string{"keycloak.server_url", "keycloak.realm", "keycloak.client_id", "keycloak.client_secret"} {
			if !strings.Contains(err.Error(), key+" is required") {
				t.Errorf("エラーに %s が含まれていない: %v", key, err)
			}
		}
	})

	t.Run("相対URLを拒否すること", func(t *testing.T) {
		setAuthEnv(t)
		t.Setenv("KEYCLOAK_SERVER_URL", "keycloak:8080")

		if _, err := LoadAuth(""); err == nil {
			t.Fatal("LoadAuth()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("設定ファイルの値を環境変数が上書きすること", func(t *testing.T) {
		setAuthEnv(t)
		t.Setenv("KEYCLOAK_REALM", "from-env")

		path := filepath.Join(t.TempDir(), "auth.yaml")
		content := "port: \"9000\"\nkeycloak:\n  realm: from-file\n  timeout: 3s\nguard:\n  hmac_secret: file-secret\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("設定ファイルの書き込みに失敗: %v", err)
		}

		cfg, err := LoadAuth(path)
		if err != nil {
			t.Fatalf("LoadAuth()でエラーが発生: %v", err)
		}
		if cfg.Port != "9000" {
			t.Errorf("Port = %q, want %q", cfg.Port, "9000")
		}
		if cfg.Keycloak.Realm != "from-env" {
			t.Errorf("Realm = %q, want %q", cfg.Keycloak.Realm, "from-env")
		}
		if cfg.Keycloak.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v, want 3s", cfg.Keycloak.Timeout)
		}
		if cfg.Guard.HMACSecret != "file-secret" {
			t.Errorf("HMACSecret = %q, want %q", cfg.Guard.HMACSecret, "file-secret")
		}
	})

	t.Run("存在しない設定ファイルでエラーになること", func(t *testing.T) {
		setAuthEnv(t)

		if _, err := LoadAuth(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatal("LoadAuth()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestLoadGateway はゲートウェイの設定読み込みを検証する。
func TestLoadGateway(t *testing.T) {
	t.Run("ルート表が設定から構築されること", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("UPSTREAM_TIMEOUT", "")
		t.Setenv("USER_SERVICE_URL", "http://user-service:4001/")
		t.Setenv("PRODUCT_SERVICE_URL", "http://product-service:4002")

		cfg, err := LoadGateway("")
		if err != nil {
			t.Fatalf("LoadGateway()でエラーが発生: %v", err)
		}
		if cfg.Port != DefaultGatewayPort {
			t.Errorf("Port = %q, want %q", cfg.Port, DefaultGatewayPort)
		}
		if cfg.UpstreamTimeout != DefaultTimeout {
			t.Errorf("UpstreamTimeout = %v, want %v", cfg.UpstreamTimeout, DefaultTimeout)
		}

		routes := cfg.Routes()
		if len(routes) != 2 {
			t.Fatalf("len(routes) = %d, want 2", len(routes))
		}
		if routes[0].Path != "/users" || routes[0].BaseURL != "http://user-service:4001" {
			t.Errorf("routes[0] = %+v", routes[0])
		}
		if routes[1].Path != "/products" || routes[1].BaseURL != "http://product-service:4002" {
			t.Errorf("routes[1] = %+v", routes[1])
		}
	})

	t.Run("バックエンドURLが欠けている場合に起動を中断すること", func(t *testing.T) {
		t.Setenv("USER_SERVICE_URL", "http://user-service:4001")
		t.Setenv("PRODUCT_SERVICE_URL", "")

		_, err := LoadGateway("")
		if err == nil {
			t.Fatal("LoadGateway()がエラーを返すべきだが、nilが返った")
		}
		if !strings.Contains(err.Error(), "product_service_url is required") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("不正なタイムアウトでエラーになること", func(t *testing.T) {
		t.Setenv("USER_SERVICE_URL", "http://user-service:4001")
		t.Setenv("PRODUCT_SERVICE_URL", "http://product-service:4002")
		t.Setenv("UPSTREAM_TIMEOUT", "soon")

		if _, err := LoadGateway(""); err == nil {
			t.Fatal("LoadGateway()がエラーを返すべきだが、nilが返った")
		}
	})
}
