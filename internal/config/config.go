// Package config は認証サービスとゲートウェイの起動時設定を読み込む。
//
// 設定はデフォルト値、CONFIG_FILE で指定したYAMLファイル、環境変数の順に
// 上書きされる。必須項目が欠けている場合は起動を中断する。読み込んだ設定は
// 起動後に変更せず、値として各コンポーネントに渡す。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultAuthPort は認証サービスのデフォルトのリッスンポート。
	DefaultAuthPort = "8081"
	// DefaultGatewayPort はゲートウェイのデフォルトのリッスンポート。
	DefaultGatewayPort = "8080"
	// DefaultTimeout は上流呼び出しのデフォルトタイムアウト。
	DefaultTimeout = 5 * time.Second
	// DefaultAllowedOrigin はCORSで許可するデフォルトのオリジン。
	DefaultAllowedOrigin = "http://localhost:3000"
	// DefaultLogLevel はデフォルトのログレベル。
	DefaultLogLevel = "info"
)

// Keycloak はIDプロバイダーへの接続設定。
type Keycloak struct {
	ServerURL    string        `mapstructure:"server_url"`
	Realm        string        `mapstructure:"realm"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// IssuerURL はレルムの発行者URLを返す。
func (k Keycloak) IssuerURL() string {
	return strings.TrimRight(k.ServerURL, "/") + "/realms/" + url.PathEscape(k.Realm)
}

// TokenURL はレルムのトークンエンドポイントを返す。
func (k Keycloak) TokenURL() string {
	return k.IssuerURL() + "/protocol/openid-connect/token"
}

// JWKSURL はレルムの公開鍵エンドポイントを返す。
func (k Keycloak) JWKSURL() string {
	return k.IssuerURL() + "/protocol/openid-connect/certs"
}

// Guard は保護リソースガードの設定。
type Guard struct {
	// HMACSecret が設定されている場合はJWKSを使わずHS256で検証する。
	HMACSecret string `mapstructure:"hmac_secret"`
}

// Auth は認証サービスの設定。
type Auth struct {
	Port           string   `mapstructure:"port"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Keycloak       Keycloak `mapstructure:"keycloak"`
	Guard          Guard    `mapstructure:"guard"`
}

// Route はゲートウェイが公開するパスと転送先サービスの対応。
type Route struct {
	// Path はゲートウェイが公開するパス（例: "/users"）。
	Path string
	// ServiceName はバックエンドサービスの名前。
	ServiceName string
	// BaseURL はバックエンドサービスのベースURL。
	BaseURL string
}

// Gateway はゲートウェイの設定。
type Gateway struct {
	Port              string        `mapstructure:"port"`
	LogLevel          string        `mapstructure:"log_level"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	UpstreamTimeout   time.Duration `mapstructure:"upstream_timeout"`
	UserServiceURL    string        `mapstructure:"user_service_url"`
	ProductServiceURL string        `mapstructure:"product_service_url"`
}

// Routes はゲートウェイのルート表を返す。
func (g Gateway) Routes() []Route {
	return []Route{
		{Path: "/users", ServiceName: "users", BaseURL: strings.TrimRight(g.UserServiceURL, "/")},
		{Path: "/products", ServiceName: "products", BaseURL: strings.TrimRight(g.ProductServiceURL, "/")},
	}
}

// 設定キーと環境変数の対応。
var (
	authEnv = map[string]string{
		"port":                   "PORT",
		"log_level":              "LOG_LEVEL",
		"allowed_origins":        "CORS_ALLOWED_ORIGINS",
		"keycloak.server_url":    "KEYCLOAK_SERVER_URL",
		"keycloak.realm":         "KEYCLOAK_REALM",
		"keycloak.client_id":     "KEYCLOAK_CLIENT_ID",
		"keycloak.client_secret": "KEYCLOAK_CLIENT_SECRET",
		"keycloak.timeout":       "KEYCLOAK_TIMEOUT",
		"guard.hmac_secret":      "GUARD_HMAC_SECRET",
	}
	gatewayEnv = map[string]string{
		"port":                "PORT",
		"log_level":           "LOG_LEVEL",
		"allowed_origins":     "CORS_ALLOWED_ORIGINS",
		"upstream_timeout":    "UPSTREAM_TIMEOUT",
		"user_service_url":    "USER_SERVICE_URL",
		"product_service_url": "PRODUCT_SERVICE_URL",
	}
)

// newViper は環境変数とオプションの設定ファイルを読み込むviperインスタンスを生成する。
func newViper(configFile string, bindings map[string]string) (*viper.Viper, error) {
	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("環境変数 %s のバインドに失敗: %w", env, err)
		}
	}
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("allowed_origins", []string{DefaultAllowedOrigin})

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}
	return v, nil
}

// LoadAuth は認証サービスの設定を読み込んで検証する。
// configFile が空の場合は環境変数とデフォルト値のみを使用する。
func LoadAuth(configFile string) (*Auth, error) {
	v, err := newViper(configFile, authEnv)
	if err != nil {
		return nil, err
	}
	v.SetDefault("port", DefaultAuthPort)
	v.SetDefault("keycloak.timeout", DefaultTimeout)

	var cfg Auth
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は必須項目と値の形式を検証する。
func (c *Auth) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if err := validateURL("keycloak.server_url", c.Keycloak.ServerURL); err != nil {
		errs = append(errs, err)
	}
	if c.Keycloak.Realm == "" {
		errs = append(errs, errors.New("keycloak.realm is required"))
	}
	if c.Keycloak.ClientID == "" {
		errs = append(errs, errors.New("keycloak.client_id is required"))
	}
	if c.Keycloak.ClientSecret == "" {
		errs = append(errs, errors.New("keycloak.client_secret is required"))
	}
	if c.Keycloak.Timeout <= 0 {
		errs = append(errs, errors.New("keycloak.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// LoadGateway はゲートウェイの設定を読み込んで検証する。
func LoadGateway(configFile string) (*Gateway, error) {
	v, err := newViper(configFile, gatewayEnv)
	if err != nil {
		return nil, err
	}
	v.SetDefault("port", DefaultGatewayPort)
	v.SetDefault("upstream_timeout", DefaultTimeout)

	var cfg Gateway
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は必須項目と値の形式を検証する。
func (c *Gateway) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if err := validateURL("user_service_url", c.UserServiceURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateURL("product_service_url", c.ProductServiceURL); err != nil {
		errs = append(errs, err)
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("upstream_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// validateURL は値が空でない絶対http(s) URLであることを検証する。
func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL: %q", key, raw)
	}
	return nil
}

// splitList はカンマ区切りで渡された環境変数の値を要素に分解する。
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
