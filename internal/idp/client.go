package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/nao1215/shopgate/internal/config"
	"github.com/nao1215/shopgate/pkg/httpclient"
)

const (
	// redactedPlaceholder は文字列表現でトークンを伏せるための値。
	redactedPlaceholder = "[REDACTED]"
	// emptyPlaceholder は値が空であることを示す。
	emptyPlaceholder = "<empty>"
)

// Grant はトークンエンドポイントの応答を正規化したもの。
type Grant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresIn はアクセストークンの残り有効秒数。0以上。
	ExpiresIn int64
}

// String はトークンを伏せた文字列表現を返す。
func (g Grant) String() string {
	return fmt.Sprintf("Grant{AccessToken: %s, RefreshToken: %s, TokenType: %s, ExpiresIn: %d}",
		redact(g.AccessToken), redact(g.RefreshToken), g.TokenType, g.ExpiresIn)
}

func redact(v string) string {
	if v == "" {
		return emptyPlaceholder
	}
	return redactedPlaceholder
}

// NewUser は作成するユーザーの属性。
type NewUser struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// userRepresentation は管理APIのユーザー作成リクエスト。
type userRepresentation struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Enabled       bool   `json:"enabled"`
	EmailVerified bool   `json:"emailVerified"`
}

// credentialRepresentation は管理APIのパスワード設定リクエスト。
type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// Client はIDプロバイダーのクライアント。
// 設定は生成時に固定され、並行利用に安全。
type Client struct {
	// oauth はパスワード・リフレッシュグラント用のOAuth2設定。
	oauth *oauth2.Config
	// httpClient はトークンエンドポイント呼び出し用のHTTPクライアント。
	httpClient *http.Client
	// admin は管理API用のクライアント。クライアントクレデンシャルのトークンを付与する。
	admin *httpclient.Client
	// usersPath は管理APIのユーザーリソースのパス。
	usersPath string
}

// NewClient は新しいIDプロバイダークライアントを生成する。
// すべての呼び出しは cfg.Timeout で打ち切られる。
func NewClient(cfg config.Keycloak) *Client {
	hc := &http.Client{Timeout: cfg.Timeout}
	endpoint := oauth2.Endpoint{
		TokenURL:  cfg.TokenURL(),
		AuthStyle: oauth2.AuthStyleInParams,
	}

	// 管理API用のトークンは同じクライアントのサービスアカウントで取得する。
	serviceAccount := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     endpoint.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	adminHTTP := serviceAccount.Client(context.WithValue(context.Background(), oauth2.HTTPClient, hc))
	adminHTTP.Timeout = cfg.Timeout

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
		},
		httpClient: hc,
		admin:      httpclient.New(strings.TrimRight(cfg.ServerURL, "/"), httpclient.WithHTTPClient(adminHTTP)),
		usersPath:  "/admin/realms/" + url.PathEscape(cfg.Realm) + "/users",
	}
}

// withHTTPClient はoauth2パッケージが使うHTTPクライアントをコンテキストに設定する。
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// ExchangePassword はパスワードグラントでトークンを取得する。
func (c *Client) ExchangePassword(ctx context.Context, username, password string) (Grant, error) {
	if username == "" || password == "" {
		return Grant{}, ErrEmptyCredential
	}
	token, err := c.oauth.PasswordCredentialsToken(c.withHTTPClient(ctx), username, password)
	if err != nil {
		return Grant{}, classify(err)
	}
	return grantFromToken(token), nil
}

// ExchangeRefreshToken はリフレッシュグラントでトークンを再取得する。
// 失効・期限切れのリフレッシュトークンは ReasonUpstreamRejected になる。
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (Grant, error) {
	if refreshToken == "" {
		return Grant{}, ErrEmptyCredential
	}
	// アクセストークンが空のため、Token() は必ずリフレッシュグラントを実行する。
	source := c.oauth.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return Grant{}, classify(err)
	}
	return grantFromToken(token), nil
}

// CreateUser はユーザーを作成し、続けて恒久パスワードを設定する。
// 2つの呼び出しはトランザクションではない。パスワード設定に失敗した場合は
// 作成済みのユーザーIDを持つ ReasonPartialRegistration のエラーを返す。
func (c *Client) CreateUser(ctx context.Context, user NewUser) (string, error) {
	header, err := c.admin.PostJSON(ctx, c.usersPath, userRepresentation{
		Username:      user.Username,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Enabled:       true,
		EmailVerified: false,
	}, nil)
	if err != nil {
		return "", classify(err)
	}

	userID := userIDFromLocation(header.Get("Location"))
	if userID == "" {
		return "", &IdentityError{
			Reason:  ReasonPartialRegistration,
			Message: "作成したユーザーのIDを取得できません",
		}
	}

	err = c.admin.PutJSON(ctx, c.usersPath+"/"+url.PathEscape(userID)+"/reset-password", credentialRepresentation{
		Type:      "password",
		Value:     user.Password,
		Temporary: false,
	})
	if err != nil {
		cause := classify(err)
		return userID, &IdentityError{
			Reason:  ReasonPartialRegistration,
			Status:  cause.Status,
			Message: cause.Message,
			UserID:  userID,
			Cause:   err,
		}
	}
	return userID, nil
}

// userIDFromLocation は作成レスポンスの Location ヘッダーの末尾要素を取り出す。
func userIDFromLocation(location string) string {
	if location == "" {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	id := path.Base(strings.TrimRight(u.Path, "/"))
	if id == "." || id == "/" || id == "users" {
		return ""
	}
	return id
}

// grantFromToken はoauth2のトークンを Grant に変換する。
func grantFromToken(token *oauth2.Token) Grant {
	return Grant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresIn:    expiresIn(token),
	}
}

// expiresIn は応答の expires_in を秒数として返す。
// 値が無い場合はトークンの有効期限から算出し、負の値は0にする。
func expiresIn(token *oauth2.Token) int64 {
	var seconds int64
	switch v := token.Extra("expires_in").(type) {
	case float64:
		seconds = int64(v)
	case json.Number:
		seconds, _ = v.Int64()
	case string:
		seconds, _ = strconv.ParseInt(v, 10, 64)
	default:
		if !token.Expiry.IsZero() {
			seconds = int64(time.Until(token.Expiry).Round(time.Second) / time.Second)
		}
	}
	return max(seconds, 0)
}
