package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nao1215/shopgate/pkg/apierror"
)

// contextKeyIdentity はGinコンテキストに認証済みIDを格納するキー。
const contextKeyIdentity = "identity"

// Identity はガードが検証したトークンの持ち主を表す。
type Identity struct {
	// Subject はトークンの sub クレーム。
	Subject string
	// Name は preferred_username クレーム。存在しない場合は Subject と同じ値。
	Name string
}

// TokenVerifier はBearerトークンを検証して Identity を返す。
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

// accessClaims はアクセストークンから読み取るクレーム。
type accessClaims struct {
	jwt.RegisteredClaims
	// PreferredUsername はIDプロバイダーが付与するログイン名。
	PreferredUsername string `json:"preferred_username"`
}

func newIdentity(subject, preferredUsername string) Identity {
	name := preferredUsername
	if name == "" {
		name = subject
	}
	return Identity{Subject: subject, Name: name}
}

// OIDCVerifier はIDプロバイダーが公開するJWKSで署名を検証する。
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier はレルムのJWKSエンドポイントを参照する検証器を生成する。
// 公開鍵は初回検証時に取得され、鍵IDが一致しない場合に再取得される。
// ctx はプロセスの存続期間と同じ長さを持つこと。
func NewOIDCVerifier(ctx context.Context, issuerURL, jwksURL string, hc *http.Client) *OIDCVerifier {
	if hc != nil {
		ctx = oidc.ClientContext(ctx, hc)
	}
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return NewOIDCVerifierWithKeySet(issuerURL, keySet)
}

// NewOIDCVerifierWithKeySet は任意の鍵セットを使う検証器を生成する。
// アクセストークンの aud はクライアントごとに異なるため検証しない。
func NewOIDCVerifierWithKeySet(issuerURL string, keySet oidc.KeySet) *OIDCVerifier {
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuerURL, keySet, &oidc.Config{SkipClientIDCheck: true}),
	}
}

// Verify は署名・発行者・有効期限を検証する。
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Identity{}, fmt.Errorf("トークンの検証に失敗: %w", err)
	}
	var claims accessClaims
	if err := token.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("クレームの読み取りに失敗: %w", err)
	}
	return newIdentity(token.Subject, claims.PreferredUsername), nil
}

// HMACVerifier は共有秘密鍵(HS256)で署名されたトークンを検証する。
// レルムの署名鍵をHMACにしているローカル環境向け。
type HMACVerifier struct {
	secret []byte
	issuer string
}

// NewHMACVerifier は新しいHMAC検証器を生成する。issuer が空の場合は発行者を検証しない。
func NewHMACVerifier(secret, issuer string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify は署名・有効期限・発行者を検証する。
func (v *HMACVerifier) Verify(_ context.Context, rawToken string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("トークンの検証に失敗: %w", err)
	}
	if !token.Valid {
		return Identity{}, errors.New("トークンが無効です")
	}
	return newIdentity(claims.Subject, claims.PreferredUsername), nil
}

// BearerAuth はBearerトークンを検証するGinミドルウェアを返す。
// 検証に失敗した場合は401を返し、後続のハンドラを実行しない。
func BearerAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apierror.Write(c, apierror.NewUnauthorized("Authorizationヘッダーが必要です", nil))
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			apierror.Write(c, apierror.NewUnauthorized("Bearer トークン形式が不正です", nil))
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			apierror.Write(c, apierror.NewUnauthorized("トークンが無効です", err))
			return
		}

		c.Set(contextKeyIdentity, identity)
		c.Next()
	}
}

// GetIdentity はGinコンテキストから認証済みIDを取得する。
// BearerAuthミドルウェアが事前に適用されている必要がある。
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(contextKeyIdentity)
	if !exists {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// Authenticated は認証済みIDを明示的な引数として受け取るハンドラをGinハンドラに変換する。
// IDが存在しない場合（ガード未適用の経路）は401を返す。
func Authenticated(handler func(c *gin.Context, identity Identity)) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			apierror.Write(c, apierror.NewUnauthorized("認証が必要です", nil))
			return
		}
		handler(c, identity)
	}
}
