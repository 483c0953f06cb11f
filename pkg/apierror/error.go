package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind はクライアントに公開するエラー種別。
type Kind string

const (
	// KindValidation はクライアント入力の形式不正。
	KindValidation Kind = "VALIDATION"
	// KindUnauthorized は資格情報またはトークンの拒否。メッセージは常に汎用的にする。
	KindUnauthorized Kind = "UNAUTHORIZED"
	// KindBadRequest は登録時にIDプロバイダーが拒否したことを表す。
	KindBadRequest Kind = "BAD_REQUEST"
	// KindUpstreamUnavailable はバックエンドまたはIDプロバイダーへの到達失敗・タイムアウト。
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	// KindPartialRegistration はユーザー作成後のパスワード設定に失敗したことを表す。
	KindPartialRegistration Kind = "PARTIAL_REGISTRATION"
	// KindRouteNotFound はゲートウェイに対応するルートが存在しないことを表す。
	KindRouteNotFound Kind = "ROUTE_NOT_FOUND"
	// KindInternal は分類できない内部エラー。
	KindInternal Kind = "INTERNAL"
)

// Status は Kind に対応するHTTPステータスコードを返す。
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamUnavailable, KindPartialRegistration:
		return http.StatusBadGateway
	case KindRouteNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error はクライアント向けに正規化されたエラー。
type Error struct {
	// Kind はエラー種別。
	Kind Kind
	// Message はクライアントに返す短いメッセージ。
	Message string
	// Details はフィールド単位の検証エラーなどの補足情報。
	Details map[string]string
	// Cause は元になったエラー。ログ出力専用。
	Cause error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap は元になったエラーを返す。
func (e *Error) Unwrap() error {
	return e.Cause
}

// New は新しいエラーを生成する。
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewValidation はフィールド単位の詳細を持つ検証エラーを生成する。
func NewValidation(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// NewUnauthorized は認証エラーを生成する。
func NewUnauthorized(message string, cause error) *Error {
	return New(KindUnauthorized, message, cause)
}

// NewBadRequest は登録拒否エラーを生成する。
func NewBadRequest(message string, cause error) *Error {
	return New(KindBadRequest, message, cause)
}

// NewUpstreamUnavailable は上流到達不能エラーを生成する。
func NewUpstreamUnavailable(message string, cause error) *Error {
	return New(KindUpstreamUnavailable, message, cause)
}

// NewPartialRegistration は部分登録エラーを生成する。
func NewPartialRegistration(message string, cause error) *Error {
	return New(KindPartialRegistration, message, cause)
}

// KindOf はエラーの種別を返す。*Error でない場合は KindInternal を返す。
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// Is は err が指定した種別の *Error であるかを判定する。
func Is(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// Response はエラーレスポンスのJSON表現。
type Response struct {
	// Error は短いエラーメッセージ。
	Error string `json:"error"`
	// Kind はエラー種別。
	Kind Kind `json:"kind"`
	// Details はフィールド単位の補足情報。
	Details map[string]string `json:"details,omitempty"`
}

// Write はエラーをJSONレスポンスとして書き込み、以降のハンドラを中断する。
// Cause はレスポンスに含めない。
func Write(c *gin.Context, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = New(KindInternal, "内部サーバーエラーが発生しました", err)
	}
	c.AbortWithStatusJSON(apiErr.Kind.Status(), Response{
		Error:   apiErr.Message,
		Kind:    apiErr.Kind,
		Details: apiErr.Details,
	})
}
