package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/nao1215/shopgate/pkg/httpclient"
)

// Reason はIDプロバイダー呼び出しの失敗理由。
type Reason string

const (
	// ReasonUpstreamRejected はプロバイダーが2xx以外を返したことを表す。
	ReasonUpstreamRejected Reason = "UPSTREAM_REJECTED"
	// ReasonUnreachable はプロバイダーに到達できない、またはタイムアウトしたことを表す。
	ReasonUnreachable Reason = "UNREACHABLE"
	// ReasonPartialRegistration はユーザー作成後のパスワード設定に失敗したことを表す。
	// プロバイダーにはパスワードの無いアカウントが残る。
	ReasonPartialRegistration Reason = "PARTIAL_REGISTRATION"
)

// ErrEmptyCredential は空のユーザー名・パスワード・トークンが渡されたことを表す。
var ErrEmptyCredential = errors.New("資格情報が空です")

// IdentityError はIDプロバイダー呼び出しの失敗を表す。
// Status と Message は診断用で、クライアントにはそのまま返さない。
type IdentityError struct {
	// Reason は失敗理由。
	Reason Reason
	// Status はプロバイダーのHTTPステータスコード。到達不能の場合は0。
	Status int
	// Message はプロバイダーが返したエラーメッセージ。
	Message string
	// UserID は部分登録の場合に作成済みのユーザーID。
	UserID string
	// Cause は元になったエラー。
	Cause error
}

// Error はerrorインターフェースを実装する。
func (e *IdentityError) Error() string {
	msg := fmt.Sprintf("idp %s (status %d): %s", e.Reason, e.Status, e.Message)
	if e.UserID != "" {
		msg += fmt.Sprintf(" (user_id=%s)", e.UserID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap は元になったエラーを返す。
func (e *IdentityError) Unwrap() error {
	return e.Cause
}

// IsReason は err が指定した理由の IdentityError であるかを判定する。
func IsReason(err error, reason Reason) bool {
	var idErr *IdentityError
	return errors.As(err, &idErr) && idErr.Reason == reason
}

// classify は下位のエラーを IdentityError に変換する。
func classify(err error) *IdentityError {
	var idErr *IdentityError
	if errors.As(err, &idErr) {
		return idErr
	}

	// トークンエンドポイントが2xx以外を返した
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		msg := retrieveErr.ErrorDescription
		if msg == "" {
			msg = retrieveErr.ErrorCode
		}
		if msg == "" {
			msg = providerMessage(status, retrieveErr.Body)
		}
		return &IdentityError{Reason: ReasonUpstreamRejected, Status: status, Message: msg, Cause: err}
	}

	// 管理APIが2xx以外を返した
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return &IdentityError{
			Reason:  ReasonUpstreamRejected,
			Status:  statusErr.StatusCode,
			Message: providerMessage(statusErr.StatusCode, statusErr.Body),
			Cause:   err,
		}
	}

	var urlErr *url.Error
	if errors.Is(err, httpclient.ErrUnavailable) || errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &IdentityError{Reason: ReasonUnreachable, Message: "IDプロバイダーに到達できません", Cause: err}
	}

	// 2xxだが応答の形式が不正（access_tokenが無いなど）
	return &IdentityError{Reason: ReasonUpstreamRejected, Message: "IDプロバイダーの応答が不正です", Cause: err}
}

// providerMessage はプロバイダーのエラーボディからメッセージを取り出す。
// Keycloakの管理APIは errorMessage、トークンエンドポイントは error_description を返す。
func providerMessage(status int, body []byte) string {
	var payload struct {
		ErrorMessage     string `json:"errorMessage"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, msg := range []string{payload.ErrorMessage, payload.ErrorDescription, payload.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "IDプロバイダーがリクエストを拒否しました"
}
