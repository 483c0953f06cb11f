package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nao1215/shopgate/internal/idp"
	"github.com/nao1215/shopgate/pkg/apierror"
	"github.com/nao1215/shopgate/pkg/metrics"
)

//go:generate mockgen -source=broker.go -destination=mock_identity_provider_test.go -package=auth

// RegisteredMessage は登録成功時に返す固定メッセージ。
const RegisteredMessage = "User registered successfully"

const (
	operationLogin    = "login"
	operationRegister = "register"
	operationRefresh  = "refresh"
	outcomeOK         = "OK"
)

// IdentityProvider はブローカーが利用するIDプロバイダーの操作。
type IdentityProvider interface {
	// ExchangePassword はパスワードグラントでトークンを取得する。
	ExchangePassword(ctx context.Context, username, password string) (idp.Grant, error)
	// ExchangeRefreshToken はリフレッシュグラントでトークンを再取得する。
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (idp.Grant, error)
	// CreateUser はユーザーを作成して恒久パスワードを設定し、ユーザーIDを返す。
	CreateUser(ctx context.Context, user idp.NewUser) (string, error)
}

// Broker は認証ブローカー。リクエスト間で状態を持たず、並行に呼び出せる。
type Broker struct {
	// provider はIDプロバイダーのクライアント。
	provider IdentityProvider
	// validate は入力検証器。
	validate *validator.Validate
	// logger は構造化ロガー。
	logger *slog.Logger
	// metrics は操作結果を記録する。
	metrics *metrics.Registry
}

// NewBroker は新しい認証ブローカーを生成する。
func NewBroker(provider IdentityProvider, logger *slog.Logger, m *metrics.Registry) *Broker {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("password_min", "min="+strconv.Itoa(MinPasswordLength))
	// 検証エラーのフィールド名をJSONのキーに揃える
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Broker{
		provider: provider,
		validate: v,
		logger:   logger,
		metrics:  m,
	}
}

// Login はユーザー名とパスワードをトークンに交換する。
// IDプロバイダーの失敗は理由を問わず KindUnauthorized になる。
func (b *Broker) Login(ctx context.Context, req LoginRequest) (TokenBundle, error) {
	if err := b.validateRequest(req); err != nil {
		return TokenBundle{}, b.observe(operationLogin, err)
	}

	grant, err := b.provider.ExchangePassword(ctx, req.Username, req.Password)
	if err != nil {
		return TokenBundle{}, b.observe(operationLogin, b.mapTokenError(operationLogin, err))
	}

	bundle := newTokenBundle(grant)
	bundle.Username = req.Username
	b.observe(operationLogin, nil)
	return bundle, nil
}

// Register はIDプロバイダーにユーザーを登録し、固定の確認メッセージを返す。
func (b *Broker) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if err := b.validateRequest(req); err != nil {
		return "", b.observe(operationRegister, err)
	}

	_, err := b.provider.CreateUser(ctx, idp.NewUser{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return "", b.observe(operationRegister, b.mapRegisterError(req.Username, err))
	}

	b.observe(operationRegister, nil)
	return RegisteredMessage, nil
}

// Refresh はリフレッシュトークンを新しいトークンに交換する。
// 返す TokenBundle の Username は常に空。
func (b *Broker) Refresh(ctx context.Context, refreshToken string) (TokenBundle, error) {
	if err := b.validateRequest(RefreshRequest{RefreshToken: refreshToken}); err != nil {
		return TokenBundle{}, b.observe(operationRefresh, err)
	}

	grant, err := b.provider.ExchangeRefreshToken(ctx, refreshToken)
	if err != nil {
		return TokenBundle{}, b.observe(operationRefresh, b.mapTokenError(operationRefresh, err))
	}

	b.observe(operationRefresh, nil)
	return newTokenBundle(grant), nil
}

// newTokenBundle はIDプロバイダーのグラントをレスポンスに変換する。
func newTokenBundle(grant idp.Grant) TokenBundle {
	return TokenBundle{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    max(grant.ExpiresIn, 0),
	}
}

// validateRequest は構造体タグに従って入力を検証する。
func (b *Broker) validateRequest(req any) error {
	err := b.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierror.NewValidation("入力内容が不正です", nil)
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return apierror.NewValidation("入力内容が不正です", details)
}

// fieldMessage は検証タグに対応するメッセージを返す。
// エイリアスは展開後のタグで判定する。
func fieldMessage(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required":
		return "必須項目です"
	case "email":
		return "メールアドレスの形式が不正です"
	case "min":
		return fmt.Sprintf("%s文字以上で入力してください", fe.Param())
	default:
		return "値が不正です"
	}
}

// mapTokenError はトークン交換の失敗を KindUnauthorized に変換する。
// 到達不能やタイムアウトもクライアントには認証失敗として返す。
func (b *Broker) mapTokenError(operation string, err error) error {
	attrs := []any{slog.String("operation", operation)}
	var idErr *idp.IdentityError
	if errors.As(err, &idErr) {
		attrs = append(attrs,
			slog.String("reason", string(idErr.Reason)),
			slog.Int("provider_status", idErr.Status),
			slog.String("provider_message", idErr.Message),
		)
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	b.logger.Warn("トークン交換に失敗", attrs...)

	return apierror.NewUnauthorized("認証に失敗しました", err)
}

// mapRegisterError はユーザー作成の失敗をクライアント向けの種別に変換する。
func (b *Broker) mapRegisterError(username string, err error) error {
	var idErr *idp.IdentityError
	if !errors.As(err, &idErr) {
		b.logger.Error("ユーザー登録で予期しないエラー", slog.String("username", username), slog.String("error", err.Error()))
		return apierror.New(apierror.KindInternal, "内部サーバーエラーが発生しました", err)
	}

	if idErr.Reason == idp.ReasonPartialRegistration {
		// パスワードの無いアカウントがプロバイダーに残っている
		b.logger.Error("ユーザー作成後のパスワード設定に失敗",
			slog.String("username", username),
			slog.String("user_id", idErr.UserID),
			slog.Int("provider_status", idErr.Status),
			slog.String("provider_message", idErr.Message),
		)
		return apierror.NewPartialRegistration("ユーザーは作成されましたがパスワードを設定できませんでした", err)
	}

	b.logger.Warn("ユーザー登録が拒否された",
		slog.String("username", username),
		slog.String("reason", string(idErr.Reason)),
		slog.Int("provider_status", idErr.Status),
		slog.String("provider_message", idErr.Message),
	)
	msg := "ユーザー登録に失敗しました"
	if idErr.Message != "" {
		msg += ": " + idErr.Message
	}
	return apierror.NewBadRequest(msg, err)
}

// observe は操作結果をメトリクスに記録し、err をそのまま返す。
func (b *Broker) observe(operation string, err error) error {
	if b.metrics == nil {
		return err
	}
	outcome := outcomeOK
	if err != nil {
		outcome = string(apierror.KindOf(err))
	}
	b.metrics.ObserveBrokerOutcome(operation, outcome)
	return err
}
