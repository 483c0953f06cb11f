package auth

// MinPasswordLength は登録時に要求するパスワードの最小文字数。
const MinPasswordLength = 8

// tokenTypeBearer はレスポンスのトークン種別。
const tokenTypeBearer = "Bearer"

// LoginRequest はログインリクエストのJSON構造。
type LoginRequest struct {
	// Username はログイン名。
	Username string `json:"username" validate:"required"`
	// Password はパスワード。
	Password string `json:"password" validate:"required"`
}

// RegisterRequest はユーザー登録リクエストのJSON構造。
type RegisterRequest struct {
	// Username はログイン名。
	Username string `json:"username" validate:"required"`
	// Email はメールアドレス。
	Email string `json:"email" validate:"required,email"`
	// Password はパスワード。MinPasswordLength 文字以上。
	Password string `json:"password" validate:"required,password_min"`
	// FirstName は名。任意。
	FirstName string `json:"firstName"`
	// LastName は姓。任意。
	LastName string `json:"lastName"`
}

// RefreshRequest はトークン再発行リクエストのJSON構造。
type RefreshRequest struct {
	// RefreshToken はログイン時に受け取ったリフレッシュトークン。
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenBundle はクライアントに返すトークンのJSON構造。
type TokenBundle struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// TokenType は常に "Bearer"。
	TokenType string `json:"tokenType"`
	// ExpiresIn はアクセストークンの有効秒数。
	ExpiresIn int64 `json:"expiresIn"`
	// Username はログイン時のみ設定される。
	Username string `json:"username,omitempty"`
}

// MessageResponse はメッセージのみを返すレスポンス。
type MessageResponse struct {
	Message string `json:"message"`
}
