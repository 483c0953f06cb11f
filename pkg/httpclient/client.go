package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout は上流呼び出しのデフォルトタイムアウト。
const DefaultTimeout = 5 * time.Second

// maxErrorBodySize はエラーレスポンスボディの読み取り上限（64KB）。
const maxErrorBodySize = 64 << 10

// ErrUnavailable は上流サービスに到達できない、またはタイムアウトしたことを表す。
var ErrUnavailable = errors.New("上流サービスに到達できません")

// StatusError は上流サービスが2xx以外を返したことを表す。
type StatusError struct {
	// StatusCode は上流のHTTPステータスコード。
	StatusCode int
	// Body は上流のレスポンスボディ（先頭64KBまで）。
	Body []byte
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, string(e.Body))
}

// Client は上流サービス1つに対するHTTPクライアント。
// 内部の http.Client は並行利用に安全で、コネクションはリクエスト間で共有される。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。
	baseURL string
}

// Option はクライアント生成時の設定を変更する。
type Option func(*Client)

// WithTimeout はリクエスト全体のタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
// OAuth2のトークン付与済みクライアントを渡す場合などに使用する。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://user-service:4001"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL は接続先のベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Forward はリクエストを加工せずに上流サービスへ転送する。
// 成功時はレスポンスをそのまま返すため、呼び出し元がBodyをCloseすること。
// 上流が2xx以外を返してもエラーにはしない。到達不能の場合は ErrUnavailable を包んだエラーを返す。
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, body io.Reader, header http.Header) (*http.Response, error) {
	url := c.baseURL + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, url, err)
	}
	return resp, nil
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスボディをresultにデシリアライズし、レスポンスヘッダーを返す。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) (http.Header, error) {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

// PutJSON は指定パスにJSONボディでPUTリクエストを送信する。
func (c *Client) PutJSON(ctx context.Context, path string, body any) error {
	_, err := c.doJSON(ctx, http.MethodPut, path, body, nil)
	return err
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) (http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	if body != nil {
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.Forward(ctx, method, path, "", bodyReader, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return resp.Header, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.Header, fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return resp.Header, nil
}
