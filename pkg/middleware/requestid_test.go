package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TestRequestID はRequestIDミドルウェアを検証する。
func TestRequestID(t *testing.T) {
	t.Parallel()

	newRouter := func(got *string) *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			*got = GetRequestID(c)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("ヘッダーが無い場合にUUIDを生成すること", func(t *testing.T) {
		t.Parallel()

		var got string
		w := httptest.NewRecorder()
		newRouter(&got).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("リクエストIDがUUIDではない: %q", got)
		}
		if w.Header().Get(HeaderRequestID) != got {
			t.Errorf("レスポンスヘッダー = %q, want %q", w.Header().Get(HeaderRequestID), got)
		}
	})

	t.Run("クライアントのリクエストIDを引き継ぐこと", func(t *testing.T) {
		t.Parallel()

		var got string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, "client-req-1")
		newRouter(&got).ServeHTTP(httptest.NewRecorder(), req)

		if got != "client-req-1" {
			t.Errorf("リクエストID = %q, want %q", got, "client-req-1")
		}
	})

	t.Run("長すぎるリクエストIDは置き換えること", func(t *testing.T) {
		t.Parallel()

		var got string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, strings.Repeat("a", maxRequestIDLength+1))
		newRouter(&got).ServeHTTP(httptest.NewRecorder(), req)

		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("リクエストIDが置き換えられていない: %q", got)
		}
	})

	t.Run("ミドルウェア未適用の場合は空文字列を返すこと", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if got := GetRequestID(c); got != "" {
			t.Errorf("GetRequestID() = %q, want empty", got)
		}
	})
}

// TestAccessLog はアクセスログにステータスとリクエストIDが出力されることを検証する。
func TestAccessLog(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	logger := newJSONLogger(&buf)

	router := gin.New()
	router.Use(RequestID(), AccessLog(logger))
	router.GET("/users", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/users?access_token=secret", nil)
	req.Header.Set(HeaderRequestID, "log-req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"status":418`, `"request_id":"log-req-1"`, `"path":"/users"`} {
		if !strings.Contains(out, want) {
			t.Errorf("ログに %s が含まれていない: %s", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Errorf("クエリ文字列がログに出力されている: %s", out)
	}
}
