package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// corsAllowHeaders はブラウザに許可するリクエストヘッダー。
// Bearerトークンとリクエストの追跡IDを送れるようにする。
var corsAllowHeaders = []string{"Authorization", "Content-Type", HeaderRequestID}

// corsAllowMethods はゲートウェイが転送するメソッドとプリフライト。
var corsAllowMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// CORS は許可したフロントエンドのオリジンにだけクロスオリジンアクセスを許すGinミドルウェアを返す。
// 認証サービスとゲートウェイの両方で使う。応答はOriginごとに異なるため常に Vary: Origin を付け、
// ブラウザからも X-Request-ID を読めるようにする。OPTIONSはプリフライトとして204で打ち切る。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = struct{}{}
	}
	allowMethods := strings.Join(corsAllowMethods, ", ")
	allowHeaders := strings.Join(corsAllowHeaders, ", ")

	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		if _, ok := originsSet[origin]; ok && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Expose-Headers", HeaderRequestID)
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
