// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 保護リソースガード（Bearerトークンの検証と認証済みIDの受け渡し）、
// リクエストID、アクセスログ、パニックリカバリ、CORS設定など、
// 認証サービスとゲートウェイで共通して使用するミドルウェアを含む。
package middleware
