// Package gateway はAPI Gatewayの内部実装を提供する。
//
// 公開パスごとに1つのバックエンドサービスを起動時に割り当て、リクエストを
// 加工せずに転送する。上流のステータスとボディはそのまま返し、集約や
// 再試行は行わない。上流に到達できない場合は502を返す。
package gateway
