// Package httpclient はエッジ層から上流サービスへのHTTP通信を行うクライアントを提供する。
//
// ゲートウェイのバックエンド転送（Forward）と、IDプロバイダー管理APIへの
// JSON呼び出し（PostJSON/PutJSON）の2つの通信パターンを統一する。
// すべての呼び出しはタイムアウトと呼び出し元のコンテキストで打ち切られる。
package httpclient
