// Package apierror はエッジ層がクライアントに返すエラー分類を提供する。
//
// 認証ブローカーとゲートウェイは下位クライアントのエラーをすべてこのパッケージの
// Kind に変換してから返す。Cause はログ出力専用で、レスポンスには含めない。
package apierror
