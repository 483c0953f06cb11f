// Package idp はIDプロバイダー（Keycloak互換のOpenID Connectサーバー）のクライアントを提供する。
//
// パスワードグラントとリフレッシュグラントによるトークン取得、および
// 管理APIによるユーザー作成の3つの呼び出しだけを扱う。失敗はすべて
// IdentityError として返し、クライアント向けのエラーへの変換は呼び出し側が行う。
package idp
