// Package auth は認証ブローカーを提供する。
//
// ブローカーはクライアントの資格情報をIDプロバイダーのトークンに交換し、
// ユーザー登録を仲介する。リクエスト間で状態を持たず、IDプロバイダーの
// エラーはすべてこのパッケージの境界で apierror の種別に変換される。
package auth
