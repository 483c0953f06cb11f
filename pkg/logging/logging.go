// Package logging は各サービスで共通して使用する構造化ロガーを生成する。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New は指定レベルのJSONロガーを標準出力向けに生成する。
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter は出力先を指定してJSONロガーを生成する。
// 未知のレベル文字列は info として扱う。
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel はレベル文字列を slog.Level に変換する。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
