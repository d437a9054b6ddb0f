package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Library and sessions (debug)
		"Using native library %s (%d)":        "ネイティブライブラリ %s (%d) を使用します",
		"Session %s initialised":              "セッション %s を初期化しました",
		"Session %s: %s":                      "セッション %s: %s",
		"Session %s: %s failed: %v":           "セッション %s: %s が失敗しました: %v",
		"Session %s recycled":                 "セッション %s を再利用しました",
		"Session %s released":                 "セッション %s を解放しました",
		"Allocated %s image %dx%d (%d bytes)": "%s 画像 %dx%d を確保しました (%d バイト)",

		// Warnings
		"Session %s released by cleanup, Close was not called": "セッション %s はクリーンアップで解放されました。Close が呼ばれていません",
		"No thumbnail in %s: %v":                               "%s にサムネイルがありません: %v",

		// Stages
		"Decoder for %s: %s (%s)": "%s のデコーダ: %s (%s)",
		"Wrote %s (%d bytes)":     "%s を書き込みました (%d バイト)",

		// Orchestration level messages (info)
		"Decoding %s":                             "%s を現像中",
		"Decoded %s to %s (%dx%d)":                "%s を %s に現像しました (%dx%d)",
		"Skipping %s: %s exists":                  "%s をスキップします: %s は既に存在します",
		"Decoding %d files with %d workers":       "%d ファイルを %d ワーカーで現像中",
		"Batch finished: %d succeeded, %d failed": "バッチ完了: 成功 %d, 失敗 %d",

		// Errors
		"Failed to decode %s: %v":                         "%s の現像に失敗しました: %v",
		"Failed to verify %s: %v":                         "%s の検証に失敗しました: %v",
		"Failed to schedule %s: %s is also written by %s": "%s を登録できません: %s は %s の出力と重複します",
	})
}
