// Package main provides localization for the rawkit CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Logging":       "ログ",
		"Debug":         "デバッグ",
		"Output":        "出力",
		"Processing":    "現像処理",

		// Root command
		"Decode camera RAW files with LibRaw": "LibRawでカメラのRAWファイルを現像",

		// Commands
		"Show version information":                         "バージョン情報を表示",
		"List the cameras supported by the native library": "ネイティブライブラリが対応するカメラを一覧表示",
		"Show decoder and thumbnail information":           "デコーダとサムネイルの情報を表示",
		"Decode a RAW file into an image":                  "RAWファイルを画像に現像",
		"Extract the embedded thumbnail":                   "埋め込みサムネイルを抽出",
		"Decode many RAW files in parallel":                "複数のRAWファイルを並列に現像",

		// Global flags
		"YAML configuration file":                               "YAML設定ファイル",
		"Native backend (libraw, memraw)":                       "ネイティブバックエンド（libraw, memraw）",
		"Log level (debug, info, warn, error)":                  "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                               "全てのログ出力を抑制",
		"Write a cpu or mem profile":                            "cpuまたはmemプロファイルを出力",
		"Directory for profile output":                          "プロファイル出力のディレクトリ",
		"Serve Prometheus metrics at this address (e.g. :9090)": "このアドレスでPrometheusメトリクスを公開（例: :9090）",

		// Command flags
		"Only show cameras containing this text":             "この文字列を含むカメラのみ表示",
		"Only print the number of cameras":                   "カメラの数のみ表示",
		"Output image path":                                  "出力画像のパス",
		"Output thumbnail path":                              "出力サムネイルのパス",
		"Write TIFF regardless of the output extension":      "出力の拡張子に関わらずTIFFで書き出す",
		"Write bitmap thumbnails as TIFF instead of PPM":     "ビットマップのサムネイルをPPMではなくTIFFで書き出す",
		"Output directory":                                   "出力ディレクトリ",
		"Number of files decoded at once":                    "同時に現像するファイル数",
		"Write a Markdown summary of the batch to this file": "バッチの結果をMarkdownでこのファイルに書き出す",
		"Replace existing outputs":                           "既存の出力を上書き",
		"Output format (ppm, tiff, png, jpeg)":               "出力形式（ppm, tiff, png, jpeg）",
		"JPEG quality (1-100)":                               "JPEG品質（1-100）",
		"Also write the embedded thumbnail":                  "埋め込みサムネイルも書き出す",
		"Also write a preview card":                          "プレビューカードも書き出す",
		"Unpack with raw2image instead of unpack":            "unpackの代わりにraw2imageで展開",
		"Subtract the black level before processing":         "現像前にブラックレベルを減算",

		// Usage errors
		"info needs at least one RAW file":   "infoには1つ以上のRAWファイルが必要です",
		"process takes exactly one RAW file": "processにはRAWファイルを1つだけ指定してください",
		"thumb takes exactly one RAW file":   "thumbにはRAWファイルを1つだけ指定してください",
		"batch needs at least one RAW file":  "batchには1つ以上のRAWファイルが必要です",

		// Runtime messages
		"Interrupted, shutting down...":    "中断されました。シャットダウン中...",
		"rawkit version %s":                "rawkit バージョン %s",
		"Native library %s (%d)":           "ネイティブライブラリ %s (%d)",
		"Capabilities: %s":                 "機能: %s",
		"Supported cameras: %d":            "対応カメラ数: %d",
		"  Decoder: %s":                    "  デコーダ: %s",
		"  Flags: %s":                      "  フラグ: %s",
		"  Thumbnail: %s %dx%d (%d bytes)": "  サムネイル: %s %dx%d (%d バイト)",
		"  Thumbnail: none (%v)":           "  サムネイル: なし (%v)",
		"ok       %s -> %s":                "成功     %s -> %s",
		"skipped  %s":                      "スキップ %s",
		"failed   %s: %v":                  "失敗     %s: %v",
		"Output saved to %s":               "出力を %s に保存しました",
		"Report saved to %s":               "レポートを %s に保存しました",
		"Serving metrics at %s":            "%s でメトリクスを公開中",
		"Metrics exporter stopped: %v":     "メトリクスエクスポーターが停止しました: %v",
	})
}
