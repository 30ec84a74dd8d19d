package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Output saved to %s":              "出力を %s に保存しました",
		"Pipeline completed successfully": "パイプラインが正常に完了しました",
		"Starting pipeline":               "パイプラインを開始します",
		"Interrupted, shutting down...":   "中断されました。シャットダウン中...",

		// Sources
		"Reading frames from %s":            "%s からフレームを読み込み中",
		"Generating %d test pattern frames": "テストパターンを %d フレーム生成中",

		// Encode stage
		"Encoding %s %dx%d at %s":           "%s %dx%d を %s でエンコード中",
		"Encoded %d frames into %d packets": "%d フレームを %d パケットにエンコードしました",
		"Video encoded: %d bytes":           "動画エンコード完了: %d バイト",

		// Warnings
		"Framerate %s is not supported, using %s": "フレームレート %s は非対応のため %s を使用します",
		"Unknown codec option: %s":                "不明なコーデックオプション: %s",
		"Skipping %s encoder: %v":                 "%s エンコーダーをスキップします: %v",

		// Errors
		"Failed to open frame source: %s": "フレームソースを開けませんでした: %s",
		"Failed to encode video: %s":      "動画のエンコードに失敗しました: %s",
		"Failed to probe output: %s":      "出力の解析に失敗しました: %s",
		"Failed to write output: %s":      "出力の書き込みに失敗しました: %s",
	})
}
