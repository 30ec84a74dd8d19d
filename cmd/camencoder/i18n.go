// Package main provides localization for the camencoder CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input and Output":  "入出力",
		"Video and Quality": "動画と品質",
		"Test Pattern":      "テストパターン",
		"Logging":           "ログ",

		// Root command
		"Encode captured frames into video files and convert icons": "キャプチャしたフレームを動画にエンコードし、アイコンを変換します",

		// Encode command
		"Encode a frame directory or a test pattern into MP4 or MKV": "フレームのディレクトリまたはテストパターンをMP4/MKVにエンコード",
		"YAML configuration file":                                     "YAML設定ファイル",
		"Output video file path":                                      "出力動画ファイルのパス",
		"Directory of BMP, PNG or JPEG frames (default: test pattern)": "BMP/PNG/JPEGフレームのディレクトリ（デフォルト: テストパターン）",
		"Container format (mp4, mkv; default: from output extension)": "コンテナ形式（mp4, mkv。デフォルト: 出力の拡張子から判定）",
		"Write the whole stream as a single fragment":                 "ストリーム全体を1つのフラグメントとして書き出す",
		"Stop after this many frames (0 = all)":                       "指定フレーム数で停止（0 = すべて）",
		"Video codec (h264, mpeg4, mpeg2, mjpeg)":                     "動画コーデック（h264, mpeg4, mpeg2, mjpeg）",
		"Output video width":                                          "出力動画の幅",
		"Output video height":                                         "出力動画の高さ",
		"Frame rate (e.g. 30, 29.97, 30000/1001)":                     "フレームレート（例: 30, 29.97, 30000/1001）",
		"Target bitrate in kbps (overrides quality)":                  "目標ビットレート（kbps、品質指定を上書き）",
		"Constant quality value (lower is better)":                    "固定品質値（低いほど高品質）",
		"Encoder speed preset":                                        "エンコーダーの速度プリセット",
		"Encoder tuning":                                              "エンコーダーのチューニング",
		"H.264 profile":                                               "H.264プロファイル",
		"Path to ffmpeg executable":                                   "ffmpeg実行ファイルのパス",
		"Number of test pattern frames":                               "テストパターンのフレーム数",

		// Probe command
		"Show the track layout of an encoded file": "エンコード済みファイルのトラック構成を表示",

		// Ico command
		"Read and write Windows icon files":                             "Windowsアイコンファイルの読み書き",
		"List the images in an icon file":                               "アイコンファイル内の画像を一覧表示",
		"Build an icon from PNG, BMP or JPEG images":                    "PNG/BMP/JPEG画像からアイコンを作成",
		"Extract one image of an icon as PNG or BMP":                    "アイコンの画像を1つPNGまたはBMPとして取り出す",
		"Output icon file path":                                         "出力アイコンファイルのパス",
		"Output image path (.png or .bmp)":                              "出力画像のパス（.png または .bmp）",
		"Image index":                                                   "画像の番号",
		"Reject images larger than 255 pixels instead of embedding PNG": "255ピクセルを超える画像をPNG埋め込みせずエラーにする",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Errors
		"a file argument is required":             "ファイル引数が必要です",
		"at least one image argument is required": "画像引数が1つ以上必要です",

		// Summary output flag
		"Output execution summary to file (Markdown format)": "実行サマリーをファイルに出力（Markdown形式）",
		"Summary saved to %s":                                "サマリーを %s に保存しました",
		"Failed to write summary: %s":                        "サマリーの書き込みに失敗しました: %s",

		// Summary content
		"Encoding Summary": "エンコードサマリー",
		"Generated":        "生成日時",
		"Source":           "入力",
		"Settings":         "設定",
		"Output":           "出力",
		"Item":             "項目",
		"Value":            "値",
		"directory":        "ディレクトリ",
		"pattern":          "テストパターン",
		"Frames Read":      "読み込みフレーム数",

		// Settings section
		"Codec":           "コーデック",
		"Dimensions":      "解像度",
		"Frame Rate":      "フレームレート",
		"Rate Control":    "レート制御",
		"Preset":          "プリセット",
		"Tune":            "チューニング",
		"Profile":         "プロファイル",
		"Container":       "コンテナ",
		"Single Fragment": "単一フラグメント",
		"None":            "なし",
		"Yes":             "はい",
		"No":              "いいえ",

		// Output section
		"Output File":     "出力ファイル",
		"Packets":         "パケット数",
		"Keyframes":       "キーフレーム数",
		"Video Duration":  "動画再生時間",
		"Video File Size": "動画ファイルサイズ",
		"Payload Size":    "ペイロードサイズ",
		"GOP Size":        "GOPサイズ",
		"Time Base":       "タイムベース",
		"Fragments":       "フラグメント数",
		"Ignored Options": "無視されたオプション",
		"Generated by":    "生成:",
	})
}
