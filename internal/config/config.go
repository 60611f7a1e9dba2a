package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultTextModel  = "gemini-2.5-flash"               // 構造化テキスト生成用
	DefaultEditModel  = "gemini-2.5-flash-image-preview" // 画像編集・合成用
	DefaultImageModel = "imagen-4.0-generate-001"        // テキストからの画像生成用（セッションで変更可）
	DefaultOutputDir  = "output"                         // 成果物ファイルの保存先
	DefaultRateLimit  = 30 * time.Second                 // 一括生成時の画像リクエスト間隔
)

// Config はアプリケーション全体の環境設定（APIキーやモデル選択）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey string
	TextModel    string
	EditModel    string
	ImageModel   string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey: envutil.GetEnv("GEMINI_API_KEY", ""),
		TextModel:    envutil.GetEnv("GEMINI_MODEL", DefaultTextModel),
		EditModel:    envutil.GetEnv("GEMINI_EDIT_MODEL", DefaultEditModel),
		ImageModel:   envutil.GetEnv("IMAGE_MODEL", DefaultImageModel),
	}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	Prompt     string // --prompt: auto モードのシード文章
	OutputDir  string // --output-dir
	ImageModel string // --image-model

	// 実行制御
	RateInterval time.Duration // --rate-interval
}
