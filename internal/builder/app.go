package builder

import (
	"github.com/shouni/go-comic-wizard/internal/config"
	"github.com/shouni/go-comic-wizard/pkg/gateway"
	"github.com/shouni/go-comic-wizard/pkg/publisher"
	"github.com/shouni/go-comic-wizard/pkg/session"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する。
// これを各コマンドに渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config    *config.Config         // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、モデル名など）。
	Options   config.GenerateOptions // Optionsは、コマンドラインから渡された実行時の設定です。
	Gateway   gateway.Gateway        // Gatewayは、生成AIとの境界です。
	Studio    *session.Studio        // Studioは、制作セッションの工程と状態を司るコントローラです。
	Publisher *publisher.Publisher   // Publisherは、成果物をファイルとして書き出す出力先です。
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	gw gateway.Gateway,
	studio *session.Studio,
	pub *publisher.Publisher,
) AppContext {
	return AppContext{
		Config:    cfg,
		Options:   cfg.Options,
		Gateway:   gw,
		Studio:    studio,
		Publisher: pub,
	}
}
