package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-comic-wizard/internal/config"
	"github.com/shouni/go-comic-wizard/pkg/gateway"
	"github.com/shouni/go-comic-wizard/pkg/publisher"
	"github.com/shouni/go-comic-wizard/pkg/session"
)

// BuildAppContext は設定からアプリケーションの依存グラフを一括で構築します。
func BuildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	gw, err := InitializeGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}

	studio := session.New(gw, cfg.Options.ImageModel, cfg.Options.RateInterval)
	pub := publisher.New(cfg.Options.OutputDir)

	appCtx := NewAppContext(cfg, gw, studio, pub)
	return &appCtx, nil
}

// InitializeGateway は Gemini ゲートウェイを初期化します。
func InitializeGateway(ctx context.Context, cfg *config.Config) (gateway.Gateway, error) {
	gw, err := gateway.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.TextModel, cfg.EditModel)
	if err != nil {
		return nil, fmt.Errorf("ゲートウェイの初期化に失敗したのだ: %w", err)
	}
	return gw, nil
}
