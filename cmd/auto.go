package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-wizard/internal/builder"
	"github.com/shouni/go-comic-wizard/internal/config"

	"github.com/spf13/cobra"
)

// autoCmd は、対話なしで全工程を一気に実行するコマンドなのだ。
var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "プロンプト1つからコミックを全自動で作りますなのだ。",
	Long: `--prompt で渡したアイデア文を起点に、物語・キャラクター・台本・パネル生成を
順番に全自動で実行して、最後にPDFと中間成果物を書き出すのだ。`,
	RunE: autoCommand,
}

func autoCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.Prompt == "" {
		return fmt.Errorf("シードになるアイデア文（--prompt）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	if opts.ImageModel == "" {
		opts.ImageModel = cfg.ImageModel
	}
	cfg.Options = opts

	app, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}

	slog.Info("全自動コミック生成を起動するのだ！",
		"text_model", cfg.TextModel,
		"image_model", cfg.Options.ImageModel,
		"output", opts.OutputDir)

	if err := runAutoPipeline(ctx, app); err != nil {
		return fmt.Errorf("コミック生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}

// runAutoPipeline は5つの工程を順番に通して完成コミックまで走らせるのだ。
// 途中のガード（ポートレート未完成など）に引っかかったらそこで止まるのだよ。
func runAutoPipeline(ctx context.Context, app *builder.AppContext) error {
	studio := app.Studio

	studio.SetPrompt(app.Options.Prompt)
	if err := studio.GenerateStoryline(ctx); err != nil {
		return err
	}
	if err := studio.FinalizeStoryline(ctx); err != nil {
		return err
	}
	if err := studio.GenerateAllCharacterImages(ctx); err != nil {
		return err
	}
	if err := studio.GenerateScript(ctx); err != nil {
		return err
	}
	if err := studio.ProceedToPanelGeneration(); err != nil {
		return err
	}
	if err := studio.GenerateAllPanels(ctx); err != nil {
		return err
	}
	if err := studio.ProceedToComic(); err != nil {
		return err
	}

	// 3. 成果物を一式書き出すのだ
	sess := studio.Session()
	if path, err := app.Publisher.SaveStoryline(sess.Scenes); err != nil {
		return err
	} else {
		slog.Info("ストーリーラインを保存したのだ", "path", path)
	}
	if path, err := app.Publisher.SaveCharacterProfiles(sess.Characters); err != nil {
		return err
	} else {
		slog.Info("キャラクター設定を保存したのだ", "path", path)
	}
	if path, err := app.Publisher.SaveScript(sess.Scenes); err != nil {
		return err
	} else {
		slog.Info("台本を保存したのだ", "path", path)
	}
	path, err := app.Publisher.SaveComicPDF(sess.Title, sess.Panels)
	if err != nil {
		return err
	}
	slog.Info("完成コミックをPDFで保存したのだ！", "path", path)
	return nil
}
