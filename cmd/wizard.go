package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-comic-wizard/internal/builder"
	"github.com/shouni/go-comic-wizard/internal/config"
	"github.com/shouni/go-comic-wizard/internal/wizard"

	"github.com/spf13/cobra"
)

// wizardCmd は、対話型ウィザードでコミック制作を進めるコマンドなのだ。
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "対話型ウィザードでコミックを作りますなのだ。",
	Long: `アイデアの入力から物語・キャラクター・台本・パネル生成・PDF出力まで、
5つの工程を対話しながら1つずつ進めるのだ。途中の編集やり直しも自由なのだよ。`,
	RunE: wizardCommand,
}

func wizardCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	if opts.ImageModel == "" {
		opts.ImageModel = cfg.ImageModel
	}
	cfg.Options = opts

	app, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}

	slog.Info("コミックウィザードを起動するのだ！",
		"text_model", cfg.TextModel,
		"image_model", cfg.Options.ImageModel,
		"output", opts.OutputDir)

	return wizard.New(app, os.Stdin, os.Stdout).Run(ctx)
}
