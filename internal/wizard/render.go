package wizard

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-wizard/pkg/domain"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// 表示まわりの色はここにまとめておくのだ。
var (
	titleColor  = color.New(color.FgHiCyan, color.Bold).SprintFunc()
	promptColor = color.New(color.FgHiGreen).SprintFunc()
	infoColor   = color.New(color.FgHiBlue).SprintFunc()
	okColor     = color.New(color.FgHiGreen).SprintFunc()
	errColor    = color.New(color.FgHiRed).SprintFunc()
)

// render は現在の工程に応じたセッションの状態を描画します。
// 直近の失敗はどの工程でも最後に赤で1行だけ表示します。
func (w *Wizard) render(sess domain.Session) {
	fmt.Fprintf(w.out, "\n%s", titleColor("["+sess.Stage.String()+"]"))
	if sess.Title != "" {
		fmt.Fprintf(w.out, " %s", sess.Title)
	}
	fmt.Fprintln(w.out)

	switch sess.Stage {
	case domain.StagePrompt:
		fmt.Fprintln(w.out, "作りたいコミックのアイデアを1行で入力するのだ。")
		if sess.Prompt != "" {
			fmt.Fprintf(w.out, "現在のプロンプト: %s\n", sess.Prompt)
		}
		fmt.Fprintf(w.out, "画像モデル: %s\n", sess.ImageModel)
	case domain.StageStoryline:
		w.renderScenes(sess.Scenes, false)
	case domain.StageCharacters:
		w.renderCharacters(sess.Characters)
	case domain.StageScripting:
		w.renderScenes(sess.Scenes, true)
	case domain.StagePanelGeneration, domain.StageComic:
		w.renderPanels(sess.Panels)
	}

	if sess.LastError != "" {
		fmt.Fprintln(w.out, errColor("エラー: "+sess.LastError))
	}
}

// renderScenes はシーン一覧を表示するのだ。withScript 時は台本も添えるのだ。
func (w *Wizard) renderScenes(scenes []domain.Scene, withScript bool) {
	for i, scene := range scenes {
		fmt.Fprintf(w.out, "%s %s\n", infoColor(fmt.Sprintf("%d.", i+1)), scene.Title)
		fmt.Fprintf(w.out, "   %s\n", scene.Description)
		if !withScript {
			continue
		}
		fmt.Fprintf(w.out, "   ナレーション: %s\n", scene.Narration)
		for j, d := range scene.Dialogues {
			fmt.Fprintf(w.out, "   %s %s: %s\n", infoColor(fmt.Sprintf("(%d)", j+1)), d.CharacterName, d.Line)
		}
	}
}

// renderCharacters はキャラクターの一覧をテーブルで表示するのだ。
func (w *Wizard) renderCharacters(characters []domain.Character) {
	table := w.newTable([]string{"#", "Name", "Status", "Image", "Description"})
	for i, c := range characters {
		image := "-"
		if c.HasImage() {
			image = "ready"
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			c.Name,
			c.Status.String(),
			image,
			truncate(c.Description, 60),
		})
	}
	table.Render()
}

// renderPanels はパネルの進捗をテーブルで表示するのだ。
func (w *Wizard) renderPanels(panels []domain.Panel) {
	table := w.newTable([]string{"#", "Type", "Scene", "Status"})
	for i, p := range panels {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			p.Type.String(),
			p.Scene.Title,
			p.Status.String(),
		})
	}
	table.Render()
}

// newTable は一覧表示用の罫線なしテーブルを組み立てるのだ。
func (w *Wizard) newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(w.out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// renderHelp は現在の工程で使えるコマンドの一覧を表示するのだ。
func (w *Wizard) renderHelp(stage domain.Stage) {
	fmt.Fprintln(w.out, titleColor("使えるコマンドなのだ:"))
	switch stage {
	case domain.StagePrompt:
		fmt.Fprintln(w.out, "  <アイデア文>        プロンプトとして設定")
		fmt.Fprintln(w.out, "  go                  ストーリーラインを生成")
		fmt.Fprintln(w.out, "  model <モデル名>    画像生成モデルを選択")
	case domain.StageStoryline:
		fmt.Fprintln(w.out, "  edit <番号> <説明>  シーンの説明を書き換え")
		fmt.Fprintln(w.out, "  save                ストーリーラインをファイルに保存")
		fmt.Fprintln(w.out, "  next                キャラクター設計へ進む")
	case domain.StageCharacters:
		fmt.Fprintln(w.out, "  gen <番号>          ポートレートを生成")
		fmt.Fprintln(w.out, "  genall              未生成のポートレートを一括生成")
		fmt.Fprintln(w.out, "  edit <番号> <説明>  説明文を書き換え")
		fmt.Fprintln(w.out, "  update <番号>       説明文を画像に反映")
		fmt.Fprintln(w.out, "  tweak <番号> <指示> 画像を自然文で調整")
		fmt.Fprintln(w.out, "  save                キャラクター設定を保存")
		fmt.Fprintln(w.out, "  next                台本の生成へ進む")
	case domain.StageScripting:
		fmt.Fprintln(w.out, "  narr <番号> <文>    ナレーションを書き換え")
		fmt.Fprintln(w.out, "  line <番号> <番号> <文>  セリフを書き換え")
		fmt.Fprintln(w.out, "  save                台本を保存")
		fmt.Fprintln(w.out, "  next                パネル生成へ進む")
	case domain.StagePanelGeneration:
		fmt.Fprintln(w.out, "  gen <番号>          パネルを生成")
		fmt.Fprintln(w.out, "  genall              残りのパネルを一括生成")
		fmt.Fprintln(w.out, "  update <番号>       台本の変更をパネルに再反映")
		fmt.Fprintln(w.out, "  tweak <番号> <指示> パネルを自然文で調整")
		fmt.Fprintln(w.out, "  next                コミックの完成へ")
	case domain.StageComic:
		fmt.Fprintln(w.out, "  pdf                 完成コミックをPDFで保存")
	}
	fmt.Fprintln(w.out, "  title <タイトル>    作品タイトルを変更")
	fmt.Fprintln(w.out, "  reset / help / quit")
}

// truncate は長い文字列を表示幅に収めるのだ。
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
