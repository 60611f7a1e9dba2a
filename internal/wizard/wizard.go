// Package wizard は対話型のコミック制作ウィザードなのだ。
// 標準入力からコマンドを読み取り、工程ごとのメニューで Studio を駆動するのだよ。
package wizard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shouni/go-comic-wizard/internal/builder"
	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// Wizard は1つの制作セッションを対話的に進めるREPLです。
// 各ループで最新のセッションスナップショットを描画し、入力を工程別に解釈します。
type Wizard struct {
	app *builder.AppContext
	in  *bufio.Scanner
	out io.Writer
}

// New は Wizard を生成します。
func New(app *builder.AppContext, in io.Reader, out io.Writer) *Wizard {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Wizard{app: app, in: scanner, out: out}
}

// Run はウィザードのメインループです。quit するか入力が尽きるまで回り続けます。
func (w *Wizard) Run(ctx context.Context) error {
	fmt.Fprintln(w.out, titleColor("=== Comic Wizard ==="))
	fmt.Fprintln(w.out, "ひとことのアイデアから完成コミックまで、5つの工程を順に案内するのだ。")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sess := w.app.Studio.Session()
		w.render(sess)

		fmt.Fprint(w.out, promptColor("> "))
		if !w.in.Scan() {
			fmt.Fprintln(w.out)
			return w.in.Err()
		}
		line := strings.TrimSpace(w.in.Text())
		if line == "" {
			continue
		}

		if w.dispatch(ctx, sess, line) {
			return nil
		}
	}
}

// dispatch は入力1行を解釈して実行するのだ。戻り値 true で終了なのだ。
func (w *Wizard) dispatch(ctx context.Context, sess domain.Session, line string) (quit bool) {
	cmd, rest := splitCommand(line)

	// 工程によらない共通コマンドなのだ
	switch cmd {
	case "quit", "exit":
		fmt.Fprintln(w.out, "またね、なのだ！")
		return true
	case "help":
		w.renderHelp(sess.Stage)
		return false
	case "reset":
		w.app.Studio.Reset()
		fmt.Fprintln(w.out, infoColor("セッションをリセットしたのだ。"))
		return false
	case "title":
		if rest == "" {
			fmt.Fprintln(w.out, errColor("使い方: title <新しいタイトル>"))
			return false
		}
		w.app.Studio.SetTitle(rest)
		return false
	case "model":
		w.report(w.app.Studio.SelectImageModel(rest))
		return false
	}

	switch sess.Stage {
	case domain.StagePrompt:
		w.dispatchPrompt(ctx, cmd, rest, line)
	case domain.StageStoryline:
		w.dispatchStoryline(ctx, cmd, rest)
	case domain.StageCharacters:
		w.dispatchCharacters(ctx, cmd, rest)
	case domain.StageScripting:
		w.dispatchScripting(ctx, cmd, rest)
	case domain.StagePanelGeneration:
		w.dispatchPanels(ctx, cmd, rest)
	case domain.StageComic:
		w.dispatchComic(cmd)
	}
	return false
}

// dispatchPrompt は PROMPT 工程の入力を処理するのだ。
// コマンドに該当しない行はそのままプロンプト文として受け取るのだよ。
func (w *Wizard) dispatchPrompt(ctx context.Context, cmd, rest, line string) {
	switch cmd {
	case "go", "gen":
		w.report(w.app.Studio.GenerateStoryline(ctx))
	default:
		w.app.Studio.SetPrompt(line)
		fmt.Fprintln(w.out, infoColor("プロンプトを設定したのだ。go で物語の生成に進むのだ。"))
	}
}

// dispatchStoryline は STORYLINE 工程の入力を処理するのだ。
func (w *Wizard) dispatchStoryline(ctx context.Context, cmd, rest string) {
	switch cmd {
	case "edit":
		index, text, err := splitIndexArg(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: edit <シーン番号> <新しい説明文>"))
			return
		}
		w.report(w.app.Studio.SetSceneDescription(index, text))
	case "save":
		sess := w.app.Studio.Session()
		w.reportSave(w.app.Publisher.SaveStoryline(sess.Scenes))
	case "next":
		w.report(w.app.Studio.FinalizeStoryline(ctx))
	default:
		w.unknown(cmd)
	}
}

// dispatchCharacters は CHARACTERS 工程の入力を処理するのだ。
func (w *Wizard) dispatchCharacters(ctx context.Context, cmd, rest string) {
	switch cmd {
	case "gen":
		index, err := parseIndex(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: gen <キャラ番号>"))
			return
		}
		w.report(w.app.Studio.GenerateCharacterImage(ctx, index))
	case "genall":
		w.report(w.app.Studio.GenerateAllCharacterImages(ctx))
	case "edit":
		index, text, err := splitIndexArg(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: edit <キャラ番号> <新しい説明文>"))
			return
		}
		w.report(w.app.Studio.SetCharacterDescription(index, text))
	case "update":
		index, err := parseIndex(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: update <キャラ番号>"))
			return
		}
		w.report(w.app.Studio.UpdateCharacterImage(ctx, index))
	case "tweak":
		index, text, err := splitIndexArg(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: tweak <キャラ番号> <調整の指示>"))
			return
		}
		w.report(w.app.Studio.TweakCharacter(ctx, index, text))
	case "save":
		sess := w.app.Studio.Session()
		w.reportSave(w.app.Publisher.SaveCharacterProfiles(sess.Characters))
	case "next":
		w.report(w.app.Studio.GenerateScript(ctx))
	default:
		w.unknown(cmd)
	}
}

// dispatchScripting は SCRIPTING 工程の入力を処理するのだ。
func (w *Wizard) dispatchScripting(ctx context.Context, cmd, rest string) {
	switch cmd {
	case "narr":
		index, text, err := splitIndexArg(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: narr <シーン番号> <ナレーション>"))
			return
		}
		w.report(w.app.Studio.SetSceneNarration(index, text))
	case "line":
		sceneIdx, dlgIdx, text, err := splitTwoIndexArg(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: line <シーン番号> <セリフ番号> <新しいセリフ>"))
			return
		}
		w.report(w.app.Studio.SetDialogueLine(sceneIdx, dlgIdx, text))
	case "save":
		sess := w.app.Studio.Session()
		w.reportSave(w.app.Publisher.SaveScript(sess.Scenes))
	case "next":
		w.report(w.app.Studio.ProceedToPanelGeneration())
	default:
		w.unknown(cmd)
	}
}

// dispatchPanels は PANEL_GENERATION 工程の入力を処理するのだ。
func (w *Wizard) dispatchPanels(ctx context.Context, cmd, rest string) {
	switch cmd {
	case "gen":
		index, err := parseIndex(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: gen <パネル番号>"))
			return
		}
		w.report(w.app.Studio.GeneratePanel(ctx, index))
	case "genall":
		fmt.Fprintln(w.out, infoColor("全パネルの生成を始めるのだ。しばらくかかるのだよ。"))
		w.report(w.app.Studio.GenerateAllPanels(ctx))
	case "update":
		index, err := parseIndex(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: update <パネル番号>"))
			return
		}
		w.report(w.app.Studio.UpdatePanelFromText(ctx, index))
	case "tweak":
		index, text, err := splitIndexArg(rest)
		if err != nil {
			fmt.Fprintln(w.out, errColor("使い方: tweak <パネル番号> <調整の指示>"))
			return
		}
		w.report(w.app.Studio.TweakPanel(ctx, index, text))
	case "next":
		w.report(w.app.Studio.ProceedToComic())
	default:
		w.unknown(cmd)
	}
}

// dispatchComic は COMIC 工程の入力を処理するのだ。完成後はPDFの書き出しが主役なのだ。
func (w *Wizard) dispatchComic(cmd string) {
	switch cmd {
	case "pdf", "save":
		sess := w.app.Studio.Session()
		w.reportSave(w.app.Publisher.SaveComicPDF(sess.Title, sess.Panels))
	default:
		w.unknown(cmd)
	}
}

// report は操作の結果を1行で知らせるのだ。失敗は赤で表示するのだよ。
func (w *Wizard) report(err error) {
	if err != nil {
		fmt.Fprintln(w.out, errColor(err.Error()))
		return
	}
	fmt.Fprintln(w.out, okColor("OK"))
}

// reportSave はファイル書き出し系の結果を表示するのだ。
func (w *Wizard) reportSave(path string, err error) {
	if err != nil {
		fmt.Fprintln(w.out, errColor(err.Error()))
		return
	}
	fmt.Fprintf(w.out, "%s %s\n", okColor("保存したのだ:"), path)
}

func (w *Wizard) unknown(cmd string) {
	fmt.Fprintln(w.out, errColor(fmt.Sprintf("知らないコマンドなのだ: %s（help で一覧が見られるのだ）", cmd)))
}

// splitCommand は入力行を先頭のコマンド語と残りに分けるのだ。
func splitCommand(line string) (cmd, rest string) {
	parts := strings.SplitN(line, " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return cmd, rest
}

// parseIndex は1始まりの表示番号を0始まりの添え字に変換するのだ。
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// splitIndexArg は「番号 テキスト」形式の引数を分解するのだ。
func splitIndexArg(rest string) (int, string, error) {
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("引数が足りません")
	}
	index, err := parseIndex(parts[0])
	if err != nil {
		return 0, "", err
	}
	return index, strings.TrimSpace(parts[1]), nil
}

// splitTwoIndexArg は「番号 番号 テキスト」形式の引数を分解するのだ。
func splitTwoIndexArg(rest string) (int, int, string, error) {
	parts := strings.SplitN(rest, " ", 3)
	if len(parts) != 3 {
		return 0, 0, "", fmt.Errorf("引数が足りません")
	}
	first, err := parseIndex(parts[0])
	if err != nil {
		return 0, 0, "", err
	}
	second, err := parseIndex(parts[1])
	if err != nil {
		return 0, 0, "", err
	}
	return first, second, strings.TrimSpace(parts[2]), nil
}
