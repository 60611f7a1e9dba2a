package gateway

import (
	"context"
	"fmt"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// Gateway は外部の生成AIを型付きの能力として抽象化する境界インターフェースです。
// 全操作はリクエスト/レスポンスの純粋な呼び出しで、ゲートウェイ自体は状態を保持しません。
// 異なるアイテムに対する呼び出しは同時に実行しても安全です。
// 失敗はすべて *GenerationError として返り、内部でのリトライは行いません。
// リトライ方針は呼び出し側（コントローラ）の責務です。
type Gateway interface {
	// GenerateStoryline はシード文章から5〜7シーンのストーリーライン案を生成します。
	GenerateStoryline(ctx context.Context, seed string) ([]domain.SceneDraft, error)

	// GenerateCharacters はストーリーラインから最大3人の主要キャラクター案を生成します。
	GenerateCharacters(ctx context.Context, scenes []domain.Scene) ([]domain.CharacterDraft, error)

	// GenerateImage はテキストプロンプトから画像を1枚生成します。
	// キャラクターのポートレート、シーン背景、表紙背景、文字のみの裏表紙が全部この操作を通ります。
	// model にはセッションで選択された画像モデル名を渡します。
	GenerateImage(ctx context.Context, prompt, model string) (*domain.Artifact, error)

	// EditImage は既存画像に自然言語の指示を適用して新しい画像を返します。
	// モデルがテキストのみで応答した場合（画像パートなし）は失敗として扱います。
	EditImage(ctx context.Context, image domain.Artifact, instruction string) (*domain.Artifact, error)

	// RewriteDescription は現在の説明文にユーザーの修正指示を織り込んで書き直します。
	RewriteDescription(ctx context.Context, current, command string) (string, error)

	// GenerateScript は各シーンのナレーションとセリフを生成し、シーンIDをキーに返します。
	// 結果に含まれないシーンがあっても呼び出し全体は失敗しません。補完は呼び出し側が行います。
	GenerateScript(ctx context.Context, scenes []domain.Scene, names []string) (map[string]domain.SceneScript, error)

	// CompositeImage は複数の画像（先頭が背景）と指示文から1枚の合成画像を生成します。
	// パネル合成にも表紙・裏表紙の生成にも使います。
	CompositeImage(ctx context.Context, images []domain.Artifact, instruction string) (*domain.Artifact, error)

	// AnalyzeSceneCharacters はシーン描写に登場するキャラクター名を候補リストから抽出します。
	AnalyzeSceneCharacters(ctx context.Context, scene domain.Scene, names []string) ([]string, error)
}

// GenerationError はゲートウェイ呼び出しの失敗を表す唯一のエラー型です。
// プロバイダ由来の失敗も、応答が使えない形だった場合（画像パートなし・パース不能・空配列）も
// この型に正規化されます。
type GenerationError struct {
	Op      string // 失敗した操作名
	Message string // ユーザーに提示できる1行メッセージ
	Err     error  // 元エラー（ない場合は nil）
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newGenerationError(op, message string, err error) *GenerationError {
	return &GenerationError{Op: op, Message: message, Err: err}
}
