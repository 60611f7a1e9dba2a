// Package session は制作セッションの工程遷移とアイテムごとの生成状態を司ります。
// すべての状態変更はアイテム単位の丸ごと差し替えで適用され、部分的な書き込みが
// 観測されることはありません。
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/gateway"

	"github.com/google/uuid"
)

// ImageModels はセッションで選択できる画像生成モデルなのだ。先頭がデフォルトなのだ。
var ImageModels = []string{
	"imagen-4.0-generate-001",
	"imagen-3.0-generate-002",
}

// Studio は1つの制作セッションを駆動するコントローラです。
// セッション集約への唯一の入口で、工程遷移のガード、アイテム状態機械の遷移、
// ゲートウェイ呼び出しの失敗境界をここで一元管理します。
//
// 並行性: 同一アイテムへの操作はアイテムの非終端状態がロックとして排他されます。
// 異なるアイテムの操作は同時に実行でき、完了はアイテム単位のスコープ付き更新として
// 適用されます。工程遷移系の操作はセッションにつき同時に1つだけです。
type Studio struct {
	mu        sync.Mutex
	gw        gateway.Gateway
	sess      *domain.Session
	stageBusy bool // 工程遷移系の操作が実行中かどうか

	rateInterval time.Duration // 一括生成時の画像リクエスト間隔
}

// New は新しいセッションを持つ Studio を生成します。
// imageModel が空の場合はデフォルトのモデルが選択されます。
func New(gw gateway.Gateway, imageModel string, rateInterval time.Duration) *Studio {
	if imageModel == "" {
		imageModel = ImageModels[0]
	}
	return &Studio{
		gw: gw,
		sess: &domain.Session{
			ID:         uuid.NewString(),
			Stage:      domain.StagePrompt,
			ImageModel: imageModel,
		},
		rateInterval: rateInterval,
	}
}

// Session はセッションの読み取り用スナップショットを返します。
func (st *Studio) Session() domain.Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sess.Snapshot()
}

// Reset はセッションを初期状態に戻し、新しいセッションIDを割り当てるのだ。
func (st *Studio) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sess.Reset()
	st.sess.ID = uuid.NewString()
	st.stageBusy = false
}

// SetPrompt はシードとなるプロンプト文を設定します。
func (st *Studio) SetPrompt(text string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sess.Prompt = text
}

// SetTitle は表紙とファイル名に使われる作品タイトルを設定します。
func (st *Studio) SetTitle(title string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sess.Title = title
}

// SelectImageModel は画像生成に使うモデルを選択します。選択肢外の名前は拒否されます。
func (st *Studio) SelectImageModel(model string) error {
	for _, m := range ImageModels {
		if m == model {
			st.mu.Lock()
			defer st.mu.Unlock()
			st.sess.ImageModel = model
			return nil
		}
	}
	return validationf("unknown image model: %s", model)
}

// SetSceneDescription はシーン説明文を書き換えます。IDは変化しません。
func (st *Studio) SetSceneDescription(index int, description string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.sess.Scenes) {
		return validationf("scene index %d out of range", index)
	}
	scene := st.sess.Scenes[index].Clone()
	scene.Description = description
	st.sess.Scenes[index] = scene
	return nil
}

// SetSceneNarration はシーンのナレーションを書き換えます。
func (st *Studio) SetSceneNarration(index int, narration string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.sess.Scenes) {
		return validationf("scene index %d out of range", index)
	}
	scene := st.sess.Scenes[index].Clone()
	scene.Narration = narration
	st.sess.Scenes[index] = scene
	return nil
}

// SetDialogueLine はシーン内の1つのセリフ行だけを書き換えます。
func (st *Studio) SetDialogueLine(sceneIndex, dialogueIndex int, line string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if sceneIndex < 0 || sceneIndex >= len(st.sess.Scenes) {
		return validationf("scene index %d out of range", sceneIndex)
	}
	scene := st.sess.Scenes[sceneIndex].Clone()
	if dialogueIndex < 0 || dialogueIndex >= len(scene.Dialogues) {
		return validationf("dialogue index %d out of range", dialogueIndex)
	}
	scene.Dialogues[dialogueIndex].Line = line
	st.sess.Scenes[sceneIndex] = scene
	return nil
}

// SetCharacterDescription はキャラクターの説明文を書き換えます。名前とIDは変化しません。
func (st *Studio) SetCharacterDescription(index int, description string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.sess.Characters) {
		return validationf("character index %d out of range", index)
	}
	char := st.sess.Characters[index]
	char.Description = description
	st.sess.Characters[index] = char
	return nil
}

// LastError は直近に表面化した失敗メッセージを返します。失敗は常に最新の1件だけが
// 保持され、次の操作の開始時にクリアされます。
func (st *Studio) LastError() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sess.LastError
}

// recordFailure は失敗をセッションレベルの1行メッセージとして記録するのだ。
func (st *Studio) recordFailure(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sess.LastError = err.Error()
}

// clearFailure は操作開始時のエラークリアなのだ。呼び出し側がロックを握った状態で使うのだ。
func (st *Studio) clearFailureLocked() {
	st.sess.LastError = ""
}

// charactersWithImages はポートレート生成済みのキャラクターだけを、成果物のコピー付きで返します。
// 呼び出し側がロックを握った状態で使います。
func (st *Studio) charactersWithImagesLocked() []domain.Character {
	res := make([]domain.Character, 0, len(st.sess.Characters))
	for _, c := range st.sess.Characters {
		if c.HasImage() {
			copied := c
			copied.Image = c.Image.Clone()
			res = append(res, copied)
		}
	}
	return res
}

// characterNamesLocked は全キャラクターの名前を返します。
func (st *Studio) characterNamesLocked() []string {
	names := make([]string, 0, len(st.sess.Characters))
	for _, c := range st.sess.Characters {
		names = append(names, c.Name)
	}
	return names
}

// trimmed は前後の空白を落とした文字列が空かどうかの判定に使う小さな補助なのだ。
func trimmed(s string) string {
	return strings.TrimSpace(s)
}
