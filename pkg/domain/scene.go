package domain

import "fmt"

// ブックエンド（表紙・裏表紙）用の固定シーンIDなのだ。
const (
	CoverSceneID = "cover-page"
	BackSceneID  = "back-cover"
)

// Dialogue はシーン内の1つのセリフ行を表します。
type Dialogue struct {
	CharacterName string `json:"characterName"`
	Line          string `json:"line"`
}

// Scene はストーリーラインの1場面を表します。
// ID は生成時に割り当てられ、以後のどんな編集でも変化しません。
type Scene struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Narration   string     `json:"narration,omitempty"`
	Dialogues   []Dialogue `json:"dialogues,omitempty"`
}

// SceneDraft はストーリーライン生成AIが返す、ID割り当て前のシーン案です。
type SceneDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SceneScript は台本生成AIが返す、シーン1つ分の脚本（ナレーションとセリフ）です。
type SceneScript struct {
	Narration string     `json:"narration"`
	Dialogues []Dialogue `json:"dialogues"`
}

// SceneID は並び順のインデックスから安定したシーンIDを生成します。
func SceneID(index int) string {
	return fmt.Sprintf("scene-%d", index)
}

// Clone はシーンの防御的コピーを返すのだ。Dialogues スライスも新しく割り当てるのだ。
func (s Scene) Clone() Scene {
	res := s
	if s.Dialogues != nil {
		res.Dialogues = make([]Dialogue, len(s.Dialogues))
		copy(res.Dialogues, s.Dialogues)
	}
	return res
}
