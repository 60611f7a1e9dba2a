package domain

// Stage は制作パイプラインの工程を表す列挙です。遷移は前進のみで、スキップはありません。
type Stage int

const (
	StagePrompt Stage = iota
	StageStoryline
	StageCharacters
	StageScripting
	StagePanelGeneration
	StageComic
)

func (s Stage) String() string {
	switch s {
	case StagePrompt:
		return "PROMPT"
	case StageStoryline:
		return "STORYLINE"
	case StageCharacters:
		return "CHARACTERS"
	case StageScripting:
		return "SCRIPTING"
	case StagePanelGeneration:
		return "PANEL_GENERATION"
	case StageComic:
		return "COMIC"
	default:
		return "UNKNOWN"
	}
}

// Session は1回の制作セッションの全状態を保持するルート集約なのだ。
// プロセスを跨ぐ永続化は行わず、状態はメモリ上にのみ存在するのだよ。
// すべてのコレクションはこの集約が排他的に所有するのだ。
type Session struct {
	ID         string      `json:"id"`
	Stage      Stage       `json:"stage"`
	Prompt     string      `json:"prompt"`
	Title      string      `json:"title"`
	ImageModel string      `json:"imageModel"`
	Scenes     []Scene     `json:"scenes"`
	Characters []Character `json:"characters"`
	Panels     []Panel     `json:"panels"`
	LastError  string      `json:"-"`
}

// Reset はセッションを初期状態（PROMPT工程・コレクション空）に戻します。
// 画像モデルの選択はセッションの設定なので維持されます。
func (s *Session) Reset() {
	s.Stage = StagePrompt
	s.Prompt = ""
	s.Title = ""
	s.Scenes = nil
	s.Characters = nil
	s.Panels = nil
	s.LastError = ""
}

// AllCharacterImagesReady は全キャラクターのポートレートが揃っているかを返します。
// 走査コストは軽微なので、キャッシュせず読み取りのたびに再計算します。
func (s *Session) AllCharacterImagesReady() bool {
	for _, c := range s.Characters {
		if !c.HasImage() {
			return false
		}
	}
	return true
}

// AllPanelsDone は全パネルが DONE に到達しているかを返します。
func (s *Session) AllPanelsDone() bool {
	for _, p := range s.Panels {
		if p.Status != StatusDone {
			return false
		}
	}
	return true
}

// Snapshot はセッションの読み取り用コピーを返すのだ。
// スライスは付け替えられても元に影響しないよう、新しく割り当てるのだ。
func (s *Session) Snapshot() Session {
	res := *s
	if s.Scenes != nil {
		res.Scenes = make([]Scene, len(s.Scenes))
		for i, sc := range s.Scenes {
			res.Scenes[i] = sc.Clone()
		}
	}
	if s.Characters != nil {
		res.Characters = make([]Character, len(s.Characters))
		copy(res.Characters, s.Characters)
	}
	if s.Panels != nil {
		res.Panels = make([]Panel, len(s.Panels))
		copy(res.Panels, s.Panels)
	}
	return res
}
