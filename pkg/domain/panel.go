package domain

// PanelType はパネルの種別を表す閉じた列挙です。
// 表紙1枚・シーンごとに1枚・裏表紙1枚という固定構成で、相対順序も固定です。
type PanelType int

const (
	PanelCover PanelType = iota
	PanelScene
	PanelBack
)

func (t PanelType) String() string {
	switch t {
	case PanelCover:
		return "COVER"
	case PanelScene:
		return "SCENE"
	case PanelBack:
		return "BACK"
	default:
		return "UNKNOWN"
	}
}

// Panel は1コマ分の生成単位です。シーン参照と生成メタデータを束ねます。
// Background は SCENE パネルのみが保持する中間成果物で、
// テキスト再反映の際に背景を作り直さず再合成するために残しておきます。
type Panel struct {
	Scene      Scene      `json:"scene"`
	Type       PanelType  `json:"panelType"`
	FinalImage *Artifact  `json:"-"`
	Background *Artifact  `json:"-"`
	Status     ItemStatus `json:"status"`
}

// NewCoverPanel は表紙ブックエンドのパネルを生成するのだ。
func NewCoverPanel(title string) Panel {
	return Panel{
		Scene: Scene{ID: CoverSceneID, Title: "Cover: " + title},
		Type:  PanelCover,
	}
}

// NewScenePanel はシーン1つ分のパネルを生成するのだ。
func NewScenePanel(scene Scene) Panel {
	return Panel{Scene: scene.Clone(), Type: PanelScene}
}

// NewBackCoverPanel は裏表紙ブックエンドのパネルを生成するのだ。
func NewBackCoverPanel() Panel {
	return Panel{
		Scene: Scene{ID: BackSceneID, Title: "The End"},
		Type:  PanelBack,
	}
}

// SynthesizePanels はシーン列からパネル列を導出します。
// 構成は常に [COVER, シーン順のSCENEパネル..., BACK] で、全パネルが NOT_STARTED から始まります。
func SynthesizePanels(title string, scenes []Scene) []Panel {
	panels := make([]Panel, 0, len(scenes)+2)
	panels = append(panels, NewCoverPanel(title))
	for _, scene := range scenes {
		panels = append(panels, NewScenePanel(scene))
	}
	panels = append(panels, NewBackCoverPanel())
	return panels
}
