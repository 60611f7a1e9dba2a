package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/gateway"
)

// fakeGateway はテスト用のゲートウェイなのだ。各操作は差し替え可能で、呼び出し回数を数えるのだ。
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	storylineFn  func(seed string) ([]domain.SceneDraft, error)
	charactersFn func(scenes []domain.Scene) ([]domain.CharacterDraft, error)
	imageFn      func(prompt, model string) (*domain.Artifact, error)
	editFn       func(image domain.Artifact, instruction string) (*domain.Artifact, error)
	rewriteFn    func(current, command string) (string, error)
	scriptFn     func(scenes []domain.Scene, names []string) (map[string]domain.SceneScript, error)
	compositeFn  func(images []domain.Artifact, instruction string) (*domain.Artifact, error)
	analyzeFn    func(scene domain.Scene, names []string) ([]string, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: map[string]int{}}
}

func (f *fakeGateway) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func pngArtifact(tag string) *domain.Artifact {
	return &domain.Artifact{Data: []byte(tag), MIMEType: "image/png"}
}

func (f *fakeGateway) GenerateStoryline(ctx context.Context, seed string) ([]domain.SceneDraft, error) {
	f.record("storyline")
	if f.storylineFn != nil {
		return f.storylineFn(seed)
	}
	drafts := make([]domain.SceneDraft, 5)
	for i := range drafts {
		drafts[i] = domain.SceneDraft{
			Title:       fmt.Sprintf("シーン%d", i+1),
			Description: fmt.Sprintf("シーン%dの描写", i+1),
		}
	}
	return drafts, nil
}

func (f *fakeGateway) GenerateCharacters(ctx context.Context, scenes []domain.Scene) ([]domain.CharacterDraft, error) {
	f.record("characters")
	if f.charactersFn != nil {
		return f.charactersFn(scenes)
	}
	return []domain.CharacterDraft{
		{Name: "Alice", Description: "赤い髪の冒険者"},
		{Name: "Bob", Description: "眼鏡の学者"},
	}, nil
}

func (f *fakeGateway) GenerateImage(ctx context.Context, prompt, model string) (*domain.Artifact, error) {
	f.record("image")
	if f.imageFn != nil {
		return f.imageFn(prompt, model)
	}
	return pngArtifact("generated"), nil
}

func (f *fakeGateway) EditImage(ctx context.Context, image domain.Artifact, instruction string) (*domain.Artifact, error) {
	f.record("edit")
	if f.editFn != nil {
		return f.editFn(image, instruction)
	}
	return pngArtifact("edited"), nil
}

func (f *fakeGateway) RewriteDescription(ctx context.Context, current, command string) (string, error) {
	f.record("rewrite")
	if f.rewriteFn != nil {
		return f.rewriteFn(current, command)
	}
	return current + " " + command, nil
}

func (f *fakeGateway) GenerateScript(ctx context.Context, scenes []domain.Scene, names []string) (map[string]domain.SceneScript, error) {
	f.record("script")
	if f.scriptFn != nil {
		return f.scriptFn(scenes, names)
	}
	res := make(map[string]domain.SceneScript, len(scenes))
	for _, s := range scenes {
		res[s.ID] = domain.SceneScript{
			Narration: s.Title + "のナレーション",
			Dialogues: []domain.Dialogue{{CharacterName: "Alice", Line: "行くのだ！"}},
		}
	}
	return res, nil
}

func (f *fakeGateway) CompositeImage(ctx context.Context, images []domain.Artifact, instruction string) (*domain.Artifact, error) {
	f.record("composite")
	if f.compositeFn != nil {
		return f.compositeFn(images, instruction)
	}
	return pngArtifact("composited"), nil
}

func (f *fakeGateway) AnalyzeSceneCharacters(ctx context.Context, scene domain.Scene, names []string) ([]string, error) {
	f.record("analyze")
	if f.analyzeFn != nil {
		return f.analyzeFn(scene, names)
	}
	return names, nil
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func newTestStudio(fake *fakeGateway) *Studio {
	return New(fake, "", time.Millisecond)
}

func TestStudio_FullWorkflow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGateway()
	st := newTestStudio(fake)

	t.Run("プロンプトからストーリーラインが確定するのだ", func(t *testing.T) {
		st.SetPrompt("  宇宙を旅する猫  ")
		if err := st.GenerateStoryline(ctx); err != nil {
			t.Fatalf("ストーリーライン生成でエラーが発生しました: %v", err)
		}
		sess := st.Session()
		if sess.Stage != domain.StageStoryline {
			t.Fatalf("工程が STORYLINE になっていないのだ: %s", sess.Stage)
		}
		if len(sess.Scenes) != 5 {
			t.Fatalf("シーン数が違うのだ: %d", len(sess.Scenes))
		}
		if sess.Scenes[0].ID != "scene-0" || sess.Scenes[4].ID != "scene-4" {
			t.Error("シーンIDが位置どおりに振られていないのだ")
		}
		if sess.Title != "宇宙を旅する猫" {
			t.Errorf("タイトルにプロンプトが写っていないのだ: %s", sess.Title)
		}
	})

	t.Run("ストーリーライン確定でキャラクターが設計されるのだ", func(t *testing.T) {
		if err := st.FinalizeStoryline(ctx); err != nil {
			t.Fatalf("キャラクター設計でエラーが発生しました: %v", err)
		}
		sess := st.Session()
		if sess.Stage != domain.StageCharacters {
			t.Fatalf("工程が CHARACTERS になっていないのだ: %s", sess.Stage)
		}
		if len(sess.Characters) != 2 {
			t.Fatalf("キャラクター数が違うのだ: %d", len(sess.Characters))
		}
		if sess.Characters[0].ID != "char-0" || sess.Characters[0].Status != domain.StatusNotStarted {
			t.Errorf("キャラクターの初期状態が正しくないのだ: %+v", sess.Characters[0])
		}
	})

	t.Run("ポートレートが揃う前の台本生成はガードで拒否されるのだ", func(t *testing.T) {
		err := st.GenerateScript(ctx)
		var guard *GuardViolation
		if !errors.As(err, &guard) {
			t.Fatalf("GuardViolation ではないエラーが返りました: %v", err)
		}
		if st.Session().Stage != domain.StageCharacters {
			t.Error("ガード拒否で工程が動いてしまったのだ")
		}
	})

	t.Run("一括生成で全ポートレートが揃うのだ", func(t *testing.T) {
		if err := st.GenerateAllCharacterImages(ctx); err != nil {
			t.Fatalf("一括生成でエラーが発生しました: %v", err)
		}
		sess := st.Session()
		for i, c := range sess.Characters {
			if !c.HasImage() || c.Status != domain.StatusDone {
				t.Errorf("キャラクター %d のポートレートが完了していないのだ: %+v", i, c)
			}
		}
	})

	t.Run("台本が各シーンへマージされるのだ", func(t *testing.T) {
		if err := st.GenerateScript(ctx); err != nil {
			t.Fatalf("台本生成でエラーが発生しました: %v", err)
		}
		sess := st.Session()
		if sess.Stage != domain.StageScripting {
			t.Fatalf("工程が SCRIPTING になっていないのだ: %s", sess.Stage)
		}
		for i, s := range sess.Scenes {
			if s.Narration == "" {
				t.Errorf("シーン %d にナレーションがないのだ", i)
			}
			if len(s.Dialogues) == 0 {
				t.Errorf("シーン %d にセリフがないのだ", i)
			}
		}
	})

	t.Run("パネル構成はシーン数+2で全て未着手なのだ", func(t *testing.T) {
		if err := st.ProceedToPanelGeneration(); err != nil {
			t.Fatalf("パネル工程への遷移でエラーが発生しました: %v", err)
		}
		sess := st.Session()
		if sess.Stage != domain.StagePanelGeneration {
			t.Fatalf("工程が PANEL_GENERATION になっていないのだ: %s", sess.Stage)
		}
		if len(sess.Panels) != 7 {
			t.Fatalf("パネル数が違うのだ: %d", len(sess.Panels))
		}
		if sess.Panels[0].Type != domain.PanelCover || sess.Panels[6].Type != domain.PanelBack {
			t.Error("ブックエンドの配置が正しくないのだ")
		}
	})

	t.Run("未完成パネルが残っていると完成できないのだ", func(t *testing.T) {
		err := st.ProceedToComic()
		var guard *GuardViolation
		if !errors.As(err, &guard) {
			t.Fatalf("GuardViolation ではないエラーが返りました: %v", err)
		}
	})

	t.Run("全パネル完成でコミックが仕上がるのだ", func(t *testing.T) {
		if err := st.GenerateAllPanels(ctx); err != nil {
			t.Fatalf("パネル一括生成でエラーが発生しました: %v", err)
		}
		sess := st.Session()
		for i, p := range sess.Panels {
			if p.Status != domain.StatusDone {
				t.Fatalf("パネル %d が完了していないのだ: %s", i, p.Status)
			}
		}
		if err := st.ProceedToComic(); err != nil {
			t.Fatalf("完成遷移でエラーが発生しました: %v", err)
		}
		if st.Session().Stage != domain.StageComic {
			t.Error("工程が COMIC になっていないのだ")
		}
	})
}

func TestStudio_GenerateStoryline_Validation(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGateway()
	st := newTestStudio(fake)

	t.Run("空のプロンプトはゲートウェイに触れず拒否されるのだ", func(t *testing.T) {
		st.SetPrompt("   ")
		err := st.GenerateStoryline(ctx)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidationError ではないエラーが返りました: %v", err)
		}
		if fake.totalCalls() != 0 {
			t.Errorf("検証失敗なのにゲートウェイが呼ばれました: %d回", fake.totalCalls())
		}
		if st.LastError() == "" {
			t.Error("失敗がセッションに表面化していないのだ")
		}
	})

	t.Run("生成失敗では工程が動かず、リトライで成功できるのだ", func(t *testing.T) {
		fail := true
		fake.storylineFn = func(seed string) ([]domain.SceneDraft, error) {
			if fail {
				return nil, &gateway.GenerationError{Op: "GenerateStoryline", Message: "provider unavailable"}
			}
			return []domain.SceneDraft{{Title: "t", Description: "d"}}, nil
		}

		st.SetPrompt("猫の冒険")
		if err := st.GenerateStoryline(ctx); err == nil {
			t.Fatal("生成失敗がエラーとして返りませんでした")
		}
		if st.Session().Stage != domain.StagePrompt {
			t.Fatal("失敗したのに工程が進んでしまったのだ")
		}
		if st.LastError() == "" {
			t.Error("失敗メッセージが記録されていないのだ")
		}

		fail = false
		if err := st.GenerateStoryline(ctx); err != nil {
			t.Fatalf("リトライが成功しませんでした: %v", err)
		}
		if st.LastError() != "" {
			t.Error("成功後も古い失敗メッセージが残っているのだ")
		}
	})
}

func TestStudio_ScriptMergeDefaults(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGateway()
	// scene-1 だけ応答から欠けるのだ
	fake.scriptFn = func(scenes []domain.Scene, names []string) (map[string]domain.SceneScript, error) {
		return map[string]domain.SceneScript{
			"scene-0": {Narration: "第一幕", Dialogues: []domain.Dialogue{{CharacterName: "Alice", Line: "やあ"}}},
		}, nil
	}
	st := newTestStudio(fake)
	st.sess.Stage = domain.StageCharacters
	st.sess.Scenes = []domain.Scene{
		{ID: "scene-0", Title: "a", Description: "x"},
		{ID: "scene-1", Title: "b", Description: "y"},
	}
	st.sess.Characters = []domain.Character{
		{ID: "char-0", Name: "Alice", Image: pngArtifact("p"), Status: domain.StatusDone},
	}

	if err := st.GenerateScript(ctx); err != nil {
		t.Fatalf("台本生成でエラーが発生しました: %v", err)
	}

	sess := st.Session()
	if sess.Scenes[0].Narration != "第一幕" {
		t.Errorf("応答のあるシーンへのマージが違うのだ: %s", sess.Scenes[0].Narration)
	}
	if sess.Scenes[1].Narration != "..." {
		t.Errorf("欠けたシーンがデフォルトで埋まっていないのだ: %q", sess.Scenes[1].Narration)
	}
	if sess.Scenes[1].Dialogues == nil || len(sess.Scenes[1].Dialogues) != 0 {
		t.Errorf("欠けたシーンのセリフが空スライスになっていないのだ: %+v", sess.Scenes[1].Dialogues)
	}
}

func TestStudio_CharacterOperations(t *testing.T) {
	ctx := context.Background()

	setup := func(fake *fakeGateway) *Studio {
		st := newTestStudio(fake)
		st.sess.Stage = domain.StageCharacters
		st.sess.Characters = []domain.Character{
			{ID: "char-0", Name: "Alice", Description: "赤い髪の冒険者", Status: domain.StatusNotStarted},
		}
		return st
	}

	t.Run("初回生成の失敗は FAILED になり、リトライで回復するのだ", func(t *testing.T) {
		fake := newFakeGateway()
		fail := true
		fake.imageFn = func(prompt, model string) (*domain.Artifact, error) {
			if fail {
				return nil, &gateway.GenerationError{Op: "GenerateImage", Message: "quota exceeded"}
			}
			return pngArtifact("portrait"), nil
		}
		st := setup(fake)

		if err := st.GenerateCharacterImage(ctx, 0); err == nil {
			t.Fatal("生成失敗がエラーとして返りませんでした")
		}
		if got := st.Session().Characters[0].Status; got != domain.StatusFailed {
			t.Fatalf("初回失敗の状態が FAILED ではないのだ: %s", got)
		}

		fail = false
		if err := st.GenerateCharacterImage(ctx, 0); err != nil {
			t.Fatalf("リトライが成功しませんでした: %v", err)
		}
		c := st.Session().Characters[0]
		if c.Status != domain.StatusDone || !c.HasImage() {
			t.Errorf("リトライ後の状態が正しくないのだ: %+v", c)
		}
	})

	t.Run("画像の更新失敗では既存ポートレートが保たれるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		fake.editFn = func(image domain.Artifact, instruction string) (*domain.Artifact, error) {
			return nil, &gateway.GenerationError{Op: "EditImage", Message: "no image part"}
		}
		st := setup(fake)
		st.sess.Characters[0].Image = pngArtifact("original")
		st.sess.Characters[0].Status = domain.StatusDone

		if err := st.UpdateCharacterImage(ctx, 0); err == nil {
			t.Fatal("更新失敗がエラーとして返りませんでした")
		}
		c := st.Session().Characters[0]
		if string(c.Image.Data) != "original" {
			t.Error("失敗時に既存ポートレートが壊れたのだ")
		}
		if c.Status != domain.StatusDone {
			t.Errorf("画像が残っているのに状態が DONE に戻っていないのだ: %s", c.Status)
		}
	})

	t.Run("画像のない更新は即座に拒否されるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)
		err := st.UpdateCharacterImage(ctx, 0)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidationError ではないエラーが返りました: %v", err)
		}
		if fake.totalCalls() != 0 {
			t.Error("検証失敗なのにゲートウェイが呼ばれました")
		}
	})

	t.Run("範囲外のインデックスは拒否されるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)
		if err := st.GenerateCharacterImage(ctx, 5); err == nil {
			t.Error("範囲外の操作がエラーになりませんでした")
		}
	})
}

func TestStudio_TweakCharacter(t *testing.T) {
	ctx := context.Background()

	setup := func(fake *fakeGateway) *Studio {
		st := newTestStudio(fake)
		st.sess.Stage = domain.StageCharacters
		st.sess.Characters = []domain.Character{
			{ID: "char-0", Name: "Alice", Description: "赤い髪の冒険者", Image: pngArtifact("before"), Status: domain.StatusDone},
		}
		return st
	}

	t.Run("空の指示はゲートウェイに触れず拒否されるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)
		err := st.TweakCharacter(ctx, 0, "   ")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidationError ではないエラーが返りました: %v", err)
		}
		if fake.totalCalls() != 0 {
			t.Errorf("空の指示なのにゲートウェイが呼ばれました: %d回", fake.totalCalls())
		}
	})

	t.Run("2段階（書き直し→描き直し）が成功すると両方が更新されるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		fake.rewriteFn = func(current, command string) (string, error) {
			return "青い髪の冒険者", nil
		}
		st := setup(fake)

		if err := st.TweakCharacter(ctx, 0, "髪を青くして"); err != nil {
			t.Fatalf("調整でエラーが発生しました: %v", err)
		}
		c := st.Session().Characters[0]
		if c.Description != "青い髪の冒険者" {
			t.Errorf("説明文が書き直されていないのだ: %s", c.Description)
		}
		if string(c.Image.Data) != "edited" {
			t.Error("画像が描き直されていないのだ")
		}
	})

	t.Run("2段階目の失敗でも新しい説明文は残り、画像は元のままなのだ", func(t *testing.T) {
		fake := newFakeGateway()
		fake.rewriteFn = func(current, command string) (string, error) {
			return "青い髪の冒険者", nil
		}
		fake.editFn = func(image domain.Artifact, instruction string) (*domain.Artifact, error) {
			return nil, &gateway.GenerationError{Op: "EditImage", Message: "no image part"}
		}
		st := setup(fake)

		if err := st.TweakCharacter(ctx, 0, "髪を青くして"); err == nil {
			t.Fatal("2段階目の失敗がエラーとして返りませんでした")
		}
		c := st.Session().Characters[0]
		if c.Description != "青い髪の冒険者" {
			t.Errorf("失敗しても説明文は更新されるはずなのだ: %s", c.Description)
		}
		if string(c.Image.Data) != "before" {
			t.Error("失敗時に画像が変わってしまったのだ")
		}
		if c.Status != domain.StatusDone {
			t.Errorf("画像が残っているので再操作可能なはずなのだ: %s", c.Status)
		}
	})
}

func TestStudio_PanelOperations(t *testing.T) {
	ctx := context.Background()

	setup := func(fake *fakeGateway) *Studio {
		st := newTestStudio(fake)
		st.sess.Stage = domain.StagePanelGeneration
		st.sess.Title = "宇宙猫"
		st.sess.Characters = []domain.Character{
			{ID: "char-0", Name: "Alice", Image: pngArtifact("alice"), Status: domain.StatusDone},
			{ID: "char-1", Name: "Bob", Image: pngArtifact("bob"), Status: domain.StatusDone},
		}
		scenes := []domain.Scene{
			{ID: "scene-0", Title: "出発", Description: "Aliceが旅立つ", Narration: "旅の始まり"},
		}
		st.sess.Scenes = scenes
		st.sess.Panels = domain.SynthesizePanels(st.sess.Title, scenes)
		return st
	}

	t.Run("シーンパネルは背景を保持し、表紙は保持しないのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)

		if err := st.GeneratePanel(ctx, 0); err != nil {
			t.Fatalf("表紙生成でエラーが発生しました: %v", err)
		}
		if err := st.GeneratePanel(ctx, 1); err != nil {
			t.Fatalf("シーンパネル生成でエラーが発生しました: %v", err)
		}

		sess := st.Session()
		if sess.Panels[0].Background != nil {
			t.Error("表紙が背景を保持してしまったのだ")
		}
		if sess.Panels[1].Background.Empty() {
			t.Error("シーンパネルが背景を保持していないのだ")
		}
		if sess.Panels[1].Status != domain.StatusDone {
			t.Errorf("シーンパネルが完了していないのだ: %s", sess.Panels[1].Status)
		}
	})

	t.Run("登場分析の失敗は致命傷にならず全員で合成するのだ", func(t *testing.T) {
		fake := newFakeGateway()
		fake.analyzeFn = func(scene domain.Scene, names []string) ([]string, error) {
			return nil, &gateway.GenerationError{Op: "AnalyzeSceneCharacters", Message: "parse failure"}
		}
		var compositedImages int
		fake.compositeFn = func(images []domain.Artifact, instruction string) (*domain.Artifact, error) {
			compositedImages = len(images)
			return pngArtifact("composited"), nil
		}
		st := setup(fake)

		if err := st.GeneratePanel(ctx, 1); err != nil {
			t.Fatalf("分析失敗でパネル生成まで失敗したのだ: %v", err)
		}
		// 背景1枚 + 全キャラクター2人
		if compositedImages != 3 {
			t.Errorf("全員での合成になっていないのだ: %d枚", compositedImages)
		}
	})

	t.Run("パネルの失敗は該当パネルだけが FAILED になるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		fake.imageFn = func(prompt, model string) (*domain.Artifact, error) {
			return nil, &gateway.GenerationError{Op: "GenerateImage", Message: "quota exceeded"}
		}
		st := setup(fake)

		if err := st.GeneratePanel(ctx, 1); err == nil {
			t.Fatal("生成失敗がエラーとして返りませんでした")
		}
		sess := st.Session()
		if sess.Panels[1].Status != domain.StatusFailed {
			t.Errorf("失敗パネルが FAILED ではないのだ: %s", sess.Panels[1].Status)
		}
		if sess.Panels[0].Status != domain.StatusNotStarted {
			t.Error("失敗が他パネルへ波及したのだ")
		}
	})

	t.Run("一括生成は完了済みを飛ばして残りを仕上げるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)
		if err := st.GeneratePanel(ctx, 1); err != nil {
			t.Fatalf("事前生成でエラーが発生しました: %v", err)
		}
		before := fake.totalCalls()

		if err := st.GenerateAllPanels(ctx); err != nil {
			t.Fatalf("一括生成でエラーが発生しました: %v", err)
		}
		sess := st.Session()
		for i, p := range sess.Panels {
			if p.Status != domain.StatusDone {
				t.Errorf("パネル %d が完了していないのだ: %s", i, p.Status)
			}
		}
		if fake.totalCalls() == before {
			t.Error("残りのパネルが生成されていないのだ")
		}
	})

	t.Run("裏表紙は最初のキャラクターを主役に合成するのだ", func(t *testing.T) {
		fake := newFakeGateway()
		var sawImages int
		fake.compositeFn = func(images []domain.Artifact, instruction string) (*domain.Artifact, error) {
			sawImages = len(images)
			return pngArtifact("back"), nil
		}
		st := setup(fake)

		if err := st.GeneratePanel(ctx, 2); err != nil {
			t.Fatalf("裏表紙生成でエラーが発生しました: %v", err)
		}
		if sawImages != 1 {
			t.Errorf("裏表紙の合成入力が1枚ではないのだ: %d枚", sawImages)
		}
	})

	t.Run("ポートレートが1人もいない裏表紙は文字のみ生成になるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)
		st.sess.Characters = nil

		if err := st.GeneratePanel(ctx, 2); err != nil {
			t.Fatalf("裏表紙生成でエラーが発生しました: %v", err)
		}
		fake.mu.Lock()
		defer fake.mu.Unlock()
		if fake.calls["image"] != 1 || fake.calls["composite"] != 0 {
			t.Errorf("文字のみ生成の経路が使われていないのだ: %+v", fake.calls)
		}
	})
}

func TestStudio_UpdatePanelFromText(t *testing.T) {
	ctx := context.Background()

	setup := func(fake *fakeGateway) *Studio {
		st := newTestStudio(fake)
		st.sess.Stage = domain.StagePanelGeneration
		st.sess.Title = "宇宙猫"
		st.sess.Characters = []domain.Character{
			{ID: "char-0", Name: "Alice", Image: pngArtifact("alice"), Status: domain.StatusDone},
		}
		scenes := []domain.Scene{
			{ID: "scene-0", Title: "出発", Description: "Aliceが旅立つ", Narration: "旅の始まり"},
		}
		st.sess.Scenes = scenes
		st.sess.Panels = domain.SynthesizePanels(st.sess.Title, scenes)
		return st
	}

	t.Run("保持済みの背景で再合成され、背景は作り直されないのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)
		if err := st.GeneratePanel(ctx, 1); err != nil {
			t.Fatalf("事前生成でエラーが発生しました: %v", err)
		}
		fake.mu.Lock()
		imageCallsBefore := fake.calls["image"]
		fake.mu.Unlock()

		// 台本を編集してから再反映するのだ
		if err := st.SetSceneNarration(0, "新しい旅の始まり"); err != nil {
			t.Fatalf("ナレーション編集でエラーが発生しました: %v", err)
		}
		var instruction string
		fake.compositeFn = func(images []domain.Artifact, instr string) (*domain.Artifact, error) {
			instruction = instr
			return pngArtifact("recomposited"), nil
		}

		if err := st.UpdatePanelFromText(ctx, 1); err != nil {
			t.Fatalf("テキスト再反映でエラーが発生しました: %v", err)
		}

		fake.mu.Lock()
		imageCallsAfter := fake.calls["image"]
		fake.mu.Unlock()
		if imageCallsAfter != imageCallsBefore {
			t.Error("再反映で背景が作り直されてしまったのだ")
		}
		if !strings.Contains(instruction, "新しい旅の始まり") {
			t.Error("編集後の台本が合成指示に反映されていないのだ")
		}
		if string(st.Session().Panels[1].FinalImage.Data) != "recomposited" {
			t.Error("最終画像が差し替わっていないのだ")
		}
	})

	t.Run("表紙パネルへの再反映は拒否されるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)
		err := st.UpdatePanelFromText(ctx, 0)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidationError ではないエラーが返りました: %v", err)
		}
	})

	t.Run("背景未保持のシーンパネルへの再反映は拒否されるのだ", func(t *testing.T) {
		fake := newFakeGateway()
		st := setup(fake)
		err := st.UpdatePanelFromText(ctx, 1)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidationError ではないエラーが返りました: %v", err)
		}
		if fake.totalCalls() != 0 {
			t.Error("検証失敗なのにゲートウェイが呼ばれました")
		}
	})
}

func TestStudio_TweakPanel(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGateway()
	st := newTestStudio(fake)
	st.sess.Stage = domain.StagePanelGeneration
	scenes := []domain.Scene{{ID: "scene-0", Title: "出発", Description: "d"}}
	st.sess.Panels = domain.SynthesizePanels("t", scenes)

	t.Run("空の指示はゲートウェイに触れず拒否されるのだ", func(t *testing.T) {
		err := st.TweakPanel(ctx, 1, "")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidationError ではないエラーが返りました: %v", err)
		}
		if fake.totalCalls() != 0 {
			t.Error("空の指示なのにゲートウェイが呼ばれました")
		}
	})

	t.Run("最終画像のないパネルは調整できないのだ", func(t *testing.T) {
		err := st.TweakPanel(ctx, 1, "空を夕焼けにして")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidationError ではないエラーが返りました: %v", err)
		}
	})

	t.Run("完成済みパネルは1回の編集呼び出しで差し替わるのだ", func(t *testing.T) {
		st.sess.Panels[1].FinalImage = pngArtifact("final")
		st.sess.Panels[1].Status = domain.StatusDone

		if err := st.TweakPanel(ctx, 1, "空を夕焼けにして"); err != nil {
			t.Fatalf("調整でエラーが発生しました: %v", err)
		}
		fake.mu.Lock()
		defer fake.mu.Unlock()
		if fake.calls["edit"] != 1 {
			t.Errorf("編集呼び出しが1回ではないのだ: %d回", fake.calls["edit"])
		}
		if string(st.sess.Panels[1].FinalImage.Data) != "edited" {
			t.Error("最終画像が差し替わっていないのだ")
		}
	})
}

func TestStudio_EditsAndModel(t *testing.T) {
	fake := newFakeGateway()
	st := newTestStudio(fake)
	st.sess.Scenes = []domain.Scene{{ID: "scene-0", Title: "t", Description: "d"}}
	st.sess.Characters = []domain.Character{{ID: "char-0", Name: "Alice", Description: "old"}}

	t.Run("シーンとキャラクターの編集はIDを変えないのだ", func(t *testing.T) {
		if err := st.SetSceneDescription(0, "new description"); err != nil {
			t.Fatalf("シーン編集でエラーが発生しました: %v", err)
		}
		if err := st.SetCharacterDescription(0, "new look"); err != nil {
			t.Fatalf("キャラクター編集でエラーが発生しました: %v", err)
		}
		sess := st.Session()
		if sess.Scenes[0].ID != "scene-0" || sess.Scenes[0].Description != "new description" {
			t.Errorf("シーン編集の結果が正しくないのだ: %+v", sess.Scenes[0])
		}
		if sess.Characters[0].ID != "char-0" || sess.Characters[0].Name != "Alice" {
			t.Error("キャラクター編集で名前かIDが変わってしまったのだ")
		}
	})

	t.Run("範囲外の編集は拒否されるのだ", func(t *testing.T) {
		if err := st.SetSceneDescription(9, "x"); err == nil {
			t.Error("範囲外のシーン編集がエラーになりませんでした")
		}
		if err := st.SetDialogueLine(0, 9, "x"); err == nil {
			t.Error("範囲外のセリフ編集がエラーになりませんでした")
		}
	})

	t.Run("画像モデルは選択肢の中からだけ選べるのだ", func(t *testing.T) {
		if err := st.SelectImageModel("imagen-3.0-generate-002"); err != nil {
			t.Fatalf("モデル選択でエラーが発生しました: %v", err)
		}
		if st.Session().ImageModel != "imagen-3.0-generate-002" {
			t.Error("選択したモデルが反映されていないのだ")
		}
		if err := st.SelectImageModel("dall-e-3"); err == nil {
			t.Error("選択肢にないモデルが受理されてしまったのだ")
		}
	})

	t.Run("リセットで新しいセッションIDが振られ、モデル選択は残るのだ", func(t *testing.T) {
		oldID := st.Session().ID
		st.Reset()
		sess := st.Session()
		if sess.ID == oldID {
			t.Error("セッションIDが変わっていないのだ")
		}
		if sess.Stage != domain.StagePrompt || sess.Scenes != nil {
			t.Error("リセット後の状態が初期状態ではないのだ")
		}
		if sess.ImageModel != "imagen-3.0-generate-002" {
			t.Error("モデル選択がリセットで失われたのだ")
		}
	})
}
