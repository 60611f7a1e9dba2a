package session

import (
	"context"
	"log/slog"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// 台本が欠けたシーンに与えるデフォルトのナレーションなのだ。
// モデルの応答が一部のシーンを取りこぼしても工程全体は失敗させず、この値で埋めるのだ。
const defaultNarration = "..."

// beginStageOpLocked は工程遷移系操作の開始を検証するのだ。
// 期待する工程にいなければ GuardViolation、別の遷移が実行中なら拒否なのだ。
func (st *Studio) beginStageOpLocked(want domain.Stage, action string) error {
	if st.sess.Stage != want {
		err := &GuardViolation{From: st.sess.Stage, Message: action + " is only available in " + want.String()}
		st.sess.LastError = err.Message
		return err
	}
	if st.stageBusy {
		err := validationf("another stage operation is already running")
		st.sess.LastError = err.Message
		return err
	}
	return nil
}

// GenerateStoryline は PROMPT → STORYLINE の遷移です。
// 空でないプロンプトを検証してからストーリーラインを生成し、
// 成功時にシーン列を確定してプロンプトをタイトルに写します。
func (st *Studio) GenerateStoryline(ctx context.Context) error {
	st.mu.Lock()
	st.clearFailureLocked()
	if err := st.beginStageOpLocked(domain.StagePrompt, "storyline generation"); err != nil {
		st.mu.Unlock()
		return err
	}
	prompt := trimmed(st.sess.Prompt)
	if prompt == "" {
		err := &ValidationError{Message: "Please enter a prompt for your comic."}
		st.sess.LastError = err.Message
		st.mu.Unlock()
		return err
	}
	st.stageBusy = true
	st.mu.Unlock()

	drafts, genErr := st.gw.GenerateStoryline(ctx, prompt)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.stageBusy = false
	if genErr != nil {
		st.sess.LastError = genErr.Error()
		return genErr
	}

	scenes := make([]domain.Scene, len(drafts))
	for i, d := range drafts {
		scenes[i] = domain.Scene{
			ID:          domain.SceneID(i),
			Title:       d.Title,
			Description: d.Description,
		}
	}
	st.sess.Scenes = scenes
	st.sess.Title = prompt
	st.sess.Stage = domain.StageStoryline
	slog.Info("ストーリーラインが確定したのだ", "session", st.sess.ID, "scenes", len(scenes))
	return nil
}

// FinalizeStoryline は STORYLINE → CHARACTERS の遷移です。
// 現在のシーン列から主要キャラクターを設計し、安定IDを割り当てます。
func (st *Studio) FinalizeStoryline(ctx context.Context) error {
	st.mu.Lock()
	st.clearFailureLocked()
	if err := st.beginStageOpLocked(domain.StageStoryline, "character design"); err != nil {
		st.mu.Unlock()
		return err
	}
	if len(st.sess.Scenes) == 0 {
		err := &GuardViolation{From: st.sess.Stage, Message: "storyline has no scenes"}
		st.sess.LastError = err.Message
		st.mu.Unlock()
		return err
	}
	st.stageBusy = true
	scenes := make([]domain.Scene, len(st.sess.Scenes))
	for i, s := range st.sess.Scenes {
		scenes[i] = s.Clone()
	}
	st.mu.Unlock()

	drafts, genErr := st.gw.GenerateCharacters(ctx, scenes)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.stageBusy = false
	if genErr != nil {
		st.sess.LastError = genErr.Error()
		return genErr
	}

	characters := make([]domain.Character, len(drafts))
	for i, d := range drafts {
		characters[i] = domain.Character{
			ID:          domain.CharacterID(i),
			Name:        d.Name,
			Description: d.Description,
			Status:      domain.StatusNotStarted,
		}
	}
	st.sess.Characters = characters
	st.sess.Stage = domain.StageCharacters
	slog.Info("キャラクターが確定したのだ", "session", st.sess.ID, "characters", len(characters))
	return nil
}

// GenerateScript は CHARACTERS → SCRIPTING の遷移です。
// 全キャラクターのポートレートが揃っていることがガード条件で、
// 成功時に各シーンへナレーションとセリフをマージします。
// 応答に含まれなかったシーンはデフォルト値のまま進みます。
func (st *Studio) GenerateScript(ctx context.Context) error {
	st.mu.Lock()
	st.clearFailureLocked()
	if err := st.beginStageOpLocked(domain.StageCharacters, "script writing"); err != nil {
		st.mu.Unlock()
		return err
	}
	if !st.sess.AllCharacterImagesReady() {
		err := &GuardViolation{From: st.sess.Stage, Message: "Please generate an image for all characters before writing the script."}
		st.sess.LastError = err.Message
		st.mu.Unlock()
		return err
	}
	st.stageBusy = true
	scenes := make([]domain.Scene, len(st.sess.Scenes))
	for i, s := range st.sess.Scenes {
		scenes[i] = s.Clone()
	}
	names := st.characterNamesLocked()
	st.mu.Unlock()

	scripts, genErr := st.gw.GenerateScript(ctx, scenes, names)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.stageBusy = false
	if genErr != nil {
		st.sess.LastError = genErr.Error()
		return genErr
	}

	merged := make([]domain.Scene, len(st.sess.Scenes))
	for i, scene := range st.sess.Scenes {
		res := scene.Clone()
		script, ok := scripts[scene.ID]
		if ok && script.Narration != "" {
			res.Narration = script.Narration
		} else {
			res.Narration = defaultNarration
		}
		if ok && script.Dialogues != nil {
			res.Dialogues = script.Dialogues
		} else {
			res.Dialogues = []domain.Dialogue{}
		}
		merged[i] = res
	}
	st.sess.Scenes = merged
	st.sess.Stage = domain.StageScripting
	slog.Info("台本が確定したのだ", "session", st.sess.ID)
	return nil
}

// ProceedToPanelGeneration は SCRIPTING → PANEL_GENERATION の遷移です。無条件に通ります。
// シーン列と固定ブックエンドからパネル列を導出し、全パネルを NOT_STARTED で初期化します。
func (st *Studio) ProceedToPanelGeneration() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.clearFailureLocked()
	if err := st.beginStageOpLocked(domain.StageScripting, "panel generation"); err != nil {
		return err
	}
	st.sess.Panels = domain.SynthesizePanels(st.sess.Title, st.sess.Scenes)
	st.sess.Stage = domain.StagePanelGeneration
	slog.Info("パネル構成を導出したのだ", "session", st.sess.ID, "panels", len(st.sess.Panels))
	return nil
}

// ProceedToComic は PANEL_GENERATION → COMIC の遷移です。
// 全パネルが DONE に到達していることがガード条件です。
func (st *Studio) ProceedToComic() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.clearFailureLocked()
	if st.sess.Stage != domain.StagePanelGeneration {
		err := &GuardViolation{From: st.sess.Stage, Message: "comic assembly is only available in PANEL_GENERATION"}
		st.sess.LastError = err.Message
		return err
	}
	if !st.sess.AllPanelsDone() {
		err := &GuardViolation{From: st.sess.Stage, Message: "all panels must be DONE before assembling the comic"}
		st.sess.LastError = err.Message
		return err
	}
	st.sess.Stage = domain.StageComic
	slog.Info("コミックが完成したのだ！", "session", st.sess.ID, "panels", len(st.sess.Panels))
	return nil
}
