package session

import (
	"context"
	"log/slog"

	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/prompts"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// panelInputs はパネル生成に必要な入力のスナップショットなのだ。
// ロックを手放す前にすべて写し取り、ゲートウェイ呼び出し中のセッション変更と切り離すのだ。
type panelInputs struct {
	panelType domain.PanelType
	scene     domain.Scene
	title     string
	model     string
	roster    []domain.Character // ポートレート生成済みのキャラクターのみ
}

// beginPanelOpLocked はパネル操作の共通検証なのだ。
func (st *Studio) beginPanelOpLocked(index int) (domain.Panel, error) {
	if st.sess.Stage != domain.StagePanelGeneration {
		err := &GuardViolation{From: st.sess.Stage, Message: "panel operations are only available in PANEL_GENERATION"}
		st.sess.LastError = err.Message
		return domain.Panel{}, err
	}
	if index < 0 || index >= len(st.sess.Panels) {
		err := validationf("panel index %d out of range", index)
		st.sess.LastError = err.Message
		return domain.Panel{}, err
	}
	panel := st.sess.Panels[index]
	if panel.Status.Busy() {
		st.sess.LastError = domain.ErrItemBusy.Error()
		return domain.Panel{}, domain.ErrItemBusy
	}
	return panel, nil
}

// snapshotPanelInputsLocked は対象パネルの生成入力を写し取るのだ。
// SCENE パネルの台本はセッション側の最新シーンを参照する（生成後の編集を反映するため）。
func (st *Studio) snapshotPanelInputsLocked(panel domain.Panel) panelInputs {
	in := panelInputs{
		panelType: panel.Type,
		scene:     panel.Scene.Clone(),
		title:     st.sess.Title,
		model:     st.sess.ImageModel,
		roster:    st.charactersWithImagesLocked(),
	}
	if panel.Type == domain.PanelScene {
		for _, s := range st.sess.Scenes {
			if s.ID == panel.Scene.ID {
				in.scene = s.Clone()
				break
			}
		}
	}
	return in
}

// finishPanelOp は操作結果をパネル単位の差し替えで反映するのだ。
// 失敗は該当パネルを FAILED にしてエラーを表面化するだけで、既存の成果物は壊さず、
// 兄弟パネルの実行中の操作にも影響しないのだ。
func (st *Studio) finishPanelOp(index int, final, background *domain.Artifact, opErr error) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if index < 0 || index >= len(st.sess.Panels) {
		return opErr
	}

	panel := st.sess.Panels[index]
	if opErr != nil {
		panel.Status = domain.StatusFailed
		st.sess.Panels[index] = panel
		st.sess.LastError = opErr.Error()
		return opErr
	}

	panel.FinalImage = final
	if background != nil {
		panel.Background = background
	}
	panel.Status = domain.StatusDone
	st.sess.Panels[index] = panel
	return nil
}

// GeneratePanel は1枚のパネルをフル生成します。パネル種別ごとに経路が分かれます。
//   - COVER: 表紙背景の生成 → 全キャラクターを載せてタイトル入りで合成
//   - SCENE: シーン背景の生成（人物なし） → 登場キャラクターと台本テキストで合成。
//     背景は後の「テキスト再反映」で再利用するため保持します
//   - BACK:  画像のあるキャラクターがいれば主役に据えた合成、いなければ文字のみの生成
//
// どの経路の失敗もこのパネルを FAILED にするだけで、他パネルには波及しません。
func (st *Studio) GeneratePanel(ctx context.Context, index int) error {
	st.mu.Lock()
	st.clearFailureLocked()
	panel, err := st.beginPanelOpLocked(index)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	next, err := panel.Status.BeginGenerate()
	if err != nil {
		st.sess.LastError = err.Error()
		st.mu.Unlock()
		return err
	}
	panel.Status = next
	st.sess.Panels[index] = panel
	in := st.snapshotPanelInputsLocked(panel)
	st.mu.Unlock()

	var final, background *domain.Artifact
	var genErr error
	switch in.panelType {
	case domain.PanelCover:
		final, genErr = st.generateCover(ctx, in)
	case domain.PanelScene:
		final, background, genErr = st.generateScenePanel(ctx, in)
	case domain.PanelBack:
		final, genErr = st.generateBackCover(ctx, in)
	}
	return st.finishPanelOp(index, final, background, genErr)
}

// generateCover は表紙を背景生成と合成の2段階で作るのだ。背景は保持しないのだ。
func (st *Studio) generateCover(ctx context.Context, in panelInputs) (*domain.Artifact, error) {
	background, err := st.gw.GenerateImage(ctx, prompts.CoverBackground(), in.model)
	if err != nil {
		return nil, err
	}

	images := make([]domain.Artifact, 0, len(in.roster)+1)
	images = append(images, *background)
	for _, c := range in.roster {
		images = append(images, *c.Image)
	}
	return st.gw.CompositeImage(ctx, images, prompts.CoverComposite(in.title))
}

// generateScenePanel はシーンパネルを作るのだ。背景は意図的にキャラクターなしで生成し、
// 合成段階でポートレートと台本テキストを載せるのだ。
func (st *Studio) generateScenePanel(ctx context.Context, in panelInputs) (*domain.Artifact, *domain.Artifact, error) {
	background, err := st.gw.GenerateImage(ctx, prompts.SceneBackground(in.scene), in.model)
	if err != nil {
		return nil, nil, err
	}

	final, err := st.compositeScene(ctx, in.scene, *background, in.roster)
	if err != nil {
		return nil, nil, err
	}
	return final, background, nil
}

// compositeScene は背景・登場キャラクター・台本テキストからパネルを合成するのだ。
// どのキャラクターが登場するかは描写分析で絞り込むが、分析自体の失敗は致命傷に
// しない。全員を候補に落として合成を続行するのだ。
func (st *Studio) compositeScene(ctx context.Context, scene domain.Scene, background domain.Artifact, roster []domain.Character) (*domain.Artifact, error) {
	names := make([]string, 0, len(roster))
	for _, c := range roster {
		names = append(names, c.Name)
	}

	presentNames, err := st.gw.AnalyzeSceneCharacters(ctx, scene, names)
	if err != nil {
		slog.Warn("登場キャラクター分析に失敗したので全員で合成するのだ", "scene", scene.ID, "error", err)
		presentNames = names
	}

	present := make([]domain.Character, 0, len(roster))
	for _, c := range roster {
		for _, name := range presentNames {
			if c.Name == name {
				present = append(present, c)
				break
			}
		}
	}

	images := make([]domain.Artifact, 0, len(present)+1)
	images = append(images, background)
	selected := make([]string, 0, len(present))
	for _, c := range present {
		images = append(images, *c.Image)
		selected = append(selected, c.Name)
	}
	return st.gw.CompositeImage(ctx, images, prompts.PanelComposite(scene, selected))
}

// generateBackCover は裏表紙を作るのだ。背景段階は持たないのだ。
func (st *Studio) generateBackCover(ctx context.Context, in panelInputs) (*domain.Artifact, error) {
	if len(in.roster) > 0 {
		return st.gw.CompositeImage(ctx, []domain.Artifact{*in.roster[0].Image}, prompts.BackCover())
	}
	return st.gw.GenerateImage(ctx, prompts.BackCoverTextOnly(), in.model)
}

// UpdatePanelFromText は編集済みの台本テキストを既存のシーンパネルへ再反映します。
// 保持しておいた背景に対して再合成するだけで、背景自体は作り直しません。
// SCENE 以外のパネルや背景未保持のパネルには適用できません。
func (st *Studio) UpdatePanelFromText(ctx context.Context, index int) error {
	st.mu.Lock()
	st.clearFailureLocked()
	panel, err := st.beginPanelOpLocked(index)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	if panel.Type != domain.PanelScene {
		verr := &ValidationError{Message: "only scene panels can be updated from text"}
		st.sess.LastError = verr.Message
		st.mu.Unlock()
		return verr
	}
	if panel.Background.Empty() {
		verr := &ValidationError{Message: "panel has no retained background; generate it first"}
		st.sess.LastError = verr.Message
		st.mu.Unlock()
		return verr
	}
	next, err := panel.Status.BeginUpdate()
	if err != nil {
		st.sess.LastError = err.Error()
		st.mu.Unlock()
		return err
	}
	panel.Status = next
	st.sess.Panels[index] = panel
	in := st.snapshotPanelInputsLocked(panel)
	background := *panel.Background.Clone()
	st.mu.Unlock()

	final, genErr := st.compositeScene(ctx, in.scene, background, in.roster)
	return st.finishPanelOp(index, final, nil, genErr)
}

// TweakPanel は自然言語の修正指示を既存パネル画像へ1回の編集呼び出しで適用します。
// 指示が空・最終画像なしの場合は即座に ValidationError で、ゲートウェイには触れません。
func (st *Studio) TweakPanel(ctx context.Context, index int, command string) error {
	if trimmed(command) == "" {
		verr := &ValidationError{Message: "Please enter a tweak command."}
		st.recordFailure(verr)
		return verr
	}

	st.mu.Lock()
	st.clearFailureLocked()
	panel, err := st.beginPanelOpLocked(index)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	if panel.FinalImage.Empty() {
		verr := &ValidationError{Message: "panel has no image to tweak yet"}
		st.sess.LastError = verr.Message
		st.mu.Unlock()
		return verr
	}
	next, err := panel.Status.BeginUpdate()
	if err != nil {
		st.sess.LastError = err.Error()
		st.mu.Unlock()
		return err
	}
	panel.Status = next
	st.sess.Panels[index] = panel
	source := *panel.FinalImage.Clone()
	st.mu.Unlock()

	final, genErr := st.gw.EditImage(ctx, source, prompts.TweakPanel(command))
	return st.finishPanelOp(index, final, nil, genErr)
}

// GenerateAllPanels は DONE 以外のパネルを並列で一括生成するのだ。
// 画像リクエストには流量制限（開始直後はバースト2枚）をかけ、個々の失敗は
// 該当パネルを FAILED にするだけで残りは走り続けるのだ。
func (st *Studio) GenerateAllPanels(ctx context.Context) error {
	snapshot := st.Session()

	eg, egCtx := errgroup.WithContext(ctx)
	limiter := rate.NewLimiter(rate.Every(st.rateInterval), 2)

	for i, panel := range snapshot.Panels {
		if panel.Status == domain.StatusDone || panel.Status.Busy() {
			continue
		}
		i := i
		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return err
			}
			if err := st.GeneratePanel(egCtx, i); err != nil {
				slog.Warn("パネル生成に失敗したのだ", "panel", i, "error", err)
			}
			return nil
		})
	}
	return eg.Wait()
}
