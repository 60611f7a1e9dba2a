package session

import (
	"context"
	"log/slog"

	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/prompts"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// beginCharacterOpLocked はキャラクター操作の共通検証なのだ。
// 工程・インデックス・アイテムの実行中ロックを確認し、対象のコピーを返すのだ。
func (st *Studio) beginCharacterOpLocked(index int) (domain.Character, error) {
	if st.sess.Stage != domain.StageCharacters {
		err := &GuardViolation{From: st.sess.Stage, Message: "character operations are only available in CHARACTERS"}
		st.sess.LastError = err.Message
		return domain.Character{}, err
	}
	if index < 0 || index >= len(st.sess.Characters) {
		err := validationf("character index %d out of range", index)
		st.sess.LastError = err.Message
		return domain.Character{}, err
	}
	char := st.sess.Characters[index]
	if char.Busy() {
		st.sess.LastError = domain.ErrItemBusy.Error()
		return domain.Character{}, domain.ErrItemBusy
	}
	return char, nil
}

// finishCharacterOp は操作結果をアイテム単位の差し替えで反映するのだ。
// 失敗時は既存のポートレートを一切壊さない。成果物があれば DONE に戻し（元実装では
// キャラクターに失敗状態がなく、画像が残っていれば引き続き操作可能なため）、
// 初回生成の失敗だけが FAILED になるのだ。
func (st *Studio) finishCharacterOp(index int, image *domain.Artifact, description string, opErr error) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	// 実行中にリセットされた場合は反映先がないので、結果ごと破棄するのだ
	if index < 0 || index >= len(st.sess.Characters) {
		return opErr
	}

	char := st.sess.Characters[index]
	if description != "" {
		char.Description = description
	}
	if opErr != nil {
		if char.HasImage() {
			char.Status = domain.StatusDone
		} else {
			char.Status = domain.StatusFailed
		}
		st.sess.Characters[index] = char
		st.sess.LastError = opErr.Error()
		return opErr
	}

	char.Image = image
	char.Status = domain.StatusDone
	st.sess.Characters[index] = char
	return nil
}

// GenerateCharacterImage は説明文からポートレートを新規生成します。
// 既に画像がある場合はまるごと置き換えます（成功時のみ）。
func (st *Studio) GenerateCharacterImage(ctx context.Context, index int) error {
	st.mu.Lock()
	st.clearFailureLocked()
	char, err := st.beginCharacterOpLocked(index)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	next, err := char.Status.BeginGenerate()
	if err != nil {
		st.sess.LastError = err.Error()
		st.mu.Unlock()
		return err
	}
	char.Status = next
	st.sess.Characters[index] = char
	description := char.Description
	model := st.sess.ImageModel
	st.mu.Unlock()

	art, genErr := st.gw.GenerateImage(ctx, prompts.CharacterPortrait(description), model)
	return st.finishCharacterOp(index, art, "", genErr)
}

// UpdateCharacterImage は現在の説明文を既存ポートレートに反映させた新しい画像を生成します。
// 失敗しても既存の画像はそのまま残ります。
func (st *Studio) UpdateCharacterImage(ctx context.Context, index int) error {
	st.mu.Lock()
	st.clearFailureLocked()
	char, err := st.beginCharacterOpLocked(index)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	if !char.HasImage() {
		verr := &ValidationError{Message: "Please generate an initial image before updating."}
		st.sess.LastError = verr.Message
		st.mu.Unlock()
		return verr
	}
	char.Status = domain.StatusUpdating
	st.sess.Characters[index] = char
	source := *char.Image.Clone()
	description := char.Description
	st.mu.Unlock()

	art, genErr := st.gw.EditImage(ctx, source, prompts.UpdateCharacterImage(description))
	return st.finishCharacterOp(index, art, "", genErr)
}

// TweakCharacter は自然言語の修正指示を2段階で適用する調整操作です。
// まず説明文を書き直し、その新しい説明文で既存ポートレートを描き直します。
// 指示が空・画像未生成なら即座に ValidationError で、ゲートウェイには触れません。
// 2段階目で失敗しても、書き直された説明文は残り、画像は元のまま保たれます。
func (st *Studio) TweakCharacter(ctx context.Context, index int, command string) error {
	if trimmed(command) == "" {
		verr := &ValidationError{Message: "Please enter a tweak command."}
		st.recordFailure(verr)
		return verr
	}

	st.mu.Lock()
	st.clearFailureLocked()
	char, err := st.beginCharacterOpLocked(index)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	if !char.HasImage() {
		verr := &ValidationError{Message: "Please generate an initial image before tweaking."}
		st.sess.LastError = verr.Message
		st.mu.Unlock()
		return verr
	}
	char.Status = domain.StatusUpdating
	st.sess.Characters[index] = char
	source := *char.Image.Clone()
	current := char.Description
	st.mu.Unlock()

	newDescription, genErr := st.gw.RewriteDescription(ctx, current, command)
	if genErr != nil {
		return st.finishCharacterOp(index, nil, "", genErr)
	}

	art, genErr := st.gw.EditImage(ctx, source, prompts.UpdateCharacterImage(newDescription))
	return st.finishCharacterOp(index, art, newDescription, genErr)
}

// GenerateAllCharacterImages は未生成のポートレートを並列で一括生成するのだ。
// 画像リクエストには流量制限をかけ、個々の失敗は該当キャラクターに記録するだけで
// 兄弟の生成は中断しないのだ。
func (st *Studio) GenerateAllCharacterImages(ctx context.Context) error {
	snapshot := st.Session()

	eg, egCtx := errgroup.WithContext(ctx)
	limiter := rate.NewLimiter(rate.Every(st.rateInterval), 2)

	for i, char := range snapshot.Characters {
		if char.HasImage() || char.Busy() {
			continue
		}
		i := i
		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return err
			}
			if err := st.GenerateCharacterImage(egCtx, i); err != nil {
				slog.Warn("ポートレート生成に失敗したのだ", "character", i, "error", err)
			}
			return nil
		})
	}
	return eg.Wait()
}
