package domain

import (
	"errors"
	"testing"
)

func TestItemStatus_BeginGenerate(t *testing.T) {
	t.Run("初期状態・完了・失敗のどこからでも生成を開始できるのだ", func(t *testing.T) {
		for _, from := range []ItemStatus{StatusNotStarted, StatusDone, StatusFailed} {
			next, err := from.BeginGenerate()
			if err != nil {
				t.Fatalf("%s からの生成開始でエラーが発生しました: %v", from, err)
			}
			if next != StatusGenerating {
				t.Errorf("%s からの次状態が GENERATING ではないのだ: %s", from, next)
			}
		}
	})

	t.Run("実行中の二重開始は拒否されるのだ", func(t *testing.T) {
		for _, from := range []ItemStatus{StatusGenerating, StatusUpdating} {
			next, err := from.BeginGenerate()
			if !errors.Is(err, ErrItemBusy) {
				t.Errorf("%s からの二重開始が ErrItemBusy になりません: %v", from, err)
			}
			if next != from {
				t.Errorf("拒否時に状態が変化してしまったのだ: %s → %s", from, next)
			}
		}
	})
}

func TestItemStatus_BeginUpdate(t *testing.T) {
	t.Run("更新は完了済みからのみ開始できるのだ", func(t *testing.T) {
		next, err := StatusDone.BeginUpdate()
		if err != nil {
			t.Fatalf("DONE からの更新開始でエラーが発生しました: %v", err)
		}
		if next != StatusUpdating {
			t.Errorf("次状態が UPDATING ではないのだ: %s", next)
		}
	})

	t.Run("成果物のない状態からの更新は拒否されるのだ", func(t *testing.T) {
		for _, from := range []ItemStatus{StatusNotStarted, StatusFailed} {
			if _, err := from.BeginUpdate(); err == nil {
				t.Errorf("%s からの更新開始がエラーになりませんでした", from)
			}
		}
	})

	t.Run("実行中は ErrItemBusy なのだ", func(t *testing.T) {
		if _, err := StatusUpdating.BeginUpdate(); !errors.Is(err, ErrItemBusy) {
			t.Errorf("期待値 ErrItemBusy, 実際の値 %v", err)
		}
	})
}

func TestItemStatus_Finish(t *testing.T) {
	if got := StatusGenerating.Finish(true); got != StatusDone {
		t.Errorf("成功の完了が DONE になりません: %s", got)
	}
	if got := StatusUpdating.Finish(false); got != StatusFailed {
		t.Errorf("失敗の完了が FAILED になりません: %s", got)
	}
}
