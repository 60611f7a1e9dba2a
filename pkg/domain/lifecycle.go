package domain

import "errors"

// ItemStatus は生成対象アイテム（キャラクター・パネル）の生成ライフサイクルを表す状態機械です。
// キャラクターの「生成中フラグ」とパネルの5状態を、ここで一本化して扱います。
type ItemStatus int

const (
	StatusNotStarted ItemStatus = iota // 初期状態。まだ一度も生成されていない
	StatusGenerating                   // 初回生成（または再生成）の実行中
	StatusUpdating                     // 既存成果物の更新（テキスト反映・微調整）の実行中
	StatusDone                         // 成果物あり。再突入可能
	StatusFailed                       // 直近の操作が失敗。リトライで再突入可能
)

// ErrItemBusy は、実行中のアイテムに対して二重に操作を開始しようとした際に返されます。
// 非終端状態そのものがアイテム単位のロックとして機能します。
var ErrItemBusy = errors.New("item has an operation in flight")

func (s ItemStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "NOT_STARTED"
	case StatusGenerating:
		return "GENERATING"
	case StatusUpdating:
		return "UPDATING"
	case StatusDone:
		return "DONE"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Busy は生成系の操作が実行中かどうかを返します。
func (s ItemStatus) Busy() bool {
	return s == StatusGenerating || s == StatusUpdating
}

// BeginGenerate は生成開始の遷移を検証して次状態を返すのだ。
// NOT_STARTED / FAILED / DONE のどこからでも開始できるが、実行中の二重開始だけは拒否するのだ。
func (s ItemStatus) BeginGenerate() (ItemStatus, error) {
	if s.Busy() {
		return s, ErrItemBusy
	}
	return StatusGenerating, nil
}

// BeginUpdate は更新開始（テキスト反映・微調整）の遷移を検証して次状態を返すのだ。
// 更新は既存の成果物が前提なので、DONE からのみ開始できるのだ。
func (s ItemStatus) BeginUpdate() (ItemStatus, error) {
	if s.Busy() {
		return s, ErrItemBusy
	}
	if s != StatusDone {
		return s, errors.New("nothing to update: item has no completed artifact")
	}
	return StatusUpdating, nil
}

// Finish は実行中の操作の完了を状態に反映します。成功なら DONE、失敗なら FAILED です。
func (s ItemStatus) Finish(ok bool) ItemStatus {
	if ok {
		return StatusDone
	}
	return StatusFailed
}
