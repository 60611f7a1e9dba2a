package domain

import "fmt"

// Character は漫画に登場するキャラクターの定義と生成状態を保持します。
// Name は生成時に一度だけ設定され、以後再導出されることはありません。
type Character struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Image       *Artifact  `json:"-"`
	Status      ItemStatus `json:"status"`
}

// CharacterDraft はキャラクター設計AIが返す、ID割り当て前のキャラクター案です。
type CharacterDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MaxCharacters は1セッションで設計されるキャラクターの上限なのだ。
const MaxCharacters = 3

// CharacterID は並び順のインデックスから安定したキャラクターIDを生成します。
func CharacterID(index int) string {
	return fmt.Sprintf("char-%d", index)
}

// HasImage はポートレート画像が生成済みかどうかを返します。
func (c Character) HasImage() bool {
	return !c.Image.Empty()
}

// Busy は画像を生み出す操作がこのキャラクターに対して実行中かどうかを返します。
func (c Character) Busy() bool {
	return c.Status.Busy()
}

// String はキャラクターの情報を文字列で返すのだ。
func (c Character) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}
