package domain

// Artifact は生成AIが出力した画像などのバイナリ成果物を保持します。
// データとMIMEタイプは常にペアで扱い、片方だけが設定されることはありません。
type Artifact struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// Clone は成果物の防御的コピーを返すのだ。
// セッション内の差し替えは常にコピー単位で行い、バッファの共有による競合を防ぐのだよ。
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Artifact{Data: data, MIMEType: a.MIMEType}
}

// Empty は成果物が実体を持たないかどうかを返します。
func (a *Artifact) Empty() bool {
	return a == nil || len(a.Data) == 0
}
