// Package publisher は各工程の成果物をダウンロード可能なファイルとして書き出します。
// テキスト系はプレーンテキスト／Markdown、完成コミックは複数ページのPDFです。
package publisher

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

const (
	storylineFileName  = "storyline.txt"
	charactersFileName = "character-profiles.md"
	scriptFileName     = "comic-script.txt"
)

var unsafeTitleChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Publisher は出力先ディレクトリを束ねた書き出し器です。
type Publisher struct {
	outputDir string
}

// New は Publisher を生成します。
func New(outputDir string) *Publisher {
	return &Publisher{outputDir: outputDir}
}

// BuildStorylineText はストーリーラインをプレーンテキストに整形します。
func BuildStorylineText(scenes []domain.Scene) string {
	var sb strings.Builder
	for _, scene := range scenes {
		sb.WriteString(fmt.Sprintf("Scene: %s\n-----------------\n%s\n\n", scene.Title, scene.Description))
	}
	return sb.String()
}

// BuildCharacterProfiles はキャラクター設定を Markdown に整形します。
func BuildCharacterProfiles(characters []domain.Character) string {
	var sb strings.Builder
	for _, char := range characters {
		sb.WriteString(fmt.Sprintf("# %s\n\n## Description\n\n%s\n\n---\n\n", char.Name, char.Description))
	}
	return sb.String()
}

// BuildScriptText は台本（ナレーションとセリフ）をテキストに整形するのだ。
// ナレーションが空なら N/A、セリフが1行もなければ No dialogue. と明記するのだ。
func BuildScriptText(scenes []domain.Scene) string {
	var sb strings.Builder
	for _, scene := range scenes {
		narration := scene.Narration
		if narration == "" {
			narration = "N/A"
		}

		lines := make([]string, 0, len(scene.Dialogues))
		for _, d := range scene.Dialogues {
			lines = append(lines, fmt.Sprintf("    %s: %s", d.CharacterName, d.Line))
		}
		dialogue := strings.Join(lines, "\n")
		if dialogue == "" {
			dialogue = "No dialogue."
		}

		sb.WriteString(fmt.Sprintf("## Scene: %s\n\n**Narration:**\n%s\n\n**Dialogue:**\n%s\n\n-----------------\n\n", scene.Title, narration, dialogue))
	}
	return sb.String()
}

// SanitizeTitle はタイトルをファイル名に安全な形へ変換します。
// 英数字以外はすべてアンダースコアに置き換え、空になった場合は comic を使います。
func SanitizeTitle(title string) string {
	sanitized := unsafeTitleChars.ReplaceAllString(title, "_")
	if strings.Trim(sanitized, "_") == "" {
		return "comic"
	}
	return sanitized
}

// SaveStoryline はストーリーラインを storyline.txt として保存してパスを返します。
func (p *Publisher) SaveStoryline(scenes []domain.Scene) (string, error) {
	return p.writeFile(storylineFileName, BuildStorylineText(scenes))
}

// SaveCharacterProfiles はキャラクター設定を character-profiles.md として保存します。
func (p *Publisher) SaveCharacterProfiles(characters []domain.Character) (string, error) {
	return p.writeFile(charactersFileName, BuildCharacterProfiles(characters))
}

// SaveScript は台本を comic-script.txt として保存します。
func (p *Publisher) SaveScript(scenes []domain.Scene) (string, error) {
	return p.writeFile(scriptFileName, BuildScriptText(scenes))
}

// writeFile は出力先ディレクトリを用意してからテキストを書き込むのだ。
func (p *Publisher) writeFile(name, content string) (string, error) {
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}
	path := filepath.Join(p.outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("ファイルの保存に失敗しました: %w", err)
	}
	return path, nil
}
