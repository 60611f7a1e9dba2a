// Package prompts は各生成操作に渡すプロンプト文を組み立てます。
// 文面はテキスト描画の正確性（セリフ・タイトルの誤字ゼロ）を最優先に設計されています。
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// Storyline はシード文章からストーリーライン生成用のプロンプトを組み立てます。
func Storyline(seed string) string {
	return fmt.Sprintf("Based on this idea: '%s', generate a compelling anime comic storyline with 5 to 7 scenes. Each scene should have a short title and a detailed description of the action, setting, and dialogue.", seed)
}

// Characters はストーリーラインからキャラクター設計用のプロンプトを組み立てます。
func Characters(scenes []domain.Scene) string {
	lines := make([]string, 0, len(scenes))
	for _, s := range scenes {
		lines = append(lines, fmt.Sprintf("%s: %s", s.Title, s.Description))
	}
	return fmt.Sprintf("Analyze this storyline: '%s'. Identify up to 3 main characters and create detailed descriptions for each. The descriptions must focus on their physical appearance, hairstyle, clothing, and typical expressions, suitable for an AI image generator. Provide a unique name for each character.", strings.Join(lines, "\n"))
}

// RewriteDescription は既存の説明文にユーザー指示を織り込むためのプロンプトを組み立てるのだ。
func RewriteDescription(current, command string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant for character design. A user wants to modify a character.\n\n")
	sb.WriteString("Current Description:\n---\n")
	sb.WriteString(current)
	sb.WriteString("\n---\n\n")
	sb.WriteString("User's Command:\n---\n")
	sb.WriteString(command)
	sb.WriteString("\n---\n\n")
	sb.WriteString("Your task is to rewrite the 'Current Description' to incorporate the user's command. Maintain the original level of detail and structure. Only return the new, complete description.")
	return sb.String()
}

// Script はストーリーラインとキャラクター一覧から台本生成用のプロンプトを組み立てます。
// セリフ中のキャラクター名が一覧と完全一致するよう、一覧は JSON で埋め込みます。
func Script(scenes []domain.Scene, names []string) string {
	sources := make([]string, 0, len(scenes))
	for _, s := range scenes {
		sources = append(sources, fmt.Sprintf("Scene ID: %s\nTitle: %s\nDescription: %s", s.ID, s.Title, s.Description))
	}
	nameList, _ := json.Marshal(names)

	var sb strings.Builder
	sb.WriteString("You are a scriptwriter for an anime comic. Based on the following storyline and character list, write a script for each scene.\n\n")
	sb.WriteString("For each scene, provide a short, impactful narration from a third-person perspective and then write natural-sounding dialogue for the characters present in that scene.\n\n")
	sb.WriteString("Ensure the character names in the dialogue match exactly from the provided list.\n\n")
	sb.WriteString(fmt.Sprintf("Character List: %s\n\n", nameList))
	sb.WriteString("Storyline:\n---\n")
	sb.WriteString(strings.Join(sources, "\n\n"))
	sb.WriteString("\n---\n\n")
	sb.WriteString("Return the result as a JSON array. Each object in the array should correspond to a scene and contain the sceneId, narration, and an array of dialogues.")
	return sb.String()
}

// AnalyzeScene はシーン描写から登場キャラクターを抽出するためのプロンプトを組み立てるのだ。
func AnalyzeScene(scene domain.Scene, names []string) string {
	nameList, _ := json.Marshal(names)
	var sb strings.Builder
	sb.WriteString("Analyze the following scene description to identify which characters from the provided list are present.\n")
	sb.WriteString(fmt.Sprintf("Character List: %s\n", nameList))
	sb.WriteString(fmt.Sprintf("Scene Description: \"%s\"\n", scene.Description))
	sb.WriteString("Return a JSON array containing only the names of the characters present in the scene. If no characters are mentioned, return an empty array.")
	return sb.String()
}
