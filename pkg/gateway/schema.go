package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/go-comic-wizard/pkg/domain"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"
)

// 構造化出力のスキーマ定義なのだ。
// リクエスト側には genai.Schema で応答形式を強制し、応答側は同じ形の JSON Schema で
// 検証してからデコードするのだ。モデルが崩れた JSON を返しても、ここで一つの
// GenerationError に正規化されるのだよ。

var storylineResponseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString, Description: "The title of the scene."},
			"description": {Type: genai.TypeString, Description: "The detailed description of the scene, including actions, setting, and dialogue."},
		},
		Required: []string{"title", "description"},
	},
}

var charactersResponseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString, Description: "The name of the character."},
			"description": {Type: genai.TypeString, Description: "The detailed physical description of the character."},
		},
		Required: []string{"name", "description"},
	},
}

var rewriteResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"newDescription": {Type: genai.TypeString, Description: "The full, updated character description."},
	},
	Required: []string{"newDescription"},
}

var scriptResponseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sceneId":   {Type: genai.TypeString},
			"narration": {Type: genai.TypeString},
			"dialogues": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"characterName": {Type: genai.TypeString},
						"line":          {Type: genai.TypeString},
					},
					Required: []string{"characterName", "line"},
				},
			},
		},
		Required: []string{"sceneId", "narration"},
	},
}

var namesResponseSchema = &genai.Schema{
	Type:  genai.TypeArray,
	Items: &genai.Schema{Type: genai.TypeString},
}

// 応答検証用の JSON Schema 文字列なのだ。
const (
	storylineSchemaJSON = `{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"title": {"type": "string"},
				"description": {"type": "string"}
			},
			"required": ["title", "description"]
		}
	}`

	charactersSchemaJSON = `{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"name": {"type": "string"},
				"description": {"type": "string"}
			},
			"required": ["name", "description"]
		}
	}`

	rewriteSchemaJSON = `{
		"type": "object",
		"properties": {
			"newDescription": {"type": "string"}
		},
		"required": ["newDescription"]
	}`

	scriptSchemaJSON = `{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"sceneId": {"type": "string"},
				"narration": {"type": "string"},
				"dialogues": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"characterName": {"type": "string"},
							"line": {"type": "string"}
						},
						"required": ["characterName", "line"]
					}
				}
			},
			"required": ["sceneId", "narration"]
		}
	}`

	namesSchemaJSON = `{
		"type": "array",
		"items": {"type": "string"}
	}`
)

// validateAndDecode は応答文字列をスキーマ検証してから out にデコードします。
func validateAndDecode(schemaJSON, raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty response body")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("response violates schema: %s", strings.Join(issues, "; "))
	}

	return json.Unmarshal([]byte(raw), out)
}

// decodeStoryline はストーリーライン応答をパースするのだ。空配列は失敗扱いなのだ。
func decodeStoryline(raw string) ([]domain.SceneDraft, error) {
	var drafts []domain.SceneDraft
	if err := validateAndDecode(storylineSchemaJSON, raw, &drafts); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("storyline response contained no scenes")
	}
	return drafts, nil
}

// decodeCharacters はキャラクター応答をパースするのだ。
// モデルが上限を超えて返してきた場合は先頭 MaxCharacters 人に切り詰めるのだ。
func decodeCharacters(raw string) ([]domain.CharacterDraft, error) {
	var drafts []domain.CharacterDraft
	if err := validateAndDecode(charactersSchemaJSON, raw, &drafts); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("character response contained no characters")
	}
	if len(drafts) > domain.MaxCharacters {
		drafts = drafts[:domain.MaxCharacters]
	}
	return drafts, nil
}

// decodeRewrite は説明文書き換え応答から newDescription を取り出すのだ。
func decodeRewrite(raw string) (string, error) {
	var parsed struct {
		NewDescription string `json:"newDescription"`
	}
	if err := validateAndDecode(rewriteSchemaJSON, raw, &parsed); err != nil {
		return "", err
	}
	if strings.TrimSpace(parsed.NewDescription) == "" {
		return "", fmt.Errorf("rewrite response omitted the updated description")
	}
	return parsed.NewDescription, nil
}

// decodeScript は台本応答をシーンIDキーのマップに変換するのだ。
// 欠けているシーンの補完はここでは行わない。部分的な結果もそのまま成功として返すのだ。
func decodeScript(raw string) (map[string]domain.SceneScript, error) {
	var entries []struct {
		SceneID   string            `json:"sceneId"`
		Narration string            `json:"narration"`
		Dialogues []domain.Dialogue `json:"dialogues"`
	}
	if err := validateAndDecode(scriptSchemaJSON, raw, &entries); err != nil {
		return nil, err
	}

	scripts := make(map[string]domain.SceneScript, len(entries))
	for _, entry := range entries {
		scripts[entry.SceneID] = domain.SceneScript{
			Narration: entry.Narration,
			Dialogues: entry.Dialogues,
		}
	}
	return scripts, nil
}

// decodeNames は登場キャラクター分析の応答（名前の配列）をパースするのだ。
func decodeNames(raw string) ([]string, error) {
	var names []string
	if err := validateAndDecode(namesSchemaJSON, raw, &names); err != nil {
		return nil, err
	}
	return names, nil
}
