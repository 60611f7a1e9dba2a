package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-comic-wizard/pkg/domain"
	"github.com/shouni/go-comic-wizard/pkg/prompts"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"
)

// 画像キャッシュの保持パラメータなのだ。同一プロンプト・同一モデルの再生成を抑えるのだ。
const (
	imageCacheTTL   = 30 * time.Minute
	imageCacheSweep = 1 * time.Hour
	defaultMIMEType = "image/png"
	imageAspect     = "3:4"
)

// GeminiGateway は Gateway の Gemini 実装です。
// 構造化テキストはスキーマ強制付きの生成呼び出し、画像はテキスト生成モデルとは別の
// 画像編集モデル（マルチモーダル応答）および Imagen 系モデルで処理します。
type GeminiGateway struct {
	client    *genai.Client
	textModel string // 構造化テキスト生成に使うモデル
	editModel string // 画像編集・合成（IMAGE+TEXT応答）に使うモデル
	imgCache  *cache.Cache
}

// NewGeminiGateway は APIキーからクライアントを初期化してゲートウェイを返します。
func NewGeminiGateway(ctx context.Context, apiKey, textModel, editModel string) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}

	return &GeminiGateway{
		client:    client,
		textModel: textModel,
		editModel: editModel,
		imgCache:  cache.New(imageCacheTTL, imageCacheSweep),
	}, nil
}

// GenerateStoryline はシード文章からシーン案の列を生成するのだ。
func (g *GeminiGateway) GenerateStoryline(ctx context.Context, seed string) ([]domain.SceneDraft, error) {
	const op = "generateStoryline"
	raw, err := g.generateJSON(ctx, prompts.Storyline(seed), storylineResponseSchema)
	if err != nil {
		return nil, newGenerationError(op, "storyline request failed", err)
	}
	drafts, err := decodeStoryline(raw)
	if err != nil {
		return nil, newGenerationError(op, "storyline response was unusable", err)
	}
	slog.Info("ストーリーラインを生成したのだ", "scenes", len(drafts))
	return drafts, nil
}

// GenerateCharacters はストーリーラインから最大3人のキャラクター案を生成するのだ。
func (g *GeminiGateway) GenerateCharacters(ctx context.Context, scenes []domain.Scene) ([]domain.CharacterDraft, error) {
	const op = "generateCharacters"
	raw, err := g.generateJSON(ctx, prompts.Characters(scenes), charactersResponseSchema)
	if err != nil {
		return nil, newGenerationError(op, "character request failed", err)
	}
	drafts, err := decodeCharacters(raw)
	if err != nil {
		return nil, newGenerationError(op, "character response was unusable", err)
	}
	slog.Info("キャラクター案を生成したのだ", "characters", len(drafts))
	return drafts, nil
}

// GenerateImage はテキストプロンプトから画像を1枚生成します。
// 同一モデル・同一プロンプトの結果は一定時間キャッシュされます。
func (g *GeminiGateway) GenerateImage(ctx context.Context, prompt, model string) (*domain.Artifact, error) {
	const op = "generateImage"

	key := imageCacheKey(model, prompt)
	if cached, ok := g.imgCache.Get(key); ok {
		if art, ok := cached.(*domain.Artifact); ok {
			slog.Debug("画像キャッシュにヒットしたのだ", "model", model)
			return art.Clone(), nil
		}
	}

	resp, err := g.client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: defaultMIMEType,
		AspectRatio:    imageAspect,
	})
	if err != nil {
		return nil, newGenerationError(op, "image request failed", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, newGenerationError(op, "no image was generated", nil)
	}

	img := resp.GeneratedImages[0].Image
	mime := img.MIMEType
	if mime == "" {
		mime = defaultMIMEType
	}
	art := &domain.Artifact{Data: img.ImageBytes, MIMEType: mime}
	g.imgCache.Set(key, art.Clone(), cache.DefaultExpiration)
	return art, nil
}

// EditImage は既存画像に自然言語の指示を適用した新しい画像を返すのだ。
func (g *GeminiGateway) EditImage(ctx context.Context, image domain.Artifact, instruction string) (*domain.Artifact, error) {
	if image.Empty() {
		return nil, newGenerationError("editImage", "no source image to edit", nil)
	}
	return g.generateWithImages(ctx, "editImage", []domain.Artifact{image}, instruction)
}

// RewriteDescription は説明文にユーザー指示を織り込んで書き直すのだ。
func (g *GeminiGateway) RewriteDescription(ctx context.Context, current, command string) (string, error) {
	const op = "rewriteDescription"
	raw, err := g.generateJSON(ctx, prompts.RewriteDescription(current, command), rewriteResponseSchema)
	if err != nil {
		return "", newGenerationError(op, "rewrite request failed", err)
	}
	rewritten, err := decodeRewrite(raw)
	if err != nil {
		return "", newGenerationError(op, "rewrite response was unusable", err)
	}
	return rewritten, nil
}

// GenerateScript は各シーンの脚本を生成してシーンIDキーのマップで返すのだ。
// 部分的にしか埋まっていない応答も成功として返す。欠落の補完は呼び出し側の方針なのだ。
func (g *GeminiGateway) GenerateScript(ctx context.Context, scenes []domain.Scene, names []string) (map[string]domain.SceneScript, error) {
	const op = "generateScript"
	raw, err := g.generateJSON(ctx, prompts.Script(scenes, names), scriptResponseSchema)
	if err != nil {
		return nil, newGenerationError(op, "script request failed", err)
	}
	scripts, err := decodeScript(raw)
	if err != nil {
		return nil, newGenerationError(op, "script response was unusable", err)
	}
	slog.Info("台本を生成したのだ", "scenes_requested", len(scenes), "scenes_covered", len(scripts))
	return scripts, nil
}

// CompositeImage は複数画像と指示文から1枚の合成画像を生成するのだ。
func (g *GeminiGateway) CompositeImage(ctx context.Context, images []domain.Artifact, instruction string) (*domain.Artifact, error) {
	const op = "compositeImage"
	if len(images) == 0 {
		return nil, newGenerationError(op, "no source images to composite", nil)
	}
	return g.generateWithImages(ctx, op, images, instruction)
}

// AnalyzeSceneCharacters はシーン描写に登場するキャラクター名を抽出するのだ。
func (g *GeminiGateway) AnalyzeSceneCharacters(ctx context.Context, scene domain.Scene, names []string) ([]string, error) {
	const op = "analyzeSceneCharacters"
	raw, err := g.generateJSON(ctx, prompts.AnalyzeScene(scene, names), namesResponseSchema)
	if err != nil {
		return nil, newGenerationError(op, "scene analysis request failed", err)
	}
	present, err := decodeNames(raw)
	if err != nil {
		return nil, newGenerationError(op, "scene analysis response was unusable", err)
	}
	return present, nil
}

// generateJSON はスキーマ強制付きの構造化テキスト生成を実行して応答本文を返します。
func (g *GeminiGateway) generateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// generateWithImages は画像パート＋指示文のマルチモーダル呼び出しを実行し、
// 応答から最初の画像パートを取り出します。画像パートがなければ失敗です。
func (g *GeminiGateway) generateWithImages(ctx context.Context, op string, images []domain.Artifact, instruction string) (*domain.Artifact, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		mime := img.MIMEType
		if mime == "" {
			mime = defaultMIMEType
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mime))
	}
	parts = append(parts, genai.NewPartFromText(instruction))

	resp, err := g.client.Models.GenerateContent(ctx,
		g.editModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	)
	if err != nil {
		return nil, newGenerationError(op, "image request failed", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = defaultMIMEType
				}
				return &domain.Artifact{Data: part.InlineData.Data, MIMEType: mime}, nil
			}
		}
	}

	// テキストだけ返ってきた場合（モデルの拒否応答など）も失敗として扱うのだ
	return nil, newGenerationError(op, "the model returned no image part", nil)
}

// imageCacheKey はモデル名とプロンプトから決定論的なキャッシュキーを作るのだ。
func imageCacheKey(model, prompt string) string {
	h := sha256.Sum256([]byte(model + "\x00" + prompt))
	return hex.EncodeToString(h[:])
}
