package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-wizard/pkg/domain"
)

// CreditLine は裏表紙に刻むクレジット表記なのだ。
const CreditLine = "Created with SONICS.ai"

// CharacterPortrait はキャラクターのポートレート生成用プロンプトを組み立てます。
func CharacterPortrait(description string) string {
	return fmt.Sprintf("A high-quality anime style, full-body character portrait, clean background, of: %s", description)
}

// UpdateCharacterImage は既存ポートレートを新しい説明文に合わせて描き直す指示文です。
func UpdateCharacterImage(description string) string {
	return fmt.Sprintf("Update the character in the image to match this new description, keeping the same style: %s", description)
}

// SceneBackground はシーン背景の生成用プロンプトを組み立てます。
// 背景にキャラクターが紛れ込むと合成時に破綻するため、人物の排除を明示します。
func SceneBackground(scene domain.Scene) string {
	return fmt.Sprintf("High-quality anime comic panel background. Style is dynamic, expressive, and colored. Do NOT include any characters, people, or animals. Focus only on the environment. Scene description: \"%s\"", scene.Description)
}

// CoverBackground は表紙背景の生成用プロンプトです。
func CoverBackground() string {
	return "An epic and dramatic anime comic book cover background. Vibrant colors, dynamic lighting. No characters or text."
}

// PanelComposite はシーンパネル合成の指示文を組み立てるのだ。
// 背景画像・キャラクター画像に続けてこの指示文を渡す前提で、
// セリフとナレーションの一字一句を崩さない描画ルールを最重要事項として明記するのだ。
func PanelComposite(scene domain.Scene, presentNames []string) string {
	characterListText := "- No character images provided for this scene."
	if len(presentNames) > 0 {
		characterListText = fmt.Sprintf("- Following images: The characters to be placed in the scene (%s).", strings.Join(presentNames, ", "))
	}

	dialogueLines := make([]string, 0, len(scene.Dialogues))
	for _, d := range scene.Dialogues {
		dialogueLines = append(dialogueLines, fmt.Sprintf("%s: \"%s\"", d.CharacterName, d.Line))
	}
	dialogueText := strings.Join(dialogueLines, "\n")
	if dialogueText == "" {
		dialogueText = "No dialogue for this panel."
	}
	narration := scene.Narration
	if narration == "" {
		narration = "No narration for this panel."
	}

	var sb strings.Builder
	sb.WriteString("You are an expert comic book artist AI. Your most important task is to render text perfectly.\n\n")
	sb.WriteString("**Source Materials:**\n")
	sb.WriteString("- First Image: The background for the scene.\n")
	sb.WriteString(characterListText)
	sb.WriteString("\n\n**Artist's Brief:**\n")
	sb.WriteString("1.  **Composition:** Use the first image as the background. Artfully place the character(s) into this background based on the scene description. Their poses, expressions, and placement must match the script's context.\n")
	sb.WriteString("2.  **Style:** Maintain a consistent, high-quality anime art style throughout the panel.\n\n")
	sb.WriteString("**Text Rendering Rules (Absolute Priority - READ CAREFULLY):**\n")
	sb.WriteString("This is the most critical part of your task. Flawless text is mandatory.\n")
	sb.WriteString("-   **PERFECT SPELLING:** There is ZERO tolerance for spelling errors, typos, or garbled text. Every word must be rendered exactly as written in the script below.\n")
	sb.WriteString("-   **VERBATIM COPYING:** You MUST copy the narration and dialogue text character-for-character. Do not add, omit, or change any words or punctuation.\n")
	sb.WriteString("-   **Narration Box:** If narration is provided, render it inside a clean, rectangular box (typically at the top or bottom of the panel). The font must be a clean, easily readable sans-serif style.\n")
	sb.WriteString("-   **Speech Bubbles:** For each line of dialogue, create a classic comic-book style speech bubble. The tail of the bubble must clearly point to the character who is speaking. Use the same clean, legible font as the narration.\n\n")
	sb.WriteString("**Script to Render:**\n---\n")
	sb.WriteString(fmt.Sprintf("Scene Description: \"%s\"\n", scene.Description))
	sb.WriteString(fmt.Sprintf("Narration: \"%s\"\n", narration))
	sb.WriteString("Dialogue:\n")
	sb.WriteString(dialogueText)
	sb.WriteString("\n---\n\n")
	sb.WriteString("**Final Output:** A single, beautifully composited comic panel image with perfectly rendered, 100% accurate text.")
	return sb.String()
}

// CoverComposite は表紙合成の指示文を組み立てるのだ。タイトルの正確な描画が最優先なのだ。
func CoverComposite(title string) string {
	var sb strings.Builder
	sb.WriteString("You are a world-class comic book cover artist AI. Your primary mission is to create a stunning cover with a perfectly rendered title.\n\n")
	sb.WriteString("**Project:** Comic Cover\n")
	sb.WriteString(fmt.Sprintf("**Title:** \"%s\"\n\n", title))
	sb.WriteString("**Instructions:**\n")
	sb.WriteString("1.  **Background & Characters:** Use the first provided image as the background. Composite the subsequent character images onto this background in dynamic, heroic poses.\n")
	sb.WriteString("2.  **Title Rendering (CRITICAL - HIGHEST PRIORITY):**\n")
	sb.WriteString(fmt.Sprintf("    -   **ABSOLUTE ACCURACY:** The comic title MUST be rendered **EXACTLY** as: \"%s\". There is no room for spelling errors, typos, or misplaced letters. Double-check every character.\n", title))
	sb.WriteString("    -   **LEGIBILITY:** The title must be highly legible. Use a bold, impactful, comic-book style font.\n")
	sb.WriteString("    -   **VISIBILITY:** Ensure the text stands out from the background art. Use techniques like a contrasting color, a strong outline, or a subtle drop shadow to maximize readability.\n")
	sb.WriteString("    -   **INTEGRATION:** Artistically integrate the title into the overall composition. It should feel like a core part of the cover, not an afterthought.\n\n")
	sb.WriteString("**Final Output:** A single, professional, high-quality comic book cover image where the title text is 100% accurate and visually stunning.")
	return sb.String()
}

// BackCover は主役キャラクターの画像を使った裏表紙合成の指示文です。
func BackCover() string {
	var sb strings.Builder
	sb.WriteString("You are a graphic designer AI creating a stylish back cover for an anime comic. Your most important task is perfect text rendering.\n\n")
	sb.WriteString("**Instructions:**\n")
	sb.WriteString("1.  **Composition:** Use the provided character image to create an artistic back cover. You can use it as a faded silhouette, a semi-transparent overlay, or frame it stylistically. The mood should be conclusive and elegant.\n")
	sb.WriteString("2.  **Text Rendering (CRITICAL - ZERO MISTAKES ALLOWED):**\n")
	sb.WriteString("    -   **Primary Text:** Render the phrase \"The End\" prominently. Use a large, stylish, and highly legible font suitable for an anime comic. It must be spelled **EXACTLY** as \"T-h-e- -E-n-d\".\n")
	sb.WriteString(fmt.Sprintf("    -   **Credit Line:** At the bottom, in a smaller, clean font, render the credit line **EXACTLY** as: \"%s\".\n", CreditLine))
	sb.WriteString("    -   **ACCURACY IS PARAMOUNT:** All text must be perfectly spelled and rendered. No typos, no extra characters, no omissions.\n\n")
	sb.WriteString("**Final Output:** A single, high-quality back cover image with 100% accurate and well-placed text.")
	return sb.String()
}

// BackCoverTextOnly はキャラクター画像が1枚もない場合の、文字のみの裏表紙生成プロンプトです。
func BackCoverTextOnly() string {
	var sb strings.Builder
	sb.WriteString("Create a stylish back cover for an anime comic. The background should be a dark, abstract, subtly textured design. \n")
	sb.WriteString("- In the center, in a large, elegant, and highly legible font, place the text **EXACTLY** as \"The End\". \n")
	sb.WriteString(fmt.Sprintf("- Below it, in a smaller, clean font, add the credit **EXACTLY** as \"%s\". \n", CreditLine))
	sb.WriteString("- The entire image must be high-quality with a minimalist aesthetic, in a 3:4 portrait aspect ratio.\n")
	sb.WriteString("- **CRITICAL:** There is zero tolerance for spelling errors or typos. The text must be rendered perfectly.")
	return sb.String()
}

// TweakPanel は既存パネルへの自然言語修正の指示文を組み立てるのだ。
func TweakPanel(command string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI comic book artist assistant. Your task is to modify an existing comic panel based on a user's instruction.\n\n")
	sb.WriteString("**Input:**\n1. An existing comic panel image.\n2. A user's command for modification.\n\n")
	sb.WriteString("**User Command:**\n---\n")
	sb.WriteString(command)
	sb.WriteString("\n---\n\n")
	sb.WriteString("**Instructions:**\n")
	sb.WriteString("1. Carefully analyze the user's command.\n")
	sb.WriteString("2. Apply the requested changes directly to the provided image.\n")
	sb.WriteString("3. Maintain the original art style, colors, and characters as much as possible, unless the command specifically asks to change them.\n")
	sb.WriteString("4. Your final output MUST be only the modified image. Do not return text descriptions, only the final image.")
	return sb.String()
}
