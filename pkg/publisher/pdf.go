package publisher

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-comic-wizard/pkg/domain"

	"github.com/jung-kurt/gofpdf"
)

// PDFのページレイアウトなのだ。A4縦にマージン40pt、画像は3:4で中央配置なのだ。
const (
	pdfMargin      = 40.0
	imageAspectW   = 3.0
	imageAspectH   = 4.0
	pdfAuthorName  = "go-comic-wizard"
	pdfImageNameFm = "panel-%d"
)

// SaveComicPDF は完成したパネル列を1つの複数ページPDFに組み上げて保存します。
// 1パネルが1ページで、最終画像を持たないパネルは黙ってスキップされます。
// ファイル名はタイトルをサニタイズしたものです。
func (p *Publisher) SaveComicPDF(title string, panels []domain.Panel) (string, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(pdfAuthorName, false)

	pageW, pageH := pdf.GetPageSize()
	imgW := pageW - pdfMargin*2
	imgH := imgW * imageAspectH / imageAspectW
	x := pdfMargin
	y := (pageH - imgH) / 2

	added := 0
	for i, panel := range panels {
		if panel.FinalImage.Empty() {
			continue
		}

		imageType := imageTypeFromMIME(panel.FinalImage.MIMEType)
		if imageType == "" {
			return "", fmt.Errorf("パネル %s の画像形式 %q はPDFに埋め込めません", panel.Scene.ID, panel.FinalImage.MIMEType)
		}

		pdf.AddPage()
		name := fmt.Sprintf(pdfImageNameFm, i)
		opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(panel.FinalImage.Data))
		pdf.ImageOptions(name, x, y, imgW, imgH, false, opts, 0, "")
		added++
	}

	if added == 0 {
		return "", fmt.Errorf("PDFに載せられる完成パネルが1枚もありません")
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}
	path := filepath.Join(p.outputDir, SanitizeTitle(title)+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("PDFの保存に失敗しました: %w", err)
	}
	return path, nil
}

// imageTypeFromMIME はMIMEタイプを gofpdf の画像タイプ名に対応付けるのだ。
// 対応外の形式は空文字で、呼び出し側がエラーにするのだ。
func imageTypeFromMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png", "":
		return "PNG"
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}
