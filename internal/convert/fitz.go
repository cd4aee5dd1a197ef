// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/gen2brain/go-fitz"
)

// FitzConverter converts PDFs locally: MuPDF renders each page to HTML and
// the HTML is converted to Markdown. Raster figures arrive inline as base64
// data URIs; they are decoded into Result.Images and their refs rewritten
// to bare file names.
type FitzConverter struct{}

// NewFitzConverter returns the local conversion backend. It has no external
// requirements beyond the bundled MuPDF library.
func NewFitzConverter() *FitzConverter {
	return &FitzConverter{}
}

// dataURIPattern matches inline base64 images emitted by the HTML renderer.
var dataURIPattern = regexp.MustCompile(`!\[[^\]]*\]\(data:image/(png|jpe?g|gif);base64,([A-Za-z0-9+/=\s]+)\)`)

// Convert reads the PDF at pdfPath and returns cleaned-up Markdown plus the
// figures found on each page.
func (f *FitzConverter) Convert(pdfPath string) (*Result, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer doc.Close()

	conv := md.NewConverter("", true, nil)

	res := &Result{}
	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		html, err := doc.HTML(i, true)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d of %s: %w", i+1, pdfPath, err)
		}

		page, err := conv.ConvertString(html)
		if err != nil {
			return nil, fmt.Errorf("converting page %d of %s: %w", i+1, pdfPath, err)
		}

		page = strings.TrimSpace(extractFigures(page, i+1, res))
		if page != "" {
			pages = append(pages, page)
		}
	}

	res.Markdown = strings.Join(pages, "\n\n")
	if res.Markdown == "" && len(res.Images) == 0 {
		return nil, fmt.Errorf("no text extracted from %s", pdfPath)
	}
	return res, nil
}

// extractFigures moves data-URI images out of the page markdown into
// res.Images, leaving refs by name for the caller to resolve. Images that
// fail to decode are dropped along with their refs.
func extractFigures(page string, pageNum int, res *Result) string {
	n := 0
	return dataURIPattern.ReplaceAllStringFunc(page, func(m string) string {
		sub := dataURIPattern.FindStringSubmatch(m)
		payload := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, sub[2])

		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil || len(data) == 0 {
			return ""
		}

		n++
		name := fmt.Sprintf("page_%d_img_%d.%s", pageNum, n, normalizeImageExt(sub[1]))
		res.Images = append(res.Images, Image{Name: name, Data: data})
		return fmt.Sprintf("![Figure](%s)", name)
	})
}

func normalizeImageExt(ext string) string {
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}
