// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements PDF-to-Markdown conversion with pluggable backends.
package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Image is a figure extracted from a PDF during conversion. Name is a bare
// file name such as "page_3_img_1.png"; the caller decides where the bytes
// live and what URL (if any) the markdown refs point at.
type Image struct {
	Name string
	Data []byte
}

// Result holds the output of one PDF conversion.
type Result struct {
	Markdown string
	Images   []Image
}

// Converter transforms a PDF file into Markdown. Different backends
// (fitz, marker) implement this interface.
type Converter interface {
	// Convert reads a PDF at pdfPath and returns the Markdown content
	// plus any extracted figures.
	Convert(pdfPath string) (*Result, error)
}

// Status reports the outcome of converting one file.
type Status string

const (
	StatusDone    Status = "converted"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any files failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// frontmatter is the YAML block prepended to converted markdown files.
type frontmatter struct {
	Source      string    `yaml:"source"`
	Title       string    `yaml:"title"`
	Images      int       `yaml:"images"`
	ConvertedAt time.Time `yaml:"converted_at"`
}

// ConvertFile converts a single PDF to Markdown, writing <stem>.md and any
// extracted figures (under <stem>/) into outDir. If the Markdown output
// already exists, conversion is skipped.
func ConvertFile(c Converter, pdfPath, outDir string, w io.Writer) Status {
	base := filepath.Base(pdfPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	mdPath := filepath.Join(outDir, stem+".md")

	if _, err := os.Stat(mdPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", stem)
		return StatusSkipped
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", stem, err)
		return StatusFailed
	}

	res, err := c.Convert(pdfPath)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", stem, err)
		return StatusFailed
	}

	refs, err := writeImages(res.Images, outDir, stem)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", stem, err)
		return StatusFailed
	}

	// Title comes from the raw output: Clean may drop a leading heading
	// that echoes the filename, and that heading is often the real title.
	title := ExtractTitle(res.Markdown)
	body := Clean(res.Markdown, base, func(name string) string { return refs[name] })

	content, err := addFrontmatter(frontmatter{
		Source:      pdfPath,
		Title:       title,
		Images:      len(res.Images),
		ConvertedAt: time.Now().UTC(),
	}, body)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", stem, err)
		return StatusFailed
	}

	if err := os.WriteFile(mdPath, []byte(content), 0o644); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", stem, err)
		return StatusFailed
	}

	fmt.Fprintf(w, "converted: %s\n", stem)
	return StatusDone
}

// ConvertBatch processes a list of PDF paths through the converter, printing
// per-file status to w and returning a summary.
func ConvertBatch(c Converter, pdfPaths []string, outDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range pdfPaths {
		switch ConvertFile(c, p, outDir, w) {
		case StatusDone:
			result.Converted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// writeImages stores extracted figures under <outDir>/<stem>/ and returns a
// map from image name to the relative ref used in the markdown.
func writeImages(images []Image, outDir, stem string) (map[string]string, error) {
	refs := make(map[string]string, len(images))
	if len(images) == 0 {
		return refs, nil
	}

	imgDir := filepath.Join(outDir, stem)
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory %s: %w", imgDir, err)
	}
	for _, img := range images {
		if err := os.WriteFile(filepath.Join(imgDir, img.Name), img.Data, 0o644); err != nil {
			return nil, fmt.Errorf("writing image %s: %w", img.Name, err)
		}
		refs[img.Name] = stem + "/" + img.Name
	}
	return refs, nil
}

// addFrontmatter prepends a YAML frontmatter block to the Markdown body.
func addFrontmatter(fm frontmatter, body string) (string, error) {
	block, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(block)
	b.WriteString("---\n\n")
	b.WriteString(body)
	b.WriteString("\n")
	return b.String(), nil
}
