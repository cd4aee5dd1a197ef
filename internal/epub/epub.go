// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package epub packages treated Markdown as a single-chapter EPUB book.
package epub

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strings"

	goepub "github.com/go-shiori/go-epub"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// Options carries book metadata.
type Options struct {
	// Author is the metadata author (default "Academic Paper").
	Author string

	// Language is the metadata language code (default "en").
	Language string
}

// chapterCSS keeps the book readable on e-ink: serif body, justified
// paragraphs, monospace code.
const chapterCSS = `body { font-family: serif; line-height: 1.6; margin: 2em; }
h1, h2, h3 { color: #333; margin-top: 2em; }
p { margin-bottom: 1em; text-align: justify; }
pre, code { font-family: monospace; background: #f5f5f5; }
blockquote { margin-left: 2em; font-style: italic; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 0.3em 0.6em; }
img { max-width: 100%; }`

// renderer converts Markdown to XHTML. GFM covers the tables and
// strikethrough conversion output contains; WithUnsafe keeps raw HTML
// fragments some converters emit.
var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(ghtml.WithXHTML(), ghtml.WithUnsafe()),
)

// RenderHTML converts markdown to an XHTML fragment.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderDocument wraps the rendered markdown in a standalone HTML page
// with the chapter stylesheet; the workflow preview serves this directly.
func RenderDocument(markdown, title string) (string, error) {
	body, err := RenderHTML(markdown)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\"/>\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n<style>\n")
	b.WriteString(chapterCSS)
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String(), nil
}

// Build renders the markdown and packages it as a single-chapter EPUB,
// returning the book bytes. Image refs are left as links; figures the
// conversion could not recover are already placeholder notes by the time
// markdown reaches this point.
func Build(markdown, title string, opts Options) ([]byte, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, fmt.Errorf("no markdown content to package")
	}
	if title == "" {
		title = "Academic Paper"
	}
	if opts.Author == "" {
		opts.Author = "Academic Paper"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}

	body, err := RenderHTML(markdown)
	if err != nil {
		return nil, err
	}

	book, err := goepub.NewEpub(title)
	if err != nil {
		return nil, fmt.Errorf("creating epub: %w", err)
	}
	book.SetIdentifier("paperpress_" + strings.ReplaceAll(title, " ", "_"))
	book.SetAuthor(opts.Author)
	book.SetLang(opts.Language)

	cssPath, err := writeTempCSS()
	if err != nil {
		return nil, err
	}
	defer os.Remove(cssPath)

	internalCSS, err := book.AddCSS(cssPath, "chapter.css")
	if err != nil {
		return nil, fmt.Errorf("adding stylesheet: %w", err)
	}

	if _, err := book.AddSection(body, title, "chapter.xhtml", internalCSS); err != nil {
		return nil, fmt.Errorf("adding chapter: %w", err)
	}

	var buf bytes.Buffer
	if _, err := book.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing epub: %w", err)
	}
	return buf.Bytes(), nil
}

// writeTempCSS stages the stylesheet on disk; the epub library reads
// sources by path at write time.
func writeTempCSS() (string, error) {
	f, err := os.CreateTemp("", "paperpress-*.css")
	if err != nil {
		return "", fmt.Errorf("staging stylesheet: %w", err)
	}
	if _, err := f.WriteString(chapterCSS); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("staging stylesheet: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("staging stylesheet: %w", err)
	}
	return f.Name(), nil
}

// Filename returns a safe download name for the book: the title with
// filesystem-hostile characters removed, plus the .epub extension.
func Filename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return -1
		default:
			return r
		}
	}, title)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = "paper"
	}
	return cleaned + ".epub"
}
