// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

const sampleMarkdown = `# Attention Is All You Need

## Abstract

The dominant sequence transduction models are based on complex recurrent
networks.

## Introduction

Recurrent neural networks have long dominated sequence modeling.

| Model | BLEU |
|-------|------|
| Base  | 27.3 |
`

func TestBuild(t *testing.T) {
	data, err := Build(sampleMarkdown, "Attention Is All You Need", Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("result is not a zip archive: %v", err)
	}

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name] = string(content)
	}

	if files["mimetype"] != "application/epub+zip" {
		t.Errorf("mimetype entry = %q", files["mimetype"])
	}

	var chapter string
	for name, content := range files {
		if strings.HasSuffix(name, "chapter.xhtml") {
			chapter = content
		}
	}
	if chapter == "" {
		t.Fatalf("no chapter.xhtml in archive; entries: %v", keys(files))
	}
	if !strings.Contains(chapter, "Attention Is All You Need") {
		t.Error("chapter should contain the title heading")
	}
	if !strings.Contains(chapter, "<table>") {
		t.Error("GFM tables should render as HTML tables")
	}
}

func TestBuild_EmptyMarkdown(t *testing.T) {
	if _, err := Build("   \n", "Title", Options{}); err == nil {
		t.Fatal("expected error for empty markdown")
	}
}

func TestBuild_DefaultsTitle(t *testing.T) {
	data, err := Build("Some body text.", "", Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(data) == 0 || data[0] != 'P' || data[1] != 'K' {
		t.Error("expected zip output")
	}
}

func TestRenderHTML(t *testing.T) {
	got, err := RenderHTML("# Title\n\nA paragraph with **bold** text.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<h1") || !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestRenderDocument(t *testing.T) {
	got, err := RenderDocument("## Section\n\nBody.", "My Paper & Co")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Error("preview should be a standalone document")
	}
	if !strings.Contains(got, "<title>My Paper &amp; Co</title>") {
		t.Errorf("title should be escaped, got %q", got)
	}
	if !strings.Contains(got, "font-family: serif") {
		t.Error("preview should carry the chapter stylesheet")
	}
	if !strings.Contains(got, "<h2") {
		t.Error("preview should contain the rendered body")
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Attention Is All You Need", "Attention Is All You Need.epub"},
		{"Paper: A/B Testing?", "Paper AB Testing.epub"},
		{"", "paper.epub"},
		{`<>:"|?*`, "paper.epub"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
