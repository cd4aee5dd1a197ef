// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRuntime implements container.Runtime for marker tests.
type fakeRuntime struct {
	imageErr error
	runFunc  func(image string, args []string, stdin io.Reader, stdout io.Writer) error
}

func (f *fakeRuntime) Name() string    { return "docker" }
func (f *fakeRuntime) Available() bool { return true }

func (f *fakeRuntime) ImageExists(image string) error { return f.imageErr }

func (f *fakeRuntime) Run(image string, args []string, stdin io.Reader, stdout io.Writer) error {
	if f.runFunc != nil {
		return f.runFunc(image, args, stdin, stdout)
	}
	return nil
}

func TestNewMarkerConverter_ImageMissing(t *testing.T) {
	rt := &fakeRuntime{imageErr: errors.New("no such image")}
	if _, err := NewMarkerConverter(rt); err == nil {
		t.Fatal("expected error when image is missing")
	}
}

func TestMarkerConverter_Convert(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 body"), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := &fakeRuntime{
		runFunc: func(image string, args []string, stdin io.Reader, stdout io.Writer) error {
			if image != imageMarker {
				return errors.New("wrong image: " + image)
			}
			if len(args) == 0 || args[0] != "--output_format" {
				return errors.New("missing output format args")
			}
			if _, err := io.ReadAll(stdin); err != nil {
				return err
			}
			_, _ = stdout.Write([]byte("# Converted\n\nBody."))
			return nil
		},
	}

	conv, err := NewMarkerConverter(rt)
	if err != nil {
		t.Fatal(err)
	}

	res, err := conv.Convert(pdfPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(res.Markdown, "# Converted") {
		t.Errorf("markdown = %q", res.Markdown)
	}
	if len(res.Images) != 0 {
		t.Errorf("marker path should not extract images, got %d", len(res.Images))
	}
}

func TestMarkerConverter_EmptyOutput(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	conv, err := NewMarkerConverter(&fakeRuntime{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := conv.Convert(pdfPath); err == nil || !strings.Contains(err.Error(), "empty output") {
		t.Errorf("expected empty output error, got %v", err)
	}
}
