// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow sequences the upload, edit, download pass against a
// paperpress server. The Controller owns the Session, validates
// preconditions before any remote call, and reports transitions and
// progress through optional Events callbacks.
package workflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pdiddy/paperpress/internal/client"
	"github.com/pdiddy/paperpress/internal/convert"
	"github.com/pdiddy/paperpress/internal/epub"
	"github.com/pdiddy/paperpress/internal/treat"
	"github.com/pdiddy/paperpress/pkg/types"
)

// Step identifies the stage of the workflow the session is in.
type Step int

const (
	StepUpload Step = iota
	StepEdit
	StepDownload
)

func (s Step) String() string {
	switch s {
	case StepUpload:
		return "upload"
	case StepEdit:
		return "edit"
	case StepDownload:
		return "download"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ValidationError reports an input or precondition failure. No remote
// call was made when one is returned.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Op + ": " + e.Reason
}

// Events carries optional presentation callbacks. Any field may be
// nil. Callbacks run on the goroutine performing the operation; they
// must return promptly and must not call back into the Controller.
type Events struct {
	// StepChanged fires after a successful transition, including the
	// reset to StepUpload on Restart.
	StepChanged func(Step)

	// Progress carries transient status lines while a conversion runs.
	Progress func(string)

	// Notice carries non-fatal warnings, such as treatment fallbacks.
	Notice func(string)
}

func (e Events) emitStep(s Step) {
	if e.StepChanged != nil {
		e.StepChanged(s)
	}
}

func (e Events) emitNotice(msg string) {
	if e.Notice != nil {
		e.Notice(msg)
	}
}

// Controller owns one Session and sequences the remote operations.
// Methods are safe for concurrent use; remote calls run outside the
// session lock.
type Controller struct {
	api    *client.Client
	events Events

	mu       sync.Mutex
	session  Session
	treating bool
	feed     *progressFeed

	// epoch increments on Restart. An operation that was in flight
	// across a restart discards its result instead of repopulating the
	// cleared session.
	epoch int
}

// New returns a Controller speaking to api. events may be zero.
func New(api *client.Client, events Events) *Controller {
	return &Controller{api: api, events: events}
}

// SelectFile validates the file at path as a PDF and uploads it to the
// server. Any previous session state is discarded first. The step
// stays at StepUpload; Convert advances it.
func (c *Controller) SelectFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Op: "select file", Reason: fmt.Sprintf("cannot read %s", path)}
	}
	if info.IsDir() {
		return &ValidationError{Op: "select file", Reason: path + " is a directory"}
	}
	if err := sniffPDF(path); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	c.Restart()
	epoch := c.currentEpoch()

	up, err := c.api.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.session.fileName = up.Filename
		if c.session.fileName == "" {
			c.session.fileName = filepath.Base(path)
		}
		c.session.fileSize = info.Size()
		c.session.filePath = path
		c.session.fileID = up.FileID
	}
	c.mu.Unlock()

	return nil
}

func (c *Controller) currentEpoch() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// sniffPDF reads the leading bytes of the file and rejects anything
// that does not look like a PDF.
func sniffPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &ValidationError{Op: "select file", Reason: fmt.Sprintf("cannot open %s", path)}
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if http.DetectContentType(buf[:n]) != "application/pdf" {
		return &ValidationError{Op: "select file", Reason: "file is not a PDF"}
	}
	return nil
}

// Convert turns the uploaded PDF into Markdown and advances to
// StepEdit. While the conversion runs, escalating status lines stream
// through Events.Progress; they stop before Convert returns.
func (c *Controller) Convert(ctx context.Context) error {
	c.mu.Lock()
	fileID := c.session.fileID
	epoch := c.epoch
	c.mu.Unlock()
	if fileID == "" {
		return &ValidationError{Op: "convert", Reason: "no uploaded file to convert"}
	}

	feed := startProgress(c.events.Progress)
	c.mu.Lock()
	c.feed = feed
	c.mu.Unlock()
	defer func() {
		feed.stop()
		c.mu.Lock()
		if c.feed == feed {
			c.feed = nil
		}
		c.mu.Unlock()
	}()

	conv, err := c.api.Convert(ctx, fileID)
	if err != nil {
		return fmt.Errorf("converting: %w", err)
	}

	c.mu.Lock()
	stale := c.epoch != epoch
	if !stale {
		c.session.markdown = conv.Markdown
		c.session.images = conv.Images
		c.session.step = StepEdit
	}
	c.mu.Unlock()
	if !stale {
		c.events.emitStep(StepEdit)
	}

	return nil
}

// ApplyTreatment rewrites the current Markdown through the server's
// cleanup pass. At most one treatment runs at a time; a second call
// while one is pending fails validation. On failure the Markdown is
// left byte-identical.
func (c *Controller) ApplyTreatment(ctx context.Context, instruction string) error {
	c.mu.Lock()
	if c.session.markdown == "" {
		c.mu.Unlock()
		return &ValidationError{Op: "apply treatment", Reason: "no markdown to treat"}
	}
	if c.treating {
		c.mu.Unlock()
		return &ValidationError{Op: "apply treatment", Reason: "a treatment is already running"}
	}
	c.treating = true
	markdown := c.session.markdown
	epoch := c.epoch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.treating = false
		c.mu.Unlock()
	}()

	if strings.TrimSpace(instruction) == "" {
		instruction = treat.DefaultInstruction
	}

	resp, err := c.api.ApplyTreatment(ctx, types.TreatmentRequest{
		Markdown: markdown,
		Prompt:   instruction,
	})
	if err != nil {
		return fmt.Errorf("applying treatment: %w", err)
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.session.markdown = resp.TreatedMarkdown
	}
	c.mu.Unlock()

	if resp.Fallback {
		c.events.emitNotice("AI treatment unavailable; applied basic cleanup instead.")
	}
	return nil
}

// Generate packages the current Markdown as an EPUB and advances to
// StepDownload. An empty title derives from the selected filename with
// its extension stripped. Repeat calls replace the held artifact.
func (c *Controller) Generate(ctx context.Context, title string) error {
	c.mu.Lock()
	markdown := c.session.markdown
	fileName := c.session.fileName
	epoch := c.epoch
	c.mu.Unlock()
	if strings.TrimSpace(markdown) == "" {
		return &ValidationError{Op: "generate", Reason: "no markdown content to package"}
	}

	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	if strings.TrimSpace(title) == "" {
		title = convert.DefaultTitle
	}

	data, name, err := c.api.GenerateEPUB(ctx, types.EPUBRequest{Markdown: markdown, Title: title})
	if err != nil {
		return fmt.Errorf("generating EPUB: %w", err)
	}
	if name == "" {
		name = epub.Filename(title)
	}

	c.mu.Lock()
	stale := c.epoch != epoch
	if !stale {
		c.session.artifact = data
		c.session.artifactName = name
		c.session.step = StepDownload
	}
	c.mu.Unlock()
	if !stale {
		c.events.emitStep(StepDownload)
	}

	return nil
}

// Download writes the held EPUB into dir and returns the written path.
// Without an artifact it is a no-op returning "". The write goes
// through a temp file so a failure never leaves a partial EPUB behind.
func (c *Controller) Download(dir string) (string, error) {
	c.mu.Lock()
	data := c.session.artifact
	name := c.session.artifactName
	c.mu.Unlock()

	if data == nil {
		return "", nil
	}
	if name == "" {
		name = epub.Filename(convert.DefaultTitle)
	}

	destPath := filepath.Join(dir, name)
	tmpFile, err := os.CreateTemp(dir, ".paperpress-*.epub")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing EPUB: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return destPath, nil
}

// PreviewHTML renders the current Markdown as a standalone HTML page
// for read-only viewing. It does not mutate the session.
func (c *Controller) PreviewHTML() (string, error) {
	c.mu.Lock()
	markdown := c.session.markdown
	c.mu.Unlock()

	if strings.TrimSpace(markdown) == "" {
		return "", &ValidationError{Op: "preview", Reason: "no markdown to preview"}
	}
	return epub.RenderDocument(markdown, "Markdown Preview")
}

// SetMarkdown replaces the editable document text. A held artifact is
// not invalidated; Generate again to refresh it.
func (c *Controller) SetMarkdown(text string) {
	c.mu.Lock()
	c.session.markdown = text
	c.mu.Unlock()
}

// Markdown returns the current editable document text.
func (c *Controller) Markdown() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.markdown
}

// Step returns the current workflow step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.step
}

// Snapshot returns a read-only copy of the session for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Step:         c.session.step,
		FileName:     c.session.fileName,
		FileSize:     c.session.fileSize,
		FileID:       c.session.fileID,
		Markdown:     c.session.markdown,
		Images:       slices.Clone(c.session.images),
		HasArtifact:  c.session.artifact != nil,
		ArtifactName: c.session.artifactName,
	}
}

// Restart clears the session, cancels any running progress feed, and
// returns to StepUpload. It never makes a network call.
func (c *Controller) Restart() {
	c.mu.Lock()
	feed := c.feed
	c.feed = nil
	c.session = Session{}
	c.epoch++
	c.mu.Unlock()

	if feed != nil {
		feed.stop()
	}
	c.events.emitStep(StepUpload)
}
