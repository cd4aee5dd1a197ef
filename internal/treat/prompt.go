// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package treat

import (
	"bytes"
	"text/template"
)

// systemPrompt frames every treatment call. The preservation requirements
// matter: without them models tend to return a summary of the paper rather
// than a corrected copy.
const systemPrompt = `You are an expert academic paper processor. Your task is to improve the quality of markdown extracted from PDFs while preserving ALL content. Focus on:
1. Fixing OCR errors and text recognition mistakes
2. Improving formatting and structure
3. Enhancing readability while preserving academic integrity
4. Correcting citation formats and references
5. Improving table and figure formatting

CRITICAL REQUIREMENTS:
- PRESERVE ALL ORIGINAL CONTENT - do not summarize, shorten, or omit any text
- Fix errors but keep the same length and detail level
- Maintain the complete document structure
- Return the FULL corrected document, not a summary
- Do not wrap in code blocks or add explanations
- Process the entire document from beginning to end`

// DefaultInstruction is the correction ruleset used when the caller gives
// no instructions of their own.
const DefaultInstruction = `Read the given Markdown and correct it according to the following rules:
- Do not alter the meaning or context of the content.
- Do not paraphrase or rephrase sentences.
- If an image or text block is placed in the wrong position, move it to its correct location.
- Fix LaTeX or equation syntax errors to ensure proper rendering.
- Replace any incorrectly displayed symbols or special characters with their correct versions.
- Maintain valid Markdown formatting throughout.
- Fix common OCR errors while preserving academic terminology.
- Improve citation formatting and reference structure.
- Ensure proper heading hierarchy and document structure.`

// treatmentPromptTmpl assembles the single-part prompt sent to the model.
var treatmentPromptTmpl = template.Must(template.New("treatment").Parse(`{{.System}}

User instructions: {{.Instruction}}

Markdown to process:

{{.Markdown}}`))

// renderPrompt executes the treatment prompt template.
func renderPrompt(markdown, instruction string) (string, error) {
	var buf bytes.Buffer
	err := treatmentPromptTmpl.Execute(&buf, struct {
		System      string
		Instruction string
		Markdown    string
	}{
		System:      systemPrompt,
		Instruction: instruction,
		Markdown:    markdown,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
