package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// OCRFailureText is returned by TextFromImages when transcription fails.
// It deliberately reads as document text so summarization still produces
// a record downstream.
const OCRFailureText = "TEXT EXTRACTION FAILED: THE DOCUMENT IMAGES COULD NOT BE TRANSCRIBED"

const readImagesPrompt = `Transcribe the full text of this recorded legal document.
The images are the document's pages in order. Return only the document text,
preserving paragraph breaks. Do not add commentary.`

const summarizeSystem = "You summarize recorded real-property documents (deeds, deeds of trust, releases, liens) for a title-history database."

// DocumentReader adapts a Provider to the capture loop's OCR and
// summarization needs.
type DocumentReader struct {
	provider Provider
	logger   *slog.Logger
}

// NewDocumentReader creates a reader on top of a provider.
func NewDocumentReader(provider Provider, logger *slog.Logger) *DocumentReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentReader{provider: provider, logger: logger}
}

// TextFromImages transcribes all page images in one provider call. It
// never fails: on any error it returns OCRFailureText so the capture loop
// can keep its one-record-per-document promise.
func (r *DocumentReader) TextFromImages(ctx context.Context, images [][]byte) string {
	if len(images) == 0 {
		return OCRFailureText
	}
	text, err := r.provider.ReadImages(ctx, images, readImagesPrompt)
	if err != nil {
		r.logger.Warn("image transcription failed", "pages", len(images), "error", err)
		return OCRFailureText
	}
	if strings.TrimSpace(text) == "" {
		return OCRFailureText
	}
	return text
}

// Summarize condenses extracted document text. Transport failures are the
// caller's problem; the capture loop turns them into sentinel records.
func (r *DocumentReader) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following recorded document in 2-3 sentences.
State the document type, the parties, and what interest was conveyed or
encumbered. If the text indicates a failed transcription, say the document
could not be read.

Document text:
%s`, text)

	resp, err := r.provider.Complete(ctx, CompletionRequest{
		System: summarizeSystem,
		Prompt: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("summarize document: %w", err)
	}
	return resp.Text, nil
}
