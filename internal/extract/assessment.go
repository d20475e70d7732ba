package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avasquez/deedscan/internal/llm"
	"github.com/avasquez/deedscan/internal/model"
)

const extractSystem = "You extract structured data from county property-assessment pages. Answer with JSON only, no markdown fences, no commentary."

// assessmentSchema describes the fields the model must fill. Unknown
// values are nulls/zeroes, never guesses.
const assessmentSchema = `{
  "account_number": "string, the assessment account/parcel number",
  "site_address": "string, the property's situs address",
  "land_value": "integer dollars, 0 if absent",
  "improvement_value": "integer dollars, 0 if absent",
  "total_market_value": "integer dollars, 0 if absent",
  "legal_description_text": "string, the legal description exactly as printed, line breaks preserved as \n",
  "owner_name": "string, current owner name",
  "owner_mailing_address": "string, current owner mailing address",
  "history": [
    {
      "year": "integer tax year",
      "owner_block": "string, the combined owner name/address block for that year, first line is the name",
      "total_market_value": "integer dollars, 0 if absent",
      "exemption_codes": ["string exemption codes for that year"],
      "deed_reference": "string deed/instrument reference for that year, empty if absent"
    }
  ]
}`

// AssessmentExtractor implements structured field extraction over raw
// assessment pages. Malformed model output degrades to a partial or empty
// Assessment; only transport failures become errors.
type AssessmentExtractor struct {
	provider llm.Provider
	logger   *slog.Logger
	now      func() time.Time
}

// NewAssessmentExtractor creates an extractor on top of a provider.
func NewAssessmentExtractor(provider llm.Provider, logger *slog.Logger) *AssessmentExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentExtractor{provider: provider, logger: logger, now: time.Now}
}

// Extract pulls the assessment fields out of a fetched page.
func (e *AssessmentExtractor) Extract(ctx context.Context, pageHTML, sourceURL string) (*model.Assessment, error) {
	text := VisibleText(pageHTML)

	prompt := fmt.Sprintf(`Extract the assessment record from the page text below.
Fill this JSON structure; use null, "" or 0 for anything the page does not show:

%s

Page text:
%s`, assessmentSchema, text)

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		System: extractSystem,
		Prompt: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("assessment extraction: %w", err)
	}

	a := decodeAssessment(resp.Text)
	if a.Empty() {
		e.logger.Warn("assessment extraction yielded no usable fields", "url", sourceURL)
	}
	a.FetchedAt = e.now().UTC()
	a.SourceURL = sourceURL
	return a, nil
}

// decodeAssessment leniently parses the model's JSON. Fences and
// surrounding prose are tolerated; a hopeless payload yields an empty
// Assessment rather than an error.
func decodeAssessment(raw string) *model.Assessment {
	payload := extractJSONObject(raw)
	var a model.Assessment
	if payload == "" {
		return &a
	}
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return &model.Assessment{}
	}
	return &a
}

// extractJSONObject returns the outermost {...} in raw, stripping
// markdown fences the model sometimes adds despite instructions.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
