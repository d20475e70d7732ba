package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avasquez/deedscan/internal/llm"
)

type cannedProvider struct {
	text string
	err  error
}

func (c *cannedProvider) Name() string { return "canned" }

func (c *cannedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Text: c.text}, nil
}

func (c *cannedProvider) ReadImages(ctx context.Context, images [][]byte, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (c *cannedProvider) IsAvailable(ctx context.Context) bool { return true }

const cannedAssessment = `{
  "account_number": "0660640000008",
  "site_address": "914 W 41ST ST HOUSTON TX",
  "land_value": 150000,
  "improvement_value": 210000,
  "total_market_value": 360000,
  "legal_description_text": "ST AUGUSTINE HIGHLANDS\nBLK N/6757\nLT 8",
  "owner_name": "JOHN SMITH",
  "owner_mailing_address": "914 W 41ST ST",
  "history": [
    {"year": 2022, "owner_block": "JOHN SMITH\n914 W 41ST ST", "total_market_value": 360000, "exemption_codes": ["HS"]},
    {"year": 2021, "owner_block": "JOHN SMITH\n914 W 41ST ST", "total_market_value": 340000, "exemption_codes": []}
  ]
}`

func TestExtract_ParsesCannedPayload(t *testing.T) {
	e := NewAssessmentExtractor(&cannedProvider{text: cannedAssessment}, nil)

	a, err := e.Extract(context.Background(), "<html><body>page</body></html>", "https://assessor.test/acct")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AccountNumber != "0660640000008" {
		t.Errorf("account: got %q", a.AccountNumber)
	}
	if a.TotalMarketValue != 360000 {
		t.Errorf("total value: got %d", a.TotalMarketValue)
	}
	if len(a.History) != 2 || a.History[0].Year != 2022 {
		t.Errorf("history: got %+v", a.History)
	}
	if a.SourceURL != "https://assessor.test/acct" {
		t.Errorf("source url: got %q", a.SourceURL)
	}
}

func TestExtract_TolerantOfFencesAndProse(t *testing.T) {
	fenced := "Here is the record:\n```json\n" + cannedAssessment + "\n```"
	e := NewAssessmentExtractor(&cannedProvider{text: fenced}, nil)

	a, err := e.Extract(context.Background(), "<html/>", "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AccountNumber != "0660640000008" {
		t.Errorf("fenced payload should parse, got %q", a.AccountNumber)
	}
}

func TestExtract_MalformedPayloadIsEmptyNotError(t *testing.T) {
	for _, text := range []string{"I cannot help with that.", "{broken json", ""} {
		e := NewAssessmentExtractor(&cannedProvider{text: text}, nil)
		a, err := e.Extract(context.Background(), "<html/>", "u")
		if err != nil {
			t.Fatalf("malformed output must not error, got %v", err)
		}
		if !a.Empty() {
			t.Errorf("expected empty assessment for %q, got %+v", text, a)
		}
	}
}

func TestExtract_TransportFailureErrors(t *testing.T) {
	e := NewAssessmentExtractor(&cannedProvider{err: errors.New("dial tcp: refused")}, nil)
	_, err := e.Extract(context.Background(), "<html/>", "u")
	if err == nil {
		t.Fatal("expected transport error")
	}
}

func TestVisibleText(t *testing.T) {
	page := `<html><head><style>.x{}</style><script>var a;</script></head>
<body><h1>Account 123</h1>
<table><tr><td>Owner</td><td>JOHN SMITH</td></tr>
<tr><td>Value</td><td>$360,000</td></tr></table>
<noscript>enable js</noscript></body></html>`

	text := VisibleText(page)

	if strings.Contains(text, "var a") || strings.Contains(text, "enable js") {
		t.Errorf("script/noscript content leaked: %q", text)
	}
	lines := strings.Split(text, "\n")
	if lines[0] != "Account 123" {
		t.Errorf("expected heading first, got %q", lines[0])
	}
	if !strings.Contains(text, "Owner JOHN SMITH") {
		t.Errorf("table row should stay on one line: %q", text)
	}
}
