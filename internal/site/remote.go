package site

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avasquez/deedscan/internal/model"
	"github.com/avasquez/deedscan/internal/util"
)

// RemoteDialer creates capture sessions backed by a remote browser
// gateway. The gateway owns the actual browser automation; this client
// only speaks its JSON protocol, so gateway error text (including
// session-lost phrases) flows through unchanged for classification.
type RemoteDialer struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteDialer creates a dialer against a gateway base URL.
func NewRemoteDialer(gatewayURL string, cfg model.HTTPConfig, sessionTimeout time.Duration) *RemoteDialer {
	if sessionTimeout <= 0 {
		sessionTimeout = 90 * time.Second
	}
	return &RemoteDialer{
		baseURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: &http.Client{
			Timeout: sessionTimeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
	}
}

// Dial opens a fresh browser session on the gateway.
func (d *RemoteDialer) Dial(ctx context.Context) (Session, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := d.call(ctx, http.MethodPost, "/sessions", nil, &out); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("gateway returned no session id")
	}
	return &remoteSession{dialer: d, id: out.SessionID}, nil
}

func (d *RemoteDialer) call(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The gateway reports browser errors as plain text; keep it
		// verbatim so session-lost classification sees the original
		// phrasing.
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("gateway %s %s: %s", method, path, msg)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// remoteSession is one gateway-held browser session.
type remoteSession struct {
	dialer *RemoteDialer
	id     string
}

func (s *remoteSession) path(suffix string) string {
	return "/sessions/" + s.id + suffix
}

func (s *remoteSession) Search(ctx context.Context, q Query) ([]model.ListingEntry, error) {
	payload := map[string]string{
		"subdivision": q.Subdivision,
		"lot":         q.Lot,
		"block":       q.Block,
		"filed_from":  q.FiledFrom.Format("01/02/2006"),
		"filed_to":    q.FiledTo.Format("01/02/2006"),
	}
	var out struct {
		Listing []model.ListingEntry `json:"listing"`
	}
	if err := s.dialer.call(ctx, http.MethodPost, s.path("/search"), payload, &out); err != nil {
		return nil, err
	}
	return out.Listing, nil
}

func (s *remoteSession) OpenViewer(ctx context.Context, instrumentNumber string) (*Handle, error) {
	payload := map[string]string{"instrument_number": instrumentNumber}
	var out struct {
		URL string `json:"url"`
	}
	if err := s.dialer.call(ctx, http.MethodPost, s.path("/viewer"), payload, &out); err != nil {
		return nil, err
	}
	return &Handle{InstrumentNumber: instrumentNumber, URL: out.URL}, nil
}

func (s *remoteSession) PageCount(ctx context.Context, h *Handle) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := s.dialer.call(ctx, http.MethodGet, s.path("/viewer/pages"), nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (s *remoteSession) CaptureImage(ctx context.Context, h *Handle, page int) ([]byte, error) {
	var out struct {
		ImageB64 string `json:"image_b64"`
	}
	if err := s.dialer.call(ctx, http.MethodPost, s.path("/viewer/capture"), nil, &out); err != nil {
		return nil, err
	}
	img, err := base64.StdEncoding.DecodeString(out.ImageB64)
	if err != nil {
		return nil, fmt.Errorf("decode page %d image: %w", page, err)
	}
	return img, nil
}

func (s *remoteSession) NextPage(ctx context.Context, h *Handle) error {
	return s.dialer.call(ctx, http.MethodPost, s.path("/viewer/next"), nil, nil)
}

func (s *remoteSession) GoBack(ctx context.Context) error {
	return s.dialer.call(ctx, http.MethodPost, s.path("/back"), nil, nil)
}

func (s *remoteSession) Close() error {
	// Best effort; the session may already be gone server-side.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.dialer.call(ctx, http.MethodDelete, s.path(""), nil, nil)
}
