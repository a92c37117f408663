package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/applyo/prospector/internal/apperr"
)

const defaultZeroBounceURL = "https://api.zerobounce.net/v2/validate"

// StatusValid is the only verifier status that keeps a candidate.
const StatusValid = "valid"

// EmailVerifyTool checks deliverability of an address with ZeroBounce.
// It is both a model-callable tool and the verifier behind the email verification pass.
type EmailVerifyTool struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

type zeroBounceResponse struct {
	Address   string `json:"address"`
	Status    string `json:"status"`
	SubStatus string `json:"sub_status"`
	Domain    string `json:"domain"`
	MXFound   any    `json:"mx_found"`
	Error     string `json:"error,omitempty"`
}

// VerifyOutput is the tool's JSON result.
type VerifyOutput struct {
	Email     string `json:"email"`
	Status    string `json:"status"`
	SubStatus string `json:"sub_status,omitempty"`
}

func NewEmailVerifyTool(apiKey, apiURL string) *EmailVerifyTool {
	if apiURL == "" {
		apiURL = defaultZeroBounceURL
	}
	return &EmailVerifyTool{
		apiKey: apiKey,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *EmailVerifyTool) Name() string {
	return "verify_email"
}

func (t *EmailVerifyTool) Description() string {
	return `Check whether an email address is deliverable. Returns a status such as
"valid", "invalid", "catch-all" or "unknown". Only "valid" means the mailbox exists.`
}

func (t *EmailVerifyTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"email": {
				"type": "string",
				"description": "The email address to check"
			}
		},
		"required": ["email"]
	}`)
}

func (t *EmailVerifyTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var in struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult("Failed to parse verify arguments", err), nil
	}

	resp, err := t.lookup(ctx, in.Email)
	if err != nil {
		return ToolResult{}, err
	}

	out, err := json.Marshal(VerifyOutput{Email: in.Email, Status: resp.Status, SubStatus: resp.SubStatus})
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to encode result: %w", err)
	}
	return ToolResult{Content: string(out)}, nil
}

// Verify returns the verifier status for email, lower-cased.
func (t *EmailVerifyTool) Verify(ctx context.Context, email string) (string, error) {
	resp, err := t.lookup(ctx, email)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (t *EmailVerifyTool) lookup(ctx context.Context, email string) (*zeroBounceResponse, error) {
	if t.apiKey == "" {
		return nil, apperr.New(apperr.ErrUpstreamConfig, "ZEROBOUNCE_API_KEY is not set")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.New(apperr.ErrVerification, "email is empty")
	}

	q := url.Values{}
	q.Set("api_key", t.apiKey)
	q.Set("email", email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(stripURL(err), apperr.ErrVerification, "verify request failed").WithContext("email", email)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrVerification, "failed to read verify response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.ErrVerification, "verify API error (status %d): %s", resp.StatusCode, string(body))
	}

	var zb zeroBounceResponse
	if err := json.Unmarshal(body, &zb); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrVerification, "failed to parse verify response")
	}
	if zb.Error != "" {
		return nil, apperr.New(apperr.ErrVerification, zb.Error).WithContext("email", email)
	}
	zb.Status = strings.ToLower(strings.TrimSpace(zb.Status))
	return &zb, nil
}

// stripURL drops the request URL from transport errors; it carries the API key.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s %s: %w", uerr.Op, redactedURL, uerr.Err)
	}
	return err
}

const redactedURL = "[redacted]"
