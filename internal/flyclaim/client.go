package flyclaim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"flyclaim-tracker/internal/domain"
)

// ErrNotFound is returned when the upstream API answers 404.
var ErrNotFound = errors.New("flyclaim: not found")

// APIError carries a non-404 upstream failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("flyclaim request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("flyclaim request failed with status %d", e.StatusCode)
}

type Client interface {
	Login(ctx context.Context, req Credentials) (domain.User, error)
	Signup(ctx context.Context, req SignupRequest) (domain.User, error)
	ExtractTicket(ctx context.Context, filename string, contentType string, image []byte) (domain.ExtractionResult, error)
	SubmitClaim(ctx context.Context, userID int64, draft domain.DraftClaim) (domain.Claim, error)
	GetClaim(ctx context.Context, reference string) (domain.Claim, error)
	ProcessClaim(ctx context.Context, reference string) (domain.Claim, error)
	ListUserClaims(ctx context.Context, userID int64) ([]domain.Claim, error)
}

type Credentials struct {
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type HTTPClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type userEnvelope struct {
	User *domain.User `json:"user"`
}

type claimEnvelope struct {
	Claim *domain.Claim `json:"claim"`
}

type submitClaimRequest struct {
	domain.DraftClaim
	UserID int64 `json:"user_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *HTTPClient) Login(ctx context.Context, req Credentials) (domain.User, error) {
	return c.postUser(ctx, "/auth/login", req)
}

func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) (domain.User, error) {
	return c.postUser(ctx, "/auth/signup", req)
}

func (c *HTTPClient) postUser(ctx context.Context, path string, payload any) (domain.User, error) {
	var env userEnvelope
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &env); err != nil {
		return domain.User{}, err
	}
	if env.User == nil {
		return domain.User{}, fmt.Errorf("flyclaim %s: response has no user", path)
	}
	return *env.User, nil
}

func (c *HTTPClient) ExtractTicket(ctx context.Context, filename string, contentType string, image []byte) (domain.ExtractionResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	if _, err := part.Write(image); err != nil {
		return domain.ExtractionResult{}, err
	}
	if err := mw.Close(); err != nil {
		return domain.ExtractionResult{}, err
	}

	raw, err := c.do(ctx, http.MethodPost, "/extract/ocr", &body, mw.FormDataContentType())
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	return ParseExtraction(raw)
}

func (c *HTTPClient) SubmitClaim(ctx context.Context, userID int64, draft domain.DraftClaim) (domain.Claim, error) {
	var env claimEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/claims", submitClaimRequest{DraftClaim: draft, UserID: userID}, &env); err != nil {
		return domain.Claim{}, err
	}
	if env.Claim == nil {
		return domain.Claim{}, fmt.Errorf("flyclaim /claims: response has no claim")
	}
	return *env.Claim, nil
}

func (c *HTTPClient) GetClaim(ctx context.Context, reference string) (domain.Claim, error) {
	var claim domain.Claim
	if err := c.doJSON(ctx, http.MethodGet, "/claims/"+url.PathEscape(reference), nil, &claim); err != nil {
		return domain.Claim{}, err
	}
	return claim, nil
}

// ProcessClaim asks the upstream to advance its simulated airline response.
// The response is either the claim itself or wrapped in {"claim": ...}.
func (c *HTTPClient) ProcessClaim(ctx context.Context, reference string) (domain.Claim, error) {
	raw, err := c.do(ctx, http.MethodPost, "/claims/"+url.PathEscape(reference)+"/process", nil, "")
	if err != nil {
		return domain.Claim{}, err
	}
	var env claimEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Claim != nil {
		return *env.Claim, nil
	}
	var claim domain.Claim
	if err := json.Unmarshal(raw, &claim); err != nil {
		return domain.Claim{}, fmt.Errorf("unable to parse flyclaim claim: %w", err)
	}
	return claim, nil
}

func (c *HTTPClient) ListUserClaims(ctx context.Context, userID int64) ([]domain.Claim, error) {
	claims := make([]domain.Claim, 0)
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+strconv.FormatInt(userID, 10)+"/claims", nil, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	raw, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unable to parse flyclaim response for %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var parsed errorResponse
		_ = json.Unmarshal(respBody, &parsed)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: parsed.Error}
	}
	return respBody, nil
}
