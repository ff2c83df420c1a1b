// File: internal/infra/payment/instamojo_gateway.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telegram-channel-subscription/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*InstamojoGateway)(nil)

// InstamojoGateway implements adapter.PaymentGateway against the Instamojo
// payment-request API (v1.1, form-encoded in, JSON out).
type InstamojoGateway struct {
	apiKey    string
	authToken string
	baseURL   string
	client    *http.Client
}

func NewInstamojoGateway(apiKey, authToken string, sandbox bool) (*InstamojoGateway, error) {
	if apiKey == "" || authToken == "" {
		return nil, errors.New("instamojo credentials empty")
	}
	base := "https://www.instamojo.com"
	if sandbox {
		base = "https://test.instamojo.com"
	}
	return &InstamojoGateway{
		apiKey:    apiKey,
		authToken: authToken,
		baseURL:   base,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *InstamojoGateway) Name() string { return "instamojo" }

// SetBaseURL overrides the API host; used by tests.
func (g *InstamojoGateway) SetBaseURL(u string) { g.baseURL = u }

type paymentRequestBody struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Purpose  string            `json:"purpose"`
	LongURL  string            `json:"longurl"`
	Amount   string            `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

type paymentRequestEnvelope struct {
	Success        bool               `json:"success"`
	Message        json.RawMessage    `json:"message"`
	PaymentRequest paymentRequestBody `json:"payment_request"`
}

func (g *InstamojoGateway) CreatePaymentRequest(ctx context.Context, amount int64, purpose, redirectURL, webhookURL string) (string, string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("purpose", purpose)
	form.Set("redirect_url", redirectURL)
	form.Set("webhook", webhookURL)
	form.Set("allow_repeated_payments", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/1.1/payment-requests/", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	g.auth(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("instamojo request: %w", err)
	}
	defer resp.Body.Close()

	var out paymentRequestEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode instamojo response: %w", err)
	}
	if !out.Success || out.PaymentRequest.ID == "" {
		return "", "", fmt.Errorf("instamojo request rejected: http %d %s", resp.StatusCode, string(out.Message))
	}
	return out.PaymentRequest.ID, out.PaymentRequest.LongURL, nil
}

func (g *InstamojoGateway) FetchPaymentRequest(ctx context.Context, requestID string) (*adapter.PaymentRequest, error) {
	if requestID == "" {
		return nil, errors.New("empty request id")
	}
	u := fmt.Sprintf("%s/api/1.1/payment-requests/%s/", g.baseURL, url.PathEscape(requestID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	g.auth(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("instamojo fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instamojo fetch: http %d", resp.StatusCode)
	}
	var out paymentRequestEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode instamojo response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("instamojo fetch rejected: %s", string(out.Message))
	}

	pr := out.PaymentRequest
	return &adapter.PaymentRequest{
		ID:       pr.ID,
		Status:   pr.Status,
		Purpose:  pr.Purpose,
		Metadata: pr.Metadata,
		Amount:   parseAmount(pr.Amount),
	}, nil
}

func (g *InstamojoGateway) auth(req *http.Request) {
	req.Header.Set("X-Api-Key", g.apiKey)
	req.Header.Set("X-Auth-Token", g.authToken)
}

// parseAmount handles the decimal-string amounts Instamojo returns ("2500.00").
func parseAmount(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f))
}
