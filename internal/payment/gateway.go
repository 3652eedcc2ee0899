package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	meshulamSandboxURL    = "https://sandbox.meshulam.co.il"
	meshulamProductionURL = "https://secure.meshulam.co.il"

	createChargePath = "/api/light/server/1.0/createPaymentProcess"
	queryChargePath  = "/api/light/server/1.0/getPaymentProcessInfo"

	// DefaultGatewayTimeout bounds every gateway request.
	DefaultGatewayTimeout = 15 * time.Second

	maxGatewayResponse = 1 << 20
)

// Gateway is a hosted-checkout payment provider.
type Gateway interface {
	// CreateCharge opens a hosted checkout and returns where to send the buyer.
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	// QueryCharge reports whether the remote charge was paid.
	QueryCharge(ctx context.Context, ref string) (bool, error)
}

// ChargeRequest describes a charge to open.
type ChargeRequest struct {
	Amount        int64
	Currency      string
	Description   string
	SuccessURL    string
	CancelURL     string
	WebhookURL    string
	CorrelationID string
	BuyerEmail    string
}

// Charge is an opened remote charge.
type Charge struct {
	URL string
	Ref string
}

// MeshulamConfig holds the merchant credentials.
type MeshulamConfig struct {
	PageCode string
	UserID   string
	APIKey   string
	Sandbox  bool
}

// MeshulamGateway talks to the Meshulam light server API.
type MeshulamGateway struct {
	cfg     MeshulamConfig
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// GatewayOption configures a MeshulamGateway.
type GatewayOption func(*MeshulamGateway)

// WithGatewayHTTPClient sets the HTTP client.
func WithGatewayHTTPClient(client *http.Client) GatewayOption {
	return func(g *MeshulamGateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithGatewayBaseURL overrides the API host.
func WithGatewayBaseURL(baseURL string) GatewayOption {
	return func(g *MeshulamGateway) {
		if baseURL != "" {
			g.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *MeshulamGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewMeshulamGateway creates a gateway client. All three credentials are
// required; a missing one is reported as *ConfigurationError.
func NewMeshulamGateway(cfg MeshulamConfig, opts ...GatewayOption) (*MeshulamGateway, error) {
	switch {
	case cfg.PageCode == "":
		return nil, &ConfigurationError{Field: "page code"}
	case cfg.UserID == "":
		return nil, &ConfigurationError{Field: "user id"}
	case cfg.APIKey == "":
		return nil, &ConfigurationError{Field: "api key"}
	}

	g := &MeshulamGateway{
		cfg:     cfg,
		baseURL: meshulamProductionURL,
		client:  &http.Client{Timeout: DefaultGatewayTimeout},
		logger:  slog.Default(),
	}
	if cfg.Sandbox {
		g.baseURL = meshulamSandboxURL
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type meshulamResponse struct {
	Status flexString `json:"status"`
	Err    struct {
		Message string `json:"message"`
	} `json:"err"`
	Data struct {
		URL               string     `json:"url"`
		ProcessID         flexString `json:"processId"`         //nolint:tagliatelle
		TransactionStatus flexString `json:"transactionStatus"` //nolint:tagliatelle
	} `json:"data"`
}

// CreateCharge opens a payment process.
func (g *MeshulamGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	form := g.credentials()
	form.Set("sum", strconv.FormatInt(req.Amount, 10))
	form.Set("description", req.Description)
	form.Set("successUrl", req.SuccessURL)
	form.Set("cancelUrl", req.CancelURL)
	form.Set("invoiceNotifyUrl", req.WebhookURL)
	form.Set("cField1", req.CorrelationID)
	form.Set("pageField[email]", req.BuyerEmail)

	resp, err := g.post(ctx, createChargePath, form)
	if err != nil {
		return nil, &GatewayError{Op: "create charge", Err: err}
	}
	if resp.Status != "1" {
		msg := resp.Err.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &GatewayError{Op: "create charge", Err: fmt.Errorf("gateway rejected charge: %s", msg)}
	}
	if resp.Data.URL == "" {
		return nil, &GatewayError{Op: "create charge", Err: errors.New("gateway returned no checkout URL")}
	}

	g.logger.Debug("charge created", "ref", string(resp.Data.ProcessID))
	return &Charge{URL: resp.Data.URL, Ref: string(resp.Data.ProcessID)}, nil
}

// QueryCharge reports whether the payment process completed.
func (g *MeshulamGateway) QueryCharge(ctx context.Context, ref string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	form := g.credentials()
	form.Set("processId", ref)

	resp, err := g.post(ctx, queryChargePath, form)
	if err != nil {
		return false, &GatewayError{Op: "query charge", Err: err}
	}
	return resp.Status == "1" && resp.Data.TransactionStatus == "1", nil
}

func (g *MeshulamGateway) credentials() url.Values {
	form := url.Values{}
	form.Set("pageCode", g.cfg.PageCode)
	form.Set("userId", g.cfg.UserID)
	form.Set("apiKey", g.cfg.APIKey)
	return form
}

func (g *MeshulamGateway) post(ctx context.Context, path string, form url.Values) (*meshulamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxGatewayResponse))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var out meshulamResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
