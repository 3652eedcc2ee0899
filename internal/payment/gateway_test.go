package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newMeshulamServer serves canned responses per API path and records the
// last form it received.
func newMeshulamServer(t *testing.T, responses map[string]string) (*httptest.Server, *http.Request) {
	t.Helper()
	last := &http.Request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		*last = *r
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func testGateway(t *testing.T, baseURL string) *MeshulamGateway {
	t.Helper()
	g, err := NewMeshulamGateway(
		MeshulamConfig{PageCode: "page", UserID: "user", APIKey: "key", Sandbox: true},
		WithGatewayBaseURL(baseURL),
		WithGatewayLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("NewMeshulamGateway failed: %v", err)
	}
	return g
}

// TestNewMeshulamGateway tests credential validation and base URL choice.
func TestNewMeshulamGateway(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cfg   MeshulamConfig
		field string
	}{
		{name: "missing page code", cfg: MeshulamConfig{UserID: "u", APIKey: "k"}, field: "page code"},
		{name: "missing user id", cfg: MeshulamConfig{PageCode: "p", APIKey: "k"}, field: "user id"},
		{name: "missing api key", cfg: MeshulamConfig{PageCode: "p", UserID: "u"}, field: "api key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewMeshulamGateway(tt.cfg)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("got field %q, expected %q", cfgErr.Field, tt.field)
			}
		})
	}

	t.Run("sandbox and production hosts", func(t *testing.T) {
		t.Parallel()
		sandbox, _ := NewMeshulamGateway(MeshulamConfig{PageCode: "p", UserID: "u", APIKey: "k", Sandbox: true})
		prod, _ := NewMeshulamGateway(MeshulamConfig{PageCode: "p", UserID: "u", APIKey: "k"})
		if sandbox.baseURL != meshulamSandboxURL {
			t.Errorf("got %q, expected sandbox host", sandbox.baseURL)
		}
		if prod.baseURL != meshulamProductionURL {
			t.Errorf("got %q, expected production host", prod.baseURL)
		}
	})
}

// TestMeshulamCreateCharge tests the createPaymentProcess call.
func TestMeshulamCreateCharge(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		srv, last := newMeshulamServer(t, map[string]string{
			createChargePath: `{"status":1,"data":{"url":"https://pay.example/abc","processId":98765}}`,
		})
		g := testGateway(t, srv.URL)

		charge, err := g.CreateCharge(context.Background(), ChargeRequest{
			Amount:        79,
			Description:   description("https://example.co.il"),
			CorrelationID: "pay_0123456789ab",
			BuyerEmail:    "a@example.com",
			SuccessURL:    "https://front/payment-success.html?session_id=pay_0123456789ab",
		})
		if err != nil {
			t.Fatalf("CreateCharge failed: %v", err)
		}
		if charge.URL != "https://pay.example/abc" || charge.Ref != "98765" {
			t.Errorf("unexpected charge %+v", charge)
		}

		form := last.PostForm
		checks := map[string]string{
			"pageCode":         "page",
			"userId":           "user",
			"apiKey":           "key",
			"sum":              "79",
			"cField1":          "pay_0123456789ab",
			"pageField[email]": "a@example.com",
		}
		for k, v := range checks {
			if got := form.Get(k); got != v {
				t.Errorf("form %s: got %q, expected %q", k, got, v)
			}
		}
		if !strings.HasSuffix(form.Get("description"), "https://example.co.il") {
			t.Errorf("unexpected description %q", form.Get("description"))
		}
	})

	t.Run("rejection hides remote message", func(t *testing.T) {
		t.Parallel()
		srv, _ := newMeshulamServer(t, map[string]string{
			createChargePath: `{"status":0,"err":{"message":"invalid pageCode 1234"}}`,
		})
		g := testGateway(t, srv.URL)

		_, err := g.CreateCharge(context.Background(), ChargeRequest{Amount: 79})
		var gwErr *GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
		if strings.Contains(err.Error(), "1234") {
			t.Errorf("remote message leaked into %q", err.Error())
		}
		if !strings.Contains(errors.Unwrap(err).Error(), "invalid pageCode") {
			t.Errorf("expected remote message in wrapped error, got %v", errors.Unwrap(err))
		}
	})

	t.Run("http failure", func(t *testing.T) {
		t.Parallel()
		srv, _ := newMeshulamServer(t, nil)
		g := testGateway(t, srv.URL)

		_, err := g.CreateCharge(context.Background(), ChargeRequest{Amount: 79})
		var gwErr *GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
	})
}

// TestMeshulamQueryCharge tests the getPaymentProcessInfo call.
func TestMeshulamQueryCharge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		expected bool
	}{
		{name: "paid", body: `{"status":1,"data":{"transactionStatus":1}}`, expected: true},
		{name: "paid as strings", body: `{"status":"1","data":{"transactionStatus":"1"}}`, expected: true},
		{name: "not paid", body: `{"status":1,"data":{"transactionStatus":0}}`, expected: false},
		{name: "request failed", body: `{"status":0,"err":{"message":"unknown process"}}`, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, last := newMeshulamServer(t, map[string]string{queryChargePath: tt.body})
			g := testGateway(t, srv.URL)

			paid, err := g.QueryCharge(context.Background(), "98765")
			if err != nil {
				t.Fatalf("QueryCharge failed: %v", err)
			}
			if paid != tt.expected {
				t.Errorf("got %v, expected %v", paid, tt.expected)
			}
			if got := last.PostForm.Get("processId"); got != "98765" {
				t.Errorf("got processId %q", got)
			}
		})
	}

	t.Run("empty ref", func(t *testing.T) {
		t.Parallel()
		g := testGateway(t, "http://127.0.0.1:1")
		paid, err := g.QueryCharge(context.Background(), "")
		if paid || err != nil {
			t.Errorf("expected false without error, got %v, %v", paid, err)
		}
	})
}

// TestParseNotification tests webhook body decoding.
func TestParseNotification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		expected    Notification
	}{
		{
			name:        "json",
			contentType: "application/json",
			body:        `{"status":"1","customFields":{"cField1":"pay_abc"}}`,
			expected:    Notification{CorrelationID: "pay_abc", Status: "1"},
		},
		{
			name:        "json numeric status",
			contentType: "application/json; charset=utf-8",
			body:        `{"status":0,"customFields":{"cField1":"pay_abc"}}`,
			expected:    Notification{CorrelationID: "pay_abc", Status: "0"},
		},
		{
			name:        "form with nested key",
			contentType: "application/x-www-form-urlencoded",
			body:        "status=1&customFields%5BcField1%5D=pay_abc",
			expected:    Notification{CorrelationID: "pay_abc", Status: "1"},
		},
		{
			name:        "form with flat key",
			contentType: "application/x-www-form-urlencoded",
			body:        "status=1&cField1=pay_abc",
			expected:    Notification{CorrelationID: "pay_abc", Status: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseNotification(tt.contentType, []byte(tt.body))
			if err != nil {
				t.Fatalf("ParseNotification failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %+v, expected %+v", got, tt.expected)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseNotification("application/json", []byte("{")); err == nil {
			t.Error("expected error")
		}
	})
}
