package payment

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
)

// Notification is an asynchronous gateway callback.
type Notification struct {
	// CorrelationID is the session id echoed back by the gateway.
	CorrelationID string
	// Status is the raw gateway status; "1" means paid.
	Status string
}

// Paid reports whether the notification signals a successful payment.
func (n Notification) Paid() bool {
	return n.Status == "1"
}

type jsonNotification struct {
	Status       flexString `json:"status"`
	CustomFields struct {
		CField1 string `json:"cField1"` //nolint:tagliatelle
	} `json:"customFields"` //nolint:tagliatelle
}

// ParseNotification decodes a webhook body. JSON bodies carry the session
// id in customFields.cField1; form bodies may use either
// customFields[cField1] or cField1.
func ParseNotification(contentType string, body []byte) (Notification, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return Notification{}, fmt.Errorf("failed to parse notification form: %w", err)
		}
		id := values.Get("customFields[cField1]")
		if id == "" {
			id = values.Get("cField1")
		}
		return Notification{CorrelationID: id, Status: values.Get("status")}, nil
	}

	var raw jsonNotification
	if err := json.Unmarshal(body, &raw); err != nil {
		return Notification{}, fmt.Errorf("failed to parse notification: %w", err)
	}
	return Notification{CorrelationID: raw.CustomFields.CField1, Status: string(raw.Status)}, nil
}
