package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopflow/fulfillment-service/internal/config"
)

// ErrPaymentRecordNotFound means the gateway has no payment for the given id.
// Non-fatal for webhook processing.
var ErrPaymentRecordNotFound = errors.New("gateway payment not found")

// PaymentRecord is the subset of the gateway payment the reconciler needs.
type PaymentRecord struct {
	ID                string
	Status            string
	ExternalReference string
}

type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func NewClient(cfg config.Gateway) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		http:        &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchPayment loads a single payment by its gateway identifier.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (PaymentRecord, error) {
	var payload paymentPayload
	err := c.get(ctx, "/v1/payments/"+url.PathEscape(paymentID), &payload)
	if err != nil {
		return PaymentRecord{}, err
	}
	return payload.toRecord(), nil
}

// SearchPaymentsByReference lists the gateway payments created for an order
// reference. The gateway may return zero, one or several attempts.
func (c *Client) SearchPaymentsByReference(ctx context.Context, ref string) ([]PaymentRecord, error) {
	var payload struct {
		Results []paymentPayload `json:"results"`
	}
	path := "/v1/payments/search?external_reference=" + url.QueryEscape(ref)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}

	records := make([]PaymentRecord, 0, len(payload.Results))
	for _, p := range payload.Results {
		records = append(records, p.toRecord())
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrPaymentRecordNotFound
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("gateway responded with status %d", res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}

// paymentPayload mirrors the gateway wire format. The id is numeric on the
// wire and carried as a string everywhere else.
type paymentPayload struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

func (p paymentPayload) toRecord() PaymentRecord {
	return PaymentRecord{
		ID:                strconv.FormatInt(p.ID, 10),
		Status:            p.Status,
		ExternalReference: p.ExternalReference,
	}
}
