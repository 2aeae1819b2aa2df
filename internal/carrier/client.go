package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopflow/fulfillment-service/internal/config"
)

// ShipmentRequest describes the shipment to create: where it goes, which
// freight service was selected at checkout, and the declared contents.
type ShipmentRequest struct {
	OrderID          string        `json:"order_id"`
	FreightServiceID int           `json:"service"`
	From             Party         `json:"from"`
	To               Party         `json:"to"`
	Products         []ProductItem `json:"products"`
}

type Party struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	ZIP      string `json:"postal_code"`
	Street   string `json:"address,omitempty"`
	Number   string `json:"number,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state_abbr,omitempty"`
}

type ProductItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unitary_value"`
}

// Shipment is the carrier's answer to a creation call. Raw keeps the full
// response body for the order's audit trail.
type Shipment struct {
	ID  string
	Raw json.RawMessage
}

// Purchase is the carrier's answer to a label purchase.
type Purchase struct {
	ID             string
	TrackingNumber string
	LabelURL       string
	Raw            json.RawMessage
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  *tokenSource
}

func NewClient(cfg config.Carrier, store TokenStore) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		tokens: &tokenSource{
			store:        store,
			http:         httpClient,
			baseURL:      cfg.BaseURL,
			clientID:     cfg.ClientID,
			clientSecret: cfg.ClientSecret,
		},
	}
}

func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (Shipment, error) {
	raw, err := c.post(ctx, "/v1/shipments", req)
	if err != nil {
		return Shipment{}, err
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Shipment{}, fmt.Errorf("failed to decode shipment response: %w", err)
	}
	if payload.ID == "" {
		return Shipment{}, fmt.Errorf("carrier returned shipment without id")
	}

	return Shipment{ID: payload.ID, Raw: raw}, nil
}

func (c *Client) PurchaseShipment(ctx context.Context, shipmentID string) (Purchase, error) {
	path := "/v1/shipments/" + url.PathEscape(shipmentID) + "/purchase"
	raw, err := c.post(ctx, path, nil)
	if err != nil {
		return Purchase{}, err
	}

	var payload struct {
		ID             string `json:"id"`
		TrackingNumber string `json:"tracking_number"`
		LabelURL       string `json:"label_url"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Purchase{}, fmt.Errorf("failed to decode purchase response: %w", err)
	}

	return Purchase{
		ID:             payload.ID,
		TrackingNumber: payload.TrackingNumber,
		LabelURL:       payload.LabelURL,
		Raw:            raw,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal carrier request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build carrier request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("carrier request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read carrier response: %w", err)
	}

	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("carrier responded with status %d: %s", res.StatusCode, raw)
	}
	return raw, nil
}
