package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

// Client asks an external pricing service for dynamic prices.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.DynamicPricer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type priceRequest struct {
	ProductID  string   `json:"productId"`
	SKU        string   `json:"sku"`
	Title      string   `json:"title"`
	Category   string   `json:"category,omitempty"`
	Brand      string   `json:"brand,omitempty"`
	Cost       *float64 `json:"cost"`
	Price      *float64 `json:"price"`
	Currency   string   `json:"currency,omitempty"`
	Stock      int      `json:"stock"`
	SupplierID string   `json:"supplierId,omitempty"`
	RuleID     string   `json:"ruleId"`
	RuleValue  float64  `json:"ruleValue"`
}

// Price sends the product and rule to /price and returns the suggested price.
func (c *Client) Price(ctx context.Context, product domain.Product, rule domain.PricingRule) (float64, error) {
	payload := priceRequest{
		ProductID:  product.ID,
		SKU:        product.SKU,
		Title:      product.Title,
		Category:   product.Category,
		Brand:      product.Brand,
		Cost:       product.Cost,
		Price:      product.Price,
		Currency:   product.Currency,
		Stock:      product.Stock,
		SupplierID: product.SupplierID,
		RuleID:     rule.ID,
		RuleValue:  rule.Value,
	}

	var resp struct {
		Price *float64 `json:"price"`
	}
	if err := c.post(ctx, "/price", payload, &resp); err != nil {
		return 0, err
	}
	if resp.Price == nil {
		return 0, fmt.Errorf("pricing service returned no price")
	}
	return *resp.Price, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
