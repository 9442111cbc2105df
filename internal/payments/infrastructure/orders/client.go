package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
)

// Client is the order-lookup adapter over the orders service's REST API.
type Client struct {
	log     *slog.Logger
	baseURL string
	hc      *http.Client
}

func NewClient(log *slog.Logger, baseURL string) *Client {
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) FindOrder(ctx context.Context, orderID string) (domain.Order, error) {
	url := fmt.Sprintf("%s/v1/orders/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Order{}, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Order{}, domain.ErrOrderNotFound
	default:
		return domain.Order{}, fmt.Errorf("orders service returned %d for order %s", resp.StatusCode, orderID)
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return order, nil
}
