package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/httpclient"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/logger"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"

	"go.uber.org/zap"
)

// steadfastStatusMap translates Steadfast delivery statuses into canonical
// statuses. Steadfast reports only coarse delivery states, no hub-level
// movement.
var steadfastStatusMap = map[string]domain.CourierStatus{
	"in_review":                          domain.CourierStatusPending,
	"pending":                            domain.CourierStatusPending,
	"delivered":                          domain.CourierStatusDelivered,
	"delivered_approval_pending":         domain.CourierStatusDelivered,
	"partial_delivered":                  domain.CourierStatusDelivered,
	"partial_delivered_approval_pending": domain.CourierStatusDelivered,
	"cancelled":                          domain.CourierStatusCancelled,
	"cancelled_approval_pending":         domain.CourierStatusCancelled,
	"hold":                               domain.CourierStatusFailedDelivery,
}

// SteadfastAdapter implements the courier provider interface against the
// Steadfast API. Authentication is a static API-key/secret header pair with
// no token lifecycle.
type SteadfastAdapter struct {
	baseURL string
	secrets domain.SteadfastSecrets
	client  *http.Client
	logger  *zap.Logger
}

// NewSteadfastAdapter creates a SteadfastAdapter for one credential set.
func NewSteadfastAdapter(baseURL string, secrets domain.SteadfastSecrets, timeout time.Duration) *SteadfastAdapter {
	return &SteadfastAdapter{
		baseURL: baseURL,
		secrets: secrets,
		client:  httpclient.NewClient(timeout),
		logger:  logger.Get(),
	}
}

// Name returns the provider identifier.
func (a *SteadfastAdapter) Name() string {
	return domain.ProviderSteadfast
}

// steadfastConsignment is the consignment payload of a creation response.
type steadfastConsignment struct {
	ConsignmentID json.Number `json:"consignment_id"`
	Invoice       string      `json:"invoice"`
	TrackingCode  string      `json:"tracking_code"`
	Status        string      `json:"status"`
}

// steadfastCreateResponse is the create_order response envelope.
type steadfastCreateResponse struct {
	Status      int                   `json:"status"`
	Message     string                `json:"message"`
	Consignment *steadfastConsignment `json:"consignment"`
}

// steadfastBulkResponse is the bulk-order response envelope.
type steadfastBulkResponse struct {
	Status  int                    `json:"status"`
	Message string                 `json:"message"`
	Data    []steadfastConsignment `json:"data"`
}

// steadfastStatusResponse is the status lookup response envelope.
type steadfastStatusResponse struct {
	Status         int    `json:"status"`
	Message        string `json:"message"`
	DeliveryStatus string `json:"delivery_status"`
}

// do issues one request with the fixed auth headers and decodes into out.
// Transport failures are returned as errors; everything else is left for the
// caller to judge from the decoded envelope.
func (a *SteadfastAdapter) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", a.secrets.APIKey)
	req.Header.Set("Secret-Key", a.secrets.SecretKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode steadfast response: %w", err)
	}
	return nil
}

// createPayload maps a canonical payload to the Steadfast order shape.
func createPayload(payload domain.ShipmentPayload) map[string]interface{} {
	return map[string]interface{}{
		"invoice":           payload.OrderNumber,
		"recipient_name":    payload.RecipientName,
		"recipient_phone":   payload.RecipientPhone,
		"recipient_address": fmt.Sprintf("%s, %s", payload.Address, payload.City),
		"cod_amount":        payload.TotalAmount,
		"note":              payload.Notes,
	}
}

// CreateOrder submits one consignment to Steadfast.
func (a *SteadfastAdapter) CreateOrder(ctx context.Context, payload domain.ShipmentPayload) (*domain.BookingResult, error) {
	var resp steadfastCreateResponse
	if err := a.do(ctx, http.MethodPost, "/api/v1/create_order", createPayload(payload), &resp); err != nil {
		return nil, err
	}

	if resp.Status != http.StatusOK || resp.Consignment == nil {
		message := resp.Message
		if message == "" {
			message = fmt.Sprintf("steadfast returned status %d", resp.Status)
		}
		return &domain.BookingResult{Success: false, Provider: a.Name(), Error: message}, nil
	}

	return &domain.BookingResult{
		Success:        true,
		Provider:       a.Name(),
		ConsignmentID:  resp.Consignment.ConsignmentID.String(),
		TrackingNumber: resp.Consignment.TrackingCode,
	}, nil
}

// BulkCreate submits a batch of consignments to Steadfast.
func (a *SteadfastAdapter) BulkCreate(ctx context.Context, payloads []domain.ShipmentPayload) (*domain.BulkBookingResult, error) {
	data := make([]map[string]interface{}, 0, len(payloads))
	for _, payload := range payloads {
		data = append(data, createPayload(payload))
	}

	var resp steadfastBulkResponse
	if err := a.do(ctx, http.MethodPost, "/api/v1/create_order/bulk-order", map[string]interface{}{"data": data}, &resp); err != nil {
		return nil, err
	}

	if resp.Status != http.StatusOK {
		message := resp.Message
		if message == "" {
			message = fmt.Sprintf("steadfast returned status %d", resp.Status)
		}
		return &domain.BulkBookingResult{Success: false, Provider: a.Name(), Error: message}, nil
	}

	items := make([]domain.BookingResult, 0, len(resp.Data))
	for _, consignment := range resp.Data {
		items = append(items, domain.BookingResult{
			Success:        consignment.Status != "error",
			Provider:       a.Name(),
			ConsignmentID:  consignment.ConsignmentID.String(),
			TrackingNumber: consignment.TrackingCode,
		})
	}

	return &domain.BulkBookingResult{Success: true, Provider: a.Name(), Items: items}, nil
}

// GetStatus tries the status-lookup endpoints in sequence (consignment id,
// invoice, tracking code) and returns the first success. If every endpoint
// fails, a structured failure is returned, never a partial result.
func (a *SteadfastAdapter) GetStatus(ctx context.Context, ref domain.ShipmentRef) (*domain.StatusResult, error) {
	lookups := []struct {
		path string
		key  string
	}{
		{path: "/api/v1/status_by_cid/" + ref.ConsignmentID, key: ref.ConsignmentID},
		{path: "/api/v1/status_by_invoice/" + ref.Invoice, key: ref.Invoice},
		{path: "/api/v1/status_by_trackingcode/" + ref.TrackingNumber, key: ref.TrackingNumber},
	}

	var lastMessage string
	for _, lookup := range lookups {
		if lookup.key == "" {
			continue
		}

		var resp steadfastStatusResponse
		if err := a.do(ctx, http.MethodGet, lookup.path, nil, &resp); err != nil {
			lastMessage = err.Error()
			a.logger.Debug("Steadfast status lookup failed, trying next endpoint",
				zap.String("path", lookup.path),
				zap.Error(err),
			)
			continue
		}

		if resp.Status != http.StatusOK || resp.DeliveryStatus == "" {
			if resp.Message != "" {
				lastMessage = resp.Message
			} else {
				lastMessage = fmt.Sprintf("steadfast returned status %d", resp.Status)
			}
			continue
		}

		status := a.mapStatus(resp.DeliveryStatus)
		return &domain.StatusResult{
			Success:  true,
			Provider: a.Name(),
			Status:   status,
			Events: []domain.TrackingEvent{
				{Status: status, Timestamp: time.Now(), Note: resp.DeliveryStatus},
			},
		}, nil
	}

	if lastMessage == "" {
		lastMessage = "no shipment reference available for status lookup"
	}
	return &domain.StatusResult{Success: false, Provider: a.Name(), Error: lastMessage}, nil
}

// CalculatePrice is not offered by the Steadfast API.
func (a *SteadfastAdapter) CalculatePrice(ctx context.Context, params domain.PriceParams) (*domain.PriceResult, error) {
	return &domain.PriceResult{
		Success:  false,
		Provider: a.Name(),
		Error:    "steadfast does not support price calculation",
	}, nil
}

// mapStatus converts a Steadfast delivery status into the canonical courier status.
func (a *SteadfastAdapter) mapStatus(status string) domain.CourierStatus {
	if mapped, known := steadfastStatusMap[status]; known {
		return mapped
	}
	a.logger.Warn("Unknown Steadfast delivery status encountered", zap.String("status", status))
	return domain.CourierStatusPending
}
