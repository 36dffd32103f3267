package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/httpclient"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/logger"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"

	"go.uber.org/zap"
)

// tokenSafetyWindow is subtracted from the provider-reported expiry so a
// token is refreshed before it actually lapses mid-request.
const tokenSafetyWindow = 30 * time.Second

// pathaoStatusMap translates Pathao order-status slugs into canonical statuses.
var pathaoStatusMap = map[string]domain.CourierStatus{
	"pending":                   domain.CourierStatusPending,
	"pickup_requested":          domain.CourierStatusPending,
	"assigned_for_pickup":       domain.CourierStatusPending,
	"picked":                    domain.CourierStatusPickedUp,
	"pickup_completed":          domain.CourierStatusPickedUp,
	"at_the_sorting_hub":        domain.CourierStatusInTransit,
	"in_transit":                domain.CourierStatusInTransit,
	"received_at_last_mile_hub": domain.CourierStatusInTransit,
	"assigned_for_delivery":     domain.CourierStatusOutForDelivery,
	"on_the_way_to_deliver":     domain.CourierStatusOutForDelivery,
	"delivered":                 domain.CourierStatusDelivered,
	"partial_delivery":          domain.CourierStatusDelivered,
	"delivery_failed":           domain.CourierStatusFailedDelivery,
	"on_hold":                   domain.CourierStatusFailedDelivery,
	"return":                    domain.CourierStatusReturned,
	"returned":                  domain.CourierStatusReturned,
	"pickup_cancelled":          domain.CourierStatusCancelled,
	"cancelled":                 domain.CourierStatusCancelled,
}

// PathaoAdapter implements the courier provider interface against the Pathao
// merchant API. Authentication is an OAuth2 password grant with refresh; the
// adapter owns a short-lived token cache scoped to one credential revision.
type PathaoAdapter struct {
	baseURL string
	secrets domain.PathaoSecrets
	client  *http.Client
	logger  *zap.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
}

// NewPathaoAdapter creates a PathaoAdapter for one credential set.
func NewPathaoAdapter(baseURL string, secrets domain.PathaoSecrets, timeout time.Duration) *PathaoAdapter {
	return &PathaoAdapter{
		baseURL: baseURL,
		secrets: secrets,
		client:  httpclient.NewClient(timeout),
		logger:  logger.Get(),
	}
}

// Name returns the provider identifier.
func (a *PathaoAdapter) Name() string {
	return domain.ProviderPathao
}

// pathaoTokenResponse is the issue-token endpoint response.
type pathaoTokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// pathaoEnvelope is the common response wrapper of the Pathao merchant API.
type pathaoEnvelope struct {
	Type    string          `json:"type"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// pathaoConsignment is the data payload of a successful order creation.
type pathaoConsignment struct {
	ConsignmentID   string  `json:"consignment_id"`
	MerchantOrderID string  `json:"merchant_order_id"`
	OrderStatus     string  `json:"order_status"`
	DeliveryFee     float64 `json:"delivery_fee"`
}

// pathaoTrackData is the data payload of a tracking lookup.
type pathaoTrackData struct {
	OrderStatus     string `json:"order_status"`
	OrderStatusSlug string `json:"order_status_slug"`
	UpdatedAt       string `json:"updated_at"`
	Events          []struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		Location  string `json:"location"`
		Note      string `json:"note"`
	} `json:"events"`
}

// pathaoPriceData is the data payload of a price-plan lookup.
type pathaoPriceData struct {
	Price      float64 `json:"price"`
	FinalPrice float64 `json:"final_price"`
}

// token returns a valid access token, reusing the cached one when unexpired,
// exchanging the refresh token when held, and falling back to a full
// password grant when the refresh exchange fails or no refresh token exists.
func (a *PathaoAdapter) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry.Add(-tokenSafetyWindow)) {
		return a.accessToken, nil
	}

	if a.refreshToken != "" {
		if err := a.issueTokenLocked(ctx, map[string]string{
			"client_id":     a.secrets.ClientID,
			"client_secret": a.secrets.ClientSecret,
			"grant_type":    "refresh_token",
			"refresh_token": a.refreshToken,
		}); err == nil {
			return a.accessToken, nil
		}
		a.logger.Warn("Pathao token refresh failed, falling back to password grant")
		a.refreshToken = ""
	}

	if err := a.issueTokenLocked(ctx, map[string]string{
		"client_id":     a.secrets.ClientID,
		"client_secret": a.secrets.ClientSecret,
		"grant_type":    "password",
		"username":      a.secrets.Username,
		"password":      a.secrets.Password,
	}); err != nil {
		return "", err
	}

	return a.accessToken, nil
}

// issueTokenLocked performs one issue-token call. Caller holds a.mu.
func (a *PathaoAdapter) issueTokenLocked(ctx context.Context, grant map[string]string) error {
	body, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/aladdin/api/v1/issue-token", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pathao token endpoint returned status %d", resp.StatusCode)
	}

	var tok pathaoTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("pathao token endpoint returned an empty access token")
	}

	a.accessToken = tok.AccessToken
	a.refreshToken = tok.RefreshToken
	a.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return nil
}

// call issues one authenticated request and decodes the provider envelope.
// A non-2xx status or a non-success envelope type yields (envelope, false, nil);
// transport failures are returned as errors for the service layer to catch.
func (a *PathaoAdapter) call(ctx context.Context, method, path string, payload interface{}) (*pathaoEnvelope, bool, error) {
	accessToken, err := a.token(ctx)
	if err != nil {
		return nil, false, err
	}

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope pathaoEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, false, fmt.Errorf("failed to decode pathao response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300 && envelope.Type == "success"
	if envelope.Message == "" && !ok {
		envelope.Message = fmt.Sprintf("pathao returned status %d", resp.StatusCode)
	}
	return &envelope, ok, nil
}

// orderRequest maps a canonical payload to the Pathao order shape.
func (a *PathaoAdapter) orderRequest(payload domain.ShipmentPayload) map[string]interface{} {
	quantity := 0
	for _, item := range payload.Items {
		quantity += item.Quantity
	}

	return map[string]interface{}{
		"store_id":            a.secrets.StoreID,
		"merchant_order_id":   payload.OrderNumber,
		"recipient_name":      payload.RecipientName,
		"recipient_phone":     payload.RecipientPhone,
		"recipient_address":   payload.Address,
		"recipient_city":      payload.City,
		"recipient_zone":      payload.Area,
		"delivery_type":       48,
		"item_type":           2,
		"item_quantity":       quantity,
		"item_weight":         payload.TotalWeightKg(),
		"amount_to_collect":   payload.TotalAmount,
		"special_instruction": payload.Notes,
	}
}

// CreateOrder submits one consignment to Pathao.
func (a *PathaoAdapter) CreateOrder(ctx context.Context, payload domain.ShipmentPayload) (*domain.BookingResult, error) {
	envelope, ok, err := a.call(ctx, http.MethodPost, "/aladdin/api/v1/orders", a.orderRequest(payload))
	if err != nil {
		return nil, err
	}
	if !ok {
		return &domain.BookingResult{Success: false, Provider: a.Name(), Error: envelope.Message}, nil
	}

	var consignment pathaoConsignment
	if err := json.Unmarshal(envelope.Data, &consignment); err != nil {
		return nil, fmt.Errorf("failed to decode pathao consignment: %w", err)
	}

	return &domain.BookingResult{
		Success:        true,
		Provider:       a.Name(),
		ConsignmentID:  consignment.ConsignmentID,
		TrackingNumber: consignment.ConsignmentID,
		DeliveryFee:    consignment.DeliveryFee,
	}, nil
}

// BulkCreate submits a batch of consignments to Pathao. The bulk endpoint
// accepts the batch for asynchronous processing, so no per-item consignment
// ids are returned.
func (a *PathaoAdapter) BulkCreate(ctx context.Context, payloads []domain.ShipmentPayload) (*domain.BulkBookingResult, error) {
	orders := make([]map[string]interface{}, 0, len(payloads))
	for _, payload := range payloads {
		orders = append(orders, a.orderRequest(payload))
	}

	envelope, ok, err := a.call(ctx, http.MethodPost, "/aladdin/api/v1/orders/bulk", map[string]interface{}{"orders": orders})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &domain.BulkBookingResult{Success: false, Provider: a.Name(), Error: envelope.Message}, nil
	}

	return &domain.BulkBookingResult{Success: true, Provider: a.Name()}, nil
}

// GetStatus looks up a consignment's delivery status.
func (a *PathaoAdapter) GetStatus(ctx context.Context, ref domain.ShipmentRef) (*domain.StatusResult, error) {
	path := fmt.Sprintf("/aladdin/api/v1/orders/track/%s", ref.ConsignmentID)
	envelope, ok, err := a.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &domain.StatusResult{Success: false, Provider: a.Name(), Error: envelope.Message}, nil
	}

	var track pathaoTrackData
	if err := json.Unmarshal(envelope.Data, &track); err != nil {
		return nil, fmt.Errorf("failed to decode pathao tracking data: %w", err)
	}

	slug := track.OrderStatusSlug
	if slug == "" {
		slug = track.OrderStatus
	}

	events := make([]domain.TrackingEvent, 0, len(track.Events))
	for _, e := range track.Events {
		ts, _ := time.Parse(time.RFC3339, e.Timestamp)
		events = append(events, domain.TrackingEvent{
			Status:    a.mapStatus(e.Status),
			Timestamp: ts,
			Location:  e.Location,
			Note:      e.Note,
		})
	}

	return &domain.StatusResult{
		Success:  true,
		Provider: a.Name(),
		Status:   a.mapStatus(slug),
		Events:   events,
	}, nil
}

// CalculatePrice quotes a delivery fee through the price-plan endpoint.
func (a *PathaoAdapter) CalculatePrice(ctx context.Context, params domain.PriceParams) (*domain.PriceResult, error) {
	request := map[string]interface{}{
		"store_id":       a.secrets.StoreID,
		"item_type":      2,
		"delivery_type":  48,
		"item_weight":    strconv.FormatFloat(params.WeightKg, 'f', -1, 64),
		"recipient_city": params.City,
		"recipient_zone": params.Zone,
	}

	envelope, ok, err := a.call(ctx, http.MethodPost, "/aladdin/api/v1/merchant/price-plan", request)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &domain.PriceResult{Success: false, Provider: a.Name(), Error: envelope.Message}, nil
	}

	var price pathaoPriceData
	if err := json.Unmarshal(envelope.Data, &price); err != nil {
		return nil, fmt.Errorf("failed to decode pathao price data: %w", err)
	}

	quoted := price.FinalPrice
	if quoted == 0 {
		quoted = price.Price
	}

	return &domain.PriceResult{Success: true, Provider: a.Name(), Price: quoted}, nil
}

// mapStatus converts a Pathao status slug into the canonical courier status.
func (a *PathaoAdapter) mapStatus(slug string) domain.CourierStatus {
	if status, known := pathaoStatusMap[slug]; known {
		return status
	}
	a.logger.Warn("Unknown Pathao status encountered", zap.String("status", slug))
	return domain.CourierStatusPending
}
