package domain

import "time"

// Provider identifiers for the supported couriers.
const (
	ProviderPathao    = "pathao"
	ProviderSteadfast = "steadfast"
)

// SupportedProviders lists every courier this system can book against,
// regardless of whether credentials are configured yet.
var SupportedProviders = []string{ProviderPathao, ProviderSteadfast}

// IsSupportedProvider returns true if the provider identifier is known.
func IsSupportedProvider(provider string) bool {
	for _, p := range SupportedProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// CourierStatus represents the provider-side delivery pipeline stage of a
// consignment. It is tracked separately from the internal order status.
type CourierStatus string

const (
	// CourierStatusPending indicates the consignment is booked but not picked up.
	CourierStatusPending CourierStatus = "pending"
	// CourierStatusPickedUp indicates the courier has collected the parcel.
	CourierStatusPickedUp CourierStatus = "picked_up"
	// CourierStatusInTransit indicates the parcel is moving between hubs.
	CourierStatusInTransit CourierStatus = "in_transit"
	// CourierStatusOutForDelivery indicates the parcel is on its final leg.
	CourierStatusOutForDelivery CourierStatus = "out_for_delivery"
	// CourierStatusDelivered indicates the parcel reached the recipient.
	CourierStatusDelivered CourierStatus = "delivered"
	// CourierStatusFailedDelivery indicates a delivery attempt failed.
	CourierStatusFailedDelivery CourierStatus = "failed_delivery"
	// CourierStatusReturned indicates the parcel was sent back to the merchant.
	CourierStatusReturned CourierStatus = "returned"
	// CourierStatusCancelled indicates the consignment was cancelled.
	CourierStatusCancelled CourierStatus = "cancelled"
)

// IsTerminal returns true for statuses that end the courier lifecycle.
// A terminal status is never overwritten by a refresh.
func (s CourierStatus) IsTerminal() bool {
	switch s {
	case CourierStatusDelivered, CourierStatusReturned, CourierStatusCancelled:
		return true
	}
	return false
}

// ShipmentItem is a single line item inside a shipment payload.
type ShipmentItem struct {
	// Name is the product name as shown to the courier.
	Name string `json:"name"`
	// Quantity is the number of units.
	Quantity int `json:"quantity"`
	// WeightKg is the unit weight in kilograms.
	WeightKg float64 `json:"weight_kg"`
	// Price is the unit price.
	Price float64 `json:"price"`
}

// ShipmentPayload is the provider-agnostic order+recipient+item shape that
// every courier adapter consumes. It is built in memory and never persisted.
type ShipmentPayload struct {
	// OrderNumber is the merchant-side order reference.
	OrderNumber string `json:"order_number"`
	// RecipientName is the person receiving the parcel.
	RecipientName string `json:"recipient_name"`
	// RecipientPhone is the recipient contact number.
	RecipientPhone string `json:"recipient_phone"`
	// Address is the delivery street address.
	Address string `json:"address"`
	// City is the delivery city.
	City string `json:"city"`
	// Area is the delivery zone or area within the city.
	Area string `json:"area"`
	// Postcode is the delivery postal code.
	Postcode string `json:"postcode"`
	// Items are the parcel contents.
	Items []ShipmentItem `json:"items"`
	// DeliveryCharge is the amount charged to the customer for delivery.
	DeliveryCharge float64 `json:"delivery_charge"`
	// TotalAmount is the collectable amount (cash on delivery).
	TotalAmount float64 `json:"total_amount"`
	// Notes is free-text delivery instructions.
	Notes string `json:"notes"`
}

// TotalWeightKg sums the weight of all items in the payload.
func (p ShipmentPayload) TotalWeightKg() float64 {
	var total float64
	for _, item := range p.Items {
		total += item.WeightKg * float64(item.Quantity)
	}
	return total
}

// BookingResult is the canonical outcome of a courier order creation.
// Provider-side rejections set Success=false with Error populated; provider
// field names never leak past the adapter boundary.
type BookingResult struct {
	// Success reports whether the provider accepted the consignment.
	Success bool `json:"success"`
	// Error carries the normalized failure reason when Success is false.
	Error string `json:"error,omitempty"`
	// Provider is the courier that produced this result.
	Provider string `json:"provider"`
	// ConsignmentID is the provider-assigned shipment identifier.
	ConsignmentID string `json:"consignment_id,omitempty"`
	// TrackingNumber is the provider-assigned tracking code.
	TrackingNumber string `json:"tracking_number,omitempty"`
	// DeliveryFee is the fee the provider quoted for this consignment.
	DeliveryFee float64 `json:"delivery_fee,omitempty"`
}

// BulkBookingResult is the outcome of a bulk consignment submission.
type BulkBookingResult struct {
	// Success reports whether the provider accepted the batch.
	Success bool `json:"success"`
	// Error carries the normalized failure reason when Success is false.
	Error string `json:"error,omitempty"`
	// Provider is the courier that produced this result.
	Provider string `json:"provider"`
	// Items holds per-payload outcomes when the provider reports them.
	Items []BookingResult `json:"items,omitempty"`
}

// TrackingEvent is a single normalized entry in a consignment's event log.
type TrackingEvent struct {
	// Status is the canonical courier status at this event.
	Status CourierStatus `json:"status"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// Location is where the event occurred, if the provider reports one.
	Location string `json:"location,omitempty"`
	// Note is the provider's human-readable description.
	Note string `json:"note,omitempty"`
}

// StatusResult is the canonical outcome of a courier status lookup.
type StatusResult struct {
	// Success reports whether a status could be retrieved.
	Success bool `json:"success"`
	// Error carries the normalized failure reason when Success is false.
	Error string `json:"error,omitempty"`
	// Provider is the courier that produced this result.
	Provider string `json:"provider"`
	// Status is the current canonical courier status.
	Status CourierStatus `json:"status,omitempty"`
	// Events is the normalized chronological event log.
	Events []TrackingEvent `json:"events,omitempty"`
}

// ShipmentRef identifies an existing consignment for status lookups.
// Providers differ in which reference they accept, so all known ones travel
// together and each adapter picks what it needs.
type ShipmentRef struct {
	// ConsignmentID is the provider-assigned shipment identifier.
	ConsignmentID string `json:"consignment_id"`
	// Invoice is the merchant order reference submitted at booking.
	Invoice string `json:"invoice,omitempty"`
	// TrackingNumber is the provider-assigned tracking code.
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// PriceParams carries the inputs for a delivery price estimate.
type PriceParams struct {
	// City is the recipient city.
	City string `json:"city"`
	// Zone is the recipient zone or area.
	Zone string `json:"zone,omitempty"`
	// WeightKg is the total parcel weight in kilograms.
	WeightKg float64 `json:"weight_kg"`
	// CodAmount is the collectable amount, used for COD fee calculation.
	CodAmount float64 `json:"cod_amount,omitempty"`
}

// PriceResult is the canonical outcome of a price estimate.
type PriceResult struct {
	// Success reports whether the provider returned a quote.
	Success bool `json:"success"`
	// Error carries the normalized failure reason when Success is false.
	Error string `json:"error,omitempty"`
	// Provider is the courier that produced this result.
	Provider string `json:"provider"`
	// Price is the quoted delivery fee.
	Price float64 `json:"price,omitempty"`
}
