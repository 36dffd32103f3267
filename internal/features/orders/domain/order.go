package domain

import (
	"time"

	courier "github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus represents the internal fulfillment stage of an order. It is
// tracked separately from the courier's delivery-pipeline status.
type OrderStatus string

const (
	// OrderStatusPending indicates the order is placed but not yet processed.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates the order is being prepared.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order has been handed to a courier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Recipient holds the shipping destination of an order.
type Recipient struct {
	// Name is the person receiving the order.
	Name string `bson:"name" json:"name"`
	// Phone is the recipient contact number.
	Phone string `bson:"phone" json:"phone"`
	// Address is the delivery street address.
	Address string `bson:"address" json:"address"`
	// City is the delivery city.
	City string `bson:"city" json:"city"`
	// Area is the delivery zone within the city.
	Area string `bson:"area,omitempty" json:"area,omitempty"`
	// Postcode is the delivery postal code.
	Postcode string `bson:"postcode,omitempty" json:"postcode,omitempty"`
}

// OrderItem is a purchased line item.
type OrderItem struct {
	// Name is the product name.
	Name string `bson:"name" json:"name"`
	// Quantity is the number of units purchased.
	Quantity int `bson:"quantity" json:"quantity"`
	// WeightKg is the unit weight in kilograms; zero means unknown.
	WeightKg float64 `bson:"weightKg,omitempty" json:"weight_kg,omitempty"`
	// Price is the unit price.
	Price float64 `bson:"price" json:"price"`
}

// TrackingStep is one entry in the order's internal status history.
type TrackingStep struct {
	// Status is the internal order status at this step.
	Status OrderStatus `bson:"status" json:"status"`
	// Timestamp is when the step occurred.
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	// Note is an optional comment.
	Note string `bson:"note,omitempty" json:"note,omitempty"`
}

// CourierInfo is the order's courier sub-record. It is populated only after
// a successful adapter call and set at most once per order under normal
// flow; rebooking requires the explicit removal path.
type CourierInfo struct {
	// Provider is the booked courier (the courier booking).
	Provider string `bson:"provider" json:"provider"`
	// ConsignmentID is the provider-assigned shipment identifier.
	ConsignmentID string `bson:"consignmentId" json:"consignment_id"`
	// TrackingNumber is the provider-assigned tracking code.
	TrackingNumber string `bson:"trackingNumber,omitempty" json:"tracking_number,omitempty"`
	// Status is the provider-side delivery status.
	Status courier.CourierStatus `bson:"status" json:"status"`
	// DeliveryFee is the fee quoted by the provider at booking.
	DeliveryFee float64 `bson:"deliveryFee,omitempty" json:"delivery_fee,omitempty"`
	// EstimatedDelivery is the provider's delivery estimate, when reported.
	EstimatedDelivery *time.Time `bson:"estimatedDelivery,omitempty" json:"estimated_delivery,omitempty"`
	// TrackingSteps is the normalized provider event log, replaced wholesale
	// on each status refresh.
	TrackingSteps []courier.TrackingEvent `bson:"trackingSteps,omitempty" json:"tracking_steps,omitempty"`
	// BookedAt is when the consignment was created.
	BookedAt time.Time `bson:"bookedAt" json:"booked_at"`
	// StatusCheckedAt is when the status was last refreshed from the provider.
	StatusCheckedAt time.Time `bson:"statusCheckedAt,omitempty" json:"status_checked_at,omitempty"`
}

// Order represents a customer order. Product, client and shipping references
// are immutable once created; only status, tracking and the courier
// sub-record change afterwards.
type Order struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// OrderNumber is the merchant-facing order reference.
	OrderNumber string `bson:"orderNumber" json:"order_number"`
	// UserID identifies the ordering customer.
	UserID string `bson:"userId" json:"user_id"`
	// Recipient is the shipping destination.
	Recipient Recipient `bson:"recipient" json:"recipient"`
	// Items are the purchased products.
	Items []OrderItem `bson:"items" json:"items"`
	// TotalPrice is the amount payable after discounts.
	TotalPrice float64 `bson:"totalPrice" json:"total_price"`
	// OriginalPrice is the amount before discounts.
	OriginalPrice float64 `bson:"originalPrice" json:"original_price"`
	// DiscountAmount is the applied coupon discount.
	DiscountAmount float64 `bson:"discountAmount,omitempty" json:"discount_amount,omitempty"`
	// CouponCode is the applied coupon code, if any.
	CouponCode string `bson:"couponCode,omitempty" json:"coupon_code,omitempty"`
	// CouponID references the applied coupon record.
	CouponID *primitive.ObjectID `bson:"couponId,omitempty" json:"coupon_id,omitempty"`
	// PaymentMethod is how the order is paid.
	PaymentMethod string `bson:"paymentMethod" json:"payment_method"`
	// PaymentStatus is the payment state.
	PaymentStatus string `bson:"paymentStatus" json:"payment_status"`
	// Status is the internal fulfillment stage.
	Status OrderStatus `bson:"status" json:"status"`
	// TrackingSteps is the append-only internal status history.
	TrackingSteps []TrackingStep `bson:"trackingSteps,omitempty" json:"tracking_steps,omitempty"`
	// Courier is the courier sub-record, nil while unbooked.
	Courier   *CourierInfo `bson:"courier,omitempty" json:"courier,omitempty"`
	CreatedAt time.Time    `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time    `bson:"updatedAt" json:"updated_at"`
}

// HasCourierBooking returns true once a consignment exists for this order.
func (o *Order) HasCourierBooking() bool {
	return o.Courier != nil && o.Courier.ConsignmentID != "" && o.Courier.Provider != ""
}

// HasShippingAddress returns true when the order carries enough of a
// destination to build a shipment payload. Name and phone may be defaulted,
// address and city may not.
func (o *Order) HasShippingAddress() bool {
	return o.Recipient.Address != "" && o.Recipient.City != ""
}

// CanChangeCourier returns true while the order may still be rebooked:
// either no consignment exists yet, or the existing one has not left the
// pending stage.
func (o *Order) CanChangeCourier() bool {
	if !o.HasCourierBooking() {
		return true
	}
	return o.Courier.Status == courier.CourierStatusPending
}

// CanRemoveCourierBooking returns true while the consignment may be deleted:
// only in the pending or cancelled stage.
func (o *Order) CanRemoveCourierBooking() bool {
	if !o.HasCourierBooking() {
		return false
	}
	switch o.Courier.Status {
	case courier.CourierStatusPending, courier.CourierStatusCancelled:
		return true
	}
	return false
}
