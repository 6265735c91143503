package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/types"
)

type orderResponse struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	AddressID   uuid.UUID          `json:"address_id"`
	Status      string             `json:"status"`
	Total       string             `json:"total"`
	Items       []lineItemResponse `json:"items"`
	Shipment    *shipmentResponse  `json:"shipment,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	ConfirmedAt *time.Time         `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time         `json:"cancelled_at,omitempty"`
	AbandonedAt *time.Time         `json:"abandoned_at,omitempty"`
	DeliveredAt *time.Time         `json:"delivered_at,omitempty"`
}

type lineItemResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
}

type shipmentResponse struct {
	ID          uuid.UUID             `json:"id"`
	Status      string                `json:"status"`
	Cost        string                `json:"cost"`
	ScheduledAt time.Time             `json:"scheduled_at"`
	Carrier     types.CarrierSnapshot `json:"carrier"`
}

func newOrderResponse(order *models.Order, shipment *models.Shipment) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]lineItemResponse, 0, len(order.LineItems))
	for _, line := range order.LineItems {
		items = append(items, lineItemResponse{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ImageURL:    line.ImageURL,
			Category:    line.Category,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Subtotal:    line.Subtotal.StringFixed(2),
		})
	}
	resp := orderResponse{
		ID:          order.ID,
		UserID:      order.UserID,
		AddressID:   order.AddressID,
		Status:      string(order.Status),
		Total:       order.Total.StringFixed(2),
		Items:       items,
		CreatedAt:   order.CreatedAt,
		ConfirmedAt: order.ConfirmedAt,
		CancelledAt: order.CancelledAt,
		AbandonedAt: order.AbandonedAt,
		DeliveredAt: order.DeliveredAt,
	}
	if shipment != nil {
		resp.Shipment = &shipmentResponse{
			ID:          shipment.ID,
			Status:      string(shipment.Status),
			Cost:        shipment.Cost.StringFixed(2),
			ScheduledAt: shipment.ScheduledAt,
			Carrier:     shipment.CarrierSnapshot,
		}
	}
	return resp
}

type notificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func newNotificationResponses(rows []models.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, notificationResponse{
			ID:        row.ID,
			OrderID:   row.OrderID,
			Type:      string(row.Type),
			Title:     row.Title,
			Message:   row.Message,
			ReadAt:    row.ReadAt,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}
