// internal/service/checkout/infrastructure/mapper.go
package infrastructure

import (
	"encoding/json"

	"github.com/pkg/errors"

	"kasir/internal/service/checkout/domain"
)

// toModel 领域对象转持久化模型。
func toModel(c *domain.Checkout) (*CheckoutModel, error) {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return nil, errors.Wrap(err, "marshal checkout items")
	}

	var addressJSON string
	if c.ShippingAddress != nil {
		raw, err := json.Marshal(c.ShippingAddress)
		if err != nil {
			return nil, errors.Wrap(err, "marshal shipping address")
		}
		addressJSON = string(raw)
	}

	return &CheckoutModel{
		ID:              c.ID,
		CheckoutID:      c.CheckoutID,
		UserID:          c.UserID,
		SourceCartID:    c.SourceCartID,
		OrderID:         c.OrderID,
		PaymentCode:     c.PaymentCode,
		Items:           string(itemsJSON),
		TotalPrice:      c.TotalPrice,
		Currency:        c.Currency,
		Status:          string(c.Status),
		ShippingAddress: addressJSON,
		LockedAt:        c.LockedAt,
		ExpiresAt:       c.ExpiresAt,
		CreatedAt:       c.CreatedAt,
		PaidAt:          c.PaidAt,
		CancelledAt:     c.CancelledAt,
		CancelReason:    c.CancelReason,
	}, nil
}

// toDomain 持久化模型转领域对象。
func toDomain(m *CheckoutModel) (*domain.Checkout, error) {
	var items []domain.CheckoutItem
	if m.Items != "" {
		if err := json.Unmarshal([]byte(m.Items), &items); err != nil {
			return nil, errors.Wrap(err, "unmarshal checkout items")
		}
	}

	var address *domain.AddressSnapshot
	if m.ShippingAddress != "" {
		address = &domain.AddressSnapshot{}
		if err := json.Unmarshal([]byte(m.ShippingAddress), address); err != nil {
			return nil, errors.Wrap(err, "unmarshal shipping address")
		}
	}

	return &domain.Checkout{
		ID:              m.ID,
		CheckoutID:      m.CheckoutID,
		UserID:          m.UserID,
		SourceCartID:    m.SourceCartID,
		OrderID:         m.OrderID,
		PaymentCode:     m.PaymentCode,
		Items:           items,
		TotalPrice:      m.TotalPrice,
		Currency:        m.Currency,
		Status:          domain.Status(m.Status),
		ShippingAddress: address,
		LockedAt:        m.LockedAt,
		ExpiresAt:       m.ExpiresAt,
		CreatedAt:       m.CreatedAt,
		PaidAt:          m.PaidAt,
		CancelledAt:     m.CancelledAt,
		CancelReason:    m.CancelReason,
	}, nil
}
