package models

import "time"

// Purchase lifecycle. pending → paid via the payment sync worker;
// pending → expired via the maintenance scheduler.
const (
	PurchaseStatusPending = "pending"
	PurchaseStatusPaid    = "paid"
	PurchaseStatusExpired = "expired"
)

// MessagePurchase is one message-pack order. The price is frozen at creation
// (promo discount included); crediting happens only on the pending→paid
// transition, which is a conditional update and therefore runs once.
type MessagePurchase struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          int64      `gorm:"index;not null" json:"user_id"`
	MessagesCount   int64      `gorm:"not null" json:"messages_count"`
	BasePriceRub    float64    `gorm:"not null" json:"base_price_rub"`
	FinalPriceRub   float64    `gorm:"not null" json:"final_price_rub"`
	Promocode       *string    `gorm:"size:64" json:"promocode,omitempty"`
	DiscountPercent *int       `json:"discount_percent,omitempty"`
	Status          string     `gorm:"size:16;not null;default:'pending';index" json:"status"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

// MessagePack is a purchasable bundle. TaskCode is the purchases-category task
// advanced when a pack of this tier is paid (BUY_0 advances on any first pack).
type MessagePack struct {
	MessagesCount int64   `json:"messages_count"`
	PriceRub      float64 `json:"price_rub"`
	TaskCode      string  `json:"task_code"`
}

// MessagePacks mirrors the storefront tiers
var MessagePacks = []MessagePack{
	{MessagesCount: 10, PriceRub: 49, TaskCode: "BUY_1"},
	{MessagesCount: 50, PriceRub: 199, TaskCode: "BUY_2"},
	{MessagesCount: 100, PriceRub: 349, TaskCode: "BUY_3"},
	{MessagesCount: 300, PriceRub: 799, TaskCode: "BUY_4"},
	{MessagesCount: 1000, PriceRub: 1999, TaskCode: "BUY_5"},
}

// PackByMessagesCount finds the storefront tier for an order size.
func PackByMessagesCount(count int64) (MessagePack, bool) {
	for _, pack := range MessagePacks {
		if pack.MessagesCount == count {
			return pack, true
		}
	}
	return MessagePack{}, false
}
