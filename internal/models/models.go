package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderStatus is the closed set of states an order can be in. There is no
// enforced ordering between them: the admin panel may move an order to any
// status, the payment step always moves it to "paid".
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusPaid      OrderStatus = "paid"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusPaid:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

type Order struct {
	ID            uint        `gorm:"primaryKey"              json:"id"`
	CustomerEmail string      `gorm:"size:160;not null;index" json:"customer_email"`
	ProductIDs    string      `gorm:"type:text;not null"      json:"-"`
	TotalAmount   float64     `gorm:"not null"                json:"total_amount"`
	Status        OrderStatus `gorm:"size:20;not null;index"  json:"status"`
	FullName      string      `gorm:"size:160"                json:"full_name"`
	Phone         string      `gorm:"size:40"                 json:"phone"`
	Address       string      `gorm:"type:text"               json:"address"`
	Notes         string      `gorm:"type:text"               json:"notes"`
	UserID        uint        `gorm:"index;not null"          json:"user_id"`
	CreatedAt     time.Time   `gorm:"not null;index"          json:"created_at"`
}

// ProductIDList decodes the denormalized product-id column kept on the
// header, so the order stays reconstructible when item rows are missing.
func (o *Order) ProductIDList() []int {
	var ids []int
	if err := json.Unmarshal([]byte(o.ProductIDs), &ids); err != nil {
		return nil
	}
	return ids
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey"      json:"id"`
	OrderID   uint    `gorm:"index;not null"  json:"order_id"`
	ProductID int     `gorm:"not null"        json:"product_id"`
	Quantity  int     `gorm:"not null"        json:"quantity"`
	UnitPrice float64 `gorm:"not null"        json:"unit_price"`
}

type Subscriber struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"      json:"id"`
	FullName     string `gorm:"size:160;not null"             json:"full_name"`
	Email        string `gorm:"size:160;unique;not null"      json:"email"`
	Phone        string `gorm:"size:40;index"                 json:"phone"`
	PasswordHash string `gorm:"size:100"                      json:"-"`
	Role         string `gorm:"size:20;not null;default:user" json:"role"`
}
