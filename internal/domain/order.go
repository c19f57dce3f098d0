package domain

import "time" // Timestamps

// Order Model
type Order struct {
	ID        uint        `gorm:"primaryKey" json:"id"`                                             // Primary key
	UserID    uint        `gorm:"not null;index:idx_orders_user_created,priority:1" json:"user_id"` // Owner of the order
	Items     []OrderItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"order_items"` // Ordered products
	CreatedAt time.Time   `gorm:"index:idx_orders_user_created,priority:2" json:"created_at"`       // Used for frecency decay
}

// Total returns the cost of all items in cents
func (o *Order) Total() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.Subtotal()
	}
	return total
}

// OrderItem Model
type OrderItem struct {
	ID        uint     `gorm:"primaryKey" json:"id"`       // Primary key
	OrderID   uint     `gorm:"not null;index" json:"-"`    // Foreign key to Order
	ProductID uint     `gorm:"not null" json:"product_id"` // Foreign key to Product
	Product   *Product `json:"product,omitempty"`          // Product relation
	Count     int      `gorm:"not null" json:"count"`      // Number of units
	Price     int64    `gorm:"not null" json:"price"`      // Unit price at order time, in cents
}

// Subtotal returns Count times Price
func (i *OrderItem) Subtotal() int64 {
	return int64(i.Count) * i.Price
}
