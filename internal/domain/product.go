package domain

// Product categories
const (
	CategoryFood  = "food"
	CategoryDrink = "beverages"
	CategoryOther = "other"
)

// Categories lists the product categories in display order
var Categories = []string{CategoryFood, CategoryDrink, CategoryOther}

// Product Model
type Product struct {
	ID       uint   `gorm:"primaryKey" json:"id"`                      // Primary key
	Name     string `gorm:"size:191;uniqueIndex;not null" json:"name"` // Product name
	Price    int64  `gorm:"not null" json:"price"`                     // Unit price in cents
	Category string `gorm:"size:32;not null" json:"category"`          // One of Categories
	ForSale  bool   `gorm:"not null;index" json:"for_sale"`            // Can be ordered
}

// ValidCategory reports whether c is a known category
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}
