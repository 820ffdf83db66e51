package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The browser page formats price with Number.toFixed, so prices go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Description string          `gorm:"size:1000;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	CreatedDate time.Time       `gorm:"not null" json:"createdDate"`
}

// DemoCatalog is the starter set loaded on boot when seeding is enabled.
func DemoCatalog() []Product {
	return []Product{
		{Name: "Laptop", Description: "High-performance gaming laptop", Price: decimal.RequireFromString("1299.99"), Quantity: 10},
		{Name: "Smartphone", Description: "Latest flagship smartphone", Price: decimal.RequireFromString("899.99"), Quantity: 25},
		{Name: "Wireless Headphones", Description: "Noise-cancelling wireless headphones", Price: decimal.RequireFromString("199.99"), Quantity: 50},
		{Name: "Gaming Mouse", Description: "RGB gaming mouse with DPI settings", Price: decimal.RequireFromString("79.99"), Quantity: 100},
		{Name: "Mechanical Keyboard", Description: "RGB mechanical keyboard with blue switches", Price: decimal.RequireFromString("149.99"), Quantity: 75},
	}
}
