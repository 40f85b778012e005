package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// PriceMaxDigits bounds the significant digits of a price. Fifteen
	// digits survive a round trip through a float64 column.
	PriceMaxDigits = 15
	// PriceMaxScale bounds the digits after the decimal point
	PriceMaxScale = 4
)

func init() {
	// price is a JSON number, not a quoted string
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a sellable catalog item
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"size:200;index" json:"name"`
	Price       decimal.Decimal `gorm:"type:numeric(19,4)" json:"price"`
	Description string          `gorm:"size:2000" json:"description"`
	Category    string          `gorm:"size:200" json:"category"` // free text, not linked to Category
	ImagePath   *string         `gorm:"size:1024" json:"imagePath"` // absolute file path, nil without image
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}

// HasImage reports whether an image file is attached
func (p *Product) HasImage() bool {
	return p.ImagePath != nil && strings.TrimSpace(*p.ImagePath) != ""
}

// Clone returns a deep copy, so stored records are never shared with callers
func (p *Product) Clone() *Product {
	cp := *p
	if p.ImagePath != nil {
		path := *p.ImagePath
		cp.ImagePath = &path
	}
	return &cp
}

// DemoProducts returns the optional demo catalog
func DemoProducts() []Product {
	return []Product{
		{Name: "Product 1", Price: decimal.RequireFromString("10.99"), Description: "Description 1", Category: "Category 1"},
		{Name: "Product 2", Price: decimal.RequireFromString("19.99"), Description: "Description 2", Category: "Category 2"},
		{Name: "Product 3", Price: decimal.RequireFromString("7.5"), Description: "Description 3", Category: "Category 1"},
	}
}

// ValidPrice reports whether d is a non-negative price that every store
// keeps exactly: at most PriceMaxScale fractional digits and
// PriceMaxDigits significant digits.
func ValidPrice(d decimal.Decimal) bool {
	if d.IsNegative() {
		return false
	}
	s := d.String()
	intPart, frac, _ := strings.Cut(s, ".")
	if len(frac) > PriceMaxScale {
		return false
	}
	digits := strings.TrimLeft(intPart+frac, "0")
	return len(digits) <= PriceMaxDigits
}
