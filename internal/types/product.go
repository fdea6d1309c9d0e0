package types

import (
	"time"
)

// NotAvailable is the placeholder for brand, weight and price values that
// could not be determined.
const NotAvailable = "N/A"

// Product is a single product listing scraped from a category page.
type Product struct {
	// RawName is the name exactly as it appeared on the page.
	RawName string `json:"raw_name" bson:"raw_name"`

	// Name is RawName with brand and weight tokens stripped.
	Name string `json:"product" bson:"product"`

	Brand  string `json:"brand"  bson:"brand"`
	Price  string `json:"price"  bson:"price"`
	Weight string `json:"weight" bson:"weight"`

	// URL is the absolute product link.
	URL string `json:"url" bson:"url"`

	// ImageURL is the absolute product image link, if any.
	ImageURL string `json:"image,omitempty" bson:"image,omitempty"`

	// SourcePage is the category page URL the product was found on.
	SourcePage string `json:"page" bson:"page"`

	// Site is the slug of the site profile that produced the record.
	Site string `json:"site" bson:"site"`

	ScrapedAt time.Time `json:"scraped_at" bson:"scraped_at"`
}

// NewProduct creates a Product with all optional fields set to NotAvailable.
func NewProduct(rawName, sourcePage string) *Product {
	return &Product{
		RawName:    rawName,
		Name:       rawName,
		Brand:      NotAvailable,
		Price:      NotAvailable,
		Weight:     NotAvailable,
		SourcePage: sourcePage,
		ScrapedAt:  time.Now(),
	}
}

// Columns is the fixed column order used by every tabular export.
var Columns = []string{"product", "brand", "price", "weight", "url", "page", "raw_name", "image", "site"}

// Row returns the product's values in Columns order.
func (p *Product) Row() []string {
	return []string{p.Name, p.Brand, p.Price, p.Weight, p.URL, p.SourcePage, p.RawName, p.ImageURL, p.Site}
}
