package models

import (
	"strconv"
	"time"
)

// Defaults used when a field cannot be extracted from the page.
const (
	DefaultName        = "Название не найдено"
	DefaultPrice       = "Цена не найдена"
	DefaultDescription = "Описание отсутствует"
	DefaultSellerName  = "Продавец не указан"
)

// Product is one scraped catalog record. Every field is always populated,
// either with the extracted value or with its default.
type Product struct {
	Name            string  `json:"name"`
	Price           string  `json:"price"`
	Rating          float64 `json:"rating"`
	ReviewsCount    int     `json:"reviews_count"`
	Description     string  `json:"description"`
	Images          string  `json:"images"`
	Characteristics string  `json:"characteristics"`
	SellerName      string  `json:"seller_name"`
	SellerURL       string  `json:"seller_url"`
	URL             string  `json:"url"`
	Articul         string  `json:"articul"`
}

// Columns is the tabular column order of a Product.
var Columns = []string{
	"name",
	"price",
	"rating",
	"reviews_count",
	"description",
	"images",
	"characteristics",
	"seller_name",
	"seller_url",
	"url",
	"articul",
}

// NewProduct returns a record with every field set to its default.
func NewProduct(url, articul string) *Product {
	return &Product{
		Name:        DefaultName,
		Price:       DefaultPrice,
		Description: DefaultDescription,
		SellerName:  DefaultSellerName,
		URL:         url,
		Articul:     articul,
	}
}

// Row returns the record values in Columns order.
func (p *Product) Row() []any {
	return []any{
		p.Name,
		p.Price,
		p.Rating,
		p.ReviewsCount,
		p.Description,
		p.Images,
		p.Characteristics,
		p.SellerName,
		p.SellerURL,
		p.URL,
		p.Articul,
	}
}

// Key identifies a record for upserts: the articul, or the url when the articul is unknown.
func (p *Product) Key() string {
	if p.Articul != "" {
		return p.Articul
	}
	return p.URL
}

func (p *Product) String() string {
	name := []rune(p.Name)
	if len(name) > 50 {
		name = name[:50]
	}
	return string(name) + "... | Цена: " + p.Price + " | Рейтинг: " + strconv.FormatFloat(p.Rating, 'f', -1, 64)
}

// StoredProduct is a Product as persisted in the catalog database.
type StoredProduct struct {
	Product
	RunID     string    `json:"run_id"`
	ScrapedAt time.Time `json:"scraped_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunSummary describes the outcome of one pipeline run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Pipeline  string        `json:"pipeline"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}
