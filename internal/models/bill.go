package models

import "time"

// Unit is the measurement unit a product is sold in
type Unit string

const (
	UnitNos     Unit = "Nos"
	UnitPcs     Unit = "pcs"
	UnitHours   Unit = "hrs"
	UnitMonth   Unit = "month"
	UnitYear    Unit = "year"
	UnitProject Unit = "project"
)

// Product is a read-only catalog entry
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Unit     Unit    `json:"unit"`
	GSTRate  float64 `json:"gstRate"`
	Image    string  `json:"image,omitempty"`
}

// Customer is copied by value into every draft and bill
type Customer struct {
	Name          string `json:"name" validate:"required,min=2"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"omitempty,uaephone"`
	Address       string `json:"address"`
	GSTIN         string `json:"gstin,omitempty"`
	PlaceOfSupply string `json:"placeOfSupply,omitempty"`
}

// InvoiceItem is one cart/bill line. Name, unit, rate and gstRate are
// snapshotted from the product when the line is created.
type InvoiceItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Qty       float64 `json:"qty"`
	Unit      string  `json:"unit"`
	Rate      float64 `json:"rate"`
	GSTRate   float64 `json:"gstRate"`
	Amount    float64 `json:"amount"`    // qty * rate
	GSTAmount float64 `json:"gstAmount"` // amount * gstRate/100
}

// Bill is the saved snapshot of an invoice, keyed by InvoiceNumber
type Bill struct {
	InvoiceNumber string        `json:"invoiceNumber"`
	Date          time.Time     `json:"date"`
	Customer      Customer      `json:"customer"`
	Items         []InvoiceItem `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	Tax           float64       `json:"tax"`
	Total         float64       `json:"total"`
	YaadroSentAt  *time.Time    `json:"yaadroSentAt,omitempty"`
}

// Draft is the persisted form of the in-progress invoice
type Draft struct {
	Customer      Customer      `json:"customer"`
	Items         []InvoiceItem `json:"items"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Date          time.Time     `json:"date"`
	ViewMode      bool          `json:"viewMode"`
}
