package yaadro

import (
	"strings"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"
)

const walkInCustomer = "Walk-in Customer"

// OrderItem is one line of a delivery order
type OrderItem struct {
	ItemName    string  `json:"item_name"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	TotalAmount float64 `json:"totalamount"`
	VAT         float64 `json:"vat"`
}

// Order is the body of a public create-order call
type Order struct {
	CustomerName        string      `json:"customer_name"`
	CustomerPhoneNumber string      `json:"customer_phone_number"`
	Address             string      `json:"address"`
	TotalAmount         float64     `json:"total_amount"`
	BillNo              string      `json:"bill_no"`
	Urgency             string      `json:"urgency"`
	PaymentMode         string      `json:"payment_mode"`
	SpecialInstructions string      `json:"special_instructions"`
	VAT                 float64     `json:"vat"`
	Tip                 float64     `json:"tip"`
	DeliveryCharge      float64     `json:"delivery_charge"`
	Water               bool        `json:"water"`
	WaterCount          int         `json:"water_count"`
	Items               []OrderItem `json:"items"`
}

// BuildPayload maps a bill onto the delivery order shape. The phone is
// sent as its 9 bare digits when it is a valid UAE mobile, otherwise as
// entered.
func BuildPayload(bill models.Bill) Order {
	name := strings.TrimSpace(bill.Customer.Name)
	if name == "" {
		name = walkInCustomer
	}

	phone := strings.TrimSpace(bill.Customer.Phone)
	if billing.ValidUAEPhone(phone) {
		phone = billing.NormalizePhone(phone)
	}

	items := make([]OrderItem, 0, len(bill.Items))
	for _, item := range bill.Items {
		items = append(items, OrderItem{
			ItemName:    item.Name,
			Quantity:    item.Qty,
			Price:       item.Rate,
			TotalAmount: item.Amount,
			VAT:         item.GSTAmount,
		})
	}

	return Order{
		CustomerName:        name,
		CustomerPhoneNumber: phone,
		Address:             bill.Customer.Address,
		TotalAmount:         bill.Total,
		BillNo:              bill.InvoiceNumber,
		Urgency:             "Normal",
		PaymentMode:         "cash",
		SpecialInstructions: "",
		VAT:                 bill.Tax,
		Tip:                 0,
		DeliveryCharge:      0,
		Water:               false,
		WaterCount:          0,
		Items:               items,
	}
}
