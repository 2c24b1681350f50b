package model

import "time"

// Order is a marketplace purchase as returned by the backend.
type Order struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	PaymentStatus    string    `json:"paymentStatus"`
	TotalAmount      float64   `json:"totalAmount"`
	PaymentReference string    `json:"paymentReference,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// OrderPaymentVerification is the payload of the order payment
// verification endpoint.
type OrderPaymentVerification struct {
	Order       Order        `json:"order"`
	Transaction *Transaction `json:"transaction,omitempty"`
}
