package dto

import "github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"

// SelectMethodRequest represents request to switch payment method
type SelectMethodRequest struct {
	Method domain.PaymentMethod `json:"method" binding:"required,oneof=CARD BANK_TRANSFER"`
}

// ConfirmCardRequest represents the provider's client-side confirmation
type ConfirmCardRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

// ReceiptFormField is the multipart field carrying the bank receipt
const ReceiptFormField = "receipt"
