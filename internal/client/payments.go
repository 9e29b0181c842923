package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

type intentResponse struct {
	ClientSecret    string  `json:"clientSecret"`
	PaymentIntentID string  `json:"paymentIntentId"`
	BaseAmount      float64 `json:"baseAmount"`
	CardFee         float64 `json:"cardFee"`
	TotalAmount     float64 `json:"totalAmount"`
}

// CreatePaymentIntent asks the payment API for a card session scoped to the booking
func (c *Client) CreatePaymentIntent(ctx context.Context, bookingID string, method domain.PaymentMethod) (*domain.PaymentIntent, error) {
	r, err := jsonRequest(http.MethodPost, "/payments/create-intent", map[string]string{
		"bookingId": bookingID,
		"method":    string(method),
	})
	if err != nil {
		return nil, err
	}
	r.headers = map[string]string{IdempotencyKeyHeader: "intent-" + bookingID}

	var out intentResponse
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}

	return &domain.PaymentIntent{
		ClientSecret:    out.ClientSecret,
		PaymentIntentID: out.PaymentIntentID,
		Fees: domain.FeeBreakdown{
			BaseAmount:    out.BaseAmount,
			CardFeeAmount: out.CardFee,
			TotalAmount:   out.TotalAmount,
		},
	}, nil
}

// ConfirmPayment reconciles a provider-captured payment with the booking
func (c *Client) ConfirmPayment(ctx context.Context, paymentIntentID, bookingID string) error {
	r, err := jsonRequest(http.MethodPost, "/payments/confirm", map[string]string{
		"paymentIntentId": paymentIntentID,
		"bookingId":       bookingID,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// SubmitBankTransfer uploads a receipt image for manual approval
func (c *Client) SubmitBankTransfer(ctx context.Context, bookingID string, receipt domain.Receipt) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("bookingId", bookingID); err != nil {
		return fmt.Errorf("failed to write form: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename=%q`, receipt.Filename))
	h.Set("Content-Type", receipt.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(receipt.Data); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close form: %w", err)
	}

	return c.do(ctx, &request{
		method:      http.MethodPost,
		path:        "/payments/bank-transfer",
		body:        &buf,
		contentType: w.FormDataContentType(),
	}, nil)
}
