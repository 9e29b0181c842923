package pricing

import (
	"math"
	"time"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// CardFeeRate is the card-processing surcharge shown before the payment API answers
const CardFeeRate = 0.04

// QuoteInput is everything a quote depends on
type QuoteInput struct {
	Date             *domain.TourDate
	FlightOption     domain.FlightOption
	Adults           int
	Children         int
	AddOns           []domain.AddOn
	Selected         []domain.SelectedAddOn
	IsDepositPayment bool
	Now              time.Time
}

// ComputeQuote derives the draft price. Add-ons are billed per traveler
// (adults + children); infants are free. No tax is added.
func ComputeQuote(in QuoteInput) domain.Quote {
	if in.Date == nil {
		return domain.Quote{}
	}

	q := domain.Quote{
		AdultPrice:  in.Date.AdultPrice(in.FlightOption, in.Now),
		ChildPrice:  in.Date.ChildPrice(in.FlightOption),
		IsEarlyBird: in.Date.IsEarlyBird(in.Now),
	}

	travelers := in.Adults + in.Children
	q.BasePrice = RoundCents(q.AdultPrice*float64(in.Adults) + q.ChildPrice*float64(in.Children))

	prices := make(map[string]float64, len(in.AddOns))
	for _, a := range in.AddOns {
		prices[a.ID] = a.Price
	}
	var addOns float64
	for _, s := range in.Selected {
		addOns += prices[s.AddOnID] * float64(s.Quantity) * float64(travelers)
	}
	q.AddOnsTotal = RoundCents(addOns)
	q.Total = RoundCents(q.BasePrice + q.AddOnsTotal)

	if in.IsDepositPayment && in.Date.DepositFee != nil {
		q.DepositAmount = RoundCents(math.Min(*in.Date.DepositFee*float64(travelers), q.Total))
		q.RemainingBalance = RoundCents(q.Total - q.DepositAmount)
	}

	return q
}

// ProvisionalFees estimates the amount due for a method
func ProvisionalFees(base float64, method domain.PaymentMethod) domain.FeeBreakdown {
	fees := domain.FeeBreakdown{
		BaseAmount:  RoundCents(base),
		TotalAmount: RoundCents(base),
		Provisional: true,
	}
	if method == domain.PaymentCard {
		fees.CardFeeAmount = RoundCents(base * CardFeeRate)
		fees.TotalAmount = RoundCents(fees.BaseAmount + fees.CardFeeAmount)
	}
	return fees
}

// AmountDue is what the traveler pays now: the deposit when one applies, else the total
func AmountDue(q domain.Quote) float64 {
	if q.DepositAmount > 0 {
		return q.DepositAmount
	}
	return q.Total
}

// RoundCents rounds half away from zero to 2 decimals
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
