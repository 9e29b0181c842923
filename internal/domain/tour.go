package domain

import "time"

// FlightOption selects land-only or flight-inclusive pricing
type FlightOption string

const (
	FlightWithout FlightOption = "WITHOUT"
	FlightWith    FlightOption = "WITH"
)

// Valid reports whether the option is known
func (f FlightOption) Valid() bool {
	return f == FlightWithout || f == FlightWith
}

// TourDateStatus is the departure availability flag
type TourDateStatus string

const (
	TourDateOpen TourDateStatus = "OPEN"
	TourDateFull TourDateStatus = "FULL"
)

// Tour is the read-only pricing context of a tour
type Tour struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	MaxGroupSize int        `json:"maxGroupSize"`
	Dates        []TourDate `json:"dates"`
	AddOns       []AddOn    `json:"addOns"`
}

// FindDate returns the date with the given id
func (t *Tour) FindDate(id string) (*TourDate, bool) {
	for i := range t.Dates {
		if t.Dates[i].ID == id {
			return &t.Dates[i], true
		}
	}
	return nil, false
}

// FindAddOn returns the add-on with the given id
func (t *Tour) FindAddOn(id string) (*AddOn, bool) {
	for i := range t.AddOns {
		if t.AddOns[i].ID == id {
			return &t.AddOns[i], true
		}
	}
	return nil, false
}

// TourDate is one bookable departure
type TourDate struct {
	ID                    string         `json:"id"`
	StartDate             time.Time      `json:"startDate"`
	EndDate               time.Time      `json:"endDate"`
	AvailableSlots        int            `json:"availableSlots"`
	BookedSlots           int            `json:"bookedSlots"`
	Status                TourDateStatus `json:"status"`
	PriceWithoutFlight    float64        `json:"priceWithoutFlight"`
	PriceWithFlight       float64        `json:"priceWithFlight"`
	ChildPriceWithout     float64        `json:"childPriceWithout"`
	ChildPriceWithFlight  float64        `json:"childPriceWithFlight"`
	EarlyBirdDeadline     *time.Time     `json:"earlyBirdDeadline,omitempty"`
	EarlyBirdPriceWithout *float64       `json:"earlyBirdPriceWithout,omitempty"`
	EarlyBirdPriceWith    *float64       `json:"earlyBirdPriceWith,omitempty"`
	DepositFee            *float64       `json:"depositFee,omitempty"`
}

// IsSoldOut reports whether no seats remain
func (d *TourDate) IsSoldOut() bool {
	return d.Status == TourDateFull || d.AvailableSlots-d.BookedSlots <= 0
}

// RemainingSlots never goes below zero
func (d *TourDate) RemainingSlots() int {
	if n := d.AvailableSlots - d.BookedSlots; n > 0 {
		return n
	}
	return 0
}

// IsEarlyBird reports whether now falls before the early-bird deadline
func (d *TourDate) IsEarlyBird(now time.Time) bool {
	return d.EarlyBirdDeadline != nil && now.Before(*d.EarlyBirdDeadline)
}

// AdultPrice resolves the per-adult price. The early-bird price wins only inside
// the window and only when the matching early-bird field is set.
func (d *TourDate) AdultPrice(opt FlightOption, now time.Time) float64 {
	if opt == FlightWith {
		if d.IsEarlyBird(now) && d.EarlyBirdPriceWith != nil {
			return *d.EarlyBirdPriceWith
		}
		return d.PriceWithFlight
	}
	if d.IsEarlyBird(now) && d.EarlyBirdPriceWithout != nil {
		return *d.EarlyBirdPriceWithout
	}
	return d.PriceWithoutFlight
}

// ChildPrice resolves the per-child price; children have no early-bird rate
func (d *TourDate) ChildPrice(opt FlightOption) float64 {
	if opt == FlightWith {
		return d.ChildPriceWithFlight
	}
	return d.ChildPriceWithout
}

// AddOn is an optional per-person extra
type AddOn struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Description string  `json:"description,omitempty"`
}

// SelectedAddOn is an add-on chosen in the draft
type SelectedAddOn struct {
	AddOnID  string `json:"addOnId"`
	Quantity int    `json:"quantity"`
}
