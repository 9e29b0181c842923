package composer

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/pricing"
)

// TourReader loads tour pricing data
type TourReader interface {
	GetTour(ctx context.Context, idOrSlug string) (*domain.Tour, error)
}

// UserContext exposes the session's logged-in user, or nil
type UserContext interface {
	CurrentUser() *domain.User
}

// PricingContext is the read-only data a wizard is built on
type PricingContext struct {
	Tour   *domain.Tour      `json:"tour"`
	Dates  []domain.TourDate `json:"dates"`
	AddOns []domain.AddOn    `json:"addOns"`
}

// Snapshot is a copy of the wizard state
type Snapshot struct {
	DraftID          string                 `json:"draftId"`
	TourID           string                 `json:"tourId,omitempty"`
	TourSlug         string                 `json:"tourSlug,omitempty"`
	TourTitle        string                 `json:"tourTitle,omitempty"`
	TourDateID       string                 `json:"tourDateId,omitempty"`
	FlightOption     domain.FlightOption    `json:"flightOption"`
	Adults           int                    `json:"adults"`
	Children         int                    `json:"children"`
	Infants          int                    `json:"infants"`
	MaxGroupSize     int                    `json:"maxGroupSize"`
	SelectedAddOns   []domain.SelectedAddOn `json:"selectedAddOns"`
	Travelers        []domain.Traveler      `json:"travelers"`
	TermsAccepted    bool                   `json:"termsAccepted"`
	IsDepositPayment bool                   `json:"isDepositPayment"`
	Step             domain.WizardStep      `json:"step"`
	Quote            domain.Quote           `json:"quote"`
}

// Option configures a Composer
type Option func(*Composer)

// WithClock overrides time.Now, used for early-bird decisions
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// Composer turns a tour date and user selections into a BookingDraft.
// It is safe for concurrent use; all operations except LoadPricingContext are local.
type Composer struct {
	mu    sync.Mutex
	tours TourReader
	users UserContext
	now   func() time.Time

	draftID   string
	sealed    bool
	tour      *domain.Tour
	date      *domain.TourDate
	flight    domain.FlightOption
	adults    int
	children  int
	infants   int
	selected  []domain.SelectedAddOn
	travelers []domain.Traveler
	terms     bool
	deposit   bool
	step      domain.WizardStep
}

// New creates an empty Composer
func New(tours TourReader, users UserContext, opts ...Option) *Composer {
	c := &Composer{
		tours:  tours,
		users:  users,
		now:    time.Now,
		flight: domain.FlightWithout,
		adults: 1,
		step:   domain.StepTrip,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.draftID = uuid.New().String()
	return c
}

// LoadPricingContext fetches the tour and resets the wizard onto it.
// A missing tour yields domain.ErrTourNotFound; the caller is expected to leave the page.
func (c *Composer) LoadPricingContext(ctx context.Context, tourIDOrSlug string) (*PricingContext, error) {
	tour, err := c.tours.GetTour(ctx, tourIDOrSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load tour %s: %w", tourIDOrSlug, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset(tour)

	return &PricingContext{Tour: tour, Dates: tour.Dates, AddOns: tour.AddOns}, nil
}

func (c *Composer) reset(tour *domain.Tour) {
	c.draftID = uuid.New().String()
	c.sealed = false
	c.tour = tour
	c.date = nil
	c.flight = domain.FlightWithout
	c.adults = 1
	c.children = 0
	c.infants = 0
	c.selected = nil
	c.terms = false
	c.deposit = false
	c.step = domain.StepTrip
	c.regenerateTravelers()
}

// SelectDate sets the active departure
func (c *Composer) SelectDate(dateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tour == nil {
		return domain.ErrNoTourLoaded
	}
	date, ok := c.tour.FindDate(dateID)
	if !ok {
		return domain.ErrDateNotFound
	}
	if date.IsSoldOut() {
		return domain.ErrDateSoldOut
	}

	if c.date == nil || c.date.ID != date.ID {
		c.edited()
	}
	c.date = date
	return nil
}

// SetFlightOption switches between land-only and flight-inclusive pricing
func (c *Composer) SetFlightOption(opt domain.FlightOption) error {
	if !opt.Valid() {
		return domain.ErrInvalidFlightOption
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flight != opt {
		c.edited()
	}
	c.flight = opt
	return nil
}

// SetHeadcount clamps the counts and regenerates the traveler list when
// adults or children change. Edits to existing travelers are discarded.
func (c *Composer) SetHeadcount(adults, children, infants int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	adults = max(adults, 1)
	if c.tour != nil && c.tour.MaxGroupSize > 0 {
		adults = min(adults, c.tour.MaxGroupSize)
	}
	children = max(children, 0)
	infants = max(infants, 0)

	changed := adults != c.adults || children != c.children
	if changed || infants != c.infants {
		c.edited()
	}
	c.adults, c.children, c.infants = adults, children, infants
	if changed {
		c.regenerateTravelers()
	}
}

func (c *Composer) regenerateTravelers() {
	travelers := make([]domain.Traveler, 0, c.adults+c.children)
	for i := 0; i < c.adults; i++ {
		travelers = append(travelers, domain.Traveler{Type: domain.TravelerAdult, Index: i})
	}
	for i := 0; i < c.children; i++ {
		travelers = append(travelers, domain.Traveler{Type: domain.TravelerChild, Index: i})
	}

	if c.users != nil {
		if u := c.users.CurrentUser(); u != nil {
			travelers[0].FullName = u.FullName()
			travelers[0].Email = u.Email
		}
	}

	c.travelers = travelers
}

// ToggleAddOn adds or removes an add-on with quantity 1
func (c *Composer) ToggleAddOn(addOnID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tour == nil {
		return domain.ErrNoTourLoaded
	}
	if _, ok := c.tour.FindAddOn(addOnID); !ok {
		return domain.ErrAddOnNotFound
	}

	c.edited()
	i := slices.IndexFunc(c.selected, func(s domain.SelectedAddOn) bool { return s.AddOnID == addOnID })
	if i >= 0 {
		c.selected = slices.Delete(c.selected, i, i+1)
		return nil
	}
	c.selected = append(c.selected, domain.SelectedAddOn{AddOnID: addOnID, Quantity: 1})
	return nil
}

// UpdateTraveler replaces the editable fields of the traveler with the given key
func (c *Composer) UpdateTraveler(key string, patch domain.TravelerPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.travelers {
		if c.travelers[i].Key() == key {
			before := c.travelers[i]
			patch.Apply(&c.travelers[i])
			if c.travelers[i] != before {
				c.edited()
			}
			return nil
		}
	}
	return domain.ErrTravelerNotFound
}

// SetTermsAccepted records the terms checkbox
func (c *Composer) SetTermsAccepted(accepted bool) {
	c.mu.Lock()
	if c.terms != accepted {
		c.edited()
	}
	c.terms = accepted
	c.mu.Unlock()
}

// SetDepositPayment toggles paying a deposit instead of the full amount
func (c *Composer) SetDepositPayment(deposit bool) {
	c.mu.Lock()
	if c.deposit != deposit {
		c.edited()
	}
	c.deposit = deposit
	c.mu.Unlock()
}

// ComputeQuote prices the current selections
func (c *Composer) ComputeQuote() domain.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quote()
}

func (c *Composer) quote() domain.Quote {
	if c.tour == nil {
		return domain.Quote{}
	}
	return pricing.ComputeQuote(pricing.QuoteInput{
		Date:             c.date,
		FlightOption:     c.flight,
		Adults:           c.adults,
		Children:         c.children,
		AddOns:           c.tour.AddOns,
		Selected:         c.selected,
		IsDepositPayment: c.deposit,
		Now:              c.now(),
	})
}

// ValidateTravelers checks every traveler's required fields
func (c *Composer) ValidateTravelers() ValidationResult {
	c.mu.Lock()
	travelers := slices.Clone(c.travelers)
	c.mu.Unlock()

	return validateTravelers(travelers)
}

// Advance moves to the next wizard step. Leaving "details" requires valid travelers.
func (c *Composer) Advance() (domain.WizardStep, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.step {
	case domain.StepTrip:
		if c.date == nil {
			return c.step, domain.ErrNoDateSelected
		}
		c.step = domain.StepDetails
	case domain.StepDetails:
		if res := validateTravelers(c.travelers); !res.Valid {
			return c.step, &domain.ValidationError{Errors: res.Errors}
		}
		c.step = domain.StepInformation
	default:
		return c.step, domain.ErrInvalidStep
	}
	return c.step, nil
}

// Back returns to the previous wizard step
func (c *Composer) Back() domain.WizardStep {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.step {
	case domain.StepInformation:
		c.step = domain.StepDetails
	case domain.StepDetails:
		c.step = domain.StepTrip
	}
	return c.step
}

// edited starts a new draft when the current one was already handed out,
// so a changed draft never reuses the booking idempotency key of the old one.
// Callers hold c.mu.
func (c *Composer) edited() {
	if c.sealed {
		c.draftID = uuid.New().String()
		c.sealed = false
	}
}

// AssembleDraft aggregates the current state into a BookingDraft.
// Assembling again without edits returns the same draft id.
func (c *Composer) AssembleDraft() (*domain.BookingDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tour == nil {
		return nil, domain.ErrNoTourLoaded
	}
	if c.date == nil {
		return nil, domain.ErrNoDateSelected
	}
	if !c.terms {
		return nil, domain.ErrTermsNotAccepted
	}

	c.sealed = true
	return &domain.BookingDraft{
		DraftID:          c.draftID,
		TourID:           c.tour.ID,
		TourDateID:       c.date.ID,
		FlightOption:     c.flight,
		Adults:           c.adults,
		Children:         c.children,
		Infants:          c.infants,
		SelectedAddOns:   slices.Clone(c.selected),
		Travelers:        slices.Clone(c.travelers),
		TermsAccepted:    c.terms,
		IsDepositPayment: c.deposit,
		Quote:            c.quote(),
	}, nil
}

// Restore rebuilds the wizard from a draft saved before a login redirect
func (c *Composer) Restore(tour *domain.Tour, draft *domain.BookingDraft) error {
	date, ok := tour.FindDate(draft.TourDateID)
	if !ok {
		return domain.ErrDateNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tour = tour
	c.date = date
	c.draftID = draft.DraftID
	c.sealed = true
	c.flight = draft.FlightOption
	c.adults = draft.Adults
	c.children = draft.Children
	c.infants = draft.Infants
	c.selected = slices.Clone(draft.SelectedAddOns)
	c.travelers = slices.Clone(draft.Travelers)
	c.terms = draft.TermsAccepted
	c.deposit = draft.IsDepositPayment
	c.step = domain.StepInformation
	return nil
}

// Discard drops the current draft and starts an empty one on the same tour
func (c *Composer) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tour == nil {
		c.draftID = uuid.New().String()
		c.sealed = false
		return
	}
	c.reset(c.tour)
}

// Tour returns the loaded tour, or nil
func (c *Composer) Tour() *domain.Tour {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tour
}

// Snapshot returns a copy of the wizard state
func (c *Composer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		DraftID:          c.draftID,
		FlightOption:     c.flight,
		Adults:           c.adults,
		Children:         c.children,
		Infants:          c.infants,
		SelectedAddOns:   slices.Clone(c.selected),
		Travelers:        slices.Clone(c.travelers),
		TermsAccepted:    c.terms,
		IsDepositPayment: c.deposit,
		Step:             c.step,
		Quote:            c.quote(),
	}
	if c.tour != nil {
		s.TourID = c.tour.ID
		s.TourSlug = c.tour.Slug
		s.TourTitle = c.tour.Title
		s.MaxGroupSize = c.tour.MaxGroupSize
	}
	if c.date != nil {
		s.TourDateID = c.date.ID
	}
	return s
}
