// Package grid renders listings as cards and handles the card interactions:
// filtering, deletion and the photo viewer.
package grid

import (
	"context"
	"encoding/json"
	"fmt"

	"listing-portal/internal/gateway"
	"listing-portal/internal/listing"
	"listing-portal/internal/models"
	"listing-portal/internal/notify"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	MessageLoadFailed = "Could not load listings. Please try again later."
	MessageEmpty      = "No listings found at the moment."
)

// Card is the display form of one listing
type Card struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Address     string  `json:"address"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type"`
	Price       float64 `json:"price"`
	PriceText   string  `json:"price_text"`
	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   int     `json:"bathrooms"`
	AreaM2      float64 `json:"area_m2"`
	Status      string  `json:"status"`
	CoverURL    string  `json:"cover_url"`
	// PhotosJSON is the serialized photo collection read back by the viewer
	PhotosJSON string `json:"-"`
	ShowDelete bool   `json:"show_delete"`
	Hidden     bool   `json:"-"`
}

// cardPhoto is the serialized form of a photo on a card
type cardPhoto struct {
	URL      string `json:"url"`
	FileName string `json:"file_name,omitempty"`
}

// Options holds presentation settings
type Options struct {
	CoverPlaceholder  string
	ViewerPlaceholder string
	Locale            string
	CurrencySymbol    string
	CitySuffix        string
}

// Grid holds the cards of one render pass
type Grid struct {
	repo     *listing.Repository
	auth     gateway.Auth
	profiles gateway.Store
	notifier notify.Notifier
	logger   *zap.Logger
	opts     Options
	printer  *message.Printer

	cards   []Card
	message string
	isAdmin bool
	filter  Filter
	viewer  *Viewer
}

func New(repo *listing.Repository, auth gateway.Auth, profiles gateway.Store, n notify.Notifier, log *zap.Logger, opts Options) *Grid {
	tag, err := language.Parse(opts.Locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	return &Grid{
		repo:     repo,
		auth:     auth,
		profiles: profiles,
		notifier: n,
		logger:   log,
		opts:     opts,
		printer:  message.NewPrinter(tag),
		filter:   ParseFilter(FilterEvent{}),
	}
}

// Load fetches every listing and rebuilds the cards. A fetch failure leaves
// an inline message instead of cards and is returned.
func (g *Grid) Load(ctx context.Context) error {
	g.cards = nil
	g.viewer = nil
	g.message = ""
	g.isAdmin = false

	listings, err := g.repo.FetchAll(ctx)
	if err != nil {
		g.message = MessageLoadFailed
		return err
	}
	if len(listings) == 0 {
		g.message = MessageEmpty
		return nil
	}

	g.isAdmin = g.resolveAdmin(ctx)
	g.cards = make([]Card, 0, len(listings))
	for i := range listings {
		g.cards = append(g.cards, g.newCard(&listings[i]))
	}
	g.ApplyFilters(g.filter)
	return nil
}

// resolveAdmin performs the single profile lookup of a render pass
func (g *Grid) resolveAdmin(ctx context.Context) bool {
	user, err := g.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return false
	}
	profile, err := g.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		g.logger.Warn("Profile lookup for delete buttons failed", zap.String("user_id", user.ID), zap.Error(err))
		notify.Warning(g.notifier, "Could not verify your permissions: %s", gateway.Message(err))
		return false
	}
	return profile.IsAdmin()
}

func (g *Grid) newCard(l *models.Listing) Card {
	photos := make([]cardPhoto, 0, len(l.Photos))
	for _, p := range l.Photos {
		photos = append(photos, cardPhoto{URL: p.URL, FileName: p.FileName})
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		photosJSON = []byte("[]")
	}

	cover := g.opts.CoverPlaceholder
	if len(photos) > 0 {
		cover = photos[0].URL
	}

	return Card{
		ID:          l.ID,
		Title:       l.Title,
		Address:     l.Address,
		Description: l.Description,
		Type:        string(l.PropertyType),
		Price:       l.Price,
		PriceText:   g.formatPrice(l.Price),
		Bedrooms:    l.Bedrooms,
		Bathrooms:   l.Bathrooms,
		AreaM2:      l.AreaM2,
		Status:      string(l.EffectiveStatus()),
		CoverURL:    cover,
		PhotosJSON:  string(photosJSON),
		ShowDelete:  g.isAdmin,
	}
}

func (g *Grid) formatPrice(price float64) string {
	return g.printer.Sprintf("%s %v", g.opts.CurrencySymbol, number.Decimal(price, number.MaxFractionDigits(2)))
}

// ApplyFilters hides the cards that do not match and returns the visible ones.
// It only looks at the cards already built.
func (g *Grid) ApplyFilters(f Filter) []Card {
	g.filter = f
	visible := make([]Card, 0, len(g.cards))
	for i := range g.cards {
		g.cards[i].Hidden = !f.Matches(g.cards[i])
		if !g.cards[i].Hidden {
			visible = append(visible, g.cards[i])
		}
	}
	return visible
}

// Cards returns every card, hidden ones included
func (g *Grid) Cards() []Card {
	return g.cards
}

// Visible returns the cards that pass the current filter
func (g *Grid) Visible() []Card {
	visible := make([]Card, 0, len(g.cards))
	for _, c := range g.cards {
		if !c.Hidden {
			visible = append(visible, c)
		}
	}
	return visible
}

// Message returns the inline status text, empty when cards are shown
func (g *Grid) Message() string {
	return g.message
}

// IsAdmin reports the admin state computed by the last Load
func (g *Grid) IsAdmin() bool {
	return g.isAdmin
}

// DeleteEvent asks to delete one listing
type DeleteEvent struct {
	ListingID string
}

// ViewPhotosEvent asks to open the photo viewer of one listing
type ViewPhotosEvent struct {
	ListingID string
}

// HandleFilter applies filter form values
func (g *Grid) HandleFilter(e FilterEvent) []Card {
	return g.ApplyFilters(ParseFilter(e))
}

// HandleDelete deletes a listing and reloads the whole grid on success
func (g *Grid) HandleDelete(ctx context.Context, e DeleteEvent) error {
	var title string
	if c, ok := g.card(e.ListingID); ok {
		title = c.Title
	}
	if _, err := g.repo.DeleteListing(ctx, e.ListingID, title, g.notifier); err != nil {
		return err
	}
	return g.Load(ctx)
}

// Viewer is the photo viewer state
type Viewer struct {
	ListingID string
	Title     string
	URLs      []string
}

// HandleViewPhotos opens the viewer from the photos serialized on the card
func (g *Grid) HandleViewPhotos(e ViewPhotosEvent) (*Viewer, error) {
	c, ok := g.card(e.ListingID)
	if !ok {
		return nil, gateway.E("view photos", gateway.KindNotFound, fmt.Errorf("listing %s is not on the page", e.ListingID))
	}

	var photos []cardPhoto
	if err := json.Unmarshal([]byte(c.PhotosJSON), &photos); err != nil {
		return nil, gateway.E("view photos", gateway.KindInternal, err)
	}

	v := &Viewer{ListingID: c.ID, Title: c.Title}
	if v.Title == "" {
		v.Title = "Listing"
	}
	for _, p := range photos {
		v.URLs = append(v.URLs, p.URL)
	}
	if len(v.URLs) == 0 {
		v.URLs = []string{g.opts.ViewerPlaceholder}
	}
	g.viewer = v
	return v, nil
}

func (g *Grid) card(id string) (Card, bool) {
	for _, c := range g.cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}
