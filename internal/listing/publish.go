package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"listing-portal/internal/events"
	"listing-portal/internal/gateway"
	"listing-portal/internal/metrics"
	"listing-portal/internal/models"
	"listing-portal/internal/notify"

	"go.uber.org/zap"
)

var (
	ErrNotAuthenticated = errors.New("you must be signed in to publish a listing")
	ErrNoFiles          = errors.New("select at least one photo")
)

// File is one attached photo
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Submission is the raw publish form
type Submission struct {
	Title        string
	Description  string
	Address      string
	Price        string
	PropertyType string
	Bedrooms     string
	Bathrooms    string
	AreaM2       string
	Status       string
	Files        []File
}

// PublishReport describes the outcome of a publish
type PublishReport struct {
	Listing *models.Listing
	Photos  []models.Photo
	// Failed holds the names of files that were not stored or not recorded
	Failed []string
}

// Publisher runs the publish workflow
type Publisher struct {
	store  gateway.Store
	blob   gateway.Blob
	events gateway.Publisher
	logger *zap.Logger

	mu       sync.Mutex
	now      func() time.Time
	lastKeyT int64
}

func NewPublisher(store gateway.Store, blob gateway.Blob, pub gateway.Publisher, log *zap.Logger) *Publisher {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Publisher{store: store, blob: blob, events: pub, logger: log, now: time.Now}
}

// Publish inserts the listing and uploads its photos one at a time in file order.
// A failing file is reported and skipped; it never rolls back the listing or
// the photos stored before it. Callers refresh the grid after any non-nil report.
func (p *Publisher) Publish(ctx context.Context, auth gateway.Auth, sub Submission, n notify.Notifier) (*PublishReport, error) {
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		notify.Error(n, "Could not verify your session: %v", err)
		return nil, fmt.Errorf("publish: %w", err)
	}
	if user == nil {
		notify.Error(n, "You must be signed in to publish a listing.")
		return nil, gateway.E("publish", gateway.KindUnauthorized, ErrNotAuthenticated)
	}

	if len(sub.Files) == 0 {
		notify.Error(n, "Please select at least one photo for the listing.")
		return nil, gateway.E("publish", gateway.KindInvalid, ErrNoFiles)
	}

	listing, err := ParseSubmission(sub)
	if err != nil {
		notify.Error(n, "Invalid listing: %v", err)
		return nil, err
	}
	listing.UserID = user.ID

	if err := p.store.InsertListing(ctx, listing); err != nil {
		p.logger.Error("Failed to insert listing", zap.String("user_id", user.ID), zap.Error(err))
		notify.Error(n, "Failed to publish listing: %v", err)
		return nil, fmt.Errorf("publish: insert listing: %w", err)
	}
	metrics.ListingsPublished.Inc()

	report := &PublishReport{Listing: listing}
	log := p.logger.With(zap.String("listing_id", listing.ID), zap.String("user_id", user.ID))

	for _, f := range sub.Files {
		photo, err := p.storeFile(ctx, user.ID, listing.ID, f)
		if err != nil {
			report.Failed = append(report.Failed, f.Name)
			log.Warn("Photo failed", zap.String("file", f.Name), zap.Error(err))
			notify.Warning(n, "Photo %s: %v", f.Name, err)
			continue
		}
		report.Photos = append(report.Photos, *photo)
	}
	listing.Photos = report.Photos

	if len(report.Failed) > 0 {
		notify.Success(n, "Listing published with %d of %d photos.", len(report.Photos), len(sub.Files))
	} else {
		notify.Success(n, "Listing published successfully!")
	}
	log.Info("Published listing", zap.Int("photos", len(report.Photos)), zap.Int("failed", len(report.Failed)))

	evt := events.ListingCreated{
		ListingID:   listing.ID,
		Title:       listing.Title,
		UserID:      user.ID,
		PhotoCount:  len(report.Photos),
		FailedFiles: report.Failed,
		OccurredAt:  p.now().UTC(),
	}
	if err := p.events.Publish(ctx, events.SubjectListingCreated, evt); err != nil {
		log.Warn("Failed to publish create event", zap.Error(err))
	}

	return report, nil
}

func (p *Publisher) storeFile(ctx context.Context, userID, listingID string, f File) (*models.Photo, error) {
	path := fmt.Sprintf("%s/%s/%d-%s", userID, listingID, p.keyTimestamp(), SanitizeFileName(f.Name))

	if f.Open == nil {
		metrics.PhotoUploads.WithLabelValues("upload_failed").Inc()
		return nil, fmt.Errorf("upload failed: file has no content")
	}
	rc, err := f.Open()
	if err != nil {
		metrics.PhotoUploads.WithLabelValues("upload_failed").Inc()
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	err = p.blob.Upload(ctx, path, rc, f.Size, f.ContentType)
	rc.Close()
	if err != nil {
		metrics.PhotoUploads.WithLabelValues("upload_failed").Inc()
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	photo := &models.Photo{
		ListingID: listingID,
		URL:       p.blob.PublicURL(path),
		FileName:  f.Name,
		UserID:    userID,
	}
	if err := p.store.InsertPhoto(ctx, photo); err != nil {
		metrics.PhotoUploads.WithLabelValues("row_failed").Inc()
		return nil, fmt.Errorf("uploaded but not recorded: %w", err)
	}
	metrics.PhotoUploads.WithLabelValues("uploaded").Inc()
	return photo, nil
}

// keyTimestamp returns unix milliseconds, strictly increasing across calls
func (p *Publisher) keyTimestamp() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.now().UnixMilli()
	if t <= p.lastKeyT {
		t = p.lastKeyT + 1
	}
	p.lastKeyT = t
	return t
}

// ParseSubmission validates the form fields and converts them to a listing.
// Numbers must parse to finite, non-negative values.
func ParseSubmission(sub Submission) (*models.Listing, error) {
	title := strings.TrimSpace(sub.Title)
	if title == "" {
		return nil, invalid("title is required")
	}

	price, err := parseAmount("price", sub.Price)
	if err != nil {
		return nil, err
	}
	area, err := parseAmount("area", sub.AreaM2)
	if err != nil {
		return nil, err
	}
	bedrooms, err := parseCount("bedrooms", sub.Bedrooms)
	if err != nil {
		return nil, err
	}
	bathrooms, err := parseCount("bathrooms", sub.Bathrooms)
	if err != nil {
		return nil, err
	}

	propertyType := models.PropertyType(strings.TrimSpace(sub.PropertyType))
	switch propertyType {
	case models.PropertyTypeHouse, models.PropertyTypeApartment, models.PropertyTypeLand, models.PropertyTypeCommercial:
	default:
		return nil, invalid(fmt.Sprintf("unknown property type %q", sub.PropertyType))
	}

	status := models.ListingStatus(strings.TrimSpace(sub.Status))
	switch status {
	case "":
		status = models.ListingStatusReady
	case models.ListingStatusReady, models.ListingStatusUnderConstruction, models.ListingStatusLaunch:
	default:
		return nil, invalid(fmt.Sprintf("unknown status %q", sub.Status))
	}

	return &models.Listing{
		Title:        title,
		Description:  strings.TrimSpace(sub.Description),
		Address:      strings.TrimSpace(sub.Address),
		Price:        price,
		PropertyType: propertyType,
		Bedrooms:     bedrooms,
		Bathrooms:    bathrooms,
		AreaM2:       area,
		Status:       status,
	}, nil
}

func parseAmount(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid(fmt.Sprintf("%s must be a number, got %q", field, raw))
	}
	if v < 0 {
		return 0, invalid(fmt.Sprintf("%s must not be negative", field))
	}
	return v, nil
}

func parseCount(field, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalid(fmt.Sprintf("%s must be a whole number, got %q", field, raw))
	}
	if v < 0 {
		return 0, invalid(fmt.Sprintf("%s must not be negative", field))
	}
	return v, nil
}

func invalid(msg string) error {
	return gateway.E("parse submission", gateway.KindInvalid, errors.New(msg))
}
