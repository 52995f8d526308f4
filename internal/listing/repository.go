// Package listing implements the listing workflows on top of the gateway
// surfaces: fetching, cascading deletion and publishing with photo uploads.
package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"listing-portal/internal/events"
	"listing-portal/internal/gateway"
	"listing-portal/internal/metrics"
	"listing-portal/internal/models"
	"listing-portal/internal/notify"

	"go.uber.org/zap"
)

// Repository reads and deletes listings
type Repository struct {
	store  gateway.Store
	blob   gateway.Blob
	audit  gateway.AuditLog
	events gateway.Publisher
	logger *zap.Logger
}

// NewRepository creates a repository. audit may be nil; a nil publisher discards events.
func NewRepository(store gateway.Store, blob gateway.Blob, audit gateway.AuditLog, pub gateway.Publisher, log *zap.Logger) *Repository {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Repository{store: store, blob: blob, audit: audit, events: pub, logger: log}
}

// FetchAll returns every listing with its photos in backend order
func (r *Repository) FetchAll(ctx context.Context) ([]models.Listing, error) {
	listings, err := r.store.ListListings(ctx)
	if err != nil {
		r.logger.Error("Failed to fetch listings", zap.Error(err))
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	return listings, nil
}

// Create inserts a listing row
func (r *Repository) Create(ctx context.Context, l *models.Listing) error {
	if err := r.store.InsertListing(ctx, l); err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// DeleteReport describes what a deletion touched
type DeleteReport struct {
	ListingID string
	// Paths are the blob keys sent in the batch removal
	Paths []string
	// Skipped counts photos whose URL has no bucket marker
	Skipped int
	// Orphaned holds Paths when the batch removal failed
	Orphaned []string
}

// DeleteListing removes a listing's photo blobs and then the listing row.
// Photo rows go with the listing by cascade. A blob failure is reported and
// tolerated; a row failure aborts and leaves the listing in place. Callers
// refresh the grid after a successful return.
func (r *Repository) DeleteListing(ctx context.Context, id, title string, n notify.Notifier) (*DeleteReport, error) {
	report := &DeleteReport{ListingID: id}
	log := r.logger.With(zap.String("listing_id", id))

	photos, err := r.store.ListPhotos(ctx, id)
	if err != nil {
		log.Warn("Photo lookup failed, deleting listing without blob cleanup", zap.Error(err))
		notify.Warning(n, "Could not look up the photos of this listing: %v", err)
	}

	bucket := r.blob.Bucket()
	for _, p := range photos {
		path, ok := PathFromURL(p.URL, bucket)
		if !ok {
			report.Skipped++
			log.Debug("Photo URL has no bucket marker", zap.String("url", p.URL))
			continue
		}
		report.Paths = append(report.Paths, path)
	}

	if len(report.Paths) > 0 {
		if err := r.blob.RemoveMany(ctx, report.Paths); err != nil {
			report.Orphaned = report.Paths
			metrics.BlobRemoveFailures.Inc()
			log.Warn("Batch blob removal failed, photo files may be orphaned",
				zap.Strings("paths", report.Paths), zap.Error(err))
			notify.Warning(n, "Could not remove the photo files from storage: %v", err)
		}
	}

	if err := r.store.DeleteListing(ctx, id); err != nil {
		log.Error("Failed to delete listing", zap.Error(err))
		notify.Error(n, "Failed to delete listing: %v", err)
		return report, fmt.Errorf("delete listing %s: %w", id, err)
	}

	metrics.ListingsDeleted.Inc()
	log.Info("Deleted listing", zap.Int("photos", len(report.Paths)), zap.Int("orphaned", len(report.Orphaned)))
	notify.Success(n, "Listing deleted successfully.")

	r.recordDeletion(ctx, report, title, len(photos))
	return report, nil
}

func (r *Repository) recordDeletion(ctx context.Context, report *DeleteReport, title string, photoCount int) {
	if r.audit != nil {
		entry := &models.DeleteLog{
			ListingID:     report.ListingID,
			Title:         title,
			PhotoCount:    photoCount,
			OrphanedPaths: strings.Join(report.Orphaned, "\n"),
			Reason:        models.DeleteReasonManual,
		}
		if err := r.audit.RecordDeletion(ctx, entry); err != nil {
			r.logger.Warn("Failed to write delete log", zap.String("listing_id", report.ListingID), zap.Error(err))
		}
	}

	evt := events.ListingDeleted{
		ListingID:     report.ListingID,
		PhotoCount:    photoCount,
		OrphanedPaths: report.Orphaned,
		OccurredAt:    time.Now().UTC(),
	}
	if err := r.events.Publish(ctx, events.SubjectListingDeleted, evt); err != nil {
		r.logger.Warn("Failed to publish delete event", zap.String("listing_id", report.ListingID), zap.Error(err))
	}
}
