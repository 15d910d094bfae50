// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package venues creates and edits venue listings. Rating aggregates are
// owned by the ratings package and are never touched here.
package venues

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/snapshot"
	"github.com/tomtom215/lanefinder/internal/store"
	"github.com/tomtom215/lanefinder/internal/validation"
)

var (
	ErrNotFound   = errors.New("venue not found")
	ErrForbidden  = errors.New("not allowed to edit this venue")
	ErrValidation = errors.New("invalid venue")
	ErrSlugTaken  = errors.New("slug already in use")
	ErrConflict   = errors.New("venue update conflict")
)

// maxSlugSuffix bounds the "-2", "-3", ... probes for a free generated slug.
const maxSlugSuffix = 50

// Actor is the authenticated caller of a write.
type Actor struct {
	ID    string
	Admin bool
}

// Backend is the store surface the service needs.
type Backend interface {
	store.Transactor
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
}

// Service manages venue documents.
type Service struct {
	backend     Backend
	invalidator snapshot.Invalidator
	clock       clockwork.Clock
}

// NewService creates a Service. invalidator may be nil.
func NewService(backend Backend, invalidator snapshot.Invalidator, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{backend: backend, invalidator: invalidator, clock: clock}
}

// Get reads a venue straight from the store, bypassing every snapshot.
func (s *Service) Get(ctx context.Context, id string) (*models.Venue, error) {
	if !store.ValidID(id) {
		return nil, ErrNotFound
	}
	v, err := s.backend.GetVenue(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get venue %s: %w", id, err)
	}
	return v, nil
}

// Create stores a new venue with a generated ID. When in.Slug is empty a
// slug is derived from the name, city and state, suffixed until it is free.
func (s *Service) Create(ctx context.Context, in models.Venue) (*models.Venue, error) {
	v := models.Venue{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Slug:      strings.TrimSpace(in.Slug),
		Address:   strings.TrimSpace(in.Address),
		City:      strings.TrimSpace(in.City),
		State:     strings.ToUpper(strings.TrimSpace(in.State)),
		Zip:       strings.TrimSpace(in.Zip),
		Phone:     strings.TrimSpace(in.Phone),
		Website:   strings.TrimSpace(in.Website),
		OwnerID:   strings.TrimSpace(in.OwnerID),
		Amenities: normalizeAmenities(in.Amenities),
		Lanes:     in.Lanes,
	}
	if verr := validation.ValidateStruct(&v); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, verr)
	}
	if v.OwnerID != "" && !store.ValidID(v.OwnerID) {
		return nil, fmt.Errorf("%w: invalid owner id", ErrValidation)
	}

	explicit := v.Slug != ""
	base := v.Slug
	if explicit {
		if verr := validation.GetValidator().Var(base, "slug,max=100"); verr != nil {
			return nil, fmt.Errorf("%w: slug must be lower-case words joined by hyphens", ErrValidation)
		}
	} else {
		base = Slugify(v.Name, v.City, v.State)
		if base == "" {
			base = "venue"
		}
	}

	now := s.clock.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now

	err := s.backend.RunTransaction(ctx, func(txn store.Txn) error {
		slug, err := freeSlug(txn, base, explicit)
		if err != nil {
			return err
		}
		v.Slug = slug
		if err := store.ClaimSlugTx(txn, slug, v.ID); err != nil {
			return err
		}
		return store.PutVenueTx(txn, &v)
	})
	if err != nil {
		return nil, fmt.Errorf("create venue: %w", mapError(err))
	}

	logging.Ctx(ctx).Info().Str("venue_id", v.ID).Str("slug", v.Slug).Msg("Venue created")
	s.invalidate(ctx)
	return &v, nil
}

// Update applies patch to the venue. Only an admin or the venue's owner may
// edit it. The slug is kept so published URLs stay valid.
func (s *Service) Update(ctx context.Context, actor Actor, id string, patch models.VenuePatch) (*models.Venue, error) {
	if !store.ValidID(id) {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		patch.Name = &trimmed
	}
	if patch.Amenities != nil {
		normalized := normalizeAmenities(*patch.Amenities)
		patch.Amenities = &normalized
	}
	if verr := validation.ValidateStruct(&patch); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, verr)
	}

	var updated models.Venue
	err := s.backend.RunTransaction(ctx, func(txn store.Txn) error {
		v, err := store.GetVenueTx(txn, id)
		if err != nil {
			return err
		}
		if !actor.Admin && (actor.ID == "" || actor.ID != v.OwnerID) {
			return ErrForbidden
		}
		patch.Apply(v)
		v.UpdatedAt = s.clock.Now().UTC()
		updated = *v
		return store.PutVenueTx(txn, v)
	})
	if err != nil {
		return nil, fmt.Errorf("update venue %s: %w", id, mapError(err))
	}

	logging.Ctx(ctx).Info().Str("venue_id", id).Str("editor", actor.ID).Msg("Venue updated")
	s.invalidate(ctx)
	return &updated, nil
}

func freeSlug(txn store.Txn, base string, explicit bool) (string, error) {
	owner, err := store.SlugOwnerTx(txn, base)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return base, nil
	}
	if explicit {
		return "", ErrSlugTaken
	}
	for n := 2; n <= maxSlugSuffix; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		owner, err := store.SlugOwnerTx(txn, candidate)
		if err != nil {
			return "", err
		}
		if owner == "" {
			return candidate, nil
		}
	}
	return "", ErrSlugTaken
}

func normalizeAmenities(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, snapshot.Venues); err != nil && !errors.Is(err, snapshot.ErrUnknownCache) {
		logging.Ctx(ctx).Warn().Err(err).Msg("Venue cache invalidation failed")
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrSlugTaken):
		return err
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
