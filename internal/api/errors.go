// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/ratings"
	"github.com/tomtom215/lanefinder/internal/snapshot"
	"github.com/tomtom215/lanefinder/internal/validation"
	"github.com/tomtom215/lanefinder/internal/venues"
)

// Retry hints sent with retryable failures.
const (
	conflictRetryAfter    = time.Second
	unavailableRetryAfter = 30 * time.Second
)

var (
	errUnknownCategory = errors.New("unknown category")
	errInvalidBody     = errors.New("invalid request body")
)

// writeServiceError maps a domain error to a status code and envelope.
// Anything unrecognized is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)

	case errors.Is(err, ratings.ErrValidation), errors.Is(err, venues.ErrValidation):
		rw.ValidationError(err.Error(), nil)

	case errors.Is(err, errInvalidBody), errors.Is(err, errUnknownCategory):
		rw.BadRequest(err.Error())

	case errors.Is(err, ratings.ErrVenueNotFound), errors.Is(err, venues.ErrNotFound):
		rw.NotFound("venue not found")

	case errors.Is(err, ratings.ErrReviewNotFound):
		rw.NotFound("review not found")

	case errors.Is(err, snapshot.ErrUnknownCache):
		rw.NotFound(err.Error())

	case errors.Is(err, venues.ErrForbidden):
		rw.Error(http.StatusForbidden, ErrCodeForbidden, err.Error())

	case errors.Is(err, venues.ErrSlugTaken):
		rw.Conflict(err.Error(), 0)

	case errors.Is(err, ratings.ErrConflict), errors.Is(err, venues.ErrConflict):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Write lost every transaction attempt")
		rw.Conflict("concurrent update, please retry", conflictRetryAfter)

	case errors.Is(err, snapshot.ErrUnavailable):
		logging.Ctx(r.Context()).Error().Err(err).Msg("No snapshot available")
		rw.ServiceUnavailable("data temporarily unavailable", unavailableRetryAfter)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		rw.ServiceUnavailable("request timed out", 0)

	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Msg("Request failed")
		rw.InternalError("internal error")
	}
}
