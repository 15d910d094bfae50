// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/lanefinder/internal/auth"
)

// mintToken signs a token for a "subject:role" argument. Tokens are normally
// issued by an external identity provider; this exists for operators and
// local development.
func mintToken(jwt *auth.JWTManager, arg string, ttl time.Duration) (string, error) {
	subject, role, ok := strings.Cut(arg, ":")
	if !ok || subject == "" {
		return "", fmt.Errorf("token argument %q must be subject:role", arg)
	}
	return jwt.GenerateToken(subject, role, ttl)
}
