// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"cmp"
	"encoding/xml"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/lanefinder/internal/facets"
	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/venues"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapURL is one <url> entry.
type SitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// BuildSitemap lists the public pages for a venue snapshot: one page per
// state and city, one per category with venues, and one per venue. Each
// group is sorted so the output is stable for a given snapshot.
func BuildSitemap(baseURL string, all []models.Venue, categories *facets.Registry) []SitemapURL {
	base := strings.TrimRight(baseURL, "/")
	urls := []SitemapURL{{Loc: base + "/"}}

	for _, state := range facets.SortedStatesWith(all, facets.Any()) {
		urls = append(urls, SitemapURL{Loc: base + "/states/" + strings.ToLower(state)})
	}
	// Spellings that slugify alike ("St. Louis", "St Louis") share one page.
	seen := make(map[string]struct{})
	for _, sc := range facets.SortedCitiesWith(all, facets.Any()) {
		path := "/states/" + strings.ToLower(sc.State) + "/" + venues.Slugify(sc.City)
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		urls = append(urls, SitemapURL{Loc: base + path})
	}
	for _, category := range categories.Slugs() {
		pred, ok := categories.Lookup(category)
		if !ok || len(facets.StatesWith(all, pred)) == 0 {
			continue
		}
		urls = append(urls, SitemapURL{Loc: base + "/categories/" + category})
	}

	listed := make([]models.Venue, 0, len(all))
	for _, v := range all {
		if v.Slug != "" {
			listed = append(listed, v)
		}
	}
	slices.SortFunc(listed, func(a, b models.Venue) int { return cmp.Compare(a.Slug, b.Slug) })
	for _, v := range listed {
		u := SitemapURL{Loc: base + "/venues/" + v.Slug}
		if !v.UpdatedAt.IsZero() {
			u.LastMod = v.UpdatedAt.UTC().Format(time.DateOnly)
		}
		urls = append(urls, u)
	}
	return urls
}

// Sitemap serves /sitemap.xml built from the venue snapshot.
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	all, err := h.deps.Venues.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	set := urlSet{
		XMLNS: sitemapNamespace,
		URLs:  BuildSitemap(h.deps.Config.Server.PublicBaseURL, all, h.deps.Categories),
	}
	publicCache(w, h.deps.Config.Cache.VenuesMaxAge)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode sitemap")
	}
}
