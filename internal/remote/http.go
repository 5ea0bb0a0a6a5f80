// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/avalekseev/msnab/internal/deltas"
	"github.com/avalekseev/msnab/internal/logger"
	"github.com/avalekseev/msnab/models"
)

// Service method names, used both as request paths and as the keys the
// preferred-host redirects are stored under.
const (
	methodFindMembership = "FindMembership"
	methodABFindAll      = "ABFindContactsPaged"
)

const headerPreferredHost = "X-Preferred-Host-Name"

type httpContactClient struct {
	client *resty.Client
	scheme string

	store *deltas.Deltas
	log   *logger.Logger
}

// NewHTTPContactClient constructs the HTTP/JSON implementation of
// [ContactClient] against the given contact-service base URL. The deltas
// store supplies the cache key sent with incremental fetches and absorbs
// the cache key and preferred-host updates carried by responses.
func NewHTTPContactClient(baseURL string, timeout time.Duration, store *deltas.Deltas, log *logger.Logger) (ContactClient, error) {
	normalized, scheme, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid contact service address: %w", err)
	}

	client := resty.New().
		SetBaseURL(normalized).
		SetTimeout(timeout)

	return &httpContactClient{client: client, scheme: scheme, store: store, log: log}, nil
}

func normalizeBaseURL(raw string) (normalized, scheme string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), u.Scheme, nil
}

type membershipRequest struct {
	DeltasOnly bool   `json:"deltas_only"`
	CacheKey   string `json:"cache_key,omitempty"`
}

type addressBookRequest struct {
	AbID       string `json:"ab_id"`
	DeltasOnly bool   `json:"deltas_only"`
	CacheKey   string `json:"cache_key,omitempty"`
}

// FetchMembership implements [ContactClient]. It POSTs to the sharing
// service's FindMembership endpoint, sending the stored contact-service
// cache key when deltasOnly is set, and stores the refreshed cache key
// from the response.
func (h *httpContactClient) FetchMembership(ctx context.Context, deltasOnly bool) (*models.MembershipResult, error) {
	body := membershipRequest{DeltasOnly: deltasOnly}
	if deltasOnly {
		body.CacheKey = h.store.CacheKey(models.CacheKeyContactService)
	}

	var result models.MembershipResult
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(h.endpoint(methodFindMembership, "/abservice/SharingService/FindMembership"))
	if err != nil {
		return nil, fmt.Errorf("find membership request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	h.absorb(methodFindMembership, resp, result.CacheKey)
	return &result, nil
}

// FetchAddressBook implements [ContactClient]. It POSTs to the AB service
// for one addressbook page (the individual page or a circle's). A server
// that has expired the delta window answers with the full-sync marker;
// that surfaces as ErrFullSyncRequired.
func (h *httpContactClient) FetchAddressBook(ctx context.Context, abID string, deltasOnly bool) (*models.AddressBookResult, error) {
	if abID == "" {
		abID = models.IndividualAddressBookID
	}

	body := addressBookRequest{AbID: abID, DeltasOnly: deltasOnly}
	if deltasOnly {
		body.CacheKey = h.store.CacheKey(models.CacheKeyContactService)
	}

	var result models.AddressBookResult
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(h.endpoint(methodABFindAll, "/abservice/ABService/ABFindContactsPaged"))
	if err != nil {
		return nil, fmt.Errorf("find addressbook request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	h.absorb(methodABFindAll, resp, result.CacheKey)

	if result.FullSyncRequired {
		h.log.Warn().Str("ab_id", abID).Msg("server demands a full synchronization")
		return &result, fmt.Errorf("addressbook %s: %w", abID, ErrFullSyncRequired)
	}
	return &result, nil
}

// endpoint resolves the URL for a service method: the preferred host the
// server redirected this method to earlier, or the default base URL.
func (h *httpContactClient) endpoint(method, path string) string {
	if host := h.store.PreferredHost(method); host != "" {
		return h.scheme + "://" + host + path
	}
	return path
}

// absorb folds the incremental-fetch plumbing of a successful response into
// the deltas store: the refreshed cache key and, when the server asks to be
// addressed through a different host next time, the preferred host.
func (h *httpContactClient) absorb(method string, resp *resty.Response, cacheKey string) {
	h.store.SetCacheKey(models.CacheKeyContactService, cacheKey)

	if host := strings.TrimSpace(resp.Header().Get(headerPreferredHost)); host != "" {
		h.log.Debug().Str("method", method).Str("host", host).Msg("contact service set a preferred host")
		h.store.SetPreferredHost(method, host)
	}
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	switch resp.StatusCode() {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case http.StatusConflict:
		// The contact service answers 409 when the client's cache key fell
		// out of the delta window.
		return fmt.Errorf("%w: %s", ErrFullSyncRequired, body)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrServerError, body)
	default:
		if body == "" {
			body = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
	}
}
