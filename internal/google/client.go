// Package google adapts the Google Calendar API to the application's
// calendar client surface. It resolves stored OAuth credentials per user,
// refreshes them as needed, and translates provider errors into the
// application's taxonomy.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/advicly/calendar-sync/internal/application"
	"github.com/advicly/calendar-sync/internal/logging"
	"github.com/advicly/calendar-sync/internal/persistence"
	"github.com/advicly/calendar-sync/internal/security"
)

// primaryCalendar is the calendar every sync operates on.
const primaryCalendar = "primary"

// watchTTL is how long a requested push channel should live. The provider
// may grant less.
const watchTTL = 7 * 24 * time.Hour

// Client implements application.CalendarClient against the Google Calendar
// API.
type Client struct {
	oauthConfig *oauth2.Config
	tokens      persistence.TokenRepository
	encryptor   *security.TokenEncryptor
	webhookURL  string
	now         func() time.Time

	// newService builds the API client for a token source. Tests replace it
	// to avoid the network.
	newService func(ctx context.Context, source oauth2.TokenSource) (*calendar.Service, error)
}

// NewClient creates a Client. webhookURL is the address watch channels
// deliver notifications to.
func NewClient(
	oauthConfig *oauth2.Config,
	tokens persistence.TokenRepository,
	encryptor *security.TokenEncryptor,
	webhookURL string,
	now func() time.Time,
) *Client {
	return &Client{
		oauthConfig: oauthConfig,
		tokens:      tokens,
		encryptor:   encryptor,
		webhookURL:  webhookURL,
		now:         now,
		newService: func(ctx context.Context, source oauth2.TokenSource) (*calendar.Service, error) {
			return calendar.NewService(ctx, option.WithTokenSource(source))
		},
	}
}

// ListEvents returns the user's events starting inside [from, to). Recurring
// events are expanded, cancelled occurrences are included, and all-day
// events are skipped.
func (c *Client) ListEvents(ctx context.Context, userID string, from, to time.Time) ([]application.RemoteEvent, error) {
	svc, err := c.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	var events []application.RemoteEvent
	pageToken := ""
	for {
		call := svc.Events.List(primaryCalendar).
			Context(ctx).
			ShowDeleted(true).
			SingleEvents(true).
			TimeMin(from.UTC().Format(time.RFC3339)).
			TimeMax(to.UTC().Format(time.RFC3339)).
			MaxResults(2500)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, mapError(err)
		}

		for _, item := range page.Items {
			event, ok := convertEvent(item)
			if !ok {
				continue
			}
			if !inWindow(event, from) {
				continue
			}
			events = append(events, event)
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return events, nil
}

// CreateWatch registers a push channel on the user's primary calendar.
func (c *Client) CreateWatch(ctx context.Context, userID string) (application.WatchRegistration, error) {
	svc, err := c.service(ctx, userID)
	if err != nil {
		return application.WatchRegistration{}, err
	}

	request := &calendar.Channel{
		Id:         "syncd-" + uuid.NewString(),
		Type:       "web_hook",
		Address:    c.webhookURL,
		Expiration: c.now().Add(watchTTL).UnixMilli(),
	}

	granted, err := svc.Events.Watch(primaryCalendar, request).Context(ctx).Do()
	if err != nil {
		return application.WatchRegistration{}, mapError(err)
	}

	expiration := time.UnixMilli(granted.Expiration).UTC()
	return application.WatchRegistration{
		ChannelID:  granted.Id,
		ResourceID: granted.ResourceId,
		Expiration: expiration,
	}, nil
}

// StopWatch asks the provider to stop delivering to the channel. A channel
// the provider no longer knows counts as stopped.
func (c *Client) StopWatch(ctx context.Context, userID, channelID, resourceID string) error {
	svc, err := c.service(ctx, userID)
	if err != nil {
		return err
	}

	err = svc.Channels.Stop(&calendar.Channel{Id: channelID, ResourceId: resourceID}).Context(ctx).Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == http.StatusNotFound {
			return nil
		}
		return mapError(err)
	}
	return nil
}

// service builds an API client backed by the user's stored credentials.
// Refreshed tokens are written back encrypted.
func (c *Client) service(ctx context.Context, userID string) (*calendar.Service, error) {
	stored, err := c.tokens.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("%w: no stored credentials", application.ErrAuthExpired)
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	accessToken, err := c.encryptor.Decrypt(stored.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	refreshToken, err := c.encryptor.Decrypt(stored.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       stored.ExpiresAt,
		TokenType:    "Bearer",
	}

	source := &persistingTokenSource{
		base:      c.oauthConfig.TokenSource(ctx, token),
		client:    c,
		userID:    userID,
		lastSaved: accessToken,
		ctx:       ctx,
	}
	return c.newService(ctx, source)
}

// persistingTokenSource stores refreshed tokens so the next run starts from
// live credentials instead of refreshing again.
type persistingTokenSource struct {
	base      oauth2.TokenSource
	client    *Client
	userID    string
	lastSaved string
	ctx       context.Context
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, mapError(err)
	}
	if token.AccessToken != s.lastSaved {
		s.persist(token)
		s.lastSaved = token.AccessToken
	}
	return token, nil
}

func (s *persistingTokenSource) persist(token *oauth2.Token) {
	logger := logging.FromContext(s.ctx)

	sealedAccess, err := s.client.encryptor.Encrypt(token.AccessToken)
	if err != nil {
		logger.Warn("failed to encrypt refreshed access token", "user_id", s.userID, "error", err)
		return
	}
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = s.lastRefreshToken()
	}
	sealedRefresh, err := s.client.encryptor.Encrypt(refreshToken)
	if err != nil {
		logger.Warn("failed to encrypt refresh token", "user_id", s.userID, "error", err)
		return
	}

	err = s.client.tokens.Save(s.ctx, persistence.CalendarToken{
		UserID:       s.userID,
		AccessToken:  sealedAccess,
		RefreshToken: sealedRefresh,
		ExpiresAt:    token.Expiry,
		UpdatedAt:    s.client.now(),
	})
	if err != nil {
		logger.Warn("failed to persist refreshed token", "user_id", s.userID, "error", err)
	}
}

func (s *persistingTokenSource) lastRefreshToken() string {
	stored, err := s.client.tokens.GetByUser(s.ctx, s.userID)
	if err != nil {
		return ""
	}
	refreshToken, err := s.client.encryptor.Decrypt(stored.RefreshToken)
	if err != nil {
		return ""
	}
	return refreshToken
}

// inWindow reports whether a listed event starts inside a window opening at
// from. The API's TimeMin bounds an event's end, so ongoing events that
// started before the window are still returned and must be dropped to keep
// the [from, to) contract. Cancelled events carry no times and pass through.
func inWindow(event application.RemoteEvent, from time.Time) bool {
	return event.Cancelled || !event.StartTime.Before(from)
}

// convertEvent maps one API event to a RemoteEvent. All-day events carry a
// date without a time and are skipped.
func convertEvent(item *calendar.Event) (application.RemoteEvent, bool) {
	if item == nil || item.Id == "" {
		return application.RemoteEvent{}, false
	}

	event := application.RemoteEvent{
		ID:        item.Id,
		Title:     item.Summary,
		Cancelled: item.Status == "cancelled",
	}
	if item.Location != "" {
		location := item.Location
		event.Location = &location
	}
	if item.Description != "" {
		description := item.Description
		event.Description = &description
	}

	if event.Cancelled {
		return event, true
	}

	if item.Start == nil || item.End == nil || item.Start.DateTime == "" || item.End.DateTime == "" {
		return application.RemoteEvent{}, false
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return application.RemoteEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return application.RemoteEvent{}, false
	}
	event.StartTime = start.UTC()
	event.EndTime = end.UTC()
	return event, true
}

// mapError translates provider failures into the application error taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", application.ErrAuthExpired, err)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch {
		case gErr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", application.ErrAuthExpired, err)
		case gErr.Code == http.StatusForbidden && !rateLimited(gErr):
			return fmt.Errorf("%w: %v", application.ErrAuthExpired, err)
		case gErr.Code == http.StatusForbidden, gErr.Code == http.StatusTooManyRequests, gErr.Code >= 500:
			return fmt.Errorf("%w: %v", application.ErrRemoteUnavailable, err)
		default:
			return err
		}
	}

	return fmt.Errorf("%w: %v", application.ErrRemoteUnavailable, err)
}

func rateLimited(gErr *googleapi.Error) bool {
	for _, item := range gErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}
