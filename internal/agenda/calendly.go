package agenda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/P3dr7/SDR-IA/pkg/logging"
)

const calendlyBaseURL = "https://api.calendly.com"

// CalendlyConfig configures the scheduling-link provider.
type CalendlyConfig struct {
	APIToken     string
	EventTypeURI string
	UserURI      string
}

// CalendlyProvider is the scheduling-link flavored calendar provider. It
// reads busy times from the Calendly API and "creates" meetings by minting a
// single-use scheduling link, since Calendly owns the actual slot commit.
type CalendlyProvider struct {
	baseURL      string
	httpClient   *http.Client
	token        string
	eventTypeURI string
	userURI      string
	logger       *logging.Logger
}

// NewCalendlyProvider creates the provider, validating configuration.
func NewCalendlyProvider(cfg CalendlyConfig, logger *logging.Logger) (*CalendlyProvider, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.APIToken) == "" || strings.TrimSpace(cfg.EventTypeURI) == "" {
		return nil, errors.New("agenda: calendly api token and event type uri are required")
	}
	return &CalendlyProvider{
		baseURL:      calendlyBaseURL,
		httpClient:   &http.Client{Timeout: 20 * time.Second},
		token:        cfg.APIToken,
		eventTypeURI: cfg.EventTypeURI,
		userURI:      cfg.UserURI,
		logger:       logger,
	}, nil
}

func (p *CalendlyProvider) Name() string { return "calendly" }

type calendlyBusyTime struct {
	Type      string `json:"type"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BusyIntervals lists the user's busy times in the window.
func (p *CalendlyProvider) BusyIntervals(ctx context.Context, from, to time.Time) ([]BusyInterval, error) {
	if p.userURI == "" {
		// Without a user URI there is nothing to query; treat the window
		// as fully free rather than failing availability.
		return nil, nil
	}

	q := url.Values{}
	q.Set("user", p.userURI)
	q.Set("start_time", from.UTC().Format(time.RFC3339))
	q.Set("end_time", to.UTC().Format(time.RFC3339))

	var out struct {
		Collection []calendlyBusyTime `json:"collection"`
	}
	if err := p.do(ctx, http.MethodGet, "/user_busy_times?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	intervals := make([]BusyInterval, 0, len(out.Collection))
	for _, bt := range out.Collection {
		start, err := time.Parse(time.RFC3339, bt.StartTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, bt.EndTime)
		if err != nil {
			continue
		}
		intervals = append(intervals, BusyInterval{Start: start, End: end})
	}
	return intervals, nil
}

// CreateEvent mints a single-use scheduling link for the configured event
// type. The returned join link is the booking URL the lead completes.
func (p *CalendlyProvider) CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error) {
	body := map[string]interface{}{
		"max_event_count": 1,
		"owner":           p.eventTypeURI,
		"owner_type":      "EventType",
	}

	var out struct {
		Resource struct {
			BookingURL string `json:"booking_url"`
			Owner      string `json:"owner"`
		} `json:"resource"`
	}
	if err := p.do(ctx, http.MethodPost, "/scheduling_links", body, &out); err != nil {
		return nil, err
	}
	if out.Resource.BookingURL == "" {
		return nil, fmt.Errorf("%w: calendly returned empty booking url", ErrUpstream)
	}

	// Scheduling links carry no event id of their own; derive one from the
	// link so cancellation and CRM attachment have a stable handle.
	id := "cal_" + out.Resource.BookingURL[strings.LastIndex(out.Resource.BookingURL, "/")+1:]
	p.logger.Info("calendly scheduling link created", "booking_url", out.Resource.BookingURL)
	return &CreatedEvent{
		ID:       id,
		JoinLink: out.Resource.BookingURL,
		HTMLLink: out.Resource.BookingURL,
	}, nil
}

// CancelEvent cancels a scheduled event by its Calendly event uuid.
func (p *CalendlyProvider) CancelEvent(ctx context.Context, eventID string) error {
	eventID = strings.TrimPrefix(eventID, "cal_")
	body := map[string]interface{}{"reason": "cancelled by the SDR agent"}
	return p.do(ctx, http.MethodPost, "/scheduled_events/"+eventID+"/cancellation", body, &struct{}{})
}

func (p *CalendlyProvider) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("agenda: marshal calendly request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("agenda: build calendly request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: calendly %s %s: %v", ErrUpstream, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Error("calendly request failed", "method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: calendly %s %s: status %d", ErrUpstream, method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("%w: calendly %s %s: decode: %v", ErrUpstream, method, path, err)
		}
	}
	return nil
}
