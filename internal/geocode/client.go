// Package geocode resolves Indian postal codes to taluk, district and state.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public postal lookup API.
const DefaultBaseURL = "https://api.postalpincode.in"

var (
	// ErrInvalidPincode is returned for anything other than six ASCII digits.
	ErrInvalidPincode = errors.New("geocode: pincode must be 6 digits")
	// ErrNoMatch is returned when the lookup service knows no post office for the pincode.
	ErrNoMatch = errors.New("geocode: no post office for pincode")
)

// Address is the resolved location of a pincode.
type Address struct {
	Taluk    string `json:"taluk"`
	District string `json:"district"`
	State    string `json:"state"`
}

// Client queries the postal lookup API. Concurrent lookups for the same
// pincode share one request, and successful answers are cached.
type Client struct {
	baseURL string
	http    *http.Client

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]Address
}

// NewClient returns a Client for baseURL. A zero timeout disables the
// per-request deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache: make(map[string]Address),
	}
}

// IsPincode reports whether s is exactly six ASCII digits.
func IsPincode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Lookup resolves pincode.
func (c *Client) Lookup(ctx context.Context, pincode string) (Address, error) {
	if !IsPincode(pincode) {
		return Address{}, ErrInvalidPincode
	}

	c.mu.RLock()
	addr, ok := c.cache[pincode]
	c.mu.RUnlock()
	if ok {
		return addr, nil
	}

	v, err, _ := c.group.Do(pincode, func() (any, error) {
		addr, err := c.fetch(ctx, pincode)
		if err != nil {
			return Address{}, err
		}

		c.mu.Lock()
		c.cache[pincode] = addr
		c.mu.Unlock()
		return addr, nil
	})
	if err != nil {
		return Address{}, err
	}
	return v.(Address), nil
}

type postOffice struct {
	Name     string `json:"Name"`
	Block    string `json:"Block"`
	Division string `json:"Division"`
	District string `json:"District"`
	State    string `json:"State"`
}

type lookupResponse struct {
	Message    string       `json:"Message"`
	Status     string       `json:"Status"`
	PostOffice []postOffice `json:"PostOffice"`
}

func (c *Client) fetch(ctx context.Context, pincode string) (Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pincode/"+pincode, nil)
	if err != nil {
		return Address{}, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("lookup pincode %s: %w", pincode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Address{}, fmt.Errorf("lookup pincode %s: unexpected status %d", pincode, resp.StatusCode)
	}

	var body []lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Address{}, fmt.Errorf("decode lookup response: %w", err)
	}

	if len(body) == 0 || !strings.EqualFold(body[0].Status, "Success") || len(body[0].PostOffice) == 0 {
		return Address{}, fmt.Errorf("%w %s", ErrNoMatch, pincode)
	}

	po := body[0].PostOffice[0]
	taluk := po.Block
	if taluk == "" || strings.EqualFold(taluk, "NA") {
		taluk = po.Division
	}

	return Address{
		Taluk:    taluk,
		District: po.District,
		State:    po.State,
	}, nil
}
