// Package deckapi implements poker.CardSource on top of a remote
// deck-of-cards HTTP service (the deckofcardsapi.com protocol).
package deckapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/holdemtable/pkg/poker"
)

// DefaultBaseURL is the public deck-of-cards service.
const DefaultBaseURL = "https://deckofcardsapi.com"

// ErrNoDeck is returned by Draw before the first successful Shuffle.
var ErrNoDeck = errors.New("no deck shuffled")

// Config configures a Client.
type Config struct {
	Log     slog.Logger
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
}

// Client draws cards from a remote deck. It is not safe for concurrent use;
// the table engine calls it from a single goroutine.
type Client struct {
	log     slog.Logger
	baseURL string
	http    *http.Client
	deckID  string
}

var _ poker.CardSource = (*Client)(nil)

// New returns a client for cfg.BaseURL.
func New(cfg Config) *Client {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTP == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		cfg.HTTP = &http.Client{Timeout: timeout}
	}
	return &Client{
		log:     cfg.Log,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTP,
	}
}

type apiCard struct {
	Code  string `json:"code"`
	Value string `json:"value"`
	Suit  string `json:"suit"`
}

type apiResponse struct {
	Success   bool      `json:"success"`
	DeckID    string    `json:"deck_id"`
	Shuffled  bool      `json:"shuffled"`
	Remaining int       `json:"remaining"`
	Cards     []apiCard `json:"cards"`
	Error     string    `json:"error"`
}

// DeckID returns the id of the current remote deck.
func (c *Client) DeckID() string { return c.deckID }

// Shuffle requests a brand new shuffled deck.
func (c *Client) Shuffle(ctx context.Context) error {
	resp, err := c.get(ctx, "/api/deck/new/shuffle/", url.Values{"deck_count": {"1"}})
	if err != nil {
		return fmt.Errorf("shuffle: %w", err)
	}
	if resp.DeckID == "" {
		return errors.New("shuffle: response carried no deck id")
	}
	c.deckID = resp.DeckID
	c.log.Debugf("new remote deck %s (%d cards)", c.deckID, resp.Remaining)
	return nil
}

// Draw takes n cards off the current deck.
func (c *Client) Draw(ctx context.Context, n int) ([]poker.Card, error) {
	if c.deckID == "" {
		return nil, ErrNoDeck
	}
	if n <= 0 {
		return nil, nil
	}
	path := "/api/deck/" + url.PathEscape(c.deckID) + "/draw/"
	resp, err := c.get(ctx, path, url.Values{"count": {strconv.Itoa(n)}})
	if err != nil {
		return nil, fmt.Errorf("draw %d: %w", n, err)
	}
	if len(resp.Cards) != n {
		return nil, fmt.Errorf("draw %d: got %d cards: %w", n, len(resp.Cards), poker.ErrDeckEmpty)
	}

	cards := make([]poker.Card, 0, n)
	for _, ac := range resp.Cards {
		card, err := poker.ParseCard(ac.Value, ac.Suit)
		if err != nil {
			return nil, fmt.Errorf("draw: card %q: %w", ac.Code, err)
		}
		cards = append(cards, card)
	}
	c.log.Tracef("drew %v from deck %s, %d left", cards, c.deckID, resp.Remaining)
	return cards, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*apiResponse, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s response (status %d): %w", path, res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || !body.Success {
		if strings.Contains(strings.ToLower(body.Error), "not enough cards") {
			return nil, fmt.Errorf("%s: %w", body.Error, poker.ErrDeckEmpty)
		}
		return nil, fmt.Errorf("deck service returned status %d: %s", res.StatusCode, body.Error)
	}
	return &body, nil
}
