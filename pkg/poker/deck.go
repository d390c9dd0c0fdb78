package poker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Suits lists the four suits in deck order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Rank is the numeric card value, 2 through 14 (Ace high).
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the short display form of the rank ("2".."10", "J", "Q", "K", "A").
func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	}
	if r >= Two && r <= Ten {
		return fmt.Sprintf("%d", int(r))
	}
	return "?"
}

// Valid reports whether r is in the 2..14 range.
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// Card represents a playing card
type Card struct {
	rank Rank
	suit Suit
}

// NewCard creates a card, returning an error for an unknown rank or suit.
func NewCard(rank Rank, suit Suit) (Card, error) {
	if !rank.Valid() {
		return Card{}, fmt.Errorf("invalid rank: %d", rank)
	}
	switch suit {
	case Spades, Hearts, Diamonds, Clubs:
	default:
		return Card{}, fmt.Errorf("invalid suit: %q", suit)
	}
	return Card{rank: rank, suit: suit}, nil
}

// MustCard is NewCard for literals known to be valid.
func MustCard(rank Rank, suit Suit) Card {
	c, err := NewCard(rank, suit)
	if err != nil {
		panic(err)
	}
	return c
}

// Rank returns the card's rank.
func (c Card) Rank() Rank { return c.rank }

// Suit returns the card's suit.
func (c Card) Suit() Suit { return c.suit }

// IsZero reports whether c is the zero Card (no card dealt).
func (c Card) IsZero() bool { return c.rank == 0 }

// String returns a string representation of the card
func (c Card) String() string {
	return c.rank.String() + string(c.suit)
}

// CardJSON represents a card for JSON serialization
type CardJSON struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// MarshalJSON implements json.Marshaler interface for Card
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(CardJSON{
		Suit:  string(c.suit),
		Value: c.rank.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler interface for Card
func (c *Card) UnmarshalJSON(data []byte) error {
	var cardJSON CardJSON
	if err := json.Unmarshal(data, &cardJSON); err != nil {
		return err
	}
	parsed, err := ParseCard(cardJSON.Value, cardJSON.Suit)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseSuit accepts the symbol, letter or English name of a suit.
func ParseSuit(s string) (Suit, error) {
	switch strings.ToLower(s) {
	case "♠", "s", "spades", "spade":
		return Spades, nil
	case "♥", "h", "hearts", "heart":
		return Hearts, nil
	case "♦", "d", "diamonds", "diamond":
		return Diamonds, nil
	case "♣", "c", "clubs", "club":
		return Clubs, nil
	}
	return "", fmt.Errorf("invalid suit: %s", s)
}

// ParseRank accepts digits, letters and English names ("10", "T", "0", "JACK", "ace").
func ParseRank(s string) (Rank, error) {
	switch strings.ToLower(s) {
	case "a", "ace", "14", "1":
		return Ace, nil
	case "k", "king", "13":
		return King, nil
	case "q", "queen", "12":
		return Queen, nil
	case "j", "jack", "11":
		return Jack, nil
	case "10", "t", "ten", "0":
		return Ten, nil
	case "9", "nine":
		return Nine, nil
	case "8", "eight":
		return Eight, nil
	case "7", "seven":
		return Seven, nil
	case "6", "six":
		return Six, nil
	case "5", "five":
		return Five, nil
	case "4", "four":
		return Four, nil
	case "3", "three":
		return Three, nil
	case "2", "two":
		return Two, nil
	}
	return 0, fmt.Errorf("invalid value: %s", s)
}

// ParseCard builds a card from separate value and suit strings.
func ParseCard(value, suit string) (Card, error) {
	r, err := ParseRank(value)
	if err != nil {
		return Card{}, err
	}
	s, err := ParseSuit(suit)
	if err != nil {
		return Card{}, err
	}
	return Card{rank: r, suit: s}, nil
}

// ParseCards parses compact codes such as "As Kd 10h 2c".
func ParseCards(codes string) ([]Card, error) {
	fields := strings.Fields(codes)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		runes := []rune(f)
		if len(runes) < 2 {
			return nil, fmt.Errorf("invalid card code: %q", f)
		}
		c, err := ParseCard(string(runes[:len(runes)-1]), string(runes[len(runes)-1]))
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", f, err)
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// ErrDeckEmpty is returned when a draw asks for more cards than remain.
var ErrDeckEmpty = errors.New("deck exhausted")

// CardSource supplies shuffled cards for a hand. Implementations may perform
// network I/O; the engine never runs two calls concurrently.
type CardSource interface {
	// Shuffle starts a fresh, shuffled 52-card deck.
	Shuffle(ctx context.Context) error
	// Draw removes and returns the next n cards.
	Draw(ctx context.Context, n int) ([]Card, error)
}

// Deck represents a deck of cards
type Deck struct {
	mu      sync.Mutex
	cards   []Card
	stacked []Card // fixed order restored by Shuffle, if set
	rng     *rand.Rand
}

var _ CardSource = (*Deck)(nil)

// NewDeck creates a new deck of cards with the given random number generator
func NewDeck(rng *rand.Rand) *Deck {
	deck := &Deck{rng: rng}
	deck.reset()
	return deck
}

func (d *Deck) reset() {
	if d.stacked != nil {
		d.cards = append(d.cards[:0:0], d.stacked...)
		return
	}
	d.cards = make([]Card, 0, 52)
	for _, suit := range Suits {
		for r := Two; r <= Ace; r++ {
			d.cards = append(d.cards, Card{rank: r, suit: suit})
		}
	}
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Shuffle restores all 52 cards and randomizes their order.
func (d *Deck) Shuffle(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	return nil
}

// Draw removes and returns the top n cards from the deck
func (d *Deck) Draw(_ context.Context, n int) ([]Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 || n > len(d.cards) {
		return nil, fmt.Errorf("draw %d of %d: %w", n, len(d.cards), ErrDeckEmpty)
	}
	out := make([]Card, n)
	copy(out, d.cards[:n])
	d.cards = d.cards[n:]
	return out, nil
}

// Size returns the number of cards remaining in the deck
func (d *Deck) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cards)
}

// NewDeckFromCards creates a deck that deals the given cards in order.
// Shuffle on such a deck restores the same order, so every hand dealt from
// it is identical.
func NewDeckFromCards(cards []Card) *Deck {
	deck := &Deck{stacked: append([]Card(nil), cards...)}
	deck.reset()
	return deck
}
