package marketplace

import (
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

const (
	MaxPlatformFeeBps = 1000

	MinRating = 1
	MaxRating = 5
)

type Product struct {
	ID          uint64          `json:"id"`
	Seller      ledger.Identity `json:"seller"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       int64           `json:"price"`
	ContentHash string          `json:"content_hash"`
	Active      bool            `json:"active"`
	SalesCount  uint64          `json:"sales_count"`
	// RatingTimes100 is the running average rating scaled by 100, recomputed
	// incrementally with integer truncation on every review.
	RatingTimes100 uint32    `json:"rating_times_100"`
	ReviewCount    uint32    `json:"review_count"`
	ListedAt       time.Time `json:"listed_at"`
}

type ListInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	ContentHash string `json:"content_hash"`
}

type Purchase struct {
	ID        uint64          `json:"id"`
	ProductID uint64          `json:"product_id"`
	Buyer     ledger.Identity `json:"buyer"`
	Seller    ledger.Identity `json:"seller"`
	Price     int64           `json:"price"`
	AccessKey string          `json:"access_key"`
	At        time.Time       `json:"at"`
}

type Review struct {
	ProductID uint64          `json:"product_id"`
	Reviewer  ledger.Identity `json:"reviewer"`
	Rating    uint32          `json:"rating"`
	Comment   string          `json:"comment"`
	At        time.Time       `json:"at"`
}

type pairKey struct {
	identity  ledger.Identity
	productID uint64
}
