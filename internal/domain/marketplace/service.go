package marketplace

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/blockchain"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/access"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

// ValueWriter settles the purchase split on the value ledger. The whole
// batch lands in one settlement transaction or not at all.
type ValueWriter interface {
	TransferBatch(ctx context.Context, legs []blockchain.TransferLeg) (string, error)
}

// Service is the data marketplace: listings, escrowed purchase with platform
// fee split, and incremental rating aggregation.
type Service struct {
	rt     *ledger.Runtime
	roles  *access.Registry
	writer ValueWriter

	products       map[uint64]*Product
	purchases      map[pairKey]*Purchase
	purchasesByID  map[uint64]*Purchase
	buyerPurchases map[ledger.Identity][]uint64
	reviews        map[pairKey]*Review
	productReviews map[uint64][]*Review

	feeBps       int64
	feeRecipient ledger.Identity
	totalSales   uint64
}

func NewService(rt *ledger.Runtime, roles *access.Registry, writer ValueWriter, feeBps int64, feeRecipient ledger.Identity) *Service {
	if feeBps < 0 || feeBps > MaxPlatformFeeBps {
		feeBps = 250
	}
	return &Service{
		rt:             rt,
		roles:          roles,
		writer:         writer,
		products:       map[uint64]*Product{},
		purchases:      map[pairKey]*Purchase{},
		purchasesByID:  map[uint64]*Purchase{},
		buyerPurchases: map[ledger.Identity][]uint64{},
		reviews:        map[pairKey]*Review{},
		productReviews: map[uint64][]*Review{},
		feeBps:         feeBps,
		feeRecipient:   feeRecipient,
	}
}

// ListProduct lists a new data product under a sequential id.
func (s *Service) ListProduct(_ context.Context, caller ledger.Identity, in ListInput) (*Product, error) {
	var out *Product
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if caller.IsZero() {
			return ledger.Unauthorized("missing_identity")
		}
		if strings.TrimSpace(in.Name) == "" {
			return ledger.Validation("empty_name")
		}
		if in.Price <= 0 {
			return ledger.Validation("invalid_price")
		}
		if strings.TrimSpace(in.ContentHash) == "" {
			return ledger.Validation("empty_content_hash")
		}
		p := &Product{
			ID:          tx.NextID("product"),
			Seller:      caller,
			Name:        strings.TrimSpace(in.Name),
			Description: strings.TrimSpace(in.Description),
			Price:       in.Price,
			ContentHash: strings.TrimSpace(in.ContentHash),
			Active:      true,
			ListedAt:    tx.At,
		}
		s.products[p.ID] = p
		tx.Emit("product_listed", map[string]any{
			"product_id": p.ID,
			"seller":     string(caller),
			"price":      p.Price,
		})
		cp := *p
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PurchaseProduct buys a product. One purchase per (buyer, product), forever;
// the payment is split between seller and fee recipient on the value ledger,
// and the buyer receives a derived access key.
func (s *Service) PurchaseProduct(ctx context.Context, caller ledger.Identity, productID uint64, payment int64) (*Purchase, error) {
	var out *Purchase
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("marketplace:purchase", func() error {
			if caller.IsZero() {
				return ledger.Unauthorized("missing_identity")
			}
			p := s.products[productID]
			if p == nil {
				return ledger.State("product_not_found")
			}
			if !p.Active {
				return ledger.State("product_inactive")
			}
			if caller == p.Seller {
				return ledger.Validation("self_purchase")
			}
			if _, bought := s.purchases[pairKey{caller, productID}]; bought {
				return ledger.State("already_purchased")
			}
			if payment < p.Price {
				return ledger.Resource("insufficient_payment")
			}

			fee := p.Price * s.feeBps / 10000
			legs := []blockchain.TransferLeg{
				{From: string(caller), To: string(p.Seller), AmountMinor: p.Price - fee},
			}
			if fee > 0 {
				legs = append(legs, blockchain.TransferLeg{From: string(caller), To: string(s.feeRecipient), AmountMinor: fee})
			}
			if _, err := s.writer.TransferBatch(ctx, legs); err != nil {
				return err
			}

			purchase := &Purchase{
				ID:        tx.NextID("purchase"),
				ProductID: productID,
				Buyer:     caller,
				Seller:    p.Seller,
				Price:     p.Price,
				AccessKey: deriveAccessKey(caller, productID, tx.At.UnixNano()),
				At:        tx.At,
			}
			s.purchases[pairKey{caller, productID}] = purchase
			s.purchasesByID[purchase.ID] = purchase
			s.buyerPurchases[caller] = append(s.buyerPurchases[caller], purchase.ID)
			p.SalesCount++
			s.totalSales++
			tx.Emit("product_purchased", map[string]any{
				"purchase_id": purchase.ID,
				"product_id":  productID,
				"buyer":       string(caller),
				"seller":      string(p.Seller),
				"price":       p.Price,
				"fee":         fee,
			})
			cp := *purchase
			out = &cp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitReview records one review per (reviewer, product) and folds the
// rating into the product's running average with integer truncation.
func (s *Service) SubmitReview(_ context.Context, caller ledger.Identity, productID uint64, rating uint32, comment string) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if caller.IsZero() {
			return ledger.Unauthorized("missing_identity")
		}
		p := s.products[productID]
		if p == nil {
			return ledger.State("product_not_found")
		}
		if rating < MinRating || rating > MaxRating {
			return ledger.Validation("rating_out_of_range")
		}
		if _, bought := s.purchases[pairKey{caller, productID}]; !bought {
			return ledger.State("purchase_required")
		}
		key := pairKey{caller, productID}
		if _, reviewed := s.reviews[key]; reviewed {
			return ledger.State("already_reviewed")
		}

		review := &Review{
			ProductID: productID,
			Reviewer:  caller,
			Rating:    rating,
			Comment:   strings.TrimSpace(comment),
			At:        tx.At,
		}
		s.reviews[key] = review
		s.productReviews[productID] = append(s.productReviews[productID], review)

		oldTotal := uint64(p.RatingTimes100) * uint64(p.ReviewCount)
		p.ReviewCount++
		p.RatingTimes100 = uint32((oldTotal + uint64(rating)*100) / uint64(p.ReviewCount))
		tx.Emit("review_submitted", map[string]any{
			"product_id": productID,
			"reviewer":   string(caller),
			"rating":     rating,
		})
		return nil
	})
}

// UpdateProductPrice changes a listing's price. Original seller only.
func (s *Service) UpdateProductPrice(_ context.Context, caller ledger.Identity, productID uint64, price int64) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		p := s.products[productID]
		if p == nil {
			return ledger.State("product_not_found")
		}
		if caller != p.Seller {
			return ledger.Unauthorized("not_seller")
		}
		if price <= 0 {
			return ledger.Validation("invalid_price")
		}
		p.Price = price
		tx.Emit("product_price_updated", map[string]any{"product_id": productID, "price": price})
		return nil
	})
}

// DeactivateProduct delists a product. Seller only; terminal, the seller
// cannot relist it.
func (s *Service) DeactivateProduct(_ context.Context, caller ledger.Identity, productID uint64) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		p := s.products[productID]
		if p == nil {
			return ledger.State("product_not_found")
		}
		if caller != p.Seller {
			return ledger.Unauthorized("not_seller")
		}
		return s.deactivate(tx, p, string(caller))
	})
}

// EmergencyDeactivateProduct force-delists a product. Admin, any time.
func (s *Service) EmergencyDeactivateProduct(_ context.Context, caller ledger.Identity, productID uint64) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		p := s.products[productID]
		if p == nil {
			return ledger.State("product_not_found")
		}
		return s.deactivate(tx, p, string(caller))
	})
}

func (s *Service) deactivate(tx *ledger.Tx, p *Product, by string) error {
	if !p.Active {
		return ledger.State("product_already_inactive")
	}
	p.Active = false
	tx.Emit("product_deactivated", map[string]any{"product_id": p.ID, "by": by})
	return nil
}

// UpdatePlatformFee sets the fee in basis points, capped at 1000. Admin only.
func (s *Service) UpdatePlatformFee(_ context.Context, caller ledger.Identity, feeBps int64) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		if feeBps < 0 || feeBps > MaxPlatformFeeBps {
			return ledger.Validation("fee_out_of_range")
		}
		s.feeBps = feeBps
		tx.Emit("platform_fee_updated", map[string]any{"fee_bps": feeBps})
		return nil
	})
}

// UpdateFeeRecipient changes where the platform's cut settles. Admin only.
func (s *Service) UpdateFeeRecipient(_ context.Context, caller, recipient ledger.Identity) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		if recipient.IsZero() {
			return ledger.Validation("empty_recipient")
		}
		s.feeRecipient = recipient
		tx.Emit("fee_recipient_updated", map[string]any{"recipient": string(recipient)})
		return nil
	})
}

// GetProduct returns one listing.
func (s *Service) GetProduct(_ context.Context, productID uint64) (*Product, error) {
	var out *Product
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		p := s.products[productID]
		if p == nil {
			return ledger.State("product_not_found")
		}
		cp := *p
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts returns active listings ordered by id.
func (s *Service) ListProducts(_ context.Context) ([]Product, error) {
	var out []Product
	_ = s.rt.Exec(func(tx *ledger.Tx) error {
		for _, p := range s.products {
			if p.Active {
				out = append(out, *p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetPurchase returns one purchase; buyer, seller, or admin only.
func (s *Service) GetPurchase(_ context.Context, caller ledger.Identity, purchaseID uint64) (*Purchase, error) {
	var out *Purchase
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		purchase := s.purchasesByID[purchaseID]
		if purchase == nil {
			return ledger.State("purchase_not_found")
		}
		if caller != purchase.Buyer && caller != purchase.Seller && !s.roles.Has(caller, access.RoleAdmin) {
			return ledger.Unauthorized("purchase_access_denied")
		}
		cp := *purchase
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PurchasesOf lists the caller's own purchases.
func (s *Service) PurchasesOf(_ context.Context, caller ledger.Identity) ([]Purchase, error) {
	var out []Purchase
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if caller.IsZero() {
			return ledger.Unauthorized("missing_identity")
		}
		for _, id := range s.buyerPurchases[caller] {
			out = append(out, *s.purchasesByID[id])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReviewsOf lists a product's reviews in submission order.
func (s *Service) ReviewsOf(_ context.Context, productID uint64) ([]Review, error) {
	var out []Review
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if s.products[productID] == nil {
			return ledger.State("product_not_found")
		}
		for _, r := range s.productReviews[productID] {
			out = append(out, *r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TotalSales returns the marketplace-wide sales counter.
func (s *Service) TotalSales(_ context.Context) uint64 {
	var n uint64
	_ = s.rt.Exec(func(tx *ledger.Tx) error {
		n = s.totalSales
		return nil
	})
	return n
}

// deriveAccessKey binds the key to buyer, product, and purchase timestamp.
// It cannot be recomputed later because the timestamp is part of the input.
func deriveAccessKey(buyer ledger.Identity, productID uint64, atNanos int64) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = fmt.Fprintf(h, "%s:%d:%d", buyer, productID, atNanos)
	return hex.EncodeToString(h.Sum(nil))
}
