package marketplace

import (
	"context"
	"errors"
	"testing"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/blockchain"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/access"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

type transfer struct {
	from, to string
	amount   int64
}

type writerMock struct {
	transfers []transfer
	batches   int
	fail      bool
}

func (m *writerMock) TransferBatch(_ context.Context, legs []blockchain.TransferLeg) (string, error) {
	if m.fail {
		return "", errors.New("settlement_failed")
	}
	m.batches++
	for _, leg := range legs {
		m.transfers = append(m.transfers, transfer{leg.From, leg.To, leg.AmountMinor})
	}
	return "0xtest", nil
}

func newTestMarket(t *testing.T) (*ledger.Runtime, *writerMock, *Service) {
	t.Helper()
	rt := ledger.NewRuntime()
	reg := access.NewRegistry(rt, "admin-1")
	writer := &writerMock{}
	return rt, writer, NewService(rt, reg, writer, 250, "platform:fees")
}

func listOne(t *testing.T, svc *Service, seller ledger.Identity, price int64) uint64 {
	t.Helper()
	p, err := svc.ListProduct(context.Background(), seller, ListInput{
		Name:        "txn-history",
		Description: "12mo transaction history",
		Price:       price,
		ContentHash: "0xabc",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return p.ID
}

func TestListProductValidation(t *testing.T) {
	_, _, svc := newTestMarket(t)
	ctx := context.Background()

	if _, err := svc.ListProduct(ctx, "seller-1", ListInput{Name: "", Price: 1, ContentHash: "h"}); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("empty name should fail, got %v", err)
	}
	if _, err := svc.ListProduct(ctx, "seller-1", ListInput{Name: "x", Price: 0, ContentHash: "h"}); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("zero price should fail, got %v", err)
	}
	if _, err := svc.ListProduct(ctx, "seller-1", ListInput{Name: "x", Price: 1, ContentHash: ""}); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("empty content hash should fail, got %v", err)
	}

	first := listOne(t, svc, "seller-1", 100)
	second := listOne(t, svc, "seller-1", 100)
	if second != first+1 {
		t.Fatalf("ids should be sequential, got %d then %d", first, second)
	}
}

func TestPurchaseSplitsPayment(t *testing.T) {
	_, writer, svc := newTestMarket(t)
	ctx := context.Background()
	id := listOne(t, svc, "seller-1", 10_000)

	purchase, err := svc.PurchaseProduct(ctx, "buyer-1", id, 10_000)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if purchase.AccessKey == "" {
		t.Fatalf("missing access key")
	}
	// 250 bps of 10000 is 250 to the platform, remainder to the seller,
	// settled together in a single batch.
	if writer.batches != 1 || len(writer.transfers) != 2 {
		t.Fatalf("expected one batch of two legs, got %d batches with %d legs", writer.batches, len(writer.transfers))
	}
	if writer.transfers[0].to != "seller-1" || writer.transfers[0].amount != 9_750 {
		t.Fatalf("unexpected seller leg: %+v", writer.transfers[0])
	}
	if writer.transfers[1].to != "platform:fees" || writer.transfers[1].amount != 250 {
		t.Fatalf("unexpected fee leg: %+v", writer.transfers[1])
	}

	got, err := svc.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.SalesCount != 1 {
		t.Fatalf("sales count not bumped: %+v", got)
	}
	if svc.TotalSales(ctx) != 1 {
		t.Fatalf("total sales not bumped")
	}
}

func TestPurchaseGuards(t *testing.T) {
	_, _, svc := newTestMarket(t)
	ctx := context.Background()
	id := listOne(t, svc, "seller-1", 100)

	if _, err := svc.PurchaseProduct(ctx, "buyer-1", 999, 100); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("unknown product should fail, got %v", err)
	}
	if _, err := svc.PurchaseProduct(ctx, "seller-1", id, 100); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("self purchase should fail, got %v", err)
	}
	if _, err := svc.PurchaseProduct(ctx, "buyer-1", id, 99); !errors.Is(err, ledger.ErrResource) {
		t.Fatalf("underpayment should fail, got %v", err)
	}
	if _, err := svc.PurchaseProduct(ctx, "buyer-1", id, 100); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := svc.PurchaseProduct(ctx, "buyer-1", id, 100); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("repeat purchase should fail, got %v", err)
	}
}

func TestPurchaseFailedSettlementLeavesNoRecord(t *testing.T) {
	_, writer, svc := newTestMarket(t)
	ctx := context.Background()
	id := listOne(t, svc, "seller-1", 100)

	writer.fail = true
	if _, err := svc.PurchaseProduct(ctx, "buyer-1", id, 100); err == nil {
		t.Fatalf("expected settlement failure")
	}
	// A failed batch moves nothing: neither the seller nor the fee account
	// was paid, so a retry cannot double-pay either of them.
	if len(writer.transfers) != 0 {
		t.Fatalf("failed settlement should move no value, got %+v", writer.transfers)
	}
	writer.fail = false
	// The pair is still purchasable, and the retry settles exactly once.
	if _, err := svc.PurchaseProduct(ctx, "buyer-1", id, 100); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	sellerPaid := 0
	for _, tr := range writer.transfers {
		if tr.to == "seller-1" {
			sellerPaid++
		}
	}
	if writer.batches != 1 || sellerPaid != 1 {
		t.Fatalf("retry should pay the seller exactly once: %d batches, %d seller legs", writer.batches, sellerPaid)
	}
}

func TestReviewRequiresPurchaseAndIsSingle(t *testing.T) {
	_, _, svc := newTestMarket(t)
	ctx := context.Background()
	id := listOne(t, svc, "seller-1", 100)

	if err := svc.SubmitReview(ctx, "buyer-1", id, 5, "great"); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("review without purchase should fail, got %v", err)
	}
	if _, err := svc.PurchaseProduct(ctx, "buyer-1", id, 100); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := svc.SubmitReview(ctx, "buyer-1", id, 0, ""); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("rating 0 should fail, got %v", err)
	}
	if err := svc.SubmitReview(ctx, "buyer-1", id, 6, ""); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("rating 6 should fail, got %v", err)
	}
	if err := svc.SubmitReview(ctx, "buyer-1", id, 5, "great"); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := svc.SubmitReview(ctx, "buyer-1", id, 4, "again"); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("second review should fail, got %v", err)
	}
}

func TestRatingAverageTruncates(t *testing.T) {
	_, _, svc := newTestMarket(t)
	ctx := context.Background()
	id := listOne(t, svc, "seller-1", 100)

	ratings := map[ledger.Identity]uint32{"b1": 5, "b2": 4, "b3": 4}
	for buyer, rating := range ratings {
		if _, err := svc.PurchaseProduct(ctx, buyer, id, 100); err != nil {
			t.Fatalf("purchase %s: %v", buyer, err)
		}
		if err := svc.SubmitReview(ctx, buyer, id, rating, ""); err != nil {
			t.Fatalf("review %s: %v", buyer, err)
		}
	}
	p, err := svc.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// (500+400+400)/3 = 433 with integer truncation.
	if p.RatingTimes100 != 433 || p.ReviewCount != 3 {
		t.Fatalf("unexpected rating state: %d over %d reviews", p.RatingTimes100, p.ReviewCount)
	}
}

func TestDeactivationIsTerminalAndSellerOnly(t *testing.T) {
	_, _, svc := newTestMarket(t)
	ctx := context.Background()
	id := listOne(t, svc, "seller-1", 100)

	if err := svc.DeactivateProduct(ctx, "stranger", id); !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("non-seller deactivation should fail, got %v", err)
	}
	if err := svc.DeactivateProduct(ctx, "seller-1", id); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := svc.DeactivateProduct(ctx, "seller-1", id); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("double deactivation should fail, got %v", err)
	}
	if _, err := svc.PurchaseProduct(ctx, "buyer-1", id, 100); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("inactive product should not sell, got %v", err)
	}

	products, _ := svc.ListProducts(ctx)
	if len(products) != 0 {
		t.Fatalf("inactive products should not list: %v", products)
	}
}

func TestEmergencyDeactivateAdminOnly(t *testing.T) {
	_, _, svc := newTestMarket(t)
	ctx := context.Background()
	id := listOne(t, svc, "seller-1", 100)

	if err := svc.EmergencyDeactivateProduct(ctx, "seller-1", id); !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("seller is not admin, got %v", err)
	}
	if err := svc.EmergencyDeactivateProduct(ctx, "admin-1", id); err != nil {
		t.Fatalf("emergency deactivate: %v", err)
	}
}

func TestPlatformFeeBounds(t *testing.T) {
	_, writer, svc := newTestMarket(t)
	ctx := context.Background()

	if err := svc.UpdatePlatformFee(ctx, "admin-1", MaxPlatformFeeBps+1); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("fee above cap should fail, got %v", err)
	}
	if err := svc.UpdatePlatformFee(ctx, "admin-1", 0); err != nil {
		t.Fatalf("zero fee: %v", err)
	}

	id := listOne(t, svc, "seller-1", 100)
	if _, err := svc.PurchaseProduct(ctx, "buyer-1", id, 100); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	// Zero fee settles a single full-price leg.
	if len(writer.transfers) != 1 || writer.transfers[0].amount != 100 {
		t.Fatalf("unexpected settlement: %+v", writer.transfers)
	}
}

func TestPurchaseVisibility(t *testing.T) {
	_, _, svc := newTestMarket(t)
	ctx := context.Background()
	id := listOne(t, svc, "seller-1", 100)
	purchase, err := svc.PurchaseProduct(ctx, "buyer-1", id, 100)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	for _, caller := range []ledger.Identity{"buyer-1", "seller-1", "admin-1"} {
		if _, err := svc.GetPurchase(ctx, caller, purchase.ID); err != nil {
			t.Fatalf("%s should read the purchase: %v", caller, err)
		}
	}
	if _, err := svc.GetPurchase(ctx, "stranger", purchase.ID); !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("expected denial, got %v", err)
	}

	mine, err := svc.PurchasesOf(ctx, "buyer-1")
	if err != nil || len(mine) != 1 {
		t.Fatalf("buyer listing: %v %v", mine, err)
	}
}
