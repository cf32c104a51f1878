package trade

import (
	"errors"
	"openc/db"
	"openc/market"
	"sync"
	"testing"
)

// listWorld returns a world holding asset a1 listed by S for 100.
func listWorld(t *testing.T) *fakeWorld {
	w := newFakeWorld()
	w.owners["a1"] = "S"

	seller, _ := newTrader(w, "S")
	if err := seller.List("a1", 100); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	return w
}

func TestListThenBuy(t *testing.T) {
	w := listWorld(t)
	w.balances["B"] = 150

	buyer, _ := newTrader(w, "B")

	if err := buyer.Buy("a1"); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	if owner := w.owners["a1"]; owner != "B" {
		t.Errorf("Asset should belong to the buyer, owner=%s", owner)
	}

	if w.balances["B"] != 50 || w.balances["S"] != 100 {
		t.Errorf("Wrong balances after sale: B=%d S=%d", w.balances["B"], w.balances["S"])
	}

	listed, _ := w.IsListed("a1")
	if listed {
		t.Error("Sold asset must not stay listed")
	}

	// Sold listings reject further purchase reads.
	if _, err := w.OriginalOwner("a1"); !errors.Is(err, market.ErrAlreadySold) {
		t.Errorf("Sold listing should answer AlreadySold, got %v", err)
	}
}

func TestBuyPreconditions(t *testing.T) {
	w := listWorld(t)

	seller, _ := newTrader(w, "S")
	if err := seller.Buy("a1"); !errors.Is(err, ErrOwnListing) {
		t.Errorf("Buying own listing should fail with ErrOwnListing, got %v", err)
	}

	buyer, _ := newTrader(w, "B")
	if err := buyer.Buy("nope"); !errors.Is(err, market.ErrNotListed) {
		t.Errorf("Buying an unlisted asset should fail with ErrNotListed, got %v", err)
	}
}

func TestBuyInsufficientFunds(t *testing.T) {
	w := listWorld(t)
	w.balances["B"] = 10
	before := w.completeCalls

	buyer, journal := newTrader(w, "B")

	err := buyer.Buy("a1")
	if !errors.Is(err, market.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	// Clean abort: no asset-side effect, nothing journaled.
	if owner := w.owners["a1"]; owner != "MKT" {
		t.Errorf("Asset owner must be unchanged, owner=%s", owner)
	}
	if w.completeCalls != before {
		t.Error("completePurchase must not be called after a failed payment")
	}
	if journal.count() != 0 {
		t.Errorf("Clean abort must not journal an incident, got %d", journal.count())
	}
}

func TestBuyLedgerUnavailable(t *testing.T) {
	w := listWorld(t)
	w.balances["B"] = 150
	w.failLedgerTransfer = market.ErrUnavailable

	buyer, journal := newTrader(w, "B")

	if err := buyer.Buy("a1"); !errors.Is(err, market.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}

	listed, _ := w.IsListed("a1")
	if !listed {
		t.Error("Listing must remain after a failed payment")
	}
	if owner := w.owners["a1"]; owner != "MKT" {
		t.Errorf("Asset owner must be unchanged, owner=%s", owner)
	}
	if journal.count() != 0 {
		t.Error("Clean abort must not journal an incident")
	}
}

func TestBuyDeliveryFailure(t *testing.T) {
	w := listWorld(t)
	w.balances["B"] = 150
	w.failComplete = market.ErrUnavailable
	w.failCompleteCount = 1 << 10

	buyer, journal := newTrader(w, "B")

	err := buyer.Buy("a1")

	var partial *PaidButNotDeliveredError
	if !errors.As(err, &partial) {
		t.Fatalf("Expected PaidButNotDeliveredError, got %v", err)
	}

	if partial.Amount != 100 || partial.Buyer != "B" || partial.Seller != "S" {
		t.Errorf("Partial-effect error lacks state: %+v", partial)
	}
	if partial.Receipt == "" {
		t.Error("Partial-effect error must carry the transfer receipt")
	}
	if partial.Unconfirmed {
		t.Error("Confirmed payment must not be flagged unconfirmed")
	}

	// The payment went through and stays; delivery did not happen.
	if w.balances["B"] != 50 || w.balances["S"] != 100 {
		t.Errorf("Payment should stand: B=%d S=%d", w.balances["B"], w.balances["S"])
	}
	if owner := w.owners["a1"]; owner != "MKT" {
		t.Errorf("Undelivered asset must stay with marketplace, owner=%s", owner)
	}

	if journal.count() != 1 || journal.incidents[0].Kind != db.IncidentPaidNotDelivered {
		t.Fatalf("Expected one paid_not_delivered incident, got %d", journal.count())
	}
}

func TestBuyDeliveryRetrySucceeds(t *testing.T) {
	w := listWorld(t)
	w.balances["B"] = 150
	w.failComplete = market.ErrUnavailable
	w.failCompleteCount = 1

	buyer, journal := newTrader(w, "B")

	if err := buyer.Buy("a1"); err != nil {
		t.Fatalf("Buy should succeed on retry: %v", err)
	}

	if owner := w.owners["a1"]; owner != "B" {
		t.Errorf("Asset should belong to the buyer, owner=%s", owner)
	}
	if journal.count() != 0 {
		t.Error("Recovered delivery must not journal an incident")
	}
}

func TestBuyTransferTimeout(t *testing.T) {
	w := listWorld(t)
	w.balances["B"] = 150
	w.failLedgerTransfer = market.ErrUnknownOutcome

	buyer, journal := newTrader(w, "B")

	err := buyer.Buy("a1")

	var partial *PaidButNotDeliveredError
	if !errors.As(err, &partial) {
		t.Fatalf("Expected PaidButNotDeliveredError, got %v", err)
	}
	if !partial.Unconfirmed {
		t.Error("Timed out payment must be flagged unconfirmed")
	}

	if journal.count() != 1 || !journal.incidents[0].Unconfirmed {
		t.Fatal("Expected one unconfirmed incident")
	}

	// The unconfirmed payment must never be replayed automatically.
	if err := buyer.Reconcile(journal.incidents[0]); !errors.Is(err, ErrManualReconcile) {
		t.Errorf("Unconfirmed incident should demand manual reconciliation, got %v", err)
	}
}

func TestBuyRace(t *testing.T) {
	w := listWorld(t)
	w.balances["B1"] = 200
	w.balances["B2"] = 200

	buyer1, _ := newTrader(w, "B1")
	buyer2, _ := newTrader(w, "B2")

	var wg sync.WaitGroup
	results := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0] = buyer1.Buy("a1")
	}()
	go func() {
		defer wg.Done()
		results[1] = buyer2.Buy("a1")
	}()
	wg.Wait()

	winners := 0
	for i, err := range results {
		if err == nil {
			winners++
			continue
		}

		// The loser must see the sold rejection, either as a clean
		// abort before paying or through the paid-not-delivered path.
		var partial *PaidButNotDeliveredError
		if !errors.Is(err, market.ErrAlreadySold) && !errors.As(err, &partial) {
			t.Errorf("Buyer %d got unexpected error: %v", i+1, err)
		}
	}

	if winners != 1 {
		t.Fatalf("Exactly one buyer must win, got %d", winners)
	}

	owner := w.owners["a1"]
	if owner != "B1" && owner != "B2" {
		t.Errorf("Asset must end with one of the buyers, owner=%s", owner)
	}

	// One transfer to the marketplace at listing time, one to the
	// winning buyer. Never a second delivery.
	if w.transfers["a1"] != 2 {
		t.Errorf("Expected 2 ownership transfers, got %d", w.transfers["a1"])
	}
}

func TestReconcileDeliveryIdempotent(t *testing.T) {
	w := listWorld(t)
	w.balances["B"] = 150
	w.failComplete = market.ErrUnavailable
	w.failCompleteCount = 1 << 10

	buyer, journal := newTrader(w, "B")

	if err := buyer.Buy("a1"); err == nil {
		t.Fatal("Buy should have failed at the delivery step")
	}
	if journal.count() != 1 {
		t.Fatal("Expected one journaled incident")
	}

	// Service recovers, the reconciler replays only the delivery step.
	w.mu.Lock()
	w.failCompleteCount = 0
	w.mu.Unlock()

	inc := journal.incidents[0]
	if err := buyer.Reconcile(inc); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if owner := w.owners["a1"]; owner != "B" {
		t.Errorf("Asset should belong to the buyer after reconcile, owner=%s", owner)
	}

	transfers := w.transfers["a1"]
	balance := w.balances["B"]

	// Replaying the same completion must not change anything.
	if err := buyer.Reconcile(inc); err != nil {
		t.Fatalf("Second reconcile failed: %v", err)
	}

	if w.transfers["a1"] != transfers {
		t.Error("Repeated completion must not transfer ownership again")
	}
	if w.balances["B"] != balance {
		t.Error("Repeated completion must not move tokens again")
	}
}

func TestReconcileTransferFailed(t *testing.T) {
	w := newFakeWorld()
	w.owners["a1"] = "S"
	w.failTransferOwnership = market.ErrUnavailable

	seller, journal := newTrader(w, "S")

	if err := seller.List("a1", 100); err == nil {
		t.Fatal("List should have failed at the transfer step")
	}
	if journal.count() != 1 {
		t.Fatal("Expected one journaled incident")
	}

	w.mu.Lock()
	w.failTransferOwnership = nil
	w.mu.Unlock()

	if err := seller.Reconcile(journal.incidents[0]); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if owner := w.owners["a1"]; owner != "MKT" {
		t.Errorf("Asset should be held by the marketplace, owner=%s", owner)
	}
}
