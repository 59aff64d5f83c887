package service

import (
	"context"
	"testing"

	"github.com/rl1809/restopos/internal/core/domain"
)

func TestGetTableOccupancy_FollowsOrderStatus(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	occ, err := svc.GetTableOccupancy(ctx)
	if err != nil {
		t.Fatalf("occupancy: %v", err)
	}
	for id, o := range occ {
		if o != domain.TableAvailable {
			t.Errorf("expected %s available on an empty floor, got %s", id, o)
		}
	}

	a := submitStandard(t, svc, "T1")
	b := submitStandard(t, svc, "T2")
	if _, err := svc.AdvanceStatus(ctx, b.ID, domain.OrderStatusProses, domain.RoleWaiter); err != nil {
		t.Fatalf("accept: %v", err)
	}

	occ, _ = svc.GetTableOccupancy(ctx)
	if occ["T1"] != domain.TableOccupied || occ["T2"] != domain.TableOccupied || occ["T3"] != domain.TableAvailable {
		t.Fatalf("unexpected occupancy %v", occ)
	}

	if _, err := svc.AdvanceStatus(ctx, a.ID, domain.OrderStatusCancelled, domain.RoleCustomer); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Pay(ctx, PayRequest{OrderID: b.ID, Method: domain.PaymentQRIS, OperatorID: "kasir-1"}); err != nil {
		t.Fatalf("pay: %v", err)
	}

	occ, _ = svc.GetTableOccupancy(ctx)
	if occ["T1"] != domain.TableAvailable || occ["T2"] != domain.TableAvailable {
		t.Errorf("expected tables freed, got %v", occ)
	}
}

func TestCartOperations(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "s", "A", 2); err != nil {
		t.Fatalf("add A: %v", err)
	}
	cart, err := svc.AddToCart(ctx, "s", "B", 1)
	if err != nil {
		t.Fatalf("add B: %v", err)
	}
	if cart.Total() != 45000 {
		t.Errorf("expected cart total 45000, got %d", cart.Total())
	}

	if _, err := svc.AddToCart(ctx, "s", "SOLD", 1); err == nil {
		t.Error("expected unavailable item to be rejected")
	}

	cart, err = svc.RemoveFromCart(ctx, "s", "B")
	if err != nil {
		t.Fatalf("remove B: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Errorf("expected B line removed with its last unit, got %+v", cart.Lines)
	}

	svc.RemoveFromCart(ctx, "s", "A")
	svc.RemoveFromCart(ctx, "s", "A")
	if _, ok := store.carts["s"]; ok {
		t.Error("expected emptied cart to be cleared")
	}
}
