package service

import (
	"context"
	"errors"
	"testing"

	"github.com/payguard-next/internal/fraud"
)

func TestFlagAndUnflagAccount(t *testing.T) {
	svc := NewBlacklistAdminService(fraud.NewMemoryBlacklist())
	ctx := context.Background()

	if err := svc.FlagAccount(ctx, " ACC-9 "); err != nil {
		t.Fatalf("flag failed: %v", err)
	}
	flagged, err := svc.IsFlagged(ctx, "ACC-9")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !flagged {
		t.Fatalf("account should be flagged")
	}

	if err := svc.UnflagAccount(ctx, "ACC-9"); err != nil {
		t.Fatalf("unflag failed: %v", err)
	}
	flagged, err = svc.IsFlagged(ctx, "ACC-9")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if flagged {
		t.Fatalf("account should no longer be flagged")
	}
}

func TestFlagAccountRequiresID(t *testing.T) {
	svc := NewBlacklistAdminService(fraud.NewMemoryBlacklist())
	if err := svc.FlagAccount(context.Background(), "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
}

func TestListFlaggedSorted(t *testing.T) {
	svc := NewBlacklistAdminService(fraud.NewMemoryBlacklist())
	ctx := context.Background()
	for _, accountID := range []string{"ACC-C", "ACC-A", "ACC-B"} {
		if err := svc.FlagAccount(ctx, accountID); err != nil {
			t.Fatalf("flag failed: %v", err)
		}
	}

	accounts, err := svc.ListFlagged(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(accounts) != 3 || accounts[0] != "ACC-A" || accounts[2] != "ACC-C" {
		t.Fatalf("unexpected listing: %v", accounts)
	}
}
