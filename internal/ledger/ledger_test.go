package ledger

import (
	"errors"
	"sync"
	"testing"
)

func TestDeposit(t *testing.T) {
	t.Parallel()

	l := New()
	if err := l.Deposit("alice", 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.Deposit("alice", 50); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := l.Balance("alice"); got != 150 {
		t.Errorf("expected 150, got %d", got)
	}

	if err := l.Deposit("alice", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero deposit should fail, got %v", err)
	}
	if err := l.Deposit("alice", -5); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative deposit should fail, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	l := New()
	if err := l.Deposit("alice", 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := l.Transfer("alice", "bob", 60); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := l.Balance("alice"); got != 40 {
		t.Errorf("alice should have 40, got %d", got)
	}
	if got := l.Balance("bob"); got != 60 {
		t.Errorf("bob should have 60, got %d", got)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	t.Parallel()

	l := New()
	if err := l.Deposit("alice", 50); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := l.Transfer("alice", "bob", 51); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	// Nothing moved.
	if l.Balance("alice") != 50 || l.Balance("bob") != 0 {
		t.Errorf("failed transfer must not move funds")
	}

	if err := l.Transfer("ghost", "bob", 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("unknown account should have zero balance, got %v", err)
	}
}

func TestTransferInvalidAmount(t *testing.T) {
	t.Parallel()

	l := New()
	if err := l.Transfer("alice", "bob", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero transfer should fail, got %v", err)
	}
	if err := l.Transfer("alice", "bob", -10); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative transfer should fail, got %v", err)
	}
}

func TestConcurrentTransfersConserveSupply(t *testing.T) {
	t.Parallel()

	l := New()
	accounts := []string{"a", "b", "c", "d"}
	for _, acct := range accounts {
		if err := l.Deposit(acct, 1000); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	supply := l.TotalSupply()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				from := accounts[(offset+j)%len(accounts)]
				to := accounts[(offset+j+1)%len(accounts)]
				// Failures are expected when an account runs dry.
				_ = l.Transfer(from, to, 3)
			}
		}(i)
	}
	wg.Wait()

	if got := l.TotalSupply(); got != supply {
		t.Errorf("supply must be conserved: want %d, got %d", supply, got)
	}
	for _, acct := range accounts {
		if l.Balance(acct) < 0 {
			t.Errorf("%s went negative", acct)
		}
	}
}

func TestRestore(t *testing.T) {
	t.Parallel()

	l := New()
	if err := l.Deposit("stale", 999); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	l.Restore(map[string]int64{"alice": 70, "bob": 30})

	if got := l.Balance("stale"); got != 0 {
		t.Errorf("restore must replace prior balances, got %d", got)
	}
	if l.Balance("alice") != 70 || l.Balance("bob") != 30 {
		t.Errorf("restored balances should be readable")
	}
	if got := l.TotalSupply(); got != 100 {
		t.Errorf("supply should be 100, got %d", got)
	}

	// The ledger holds its own copy.
	src := map[string]int64{"carol": 5}
	l.Restore(src)
	src["carol"] = 0
	if got := l.Balance("carol"); got != 5 {
		t.Errorf("mutating the source map must not touch the ledger, got %d", got)
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	l := New()
	if err := l.Deposit("alice", 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.Transfer("alice", "bob", 100); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	snap := l.Snapshot()
	if len(snap) != 1 || snap["bob"] != 100 {
		t.Errorf("snapshot should hold only non-zero balances, got %v", snap)
	}

	// The snapshot is a copy.
	snap["bob"] = 0
	if got := l.Balance("bob"); got != 100 {
		t.Errorf("mutating a snapshot must not touch the ledger, got %d", got)
	}
}
