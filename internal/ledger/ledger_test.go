package ledger

import (
	"context"
	"errors"
	"testing"
)

const (
	owner = "dex.near"
	alice = "alice.near"
	bob   = "bob.near"
	carol = "carol.near"
)

func newTestLedger(t *testing.T, supply Amount, accounts ...string) (*Ledger, Store) {
	t.Helper()
	store := NewInMemory()
	l := New(store, nil)
	ctx := context.Background()
	if err := l.Initialize(ctx, Genesis{Owner: owner, TotalSupply: supply}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for _, account := range accounts {
		if _, err := l.Register(ctx, account); err != nil {
			t.Fatalf("register %s: %v", account, err)
		}
	}
	return l, store
}

func mustBalance(t *testing.T, l *Ledger, account string) Amount {
	t.Helper()
	b, err := l.BalanceOf(context.Background(), account)
	if err != nil {
		t.Fatalf("balance of %s: %v", account, err)
	}
	return b
}

func mustSupply(t *testing.T, l *Ledger) Amount {
	t.Helper()
	s, err := l.TotalSupply(context.Background())
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	return s
}

func expectAmount(t *testing.T, what string, got Amount, want string) {
	t.Helper()
	if got.String() != want {
		t.Fatalf("expected %s %s, got %s", what, want, got)
	}
}

func TestInitializeGivesOwnerWholeSupply(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(1_000_000_000_000_000))

	expectAmount(t, "total supply", mustSupply(t, l), "1000000000000000")
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "1000000000000000")
	for _, account := range []string{alice, bob, carol} {
		expectAmount(t, account+" balance", mustBalance(t, l, account), "0")
	}

	got, err := l.Owner(context.Background())
	if err != nil || got != owner {
		t.Fatalf("expected owner %s, got %s (%v)", owner, got, err)
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(10))
	err := l.Initialize(context.Background(), Genesis{Owner: alice, TotalSupply: NewAmount(99)})
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}
	expectAmount(t, "total supply", mustSupply(t, l), "10")
}

func TestOperationsBeforeInitialize(t *testing.T) {
	l := New(NewInMemory(), nil)
	ctx := context.Background()

	if err := l.Mint(ctx, owner, NewAmount(1)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := l.RewardTransfer(ctx, owner, alice, NewAmount(1), ""); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if _, err := l.TotalSupply(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
}

func TestTransferMovesExactAmount(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(10_000), alice, bob)
	ctx := context.Background()

	if err := l.Transfer(ctx, owner, alice, NewAmount(4_000)); err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	if err := l.Transfer(ctx, alice, bob, NewAmount(1_500)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	expectAmount(t, "alice balance", mustBalance(t, l, alice), "2500")
	expectAmount(t, "bob balance", mustBalance(t, l, bob), "1500")
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "6000")
	expectAmount(t, "total supply", mustSupply(t, l), "10000")
}

func TestTransferWholeBalance(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(500), alice)
	if err := l.Transfer(context.Background(), owner, alice, NewAmount(500)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "0")
	expectAmount(t, "alice balance", mustBalance(t, l, alice), "500")
}

func TestRepeatedTransferIsAdditive(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(1_000), alice)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Transfer(ctx, owner, alice, NewAmount(300)); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "400")
	expectAmount(t, "alice balance", mustBalance(t, l, alice), "600")
}

func TestTransferToSelfFails(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(1_000), alice)
	ctx := context.Background()

	for _, amount := range []Amount{NewAmount(1), NewAmount(1_000), MaxAmount, {}} {
		if err := l.Transfer(ctx, owner, owner, amount); !errors.Is(err, ErrSameAccount) {
			t.Fatalf("amount %s: expected same account, got %v", amount, err)
		}
	}
	if err := l.Transfer(ctx, alice, alice, NewAmount(1)); !errors.Is(err, ErrSameAccount) {
		t.Fatalf("expected same account for empty balance, got %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "1000")
}

func TestTransferZeroFails(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(1_000), alice)
	if err := l.Transfer(context.Background(), owner, alice, Amount{}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(100), alice)
	err := l.Transfer(context.Background(), owner, alice, NewAmount(101))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "100")
	expectAmount(t, "alice balance", mustBalance(t, l, alice), "0")
}

func TestTransferToUnregisteredReceiverChangesNothing(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(100))
	err := l.Transfer(context.Background(), owner, "ghost.near", NewAmount(10))
	if !errors.Is(err, ErrUnregisteredAccount) {
		t.Fatalf("expected unregistered account, got %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "100")
}

func TestTransferFromUnregisteredSender(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(100), alice)
	err := l.Transfer(context.Background(), "ghost.near", alice, NewAmount(10))
	if !errors.Is(err, ErrUnregisteredAccount) {
		t.Fatalf("expected unregistered account, got %v", err)
	}
}

func TestTransferReceiverOverflowChangesNothing(t *testing.T) {
	l, store := newTestLedger(t, NewAmount(100), alice)
	SeedBalance(store, alice, MaxAmount)

	err := l.Transfer(context.Background(), owner, alice, NewAmount(1))
	if !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected balance overflow, got %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "100")
	if !mustBalance(t, l, alice).Equal(MaxAmount) {
		t.Fatal("receiver balance changed")
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(0), alice)
	ctx := context.Background()

	if err := l.Deposit(ctx, alice, NewAmount(70)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.Withdraw(ctx, alice, NewAmount(20)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	expectAmount(t, "alice balance", mustBalance(t, l, alice), "50")
}

func TestWithdrawMoreThanBalanceFails(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(1_000), alice)
	ctx := context.Background()
	if err := l.Transfer(ctx, owner, alice, NewAmount(250)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	before := mustBalance(t, l, alice)
	over, _ := before.CheckedAdd(NewAmount(1))
	if err := l.Withdraw(ctx, alice, over); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if !mustBalance(t, l, alice).Equal(before) {
		t.Fatal("balance changed after failed withdraw")
	}
}

func TestDepositOverflowFails(t *testing.T) {
	l, _ := newTestLedger(t, MaxAmount)
	if err := l.Deposit(context.Background(), owner, NewAmount(1)); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected balance overflow, got %v", err)
	}
	if !mustBalance(t, l, owner).Equal(MaxAmount) {
		t.Fatal("balance changed after failed deposit")
	}
}

func TestUnregisteredAccountIsRejected(t *testing.T) {
	l, store := newTestLedger(t, NewAmount(10))
	ctx := context.Background()

	if err := l.Deposit(ctx, "ghost.near", NewAmount(1)); !errors.Is(err, ErrUnregisteredAccount) {
		t.Fatalf("deposit: expected unregistered, got %v", err)
	}
	if err := l.Withdraw(ctx, "ghost.near", NewAmount(0)); !errors.Is(err, ErrUnregisteredAccount) {
		t.Fatalf("withdraw: expected unregistered, got %v", err)
	}
	if _, ok, _ := store.Balance(ctx, "ghost.near"); ok {
		t.Fatal("unregistered account gained an entry")
	}
}

func TestMintIncreasesSupplyAndOwnerBalance(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(1_000_000_000_000_000))
	if err := l.Mint(context.Background(), owner, NewAmount(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	expectAmount(t, "total supply", mustSupply(t, l), "1000000000000005")
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "1000000000000005")
}

func TestMintByNonOwnerFails(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(1_000), alice)
	ctx := context.Background()

	for _, caller := range []string{alice, "DEX.NEAR", "dex.near ", ""} {
		if err := l.Mint(ctx, caller, NewAmount(5)); !errors.Is(err, ErrNotOwner) {
			t.Fatalf("caller %q: expected not owner, got %v", caller, err)
		}
	}
	expectAmount(t, "total supply", mustSupply(t, l), "1000")
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "1000")
	expectAmount(t, "alice balance", mustBalance(t, l, alice), "0")
}

func TestMintSupplyOverflowFails(t *testing.T) {
	l, _ := newTestLedger(t, MaxAmount)
	if err := l.Mint(context.Background(), owner, NewAmount(1)); !errors.Is(err, ErrSupplyOverflow) {
		t.Fatalf("expected supply overflow, got %v", err)
	}
	if !mustSupply(t, l).Equal(MaxAmount) {
		t.Fatal("supply changed after failed mint")
	}
}

func TestMintKeepsSupplyAndBalanceInStep(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(100), alice)
	ctx := context.Background()
	if err := l.Transfer(ctx, owner, alice, NewAmount(60)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := l.Mint(ctx, owner, NewAmount(40)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	report, err := l.Audit(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !report.Balanced() {
		t.Fatalf("ledger not balanced: sum=%s supply=%s", report.Sum, report.TotalSupply)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "80")
}

func TestRewardTransferScenario(t *testing.T) {
	store := NewInMemory()
	l := New(store, nil)
	ctx := context.Background()
	if err := l.Initialize(ctx, Genesis{Owner: "owner", TotalSupply: NewAmount(1_000_000)}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := l.Register(ctx, "dex"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := l.RewardTransfer(ctx, "owner", "dex", NewAmount(5), "bonus"); err != nil {
		t.Fatalf("reward: %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, "owner"), "999995")
	expectAmount(t, "dex balance", mustBalance(t, l, "dex"), "5")
	expectAmount(t, "total supply", mustSupply(t, l), "1000000")
}

func TestRewardTransferGuards(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(100), alice)
	ctx := context.Background()

	if err := l.RewardTransfer(ctx, alice, alice, NewAmount(5), ""); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := l.RewardTransfer(ctx, owner, alice, Amount{}, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := l.RewardTransfer(ctx, owner, alice, NewAmount(101), ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := l.RewardTransfer(ctx, owner, "ghost.near", NewAmount(5), ""); !errors.Is(err, ErrUnregisteredAccount) {
		t.Fatalf("expected unregistered, got %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "100")
	expectAmount(t, "alice balance", mustBalance(t, l, alice), "0")
}

func TestRewardTransferToOwnerNetsToNothing(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(100))
	ctx := context.Background()

	if err := l.RewardTransfer(ctx, owner, owner, NewAmount(100), "self"); err != nil {
		t.Fatalf("reward: %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "100")
	if err := l.RewardTransfer(ctx, owner, owner, NewAmount(101), "self"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(100))
	ctx := context.Background()

	created, err := l.Register(ctx, alice)
	if err != nil || !created {
		t.Fatalf("expected new registration, got %v (%v)", created, err)
	}
	created, err = l.Register(ctx, alice)
	if err != nil || created {
		t.Fatalf("expected existing registration, got %v (%v)", created, err)
	}

	if err := l.Transfer(ctx, owner, alice, NewAmount(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := l.Unregister(ctx, alice); !errors.Is(err, ErrNonZeroBalance) {
		t.Fatalf("expected non-zero balance, got %v", err)
	}
	if err := l.Transfer(ctx, alice, owner, NewAmount(1)); err != nil {
		t.Fatalf("transfer back: %v", err)
	}
	if err := l.Unregister(ctx, alice); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	ok, err := l.IsRegistered(ctx, alice)
	if err != nil || ok {
		t.Fatalf("expected alice to be unregistered, got %v (%v)", ok, err)
	}
	if err := l.Unregister(ctx, alice); !errors.Is(err, ErrUnregisteredAccount) {
		t.Fatalf("expected unregistered, got %v", err)
	}
}

func TestOwnerCannotUnregister(t *testing.T) {
	l, _ := newTestLedger(t, NewAmount(100), alice)
	ctx := context.Background()

	if err := l.Transfer(ctx, owner, alice, NewAmount(100)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "0")

	if err := l.Unregister(ctx, owner); !errors.Is(err, ErrOwnerAccount) {
		t.Fatalf("expected owner account error, got %v", err)
	}
	ok, err := l.IsRegistered(ctx, owner)
	if err != nil || !ok {
		t.Fatalf("expected owner to stay registered, got %v (%v)", ok, err)
	}

	if err := l.Mint(ctx, owner, NewAmount(5)); err != nil {
		t.Fatalf("mint after refused unregister: %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "5")
	expectAmount(t, "total supply", mustSupply(t, l), "105")
}

type failingCommitStore struct {
	Store
	err error
}

func (s failingCommitStore) Commit(context.Context, Changeset) error {
	return s.err
}

func TestCommitFailureLeavesStateUntouched(t *testing.T) {
	inner := NewInMemory()
	ctx := context.Background()
	if err := inner.Init(ctx, Genesis{Owner: owner, TotalSupply: NewAmount(100)}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := inner.Register(ctx, alice); err != nil {
		t.Fatalf("register: %v", err)
	}

	l := New(failingCommitStore{Store: inner, err: ErrConcurrentModification}, nil)
	if err := l.Transfer(ctx, owner, alice, NewAmount(10)); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected concurrent modification, got %v", err)
	}
	if err := l.Mint(ctx, owner, NewAmount(10)); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected concurrent modification, got %v", err)
	}
	expectAmount(t, "owner balance", mustBalance(t, l, owner), "100")
	expectAmount(t, "total supply", mustSupply(t, l), "100")
}

func TestAuditDetectsImbalance(t *testing.T) {
	l, store := newTestLedger(t, NewAmount(100), alice)
	ctx := context.Background()

	report, err := l.Audit(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !report.Balanced() || report.Accounts != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	SeedBalance(store, alice, NewAmount(1))
	report, err = l.Audit(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.Balanced() {
		t.Fatal("expected imbalance after seeding outside the ledger")
	}
}
