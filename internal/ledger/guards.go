package ledger

import (
	"context"
	"fmt"
)

func requirePositive(amount Amount) error {
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func requireDistinct(sender, receiver string) error {
	if sender == receiver {
		return fmt.Errorf("%w: %s", ErrSameAccount, sender)
	}
	return nil
}

func requireOwner(state State, caller string) error {
	if caller != state.Owner {
		return fmt.Errorf("%w: caller %s", ErrNotOwner, caller)
	}
	return nil
}

// pending stages balance changes for a single operation. Reads go through the
// staged values, so a later leg sees the effect of an earlier one, and
// nothing reaches the store until changeset is committed.
type pending struct {
	ctx    context.Context
	store  Store
	before map[string]Amount
	after  map[string]Amount
	order  []string
}

func newPending(ctx context.Context, store Store) *pending {
	return &pending{
		ctx:    ctx,
		store:  store,
		before: make(map[string]Amount),
		after:  make(map[string]Amount),
	}
}

// balance applies the registration guard.
func (p *pending) balance(account string) (Amount, error) {
	if staged, ok := p.after[account]; ok {
		return staged, nil
	}
	current, ok, err := p.store.Balance(p.ctx, account)
	if err != nil {
		return Amount{}, fmt.Errorf("read balance %s: %w", account, err)
	}
	if !ok {
		return Amount{}, fmt.Errorf("%w: %s", ErrUnregisteredAccount, account)
	}
	p.before[account] = current
	p.after[account] = current
	p.order = append(p.order, account)
	return current, nil
}

func (p *pending) credit(account string, amount Amount) error {
	current, err := p.balance(account)
	if err != nil {
		return err
	}
	next, ok := current.CheckedAdd(amount)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, account)
	}
	p.after[account] = next
	return nil
}

func (p *pending) debit(account string, amount Amount) error {
	current, err := p.balance(account)
	if err != nil {
		return err
	}
	next, ok := current.CheckedSub(amount)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, account)
	}
	p.after[account] = next
	return nil
}

func (p *pending) changeset() Changeset {
	changes := Changeset{Balances: make([]BalanceChange, 0, len(p.order))}
	for _, account := range p.order {
		if p.before[account].Equal(p.after[account]) {
			continue
		}
		changes.Balances = append(changes.Balances, BalanceChange{
			Account:  account,
			Previous: p.before[account],
			Next:     p.after[account],
		})
	}
	return changes
}
