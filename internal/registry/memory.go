package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

// Memory is an in-process asset registry with per-token and operator approvals.
// A per-token approval is bound to the owner that granted it and only applies
// while that owner holds the token.
type Memory struct {
	mu        sync.RWMutex
	owners    map[domain.TokenID]common.Address
	approved  map[domain.TokenID]approval
	operators map[common.Address]map[common.Address]bool
}

type approval struct {
	grantor  common.Address
	operator common.Address
}

func NewMemory() *Memory {
	return &Memory{
		owners:    make(map[domain.TokenID]common.Address),
		approved:  make(map[domain.TokenID]approval),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

// Mint assigns a new token to owner.
func (m *Memory) Mint(_ context.Context, owner common.Address, token domain.TokenID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.owners[token]; ok {
		return fmt.Errorf("mint %d: %w", token, ErrTokenExists)
	}
	m.owners[token] = owner
	return nil
}

// Approve lets operator move one token. The zero address clears the approval.
func (m *Memory) Approve(_ context.Context, owner, operator common.Address, token domain.TokenID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[token] != owner {
		return fmt.Errorf("approve %d: %w", token, ErrNotTokenOwner)
	}
	if operator == domain.ZeroAddress {
		delete(m.approved, token)
		return nil
	}
	m.approved[token] = approval{grantor: owner, operator: operator}
	return nil
}

// SetApprovalForAll grants or revokes operator's right to move every token of owner.
func (m *Memory) SetApprovalForAll(_ context.Context, owner, operator common.Address, allowed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if allowed {
		if m.operators[owner] == nil {
			m.operators[owner] = make(map[common.Address]bool)
		}
		m.operators[owner][operator] = true
		return nil
	}
	delete(m.operators[owner], operator)
	return nil
}

// OwnerOf returns the zero address for tokens that were never minted.
func (m *Memory) OwnerOf(_ context.Context, token domain.TokenID) (common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[token], nil
}

func (m *Memory) IsAuthorizedToMove(_ context.Context, operator common.Address, token domain.TokenID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authorized(operator, token), nil
}

func (m *Memory) authorized(operator common.Address, token domain.TokenID) bool {
	owner, ok := m.owners[token]
	if !ok {
		return false
	}
	if owner == operator || m.operators[owner][operator] {
		return true
	}
	a, ok := m.approved[token]
	return ok && a.grantor == owner && a.operator == operator
}

// TransferCustody moves token from from to to on behalf of operator.
func (m *Memory) TransferCustody(_ context.Context, operator, from, to common.Address, token domain.TokenID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[token] != from || !m.authorized(operator, token) {
		return fmt.Errorf("transfer %d from %s: %w", token, from.Hex(), ErrTransferRejected)
	}
	m.owners[token] = to
	return nil
}
