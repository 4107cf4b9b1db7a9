package guard

import (
	"context"
	"errors"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/registry"
	"github.com/ethereum/go-ethereum/common"
)

// RegistryKey is the circuit key used for the asset registry.
const RegistryKey = "asset_registry"

// AssetRegistry is the method set guarded by BreakerRegistry.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, token domain.TokenID) (common.Address, error)
	IsAuthorizedToMove(ctx context.Context, operator common.Address, token domain.TokenID) (bool, error)
	TransferCustody(ctx context.Context, operator, from, to common.Address, token domain.TokenID) error
}

// BreakerRegistry fails fast with SERVICE_UNAVAILABLE while the registry's
// circuit is open. Rejected transfers are answers, not faults, and leave the
// circuit alone.
type BreakerRegistry struct {
	next    AssetRegistry
	breaker *CircuitBreaker
}

// NewBreakerRegistry wraps next with breaker.
func NewBreakerRegistry(next AssetRegistry, breaker *CircuitBreaker) *BreakerRegistry {
	return &BreakerRegistry{next: next, breaker: breaker}
}

func (r *BreakerRegistry) OwnerOf(ctx context.Context, token domain.TokenID) (common.Address, error) {
	if err := r.admit(ctx); err != nil {
		return common.Address{}, err
	}
	owner, err := r.next.OwnerOf(ctx, token)
	r.record(err)
	return owner, err
}

func (r *BreakerRegistry) IsAuthorizedToMove(ctx context.Context, operator common.Address, token domain.TokenID) (bool, error) {
	if err := r.admit(ctx); err != nil {
		return false, err
	}
	ok, err := r.next.IsAuthorizedToMove(ctx, operator, token)
	r.record(err)
	return ok, err
}

func (r *BreakerRegistry) TransferCustody(ctx context.Context, operator, from, to common.Address, token domain.TokenID) error {
	if err := r.admit(ctx); err != nil {
		return err
	}
	err := r.next.TransferCustody(ctx, operator, from, to, token)
	r.record(err)
	return err
}

func (r *BreakerRegistry) admit(ctx context.Context) error {
	res := r.breaker.Check(ctx, RegistryKey)
	if !res.Allowed {
		return domain.ErrUnavailable("asset registry unavailable: "+res.Reason, nil)
	}
	return nil
}

func (r *BreakerRegistry) record(err error) {
	switch {
	case err == nil,
		errors.Is(err, registry.ErrTransferRejected),
		errors.Is(err, registry.ErrNotTokenOwner),
		errors.Is(err, context.Canceled):
		r.breaker.RecordSuccess(RegistryKey)
	default:
		r.breaker.RecordFailure(RegistryKey)
	}
}
