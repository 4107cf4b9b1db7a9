package domain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the null principal.
var ZeroAddress = common.Address{}

// ParseAddress parses a 0x-prefixed hex address, rejecting malformed input
// instead of silently zero-padding it the way common.HexToAddress does.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// PauseSwitch is the global emergency stop consulted by every mutating entry point.
type PauseSwitch interface {
	IsPaused(ctx context.Context) (bool, error)
}

// RequireNotPaused returns ErrPaused while the switch is engaged.
func RequireNotPaused(ctx context.Context, p PauseSwitch) error {
	paused, err := p.IsPaused(ctx)
	if err != nil {
		return ErrInternal("read pause switch", err)
	}
	if paused {
		return Reject(ErrPaused, "")
	}
	return nil
}
