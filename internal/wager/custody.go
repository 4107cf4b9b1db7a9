package wager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

type transfer struct {
	from, to common.Address
	token    domain.TokenID
}

// custody journals the registry transfers made during one attempt of a unit
// of work so they can be undone.
type custody struct {
	registry AssetRegistry
	operator common.Address
	logger   *slog.Logger
	done     []transfer
}

func (e *Engine) newCustody() *custody {
	return &custody{registry: e.registry, operator: e.self, logger: e.logger}
}

func (c *custody) move(ctx context.Context, from, to common.Address, token domain.TokenID) error {
	if err := c.registry.TransferCustody(ctx, c.operator, from, to, token); err != nil {
		return fmt.Errorf("move token %d: %w", token, err)
	}
	c.done = append(c.done, transfer{from: from, to: to, token: token})
	return nil
}

// revert undoes completed transfers newest first. It keeps going past
// failures and reports them together; the journal is empty afterwards.
func (c *custody) revert(ctx context.Context) error {
	if len(c.done) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(c.done) - 1; i >= 0; i-- {
		t := c.done[i]
		if err := c.registry.TransferCustody(ctx, c.operator, t.to, t.from, t.token); err != nil {
			c.logger.Error("custody compensation failed",
				"token_id", t.token, "holder", t.to.Hex(), "owner", t.from.Hex(), "error", err)
			errs = append(errs, fmt.Errorf("return token %d to %s: %w", t.token, t.from.Hex(), err))
			continue
		}
		c.logger.Warn("custody transfer reversed", "token_id", t.token, "owner", t.from.Hex())
	}
	c.done = nil

	if len(errs) > 0 {
		return domain.ErrInternal("revert custody", errors.Join(errs...))
	}
	return nil
}
