package oracle

import (
	"context"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// UpdateOracle reassigns the oracle role.
func (s *Service) UpdateOracle(ctx context.Context, caller, newOracle common.Address) error {
	var previous common.Address
	err := s.asOwner(ctx, "update oracle", caller, func(tx repository.Tx, now time.Time) error {
		if newOracle == domain.ZeroAddress {
			return domain.Reject(domain.ErrZeroAddress, "oracle")
		}
		if newOracle == s.owner {
			return domain.Reject(domain.ErrOracleEqOwner, "%s", newOracle.Hex())
		}
		var err error
		if previous, err = tx.Oracle(ctx); err != nil {
			return err
		}
		if err := tx.SetOracle(ctx, newOracle); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, domain.NewOracleUpdatedEvent(previous, newOracle, now))
	})
	if err != nil {
		return err
	}
	s.logger.Info("oracle updated", "previous", previous.Hex(), "current", newOracle.Hex())
	return nil
}

// Whitelist allows addr to call the match queries.
func (s *Service) Whitelist(ctx context.Context, caller, addr common.Address) error {
	return s.setWhitelisted(ctx, "whitelist", caller, addr, true)
}

// RemoveWhitelist revokes addr's query access.
func (s *Service) RemoveWhitelist(ctx context.Context, caller, addr common.Address) error {
	return s.setWhitelisted(ctx, "remove whitelist", caller, addr, false)
}

func (s *Service) setWhitelisted(ctx context.Context, op string, caller, addr common.Address, allowed bool) error {
	err := s.asOwner(ctx, op, caller, func(tx repository.Tx, now time.Time) error {
		if allowed && addr == domain.ZeroAddress {
			return domain.Reject(domain.ErrZeroAddress, "whitelist")
		}
		if err := tx.SetWhitelisted(ctx, addr, allowed); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, domain.NewWhitelistEvent(addr, allowed, now))
	})
	if err != nil {
		return err
	}
	s.logger.Info("whitelist updated", "addr", addr.Hex(), "allowed", allowed)
	return nil
}
