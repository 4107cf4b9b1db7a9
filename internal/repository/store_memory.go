package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

var errReadOnly = errors.New("write attempted in read-only unit of work")

// MemoryStore is an in-process Store. Units of work are serialized by a single
// writer lock; each one mutates a private copy of the state that replaces the
// live state only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	matches     map[domain.MatchID]domain.Match
	matchOrder  []domain.MatchID
	games       map[domain.GameID]domain.Game
	gameCount   uint64
	tokenGames  map[domain.TokenID]domain.GameID
	playerGames map[common.Address][]domain.GameID
	oracle      common.Address
	whitelist   map[common.Address]struct{}
	events      []domain.OutboxDraft
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		matches:     make(map[domain.MatchID]domain.Match),
		games:       make(map[domain.GameID]domain.Game),
		tokenGames:  make(map[domain.TokenID]domain.GameID),
		playerGames: make(map[common.Address][]domain.GameID),
		whitelist:   make(map[common.Address]struct{}),
	}}
}

// clone copies the maps; slices are clipped so appends never reach the
// original's backing arrays.
func (s *memState) clone() *memState {
	c := &memState{
		matches:     maps.Clone(s.matches),
		matchOrder:  slices.Clip(s.matchOrder),
		games:       maps.Clone(s.games),
		gameCount:   s.gameCount,
		tokenGames:  maps.Clone(s.tokenGames),
		playerGames: make(map[common.Address][]domain.GameID, len(s.playerGames)),
		oracle:      s.oracle,
		whitelist:   maps.Clone(s.whitelist),
		events:      slices.Clip(s.events),
	}
	for k, v := range s.playerGames {
		c.playerGames[k] = slices.Clip(v)
	}
	return c
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{state: s.state, readOnly: true})
}

// Events returns every event appended by committed units of work.
func (s *MemoryStore) Events() []domain.OutboxDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.events)
}

type memTx struct {
	state    *memState
	readOnly bool
}

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *memTx) Match(_ context.Context, id domain.MatchID) (*domain.Match, error) {
	m, ok := t.state.matches[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (t *memTx) InsertMatch(_ context.Context, m *domain.Match) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.matches[m.ID]; ok {
		return fmt.Errorf("insert match %d: duplicate id", m.ID)
	}
	t.state.matches[m.ID] = *m
	t.state.matchOrder = append(t.state.matchOrder, m.ID)
	return nil
}

func (t *memTx) UpdateMatch(_ context.Context, m *domain.Match) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.matches[m.ID]; !ok {
		return fmt.Errorf("update match %d: no row", m.ID)
	}
	t.state.matches[m.ID] = *m
	return nil
}

func (t *memTx) MatchIDs(context.Context) ([]domain.MatchID, error) {
	return slices.Clone(t.state.matchOrder), nil
}

func (t *memTx) Game(_ context.Context, id domain.GameID) (*domain.Game, error) {
	g, ok := t.state.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (t *memTx) NextGameID(context.Context) (domain.GameID, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	t.state.gameCount++
	return domain.GameID(t.state.gameCount), nil
}

func (t *memTx) GameCount(context.Context) (uint64, error) {
	return t.state.gameCount, nil
}

func (t *memTx) InsertGame(_ context.Context, g *domain.Game) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.games[g.ID]; ok {
		return fmt.Errorf("insert game %d: duplicate id", g.ID)
	}
	t.state.games[g.ID] = *g
	return nil
}

func (t *memTx) UpdateGame(_ context.Context, g *domain.Game) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.games[g.ID]; !ok {
		return fmt.Errorf("update game %d: no row", g.ID)
	}
	t.state.games[g.ID] = *g
	return nil
}

func (t *memTx) TokenGame(_ context.Context, token domain.TokenID) (domain.GameID, error) {
	return t.state.tokenGames[token], nil
}

func (t *memTx) SetTokenGame(_ context.Context, token domain.TokenID, id domain.GameID) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.tokenGames[token] = id
	return nil
}

func (t *memTx) ClearTokenGame(_ context.Context, token domain.TokenID) error {
	if err := t.writable(); err != nil {
		return err
	}
	delete(t.state.tokenGames, token)
	return nil
}

func (t *memTx) AppendPlayerGame(_ context.Context, player common.Address, id domain.GameID) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.playerGames[player] = append(t.state.playerGames[player], id)
	return nil
}

func (t *memTx) PlayerGames(_ context.Context, player common.Address) ([]domain.GameID, error) {
	return slices.Clone(t.state.playerGames[player]), nil
}

func (t *memTx) Oracle(context.Context) (common.Address, error) {
	return t.state.oracle, nil
}

func (t *memTx) SetOracle(_ context.Context, addr common.Address) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.oracle = addr
	return nil
}

func (t *memTx) IsWhitelisted(_ context.Context, addr common.Address) (bool, error) {
	_, ok := t.state.whitelist[addr]
	return ok, nil
}

func (t *memTx) SetWhitelisted(_ context.Context, addr common.Address, allowed bool) error {
	if err := t.writable(); err != nil {
		return err
	}
	if allowed {
		t.state.whitelist[addr] = struct{}{}
	} else {
		delete(t.state.whitelist, addr)
	}
	return nil
}

func (t *memTx) AppendEvents(_ context.Context, drafts ...domain.OutboxDraft) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.events = append(t.state.events, drafts...)
	return nil
}
