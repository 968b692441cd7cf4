package tokens

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// State is the refresh state of one shop's credential
type State int

const (
	StateValid State = iota
	StateRefreshing
	StateDead
)

func (s State) String() string {
	switch s {
	case StateRefreshing:
		return "refreshing"
	case StateDead:
		return "dead"
	default:
		return "valid"
	}
}

const (
	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 2 * time.Second
)

// RefreshFunc exchanges the current credential for a new one. Returning an error
// classified as FatalProtocol marks the credential dead.
type RefreshFunc func(ctx context.Context, current *domain.Credential) (*domain.Credential, error)

// Store owns credential state per shop and serializes refreshes so that only one
// refresh per shop writes the credential
type Store struct {
	creds     ports.CredentialRepository
	shops     ports.ShopRepository
	locks     ports.CounterStore
	clock     clock.Clock
	logger    zerolog.Logger
	group     singleflight.Group
	mu        sync.Mutex
	states    map[string]State
	rejected  map[string]credentialKey
	lockTTL   time.Duration
	lockWait  time.Duration
	onRefresh func(provider domain.Provider, outcome string)
}

// NewStore creates a token store. locks may be nil for single-process use.
func NewStore(creds ports.CredentialRepository, shops ports.ShopRepository, locks ports.CounterStore, clk clock.Clock, logger zerolog.Logger) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Store{
		creds:    creds,
		shops:    shops,
		locks:    locks,
		clock:    clk,
		logger:   logger,
		states:   make(map[string]State),
		rejected: make(map[string]credentialKey),
		lockTTL:  defaultLockTTL,
		lockWait: defaultLockWait,
	}
}

// OnRefresh registers a hook called with the outcome of every refresh attempt
func (s *Store) OnRefresh(fn func(provider domain.Provider, outcome string)) {
	s.onRefresh = fn
}

// State returns the current state for a shop
func (s *Store) State(shopID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[shopID]
}

func (s *Store) setState(shopID string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[shopID] = st
}

// credentialKey identifies one persisted credential revision
type credentialKey struct {
	version int64
	token   string
}

func keyOf(c *domain.Credential) credentialKey {
	return credentialKey{version: c.Version, token: c.Token}
}

func (s *Store) markDead(shopID string, c *domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[shopID] = StateDead
	s.rejected[shopID] = keyOf(c)
}

// isDead reports whether c is the credential whose refresh was rejected. A different
// persisted credential, e.g. after the shop reconnected, clears the dead state.
func (s *Store) isDead(shopID string, c *domain.Credential) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.rejected[shopID]
	if !ok {
		return false
	}
	if key == keyOf(c) {
		return true
	}
	delete(s.rejected, shopID)
	s.states[shopID] = StateValid
	return false
}

func (s *Store) observe(provider domain.Provider, outcome string) {
	if s.onRefresh != nil {
		s.onRefresh(provider, outcome)
	}
}

func deadError(provider domain.Provider, cause error) error {
	if cause == nil {
		cause = domain.ErrCredentialDead
	} else {
		cause = errors.Join(domain.ErrCredentialDead, cause)
	}
	return domain.NewImportError(domain.KindFatalProtocol, provider, "refresh_token", domain.WithCause(cause))
}

// Load returns the stored credential for a shop
func (s *Store) Load(ctx context.Context, shop *domain.Shop) (*domain.Credential, error) {
	cred, err := s.creds.Load(ctx, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return nil, domain.NewImportError(domain.KindInvalidRequest, shop.Provider, "load_credential",
			domain.WithMessage("no credential stored for shop "+shop.ID))
	}
	if s.isDead(shop.ID, cred) {
		return nil, deadError(shop.Provider, nil)
	}
	return cred, nil
}

// Save persists a credential change made outside a refresh, such as a token migration
func (s *Store) Save(ctx context.Context, cred *domain.Credential) error {
	cred.UpdatedAt = s.clock.Now()
	if err := s.creds.Save(ctx, cred); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// EnsureFresh refreshes proactively when expired reports the stored credential stale
func (s *Store) EnsureFresh(ctx context.Context, shop *domain.Shop, expired func(*domain.Credential) bool, refresh RefreshFunc) (*domain.Credential, error) {
	cred, err := s.Load(ctx, shop)
	if err != nil {
		return nil, err
	}
	if !expired(cred) {
		return cred, nil
	}
	return s.Refresh(ctx, shop, cred, refresh)
}

// Refresh replaces observed with a refreshed credential. Concurrent callers for the
// same shop share one refresh; a caller that finds the credential already replaced
// reuses the newer one instead of refreshing again.
func (s *Store) Refresh(ctx context.Context, shop *domain.Shop, observed *domain.Credential, refresh RefreshFunc) (*domain.Credential, error) {
	v, err, _ := s.group.Do(shop.ID, func() (any, error) {
		return s.refresh(ctx, shop, observed, refresh)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Credential), nil
}

func superseded(observed, current *domain.Credential) bool {
	if observed == nil || current == nil {
		return false
	}
	return current.Version != observed.Version || current.Token != observed.Token
}

func (s *Store) refresh(ctx context.Context, shop *domain.Shop, observed *domain.Credential, fn RefreshFunc) (*domain.Credential, error) {
	log := s.logger.With().Str("provider", shop.Provider.String()).Str("shop", shop.ID).Logger()

	if s.locks != nil {
		lockKey := "shop:" + shop.ID + ":token:refresh"
		acquired, err := s.locks.SetNX(ctx, lockKey, "1", s.lockTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("Refresh lock unavailable, refreshing without it")
		case acquired:
			defer func() {
				if err := s.locks.Delete(context.WithoutCancel(ctx), lockKey); err != nil {
					log.Warn().Err(err).Msg("Failed to release refresh lock")
				}
			}()
		default:
			log.Debug().Msg("Refresh in progress elsewhere, waiting")
			if err := s.clock.Sleep(ctx, s.lockWait); err != nil {
				return nil, err
			}
		}
	}

	current, err := s.creds.Load(ctx, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if current == nil {
		return nil, domain.NewImportError(domain.KindInvalidRequest, shop.Provider, "refresh_token",
			domain.WithMessage("no credential stored for shop "+shop.ID))
	}
	if s.isDead(shop.ID, current) {
		return nil, deadError(shop.Provider, nil)
	}
	if superseded(observed, current) {
		log.Debug().Msg("Credential already refreshed, reusing")
		s.observe(shop.Provider, "reused")
		return current, nil
	}

	s.setState(shop.ID, StateRefreshing)
	next, err := fn(ctx, current.Clone())
	if err != nil {
		if domain.KindOf(err) == domain.KindFatalProtocol {
			s.markDead(shop.ID, current)
			s.observe(shop.Provider, "dead")
			log.Error().Err(err).Msg("Refresh token rejected, deactivating shop")
			if derr := s.shops.Deactivate(ctx, shop.ID); derr != nil {
				log.Error().Err(derr).Msg("Failed to deactivate shop")
			}
			return nil, deadError(shop.Provider, err)
		}
		s.setState(shop.ID, StateValid)
		s.observe(shop.Provider, "failed")
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	next.ShopID = shop.ID
	next.Version = current.Version
	next.UpdatedAt = s.clock.Now()
	if err := s.creds.Save(ctx, next); err != nil {
		s.setState(shop.ID, StateValid)
		if errors.Is(err, domain.ErrCredentialConflict) {
			winner, lerr := s.creds.Load(ctx, shop.ID)
			if lerr == nil && winner != nil {
				log.Info().Msg("Concurrent refresh won, reusing its credential")
				s.observe(shop.Provider, "reused")
				return winner, nil
			}
		}
		s.observe(shop.Provider, "failed")
		return nil, fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	s.setState(shop.ID, StateValid)
	s.observe(shop.Provider, "refreshed")
	log.Info().Msg("Token refreshed")
	return next, nil
}

// Call runs call with the shop's credential. If the call fails with an error
// isAuthFailure accepts, the credential is refreshed once and the call is retried
// exactly once; a second failure is returned as is.
func Call[T any](ctx context.Context, s *Store, shop *domain.Shop, isAuthFailure func(error) bool, refresh RefreshFunc, call func(context.Context, *domain.Credential) (T, error)) (T, error) {
	var zero T
	cred, err := s.Load(ctx, shop)
	if err != nil {
		return zero, err
	}

	for attempt := 1; ; attempt++ {
		v, err := call(ctx, cred)
		if err == nil {
			return v, nil
		}
		if attempt > 1 || !isAuthFailure(err) {
			return zero, err
		}

		s.logger.Info().
			Err(err).
			Str("provider", shop.Provider.String()).
			Str("shop", shop.ID).
			Msg("Token rejected, refreshing before retry")
		cred, err = s.Refresh(ctx, shop, cred, refresh)
		if err != nil {
			return zero, err
		}
	}
}
