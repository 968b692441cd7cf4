package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/infrastructure/currency"
	"commerce-import-layer/internal/infrastructure/ratelimit"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/infrastructure/tokens"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Env is everything an adapter needs for one import session
type Env struct {
	Shop           *domain.Shop
	Account        *domain.Account
	ExternalImport *domain.ExternalImport // nil for scheduled runs
	Window         domain.DateWindow
	Tokens         *tokens.Store
	Counters       ports.CounterStore
	Limiter        *ratelimit.CounterLimiter
	Headers        *ratelimit.HeaderLimiter
	Converter      *currency.Converter
	Imports        ports.ExternalImportRepository
	Shops          ports.ShopRepository
	Tracker        ports.ErrorTracker
	Retry          retry.Policy
	Clock          clock.Clock
	Logger         zerolog.Logger
}

// base carries the behaviour shared by every adapter
type base struct {
	Env
	provider domain.Provider
	log      zerolog.Logger
}

func newBase(env Env, provider domain.Provider) base {
	if env.Clock == nil {
		env.Clock = clock.Real{}
	}
	if env.Retry.MaxAttempts == 0 {
		env.Retry = retry.Default()
	}
	env.Retry = env.Retry.WithClock(env.Clock).WithLogger(env.Logger)
	return base{
		Env:      env,
		provider: provider,
		log: env.Logger.With().
			Str("provider", provider.String()).
			Str("shop", env.Shop.ID).
			Logger(),
	}
}

func (b *base) Provider() domain.Provider {
	return b.provider
}

func (b *base) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return domain.Classify(b.provider, op, err)
}

func (b *base) unsupported(kind domain.ResourceKind) error {
	return domain.NewImportError(domain.KindInvalidRequest, b.provider, "fetch_page",
		domain.WithMessage(fmt.Sprintf("resource %q is not supported", kind)))
}

// pick returns override when set, otherwise the provider-native currency
func pick(override, native string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return native
}

func (b *base) priceConverted(cur string) bool {
	return b.Converter.NeedsConversion(cur)
}

func (b *base) convert(ctx context.Context, amount string, occurredAt time.Time, note, cur string) (decimal.Decimal, string, error) {
	return b.Converter.Convert(ctx, amount, occurredAt, cur, note)
}

// cachedCurrency returns the shop's cached currency or resolves and caches it
func (b *base) cachedCurrency(ctx context.Context, resolve func(context.Context) (string, error)) (string, error) {
	if b.Shop.Currency != "" {
		return b.Shop.Currency, nil
	}
	cur, err := resolve(ctx)
	if err != nil {
		return "", err
	}
	cur = strings.ToUpper(cur)
	b.Shop.Currency = cur
	if b.Shops != nil {
		if err := b.Shops.UpdateCurrency(ctx, b.Shop.ID, cur); err != nil {
			b.log.Warn().Err(err).Msg("Failed to cache shop currency")
		}
	}
	return cur, nil
}

// markUnavailable stamps the running import as failed. Ignorable failures are only logged.
func (b *base) markUnavailable(ctx context.Context, op string, err error) {
	ie := domain.Classify(b.provider, op, err)
	b.log.Warn().Err(ie).Str("kind", ie.Kind.String()).Msg("API unavailable")
	if domain.IsIgnorable(ie) {
		return
	}
	b.stampFailure(ctx, ie.Error())
}

func (b *base) stampFailure(ctx context.Context, message string) {
	if b.ExternalImport == nil || b.Imports == nil {
		return
	}
	if err := b.Imports.MarkFailed(ctx, b.ExternalImport.ID, b.Clock.Now(), domain.ErrorDetail{Message: message}); err != nil {
		b.log.Error().Err(err).Msg("Failed to stamp external import")
	}
}

func (b *base) report(ctx context.Context, err error) {
	if b.Tracker == nil {
		return
	}
	b.Tracker.Report(ctx, err, map[string]string{
		"provider":   b.provider.String(),
		"shop_id":    b.Shop.ID,
		"account_id": b.Shop.AccountID,
	})
}

func (b *base) credential(ctx context.Context) (*domain.Credential, error) {
	return b.Tokens.Load(ctx, b.Shop)
}

// oauthRefresh builds a refresh function around a refresh-token grant
func (b *base) oauthRefresh(r ports.TokenRefresher) tokens.RefreshFunc {
	return func(ctx context.Context, c *domain.Credential) (*domain.Credential, error) {
		if r == nil {
			return nil, domain.NewImportError(domain.KindInvalidRequest, b.provider, "refresh_token", domain.WithCause(domain.ErrNotConfigured))
		}
		if c.RefreshToken == "" {
			return nil, domain.NewImportError(domain.KindFatalProtocol, b.provider, "refresh_token",
				domain.WithMessage("no refresh token stored"))
		}
		grant, err := r.RefreshToken(ctx, c.RefreshToken)
		if err != nil {
			if rejectedGrant(err) {
				return nil, domain.NewImportError(domain.KindFatalProtocol, b.provider, "refresh_token",
					domain.WithStatus(domain.StatusOf(err)), domain.WithCode(domain.CodeOf(err)), domain.WithCause(err))
			}
			return nil, b.classify("refresh_token", err)
		}
		grant.Apply(c)
		return c, nil
	}
}

// rejectedGrant reports a refresh token the vendor will never accept again
func rejectedGrant(err error) bool {
	if domain.KindOf(err) == domain.KindFatalProtocol {
		return true
	}
	switch domain.CodeOf(err) {
	case "invalid_grant", "invalid_refresh_token":
		return true
	default:
		return false
	}
}

// expiredNow reports a credential whose access token has passed its expiry
func (b *base) expiredNow(c *domain.Credential) bool {
	return c.ExpiredAt(b.Clock.Now())
}

// resourceIDs is the optional order id filter of the running import
func (b *base) resourceIDs() []string {
	if b.ExternalImport == nil {
		return nil
	}
	return b.ExternalImport.ResourceIDs
}

// offsetCursor decodes an integer cursor, the empty cursor being start
func offsetCursor(c domain.Cursor, start int) (int, error) {
	if c == "" {
		return start, nil
	}
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0, fmt.Errorf("invalid cursor %q: %w", c, err)
	}
	return n, nil
}

func intCursor(n int) domain.Cursor {
	return domain.Cursor(strconv.Itoa(n))
}
