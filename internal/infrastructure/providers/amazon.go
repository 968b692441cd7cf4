package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/infrastructure/tokens"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const (
	AmazonDefaultMarketplaceID = "ATVPDKIKX0DER"

	amazonListingsReport  = "GET_MERCHANT_LISTINGS_ALL_DATA"
	amazonShipmentsReport = "GET_AMAZON_FULFILLED_SHIPMENTS_DATA_GENERAL"

	// SP-API rejects created-before values too close to now
	amazonCreatedLag = time.Hour
)

// Amazon imports through the Selling Partner API. Every call is counted against the
// shop's per-minute budget and signed with an assumed STS role that is re-assumed
// once when a call is rejected.
type Amazon struct {
	base
	api         ports.AmazonAPI
	roles       ports.RoleAssumer
	marketplace *ports.AmazonMarketplace
}

func newAmazon(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.Amazon == nil {
		return nil, notConfigured(domain.ProviderAmazon)
	}
	a := &Amazon{base: newBase(env, domain.ProviderAmazon), api: clients.Amazon, roles: clients.RoleAssumer}
	a.Retry = a.Retry.WithRetryable(amazonRetryable)
	return a, nil
}

// amazonRetryable retries every vendor failure except those another attempt cannot fix
func amazonRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch domain.KindOf(err) {
	case domain.KindAuthExpired, domain.KindNotFound, domain.KindInvalidRequest, domain.KindFatalProtocol:
		return false
	default:
		return true
	}
}

// classifyAmazon marks 403 as an expired grant. SP-API answers 403 once the seller's
// authorization lapses, which is not worth escalating.
func classifyAmazon(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *domain.ImportError
	if errors.As(err, &ie) {
		return err
	}
	if domain.StatusOf(err) == http.StatusForbidden {
		return domain.NewImportError(domain.KindAuthExpired, domain.ProviderAmazon, op,
			domain.WithStatus(http.StatusForbidden), domain.WithCause(err))
	}
	return domain.Classify(domain.ProviderAmazon, op, err)
}

func (a *Amazon) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{
		domain.ResourceListings,
		domain.ResourceOrders,
		domain.ResourceFinancialEvents,
		domain.ResourceShipments,
	}
}

func (a *Amazon) session(c *domain.Credential) ports.AmazonSession {
	s := ports.AmazonSession{
		RefreshToken: c.RefreshToken,
		Role: ports.RoleCredentials{
			AccessKeyID:     c.ProviderData[domain.ProviderDataRoleAccessKeyID],
			SecretAccessKey: c.ProviderData[domain.ProviderDataRoleSecretKey],
			SessionToken:    c.ProviderData[domain.ProviderDataRoleSession],
		},
	}
	if exp, err := time.Parse(time.RFC3339, c.ProviderData[domain.ProviderDataRoleExpiresAt]); err == nil {
		s.Role.Expires = exp
	}
	return s
}

func (a *Amazon) roleExpired(c *domain.Credential) bool {
	s := a.session(c)
	return s.Role.AccessKeyID == "" || !a.Clock.Now().Before(s.Role.Expires)
}

func (a *Amazon) assumeRole(ctx context.Context, c *domain.Credential) (*domain.Credential, error) {
	if a.roles == nil {
		return nil, domain.NewImportError(domain.KindInvalidRequest, a.provider, "assume_role", domain.WithCause(domain.ErrNotConfigured))
	}
	role, err := a.roles.AssumeRole(ctx)
	if err != nil {
		return nil, a.classify("assume_role", err)
	}
	c.SetProviderData(domain.ProviderDataRoleAccessKeyID, role.AccessKeyID)
	c.SetProviderData(domain.ProviderDataRoleSecretKey, role.SecretAccessKey)
	c.SetProviderData(domain.ProviderDataRoleSession, role.SessionToken)
	c.SetProviderData(domain.ProviderDataRoleExpiresAt, role.Expires.UTC().Format(time.RFC3339))
	return c, nil
}

func (a *Amazon) throttle(ctx context.Context) error {
	if a.Limiter == nil {
		return nil
	}
	return a.Limiter.Wait(ctx, a.Shop.ID)
}

// shouldReassume accepts rejected grants and failures that carry no status at all
func shouldReassume(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindAuthExpired, domain.KindUnclassified:
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	default:
		return false
	}
}

func amazonCall[T any](ctx context.Context, a *Amazon, op string, fn func(context.Context, ports.AmazonSession) (T, error)) (T, error) {
	if _, err := a.Tokens.EnsureFresh(ctx, a.Shop, a.roleExpired, a.assumeRole); err != nil {
		var zero T
		return zero, err
	}
	return tokens.Call(ctx, a.Tokens, a.Shop, shouldReassume, a.assumeRole, func(ctx context.Context, c *domain.Credential) (T, error) {
		return retry.Do(ctx, a.Retry, func(ctx context.Context) (T, error) {
			var zero T
			if err := a.throttle(ctx); err != nil {
				return zero, err
			}
			v, err := fn(ctx, a.session(c))
			if err != nil {
				return zero, classifyAmazon(op, err)
			}
			return v, nil
		})
	})
}

// TokenActive probes marketplace participations, re-assuming the role once on any failure
func (a *Amazon) TokenActive(ctx context.Context) bool {
	_, err := tokens.Call(ctx, a.Tokens, a.Shop, func(error) bool { return true }, a.assumeRole,
		func(ctx context.Context, c *domain.Credential) ([]ports.AmazonMarketplace, error) {
			if err := a.throttle(ctx); err != nil {
				return nil, err
			}
			return a.api.MarketplaceParticipations(ctx, a.session(c))
		})
	if err != nil {
		a.log.Info().Err(err).Msg("Token inactive")
		return false
	}
	return true
}

func (a *Amazon) defaultMarketplace(ctx context.Context) (*ports.AmazonMarketplace, error) {
	if a.marketplace != nil {
		return a.marketplace, nil
	}
	mps, err := amazonCall(ctx, a, "get_marketplace_participations", a.api.MarketplaceParticipations)
	if err != nil {
		return nil, err
	}

	mp := ports.AmazonMarketplace{ID: AmazonDefaultMarketplaceID}
	for _, m := range mps {
		if m.ID == AmazonDefaultMarketplaceID {
			mp = m
			break
		}
	}
	if mp.DefaultCurrencyCode == "" && len(mps) > 0 {
		mp = mps[0]
	}
	a.marketplace = &mp
	return a.marketplace, nil
}

func (a *Amazon) currency(ctx context.Context) (string, error) {
	return a.cachedCurrency(ctx, func(ctx context.Context) (string, error) {
		mp, err := a.defaultMarketplace(ctx)
		if err != nil {
			return "", err
		}
		if mp.DefaultCurrencyCode == "" {
			return "", domain.NewImportError(domain.KindFatalProtocol, a.provider, "get_marketplace_participations",
				domain.WithMessage("marketplace "+mp.ID+" has no default currency"))
		}
		return mp.DefaultCurrencyCode, nil
	})
}

func (a *Amazon) IsPriceConverted(ctx context.Context, override string) (bool, error) {
	if override != "" {
		return a.priceConverted(override), nil
	}
	cur, err := a.currency(ctx)
	if err != nil {
		return false, err
	}
	return a.priceConverted(cur), nil
}

func (a *Amazon) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	cur := override
	if cur == "" {
		var err error
		if cur, err = a.currency(ctx); err != nil {
			return decimal.Zero, "", err
		}
	}
	return a.convert(ctx, amount, occurredAt, note, cur)
}

// maxCreated is the upper bound for created/posted filters
func (a *Amazon) maxCreated() time.Time {
	now := a.Clock.Now()
	end := a.Window.End()
	if !end.Before(now) {
		return now.Add(-amazonCreatedLag)
	}
	return end
}

func (a *Amazon) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	switch kind {
	case domain.ResourceOrders:
		mp, err := a.defaultMarketplace(ctx)
		if err != nil {
			return nil, err
		}
		var next string
		items, err := amazonCall(ctx, a, "get_orders", func(ctx context.Context, s ports.AmazonSession) ([]any, error) {
			var items []any
			var err error
			items, next, err = a.api.GetOrders(ctx, s, []string{mp.ID}, a.Window.Start(), a.maxCreated(), string(cursor))
			return items, err
		})
		if err != nil {
			return nil, err
		}
		return &domain.Page{Items: items, Next: domain.Cursor(next)}, nil

	case domain.ResourceFinancialEvents:
		var next string
		items, err := amazonCall(ctx, a, "list_financial_events", func(ctx context.Context, s ports.AmazonSession) ([]any, error) {
			var items []any
			var err error
			items, next, err = a.api.ListFinancialEvents(ctx, s, a.Window.Start(), a.maxCreated(), string(cursor))
			return items, err
		})
		if err != nil {
			return nil, err
		}
		return &domain.Page{Items: items, Next: domain.Cursor(next)}, nil

	case domain.ResourceListings:
		rows, err := a.report(ctx, amazonListingsReport, nil, nil)
		if err != nil {
			return nil, err
		}
		return &domain.Page{Items: dedupeListings(rows)}, nil

	case domain.ResourceShipments:
		start, end := a.Window.Start(), a.maxCreated()
		rows, err := a.report(ctx, amazonShipmentsReport, &start, &end)
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, len(rows))
		for _, r := range rows {
			items = append(items, r)
		}
		return &domain.Page{Items: items}, nil
	}
	return nil, a.unsupported(kind)
}

// report requests a report, polls until it is processed and downloads its rows.
// A pending report is a transient failure so the retry policy spaces the polls.
func (a *Amazon) report(ctx context.Context, reportType string, start, end *time.Time) ([]map[string]string, error) {
	mp, err := a.defaultMarketplace(ctx)
	if err != nil {
		return nil, err
	}

	req := ports.AmazonReportRequest{
		ReportType:     reportType,
		MarketplaceIDs: []string{mp.ID},
		DataStartTime:  start,
		DataEndTime:    end,
	}
	reportID, err := amazonCall(ctx, a, "create_report", func(ctx context.Context, s ports.AmazonSession) (string, error) {
		return a.api.CreateReport(ctx, s, req)
	})
	if err != nil {
		return nil, err
	}

	return amazonCall(ctx, a, "get_report", func(ctx context.Context, s ports.AmazonSession) ([]map[string]string, error) {
		rep, err := a.api.GetReport(ctx, s, reportID)
		if err != nil {
			return nil, err
		}
		status := strings.ToUpper(rep.ProcessingStatus)
		switch status {
		case "DONE":
			if rep.DocumentID == "" {
				return nil, nil
			}
			return a.api.DownloadReport(ctx, s, rep.DocumentID)
		case "CANCELLED", "FATAL":
			a.log.Warn().Str("report", reportType).Str("status", status).Msg("Report produced no document")
			return nil, nil
		default:
			return nil, domain.NewImportError(domain.KindTransientUpstream, a.provider, "get_report",
				domain.WithMessage("report processing status: "+strings.ToLower(status)))
		}
	})
}

// dedupeListings keeps one row per asin1, preferring an Active row
func dedupeListings(rows []map[string]string) []any {
	index := make(map[string]int, len(rows))
	kept := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		asin := row["asin1"]
		if asin == "" {
			kept = append(kept, row)
			continue
		}
		if i, ok := index[asin]; ok {
			if !strings.EqualFold(kept[i]["status"], "Active") && strings.EqualFold(row["status"], "Active") {
				kept[i] = row
			}
			continue
		}
		index[asin] = len(kept)
		kept = append(kept, row)
	}

	items := make([]any, len(kept))
	for i, row := range kept {
		items[i] = row
	}
	return items
}

func (a *Amazon) APIAvailable(ctx context.Context) bool {
	if _, err := a.defaultMarketplace(ctx); err != nil {
		a.markUnavailable(ctx, "get_marketplace_participations", err)
		return false
	}
	return true
}
