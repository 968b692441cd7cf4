package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"commerce-import-layer/internal/domain"
)

// MemoryStore keeps credentials, shops, accounts and import jobs in process memory.
// It satisfies CredentialRepository, ShopRepository and ExternalImportRepository and
// backs local runs and tests.
type MemoryStore struct {
	mu          sync.Mutex
	credentials map[string]*domain.Credential
	shops       map[string]*domain.Shop
	accounts    map[string]*domain.Account
	imports     map[string]*domain.ExternalImport
	saves       int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		credentials: make(map[string]*domain.Credential),
		shops:       make(map[string]*domain.Shop),
		accounts:    make(map[string]*domain.Account),
		imports:     make(map[string]*domain.ExternalImport),
	}
}

// PutShop seeds a shop
func (m *MemoryStore) PutShop(shop *domain.Shop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *shop
	m.shops[shop.ID] = &cp
}

// PutAccount seeds an account
func (m *MemoryStore) PutAccount(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *account
	m.accounts[account.ID] = &cp
}

// PutCredential seeds a credential, bypassing the version check
func (m *MemoryStore) PutCredential(c *domain.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[c.ShopID] = c.Clone()
}

// PutExternalImport seeds an import job
func (m *MemoryStore) PutExternalImport(ext *domain.ExternalImport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ext
	m.imports[ext.ID] = &cp
}

// Saves returns how many credential writes succeeded
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Load(_ context.Context, shopID string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credentials[shopID].Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, c *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.credentials[c.ShopID]
	if ok && stored.Version != c.Version {
		return domain.ErrCredentialConflict
	}
	if !ok && c.Version != 0 {
		return domain.ErrCredentialConflict
	}
	c.Version++
	m.credentials[c.ShopID] = c.Clone()
	m.saves++
	return nil
}

func (m *MemoryStore) GetShop(_ context.Context, id string) (*domain.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shops[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ListActiveShopIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.shops {
		if s.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) Deactivate(_ context.Context, shopID string) error {
	return m.updateShop(shopID, func(s *domain.Shop) { s.Active = false })
}

func (m *MemoryStore) UpdateCurrency(_ context.Context, shopID string, currency string) error {
	return m.updateShop(shopID, func(s *domain.Shop) { s.Currency = currency })
}

func (m *MemoryStore) UpdatePaypalEmails(_ context.Context, shopID string, emails []string) error {
	return m.updateShop(shopID, func(s *domain.Shop) { s.PaypalEmails = append([]string(nil), emails...) })
}

func (m *MemoryStore) updateShop(shopID string, fn func(*domain.Shop)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shops[shopID]
	if !ok {
		return fmt.Errorf("shop not found: %s", shopID)
	}
	fn(s)
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.ExternalImport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ext, ok := m.imports[id]
	if !ok {
		return nil, nil
	}
	cp := *ext
	return &cp, nil
}

func (m *MemoryStore) MarkFailed(_ context.Context, id string, failedAt time.Time, detail domain.ErrorDetail) error {
	return m.updateImport(id, func(e *domain.ExternalImport) {
		e.FailedAt = &failedAt
		e.ErrorMessages = &detail
	})
}

func (m *MemoryStore) UpdateTotals(_ context.Context, id string, totalItems int) error {
	return m.updateImport(id, func(e *domain.ExternalImport) { e.TotalItems = totalItems })
}

func (m *MemoryStore) MarkFinished(_ context.Context, id string, processedItems int, finishedAt time.Time) error {
	return m.updateImport(id, func(e *domain.ExternalImport) {
		e.ProcessedItems = processedItems
		e.FinishedAt = &finishedAt
	})
}

func (m *MemoryStore) updateImport(id string, fn func(*domain.ExternalImport)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ext, ok := m.imports[id]
	if !ok {
		return fmt.Errorf("external import not found: %s", id)
	}
	fn(ext)
	return nil
}
