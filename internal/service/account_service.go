package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/website"
	"github.com/maheshrc27/postflow/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownWebsite = errors.New("unknown website")
)

type AccountService interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	Refresh(ctx context.Context, id string) (*models.LoginStatus, error)
	RefreshAll(ctx context.Context, concurrency int) error
	Statuses() []*models.LoginStatus
	List(ctx context.Context, website string) ([]*models.Account, error)
	Create(ctx context.Context, website, alias string, data map[string]any) (*models.Account, error)
	AuthURL(website, state string) (string, error)
	Connect(ctx context.Context, website, code string) (*models.Account, error)
	Remove(ctx context.Context, id string) error
}

type accountService struct {
	repo     repository.AccountRepository
	registry *website.Registry
	key      []byte

	mu       sync.RWMutex
	statuses map[string]*models.LoginStatus
}

func NewAccountService(repo repository.AccountRepository, registry *website.Registry, secretKey string) AccountService {
	return &accountService{
		repo:     repo,
		registry: registry,
		key:      utils.DeriveKey(secretKey),
		statuses: map[string]*models.LoginStatus{},
	}
}

// Get returns the account with its credentials decrypted.
func (s *accountService) Get(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", id, err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err := s.decrypt(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Refresh checks the account's login with its website and stores any rotated
// credentials.
func (s *accountService) Refresh(ctx context.Context, id string) (*models.LoginStatus, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	site, ok := s.registry.Get(account.Website)
	if !ok {
		return nil, fmt.Errorf("%s: %w", account.Website, ErrUnknownWebsite)
	}

	status, err := site.CheckLogin(ctx, account)
	if err != nil {
		slog.Warn("login check failed", "account_id", id, "website", account.Website, "error", err)
		status = &models.LoginStatus{AccountID: id, Website: account.Website}
	}
	status.AccountID = id
	status.Website = account.Website
	if status.CheckedAt.IsZero() {
		status.CheckedAt = time.Now()
	}

	if status.Data != nil {
		encrypted, err := utils.EncryptJSON(status.Data, s.key)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		if err := s.repo.SetData(ctx, id, encrypted); err != nil {
			return nil, fmt.Errorf("failed to store credentials: %w", err)
		}
	}

	s.mu.Lock()
	s.statuses[id] = status
	s.mu.Unlock()
	return status, nil
}

// RefreshAll refreshes every account, at most concurrency at a time.
func (s *accountService) RefreshAll(ctx context.Context, concurrency int) error {
	accounts, err := s.repo.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	for _, account := range accounts {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.Refresh(ctx, id); err != nil {
				slog.Error("failed to refresh account", "account_id", id, "error", err)
			}
		}(account.ID)
	}
	wg.Wait()
	return nil
}

func (s *accountService) Statuses() []*models.LoginStatus {
	s.mu.RLock()
	out := make([]*models.LoginStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func (s *accountService) List(ctx context.Context, website string) ([]*models.Account, error) {
	accounts, err := s.repo.List(ctx, strings.ToLower(website))
	if err != nil {
		return nil, fmt.Errorf("error getting accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) Create(ctx context.Context, websiteID, alias string, data map[string]any) (*models.Account, error) {
	site, ok := s.registry.Get(websiteID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", websiteID, ErrUnknownWebsite)
	}
	if strings.TrimSpace(alias) == "" {
		return nil, errors.New("alias cannot be empty")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	encrypted, err := utils.EncryptJSON(data, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	account := &models.Account{
		ID:            id,
		Website:       site.Info().ID,
		Alias:         alias,
		Data:          data,
		EncryptedData: encrypted,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	if _, err := s.Refresh(ctx, account.ID); err != nil {
		slog.Warn("initial login check failed", "account_id", account.ID, "error", err)
	}
	return account, nil
}

func (s *accountService) AuthURL(websiteID, state string) (string, error) {
	conn, err := s.connector(websiteID)
	if err != nil {
		return "", err
	}
	return conn.AuthURL(state), nil
}

// Connect finishes an oauth redirect and stores the new account.
func (s *accountService) Connect(ctx context.Context, websiteID, code string) (*models.Account, error) {
	conn, err := s.connector(websiteID)
	if err != nil {
		return nil, err
	}
	connection, err := conn.Connect(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s account: %w", websiteID, err)
	}
	return s.Create(ctx, websiteID, connection.Alias, connection.Data)
}

// Remove revokes the account's access where the website supports it and
// deletes it. A failed revocation does not block removal.
func (s *accountService) Remove(ctx context.Context, id string) error {
	account, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if site, ok := s.registry.Get(account.Website); ok {
		if conn, err := website.ConnectorFor(site); err == nil {
			if err := conn.Disconnect(ctx, account); err != nil {
				slog.Warn("unable to revoke access", "account_id", id, "website", account.Website, "error", err)
			}
		}
	}

	if err := s.repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("error removing account: %w", err)
	}

	s.mu.Lock()
	delete(s.statuses, id)
	s.mu.Unlock()
	return nil
}

func (s *accountService) connector(websiteID string) (website.Connector, error) {
	site, ok := s.registry.Get(websiteID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", websiteID, ErrUnknownWebsite)
	}
	return website.ConnectorFor(site)
}

func (s *accountService) decrypt(account *models.Account) error {
	data := map[string]any{}
	if err := utils.DecryptJSON(account.EncryptedData, s.key, &data); err != nil {
		return fmt.Errorf("failed to decrypt account %s: %w", account.ID, err)
	}
	account.Data = data
	return nil
}
