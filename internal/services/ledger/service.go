// Package ledger implements the multi-currency wallet and its
// append-only transaction log. Balance mutations are serialized per
// wallet through a version compare-and-swap on the wallet row, and the
// balance write plus the ledger entry append always share one database
// transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bookpay/internal/models"
	"bookpay/internal/repositories"

	"github.com/shopspring/decimal"
)

type service struct {
	repo      repositories.WalletRepository
	cache     repositories.CacheRepository
	converter Converter
	config    Config
}

// NewService creates a new ledger service.
func NewService(
	repo repositories.WalletRepository,
	cache repositories.CacheRepository,
	converter Converter,
	config Config,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	if converter == nil {
		panic("converter is required")
	}

	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if config.CurrencyChangeCooldown == 0 {
		config.CurrencyChangeCooldown = DefaultCurrencyCooldown
	}

	return &service{
		repo:      repo,
		cache:     cache,
		converter: converter,
		config:    config,
	}
}

func (s *service) GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	// Try cache first
	if wallet, err := s.cache.GetWallet(ctx, userID); err == nil {
		return wallet, nil
	}

	wallet, err := s.repo.GetByUserID(userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, fmt.Errorf("failed to get wallet: %w", err)
		}
		// Lazy creation on first read
		wallet = &models.Wallet{
			UserID:   userID,
			Currency: s.config.DefaultCurrency,
		}
		if err := s.repo.Create(wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
	}

	if err := s.cache.SetWallet(ctx, userID, wallet); err != nil {
		log.Printf("failed to cache wallet for user %d: %v", userID, err)
	}
	return wallet, nil
}

func (s *service) Credit(ctx context.Context, userID uint, amount decimal.Decimal, currency, description, reference string) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var result *models.Wallet
	err := s.withCASRetry(ctx, userID, func(wallet *models.Wallet) error {
		converted, meta, err := s.toWalletCurrency(amount, currency, wallet.Currency)
		if err != nil {
			return err
		}

		newBalance := wallet.Balance.Add(converted)
		entry := &models.LedgerEntry{
			WalletID:    wallet.ID,
			Amount:      converted,
			Direction:   models.DirectionCredit,
			Description: description,
			Reference:   reference,
			Meta:        meta,
		}
		if err := s.applyMutation(wallet, newBalance, entry); err != nil {
			return err
		}
		result = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return result, nil
}

func (s *service) Debit(ctx context.Context, userID uint, amount decimal.Decimal, currency, description, reference string) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var result *models.Wallet
	err := s.withCASRetry(ctx, userID, func(wallet *models.Wallet) error {
		converted, meta, err := s.toWalletCurrency(amount, currency, wallet.Currency)
		if err != nil {
			return err
		}

		// The balance check and the deduction share one CAS cycle, so a
		// racing debit observes either the old version (and conflicts)
		// or the reduced balance.
		if wallet.Balance.LessThan(converted) {
			return &InsufficientFundsError{
				Available: wallet.Balance,
				Requested: converted,
				Currency:  wallet.Currency,
			}
		}

		newBalance := wallet.Balance.Sub(converted)
		entry := &models.LedgerEntry{
			WalletID:    wallet.ID,
			Amount:      converted,
			Direction:   models.DirectionDebit,
			Description: description,
			Reference:   reference,
			Meta:        meta,
		}
		if err := s.applyMutation(wallet, newBalance, entry); err != nil {
			return err
		}
		result = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return result, nil
}

func (s *service) SetCurrency(ctx context.Context, userID uint, newCurrency string) (*models.Wallet, error) {
	if !s.converter.Supports(newCurrency) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, newCurrency)
	}

	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Currency == newCurrency {
		return wallet, nil
	}

	// Cool-down window between successive conversions for the same
	// wallet. Only checked here; the window starts once the switch has
	// actually happened, so a failed attempt does not lock the user out.
	cooldownKey := fmt.Sprintf("wallet:ccy-cooldown:%d", userID)
	active, err := s.cache.CooldownActive(ctx, cooldownKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check currency cooldown: %w", err)
	}
	if active {
		return nil, ErrCurrencyChangeOnHold
	}

	var result *models.Wallet
	err = s.withCASRetry(ctx, userID, func(wallet *models.Wallet) error {
		oldCurrency := wallet.Currency
		if oldCurrency == newCurrency {
			result = wallet
			return nil
		}

		oldBalance := wallet.Balance
		newBalance, err := s.converter.Convert(oldBalance, oldCurrency, newCurrency)
		if err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			WalletID:    wallet.ID,
			Amount:      newBalance,
			Direction:   models.DirectionConversion,
			Description: fmt.Sprintf("currency changed from %s to %s", oldCurrency, newCurrency),
			Meta: models.EntryMeta{
				OriginalAmount:   &oldBalance,
				OriginalCurrency: oldCurrency,
				ConvertedAmount:  &newBalance,
				NewCurrency:      newCurrency,
			},
		}
		wallet.Currency = newCurrency
		if err := s.applyMutation(wallet, newBalance, entry); err != nil {
			return err
		}
		result = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.StartCooldown(ctx, cooldownKey, s.config.CurrencyChangeCooldown); err != nil {
		log.Printf("failed to start currency cooldown for user %d: %v", userID, err)
	}
	s.invalidate(ctx, userID)
	return result, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error) {
	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListEntries(ctx, wallet.ID, limit, offset)
}

// VerifyBalance checks the core ledger invariant: the wallet balance
// must equal the running sum of signed entry amounts. A conversion
// entry restates the whole balance in the new currency, so the walk
// starts from the most recent conversion (or the beginning of the log).
func (s *service) VerifyBalance(ctx context.Context, userID uint) error {
	wallet, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return ErrWalletNotFound
		}
		return err
	}

	sum := decimal.Zero
	const page = 200
	offset := 0
walk:
	for {
		entries, err := s.repo.ListEntries(ctx, wallet.ID, page, offset)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Direction == models.DirectionConversion {
				sum = sum.Add(entry.Amount)
				break walk
			}
			sum = sum.Add(entry.SignedAmount())
		}
		if len(entries) < page {
			break
		}
		offset += page
	}

	if !wallet.Balance.Equal(sum) {
		return fmt.Errorf("ledger mismatch for user %d: balance %s, entry sum %s",
			userID, wallet.Balance.StringFixed(2), sum.StringFixed(2))
	}
	return nil
}

// withCASRetry loads the wallet and runs fn, retrying on version
// conflicts caused by concurrent writers.
func (s *service) withCASRetry(ctx context.Context, userID uint, fn func(*models.Wallet) error) error {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		wallet, err := s.loadWallet(ctx, userID)
		if err != nil {
			return err
		}
		err = fn(wallet)
		if errors.Is(err, repositories.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ErrWalletBusy
}

// loadWallet always reads through to the database: CAS decisions must
// not be made on possibly stale cached state.
func (s *service) loadWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := s.repo.GetByUserID(userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, fmt.Errorf("failed to get wallet: %w", err)
		}
		wallet = &models.Wallet{
			UserID:   userID,
			Currency: s.config.DefaultCurrency,
		}
		if err := s.repo.Create(wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
	}
	return wallet, nil
}

// applyMutation writes the new balance (with its version bump) and the
// ledger entry in one database transaction, refreshing the USD audit
// shadow along the way.
func (s *service) applyMutation(wallet *models.Wallet, newBalance decimal.Decimal, entry *models.LedgerEntry) error {
	refUSD, err := s.converter.Convert(newBalance, wallet.Currency, referenceCurrency)
	if err != nil {
		return err
	}

	return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		wallet.Balance = newBalance
		wallet.ReferenceBalanceUSD = refUSD
		if err := tx.UpdateWithVersion(wallet); err != nil {
			return err
		}
		return tx.CreateEntry(entry)
	})
}

// toWalletCurrency converts an incoming amount into the wallet currency,
// recording the original figures when a conversion actually happened.
func (s *service) toWalletCurrency(amount decimal.Decimal, from, walletCurrency string) (decimal.Decimal, models.EntryMeta, error) {
	if from == "" || from == walletCurrency {
		return amount, models.EntryMeta{}, nil
	}
	converted, err := s.converter.Convert(amount, from, walletCurrency)
	if err != nil {
		return decimal.Zero, models.EntryMeta{}, err
	}
	original := amount
	meta := models.EntryMeta{
		OriginalAmount:   &original,
		OriginalCurrency: from,
		ConvertedAmount:  &converted,
	}
	return converted, meta, nil
}

func (s *service) invalidate(ctx context.Context, userID uint) {
	if err := s.cache.DeleteWallet(ctx, userID); err != nil {
		log.Printf("failed to invalidate wallet cache for user %d: %v", userID, err)
	}
}
