package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"arsenal-bot/internal/model"
	"arsenal-bot/internal/repository"
)

// memWallets is an in-memory WalletRepository.
type memWallets struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallet
	failOn  string
}

func newMemWallets() *memWallets {
	return &memWallets{wallets: make(map[string]*model.Wallet)}
}

func (m *memWallets) get(userID string) *model.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		w = &model.Wallet{UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		m.wallets[userID] = w
	}
	return w
}

func (m *memWallets) GetByID(_ context.Context, userID string) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWallets) Ensure(_ context.Context, userID string) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.get(userID)
	return &cp, nil
}

func (m *memWallets) ApplyDelta(_ context.Context, userID string, delta int64) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userID == m.failOn {
		return nil, errors.New("connection reset")
	}
	w := m.get(userID)
	w.Balance += delta
	if delta > 0 {
		w.TotalEarned += delta
	} else {
		w.TotalSpent -= delta
	}
	cp := *w
	return &cp, nil
}

func (m *memWallets) SetClaim(_ context.Context, userID string, kind model.RewardKind, at time.Time) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	t := at
	switch kind {
	case model.RewardHourly:
		w.LastHourly = &t
	case model.RewardDaily:
		w.LastDaily = &t
	case model.RewardWeekly:
		w.LastWeekly = &t
	default:
		return nil, repository.ErrInvalidRewardKind
	}
	cp := *w
	return &cp, nil
}

func (m *memWallets) Top(_ context.Context, limit int) ([]*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memWallets) set(userID string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(userID).Balance = balance
}

func (m *memWallets) balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(userID).Balance
}

// memTxs is an in-memory TransactionRepository.
type memTxs struct {
	mu   sync.Mutex
	rows []*model.Transaction
	fail bool
}

func (m *memTxs) Create(_ context.Context, userID string, amount int64, txType string, description *string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("disk full")
	}
	tx := &model.Transaction{
		ID:          int64(len(m.rows) + 1),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	}
	m.rows = append(m.rows, tx)
	return tx, nil
}

func (m *memTxs) ListByUser(_ context.Context, userID string, limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].UserID == userID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memTxs) forUser(userID string) []*model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for _, tx := range m.rows {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}
