package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/repository"
)

type memRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.Conversion
	history []model.ConversionStatus
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[uuid.UUID]*model.Conversion)}
}

func (r *memRepo) Create(_ context.Context, c *model.Conversion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.records[c.ID] = &cp
	r.history = append(r.history, c.Status)
	return nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.ConversionStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.records[id]
	if !ok {
		return repository.ErrConversionNotFound
	}
	c.Status, c.FailureReason = status, reason
	r.history = append(r.history, status)
	return nil
}

func (r *memRepo) Get(_ context.Context, id uuid.UUID) (*model.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.records[id]
	if !ok {
		return nil, repository.ErrConversionNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memRepo) ListByUser(_ context.Context, userID string, _ int) ([]*model.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Conversion
	for _, c := range r.records {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

var errInsufficient = errors.New("insufficient balance")

type memLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	types    []string
}

func (l *memLedger) Debit(_ context.Context, userID string, amount int64, txType, _ string) (*model.Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return nil, apperr.Precondition("debit", errInsufficient)
	}
	l.balances[userID] -= amount
	l.types = append(l.types, txType)
	return &model.Wallet{UserID: userID, Balance: l.balances[userID]}, nil
}

func (l *memLedger) AdjustBalance(_ context.Context, userID string, delta int64, txType, _ string) (*model.Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += delta
	l.types = append(l.types, txType)
	return &model.Wallet{UserID: userID, Balance: l.balances[userID]}, nil
}

type failingProvider struct{ err error }

func (p failingProvider) Payout(context.Context, PayoutRequest) (string, error) {
	return "", p.err
}

func testSettings() Settings {
	return Settings{
		CoinValue:      decimal.RequireFromString("0.01"),
		CommissionRate: decimal.RequireFromString("0.01"),
		MinCoins:       1000,
		Timeout:        time.Second,
	}
}

func TestQuote(t *testing.T) {
	svc := NewService(newMemRepo(), &memLedger{}, nil, testSettings())

	q := svc.Quote(1000)
	assert.Equal(t, "10.00", q.Gross.StringFixed(2))
	assert.Equal(t, "0.10", q.Commission.StringFixed(2))
	assert.Equal(t, "9.90", q.Net.StringFixed(2))

	q = svc.Quote(1234)
	assert.Equal(t, "12.34", q.Gross.StringFixed(2))
	assert.Equal(t, "0.12", q.Commission.StringFixed(2))
	assert.True(t, q.Net.Add(q.Commission).Equal(q.Gross))
}

func TestConvert_Simulation(t *testing.T) {
	repo := newMemRepo()
	ledger := &memLedger{balances: map[string]int64{"u1": 5000}}
	svc := NewService(repo, ledger, nil, testSettings())

	c, err := svc.Convert(context.Background(), "u1", 2000, "")
	require.NoError(t, err)
	assert.Equal(t, model.ConversionCompleted, c.Status)
	assert.Equal(t, model.SimulationDestination, c.Destination)
	assert.Equal(t, int64(3000), ledger.balances["u1"])
	assert.Equal(t, []model.ConversionStatus{
		model.ConversionPending, model.ConversionProcessing, model.ConversionCompleted,
	}, repo.history)

	got, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConversionCompleted, got.Status)
}

func TestConvert_Preconditions(t *testing.T) {
	repo := newMemRepo()
	ledger := &memLedger{balances: map[string]int64{"u1": 1500}}
	svc := NewService(repo, ledger, nil, testSettings())

	_, err := svc.Convert(context.Background(), "u1", 999, "")
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Empty(t, repo.records)

	c, err := svc.Convert(context.Background(), "u1", 2000, "")
	assert.ErrorIs(t, err, errInsufficient)
	require.NotNil(t, c)
	assert.Equal(t, model.ConversionFailed, c.Status)
	assert.Equal(t, int64(1500), ledger.balances["u1"])
}

func TestConvert_PayoutFailureKeepsDebit(t *testing.T) {
	ledger := &memLedger{balances: map[string]int64{"u1": 5000}}
	svc := NewService(newMemRepo(), ledger, failingProvider{errors.New("bank offline")}, testSettings())

	c, err := svc.Convert(context.Background(), "u1", 1000, "IBAN123")
	assert.ErrorIs(t, err, ErrPayoutFailed)
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))
	assert.Equal(t, model.ConversionFailed, c.Status)
	assert.Contains(t, c.FailureReason, "bank offline")
	assert.Equal(t, int64(4000), ledger.balances["u1"])
}

func TestConvert_PayoutFailureRefunds(t *testing.T) {
	ledger := &memLedger{balances: map[string]int64{"u1": 5000}}
	settings := testSettings()
	settings.RefundOnFailure = true
	svc := NewService(newMemRepo(), ledger, failingProvider{context.DeadlineExceeded}, settings)

	_, err := svc.Convert(context.Background(), "u1", 1000, "IBAN123")
	assert.True(t, apperr.IsTransient(err))
	assert.Equal(t, int64(5000), ledger.balances["u1"])
	assert.Equal(t, []string{model.TxTypeConversion, model.TxTypeRefund}, ledger.types)
}

func TestHTTPProvider(t *testing.T) {
	var got PayoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.Destination == "bad" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"unknown destination"}`))
			return
		}
		_, _ = w.Write([]byte(`{"reference":"PAY-1"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, time.Second)
	req := PayoutRequest{ID: uuid.New(), UserID: "u1", Amount: decimal.RequireFromString("9.90"), Currency: Currency, Destination: "IBAN"}

	ref, err := p.Payout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", ref)
	assert.True(t, got.Amount.Equal(req.Amount))

	req.Destination = "bad"
	_, err = p.Payout(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown destination")
}

func TestSimulationProvider(t *testing.T) {
	id := uuid.MustParse("12345678-9abc-def0-1234-56789abcdef0")
	ref, err := SimulationProvider{}.Payout(context.Background(), PayoutRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "SIM-12345678", ref)
}
