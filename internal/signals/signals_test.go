package signals

import (
	"context"
	"math"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/history"
)

type stubRepo struct {
	txs map[string][]*domain.Transaction
}

func (r *stubRepo) SaveTransaction(ctx context.Context, tx *domain.Transaction) error { return nil }
func (r *stubRepo) SaveTransactions(ctx context.Context, txs []*domain.Transaction) error {
	return nil
}
func (r *stubRepo) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return nil, nil
}
func (r *stubRepo) GetTransactionsByOrigin(ctx context.Context, originID string, limit int) ([]*domain.Transaction, error) {
	txs := r.txs[originID]
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}
func (r *stubRepo) Ping(ctx context.Context) error { return nil }
func (r *stubRepo) Close() error                   { return nil }

func historyOf(originID string, txs ...*domain.Transaction) *history.Service {
	return history.NewService(&stubRepo{txs: map[string][]*domain.Transaction{originID: txs}}, nil, 10)
}

func priorTx(originID string, txType domain.TxType, isFraud bool) *domain.Transaction {
	return &domain.Transaction{Type: txType, OriginID: originID, Amount: 100, IsFraud: isFraud}
}

func cashOut(originID string, amount, oldBalance float64) *domain.Transaction {
	return &domain.Transaction{
		ID:               "tx-1",
		Type:             domain.TypeCashOut,
		OriginID:         originID,
		OriginOldBalance: oldBalance,
		DestID:           "C999",
		Amount:           amount,
	}
}

func assertPoints(t *testing.T, c domain.SignalContribution, wantPoints float64) {
	t.Helper()
	got := c.Contribution()
	if math.Abs(got-wantPoints) > 1e-12 {
		t.Errorf("%s: contribution = %v, want %v points (raw %v, weight %v)",
			c.Signal, got, wantPoints, c.RawScore, c.Weight)
	}
}

func TestAccountBehaviorLadder(t *testing.T) {
	tests := []struct {
		name       string
		prior      []*domain.Transaction
		wantPoints float64
	}{
		{
			name:       "no history",
			prior:      nil,
			wantPoints: 2,
		},
		{
			name: "fraud rate above five percent",
			prior: []*domain.Transaction{
				priorTx("C1", domain.TypeTransfer, true),
				priorTx("C1", domain.TypePayment, false),
				priorTx("C1", domain.TypePayment, false),
				priorTx("C1", domain.TypePayment, false),
			},
			wantPoints: 2,
		},
		{
			name: "trusted high volume pattern",
			prior: []*domain.Transaction{
				priorTx("C1", domain.TypeTransfer, false),
				priorTx("C1", domain.TypeTransfer, false),
				priorTx("C1", domain.TypeCashOut, false),
				priorTx("C1", domain.TypeCashOut, false),
				priorTx("C1", domain.TypeCashOut, false),
				priorTx("C1", domain.TypePayment, false),
			},
			wantPoints: -2,
		},
		{
			name: "limited history",
			prior: []*domain.Transaction{
				priorTx("C1", domain.TypePayment, false),
				priorTx("C1", domain.TypePayment, false),
			},
			wantPoints: 1,
		},
		{
			name: "normal behavior",
			prior: []*domain.Transaction{
				priorTx("C1", domain.TypePayment, false),
				priorTx("C1", domain.TypePayment, false),
				priorTx("C1", domain.TypePayment, false),
				priorTx("C1", domain.TypeDebit, false),
			},
			wantPoints: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewAccountBehaviorProvider(historyOf("C1", tt.prior...), 0.40)

			c, err := provider.Compute(context.Background(), cashOut("C1", 1000, 5000))
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			if c.Signal != domain.SignalAccountBehavior {
				t.Errorf("signal = %s", c.Signal)
			}
			assertPoints(t, c, tt.wantPoints)
			if c.Rationale == "" {
				t.Error("expected non-empty rationale")
			}
		})
	}
}

func TestBalanceAnomalyTiers(t *testing.T) {
	provider := NewBalanceAnomalyProvider(0.40)

	tests := []struct {
		name       string
		amount     float64
		oldBalance float64
		wantPoints float64
	}{
		{"severe", 25000, 10000, 2},
		{"moderate", 16000, 10000, 1},
		{"mild", 10500, 10000, 0.5},
		{"within balance", 5000, 10000, 0},
		{"exactly at balance", 10000, 10000, 0},
		{"at double balance boundary", 20000, 10000, 1},
		{"zero balance cannot assess", 5000, 0, 0},
		{"negative balance cannot assess", 5000, -100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := provider.Compute(context.Background(), cashOut("C1", tt.amount, tt.oldBalance))
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			assertPoints(t, c, tt.wantPoints)
		})
	}
}

func TestDestinationTypeMerchant(t *testing.T) {
	provider, err := NewDestinationTypeProvider(domain.DefaultMerchantExpr, 0.10)
	if err != nil {
		t.Fatalf("NewDestinationTypeProvider failed: %v", err)
	}

	tests := []struct {
		destID     string
		wantPoints float64
	}{
		{"M1979787155", -1},
		{"C553264065", 0},
		{"X12345", 0},
	}

	for _, tt := range tests {
		t.Run(tt.destID, func(t *testing.T) {
			tx := cashOut("C1", 1000, 5000)
			tx.DestID = tt.destID

			c, err := provider.Compute(context.Background(), tx)
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			assertPoints(t, c, tt.wantPoints)
		})
	}
}

func TestDestinationTypeRejectsBadExpression(t *testing.T) {
	if _, err := NewDestinationTypeProvider(`amount + 1.0`, 0.10); err == nil {
		t.Fatal("expected error for non-bool predicate")
	}
	if _, err := NewDestinationTypeProvider(`dest_id.`, 0.10); err == nil {
		t.Fatal("expected error for malformed predicate")
	}
}

func TestAmountContextThreshold(t *testing.T) {
	provider, err := NewAmountContextProvider(domain.DefaultLargeAmountExpr, 0.10)
	if err != nil {
		t.Fatalf("NewAmountContextProvider failed: %v", err)
	}

	tests := []struct {
		name       string
		amount     float64
		wantPoints float64
	}{
		{"large", 500000, 0.5},
		{"just above threshold", 300001, 0.5},
		{"at threshold", 300000, 0},
		{"small", 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := provider.Compute(context.Background(), cashOut("C1", tt.amount, 1e9))
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			assertPoints(t, c, tt.wantPoints)
		})
	}
}

func TestResolverRequiresAllSignals(t *testing.T) {
	hist := historyOf("C1")
	partial := []Provider{
		NewAccountBehaviorProvider(hist, 0.40),
		NewBalanceAnomalyProvider(0.40),
	}

	if _, err := NewResolver(partial, 4); err == nil {
		t.Fatal("expected error for missing providers")
	}
}

func TestResolverResolvesInOrder(t *testing.T) {
	cfg := domain.DefaultConfig()
	resolver, err := NewDefaultResolver(cfg, historyOf("C1"))
	if err != nil {
		t.Fatalf("NewDefaultResolver failed: %v", err)
	}

	contributions, err := resolver.Resolve(context.Background(), cashOut("C1", 1000, 5000))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(contributions) != len(domain.SignalOrder) {
		t.Fatalf("got %d contributions, want %d", len(contributions), len(domain.SignalOrder))
	}
	for i, name := range domain.SignalOrder {
		if contributions[i].Signal != name {
			t.Errorf("position %d: signal = %s, want %s", i, contributions[i].Signal, name)
		}
	}
}

func TestResolverDeterministic(t *testing.T) {
	cfg := domain.DefaultConfig()
	resolver, err := NewDefaultResolver(cfg, historyOf("C1",
		priorTx("C1", domain.TypeTransfer, false),
		priorTx("C1", domain.TypeCashOut, false),
	))
	if err != nil {
		t.Fatalf("NewDefaultResolver failed: %v", err)
	}

	tx := cashOut("C1", 400000, 100000)

	first, err := resolver.Resolve(context.Background(), tx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := resolver.Resolve(context.Background(), tx)
		if err != nil {
			t.Fatalf("Resolve failed on run %d: %v", i, err)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d diverged at signal %s: %+v vs %+v", i, first[j].Signal, again[j], first[j])
			}
		}
	}
}
