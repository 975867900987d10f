package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

type captureRepo struct {
	batches [][]*domain.Transaction
	failOn  int // fail on the nth batch (1-based), 0 disables
}

func (r *captureRepo) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	return r.SaveTransactions(ctx, []*domain.Transaction{tx})
}

func (r *captureRepo) SaveTransactions(ctx context.Context, txs []*domain.Transaction) error {
	if r.failOn > 0 && len(r.batches)+1 == r.failOn {
		return errors.New("storage unavailable")
	}
	batch := make([]*domain.Transaction, len(txs))
	copy(batch, txs)
	r.batches = append(r.batches, batch)
	return nil
}

func (r *captureRepo) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (r *captureRepo) GetTransactionsByOrigin(ctx context.Context, originID string, limit int) ([]*domain.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (r *captureRepo) Ping(ctx context.Context) error { return nil }
func (r *captureRepo) Close() error                   { return nil }

func (r *captureRepo) all() []*domain.Transaction {
	var out []*domain.Transaction
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

const paysimHeader = "step,type,amount,nameOrig,oldbalanceOrg,newbalanceOrig,nameDest,oldbalanceDest,newbalanceDest,isFraud,isFlaggedFraud\n"

func TestImportParsesRows(t *testing.T) {
	csv := paysimHeader +
		"1,TRANSFER,1000.0,C100,10000.0,9000.0,C200,0.0,1000.0,0,0\n" +
		"2,CASH_OUT,350000.0,C842,350000.0,0.0,C555,0.0,350000.0,1,1\n"

	repo := &captureRepo{}
	imp := NewImporter(repo, nil)

	stats, err := imp.Import(context.Background(), strings.NewReader(csv), Options{})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if stats.Read != 2 || stats.Imported != 2 || stats.Fraud != 1 {
		t.Errorf("stats = %+v", stats)
	}

	txs := repo.all()
	if len(txs) != 2 {
		t.Fatalf("stored %d transactions, want 2", len(txs))
	}

	first := txs[0]
	if first.Type != domain.TypeTransfer || first.OriginID != "C100" || first.Amount != 1000 {
		t.Errorf("first row = %+v", first)
	}
	if first.OriginOldBalance != 10000 || first.OriginNewBalance != 9000 {
		t.Errorf("first row balances = %.1f/%.1f", first.OriginOldBalance, first.OriginNewBalance)
	}
	if first.ID == "" {
		t.Error("imported row missing generated ID")
	}

	second := txs[1]
	if !second.IsFraud {
		t.Error("fraud label not carried through")
	}
	if second.DestNewBalance != 350000 {
		t.Errorf("dest new balance = %.1f", second.DestNewBalance)
	}
}

func TestImportSkipsMalformedRows(t *testing.T) {
	csv := paysimHeader +
		"1,TRANSFER,1000.0,C100,10000.0,9000.0,C200,0.0,0.0,0,0\n" +
		"2,BOGUS_TYPE,500.0,C101,100.0,0.0,C201,0.0,0.0,0,0\n" +
		"notanumber,CASH_OUT,500.0,C102,100.0,0.0,C202,0.0,0.0,0,0\n" +
		"3,CASH_IN,500.0,C103,100.0,600.0,C203,0.0,0.0,0,0\n"

	repo := &captureRepo{}
	stats, err := NewImporter(repo, nil).Import(context.Background(), strings.NewReader(csv), Options{})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if stats.Imported != 2 {
		t.Errorf("imported = %d, want 2", stats.Imported)
	}
	if stats.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", stats.Skipped)
	}
}

func TestImportBatching(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(paysimHeader)
	for i := 0; i < 7; i++ {
		sb.WriteString("1,PAYMENT,500.0,C1,1000.0,500.0,M1,0.0,0.0,0,0\n")
	}

	repo := &captureRepo{}
	stats, err := NewImporter(repo, nil).Import(context.Background(), strings.NewReader(sb.String()), Options{BatchSize: 3})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if stats.Imported != 7 {
		t.Errorf("imported = %d, want 7", stats.Imported)
	}
	if len(repo.batches) != 3 {
		t.Errorf("batches = %d, want 3 (3+3+1)", len(repo.batches))
	}
}

func TestImportFraudOnly(t *testing.T) {
	csv := paysimHeader +
		"1,TRANSFER,1000.0,C100,10000.0,9000.0,C200,0.0,0.0,0,0\n" +
		"2,CASH_OUT,350000.0,C842,350000.0,0.0,C555,0.0,0.0,1,1\n" +
		"3,TRANSFER,1000.0,C101,10000.0,9000.0,C201,0.0,0.0,0,0\n"

	repo := &captureRepo{}
	stats, err := NewImporter(repo, nil).Import(context.Background(), strings.NewReader(csv), Options{FraudOnly: true})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if stats.Imported != 1 || stats.Fraud != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := repo.all(); len(got) != 1 || !got[0].IsFraud {
		t.Errorf("stored = %+v", got)
	}
}

func TestImportLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(paysimHeader)
	for i := 0; i < 20; i++ {
		sb.WriteString("1,PAYMENT,500.0,C1,1000.0,500.0,M1,0.0,0.0,0,0\n")
	}

	repo := &captureRepo{}
	stats, err := NewImporter(repo, nil).Import(context.Background(), strings.NewReader(sb.String()), Options{Limit: 5, BatchSize: 2})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if stats.Imported != 5 {
		t.Errorf("imported = %d, want 5", stats.Imported)
	}
}

func TestImportRejectsMissingColumns(t *testing.T) {
	csv := "step,type,amount\n1,TRANSFER,100.0\n"

	_, err := NewImporter(&captureRepo{}, nil).Import(context.Background(), strings.NewReader(csv), Options{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("err = %v, want ErrMissingColumn", err)
	}
}

func TestImportPropagatesStorageError(t *testing.T) {
	csv := paysimHeader +
		"1,TRANSFER,1000.0,C100,10000.0,9000.0,C200,0.0,0.0,0,0\n"

	repo := &captureRepo{failOn: 1}
	_, err := NewImporter(repo, nil).Import(context.Background(), strings.NewReader(csv), Options{})
	if err == nil {
		t.Fatal("expected error from failing repository")
	}
}
