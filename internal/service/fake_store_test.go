package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/util"
	"finflow-ledger/pkg/db"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fakeData is the in-memory state of fakeStore. Values, not pointers, so clone is a deep copy.
type fakeData struct {
	wallets     map[int64]domain.Wallet // keyed by user
	entries     []domain.Transaction
	deposits    map[int64]domain.DepositRequest
	withdrawals map[int64]domain.WithdrawalRequest
	plans       map[int64]domain.InvestmentPlan
	investments map[int64]domain.UserInvestment
}

func (d fakeData) clone() fakeData {
	c := fakeData{
		wallets:     make(map[int64]domain.Wallet, len(d.wallets)),
		entries:     append([]domain.Transaction(nil), d.entries...),
		deposits:    make(map[int64]domain.DepositRequest, len(d.deposits)),
		withdrawals: make(map[int64]domain.WithdrawalRequest, len(d.withdrawals)),
		plans:       make(map[int64]domain.InvestmentPlan, len(d.plans)),
		investments: make(map[int64]domain.UserInvestment, len(d.investments)),
	}
	for k, v := range d.wallets {
		c.wallets[k] = v
	}
	for k, v := range d.deposits {
		c.deposits[k] = v
	}
	for k, v := range d.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range d.plans {
		c.plans[k] = v
	}
	for k, v := range d.investments {
		c.investments[k] = v
	}
	return c
}

// fakeStore implements every repository in memory. Transactions are serialized by txMu, which
// stands in for row locks, and a rollback restores the state captured at begin.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	data   fakeData
	nextID int64

	// collisions makes the next n CreateTransaction calls report a taken reference.
	collisions int
	// failEntriesFor makes CreateTransaction fail for a user.
	failEntriesFor map[int64]error
	// failInvestments makes GetInvestmentForUpdate fail for a position.
	failInvestments map[int64]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data: fakeData{
			wallets:     map[int64]domain.Wallet{},
			deposits:    map[int64]domain.DepositRequest{},
			withdrawals: map[int64]domain.WithdrawalRequest{},
			plans:       map[int64]domain.InvestmentPlan{},
			investments: map[int64]domain.UserInvestment{},
		},
		failEntriesFor:  map[int64]error{},
		failInvestments: map[int64]error{},
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

// fakeExecutor satisfies repository.DBExecutor. The fake repositories never call it.
type fakeExecutor struct{}

func (fakeExecutor) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errors.New("fake executor: not supported")
}

func (fakeExecutor) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errors.New("fake executor: not supported")
}

func (fakeExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("fake executor: not supported")
}

func (fakeExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

type fakeTx struct {
	fakeExecutor
	store    *fakeStore
	snapshot fakeData
	done     bool
}

func (t *fakeTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.mu.Lock()
	t.store.data = t.snapshot
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

func (s *fakeStore) txManager() db.TxManager {
	return db.TxManager{
		Begin: func(ctx context.Context, _ db.DBTxBeginner) (db.TxController, error) {
			s.txMu.Lock()
			s.mu.Lock()
			defer s.mu.Unlock()
			return &fakeTx{store: s, snapshot: s.data.clone()}, nil
		},
		Commit:   db.CommitTx,
		Rollback: db.RollbackTx,
	}
}

// Wallets

func (s *fakeStore) EnsureWallet(_ context.Context, _ repository.DBExecutor, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.wallets[userID]; !ok {
		w := domain.NewWallet(userID)
		w.ID = s.id()
		s.data.wallets[userID] = *w
	}
	return nil
}

func (s *fakeStore) GetWalletByUserID(_ context.Context, _ repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.data.wallets[userID]
	if !ok {
		return nil, util.ErrWalletNotFound
	}
	return &w, nil
}

func (s *fakeStore) GetWalletByUserIDForUpdate(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	return s.GetWalletByUserID(ctx, q, userID)
}

func (s *fakeStore) walletByID(walletID int64) (int64, domain.Wallet, bool) {
	for userID, w := range s.data.wallets {
		if w.ID == walletID {
			return userID, w, true
		}
	}
	return 0, domain.Wallet{}, false
}

func (s *fakeStore) CreditWallet(_ context.Context, _ repository.DBExecutor, walletID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, w, ok := s.walletByID(walletID)
	if !ok {
		return decimal.Zero, util.ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(amount)
	s.data.wallets[userID] = w
	return w.Balance, nil
}

func (s *fakeStore) DebitWallet(_ context.Context, _ repository.DBExecutor, walletID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, w, ok := s.walletByID(walletID)
	if !ok {
		return decimal.Zero, util.ErrWalletNotFound
	}
	if w.Balance.LessThan(amount) {
		return decimal.Zero, util.ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	s.data.wallets[userID] = w
	return w.Balance, nil
}

// Ledger

func (s *fakeStore) CreateTransaction(_ context.Context, _ repository.DBExecutor, transaction *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collisions > 0 {
		s.collisions--
		return util.ErrDuplicateEntry
	}
	if err := s.failEntriesFor[transaction.UserID]; err != nil {
		return err
	}
	for _, e := range s.data.entries {
		if e.Reference == transaction.Reference {
			return util.ErrDuplicateEntry
		}
	}
	transaction.ID = s.id()
	s.data.entries = append(s.data.entries, *transaction)
	return nil
}

func (s *fakeStore) ListTransactions(_ context.Context, _ repository.DBExecutor, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []domain.Transaction{}
	for i := len(s.data.entries) - 1; i >= 0; i-- {
		e := s.data.entries[i]
		if filter.UserID != 0 && e.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && e.TransactionType != filter.Type {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Reference), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	if filter.Offset > 0 && filter.Offset < len(matched) {
		matched = matched[filter.Offset:]
	} else if filter.Offset >= len(matched) && filter.Offset > 0 {
		matched = []domain.Transaction{}
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *fakeStore) ListTransactionsByUserChronological(_ context.Context, _ repository.DBExecutor, userID int64) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := []domain.Transaction{}
	for _, e := range s.data.entries {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *fakeStore) GetLatestTransaction(_ context.Context, _ repository.DBExecutor, userID int64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.data.entries) - 1; i >= 0; i-- {
		if e := s.data.entries[i]; e.UserID == userID {
			return &e, nil
		}
	}
	return nil, util.ErrNotFound
}

// entriesFor returns a user's ledger entries oldest first.
func (s *fakeStore) entriesFor(userID int64) []domain.Transaction {
	entries, _ := s.ListTransactionsByUserChronological(context.Background(), nil, userID)
	return entries
}

func (s *fakeStore) balanceOf(userID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.wallets[userID].Balance
}

// Deposit requests

func (s *fakeStore) CreateDeposit(_ context.Context, _ repository.DBExecutor, deposit *domain.DepositRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit.ID = s.id()
	s.data.deposits[deposit.ID] = *deposit
	return nil
}

func (s *fakeStore) GetDepositForUpdate(_ context.Context, _ repository.DBExecutor, id int64) (*domain.DepositRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data.deposits[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &d, nil
}

func (s *fakeStore) UpdateDepositStatus(_ context.Context, _ repository.DBExecutor, id int64, status domain.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data.deposits[id]
	if !ok {
		return util.ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	s.data.deposits[id] = d
	return nil
}

func (s *fakeStore) ListDepositsByUser(_ context.Context, _ repository.DBExecutor, userID int64) ([]domain.DepositRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposits := []domain.DepositRequest{}
	for _, d := range s.data.deposits {
		if d.UserID == userID {
			deposits = append(deposits, d)
		}
	}
	sort.Slice(deposits, func(i, j int) bool { return deposits[i].ID > deposits[j].ID })
	return deposits, nil
}

func (s *fakeStore) SumApprovedDeposits(_ context.Context, _ repository.DBExecutor, userID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, d := range s.data.deposits {
		if d.UserID == userID && d.Status == domain.RequestStatusApproved {
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

// Withdrawal requests

func (s *fakeStore) CreateWithdrawal(_ context.Context, _ repository.DBExecutor, withdrawal *domain.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	withdrawal.ID = s.id()
	s.data.withdrawals[withdrawal.ID] = *withdrawal
	return nil
}

func (s *fakeStore) GetWithdrawalForUpdate(_ context.Context, _ repository.DBExecutor, id int64) (*domain.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.data.withdrawals[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &w, nil
}

func (s *fakeStore) UpdateWithdrawalStatus(_ context.Context, _ repository.DBExecutor, id int64, status domain.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.data.withdrawals[id]
	if !ok {
		return util.ErrNotFound
	}
	w.Status = status
	w.UpdatedAt = time.Now().UTC()
	s.data.withdrawals[id] = w
	return nil
}

func (s *fakeStore) ListWithdrawalsByUser(_ context.Context, _ repository.DBExecutor, userID int64) ([]domain.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	withdrawals := []domain.WithdrawalRequest{}
	for _, w := range s.data.withdrawals {
		if w.UserID == userID {
			withdrawals = append(withdrawals, w)
		}
	}
	sort.Slice(withdrawals, func(i, j int) bool { return withdrawals[i].ID > withdrawals[j].ID })
	return withdrawals, nil
}

func (s *fakeStore) SumApprovedWithdrawals(_ context.Context, _ repository.DBExecutor, userID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, w := range s.data.withdrawals {
		if w.UserID == userID && w.Status == domain.RequestStatusApproved {
			total = total.Add(w.Amount)
		}
	}
	return total, nil
}

// Plans

func (s *fakeStore) ListPlans(_ context.Context, _ repository.DBExecutor) ([]domain.InvestmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plans := []domain.InvestmentPlan{}
	for _, p := range s.data.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

func (s *fakeStore) GetPlanByID(_ context.Context, _ repository.DBExecutor, id int64) (*domain.InvestmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.plans[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) UpsertPlan(_ context.Context, _ repository.DBExecutor, plan *domain.InvestmentPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.data.plans {
		if p.Name == plan.Name {
			plan.ID = id
			s.data.plans[id] = *plan
			return nil
		}
	}
	plan.ID = s.id()
	s.data.plans[plan.ID] = *plan
	return nil
}

// Investments

func (s *fakeStore) CreateInvestment(_ context.Context, _ repository.DBExecutor, investment *domain.UserInvestment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	investment.ID = s.id()
	s.data.investments[investment.ID] = *investment
	return nil
}

func (s *fakeStore) GetInvestmentByID(_ context.Context, _ repository.DBExecutor, id int64) (*domain.UserInvestment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.data.investments[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &i, nil
}

func (s *fakeStore) GetInvestmentForUpdate(ctx context.Context, q repository.DBExecutor, id int64) (*domain.UserInvestment, error) {
	s.mu.Lock()
	err := s.failInvestments[id]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.GetInvestmentByID(ctx, q, id)
}

func (s *fakeStore) ListInvestmentsByUser(_ context.Context, _ repository.DBExecutor, userID int64, status domain.InvestmentStatus) ([]domain.UserInvestment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	investments := []domain.UserInvestment{}
	for _, i := range s.data.investments {
		if i.UserID == userID && (status == "" || i.Status == status) {
			investments = append(investments, i)
		}
	}
	sort.Slice(investments, func(a, b int) bool { return investments[a].ID > investments[b].ID })
	return investments, nil
}

func (s *fakeStore) ListExpiredInvestmentIDs(_ context.Context, _ repository.DBExecutor, now time.Time, afterID int64, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []int64{}
	for id, i := range s.data.investments {
		if id > afterID && i.IsExpired(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *fakeStore) MarkInvestmentCompleted(_ context.Context, _ repository.DBExecutor, id int64, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.data.investments[id]
	if !ok || i.Status != domain.InvestmentStatusActive {
		return false, nil
	}
	i.Status = domain.InvestmentStatusCompleted
	i.CompletedAt = &completedAt
	s.data.investments[id] = i
	return true, nil
}

func (s *fakeStore) SumCompletedProfit(_ context.Context, _ repository.DBExecutor, userID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, i := range s.data.investments {
		if i.UserID == userID && i.Status == domain.InvestmentStatusCompleted {
			total = total.Add(i.ExpectedProfit)
		}
	}
	return total, nil
}

func (s *fakeStore) SumActivePrincipal(_ context.Context, _ repository.DBExecutor, userID int64) (decimal.Decimal, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, count := decimal.Zero, 0
	for _, i := range s.data.investments {
		if i.UserID == userID && i.Status == domain.InvestmentStatusActive {
			total = total.Add(i.Amount)
			count++
		}
	}
	return total, count, nil
}

// testEnv wires every service to one fakeStore.
type testEnv struct {
	store       *fakeStore
	wallets     WalletService
	requests    RequestService
	investments InvestmentService
	overview    OverviewService
}

var minDeposit = decimal.NewFromInt(10)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	tx := store.txManager()
	logger := zap.NewNop()
	q := fakeExecutor{}

	return &testEnv{
		store:       store,
		wallets:     NewWalletService(q, tx, store, store, logger),
		requests:    NewRequestService(q, tx, store, store, store, store, minDeposit, logger),
		investments: NewInvestmentService(q, tx, store, store, store, store, 2, logger),
		overview:    NewOverviewService(q, store, store, store, store, store),
	}
}

// fund credits a wallet through a manual adjustment so the ledger stays reconciled.
func (e *testEnv) fund(t *testing.T, userID int64, amount string) {
	t.Helper()
	_, _, err := e.wallets.AdjustBalance(context.Background(), userID, domain.TransactionTypeManualCredit,
		decimal.RequireFromString(amount), "test funding")
	if err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
}

func (e *testEnv) addPlan(t *testing.T, plan domain.InvestmentPlan) *domain.InvestmentPlan {
	t.Helper()
	if err := e.store.UpsertPlan(context.Background(), nil, &plan); err != nil {
		t.Fatalf("add plan: %v", err)
	}
	return &plan
}

// requireReconciled asserts that replaying the user's ledger reproduces the wallet balance.
func (e *testEnv) requireReconciled(t *testing.T, userID int64) {
	t.Helper()
	report, err := e.wallets.Reconcile(context.Background(), userID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("ledger %s does not match balance %s", report.LedgerBalance, report.Balance)
	}
}
