package service

import (
	"context"
	"fmt"
	"sync"

	"betting-platform/internal/model"
)

// memDB is an in-memory store used by the engine tests. WithinTx serializes
// transactions with a mutex and restores a pre-transaction snapshot on
// error, so atomicity and the exactly-once properties can be exercised
// without a database.
type memDB struct {
	mu sync.Mutex

	users       map[int64]*model.User
	deposits    map[int64]*model.DepositRequest
	withdrawals map[int64]*model.WithdrawalRequest
	bets        map[int64]*model.Bet
	ledger      map[int64]*model.LedgerEntry

	nextDepositID    int64
	nextWithdrawalID int64
	nextBetID        int64
	nextLedgerID     int64
}

func newMemDB() *memDB {
	return &memDB{
		users:       make(map[int64]*model.User),
		deposits:    make(map[int64]*model.DepositRequest),
		withdrawals: make(map[int64]*model.WithdrawalRequest),
		bets:        make(map[int64]*model.Bet),
		ledger:      make(map[int64]*model.LedgerEntry),
	}
}

var _ Transactor = (*memDB)(nil)

func (db *memDB) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	snap := db.snapshot()
	if err := fn(&memTx{db: db}); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	users       map[int64]*model.User
	deposits    map[int64]*model.DepositRequest
	withdrawals map[int64]*model.WithdrawalRequest
	bets        map[int64]*model.Bet
	ledger      map[int64]*model.LedgerEntry

	nextDepositID    int64
	nextWithdrawalID int64
	nextBetID        int64
	nextLedgerID     int64
}

func (db *memDB) snapshot() memSnapshot {
	s := memSnapshot{
		users:            make(map[int64]*model.User, len(db.users)),
		deposits:         make(map[int64]*model.DepositRequest, len(db.deposits)),
		withdrawals:      make(map[int64]*model.WithdrawalRequest, len(db.withdrawals)),
		bets:             make(map[int64]*model.Bet, len(db.bets)),
		ledger:           make(map[int64]*model.LedgerEntry, len(db.ledger)),
		nextDepositID:    db.nextDepositID,
		nextWithdrawalID: db.nextWithdrawalID,
		nextBetID:        db.nextBetID,
		nextLedgerID:     db.nextLedgerID,
	}
	for id, u := range db.users {
		cp := *u
		s.users[id] = &cp
	}
	for id, d := range db.deposits {
		cp := *d
		s.deposits[id] = &cp
	}
	for id, w := range db.withdrawals {
		cp := *w
		s.withdrawals[id] = &cp
	}
	for id, b := range db.bets {
		cp := *b
		s.bets[id] = &cp
	}
	for id, e := range db.ledger {
		cp := *e
		s.ledger[id] = &cp
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.users = s.users
	db.deposits = s.deposits
	db.withdrawals = s.withdrawals
	db.bets = s.bets
	db.ledger = s.ledger
	db.nextDepositID = s.nextDepositID
	db.nextWithdrawalID = s.nextWithdrawalID
	db.nextBetID = s.nextBetID
	db.nextLedgerID = s.nextLedgerID
}

// seedUser registers a user outside of any transaction.
func (db *memDB) seedUser(id int64, balance int64) *model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := &model.User{
		ID:       id,
		Username: fmt.Sprintf("user%d", id),
		Email:    fmt.Sprintf("user%d@example.com", id),
		Balance:  balance,
	}
	db.users[id] = u
	return u
}

// seedBet registers a pending bet outside of any transaction.
func (db *memDB) seedBet(userID, stake, potentialWin int64) *model.Bet {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextBetID++
	b := &model.Bet{
		ID:           db.nextBetID,
		UserID:       userID,
		Stake:        stake,
		PotentialWin: potentialWin,
		Status:       model.BetPending,
	}
	db.bets[b.ID] = b
	return b
}

// balance reads a user balance outside of any transaction.
func (db *memDB) balance(id int64) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[id].Balance
}

// replayBalance reconstructs a user's balance from the ledger.
func (db *memDB) replayBalance(userID int64) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	var total int64
	for _, e := range db.ledger {
		if e.UserID == userID {
			total += e.SignedAmount()
		}
	}
	return total
}

// ledgerEntries returns the ledger entries for one source request.
func (db *memDB) ledgerEntries(t model.LedgerType, sourceID int64) []*model.LedgerEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.LedgerEntry
	for _, e := range db.ledger {
		if e.Type == t && e.SourceID == sourceID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

type memTx struct {
	db *memDB
}

var _ Tx = (*memTx)(nil)

func (t *memTx) Users() UserStore             { return &memUsers{db: t.db} }
func (t *memTx) Deposits() DepositStore       { return &memDeposits{db: t.db} }
func (t *memTx) Withdrawals() WithdrawalStore { return &memWithdrawals{db: t.db} }
func (t *memTx) Bets() BetStore               { return &memBets{db: t.db} }
func (t *memTx) Ledger() LedgerStore          { return &memLedger{db: t.db} }

type memUsers struct {
	db *memDB
}

func (s *memUsers) GetForUpdate(_ context.Context, id int64) (*model.User, error) {
	u, ok := s.db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) Credit(_ context.Context, id int64, amount int64) (*model.User, error) {
	u, ok := s.db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	u.Balance += amount
	cp := *u
	return &cp, nil
}

func (s *memUsers) Debit(_ context.Context, id int64, amount int64) (*model.User, error) {
	u, ok := s.db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if u.Balance < amount {
		return nil, fmt.Errorf("user %d: %w", id, ErrInsufficientFunds)
	}
	u.Balance -= amount
	cp := *u
	return &cp, nil
}

func (s *memUsers) DebitClamped(_ context.Context, id int64, amount int64) (*model.User, error) {
	u, ok := s.db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if amount > u.Balance {
		amount = u.Balance
	}
	u.Balance -= amount
	cp := *u
	return &cp, nil
}

func (s *memUsers) AddWinnings(_ context.Context, id int64, amount int64) error {
	u, ok := s.db.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	u.TotalWinnings += amount
	return nil
}

type memDeposits struct {
	db *memDB
}

func (s *memDeposits) Create(_ context.Context, req *model.DepositRequest) (*model.DepositRequest, error) {
	s.db.nextDepositID++
	cp := *req
	cp.ID = s.db.nextDepositID
	cp.Status = model.NormalizeDepositStatus(string(cp.Status))
	s.db.deposits[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memDeposits) GetForUpdate(_ context.Context, id int64) (*model.DepositRequest, error) {
	d, ok := s.db.deposits[id]
	if !ok {
		return nil, fmt.Errorf("deposit %d: %w", id, ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *memDeposits) Update(_ context.Context, req *model.DepositRequest) error {
	if _, ok := s.db.deposits[req.ID]; !ok {
		return fmt.Errorf("deposit %d: %w", req.ID, ErrNotFound)
	}
	cp := *req
	cp.Status = model.NormalizeDepositStatus(string(cp.Status))
	s.db.deposits[req.ID] = &cp
	return nil
}

type memWithdrawals struct {
	db *memDB
}

func (s *memWithdrawals) Create(_ context.Context, req *model.WithdrawalRequest) (*model.WithdrawalRequest, error) {
	s.db.nextWithdrawalID++
	cp := *req
	cp.ID = s.db.nextWithdrawalID
	s.db.withdrawals[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memWithdrawals) GetForUpdate(_ context.Context, id int64) (*model.WithdrawalRequest, error) {
	w, ok := s.db.withdrawals[id]
	if !ok {
		return nil, fmt.Errorf("withdrawal %d: %w", id, ErrNotFound)
	}
	cp := *w
	return &cp, nil
}

func (s *memWithdrawals) Update(_ context.Context, req *model.WithdrawalRequest) error {
	if _, ok := s.db.withdrawals[req.ID]; !ok {
		return fmt.Errorf("withdrawal %d: %w", req.ID, ErrNotFound)
	}
	cp := *req
	s.db.withdrawals[req.ID] = &cp
	return nil
}

type memBets struct {
	db *memDB
}

func (s *memBets) Create(_ context.Context, bet *model.Bet) (*model.Bet, error) {
	s.db.nextBetID++
	cp := *bet
	cp.ID = s.db.nextBetID
	s.db.bets[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memBets) GetForUpdate(_ context.Context, id int64) (*model.Bet, error) {
	b, ok := s.db.bets[id]
	if !ok {
		return nil, fmt.Errorf("bet %d: %w", id, ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (s *memBets) Update(_ context.Context, bet *model.Bet) error {
	if _, ok := s.db.bets[bet.ID]; !ok {
		return fmt.Errorf("bet %d: %w", bet.ID, ErrNotFound)
	}
	cp := *bet
	s.db.bets[bet.ID] = &cp
	return nil
}

type memLedger struct {
	db *memDB
}

func (s *memLedger) Create(_ context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	for _, e := range s.db.ledger {
		if e.TransactionID == entry.TransactionID {
			return nil, fmt.Errorf("duplicate transaction id %s", entry.TransactionID)
		}
	}
	s.db.nextLedgerID++
	cp := *entry
	cp.ID = s.db.nextLedgerID
	s.db.ledger[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memLedger) GetBySource(_ context.Context, t model.LedgerType, sourceID int64) (*model.LedgerEntry, error) {
	for _, e := range s.db.ledger {
		if e.Type == t && e.SourceID == sourceID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("ledger entry for %s/%d: %w", t, sourceID, ErrNotFound)
}

func (s *memLedger) SetStatus(_ context.Context, id int64, status model.LedgerStatus, description string) error {
	e, ok := s.db.ledger[id]
	if !ok {
		return fmt.Errorf("ledger entry %d: %w", id, ErrNotFound)
	}
	e.Status = status
	if description != "" {
		e.Description = description
	}
	return nil
}

// memResolver resolves identifiers against the in-memory user set the same
// way the store resolver does.
type memResolver struct {
	db *memDB
}

var _ UserResolver = (*memResolver)(nil)

func (r *memResolver) Resolve(_ context.Context, ident Identifier) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var matches []*model.User
	for _, u := range r.db.users {
		switch ident.Kind {
		case IdentifierID:
			if fmt.Sprintf("%d", u.ID) == ident.Value {
				matches = append(matches, u)
			}
		case IdentifierEmail:
			if u.Email == ident.Value {
				matches = append(matches, u)
			}
		case IdentifierUsername:
			if u.Username == ident.Value {
				matches = append(matches, u)
			}
		default:
			return nil, fmt.Errorf("%w: unknown identifier kind %q", ErrAmbiguousIdentifier, ident.Kind)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("user %s: %w", ident.Value, ErrNotFound)
	case 1:
		cp := *matches[0]
		return &cp, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousIdentifier, ident.Value)
	}
}
