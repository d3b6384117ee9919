/*
Package memory provides an in-memory plan.Store for tests, mirroring the
teacher's generic/store/memory.go: a mutex-guarded set of slices/maps
simulating a small relational store without a real database.
*/
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kvaranth/dayclock/plan"
)

type Store struct {
	mu sync.Mutex

	plans     map[string]*plan.DayPlan // key: userID+"|"+date
	plansByID map[string]*plan.DayPlan
	tasks     map[plan.TaskID]*plan.Task
	settings  map[string]*plan.Settings
	balances  map[string]*plan.CoinBalance
	rewards   map[string]*plan.Reward
	txs       []plan.CoinTransaction
}

func New() *Store {
	return &Store{
		plans:     make(map[string]*plan.DayPlan),
		plansByID: make(map[string]*plan.DayPlan),
		tasks:     make(map[plan.TaskID]*plan.Task),
		settings:  make(map[string]*plan.Settings),
		balances:  make(map[string]*plan.CoinBalance),
		rewards:   make(map[string]*plan.Reward),
	}
}

// SeedReward registers a reward the purchase flow can read — the only
// write path this package exposes for the shop catalog, since catalog
// management is external to the core.
func (s *Store) SeedReward(r plan.Reward) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.rewards[r.ID] = &cp
}

func key(userID, date string) string { return userID + "|" + date }

func (s *Store) GetOrCreateDayPlan(ctx context.Context, userID, date string) (*plan.DayPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dp, ok := s.plans[key(userID, date)]; ok {
		return cloneDayPlan(dp), nil
	}
	dp := &plan.DayPlan{ID: uuid.New().String(), UserID: userID, Date: date}
	s.plans[key(userID, date)] = dp
	s.plansByID[dp.ID] = dp
	return cloneDayPlan(dp), nil
}

func (s *Store) GetDayPlan(ctx context.Context, userID, date string) (*plan.DayPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dp, ok := s.plans[key(userID, date)]
	if !ok {
		return nil, nil
	}
	return cloneDayPlan(dp), nil
}

func cloneDayPlan(dp *plan.DayPlan) *plan.DayPlan {
	cp := *dp
	cp.Tasks = append([]plan.Task(nil), dp.Tasks...)
	return &cp
}

func (s *Store) SaveDayPlanTotals(ctx context.Context, planID string, procrastinationUsed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dp, ok := s.plansByID[planID]
	if !ok {
		return plan.ErrNotFound
	}
	dp.ProcrastinationUsed = procrastinationUsed
	return nil
}

func (s *Store) FinalizeDayPlan(ctx context.Context, planID string, bonus, penalty, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dp, ok := s.plansByID[planID]
	if !ok {
		return plan.ErrNotFound
	}
	dp.DayBonus = bonus
	dp.DayPenalty = penalty
	dp.DayTotal = total
	dp.DayFinalized = true
	return nil
}

func (s *Store) SaveTask(ctx context.Context, t plan.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := t
	s.tasks[t.ID] = &cp

	dp, ok := s.plansByID[t.PlanID]
	if !ok {
		return plan.ErrNotFound
	}
	for i := range dp.Tasks {
		if dp.Tasks[i].ID == t.ID {
			dp.Tasks[i] = t
			return nil
		}
	}
	dp.Tasks = append(dp.Tasks, t)
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id plan.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	delete(s.tasks, id)
	if dp, ok := s.plansByID[t.PlanID]; ok {
		for i := range dp.Tasks {
			if dp.Tasks[i].ID == id {
				dp.Tasks = append(dp.Tasks[:i], dp.Tasks[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context, userID string) (*plan.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.settings[userID]; ok {
		cp := *st
		return &cp, nil
	}
	def := plan.DefaultSettings()
	def.UserID = userID
	return &def, nil
}

func (s *Store) SaveSettings(ctx context.Context, st plan.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := st
	s.settings[st.UserID] = &cp
	return nil
}

func (s *Store) GetCoinBalance(ctx context.Context, userID string) (*plan.CoinBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := s.balances[userID]; ok {
		cp := *cb
		return &cp, nil
	}
	return &plan.CoinBalance{UserID: userID}, nil
}

func (s *Store) AppendTransaction(ctx context.Context, userID string, t plan.CoinTransaction, newBalance int64, newStreak *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	s.txs = append(s.txs, t)

	cb, ok := s.balances[userID]
	if !ok {
		cb = &plan.CoinBalance{UserID: userID}
		s.balances[userID] = cb
	}
	cb.Balance = newBalance
	if newStreak != nil {
		cb.Streak = *newStreak
	}
	return nil
}

func (s *Store) SetStreak(ctx context.Context, userID string, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.balances[userID]
	if !ok {
		cb = &plan.CoinBalance{UserID: userID}
		s.balances[userID] = cb
	}
	cb.Streak = streak
	return nil
}

func (s *Store) GetReward(ctx context.Context, id string) (*plan.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Store) DecrementRewardStock(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[id]
	if !ok || r.RemainingCount == nil || *r.RemainingCount <= 0 {
		return nil
	}
	v := *r.RemainingCount - 1
	r.RemainingCount = &v
	return nil
}

// PurchaseReward decrements Limited stock, re-reads the authoritative
// balance, and appends the debit transaction under a single mutex
// critical section, mirroring the sqlite store's transactional
// atomicity so the two backends reject a racing oversell identically.
func (s *Store) PurchaseReward(ctx context.Context, userID string, reward plan.Reward, t plan.CoinTransaction) (*plan.CoinTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reward.RewardType == plan.RewardLimited {
		r, ok := s.rewards[reward.ID]
		if !ok || r.RemainingCount == nil || *r.RemainingCount <= 0 {
			return nil, &plan.PurchaseError{RewardID: reward.ID, Reason: "sold out"}
		}
		v := *r.RemainingCount - 1
		r.RemainingCount = &v
	}

	cb, ok := s.balances[userID]
	if !ok {
		cb = &plan.CoinBalance{UserID: userID}
		s.balances[userID] = cb
	}
	price := -t.Amount
	if cb.Balance < price {
		return nil, &plan.PurchaseError{RewardID: reward.ID, Reason: "insufficient"}
	}

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	s.txs = append(s.txs, t)
	cb.Balance -= price

	return &t, nil
}

func (s *Store) CopyTaskToDate(ctx context.Context, taskID plan.TaskID, userID, targetDate string) error {
	s.mu.Lock()
	src, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return plan.ErrNotFound
	}
	srcCopy := *src
	src.CarriedOver = true
	if dp, ok := s.plansByID[src.PlanID]; ok {
		for i := range dp.Tasks {
			if dp.Tasks[i].ID == taskID {
				dp.Tasks[i].CarriedOver = true
				break
			}
		}
	}
	s.mu.Unlock()

	dp, err := s.GetOrCreateDayPlan(ctx, userID, targetDate)
	if err != nil {
		return err
	}
	newTask := plan.Task{
		ID:               plan.NewTaskID(),
		PlanID:           dp.ID,
		Name:             srcCopy.Name,
		AllocatedSeconds: srcCopy.AllocatedSeconds,
		Status:           plan.StatusPending,
		Priority:         srcCopy.Priority,
		Position:         srcCopy.Position,
		CreatedAt:        time.Now(),
	}
	return s.SaveTask(ctx, newTask)
}
