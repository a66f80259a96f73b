package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pharmachain/trustscore/internal/application/dispatcher"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/domain/event"
	"github.com/pharmachain/trustscore/internal/infrastructure/persistence/memory"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu      sync.Mutex
	infos   []string
	errors  []string
	entries []map[string]interface{}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.record(msg, "info", keysAndValues)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.record(msg, "error", keysAndValues)
}

func (m *mockLogger) record(msg, level string, keysAndValues []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if level == "error" {
		m.errors = append(m.errors, msg)
	} else {
		m.infos = append(m.infos, msg)
	}
	entry := map[string]interface{}{"msg": msg, "level": level}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		entry[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	m.entries = append(m.entries, entry)
}

func (m *mockLogger) HasError(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.errors {
		if e == msg {
			return true
		}
	}
	return false
}

func (m *mockLogger) CountInfo(msg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, i := range m.infos {
		if i == msg {
			n++
		}
	}
	return n
}

var testNow = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *memory.Store
	logger   *mockLogger
	events   dispatcher.Dispatcher
	locks    *SupplierLocks
	trust    TrustScoreService
	ranking  RankingEngine
	badges   BadgeEngine
	risk     RiskService
	now      time.Time
	received []event.Type
	mu       sync.Mutex
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:  memory.NewStore(),
		logger: &mockLogger{},
		locks:  NewSupplierLocks(),
		now:    testNow,
	}
	clock := WithClock(func() time.Time { return env.now })
	env.events = dispatcher.NewDispatcher(dispatcher.WithLogger(env.logger))
	env.trust = NewTrustScoreService(env.store, env.store, env.store, env.events, env.locks, env.logger, clock)
	env.ranking = NewRankingEngine(env.store, env.events, env.locks, env.logger, clock)
	env.badges = NewBadgeEngine(env.store, env.events, env.locks, env.logger, clock)
	env.risk = NewRiskService(env.store, env.store, env.logger, clock)

	for _, t := range []event.Type{event.TypeScoreRecalculated, event.TypeScoreAdjusted} {
		env.events.SubscribeNamed(t, "ranking", env.ranking.HandleScoreChanged)
		env.events.SubscribeNamed(t, "badges", env.badges.HandleScoreChanged)
	}
	env.events.SubscribeNamed(event.TypeRankingUpdated, "badges", env.badges.HandleScoreChanged)
	env.events.SubscribeNamed(event.TypeBadgeAwarded, "recorder", func(ctx context.Context, evt *event.Event) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.received = append(env.received, evt.Type)
		return nil
	})
	return env
}

func (e *testEnv) badgeEvents() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.received)
}

func (e *testEnv) addSupplier(id string, role entity.Role, name string) {
	e.store.AddSupplier(entity.Supplier{ID: id, Role: role, OrganizationName: name})
}

func (e *testEnv) addOnTimeTasks(supplierID string, n int, rating float64) {
	due := testNow.AddDate(0, 0, -10)
	done := due.Add(-time.Hour)
	for i := 0; i < n; i++ {
		r := rating
		e.store.AddTask(entity.Task{
			ID:            fmt.Sprintf("%s-task-%d", supplierID, i),
			AssignedTo:    supplierID,
			Status:        entity.TaskStatusCompleted,
			DueDate:       &due,
			CompletedAt:   &done,
			QualityRating: &r,
		})
	}
}

func (e *testEnv) addReviews(targetType, targetID string, ratings ...int) {
	for i, rating := range ratings {
		e.store.AddReview(entity.Review{
			ID:            fmt.Sprintf("%s-review-%d", targetID, i),
			TargetType:    targetType,
			TargetID:      targetID,
			OverallRating: rating,
			IsVerified:    true,
			Status:        entity.ReviewStatusApproved,
		})
	}
}

// mockEvidence wraps the memory store and lets a test fail selected reads
type mockEvidence struct {
	mock.Mock
	*memory.Store
}

func (m *mockEvidence) ListTasksByAssignee(ctx context.Context, supplierID string) ([]*entity.Task, error) {
	args := m.Called(ctx, supplierID)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return m.Store.ListTasksByAssignee(ctx, supplierID)
}
