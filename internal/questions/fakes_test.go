package questions

import (
	"context"
	"sync"

	"formpilot/internal/ai"
	"formpilot/internal/errors"
	"formpilot/internal/types"
)

type fakeStore struct {
	mu        sync.Mutex
	users     map[int64]bool
	lookupErr error
	createErr error
	lookups   int
	records   []types.QuestionRecord
}

func newFakeStore(userIDs ...int64) *fakeStore {
	s := &fakeStore{users: make(map[int64]bool)}
	for _, id := range userIDs {
		s.users[id] = true
	}
	return s
}

func (s *fakeStore) UserExists(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	return s.users[userID], nil
}

func (s *fakeStore) CreateQuestionRecords(_ context.Context, records []types.QuestionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.records = append(s.records, records...)
	return int64(len(records)), nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	raw     []byte
	err     error
	calls   int
	prompts []ai.Prompt
	ctxErrs []error
	block   chan struct{}
}

func (g *fakeGenerator) GenerateAnswers(ctx context.Context, prompt ai.Prompt) ([]byte, *types.TokenUsage, error) {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	if g.err != nil {
		return nil, nil, g.err
	}
	return g.raw, &types.TokenUsage{TotalTokens: 10}, nil
}

type recordedRun struct {
	size  int
	stats types.ReconcileStats
	err   error
}

type fakeObserver struct {
	runs []recordedRun
}

func (o *fakeObserver) BatchProcessed(_ context.Context, size int, stats types.ReconcileStats, err error) {
	o.runs = append(o.runs, recordedRun{size: size, stats: stats, err: err})
}

func testLogger() *errors.Logger {
	logger, _ := errors.New("error")
	return logger
}
