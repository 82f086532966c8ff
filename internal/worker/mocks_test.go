package worker_test

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/store"
	"difendimi.live/intake/internal/worker"
)

type mockConsumer struct {
	mu       sync.Mutex
	readFn   func(ctx context.Context) ([]queue.Message, error)
	acked    []string
	requeued []queue.Message
	dlq      []queue.Message
	errMsgs  []string
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	if m.readFn != nil {
		return m.readFn(ctx)
	}
	return nil, nil
}

func (m *mockConsumer) Ack(_ context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(_ context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeued = append(m.requeued, msg)
	m.errMsgs = append(m.errMsgs, errMsg)
	return nil
}

func (m *mockConsumer) SendDLQ(_ context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dlq = append(m.dlq, msg)
	m.errMsgs = append(m.errMsgs, errMsg)
	return nil
}

type mockGenerator struct {
	calls      int
	generateFn func(ctx context.Context, c model.FinalizedCase) (model.Report, error)
}

func (m *mockGenerator) Generate(ctx context.Context, c model.FinalizedCase) (model.Report, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, c)
	}
	return model.Report{Summary: "sintesi", Model: "mock"}, nil
}

type memoryProvider struct {
	cases   *store.MemoryCaseStore
	reports store.ReportStore
}

func (p memoryProvider) Cases() store.CaseStore     { return p.cases }
func (p memoryProvider) Reports() store.ReportStore { return p.reports }

type mockTxRunner struct {
	provider memoryProvider
	withTxFn func(ctx context.Context, fn func(worker.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(worker.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return fn(m.provider)
}

type mockHandler struct {
	handled []queue.Message
}

func (m *mockHandler) Handle(_ context.Context, msg queue.Message) {
	m.handled = append(m.handled, msg)
}

// fakeStreams stubs the two stream commands the reclaimer issues. Any other
// call panics on the nil embedded interface.
type fakeStreams struct {
	redis.Cmdable
	pending []redis.XPendingExt
	claimed map[string][]redis.XMessage
	claims  []string
}

func (f *fakeStreams) XPendingExt(ctx context.Context, _ *redis.XPendingExtArgs) *redis.XPendingExtCmd {
	cmd := redis.NewXPendingExtCmd(ctx)
	cmd.SetVal(f.pending)
	return cmd
}

func (f *fakeStreams) XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd {
	f.claims = append(f.claims, a.Messages...)
	cmd := redis.NewXMessageSliceCmd(ctx)
	cmd.SetVal(f.claimed[a.Messages[0]])
	return cmd
}
