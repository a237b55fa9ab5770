package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingotab/lingotab/internal/domain"
	"github.com/lingotab/lingotab/internal/provider"
)

type stubClient struct {
	name string

	mu    sync.Mutex
	calls int
	fn    func(call int, req provider.Request) (string, error)
}

func (s *stubClient) Name() string  { return s.name }
func (s *stubClient) Model() string { return "stub-model" }

func (s *stubClient) Translate(_ context.Context, req provider.Request) (string, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call, req)
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testRecords() []domain.Record {
	return []domain.Record{
		{Key: "greeting.hi", Source: "Hello", Text: "Hello"},
		{Key: "farewell.bye", Source: "Goodbye", Text: "Goodbye"},
		{Key: "menu.settings", Source: "Settings", Text: "Settings"},
	}
}

func testGroup(id, providerName string) *domain.Group {
	return &domain.Group{
		ID:                 id,
		Name:               "Spanish",
		Provider:           providerName,
		UserPromptTemplate: "Translate to {language}:\n{csv_data}",
	}
}

func newTestEngine(t *testing.T, client provider.Client, settings Settings) *Engine {
	t.Helper()

	registry := provider.NewRegistry()
	if client != nil {
		if err := registry.Register(client); err != nil {
			t.Fatalf("register stub client: %v", err)
		}
	}
	all := map[string]Settings{
		domain.ProviderOpenAI:    settings,
		domain.ProviderGemini:    settings,
		domain.ProviderAnthropic: settings,
	}
	return New(registry, all, zerolog.Nop())
}

const batchCSV = "greeting.hi,Hola,UI,greeting\nfarewell.bye,Adiós,UI,farewell\nmenu.settings,Ajustes,UI,menu"

func TestRun_EveryPairGetsAnEntry(t *testing.T) {
	t.Parallel()

	client := &stubClient{
		name: domain.ProviderOpenAI,
		fn: func(int, provider.Request) (string, error) {
			return batchCSV, nil
		},
	}
	engine := newTestEngine(t, client, Settings{
		BatchSize:         3,
		ConcurrentBatches: 2,
		TokensPerMinute:   1_000_000,
	})

	records := testRecords()
	groups := []*domain.Group{
		testGroup("g1", domain.ProviderOpenAI),
		testGroup("g2", domain.ProviderOpenAI),
	}

	table, err := engine.Run(context.Background(), Input{Records: records, Groups: groups})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, group := range groups {
		for _, record := range records {
			res, ok := table.Get(group.ID, record.Key)
			if !ok {
				t.Fatalf("missing entry for (%s, %s)", group.ID, record.Key)
			}
			if res.IsError() {
				t.Fatalf("unexpected sentinel for (%s, %s): %+v", group.ID, record.Key, res)
			}
		}
		if group.Status != domain.GroupStatusDone {
			t.Fatalf("group %s status = %q", group.ID, group.Status)
		}
	}
	if got, _ := table.Get("g1", "greeting.hi"); got.Translation != "Hola" {
		t.Fatalf("unexpected translation: %+v", got)
	}
	// One combined request per group.
	if client.callCount() != 2 {
		t.Fatalf("call count = %d, want 2", client.callCount())
	}
}

func TestRun_UnknownProviderRejected(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, nil, Settings{})
	_, err := engine.Run(context.Background(), Input{
		Records: testRecords(),
		Groups:  []*domain.Group{testGroup("g1", "azure")},
	})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestRun_EmptyInputRejected(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, nil, Settings{})
	if _, err := engine.Run(context.Background(), Input{Groups: []*domain.Group{testGroup("g1", domain.ProviderOpenAI)}}); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("err = %v, want ErrNoRecords", err)
	}
	if _, err := engine.Run(context.Background(), Input{Records: testRecords()}); !errors.Is(err, ErrNoGroups) {
		t.Fatalf("err = %v, want ErrNoGroups", err)
	}
}

func TestRun_UnconfiguredProviderGetsSentinels(t *testing.T) {
	t.Parallel()

	client := &stubClient{
		name: domain.ProviderOpenAI,
		fn: func(int, provider.Request) (string, error) {
			return batchCSV, nil
		},
	}
	engine := newTestEngine(t, client, Settings{BatchSize: 3, TokensPerMinute: 1_000_000})

	records := testRecords()
	groups := []*domain.Group{
		testGroup("g1", domain.ProviderOpenAI),
		testGroup("g2", domain.ProviderGemini),
	}

	table, err := engine.Run(context.Background(), Input{Records: records, Groups: groups})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The configured provider's group completed normally.
	if res, _ := table.Get("g1", "greeting.hi"); res.IsError() {
		t.Fatalf("configured group blocked by unconfigured sibling: %+v", res)
	}
	for _, record := range records {
		res, ok := table.Get("g2", record.Key)
		if !ok {
			t.Fatalf("missing sentinel for (g2, %s)", record.Key)
		}
		if !res.IsError() {
			t.Fatalf("expected sentinel for (g2, %s), got %+v", record.Key, res)
		}
	}
}

func TestRun_BatchFailureDegradesToSingles(t *testing.T) {
	t.Parallel()

	client := &stubClient{name: domain.ProviderOpenAI}
	client.fn = func(call int, req provider.Request) (string, error) {
		if call == 1 {
			return "", errors.New("model overloaded")
		}
		return "hola amigo", nil
	}
	engine := newTestEngine(t, client, Settings{BatchSize: 3, TokensPerMinute: 1_000_000})

	records := testRecords()
	groups := []*domain.Group{testGroup("g1", domain.ProviderOpenAI)}

	table, err := engine.Run(context.Background(), Input{Records: records, Groups: groups})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, record := range records {
		res, ok := table.Get("g1", record.Key)
		if !ok {
			t.Fatalf("missing entry for %s after degradation", record.Key)
		}
		if res.IsError() {
			t.Fatalf("task lost to batch failure: %s -> %+v", record.Key, res)
		}
	}
	// 1 failed combined call + 3 singles.
	if client.callCount() != 4 {
		t.Fatalf("call count = %d, want 4", client.callCount())
	}
}

func TestRun_RateLimitRetries(t *testing.T) {
	t.Parallel()

	client := &stubClient{name: domain.ProviderOpenAI}
	client.fn = func(call int, req provider.Request) (string, error) {
		if call == 1 {
			return "", &provider.RequestError{
				Provider:    domain.ProviderOpenAI,
				StatusCode:  429,
				Message:     "rate limit",
				RateLimited: true,
			}
		}
		return batchCSV, nil
	}
	engine := newTestEngine(t, client, Settings{BatchSize: 3, TokensPerMinute: 1_000_000})

	table, err := engine.Run(context.Background(), Input{
		Records: testRecords(),
		Groups:  []*domain.Group{testGroup("g1", domain.ProviderOpenAI)},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res, _ := table.Get("g1", "greeting.hi"); res.IsError() {
		t.Fatalf("retry did not recover: %+v", res)
	}
	if client.callCount() != 2 {
		t.Fatalf("call count = %d, want 2", client.callCount())
	}
}

func TestRun_NonRateLimitErrorsNotRetried(t *testing.T) {
	t.Parallel()

	client := &stubClient{name: domain.ProviderOpenAI}
	client.fn = func(call int, req provider.Request) (string, error) {
		return "", &provider.RequestError{
			Provider:   domain.ProviderOpenAI,
			StatusCode: 500,
			Message:    "internal error",
		}
	}
	engine := newTestEngine(t, client, Settings{BatchSize: 1, TokensPerMinute: 1_000_000})

	records := testRecords()[:1]
	table, err := engine.Run(context.Background(), Input{
		Records: records,
		Groups:  []*domain.Group{testGroup("g1", domain.ProviderOpenAI)},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res, _ := table.Get("g1", "greeting.hi")
	if !res.IsError() {
		t.Fatalf("expected sentinel, got %+v", res)
	}
	if res.Translation != "Hello" {
		t.Fatalf("sentinel must carry original text, got %q", res.Translation)
	}
	if client.callCount() != 1 {
		t.Fatalf("call count = %d, want 1 (no retry)", client.callCount())
	}
}

func TestRun_CanceledContextFillsSentinels(t *testing.T) {
	t.Parallel()

	client := &stubClient{
		name: domain.ProviderOpenAI,
		fn: func(int, provider.Request) (string, error) {
			return batchCSV, nil
		},
	}
	engine := newTestEngine(t, client, Settings{BatchSize: 3, TokensPerMinute: 1_000_000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := testRecords()
	groups := []*domain.Group{testGroup("g1", domain.ProviderOpenAI)}
	table, err := engine.Run(ctx, Input{Records: records, Groups: groups})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	for _, record := range records {
		res, ok := table.Get("g1", record.Key)
		if !ok {
			t.Fatalf("canceled run must still fill (g1, %s)", record.Key)
		}
		if !res.IsError() || res.Reasoning != ReasonCanceled {
			t.Fatalf("unexpected result for canceled task: %+v", res)
		}
	}
}

func TestRun_ProgressReachesCompletion(t *testing.T) {
	t.Parallel()

	client := &stubClient{
		name: domain.ProviderOpenAI,
		fn: func(int, provider.Request) (string, error) {
			return batchCSV, nil
		},
	}
	engine := newTestEngine(t, client, Settings{BatchSize: 1, TokensPerMinute: 1_000_000})

	var mu sync.Mutex
	last := map[string]int{}
	progress := func(groupID string, percent int) {
		mu.Lock()
		last[groupID] = percent
		mu.Unlock()
	}

	groups := []*domain.Group{
		testGroup("g1", domain.ProviderOpenAI),
		testGroup("g2", domain.ProviderOpenAI),
	}
	if _, err := engine.Run(context.Background(), Input{
		Records:  testRecords(),
		Groups:   groups,
		Progress: progress,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, group := range groups {
		if last[group.ID] != 100 {
			t.Fatalf("group %s final progress = %d, want 100", group.ID, last[group.ID])
		}
	}
}

func TestMerge_RetryKeepsPriorSuccesses(t *testing.T) {
	t.Parallel()

	prior := domain.Table{}
	prior.Set("g1", "a", domain.Result{Translation: "X"})
	prior.Set("g1", "b", domain.ErrorResult("b-text", "Request failed"))

	retry := domain.Table{}
	retry.Set("g1", "b", domain.Result{Translation: "Y"})

	merged := Merge(prior, retry)
	if res, _ := merged.Get("g1", "a"); res.Translation != "X" {
		t.Fatalf("prior success lost: %+v", res)
	}
	if res, _ := merged.Get("g1", "b"); res.Translation != "Y" || res.IsError() {
		t.Fatalf("retry result not applied: %+v", res)
	}
}

func TestMerge_FreshFailureReplacesOldResult(t *testing.T) {
	t.Parallel()

	prior := domain.Table{}
	prior.Set("g1", "a", domain.Result{Translation: "old"})

	next := domain.Table{}
	next.Set("g1", "a", domain.ErrorResult("a-text", "Request failed"))

	merged := Merge(prior, next)
	res, _ := merged.Get("g1", "a")
	if !res.IsError() {
		t.Fatalf("last write must win even for sentinels: %+v", res)
	}
	// Inputs stay untouched.
	if res, _ := prior.Get("g1", "a"); res.Translation != "old" {
		t.Fatalf("Merge mutated prior: %+v", res)
	}
}

func TestPartitionTasks(t *testing.T) {
	t.Parallel()

	records := testRecords()
	groups := []*domain.Group{
		testGroup("g1", domain.ProviderOpenAI),
		testGroup("g2", domain.ProviderOpenAI),
	}
	tasks := buildTasks(records, groups)
	if len(tasks) != 6 {
		t.Fatalf("task count = %d, want 6", len(tasks))
	}

	batches := partitionTasks(tasks, 4)
	if len(batches) != 2 || len(batches[0]) != 4 || len(batches[1]) != 2 {
		t.Fatalf("unexpected partition: %d batches", len(batches))
	}
	// Group-major order keeps one group's tasks contiguous.
	if !sameGroup(batches[0][:3]) {
		t.Fatalf("first three tasks should share a group")
	}
}

func TestBuildHeaderAndRows(t *testing.T) {
	t.Parallel()

	records := testRecords()[:2]
	groups := []*domain.Group{
		{ID: "g1", Name: "Spanish", Provider: domain.ProviderOpenAI},
		{ID: "g2", Name: "Hindi", Provider: domain.ProviderGemini, OutputColumn: "hindi"},
	}

	header := BuildHeader(groups, true)
	want := []string{"key", "source", "text", "Spanish", "Spanish Category", "Spanish Reasoning", "hindi", "hindi Category", "hindi Reasoning"}
	if len(header) != len(want) {
		t.Fatalf("header = %v", header)
	}
	for i := range want {
		if header[i] != want[i] {
			t.Fatalf("header[%d] = %q, want %q", i, header[i], want[i])
		}
	}

	// Without metadata each group is a single column named after its
	// output column, or its name as the fallback.
	slim := BuildHeader(groups, false)
	if len(slim) != 5 || slim[3] != "Spanish" || slim[4] != "hindi" {
		t.Fatalf("slim header = %v", slim)
	}

	table := domain.Table{}
	table.Set("g1", "greeting.hi", domain.Result{Translation: "Hola", Category: "UI", Reasoning: "greeting"})
	table.Set("g2", "greeting.hi", domain.Result{Translation: "नमस्ते"})

	rows := BuildRows(table, records, groups, true)
	if len(rows) != 2 {
		t.Fatalf("row count = %d", len(rows))
	}
	first := rows[0]
	if first[3] != "Hola" || first[6] != "नमस्ते" {
		t.Fatalf("unexpected first row: %v", first)
	}
	// Absent entries render as empty cells.
	second := rows[1]
	for i := 3; i < len(second); i++ {
		if second[i] != "" {
			t.Fatalf("expected empty cell at %d: %v", i, second)
		}
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	t.Parallel()

	for attempt := 1; attempt <= 10; attempt++ {
		delay := backoffDelay(attempt)
		if delay < baseBackoff || delay > maxBackoff {
			t.Fatalf("attempt %d: delay %v out of range", attempt, delay)
		}
	}
	if backoffDelay(2) < 2*time.Second {
		t.Fatalf("second attempt should wait at least 2s")
	}
}
