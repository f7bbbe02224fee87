package factory

import (
	"time"

	"github.com/mcoot/imposter/internal/dependencies/mocks"
	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/services/catalog"
	"github.com/mcoot/imposter/internal/storage/memory"
	"github.com/mcoot/imposter/internal/testutil"
)

// TestCategory is the category loaded by NewTestApp
const TestCategory = "test"

// TestTopics are the topics in TestCategory
var TestTopics = []model.Topic{
	{Name: "Lionel Messi", Hint: "Argentina"},
	{Name: "Kettle", Hint: "Kitchen"},
	{Name: "Eiffel Tower", Hint: "Paris"},
}

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock   *mocks.MockClock
	MockRandom  *mocks.MockRandom
	MemoryStore *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := testutil.NopLogger()

	catalogService := catalog.New(logger)
	catalogService.LoadTopics(TestCategory, TestTopics)

	app := newWithDependencies(store, mockClock, mockRandom, catalogService, logger)

	return &TestApp{
		App:         app,
		MockClock:   mockClock,
		MockRandom:  mockRandom,
		MemoryStore: store,
	}
}
