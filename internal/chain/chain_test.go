package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-fetch-cache/internal/interfaces/mock"
	"go-fetch-cache/internal/models"
)

type pointDoc struct {
	Next string `json:"next"`
}

type forecastDoc struct {
	Periods []string `json:"periods"`
}

func newTestCoordinator(t *testing.T) (*Coordinator, *mock.MockFetcher, *[]State) {
	t.Helper()
	ctrl := gomock.NewController(t)
	fetcher := mock.NewMockFetcher(ctrl)
	c := NewCoordinator(fetcher, zap.NewNop())

	var states []State
	c.Subscribe(func(s State) { states = append(states, s) })
	return c, fetcher, &states
}

func progressOf(states []State) []float64 {
	out := make([]float64, 0, len(states))
	for _, s := range states {
		out = append(out, s.Progress)
	}
	return out
}

func TestChainTwo_Success(t *testing.T) {
	c, fetcher, states := newTestCoordinator(t)
	first := models.NewRequest("api.example.com").Path("/points/1,2").Build()
	second := models.NewRequest("api.example.com").Path("/forecast").Build()

	gomock.InOrder(
		fetcher.EXPECT().Fetch(gomock.Any(), first).Return([]byte(`{"next":"/forecast"}`), nil),
		fetcher.EXPECT().Fetch(gomock.Any(), second).Return([]byte(`{"periods":["Tonight","Monday"]}`), nil),
	)

	var derivedFrom pointDoc
	result, err := ChainTwo[pointDoc, forecastDoc](context.Background(), c, first, func(p pointDoc) models.RequestConfiguration {
		derivedFrom = p
		return models.NewRequest("api.example.com").Path(p.Next).Build()
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Tonight", "Monday"}, result.Periods)
	assert.Equal(t, "/forecast", derivedFrom.Next)

	assert.Equal(t, []float64{0.0, 0.3, 0.6, 0.8, 1.0}, progressOf(*states))
	assert.True(t, (*states)[0].IsLoading)
	assert.Equal(t, State{IsLoading: false, Progress: 1.0}, c.State())
}

func TestChainTwo_FirstFetchFailure(t *testing.T) {
	c, fetcher, states := newTestCoordinator(t)
	first := models.NewRequest("api.example.com").Path("/points/1,2").Build()
	cause := models.NewServerError(500)

	fetcher.EXPECT().Fetch(gomock.Any(), first).Return(nil, cause)

	deriveCalled := false
	result, err := ChainTwo[pointDoc, forecastDoc](context.Background(), c, first, func(p pointDoc) models.RequestConfiguration {
		deriveCalled = true
		return models.RequestConfiguration{}
	})

	assert.False(t, deriveCalled)
	assert.Nil(t, result.Periods)

	var netErr *models.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, models.KindNetworkError, netErr.Kind)
	assert.ErrorIs(t, err, cause)

	state := c.State()
	assert.False(t, state.IsLoading)
	assert.Equal(t, 1.0, state.Progress)
	assert.Equal(t, err, state.Err)
	assert.Equal(t, []float64{0.0, 1.0}, progressOf(*states))
}

func TestChainTwo_SecondFetchFailure(t *testing.T) {
	c, fetcher, _ := newTestCoordinator(t)
	first := models.NewRequest("api.example.com").Path("/points/1,2").Build()
	transport := errors.New("connection reset")

	gomock.InOrder(
		fetcher.EXPECT().Fetch(gomock.Any(), first).Return([]byte(`{"next":"/forecast"}`), nil),
		fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, transport),
	)

	_, err := ChainTwo[pointDoc, forecastDoc](context.Background(), c, first, func(p pointDoc) models.RequestConfiguration {
		return models.NewRequest("api.example.com").Path(p.Next).Build()
	})

	assert.ErrorIs(t, err, transport)
	assert.Equal(t, models.KindNetworkError, models.KindOf(c.State().Err))
	assert.Equal(t, 1.0, c.State().Progress)
}

func TestChainTwo_DecodeFailureIsNetworkError(t *testing.T) {
	c, fetcher, _ := newTestCoordinator(t)
	first := models.NewRequest("api.example.com").Build()

	fetcher.EXPECT().Fetch(gomock.Any(), first).Return([]byte(`not json`), nil)

	_, err := ChainTwo[pointDoc, forecastDoc](context.Background(), c, first, func(p pointDoc) models.RequestConfiguration {
		t.Fatal("derive must not run")
		return models.RequestConfiguration{}
	})

	assert.Equal(t, models.KindNetworkError, models.KindOf(err))
	assert.False(t, c.State().IsLoading)
}

func TestChainTwo_ClearsPreviousError(t *testing.T) {
	c, fetcher, states := newTestCoordinator(t)
	cfg := models.NewRequest("api.example.com").Build()

	gomock.InOrder(
		fetcher.EXPECT().Fetch(gomock.Any(), cfg).Return(nil, errors.New("boom")),
		fetcher.EXPECT().Fetch(gomock.Any(), cfg).Return([]byte(`{}`), nil),
		fetcher.EXPECT().Fetch(gomock.Any(), cfg).Return([]byte(`{"periods":[]}`), nil),
	)

	derive := func(pointDoc) models.RequestConfiguration { return cfg }

	_, err := ChainTwo[pointDoc, forecastDoc](context.Background(), c, cfg, derive)
	require.Error(t, err)

	*states = nil
	_, err = ChainTwo[pointDoc, forecastDoc](context.Background(), c, cfg, derive)
	require.NoError(t, err)

	require.NotEmpty(t, *states)
	assert.Nil(t, (*states)[0].Err, "entering a run clears the error")
	assert.Nil(t, c.State().Err)
}

func TestCoordinator_ClearError(t *testing.T) {
	c, fetcher, states := newTestCoordinator(t)
	cfg := models.NewRequest("api.example.com").Build()

	fetcher.EXPECT().Fetch(gomock.Any(), cfg).Return(nil, errors.New("boom"))
	_, _ = ChainTwo[pointDoc, forecastDoc](context.Background(), c, cfg, func(pointDoc) models.RequestConfiguration { return cfg })
	require.Error(t, c.State().Err)

	c.ClearError()

	assert.Nil(t, c.State().Err)
	assert.Nil(t, (*states)[len(*states)-1].Err)
}

func TestCoordinator_Unsubscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewCoordinator(mock.NewMockFetcher(ctrl), zap.NewNop())

	var first, second int
	unsubscribe := c.Subscribe(func(State) { first++ })
	c.Subscribe(func(State) { second++ })

	c.ClearError()
	unsubscribe()
	c.ClearError()

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestCoordinator_ObserverCanReadState(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewCoordinator(mock.NewMockFetcher(ctrl), zap.NewNop())

	var seen State
	c.Subscribe(func(s State) { seen = c.State() })

	c.ClearError()

	assert.Equal(t, c.State(), seen)
}

func TestChainTwo_ConcurrentRunsPublishConsistentStates(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mock.NewMockFetcher(ctrl)
	c := NewCoordinator(fetcher, zap.NewNop())
	cfg := models.NewRequest("api.example.com").Build()

	fetcher.EXPECT().Fetch(gomock.Any(), cfg).Return([]byte(`{"periods":["x"]}`), nil).AnyTimes()

	var (
		mu     sync.Mutex
		active int
		maxIn  int
	)
	c.Subscribe(func(State) {
		mu.Lock()
		active++
		if active > maxIn {
			maxIn = active
		}
		mu.Unlock()

		mu.Lock()
		active--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ChainTwo[forecastDoc, forecastDoc](context.Background(), c, cfg, func(forecastDoc) models.RequestConfiguration { return cfg })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxIn, "observers are never invoked concurrently")
	assert.Equal(t, State{IsLoading: false, Progress: 1.0}, c.State())
}
