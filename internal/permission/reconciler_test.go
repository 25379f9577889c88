package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) Status(ctx context.Context, k Kind) (Status, error) {
	args := m.Called(ctx, k)
	return args.Get(0).(Status), args.Error(1)
}

func (m *MockDevice) Request(ctx context.Context, k Kind) (Status, error) {
	args := m.Called(ctx, k)
	return args.Get(0).(Status), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

// mapStore is an in-memory kvstore.Store.
type mapStore map[string]string

func (s mapStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

func (s mapStore) Set(_ context.Context, key, value string) error {
	s[key] = value
	return nil
}

func TestReconciler_InitialState(t *testing.T) {
	r := NewReconciler(new(MockDevice), mapStore{})
	state := r.State()

	for _, k := range Kinds {
		assert.Equal(t, StatusUndetermined, state.Status(k))
	}
	assert.False(t, state.AllGranted)
}

func TestReconciler_CheckAll(t *testing.T) {
	ctx := context.Background()

	t.Run("All granted", func(t *testing.T) {
		device := new(MockDevice)
		device.On("Status", ctx, mock.Anything).Return(StatusGranted, nil)

		state, err := NewReconciler(device, mapStore{}).CheckAll(ctx)
		require.NoError(t, err)
		assert.True(t, state.AllGranted)
		device.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)
	})

	t.Run("Limited is not granted", func(t *testing.T) {
		device := new(MockDevice)
		device.On("Status", ctx, KindCamera).Return(StatusGranted, nil)
		device.On("Status", ctx, KindMediaLibrary).Return(StatusLimited, nil)
		device.On("Status", ctx, KindNotifications).Return(StatusGranted, nil)

		state, err := NewReconciler(device, mapStore{}).CheckAll(ctx)
		require.NoError(t, err)
		assert.False(t, state.AllGranted)
		assert.Equal(t, StatusLimited, state.MediaLibrary)
	})

	t.Run("Failed kinds stay undetermined", func(t *testing.T) {
		device := new(MockDevice)
		device.On("Status", ctx, KindCamera).Return(StatusGranted, nil)
		device.On("Status", ctx, KindMediaLibrary).Return(Status(""), errors.New("media unavailable"))
		device.On("Status", ctx, KindNotifications).Return(Status(""), errors.New("notifications unavailable"))

		state, err := NewReconciler(device, mapStore{}).CheckAll(ctx)
		require.Error(t, err)
		assert.Equal(t, StatusGranted, state.Camera)
		assert.Equal(t, StatusUndetermined, state.MediaLibrary)
		assert.Equal(t, StatusUndetermined, state.Notifications)

		errs := multierr.Errors(err)
		require.Len(t, errs, 2)
		var qerr *QueryFailedError
		require.ErrorAs(t, errs[0], &qerr)
		assert.Equal(t, KindMediaLibrary, qerr.Kind)
	})
}

func TestReconciler_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("Merges result", func(t *testing.T) {
		device := new(MockDevice)
		device.On("Request", ctx, KindCamera).Return(StatusGranted, nil)
		r := NewReconciler(device, mapStore{})

		s, err := r.Request(ctx, KindCamera)
		require.NoError(t, err)
		assert.Equal(t, StatusGranted, s)
		assert.Equal(t, StatusGranted, r.State().Camera)
		assert.False(t, r.State().AllGranted)
	})

	t.Run("Unknown kind", func(t *testing.T) {
		r := NewReconciler(new(MockDevice), mapStore{})
		_, err := r.Request(ctx, Kind("microphone"))
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("Failure leaves kind undetermined", func(t *testing.T) {
		device := new(MockDevice)
		device.On("Request", ctx, KindNotifications).Return(Status(""), errors.New("dialog crashed"))
		r := NewReconciler(device, mapStore{})

		s, err := r.Request(ctx, KindNotifications)
		var qerr *QueryFailedError
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, StatusUndetermined, s)
		assert.Equal(t, StatusUndetermined, r.State().Notifications)
	})
}

func TestReconciler_RequestAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Sequential in fixed order", func(t *testing.T) {
		device := new(MockDevice)
		var order []Kind
		device.On("Request", ctx, mock.Anything).
			Run(func(args mock.Arguments) { order = append(order, args.Get(1).(Kind)) }).
			Return(StatusGranted, nil)

		state, err := NewReconciler(device, mapStore{}).RequestAll(ctx)
		require.NoError(t, err)
		assert.True(t, state.AllGranted)
		assert.Equal(t, []Kind{KindCamera, KindMediaLibrary, KindNotifications}, order)
	})

	t.Run("One failure does not stop the batch", func(t *testing.T) {
		device := new(MockDevice)
		device.On("Request", ctx, KindCamera).Return(StatusDenied, nil)
		device.On("Request", ctx, KindMediaLibrary).Return(Status(""), errors.New("boom"))
		device.On("Request", ctx, KindNotifications).Return(StatusGranted, nil)

		state, err := NewReconciler(device, mapStore{}).RequestAll(ctx)
		require.Error(t, err)
		assert.Len(t, multierr.Errors(err), 1)
		assert.Equal(t, StatusDenied, state.Camera)
		assert.Equal(t, StatusUndetermined, state.MediaLibrary)
		assert.Equal(t, StatusGranted, state.Notifications)
		assert.True(t, ShouldOfferSettingsRedirect(state))
	})

	t.Run("Stops when cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		device := new(MockDevice)
		device.On("Request", cctx, KindCamera).
			Run(func(mock.Arguments) { cancel() }).
			Return(StatusGranted, nil)

		_, err := NewReconciler(device, mapStore{}).RequestAll(cctx)
		assert.ErrorIs(t, err, context.Canceled)
		device.AssertNumberOfCalls(t, "Request", 1)
	})
}

func TestReconciler_Policy(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("Round trip", func(t *testing.T) {
		store := mapStore{}
		r := NewReconciler(new(MockDevice), store)

		p, err := r.LoadPolicy(ctx)
		require.NoError(t, err)
		assert.False(t, p.HasSeenScreen)
		assert.Nil(t, p.LastCheckedAt)

		require.NoError(t, r.MarkScreenSeen(ctx))
		require.NoError(t, r.RecordCheckTimestamp(ctx, now))
		assert.Equal(t, "1700000000000", store[KeyLastCheckTime])
		assert.Equal(t, "true", store[KeyHasSeenScreen])

		p, err = r.LoadPolicy(ctx)
		require.NoError(t, err)
		assert.True(t, p.HasSeenScreen)
		require.NotNil(t, p.LastCheckedAt)
		assert.True(t, now.Equal(*p.LastCheckedAt))
	})

	t.Run("Garbage timestamp is missing", func(t *testing.T) {
		r := NewReconciler(new(MockDevice), mapStore{KeyLastCheckTime: "yesterday"})
		p, err := r.LoadPolicy(ctx)
		require.NoError(t, err)
		assert.Nil(t, p.LastCheckedAt)
	})

	t.Run("Store errors", func(t *testing.T) {
		store := new(MockStore)
		store.On("Get", ctx, KeyHasSeenScreen).Return("", false, errors.New("redis down"))
		store.On("Set", ctx, mock.Anything, mock.Anything).Return(errors.New("redis down"))
		r := NewReconciler(new(MockDevice), store)

		_, err := r.LoadPolicy(ctx)
		assert.ErrorContains(t, err, KeyHasSeenScreen)
		assert.Error(t, r.MarkScreenSeen(ctx))
		assert.Error(t, r.RecordCheckTimestamp(ctx, now))
	})
}

func TestReconciler_ShouldPromptNow(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	deniedDevice := func() *MockDevice {
		d := new(MockDevice)
		d.On("Status", ctx, mock.Anything).Return(StatusDenied, nil)
		return d
	}

	t.Run("Everything granted", func(t *testing.T) {
		d := new(MockDevice)
		d.On("Status", ctx, mock.Anything).Return(StatusGranted, nil)
		store := new(MockStore)

		show, err := NewReconciler(d, store).ShouldPromptNow(ctx, now)
		require.NoError(t, err)
		assert.False(t, show)
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("First run", func(t *testing.T) {
		store := mapStore{}
		show, err := NewReconciler(deniedDevice(), store).ShouldPromptNow(ctx, now)
		require.NoError(t, err)
		assert.True(t, show)
		assert.NotContains(t, store, KeyLastCheckTime)
	})

	t.Run("Seen without check time shows and records", func(t *testing.T) {
		store := mapStore{KeyHasSeenScreen: "true"}
		show, err := NewReconciler(deniedDevice(), store).ShouldPromptNow(ctx, now)
		require.NoError(t, err)
		assert.True(t, show)
		assert.Contains(t, store, KeyLastCheckTime)

		show, err = NewReconciler(deniedDevice(), store).ShouldPromptNow(ctx, now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, show)
	})

	t.Run("Cooldown over", func(t *testing.T) {
		store := mapStore{}
		r := NewReconciler(deniedDevice(), store)
		require.NoError(t, r.MarkScreenSeen(ctx))
		require.NoError(t, r.RecordCheckTimestamp(ctx, now))

		later := now.Add(CooldownInterval + time.Minute)
		show, err := r.ShouldPromptNow(ctx, later)
		require.NoError(t, err)
		assert.True(t, show)

		p, err := r.LoadPolicy(ctx)
		require.NoError(t, err)
		assert.Equal(t, later.UnixMilli(), p.LastCheckedAt.UnixMilli())
	})
}
