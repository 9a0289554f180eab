package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike-predict/internal/models"
)

func newTestStore(ttl time.Duration, svc *fakeService) *Store {
	return NewStore(ttl, func(id string) *Controller {
		return New(svc, WithID(id))
	})
}

func TestStore_GetOrCreate(t *testing.T) {
	store := newTestStore(time.Minute, &fakeService{mappings: referenceMappings()})

	c, created := store.GetOrCreate(context.Background(), "")
	require.True(t, created)
	assert.NotEmpty(t, c.ID())
	assert.True(t, c.State().MappingsLoaded)

	again, created := store.GetOrCreate(context.Background(), c.ID())
	assert.False(t, created)
	assert.Same(t, c, again)
	assert.Equal(t, 1, store.Len())
}

func TestStore_UnknownIDStartsFreshSession(t *testing.T) {
	store := newTestStore(time.Minute, &fakeService{mappings: referenceMappings()})

	c, created := store.GetOrCreate(context.Background(), "forged-cookie")
	require.True(t, created)
	assert.NotEqual(t, "forged-cookie", c.ID())
}

func TestStore_MappingsFailureStillCreatesSession(t *testing.T) {
	store := newTestStore(time.Minute, &fakeService{mappingsErr: errors.New("refused")})

	c, created := store.GetOrCreate(context.Background(), "")
	require.True(t, created)

	st := c.State()
	assert.False(t, st.MappingsLoaded)
	assert.NotEmpty(t, st.Error)
}

func TestStore_Sweep(t *testing.T) {
	store := newTestStore(10*time.Minute, &fakeService{mappings: referenceMappings()})

	idle, _ := store.GetOrCreate(context.Background(), "")
	store.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, ok := store.Get(idle.ID())
	assert.False(t, ok)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	store := newTestStore(0, &fakeService{mappings: referenceMappings()})

	c, _ := store.GetOrCreate(context.Background(), "")
	store.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	assert.Equal(t, 0, store.Sweep())
	_, ok := store.Get(c.ID())
	assert.True(t, ok)
}

func TestStore_InFlightSessionSurvivesSweep(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	svc := &fakeService{
		mappings: referenceMappings(),
		predict: func(context.Context, models.PredictionRequest) (float64, error) {
			close(started)
			<-release
			return 1, nil
		},
	}
	store := newTestStore(time.Minute, svc)
	c, _ := store.GetOrCreate(context.Background(), "")
	fill(t, c, models.OwnerFirst)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Submit(context.Background())
	}()
	<-started

	store.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.Equal(t, 0, store.Sweep())

	close(release)
	<-done
	assert.Equal(t, 1, store.Sweep())
}

func TestStore_RunStopsOnCancel(t *testing.T) {
	store := newTestStore(time.Minute, &fakeService{mappings: referenceMappings()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
