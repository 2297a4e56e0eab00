package identity_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/wbstatus/internal/identity"
)

type fakeDirectory struct {
	names map[string]string
	calls [][]string
	err   error
}

func (d *fakeDirectory) LookupNames(_ context.Context, refs []string) (map[string]string, error) {
	d.calls = append(d.calls, refs)
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[string]string)
	for _, ref := range refs {
		if name, ok := d.names[ref]; ok {
			out[ref] = name
		}
	}
	return out, nil
}

func TestRegistry_ResolveBatch(t *testing.T) {
	dir := &fakeDirectory{names: map[string]string{
		"PHID-USER-a": "alice",
		"PHID-USER-b": "bob",
	}}
	reg, err := identity.NewRegistry(dir, 0)
	require.NoError(t, err)

	reg.Register("PHID-USER-b")
	reg.Register("PHID-USER-a")
	reg.Register("PHID-USER-a")
	reg.Register("")
	reg.Register("PHID-USER-ghost")

	assert.Equal(t, []string{"PHID-USER-a", "PHID-USER-b", "PHID-USER-ghost"}, reg.Pending())

	require.NoError(t, reg.Resolve(context.Background()))
	require.Len(t, dir.calls, 1, "one batch call")
	assert.Equal(t, []string{"PHID-USER-a", "PHID-USER-b", "PHID-USER-ghost"}, dir.calls[0])

	name, ok := reg.NameOf("PHID-USER-a")
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok = reg.NameOf("PHID-USER-ghost")
	assert.False(t, ok)
	assert.Empty(t, reg.Pending())
}

func TestRegistry_ResolvedRefsAreNotRequeued(t *testing.T) {
	dir := &fakeDirectory{names: map[string]string{"PHID-USER-a": "alice"}}
	reg, err := identity.NewRegistry(dir, 16)
	require.NoError(t, err)

	reg.Register("PHID-USER-a")
	require.NoError(t, reg.Resolve(context.Background()))

	reg.Register("PHID-USER-a")
	assert.Empty(t, reg.Pending())

	require.NoError(t, reg.Resolve(context.Background()))
	assert.Len(t, dir.calls, 1, "nothing pending means no directory call")
}

func TestRegistry_ResolveError(t *testing.T) {
	boom := errors.New("conduit down")
	reg, err := identity.NewRegistry(&fakeDirectory{err: boom}, 16)
	require.NoError(t, err)

	reg.Register("PHID-USER-a")
	err = reg.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"PHID-USER-a"}, reg.Pending(), "failed lookups stay pending")
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	reg, err := identity.NewRegistry(&fakeDirectory{}, 16)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Register(fmt.Sprintf("PHID-USER-%d", i%10))
		}(i)
	}
	wg.Wait()

	assert.Len(t, reg.Pending(), 10)
}
