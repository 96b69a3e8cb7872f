package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrolink/internal/app/identity"
	"agrolink/internal/pkg/errs"
)

// stubPusher collects pushed events. Setting full simulates a saturated send
// queue. Shared by the test files of this package.
type stubPusher struct {
	mu     sync.Mutex
	events []Event
	full   bool
}

func (p *stubPusher) Push(ev Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full {
		return false
	}
	p.events = append(p.events, ev)
	return true
}

func (p *stubPusher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *stubPusher) EventsOfType(t EventType) []Event {
	var out []Event
	for _, ev := range p.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func testIdentity(id string) identity.Identity {
	return identity.Identity{ID: id, DisplayName: "User " + id}
}

func TestRegistryAdmitRejectsAnonymous(t *testing.T) {
	r := NewRegistry()

	err := r.Admit(identity.Identity{}, "conn-1", &stubPusher{})
	require.Error(t, err)
	assert.Equal(t, errs.ErrUnauthenticated, errs.CodeOf(err))
}

func TestRegistryAdmitRejectsDuplicateConnID(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Admit(testIdentity("alice"), "conn-1", &stubPusher{}))

	err := r.Admit(testIdentity("bob"), "conn-1", &stubPusher{})
	require.Error(t, err)
	assert.Equal(t, errs.ErrInvalidParams, errs.CodeOf(err))

	// The original binding survives the refused admit.
	owner, err := r.IdentityOf("conn-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner.ID)
}

func TestRegistryMultiDevice(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Admit(testIdentity("alice"), "conn-1", &stubPusher{}))
	require.NoError(t, r.Admit(testIdentity("alice"), "conn-2", &stubPusher{}))

	assert.True(t, r.IsOnline("alice"))
	assert.ElementsMatch(t, []string{"conn-1", "conn-2"}, r.ConnectionsOf("alice"))

	// Still online with one device left.
	r.Remove("conn-1")
	assert.True(t, r.IsOnline("alice"))

	r.Remove("conn-2")
	assert.False(t, r.IsOnline("alice"))
	assert.Empty(t, r.ConnectionsOf("alice"))
}

func TestRegistryObserversFireOnTransitionsOnly(t *testing.T) {
	r := NewRegistry()

	var firstConnects, lastDisconnects []string
	r.OnFirstConnect(func(user identity.Identity) {
		firstConnects = append(firstConnects, user.ID)
	})
	r.OnLastDisconnect(func(user identity.Identity) {
		lastDisconnects = append(lastDisconnects, user.ID)
	})

	require.NoError(t, r.Admit(testIdentity("alice"), "conn-1", &stubPusher{}))
	require.NoError(t, r.Admit(testIdentity("alice"), "conn-2", &stubPusher{}))

	// Only the empty-to-non-empty transition fires.
	assert.Equal(t, []string{"alice"}, firstConnects)

	r.Remove("conn-1")
	assert.Empty(t, lastDisconnects)

	r.Remove("conn-2")
	assert.Equal(t, []string{"alice"}, lastDisconnects)
}

func TestRegistryObserverRunsOutsideLock(t *testing.T) {
	r := NewRegistry()

	// An observer that reads the registry back would deadlock if callbacks
	// ran under the write lock.
	r.OnFirstConnect(func(user identity.Identity) {
		assert.True(t, r.IsOnline(user.ID))
	})
	r.OnLastDisconnect(func(user identity.Identity) {
		assert.False(t, r.IsOnline(user.ID))
	})

	require.NoError(t, r.Admit(testIdentity("alice"), "conn-1", &stubPusher{}))
	r.Remove("conn-1")
}

func TestRegistryRemoveUnknownConnIsNoOp(t *testing.T) {
	r := NewRegistry()

	fired := false
	r.OnLastDisconnect(func(identity.Identity) { fired = true })

	r.Remove("never-admitted")
	assert.False(t, fired)
}

func TestRegistryIdentityOfUnknownConn(t *testing.T) {
	r := NewRegistry()

	_, err := r.IdentityOf("nope")
	require.Error(t, err)
	assert.Equal(t, errs.ErrNotFound, errs.CodeOf(err))

	_, ok := r.PusherOf("nope")
	assert.False(t, ok)
}

func TestRegistryConcurrentAdmitRemove(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", n)
			userID := fmt.Sprintf("user-%d", n%5)
			_ = r.Admit(testIdentity(userID), connID, &stubPusher{})
			r.Remove(connID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		assert.False(t, r.IsOnline(fmt.Sprintf("user-%d", i)))
	}
}
