package meeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	b := NewBroker()
	s1 := b.Subscribe(2)
	s2 := b.Subscribe(2)
	assert.Equal(t, 2, b.Subscribers())

	e := NewEvent(EventCreated, Meeting{ID: "m1", StudentID: "s1", FacultyID: "f1"})
	assert.Equal(t, 2, b.Publish(e))

	got := <-s1.C
	assert.Equal(t, e, got)
	assert.True(t, got.Concerns("s1"))
	assert.True(t, got.Concerns("f1"))
	assert.False(t, got.Concerns("x"))
	assert.False(t, got.Concerns(""))
	assert.Equal(t, e, <-s2.C)
}

func TestBroker_FullBufferDrops(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe(1)

	assert.Equal(t, 1, b.Publish(NewEvent(EventCreated, Meeting{ID: "a"})))
	assert.Equal(t, 0, b.Publish(NewEvent(EventCreated, Meeting{ID: "b"})))

	assert.Equal(t, "a", (<-s.C).Meeting.ID)
	select {
	case e := <-s.C:
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe(0)
	s.Unsubscribe()
	s.Unsubscribe()

	assert.Equal(t, 0, b.Subscribers())
	assert.Equal(t, 0, b.Publish(NewEvent(EventUpdated, Meeting{ID: "a"})))
	_, ok := <-s.C
	require.False(t, ok)
}
