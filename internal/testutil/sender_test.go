package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingSender_RecordsInOrder(t *testing.T) {
	r := NewRecordingSender()
	ctx := context.Background()

	require.NoError(t, r.SendNotification(ctx, "a", map[string]int{"n": 1}))
	require.NoError(t, r.SendNotification(ctx, "b", nil))

	assert.Equal(t, []string{"a", "b"}, r.Methods())
	assert.Equal(t, 2, r.Len())
	assert.JSONEq(t, `{"n":1}`, r.Notifications()[0].JSON())

	r.Reset()
	assert.Zero(t, r.Len())
}

func TestFailingSender_AllMethods(t *testing.T) {
	boom := errors.New("boom")
	f := &FailingSender{Err: boom}

	assert.ErrorIs(t, f.SendNotification(context.Background(), "x", nil), boom)
}

func TestFailingSender_SelectedMethods(t *testing.T) {
	boom := errors.New("boom")
	next := NewRecordingSender()
	f := &FailingSender{Err: boom, Methods: []string{"bad"}, Next: next}

	assert.ErrorIs(t, f.SendNotification(context.Background(), "bad", nil), boom)
	assert.NoError(t, f.SendNotification(context.Background(), "good", nil))
	assert.Equal(t, []string{"good"}, next.Methods())
}
