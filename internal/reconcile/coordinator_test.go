// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/inkwell/internal/document"
)

func TestCoordinator_BeginSupersedesInFlight(t *testing.T) {
	s := newSurface(t, "<p>old</p>")
	coord := NewCoordinator(s)

	first, err := coord.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Generation())
	assert.True(t, coord.Busy())

	// The first session keeps its stream open until it is canceled.
	ch := make(chan Delta, 1)
	ch <- Text{"<p>first</p>"}
	firstDone := make(chan Result, 1)
	go func() {
		defer first.Release()
		firstDone <- NewSession(first.Surface(), testSessionConfig()).Run(first.Context(), ch)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	second, err := coord.Begin(ctx)
	require.NoError(t, err)
	defer second.Release()

	res := <-firstDone
	assert.Equal(t, StatusCanceled, res.Status)
	assert.Equal(t, uint64(2), second.Generation())
	assert.Equal(t, uint64(2), coord.Generation())

	// Writes through the superseded lease are rejected.
	slice, err := s.Parse("<p>stale</p>")
	require.NoError(t, err)
	_, err = first.Surface().ReplaceRange(0, s.Size(), slice)
	assert.True(t, errors.Is(err, ErrSuperseded))
	assert.NotContains(t, s.HTML(), "stale")

	// The current lease writes normally.
	res = NewSession(second.Surface(), testSessionConfig()).Run(second.Context(), feed(Text{"<p>second</p>"}, End{}))
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "<p>second</p>", s.HTML())
}

func TestCoordinator_Cancel(t *testing.T) {
	coord := NewCoordinator(newSurface(t, "<p></p>"))
	coord.Cancel()

	lease, err := coord.Begin(context.Background())
	require.NoError(t, err)
	coord.Cancel()

	select {
	case <-lease.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("lease context not canceled")
	}
	lease.Release()
	lease.Release()
	assert.False(t, coord.Busy())
}

func TestCoordinator_BeginHonorsContext(t *testing.T) {
	coord := NewCoordinator(newSurface(t, "<p></p>"))
	held, err := coord.Begin(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = coord.Begin(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLeaseSurface_PassesReads(t *testing.T) {
	s := newSurface(t, "<p>abc</p>")
	require.NoError(t, s.SetSelection(document.Range{From: 1, To: 3}))
	coord := NewCoordinator(s)
	lease, err := coord.Begin(context.Background())
	require.NoError(t, err)
	defer lease.Release()

	ls := lease.Surface()
	assert.Equal(t, s.Size(), ls.Size())
	assert.Equal(t, document.Range{From: 1, To: 3}, ls.Selection())
}
