package cmd

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/destiny-cli/internal/application"
)

func TestBootLabel(t *testing.T) {
	tests := []struct {
		name  string
		event application.Event
		want  string
		ok    bool
	}{
		{name: "refresh", event: application.Event{Kind: application.EventRefresh}, want: "Looking up your Bungie.net account...", ok: true},
		{name: "username found", event: application.Event{Kind: application.EventChanged, Field: "username", To: "Eden"}, want: "Searching Destiny for Eden...", ok: true},
		{name: "username cleared", event: application.Event{Kind: application.EventChanged, Field: "username", To: ""}},
		{name: "other field", event: application.Event{Kind: application.EventChanged, Field: "platform", To: "PlayStation"}},
		{name: "characters merged", event: application.Event{Kind: application.EventUpdate}, want: "Loading characters...", ok: true},
		{name: "refreshed", event: application.Event{Kind: application.EventRefreshed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bootLabel(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBootSpinnerModelFollowsProgress(t *testing.T) {
	progress := make(chan string, 1)
	stop := make(chan struct{})
	m := newBootSpinnerModel("Resolving...", nil, progress, stop)

	progress <- "Searching Destiny for Eden..."
	msg := m.listen()()
	require.Equal(t, bootProgressMsg("Searching Destiny for Eden..."), msg)

	updated, next := m.Update(msg)
	m = updated.(bootSpinnerModel)
	assert.Contains(t, m.View(), "Searching Destiny for Eden...")
	require.NotNil(t, next, "the model keeps listening after a label change")

	close(stop)
	assert.Nil(t, next(), "listening ends once the spinner stopped")

	boom := errors.New("boom")
	updated, _ = m.Update(bootDoneMsg{err: boom})
	m = updated.(bootSpinnerModel)
	assert.Empty(t, m.View())
	assert.ErrorIs(t, m.err, boom)
}

func TestRunBootSpinnerReturnsWaitError(t *testing.T) {
	boom := errors.New("boom")
	progress := make(chan string, 1)
	progress <- "Loading characters..."

	err := runBootSpinner(context.Background(), io.Discard, "Resolving...", progress, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
