// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperpress/internal/store"
	"github.com/pdiddy/paperpress/pkg/types"
)

func TestNewCreatesTempWorkDir(t *testing.T) {
	cfg := types.DefaultConfig()
	s, err := New(cfg, nil)
	require.NoError(t, err)

	assert.True(t, s.ownsWorkDir)
	_, err = os.Stat(filepath.Join(s.workDir, "uploads.db"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	_, err = os.Stat(s.workDir)
	assert.True(t, os.IsNotExist(err), "owned work dir should be removed on Close")
}

func TestNewKeepsNamedWorkDir(t *testing.T) {
	dir := t.TempDir()
	cfg := types.DefaultConfig()
	cfg.Server.WorkDir = dir

	s, err := New(cfg, nil)
	require.NoError(t, err)

	assert.False(t, s.ownsWorkDir)
	require.NoError(t, s.Close())

	_, err = os.Stat(dir)
	require.NoError(t, err, "named work dir must survive Close")
}

func TestStartShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, func(cfg *types.Config) {
		cfg.Server.Addr = "127.0.0.1:0"
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestSweepRemovesExpiredUploads(t *testing.T) {
	s := newTestServer(t, func(cfg *types.Config) {
		cfg.Server.SweepTTL = time.Millisecond
		cfg.Server.SweepInterval = 5 * time.Millisecond
	})

	fileID := uploadTestPDF(t, s, "paper.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.sweep(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := s.store.Get(context.Background(), fileID); errors.Is(err, store.ErrNotFound) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("upload survived the sweeper")
}

func TestSweepDisabled(t *testing.T) {
	s := newTestServer(t, func(cfg *types.Config) {
		cfg.Server.SweepTTL = 0
	})

	done := make(chan struct{})
	go func() {
		s.sweep(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not return with zero TTL")
	}
}
