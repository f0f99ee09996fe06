package nt

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/dNT/lib/service/local"
	"github.com/ValentinKolb/dNT/lib/wire"
	"github.com/stretchr/testify/require"
)

// newTestService creates a fresh local service that is closed with the test.
func newTestService(t *testing.T) *local.Service {
	t.Helper()
	svc, err := local.NewLocalService(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func newTestInstance(t *testing.T) (*Instance, *local.Service) {
	t.Helper()
	svc := newTestService(t)
	return NewInstance(svc), svc
}

// requireNoLeaks checks that every buffer handed out by the service was disposed.
func requireNoLeaks(t *testing.T, svc *local.Service) {
	t.Helper()
	require.Zero(t, svc.Allocator().Live(), "undisposed wire buffers")
}

// countingService counts name resolutions.
type countingService struct {
	*local.Service
	resolves int
}

func (c *countingService) ResolveEntry(name string) (wire.Handle, error) {
	c.resolves++
	return c.Service.ResolveEntry(name)
}

var errBrokenLink = errors.New("broken link")

// brokenService fails every per-entry call after resolution.
type brokenService struct {
	*local.Service
	failResolve bool
}

func (b *brokenService) ResolveEntry(name string) (wire.Handle, error) {
	if b.failResolve {
		return wire.InvalidHandle, errBrokenLink
	}
	return b.Service.ResolveEntry(name)
}

func (b *brokenService) GetEntryType(wire.Handle) (wire.Type, error) {
	return wire.TypeUnassigned, errBrokenLink
}

func (b *brokenService) GetEntryLastChange(wire.Handle) (uint64, error) {
	return 0, errBrokenLink
}

func (b *brokenService) GetEntryName(wire.Handle) ([]byte, error) {
	return nil, errBrokenLink
}

func (b *brokenService) GetEntryValue(wire.Handle) (*wire.Value, error) {
	return nil, errBrokenLink
}

func (b *brokenService) SetEntryValue(wire.Handle, *wire.Value) (bool, error) {
	return false, errBrokenLink
}

func (b *brokenService) ListEntries(string, uint32) (*wire.Buffer[wire.Handle], error) {
	return nil, errBrokenLink
}

// nilArrayService violates the ListEntries contract.
type nilArrayService struct {
	*local.Service
}

func (n *nilArrayService) ListEntries(string, uint32) (*wire.Buffer[wire.Handle], error) {
	return nil, nil
}
