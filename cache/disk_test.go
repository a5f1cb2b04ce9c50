package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	dir, err := os.MkdirTemp("", "netkit-cache")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	d, err := NewDisk(dir, 10*1024*1024)
	require.NoError(t, err)
	return d
}

func TestDiskPutGet(t *testing.T) {
	ctx := context.Background()
	d := newTestDisk(t)

	require.NoError(t, d.Put(ctx, "k1", []byte("hello"), 0))
	data, ok, err := d.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), data)
}

func TestDiskExpiry(t *testing.T) {
	ctx := context.Background()
	d := newTestDisk(t)

	require.NoError(t, d.Put(ctx, "k1", []byte("hello"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := d.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDiskManifestSurvivesReload(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "netkit-cache")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	d1, err := NewDisk(dir, 10*1024*1024)
	require.NoError(t, err)
	require.NoError(t, d1.Put(ctx, "k1", []byte("hello"), time.Hour))

	d2, err := NewDisk(dir, 10*1024*1024)
	require.NoError(t, err)
	data, ok, err := d2.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), data)
}

func TestDiskEvictsOldestWhenOverCapacity(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "netkit-cache")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	d, err := NewDisk(dir, 1000)
	require.NoError(t, err)

	require.NoError(t, d.Put(ctx, "K1", make([]byte, 400), 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, d.Put(ctx, "K2", make([]byte, 400), 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, d.Put(ctx, "K3", make([]byte, 400), 0))

	_, ok, _ := d.Get(ctx, "K1")
	require.False(t, ok)
	require.LessOrEqual(t, d.Size(), int64(1000))
}

func TestDiskPrunesOrphanFilesOnReload(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "netkit-cache")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	d1, err := NewDisk(dir, 10*1024*1024)
	require.NoError(t, err)
	require.NoError(t, d1.Put(ctx, "k1", []byte("hello"), time.Hour))
	filename := keyToFilename("k1")
	require.True(t, d1.d.Has(filename))

	// Simulate a crash that lost the manifest but left the data file
	// behind: the file set must win the reconciliation, so the orphan
	// gets deleted rather than accumulating forever.
	manifestPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte("{}"), 0o644))

	d2, err := NewDisk(dir, 10*1024*1024)
	require.NoError(t, err)
	require.False(t, d2.d.Has(filename), "orphan file with no manifest entry must be pruned on load")
}

func TestDiskEncryption(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "netkit-cache")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	d, err := NewDisk(dir, 10*1024*1024, WithDiskEncryption("s3cr3t"))
	require.NoError(t, err)

	require.NoError(t, d.Put(ctx, "k1", []byte("sensitive"), 0))
	data, ok, err := d.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("sensitive"), data)
}
