package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugeniofciuvasile/ipcc/internal/codec"
)

func TestUpsertCreatesClean(t *testing.T) {
	r := New()
	doc, discarded := r.Upsert("/etc/majestic.yaml", "video0:\n  fps: 60\n", codec.FormatStructured)

	assert.False(t, discarded)
	assert.False(t, doc.Dirty)
	assert.Equal(t, "video0:\n  fps: 60\n", doc.Buffer)
	assert.Equal(t, "video0:\n  fps: 60\n", doc.Raw)
	assert.NoError(t, doc.DecodeErr)
	assert.IsType(t, codec.Structured{}, doc.Content)
	assert.False(t, doc.FetchedAt.IsZero())
}

func TestUpsertReplacesAndDiscardsEdits(t *testing.T) {
	r := New()
	r.Upsert("/etc/majestic.yaml", "video0:\n  fps: 60\n", codec.FormatStructured)
	require.NoError(t, r.SetBuffer("/etc/majestic.yaml", "video0:\n  fps: 120\n"))

	doc, discarded := r.Upsert("/etc/majestic.yaml", "video0:\n  fps: 90\n", codec.FormatStructured)
	assert.True(t, discarded, "a dirty buffer was overwritten")
	assert.False(t, doc.Dirty)
	assert.Equal(t, "video0:\n  fps: 90\n", doc.Buffer)

	fps, ok := doc.Content.(codec.Structured).Doc.Get("video0", "fps")
	require.True(t, ok)
	assert.Equal(t, int64(90), fps.(codec.Scalar).Interface())
	assert.Equal(t, 1, r.Len(), "replacing must not add a second entry")
}

func TestUpsertKeepsUnparseableText(t *testing.T) {
	r := New()
	raw := "video0: [broken\n"
	doc, _ := r.Upsert("/etc/majestic.yaml", raw, codec.FormatStructured)

	var de *codec.DecodeError
	assert.True(t, errors.As(doc.DecodeErr, &de))
	assert.Equal(t, codec.Plain{Text: raw}, doc.Content)
	assert.Equal(t, raw, doc.Buffer)
}

func TestSetBuffer(t *testing.T) {
	r := New()
	r.Upsert("/etc/wfb.conf", "channel=161\n", codec.FormatPlain)

	require.NoError(t, r.SetBuffer("/etc/wfb.conf", "channel=165\n"))
	doc, err := r.Get("/etc/wfb.conf")
	require.NoError(t, err)
	assert.True(t, doc.Dirty)
	assert.Equal(t, "channel=165\n", doc.Buffer)
	assert.Equal(t, "channel=161\n", doc.Raw)
	assert.Equal(t, []string{"/etc/wfb.conf"}, r.Dirty())
}

func TestNotFound(t *testing.T) {
	r := New()
	var nf *NotFoundError

	err := r.SetBuffer("/nope", "x")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "/nope", nf.Path)

	_, err = r.Get("/nope")
	assert.ErrorAs(t, err, &nf)

	_, err = r.Revert("/nope")
	assert.ErrorAs(t, err, &nf)

	_, err = r.MarkSaved("/nope", "x")
	assert.ErrorAs(t, err, &nf)

	assert.Equal(t, 0, r.Len(), "failed lookups must not create entries")
}

func TestRevert(t *testing.T) {
	r := New()
	r.Upsert("/config/rec-fps", "60\n", codec.FormatPlain)
	require.NoError(t, r.SetBuffer("/config/rec-fps", "120\n"))

	doc, err := r.Revert("/config/rec-fps")
	require.NoError(t, err)
	assert.False(t, doc.Dirty)
	assert.Equal(t, "60\n", doc.Buffer)
}

func TestMarkSaved(t *testing.T) {
	r := New()
	r.Upsert("/config/rec-fps", "60\n", codec.FormatPlain)
	require.NoError(t, r.SetBuffer("/config/rec-fps", "120\n"))

	doc, err := r.MarkSaved("/config/rec-fps", "120\n")
	require.NoError(t, err)
	assert.False(t, doc.Dirty)
	assert.Equal(t, "120\n", doc.Synced())
	assert.False(t, doc.SavedAt.IsZero())

	// Revert now goes back to the saved text, not the fetched one.
	require.NoError(t, r.SetBuffer("/config/rec-fps", "30\n"))
	doc, err = r.Revert("/config/rec-fps")
	require.NoError(t, err)
	assert.Equal(t, "120\n", doc.Buffer)
}

func TestMarkSavedAfterFurtherEdit(t *testing.T) {
	r := New()
	r.Upsert("/config/rec-fps", "60\n", codec.FormatPlain)
	require.NoError(t, r.SetBuffer("/config/rec-fps", "120\n"))
	// The user kept typing while the upload of "120\n" was in flight.
	require.NoError(t, r.SetBuffer("/config/rec-fps", "1200\n"))

	doc, err := r.MarkSaved("/config/rec-fps", "120\n")
	require.NoError(t, err)
	assert.True(t, doc.Dirty, "newer edits are still unsaved")
	assert.Equal(t, "1200\n", doc.Buffer)
}

func TestPathsKeepFetchOrder(t *testing.T) {
	r := New()
	paths := []string{"/config/stream.sh", "/config/autoload-wfb-nics.sh", "/config/rec-fps", "/config/screen-mode"}
	for _, p := range paths {
		r.Upsert(p, "x", codec.FormatPlain)
	}
	r.Upsert(paths[0], "y", codec.FormatPlain)

	assert.Equal(t, paths, r.Paths())
	docs := r.Documents()
	require.Len(t, docs, 4)
	assert.Equal(t, "y", docs[0].Buffer)

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Paths())
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	r.Upsert("/etc/wfb.conf", "a", codec.FormatPlain)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.SetBuffer("/etc/wfb.conf", "b")
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Get("/etc/wfb.conf")
			_ = r.Dirty()
		}()
	}
	wg.Wait()

	doc, err := r.Get("/etc/wfb.conf")
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Buffer)
}
