package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/snapit/price-scraper/internal/adapter"
	"github.com/snapit/price-scraper/internal/config"
	"github.com/snapit/price-scraper/internal/models"
	"github.com/snapit/price-scraper/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	reloads     int
	screenshots []string
	closed      bool
}

func (f *fakeSession) Reload() error { f.reloads++; return nil }
func (f *fakeSession) Screenshot(path string) error {
	f.screenshots = append(f.screenshots, path)
	return nil
}
func (f *fakeSession) Close() error { f.closed = true; return nil }

type fakeAdapter struct {
	homeErr     error
	openErrs    []error
	blocks      []adapter.Block
	openCalls   int
	relocations int
}

func (f *fakeAdapter) Platform() models.Platform { return models.PlatformZepto }
func (f *fakeAdapter) Home() error               { return f.homeErr }
func (f *fakeAdapter) HandleLocation() error     { f.relocations++; return nil }

func (f *fakeAdapter) Open(term string) ([]adapter.Block, error) {
	call := f.openCalls
	f.openCalls++
	if call < len(f.openErrs) && f.openErrs[call] != nil {
		return nil, f.openErrs[call]
	}
	return f.blocks, nil
}

type fakePersister struct {
	writes [][]models.Record
	locs   []models.StorageLocation
	err    error
}

func (f *fakePersister) Write(ctx context.Context, loc models.StorageLocation, records []models.Record) (int, error) {
	f.writes = append(f.writes, records)
	f.locs = append(f.locs, loc)
	if f.err != nil {
		return 0, f.err
	}
	return len(records), nil
}

type fakeMirror struct {
	appended    []models.Record
	closedFirst bool
	session     *fakeSession
}

func (f *fakeMirror) Append(records []models.Record) error {
	f.appended = records
	f.closedFirst = f.session == nil || f.session.closed
	return nil
}

func productBlocks() []adapter.Block {
	return []adapter.Block{
		{Text: "Amul Butter\n500 g\n₹285"},
		{Text: "Britannia Cheese\n200 g\n₹145"},
	}
}

func newTestRunner(t *testing.T, session *fakeSession, site *fakeAdapter, persister *fakePersister, mirror *fakeMirror) (*Runner, *int) {
	t.Helper()

	prev := settle
	settle = func(time.Duration) {}
	t.Cleanup(func() { settle = prev })

	cfg := &config.Config{
		Zepto: config.PlatformConfig{MongoURI: "mongodb://localhost:27017", Database: "snapit_zepto"},
	}

	factoryCalls := 0
	factory := func() (Session, adapter.Adapter, error) {
		factoryCalls++
		return session, site, nil
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(models.PlatformZepto, factory, store.NewRouter(cfg), persister, mirror, log), &factoryCalls
}

func TestRunEmptyTermsNeverStartsSession(t *testing.T) {
	session := &fakeSession{}
	persister := &fakePersister{}
	mirror := &fakeMirror{}
	r, factoryCalls := newTestRunner(t, session, &fakeAdapter{}, persister, mirror)

	require.NoError(t, r.Run(context.Background(), nil))

	assert.Zero(t, *factoryCalls)
	assert.Empty(t, persister.writes)
	assert.False(t, session.closed)
}

func TestRunRecoversAfterFailedAttempt(t *testing.T) {
	session := &fakeSession{}
	site := &fakeAdapter{
		openErrs: []error{adapter.ErrNoResults},
		blocks:   productBlocks(),
	}
	persister := &fakePersister{}
	mirror := &fakeMirror{session: session}
	r, _ := newTestRunner(t, session, site, persister, mirror)

	require.NoError(t, r.Run(context.Background(), []string{"butter"}))

	assert.Equal(t, 2, site.openCalls)
	assert.Equal(t, 1, session.reloads)
	assert.Equal(t, 1, site.relocations)

	require.Len(t, session.screenshots, 1)
	assert.Contains(t, session.screenshots[0], "timeout")
	assert.Contains(t, session.screenshots[0], "a1")

	require.Len(t, persister.writes, 1)
	assert.Len(t, persister.writes[0], 2)
	assert.Equal(t, "butter", persister.locs[0].Collection)

	assert.True(t, session.closed)
	assert.Len(t, mirror.appended, 2)
	assert.True(t, mirror.closedFirst, "cache flush must follow session teardown")
}

func TestRunExhaustedAttemptsYieldNoRecords(t *testing.T) {
	session := &fakeSession{}
	site := &fakeAdapter{
		openErrs: []error{adapter.ErrNoResults, errors.New("page crashed")},
	}
	persister := &fakePersister{}
	mirror := &fakeMirror{session: session}
	r, _ := newTestRunner(t, session, site, persister, mirror)

	require.NoError(t, r.Run(context.Background(), []string{"butter"}))

	assert.Equal(t, 2, site.openCalls)
	require.Len(t, session.screenshots, 2)
	assert.Contains(t, session.screenshots[1], "error")
	assert.Contains(t, session.screenshots[1], "a2")
	assert.Empty(t, persister.writes)
	assert.Empty(t, mirror.appended)
}

func TestRunStoreFailureDoesNotStopRun(t *testing.T) {
	session := &fakeSession{}
	site := &fakeAdapter{blocks: productBlocks()}
	persister := &fakePersister{err: errors.New("connection refused")}
	mirror := &fakeMirror{session: session}
	r, _ := newTestRunner(t, session, site, persister, mirror)

	require.NoError(t, r.Run(context.Background(), []string{"butter", "cheese"}))

	assert.Len(t, persister.writes, 2)
	assert.Len(t, mirror.appended, 4)
	assert.True(t, session.closed)
}

func TestRunHomeFailureIsFatal(t *testing.T) {
	session := &fakeSession{}
	site := &fakeAdapter{homeErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	persister := &fakePersister{}
	mirror := &fakeMirror{session: session}
	r, _ := newTestRunner(t, session, site, persister, mirror)

	err := r.Run(context.Background(), []string{"butter"})
	require.Error(t, err)

	require.Len(t, session.screenshots, 1)
	assert.Contains(t, session.screenshots[0], "error")
	assert.True(t, session.closed)
	assert.Empty(t, persister.writes)
}

func TestRunFactoryFailureIsFatal(t *testing.T) {
	prev := settle
	settle = func(time.Duration) {}
	t.Cleanup(func() { settle = prev })

	cfg := &config.Config{Zepto: config.PlatformConfig{MongoURI: "mongodb://localhost:27017"}}
	factory := func() (Session, adapter.Adapter, error) {
		return nil, nil, errors.New("browser launch failed")
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	r := New(models.PlatformZepto, factory, store.NewRouter(cfg), &fakePersister{}, &fakeMirror{}, log)

	err := r.Run(context.Background(), []string{"butter"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser launch failed")
}
