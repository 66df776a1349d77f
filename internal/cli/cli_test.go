package cli

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chararch/bulkop"
	"github.com/chararch/bulkop/status"
	"github.com/chararch/bulkop/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	dir    string
	dbPath string
	config string
}

func newEnv(t *testing.T, items ...*store.Item) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{dir: dir, dbPath: filepath.Join(dir, "shop.db"), config: filepath.Join(dir, "bulkop.yaml")}
	cfg := fmt.Sprintf(`
database:
  driver: "sqlite"
  dsn: %q
  max_open_conns: 1
batch:
  attempt_timeout: "5s"
  retry_backoff: "0s"
  item_delay: "0s"
log:
  level: "error"
`, e.dbPath)
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o644))

	db := e.open(t)
	defer db.Close()
	s := store.New(db)
	require.NoError(t, s.CreateSchema(context.Background()))
	for _, it := range items {
		require.NoError(t, s.Upsert(context.Background(), it))
	}
	return e
}

func (e *env) open(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", e.dbPath)
	require.NoError(t, err)
	return db
}

func (e *env) item(t *testing.T, id string) *store.Item {
	t.Helper()
	db := e.open(t)
	defer db.Close()
	it, err := store.New(db).Get(context.Background(), id)
	require.NoError(t, err)
	return it
}

func (e *env) run(args ...string) (string, error) {
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	e := newEnv(t,
		&store.Item{ID: "a", Title: "Wool coat", Status: store.StatusApproved},
		&store.Item{ID: "b", Title: "Silk scarf", Status: store.StatusApproved},
	)

	out, err := e.run("status", "--to", "live", "--ids", "a,b")
	require.NoError(t, err)
	assert.Contains(t, out, "Wool coat")
	assert.Contains(t, out, "2 succeeded, 0 failed, 0 not processed")
	assert.Contains(t, out, "run id: ")
	assert.Equal(t, store.StatusLive, e.item(t, "a").Status)
	assert.Equal(t, store.StatusLive, e.item(t, "b").Status)

	out, err = e.run("show", ActionStatusChange)
	require.NoError(t, err)
	assert.Contains(t, out, ActionStatusChange)
	assert.Contains(t, out, "phase: "+string(status.PhaseCompleted))
	assert.Contains(t, out, "2 succeeded, 0 failed, 0 not processed")

	out, err = e.run("show", "--json", ActionStatusChange)
	require.NoError(t, err)
	assert.Contains(t, out, `"Name": "status_change"`)
	assert.Contains(t, out, `"to": "live"`)

	_, err = e.run("show", "no-such-run")
	assert.Error(t, err)
}

func TestStatusCommand_ValidationFailure(t *testing.T) {
	e := newEnv(t, &store.Item{ID: "a", Title: "Wool coat", Status: store.StatusApproved})

	out, err := e.run("status", "--to", "live", "--ids", "a,ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 validation error(s)")
	assert.Contains(t, out, "item #2 (ghost): item not found")
	assert.Equal(t, store.StatusApproved, e.item(t, "a").Status)

	_, err = e.run("status", "--to", "lost", "--ids", "a")
	assert.Error(t, err)
}

func TestDiscountCommand_Manifest(t *testing.T) {
	e := newEnv(t,
		&store.Item{ID: "a", Status: store.StatusLive},
		&store.Item{ID: "b", Status: store.StatusApproved},
	)
	manifestPath := filepath.Join(e.dir, "sale.csv")
	require.NoError(t, os.WriteFile(manifestPath, []byte("id\nb\na\n"), 0o644))

	out, err := e.run("discount", "--percent", "20", "--manifest", manifestPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 succeeded")
	assert.Equal(t, 20, e.item(t, "a").DiscountPercent)
	assert.Equal(t, 20, e.item(t, "b").DiscountPercent)
}

func TestSendBackCommand(t *testing.T) {
	e := newEnv(t, &store.Item{ID: "a", Status: store.StatusLive, DiscountPercent: 10})

	_, err := e.run("send-back", "--ids", "a")
	require.NoError(t, err)
	it := e.item(t, "a")
	assert.Equal(t, store.StatusPending, it.Status)
	assert.Equal(t, 0, it.DiscountPercent)
}

func TestImportCommand(t *testing.T) {
	e := newEnv(t)
	manifestPath := filepath.Join(e.dir, "intake.jsonl")
	content := `{"id":"n-1","title":"Denim jacket","price_cents":4500}
{"id":"n-2","title":"Boots","status":"approved"}
`
	require.NoError(t, os.WriteFile(manifestPath, []byte(content), 0o644))

	out, err := e.run("import", "--manifest", manifestPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 succeeded")
	assert.Equal(t, "Denim jacket", e.item(t, "n-1").Title)
	assert.Equal(t, store.StatusApproved, e.item(t, "n-2").Status)

	bad := filepath.Join(e.dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id":"n-3","status":"lost"}`+"\n"), 0o644))
	out, err = e.run("import", "--manifest", bad)
	require.Error(t, err)
	assert.Contains(t, out, "unknown item status:lost")
}

func TestSelectionFlags(t *testing.T) {
	e := newEnv(t)
	_, err := e.run("send-back", "--ids", "a", "--manifest", "x.csv")
	assert.ErrorContains(t, err, "mutually exclusive")
	_, err = e.run("send-back", "--ids", "a", "--ftp")
	assert.ErrorContains(t, err, "--ftp requires --manifest")
	_, err = e.run("import", "--ids", "a")
	assert.ErrorContains(t, err, "import requires --manifest")
	_, err = e.run("send-back")
	assert.ErrorContains(t, err, "1 validation error(s)")
}

func TestConsole(t *testing.T) {
	out := &bytes.Buffer{}
	c := newConsole(out)
	snap := func(st status.ItemStatus, msg string, cancelling bool) *bulkop.Snapshot {
		rec := bulkop.ProcessingRecord{Index: 0, ItemID: "a", Label: "Wool coat", Status: st, Error: msg}
		s := &bulkop.Snapshot{Phase: status.PhaseProcessing, Cancelling: cancelling, Records: []bulkop.ProcessingRecord{rec}}
		s.Progress.Total = 1
		switch st {
		case status.COMPLETED:
			s.Progress.Completed = 1
			s.Progress.PercentComplete = 100
		case status.ERROR:
			s.Progress.Errors = 1
			s.Progress.PercentComplete = 100
		default:
			s.Progress.InFlight = 1
			s.Progress.EstimatedRemaining = 2 * time.Second
		}
		return s
	}

	c.OnProgress(snap(status.PROCESSING, "", false))
	c.OnProgress(snap(status.PROCESSING, "", false))
	c.OnProgress(snap(status.RETRYING, "Retrying (1/2): boom", true))
	c.OnProgress(snap(status.ERROR, "Failed after 3 attempts: boom", true))
	text := out.String()
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("processing")))
	assert.Contains(t, text, "Retrying (1/2): boom")
	assert.Contains(t, text, "Failed after 3 attempts: boom")
	assert.Contains(t, text, "1/1")
	assert.Contains(t, text, "1 failed")
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("cancelling")))

	out.Reset()
	final := snap(status.ERROR, "Processing timeout", false)
	final.Cancelled = true
	final.Records[0].TimedOut = true
	c.summary(final)
	assert.Contains(t, out.String(), "cancelled: 0 succeeded, 1 failed, 0 not processed")
	assert.Contains(t, out.String(), "check before retrying: a")
}
