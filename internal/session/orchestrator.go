// Package session drives a sync against one device: connect, identify the
// device, fetch its managed files into the registry, and push edits back.
//
// Network work happens in Fetch, Upload and UploadAll, which may run on any
// goroutine. Apply, PrepareSave, CompleteSave and Revert mutate the registry
// and are meant to be called from a single coordinating goroutine, such as
// the TUI update loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"al.essio.dev/pkg/shellescape"
	"golang.org/x/sync/errgroup"

	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/logging"
	"github.com/eugeniofciuvasile/ipcc/internal/registry"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
)

var (
	// ErrNoManagedFiles means the resolved device class has no file set, so
	// there is nothing to fetch.
	ErrNoManagedFiles = errors.New("no managed files for this device type")
	// ErrNotDirty is returned when saving a document without edits.
	ErrNotDirty = errors.New("no unsaved changes")
	// ErrBusy is returned when a fetch is requested while another is running.
	ErrBusy = errors.New("a fetch is already in progress")
)

// maxParallelUploads bounds UploadAll. Each upload authenticates on its own
// connection and small devices cap concurrent SSH sessions.
const maxParallelUploads = 4

// Request describes one fetch.
type Request struct {
	Creds config.Credentials
	// Class is the device type selected by the user. Unknown means detect it
	// from the hostname.
	Class device.Class
	// Verify probes the hostname even when Class is set, and fails the fetch
	// when it does not match.
	Verify bool
}

// FileResult is the outcome of reading one managed file.
type FileResult struct {
	File    device.File
	Content string
	Err     error
}

// Report is what Fetch brings back. It is applied to the registry by Apply.
type Report struct {
	Creds    config.Credentials
	Hostname string // empty when the probe was skipped
	Class    device.Class
	Files    []FileResult
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// SaveJob is a snapshot of one buffer on its way to the device.
type SaveJob struct {
	Path  string
	Text  string
	Creds config.Credentials
}

// SaveResult pairs a saved path with its outcome.
type SaveResult struct {
	Path string
	Doc  registry.Document
	Err  error
}

// Orchestrator is the sync state machine for one device at a time.
type Orchestrator struct {
	dial           transport.Dialer
	docs           *registry.Registry
	log            logging.Logger
	commandTimeout time.Duration

	mu     sync.Mutex
	state  State
	saving int
	creds  config.Credentials
	class  device.Class
	hooks  []func(Transition)
}

// New returns an idle orchestrator. A nil logger discards output.
func New(dial transport.Dialer, docs *registry.Registry, log logging.Logger, settings config.Settings) *Orchestrator {
	if log == nil {
		log = logging.Discard
	}
	if docs == nil {
		docs = registry.New()
	}
	timeout := settings.CommandTimeout
	if timeout <= 0 {
		timeout = config.DefaultCommandTimeout
	}
	return &Orchestrator{
		dial:           dial,
		docs:           docs,
		log:            log,
		commandTimeout: timeout,
	}
}

// Registry returns the documents fetched so far.
func (o *Orchestrator) Registry() *registry.Registry { return o.docs }

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Device returns the credentials and class of the last applied fetch.
func (o *Orchestrator) Device() (config.Credentials, device.Class) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.creds, o.class
}

// OnTransition registers fn to be called after every state change. Hooks run
// on the goroutine that caused the change.
func (o *Orchestrator) OnTransition(fn func(Transition)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hooks = append(o.hooks, fn)
}

// move sets the state when allow accepts the current one.
func (o *Orchestrator) move(to State, err error, allow func(State) bool) bool {
	o.mu.Lock()
	from := o.state
	if allow != nil && !allow(from) {
		o.mu.Unlock()
		return false
	}
	o.state = to
	hooks := slices.Clone(o.hooks)
	o.mu.Unlock()

	if from == to {
		return true
	}
	if err != nil {
		o.log.Logf("[Session] %s -> %s: %v", from, to, err)
	} else {
		o.log.Logf("[Session] %s -> %s", from, to)
	}
	t := Transition{From: from, To: to, Err: err}
	for _, h := range hooks {
		h(t)
	}
	return true
}

func (o *Orchestrator) fail(err error) error {
	o.move(Failed, err, nil)
	return err
}

func (o *Orchestrator) run(ctx context.Context, t transport.Transport, cmd string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.commandTimeout)
	defer cancel()
	return t.Run(ctx, cmd)
}

// Fetch connects, optionally probes the hostname, and reads every managed
// file of the resolved class in order. A failed read is recorded in the
// report and the loop moves on. The registry is not touched; pass the report
// to Apply. The connection is always closed before Fetch returns.
//
// Fatal errors are *transport.ConnectionError, *device.MismatchError,
// ErrNoManagedFiles and context errors. The state is then Failed.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (*Report, error) {
	if err := req.Creds.Validate(); err != nil {
		return nil, err
	}
	if !o.move(Connecting, nil, func(s State) bool { return !s.Busy() }) {
		return nil, ErrBusy
	}

	o.log.Logf("[Fetch] Attempting to connect to %s", req.Creds)
	t := o.dial(req.Creds)
	if err := t.Connect(ctx); err != nil {
		t.Close()
		return nil, o.fail(err)
	}
	o.log.Logf("[Fetch] SSH connected to %s", req.Creds.Address())
	defer func() {
		if err := t.Close(); err != nil {
			o.log.Logf("[Fetch] Error closing connection: %v", err)
		}
		o.log.Logf("[Fetch] SSH disconnected")
	}()

	report := &Report{Creds: req.Creds, Class: req.Class}
	if req.Verify || req.Class == device.Unknown {
		o.move(Probing, nil, nil)
		out, err := o.run(ctx, t, "hostname")
		if err != nil {
			return nil, o.fail(fmt.Errorf("probe hostname: %w", err))
		}
		report.Hostname = strings.TrimSpace(out)
		class, err := device.Resolve(req.Class, report.Hostname)
		if err != nil {
			return nil, o.fail(err)
		}
		if class != req.Class {
			o.log.Logf("[Fetch] Detected %s from hostname %q", class.Label(), report.Hostname)
		}
		report.Class = class
	}

	files := device.FileSet(report.Class)
	if len(files) == 0 {
		return nil, o.fail(fmt.Errorf("%s: %w", report.Class.Label(), ErrNoManagedFiles))
	}

	o.move(Fetching, nil, nil)
	for _, f := range files {
		o.log.Logf("[Fetch] Reading %s", f.Path)
		out, err := o.run(ctx, t, "cat "+shellescape.Quote(f.Path))
		if err != nil {
			if ctx.Err() != nil {
				return nil, o.fail(fmt.Errorf("fetch aborted at %s: %w", f.Path, ctx.Err()))
			}
			o.log.Logf("[Fetch] Failed to read %s: %v", f.Path, err)
			report.Files = append(report.Files, FileResult{File: f, Err: fmt.Errorf("read %s: %w", f.Path, err)})
			continue
		}
		report.Files = append(report.Files, FileResult{File: f, Content: out})
	}
	return report, nil
}

// Apply stores the successful results of a fetch in the registry, in fetch
// order, and moves to Ready. A fetch against a different device first drops
// the previous device's documents. Re-fetched paths lose any unsaved edit;
// that is logged as a warning.
func (o *Orchestrator) Apply(r *Report) []registry.Document {
	if r == nil {
		return nil
	}

	o.mu.Lock()
	switched := o.docs.Len() > 0 && (o.creds.Address() != r.Creds.Address() || o.class != r.Class)
	o.creds, o.class = r.Creds, r.Class
	o.mu.Unlock()

	if switched {
		if dirty := o.docs.Dirty(); len(dirty) > 0 {
			o.log.Logf("[Apply] Warning: switching device discards unsaved changes in %s", strings.Join(dirty, ", "))
		}
		o.docs.Reset()
	}

	docs := make([]registry.Document, 0, len(r.Files))
	for _, res := range r.Files {
		if res.Err != nil {
			continue
		}
		doc, discarded := o.docs.Upsert(res.File.Path, res.Content, res.File.Format)
		if discarded {
			o.log.Logf("[Apply] Warning: unsaved changes to %s were replaced by the fetched content", doc.Path)
		}
		if doc.DecodeErr != nil {
			o.log.Logf("[Apply] %v; showing as plain text", doc.DecodeErr)
		}
		docs = append(docs, doc)
	}
	o.log.Logf("[Apply] %d of %d files fetched from %s", len(docs), len(r.Files), r.Creds.Address())
	o.move(Ready, nil, nil)
	return docs
}

// Sync is Fetch followed by Apply, for callers that have no event loop.
func (o *Orchestrator) Sync(ctx context.Context, req Request) (*Report, []registry.Document, error) {
	report, err := o.Fetch(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return report, o.Apply(report), nil
}

// PrepareSave snapshots the buffer of a dirty document and moves to Saving.
// Every successful PrepareSave must be paired with a CompleteSave.
func (o *Orchestrator) PrepareSave(path string) (SaveJob, error) {
	doc, err := o.docs.Get(path)
	if err != nil {
		return SaveJob{}, err
	}
	if !doc.Dirty {
		return SaveJob{}, fmt.Errorf("%s: %w", path, ErrNotDirty)
	}

	o.mu.Lock()
	o.saving++
	creds := o.creds
	o.mu.Unlock()
	o.move(Saving, nil, func(s State) bool { return !s.Busy() })

	return SaveJob{Path: path, Text: doc.Buffer, Creds: creds}, nil
}

// Upload writes a job to the device over a fresh connection, which is closed
// before Upload returns.
func (o *Orchestrator) Upload(ctx context.Context, job SaveJob) error {
	o.log.Logf("[Save] Uploading %s", job.Path)
	t := o.dial(job.Creds)
	if err := t.Connect(ctx); err != nil {
		t.Close()
		return err
	}
	defer t.Close()

	ctx, cancel := context.WithTimeout(ctx, o.commandTimeout)
	defer cancel()
	return t.Upload(ctx, job.Path, []byte(job.Text))
}

// UploadAll runs Upload for every job concurrently, each on its own
// connection. errs[i] is the outcome of jobs[i].
func (o *Orchestrator) UploadAll(ctx context.Context, jobs []SaveJob) []error {
	errs := make([]error, len(jobs))
	var g errgroup.Group
	g.SetLimit(maxParallelUploads)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			errs[i] = o.Upload(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// CompleteSave records the outcome of an upload. On success the uploaded
// text becomes the synced text; on failure the document keeps its buffer and
// stays dirty.
func (o *Orchestrator) CompleteSave(job SaveJob, uploadErr error) (registry.Document, error) {
	var (
		doc registry.Document
		err error
	)
	if uploadErr == nil {
		doc, err = o.docs.MarkSaved(job.Path, job.Text)
		if err == nil {
			o.log.Logf("[Save] File %s saved successfully", job.Path)
		}
	} else {
		err = fmt.Errorf("save %s: %w", job.Path, uploadErr)
		o.log.Logf("[Save] Error saving file: %v", err)
		doc, _ = o.docs.Get(job.Path)
	}

	o.mu.Lock()
	if o.saving > 0 {
		o.saving--
	}
	idle := o.saving == 0
	o.mu.Unlock()
	if idle {
		o.move(Ready, nil, func(s State) bool { return s == Saving })
	}
	return doc, err
}

// Save uploads the buffer of one dirty document.
func (o *Orchestrator) Save(ctx context.Context, path string) (registry.Document, error) {
	job, err := o.PrepareSave(path)
	if err != nil {
		return registry.Document{}, err
	}
	return o.CompleteSave(job, o.Upload(ctx, job))
}

// SaveAll saves every dirty document. A failure on one path does not stop
// the others; the returned error joins all failures.
func (o *Orchestrator) SaveAll(ctx context.Context) ([]SaveResult, error) {
	var jobs []SaveJob
	for _, path := range o.docs.Dirty() {
		job, err := o.PrepareSave(path)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}

	uploadErrs := o.UploadAll(ctx, jobs)
	results := make([]SaveResult, len(jobs))
	var errs []error
	for i, job := range jobs {
		doc, err := o.CompleteSave(job, uploadErrs[i])
		results[i] = SaveResult{Path: job.Path, Doc: doc, Err: err}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// Revert drops the edits of one document.
func (o *Orchestrator) Revert(path string) (registry.Document, error) {
	doc, err := o.docs.Revert(path)
	if err != nil {
		return doc, err
	}
	o.log.Logf("[Revert] Changes to %s discarded", path)
	return doc, nil
}
