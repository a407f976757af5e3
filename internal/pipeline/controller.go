package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-extractor/internal/apiclient"
	"github.com/zombor/invoice-extractor/internal/invoice"
	"github.com/zombor/invoice-extractor/internal/poll"
)

// DefaultCompletionDelay is the pause between completion and the results view
const DefaultCompletionDelay = 1500 * time.Millisecond

// User-facing failure messages
const (
	MsgTimeout           = "Processing is taking longer than expected. Please try again later."
	MsgStatusUnavailable = "Unable to check processing status. Please try again."
	MsgProcessingFailed  = "Processing failed. Please try again."
)

// Steps runs the individual pipeline operations; *Service implements it
type Steps interface {
	Upload(ctx context.Context, f SelectedFile) (UploadReference, error)
	Process(ctx context.Context, ref UploadReference) (ProcessResult, error)
	CheckStatus(ctx context.Context, id string) (poll.Status, error)
	FetchExtraction(ctx context.Context, id string) (any, error)
}

// ControllerConfig parameterises a Controller
type ControllerConfig struct {
	Profile Profile
	Poll    poll.Config
	// CompletionDelay is waited after completion before OnNavigate fires
	CompletionDelay time.Duration
	// OnNavigate is called once per successful cycle, when results are ready
	OnNavigate func(Session)
	// NewID synthesises an extraction id when the service omits one
	NewID func() string
}

// Controller owns the single session and runs one cycle at a time.
// Submitting a new file supersedes whatever cycle is running.
type Controller struct {
	steps  Steps
	cfg    ControllerConfig
	poller *poll.Poller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// pollMu orders poller starts against supersession
	pollMu sync.Mutex

	mu          sync.Mutex
	session     Session
	generation  int
	cycleCancel context.CancelFunc
	done        chan struct{}
	closed      bool
}

// ErrClosed is returned by Submit after Close
var ErrClosed = errors.New("controller closed")

// NewController creates a Controller with an idle session
func NewController(steps Steps, cfg ControllerConfig) *Controller {
	if cfg.CompletionDelay < 0 {
		cfg.CompletionDelay = 0
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		steps:  steps,
		cfg:    cfg,
		poller: poll.New(cfg.Poll),
		ctx:    ctx,
		cancel: cancel,
	}
	c.session.Reset()
	return c
}

// Profile returns the transport profile the controller runs
func (c *Controller) Profile() Profile {
	return c.cfg.Profile
}

// Submit validates f and starts a new cycle for it. A rejected file leaves
// the current session untouched.
func (c *Controller) Submit(f SelectedFile) error {
	if err := Validate(f, c.cfg.Profile); err != nil {
		return err
	}

	c.pollMu.Lock()
	c.poller.Cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.pollMu.Unlock()
		return ErrClosed
	}
	gen := c.supersede()
	ctx, cancel := context.WithCancel(c.ctx)
	c.cycleCancel = cancel
	done := make(chan struct{})
	c.done = done
	c.session.File = &f
	c.session.State = StateUploading
	c.session.Progress = 10
	c.session.Step = "Uploading"
	c.session.Message = "Uploading " + f.Name
	c.session.StartedAt = time.Now()
	c.mu.Unlock()
	c.pollMu.Unlock()

	slog.Info("Starting extraction", "filename", f.Name, "size", f.Size, "profile", c.cfg.Profile.Name)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		defer cancel()
		c.run(ctx, gen, f)
	}()
	return nil
}

// Reset cancels any running cycle and clears the session
func (c *Controller) Reset() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	c.poller.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersede()
}

// Close cancels the active cycle and poll and waits for them to exit
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.pollMu.Lock()
	c.poller.Cancel()
	c.pollMu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// Snapshot returns a copy of the current session
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Wait blocks until the current cycle finishes or ctx is done and returns
// the session at that point
func (c *Controller) Wait(ctx context.Context) (Session, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

// supersede invalidates the running cycle and resets the session. Callers
// hold c.mu.
func (c *Controller) supersede() int {
	if c.cycleCancel != nil {
		c.cycleCancel()
		c.cycleCancel = nil
	}
	c.generation++
	c.session.Reset()
	return c.generation
}

// update applies fn to the session if gen is still the current cycle
func (c *Controller) update(gen int, fn func(s *Session)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	fn(&c.session)
	return true
}

// fail resets the session, keeping only the user message
func (c *Controller) fail(gen int, message string, err error) {
	if c.update(gen, func(s *Session) {
		s.Reset()
		s.State = StateFailed
		s.Message = message
	}) {
		slog.Warn("Extraction failed", "message", message, "error", err)
	}
}

func (c *Controller) run(ctx context.Context, gen int, f SelectedFile) {
	ref, err := c.steps.Upload(ctx, f)
	if err != nil {
		if ctx.Err() == nil {
			c.fail(gen, "Upload failed: "+reason(err, ErrUploadFailed), err)
		}
		return
	}
	c.update(gen, func(s *Session) {
		s.Upload = &ref
		s.State = StateProcessing
		s.Progress = 30
		s.Step = "Processing"
		s.Message = "Extracting invoice data"
	})

	res, err := c.steps.Process(ctx, ref)
	if err != nil {
		if ctx.Err() == nil {
			c.fail(gen, "Processing failed: "+reason(err, ErrProcessFailed), err)
		}
		return
	}

	if res.Handle == nil {
		c.complete(ctx, gen, "", res.Result)
		return
	}

	handle := *res.Handle
	c.update(gen, func(s *Session) {
		s.Handle = &handle
		s.State = StatePolling
		s.Progress = 40
		s.Step = "Waiting for results"
	})

	check := func(ctx context.Context, attempt int) (poll.Status, error) {
		st, err := c.steps.CheckStatus(ctx, handle.ID)
		if err != nil {
			return st, err
		}
		if _, terminal := st.Terminal(); !terminal {
			c.update(gen, func(s *Session) {
				s.Progress = pollProgress(st.Progress, attempt)
				if st.CurrentStep != "" {
					s.Step = st.CurrentStep
				}
			})
		}
		return st, nil
	}

	c.pollMu.Lock()
	if ctx.Err() != nil {
		c.pollMu.Unlock()
		return
	}
	results := c.poller.Start(ctx, check)
	c.pollMu.Unlock()

	result := <-results
	switch result.Outcome {
	case poll.Completed:
		id := result.Status.ExtractionID
		if id == "" {
			id = c.cfg.NewID()
			slog.Warn("Completed status carries no extraction id, synthesised one", "extraction_id", id)
		}
		c.update(gen, func(s *Session) {
			s.ExtractionID = id
			s.Progress = 100
		})
		data, err := c.steps.FetchExtraction(ctx, id)
		if err != nil {
			if ctx.Err() == nil {
				c.fail(gen, "Failed to load extraction results: "+reason(err, nil), err)
			}
			return
		}
		c.complete(ctx, gen, id, data)
	case poll.Failed:
		msg := result.Status.Error
		if msg == "" {
			msg = MsgProcessingFailed
		}
		c.fail(gen, msg, nil)
	case poll.TimedOut:
		c.fail(gen, MsgTimeout, nil)
	case poll.Errored:
		c.fail(gen, MsgStatusUnavailable, result.Err)
	case poll.Cancelled:
		slog.Debug("Polling cancelled", "processing_id", handle.ID)
	}
}

// complete stores the result, waits out the completion delay and
// navigates to the results exactly once
func (c *Controller) complete(ctx context.Context, gen int, id string, data any) {
	ext := invoice.Normalize(data)
	if !c.update(gen, func(s *Session) {
		s.ExtractionID = id
		s.Result = data
		s.Extraction = ext
		s.Progress = 100
		s.Step = "Completed"
		s.Message = "Extraction complete"
	}) {
		return
	}

	if c.cfg.CompletionDelay > 0 {
		t := time.NewTimer(c.cfg.CompletionDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return
		}
	}

	var snapshot Session
	if !c.update(gen, func(s *Session) {
		s.State = StateReady
		snapshot = *s
	}) {
		return
	}
	slog.Info("Extraction ready", "extraction_id", id, "shape", ext.Shape, "elapsed", time.Since(snapshot.StartedAt))
	if c.cfg.OnNavigate != nil {
		c.cfg.OnNavigate(snapshot)
	}
}

func pollProgress(reported, attempt int) int {
	p := reported
	if p <= 0 {
		p = 40 + attempt
	}
	return max(40, min(p, 95))
}

// reason extracts the message worth showing from a step error
func reason(err error, sentinel error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	msg := err.Error()
	if sentinel != nil {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}
