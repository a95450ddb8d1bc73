package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/plot-booking-backend/internal/events"
	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	"github.com/nekogravitycat/plot-booking-backend/internal/notify"
)

// RecordingNotifier records messages. It can be told to fail or to stall.
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
	delay    time.Duration
}

func (n *RecordingNotifier) Fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Stall delays every send by d, or until the context ends.
func (n *RecordingNotifier) Stall(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delay = d
}

func (n *RecordingNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	err, delay := n.err, n.delay
	n.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", notify.ErrDeliveryFailed, ctx.Err())
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", notify.ErrDeliveryFailed, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *RecordingNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}

// MemoryArtifacts stores uploads in memory and tracks which still exist.
type MemoryArtifacts struct {
	mu        sync.Mutex
	files     map[string][]byte
	uploadErr error
}

func NewMemoryArtifacts() *MemoryArtifacts {
	return &MemoryArtifacts{files: map[string][]byte{}}
}

func (a *MemoryArtifacts) FailUpload(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploadErr = err
}

func (a *MemoryArtifacts) Upload(_ context.Context, in file.UploadInput) (*file.File, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.uploadErr != nil {
		return nil, a.uploadErr
	}
	content, err := io.ReadAll(in.Content)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, file.ErrEmpty
	}
	id := uuid.NewString()
	a.files[id] = content
	return &file.File{ID: id, UserID: in.UserID, Filename: in.Filename, ContentType: in.ContentType, Size: int64(len(content)), CreatedAt: time.Now().UTC()}, nil
}

func (a *MemoryArtifacts) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, id)
	return nil
}

// Exists reports whether artifact id is still stored.
func (a *MemoryArtifacts) Exists(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.files[id]
	return ok
}

func (a *MemoryArtifacts) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.files)
}

// Put stores content under a fresh id, as if uploaded earlier.
func (a *MemoryArtifacts) Put(content []byte) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := uuid.NewString()
	a.files[id] = content
	return id
}

// EventRecorder is an events.Publisher that keeps everything it receives.
type EventRecorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *EventRecorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *EventRecorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *EventRecorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *EventRecorder) Types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// ErrBoom is a generic injected failure.
var ErrBoom = errors.New("boom")

// MemoryFileRepo is a file.Repository kept in memory.
type MemoryFileRepo struct {
	mu     sync.Mutex
	files  map[string]*file.File
	linked map[string]bool
}

func NewMemoryFileRepo() *MemoryFileRepo {
	return &MemoryFileRepo{files: map[string]*file.File{}, linked: map[string]bool{}}
}

// Link marks a file as referenced by a reservation.
func (r *MemoryFileRepo) Link(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linked[id] = true
}

func (r *MemoryFileRepo) ListOrphaned(_ context.Context, before time.Time, limit int) ([]*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*file.File
	for id, f := range r.files {
		if !r.linked[id] && f.CreatedAt.Before(before) {
			cp := *f
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *file.File) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryFileRepo) Create(_ context.Context, f *file.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *MemoryFileRepo) GetByID(_ context.Context, id string) (*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, file.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *MemoryFileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

func (r *MemoryFileRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}
