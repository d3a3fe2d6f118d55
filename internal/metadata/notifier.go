package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/types"
)

const defaultBuffer = 256

type eventKind int

const (
	eventUploaded eventKind = iota
	eventConverted
)

type event struct {
	kind     eventKind
	file     types.StoredFile
	fileName string
}

// Notifier delivers status transitions to a Recorder in the background.
// Calls never block the caller and never report failure: errors are logged,
// and events are dropped when the buffer is full. A single worker keeps
// events in the order they were fired, so a record is always created before
// its status is updated.
type Notifier struct {
	recorder Recorder
	logger   *observability.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	events chan event
	done   chan struct{}
}

func NewNotifier(recorder Recorder, logger *observability.Logger, timeout time.Duration) *Notifier {
	n := &Notifier{
		recorder: recorder,
		logger:   logger.WithComponent("metadata"),
		timeout:  timeout,
		events:   make(chan event, defaultBuffer),
		done:     make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Notifier) UploadStored(file *types.StoredFile) {
	n.fire(event{kind: eventUploaded, file: *file, fileName: file.FileName})
}

func (n *Notifier) Converted(fileName string) {
	n.fire(event{kind: eventConverted, fileName: fileName})
}

func (n *Notifier) fire(e event) {
	if n.recorder == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.events <- e:
	default:
		n.logger.Warn().Str("file_name", e.fileName).Msg("metadata buffer full, dropping event")
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for e := range n.events {
		n.deliver(e)
	}
}

func (n *Notifier) deliver(e event) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	var err error
	switch e.kind {
	case eventUploaded:
		err = n.recorder.RecordUpload(ctx, &e.file)
	case eventConverted:
		err = n.recorder.MarkConverted(ctx, e.fileName)
	}
	if err != nil {
		n.logger.Error().Err(err).Str("file_name", e.fileName).Msg("failed to record metadata")
		return
	}
	n.logger.Debug().Str("file_name", e.fileName).Msg("metadata recorded")
}

// Close stops accepting events and waits until the queued ones are delivered.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	close(n.events)
	n.mu.Unlock()
	<-n.done
}
