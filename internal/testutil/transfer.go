package testutil

import (
	"context"
	"io"
	"sync"

	"notebox/internal/nb"
)

// FakeTransferrer is a scripted nb.Transferrer. It drives the hooks the
// way the HTTP executor does: BeforeStream after negotiation, progress while
// reading the content, and 100 once verification succeeds.
type FakeTransferrer struct {
	// Link is returned on success. Defaults to "https://drive.example/files/<name>".
	Link string
	// NegotiateErr fails the transfer before BeforeStream runs.
	NegotiateErr error
	// VerifyErr fails the transfer after the content was streamed.
	VerifyErr error
	// Progress lists the percentages reported while streaming.
	Progress []int
	// Release, when non-nil, is waited on after streaming so tests can
	// observe an in-flight transfer. Started is closed when that wait begins.
	Release chan struct{}
	Started chan struct{}

	mu       sync.Mutex
	calls    int
	received [][]byte
}

// NewFakeTransferrer returns a FakeTransferrer that succeeds.
func NewFakeTransferrer() *FakeTransferrer {
	return &FakeTransferrer{Progress: []int{25, 50, 75}}
}

func (f *FakeTransferrer) Transfer(ctx context.Context, file *nb.LocalFile, hooks nb.TransferHooks) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.NegotiateErr != nil {
		return "", f.NegotiateErr
	}
	if hooks.BeforeStream != nil {
		if err := hooks.BeforeStream(); err != nil {
			return "", err
		}
	}

	data, err := io.ReadAll(file.Content)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.received = append(f.received, data)
	f.mu.Unlock()

	for _, p := range f.Progress {
		if hooks.OnProgress != nil {
			hooks.OnProgress(p)
		}
	}

	if f.Release != nil {
		if f.Started != nil {
			close(f.Started)
		}
		select {
		case <-f.Release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.VerifyErr != nil {
		return "", f.VerifyErr
	}
	if hooks.OnProgress != nil {
		hooks.OnProgress(100)
	}

	if f.Link != "" {
		return f.Link, nil
	}
	return "https://drive.example/files/" + file.Name, nil
}

// Calls returns how many transfers were attempted.
func (f *FakeTransferrer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Received returns the content of every streamed file.
func (f *FakeTransferrer) Received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.received...)
}

var _ nb.Transferrer = (*FakeTransferrer)(nil)
