// Package transfer implements the three-phase handoff of a local file to
// the remote upload endpoint: negotiate an upload URL, stream the bytes,
// then settle and verify.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notebox/internal/config"
	"notebox/internal/nb"
)

// DefaultSettleDelay is how long to wait between streaming and verification
// so the remote store can index the new file.
const DefaultSettleDelay = 2500 * time.Millisecond

// Outcome classifies the streaming phase.
type Outcome int

const (
	// OutcomeSuccess means the sink acknowledged the bytes.
	OutcomeSuccess Outcome = iota
	// OutcomeAmbiguous means the bytes may or may not have landed. The
	// executor verifies before deciding.
	OutcomeAmbiguous
	// OutcomeFailure means the stream was abandoned locally and there is
	// nothing to verify.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAmbiguous:
		return "ambiguous"
	default:
		return "failure"
	}
}

// StreamResult is the result of the streaming phase.
type StreamResult struct {
	Outcome       Outcome
	CorrelationID string
	Err           error
}

// Executor implements nb.Transferrer over HTTP.
type Executor struct {
	endpoint string
	client   *http.Client
	settle   time.Duration
	timeout  time.Duration // per negotiate/verify call; 0 means none
	logger   nb.Logger
}

// NewExecutor creates an Executor talking to endpoint. A nil client uses
// http.DefaultClient.
func NewExecutor(endpoint string, client *http.Client, settle, timeout time.Duration, logger nb.Logger) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = nb.NewNopLogger()
	}
	return &Executor{
		endpoint: endpoint,
		client:   client,
		settle:   settle,
		timeout:  timeout,
		logger:   logger,
	}
}

// NewExecutorFromConfig creates an Executor from endpoint settings.
func NewExecutorFromConfig(cfg config.EndpointConfig, logger nb.Logger) (*Executor, error) {
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("endpoint url must be http or https, got %q", cfg.URL)
	}
	settle := DefaultSettleDelay
	if cfg.SettleDelayMS > 0 {
		settle = time.Duration(cfg.SettleDelayMS) * time.Millisecond
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	return NewExecutor(cfg.URL, nil, settle, timeout, logger), nil
}

// Transfer implements nb.Transferrer.
func (e *Executor) Transfer(ctx context.Context, file *nb.LocalFile, hooks nb.TransferHooks) (string, error) {
	ticket, err := e.Negotiate(ctx, file)
	if err != nil {
		return "", err
	}
	e.logger.Debug("upload negotiated", "file", file.Name, "correlation_id", ticket.CorrelationID)

	if hooks.BeforeStream != nil {
		if err := hooks.BeforeStream(); err != nil {
			return "", err
		}
	}

	res := e.Stream(ctx, ticket.UploadURL, file, hooks.OnProgress)
	switch res.Outcome {
	case OutcomeFailure:
		return "", fmt.Errorf("streaming %s: %w", file.Name, res.Err)
	case OutcomeAmbiguous:
		e.logger.Warn("upload outcome unknown, verifying", "file", file.Name, "error", res.Err)
	}

	id := res.CorrelationID
	if id == "" {
		id = ticket.CorrelationID
	}

	if err := sleepContext(ctx, e.settle); err != nil {
		return "", fmt.Errorf("%w: %w", nb.ErrVerificationFailed, err)
	}

	link, err := e.Verify(ctx, file.Name, id)
	if err != nil {
		return "", err
	}

	if hooks.OnProgress != nil {
		hooks.OnProgress(100)
	}
	return link, nil
}

// Negotiate asks the endpoint for an upload URL. Any failure is reported
// as nb.ErrEndpointUnavailable.
func (e *Executor) Negotiate(ctx context.Context, file *nb.LocalFile) (*Response, error) {
	resp, err := e.call(ctx, Request{Action: ActionGetURL, Filename: file.Name, MIMEType: file.MIMEType})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nb.ErrEndpointUnavailable, err)
	}
	if resp.Status != StatusSuccess {
		return nil, fmt.Errorf("%w: %s", nb.ErrEndpointUnavailable, remoteMessage(resp, "upload refused"))
	}
	if resp.UploadURL == "" {
		return nil, fmt.Errorf("%w: response has no upload URL", nb.ErrEndpointUnavailable)
	}
	return resp, nil
}

// Stream PUTs the file to uploadURL. It never returns an error directly:
// transport problems and unexpected responses are OutcomeAmbiguous, and
// only local cancellation is OutcomeFailure.
func (e *Executor) Stream(ctx context.Context, uploadURL string, file *nb.LocalFile, onProgress func(int)) StreamResult {
	body := newProgressReader(file.Content, file.Size, onProgress)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return StreamResult{Outcome: OutcomeFailure, Err: fmt.Errorf("building upload request: %w", err)}
	}
	if file.Size >= 0 {
		req.ContentLength = file.Size
	}
	contentType := file.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return StreamResult{Outcome: OutcomeFailure, Err: ctx.Err()}
		}
		return StreamResult{Outcome: OutcomeAmbiguous, Err: fmt.Errorf("%w: %w", nb.ErrTransferAmbiguous, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return StreamResult{Outcome: OutcomeAmbiguous, Err: fmt.Errorf("%w: sink returned %s", nb.ErrTransferAmbiguous, resp.Status)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return StreamResult{Outcome: OutcomeAmbiguous, Err: fmt.Errorf("%w: reading receipt: %w", nb.ErrTransferAmbiguous, err)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return StreamResult{Outcome: OutcomeSuccess}
	}

	var receipt StreamReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return StreamResult{Outcome: OutcomeAmbiguous, Err: fmt.Errorf("%w: unreadable receipt: %w", nb.ErrTransferAmbiguous, err)}
	}
	return StreamResult{Outcome: OutcomeSuccess, CorrelationID: receipt.ID}
}

// Verify asks the endpoint to confirm the upload and return its link.
// fileID may be empty, in which case the endpoint looks the file up by name.
func (e *Executor) Verify(ctx context.Context, filename, fileID string) (string, error) {
	resp, err := e.call(ctx, Request{Action: ActionFinalize, Filename: filename, FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("%w: %w", nb.ErrVerificationFailed, err)
	}
	if resp.Status != StatusSuccess {
		return "", fmt.Errorf("%w: %s", nb.ErrVerificationFailed, remoteMessage(resp, "upload verification failed"))
	}
	if resp.Link == "" {
		return "", fmt.Errorf("%w: response has no link", nb.ErrVerificationFailed)
	}
	return resp.Link, nil
}

func (e *Executor) call(ctx context.Context, payload Request) (*Response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", payload.Action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", payload.Action, err)
	}
	req.Header.Set("Content-Type", RequestContentType)

	httpResp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("endpoint returned %s", httpResp.Status)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", payload.Action, err)
	}
	return &resp, nil
}

func remoteMessage(resp *Response, fallback string) string {
	if resp.Message != "" {
		return resp.Message
	}
	return fallback
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Compile-time check that Executor implements nb.Transferrer interface
var _ nb.Transferrer = (*Executor)(nil)

// IsAmbiguous reports whether err came from an unconfirmed stream.
func IsAmbiguous(err error) bool {
	return errors.Is(err, nb.ErrTransferAmbiguous)
}
