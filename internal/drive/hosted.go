package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"notebox/internal/nb"
)

const metaSuffix = ".meta"

// ticketTTL matches the lifetime of a presigned S3 upload URL.
const ticketTTL = 15 * time.Minute

// fileMeta is stored next to each blob.
type fileMeta struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MIMEType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type pendingTicket struct {
	filename string
	mimeType string
	issuedAt time.Time
}

// HostedBackend receives the bytes itself and keeps them in a Vault.
type HostedBackend struct {
	vault     nb.Vault
	publicURL string
	idgen     nb.IDGenerator
	clock     nb.Clock
	logger    nb.Logger

	mu      sync.Mutex
	pending map[string]pendingTicket // issued, not yet uploaded
	stored  []fileMeta               // uploads seen by this process, oldest first
}

// NewHostedBackend creates a HostedBackend. publicURL is the base the
// relay is reachable at, e.g. "http://127.0.0.1:8787".
func NewHostedBackend(vault nb.Vault, publicURL string, idgen nb.IDGenerator, clock nb.Clock, logger nb.Logger) *HostedBackend {
	if idgen == nil {
		idgen = nb.UUIDGenerator{}
	}
	if clock == nil {
		clock = nb.RealClock{}
	}
	if logger == nil {
		logger = nb.NewNopLogger()
	}
	return &HostedBackend{
		vault:     vault,
		publicURL: strings.TrimRight(publicURL, "/"),
		idgen:     idgen,
		clock:     clock,
		logger:    logger,
		pending:   make(map[string]pendingTicket),
	}
}

func (b *HostedBackend) Issue(_ context.Context, filename, mimeType string) (*Ticket, error) {
	id := b.idgen.New()
	now := b.clock.Now()

	b.mu.Lock()
	for pid, t := range b.pending {
		if now.Sub(t.issuedAt) > ticketTTL {
			delete(b.pending, pid)
		}
	}
	b.pending[id] = pendingTicket{filename: filename, mimeType: mimeType, issuedAt: now}
	b.mu.Unlock()

	return &Ticket{UploadURL: b.publicURL + "/upload/" + id, CorrelationID: id}, nil
}

// Finalize resolves fileID when given; an unknown id is ErrFileNotFound.
// Without an id the newest upload with the same filename wins.
func (b *HostedBackend) Finalize(_ context.Context, filename, fileID string) (string, error) {
	if fileID != "" {
		ok, err := b.vault.HasBlob(fileID + metaSuffix)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", fileID, err)
		}
		if !ok {
			return "", ErrFileNotFound
		}
		return b.link(fileID), nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.stored) - 1; i >= 0; i-- {
		if b.stored[i].Filename == filename {
			return b.link(b.stored[i].ID), nil
		}
	}
	return "", ErrFileNotFound
}

// RegisterRoutes adds the byte sink and the download route.
func (b *HostedBackend) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("PUT /upload/{id}", b.handleUpload)
	mux.HandleFunc("GET /files/{id}", b.handleDownload)
}

func (b *HostedBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	ticket, ok := b.pending[id]
	b.mu.Unlock()
	if !ok {
		http.Error(w, "unknown upload id", http.StatusNotFound)
		return
	}
	if b.clock.Now().Sub(ticket.issuedAt) > ticketTTL {
		http.Error(w, "upload url expired", http.StatusGone)
		return
	}

	counted := &countingBody{r: r.Body}
	if err := b.vault.PutBlob(id, counted, r.ContentLength); err != nil {
		b.logger.Error("storing upload", "id", id, "file", ticket.filename, "error", err)
		http.Error(w, "storing upload failed", http.StatusInternalServerError)
		return
	}

	mimeType := ticket.mimeType
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mimeType = ct
	}
	meta := fileMeta{
		ID:         id,
		Filename:   ticket.filename,
		MIMEType:   mimeType,
		Size:       counted.n,
		UploadedAt: b.clock.Now(),
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		http.Error(w, "encoding metadata failed", http.StatusInternalServerError)
		return
	}
	if err := b.vault.PutBlob(id+metaSuffix, bytes.NewReader(raw), int64(len(raw))); err != nil {
		b.logger.Error("storing upload metadata", "id", id, "error", err)
		http.Error(w, "storing metadata failed", http.StatusInternalServerError)
		return
	}

	b.mu.Lock()
	delete(b.pending, id)
	b.stored = append(b.stored, meta)
	b.mu.Unlock()

	b.logger.Info("upload stored", "id", id, "file", meta.Filename, "bytes", meta.Size)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (b *HostedBackend) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var raw bytes.Buffer
	if err := b.vault.GetBlob(id+metaSuffix, &raw); err != nil {
		http.NotFound(w, r)
		return
	}
	var meta fileMeta
	if err := json.Unmarshal(raw.Bytes(), &meta); err != nil {
		b.logger.Error("reading upload metadata", "id", id, "error", err)
		http.Error(w, "corrupt metadata", http.StatusInternalServerError)
		return
	}

	// Buffer the blob so a failed decrypt still yields a clean error status.
	var content bytes.Buffer
	if err := b.vault.GetBlob(id, &content); err != nil {
		b.logger.Error("reading upload", "id", id, "error", err)
		http.Error(w, "reading file failed", http.StatusInternalServerError)
		return
	}

	contentType := meta.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(content.Len()))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": meta.Filename}))
	_, _ = w.Write(content.Bytes())
}

func (b *HostedBackend) link(id string) string {
	return b.publicURL + "/files/" + id
}

type countingBody struct {
	r io.Reader
	n int64
}

func (c *countingBody) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ Backend = (*HostedBackend)(nil)
var _ RouteRegistrar = (*HostedBackend)(nil)
