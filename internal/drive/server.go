package drive

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"notebox/internal/nb"
	"notebox/internal/transfer"
)

// maxRequestBody bounds the JSON body of getUrl and finalize requests.
const maxRequestBody = 64 << 10

// Server is the relay's HTTP front end.
type Server struct {
	backend Backend
	logger  nb.Logger
	mux     *http.ServeMux
}

// NewServer creates a Server for backend.
func NewServer(backend Backend, logger nb.Logger) *Server {
	if logger == nil {
		logger = nb.NewNopLogger()
	}
	s := &Server{backend: backend, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /{$}", s.handleAction)
	if r, ok := backend.(RouteRegistrar); ok {
		r.RegisterRoutes(s.mux)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeResponse(w, http.StatusBadRequest, transfer.Response{Status: transfer.StatusError, Message: "unreadable request"})
		return
	}

	var req transfer.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, http.StatusBadRequest, transfer.Response{Status: transfer.StatusError, Message: "invalid JSON"})
		return
	}

	switch req.Action {
	case transfer.ActionGetURL:
		s.getURL(w, r, req)
	case transfer.ActionFinalize:
		s.finalize(w, r, req)
	default:
		writeResponse(w, http.StatusBadRequest, transfer.Response{Status: transfer.StatusError, Message: "unknown action: " + req.Action})
	}
}

func (s *Server) getURL(w http.ResponseWriter, r *http.Request, req transfer.Request) {
	if req.Filename == "" {
		writeResponse(w, http.StatusBadRequest, transfer.Response{Status: transfer.StatusError, Message: "filename is required"})
		return
	}

	ticket, err := s.backend.Issue(r.Context(), req.Filename, req.MIMEType)
	if err != nil {
		s.logger.Error("issuing upload url", "file", req.Filename, "error", err)
		writeResponse(w, http.StatusBadGateway, transfer.Response{Status: transfer.StatusError, Message: err.Error()})
		return
	}

	s.logger.Info("upload url issued", "file", req.Filename, "correlation_id", ticket.CorrelationID)
	writeResponse(w, http.StatusOK, transfer.Response{
		Status:        transfer.StatusSuccess,
		UploadURL:     ticket.UploadURL,
		CorrelationID: ticket.CorrelationID,
	})
}

// finalize always answers 200; failures are reported in the body.
func (s *Server) finalize(w http.ResponseWriter, r *http.Request, req transfer.Request) {
	link, err := s.backend.Finalize(r.Context(), req.Filename, req.FileID)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, ErrFileNotFound) {
			msg = "File not found in Drive"
			s.logger.Warn("finalize found no file", "file", req.Filename, "file_id", req.FileID)
		} else {
			s.logger.Error("finalizing upload", "file", req.Filename, "error", err)
		}
		writeResponse(w, http.StatusOK, transfer.Response{Status: transfer.StatusError, Message: msg})
		return
	}

	s.logger.Info("upload finalized", "file", req.Filename, "link", link)
	writeResponse(w, http.StatusOK, transfer.Response{Status: transfer.StatusSuccess, Link: link})
}

func writeResponse(w http.ResponseWriter, status int, resp transfer.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
