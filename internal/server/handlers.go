package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/drivegate/internal/proxy"
	"github.com/tonimelisma/drivegate/internal/sharelink"
	"github.com/tonimelisma/drivegate/internal/transfer"
)

var errMissingURL = errors.New("missing 'url' parameter")

// statusFor maps an error to the HTTP status reported to the client:
// bad input is 400, everything else (auth, upstream, internal) is 500.
func statusFor(err error) int {
	var pe *sharelink.ParseError

	switch {
	case errors.As(err, &pe),
		errors.Is(err, proxy.ErrInvalidTarget),
		errors.Is(err, errMissingURL):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and answers with a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	logger := loggerFrom(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	} else {
		logger.Info("request rejected", slog.String("error", err.Error()))
	}

	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	listing, err := s.browser.List(r.Context(), r.PathValue("id"), s.rootID())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	resp, err := s.downloader.Download(r.Context(), r.PathValue("id"), r.Header.Get("Range"), r.URL.Query().Get("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Headers are committed from here on; failures can only be logged.
	if _, err := resp.Stream(w); err != nil {
		loggerFrom(r.Context(), s.logger).Warn("download aborted",
			slog.String("item_id", r.PathValue("id")),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) handleGenerateLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.browser.DirectLink(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// copyResponse is the /api/copy answer.
type copyResponse struct {
	Message   string `json:"message"`
	Outcome   string `json:"outcome"`
	SourceID  string `json:"sourceId"`
	Name      string `json:"name"`
	NewID     string `json:"newId,omitempty"`
	Readiness string `json:"readiness,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("url")
	if link == "" {
		s.writeError(w, r, errMissingURL)
		return
	}

	res, err := s.transfers.Transfer(r.Context(), link, s.rootID())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := copyResponse{
		Message:  res.Message(),
		Outcome:  res.Outcome.String(),
		SourceID: res.SourceID,
		Name:     res.Name,
	}

	if res.Outcome == transfer.OutcomeCompleted {
		body.NewID = res.NewID
		body.Readiness = res.Readiness.State.String()
		body.Attempts = res.Readiness.Attempts
	}

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		s.writeError(w, r, errMissingURL)
		return
	}

	n, err := s.forwarder.Forward(r.Context(), w, r, target)
	if err == nil {
		return
	}

	if errors.Is(err, proxy.ErrInvalidTarget) || errors.Is(err, proxy.ErrUpstreamFailed) {
		s.writeError(w, r, err)
		return
	}

	loggerFrom(r.Context(), s.logger).Warn("proxy stream aborted",
		slog.Int64("bytes_written", n),
		slog.String("error", err.Error()),
	)
}
