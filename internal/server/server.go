// Package server exposes the speech handler over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/speech"
)

// Routes.
const (
	RouteGenerateSpeech = "POST /generate-speech"
	RouteHealth         = "GET /health"
)

// Response messages.
const (
	msgNoAuthHeader      = "No Authorization header"
	msgInvalidAuthFormat = "Invalid Authorization header format"
	msgInvalidToken      = "Invalid token"
	msgMissingText       = "Missing text in request body"
	statusSuccess        = "success"
	statusError          = "error"
	statusOK             = "ok"
	bearerScheme         = "bearer"
	headerAuthorization  = "Authorization"
	headerContentType    = "Content-Type"
	contentTypeJSON      = "application/json"
	maxRequestBodyBytes  = 1 << 20
)

// SpeechService is the part of speech.Handler the HTTP layer uses.
type SpeechService interface {
	Synthesize(ctx context.Context, req speech.Request) (*speech.Result, error)
	SpeakerCount() int
}

// generateRequest is the JSON body of POST /generate-speech.
type generateRequest struct {
	Text     *string `json:"text"`
	Speaker  string  `json:"speaker"`
	Language string  `json:"language"`
}

type generateResponse struct {
	Status        string `json:"status"`
	OutputFileURL string `json:"output_file_url"`
	Filename      string `json:"filename"`
}

// errorResponse is the body of every non-2xx reply, including authentication failures.
type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Speakers int    `json:"speakers"`
}

// Server routes HTTP requests to the speech service.
type Server struct {
	service     SpeechService
	bearerToken string
	log         *logger.Logger
}

// New creates a Server that requires bearerToken on synthesis requests.
func New(service SpeechService, bearerToken string, log *logger.Logger) *Server {
	return &Server{service: service, bearerToken: bearerToken, log: log}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(RouteGenerateSpeech, s.requireBearerToken(http.HandlerFunc(s.handleGenerateSpeech)))
	mux.HandleFunc(RouteHealth, s.handleHealth)

	return mux
}

// NewHTTPServer wraps Handler in an http.Server with the given timeouts.
func (s *Server) NewHTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func (s *Server) requireBearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(headerAuthorization)
		if authHeader == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msgNoAuthHeader, Status: statusError})

			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msgInvalidAuthFormat, Status: statusError})

			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.bearerToken)) != 1 {
			s.log.Warn("Rejected request from %s: invalid token", r.RemoteAddr)
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msgInvalidToken, Status: statusError})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGenerateSpeech(w http.ResponseWriter, r *http.Request) {
	var body generateRequest

	decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&body)
	if decodeErr != nil || body.Text == nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgMissingText, Status: statusError})

		return
	}

	result, err := s.service.Synthesize(r.Context(), speech.Request{
		Text:     *body.Text,
		Speaker:  body.Speaker,
		Language: body.Language,
	})
	if err != nil {
		status := statusCode(err)
		s.log.Error("Speech generation failed (%d): %v", status, err)
		s.writeJSON(w, status, errorResponse{Error: err.Error(), Status: statusError})

		return
	}

	s.writeJSON(w, http.StatusOK, generateResponse{
		Status:        statusSuccess,
		OutputFileURL: result.URL,
		Filename:      result.Filename,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: statusOK, Speakers: s.service.SpeakerCount()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)

	encodeErr := json.NewEncoder(w).Encode(payload)
	if encodeErr != nil {
		s.log.Error("Failed to write response: %v", encodeErr)
	}
}

// statusCode maps an error kind onto an HTTP status.
func statusCode(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
