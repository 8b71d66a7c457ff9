//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

// Package preview provides an HTTP server exposing one session's artifact
// pipeline: message ingestion, artifact listing, preview configuration,
// standalone documents and interchange export.
package preview

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-artifact-go/log"
	"trpc.group/trpc-go/trpc-artifact-go/pipeline"
	"trpc.group/trpc-go/trpc-artifact-go/validator"
)

// Server exposes a pipeline over HTTP.
type Server struct {
	pipeline *pipeline.Pipeline
	router   *mux.Router
}

// New creates a preview server around an existing pipeline. The pipeline
// carries all per-session state; the server is stateless.
func New(p *pipeline.Pipeline) *Server {
	s := &Server{
		pipeline: p,
		router:   mux.NewRouter(),
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/v1/messages", s.handleProcessMessage).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/artifacts", s.handleListArtifacts).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/artifacts/{id}", s.handleGetArtifact).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/artifacts/{id}/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/artifacts/{id}/validation", s.handleValidation).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/artifacts/{id}/preview", s.handlePreview).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/artifacts/{id}/popout", s.handlePopout).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/artifacts/{id}/document", s.handleDocument).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/artifacts/{id}/export", s.handleExport).Methods(http.MethodGet)

	// OPTIONS handler to allow CORS pre-flight.
	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/api/v1/messages", preflight).Methods(http.MethodOptions)
}

type processMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req processMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	out, err := s.pipeline.Process(r.Context(), req.Text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, out)
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.pipeline.Store().List())
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	record := s.pipeline.Store().Get(mux.Vars(r)["id"])
	if record == nil {
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, record)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	record := s.pipeline.Store().Get(mux.Vars(r)["id"])
	if record == nil {
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]any{
		"id":         record.ID,
		"status":     record.BundleStatus,
		"bundle_url": record.BundleURL,
		"last_error": record.LastError,
	})
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.Validate(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, result)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	config, err := s.pipeline.Preview(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(config))
}

func (s *Server) handlePopout(w http.ResponseWriter, r *http.Request) {
	config, err := s.pipeline.Popout(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(config))
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.pipeline.StandaloneDocument(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.pipeline.Export(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=artifact.json")
	_, _ = w.Write(data)
}

// writeError maps pipeline errors onto HTTP statuses. Validation failures
// return the findings so the client can render them inline.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var invalid *pipeline.InvalidArtifactError
	switch {
	case errors.Is(err, pipeline.ErrArtifactNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pipeline.ErrArtifactIncomplete):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &invalid):
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(struct {
			Error      string            `json:"error"`
			Validation *validator.Result `json:"validation"`
		}{Error: invalid.Error(), Validation: invalid.Result})
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("preview: failed to encode response: %v", err)
	}
}
