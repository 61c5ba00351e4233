package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
)

// evalRequest carries instructions plus data local to the request. Request
// merge values win over configured resolvers.
type evalRequest struct {
	Instruction  string                 `json:"instruction,omitempty"`
	Instructions []string               `json:"instructions,omitempty"`
	Merge        map[string]interface{} `json:"merge,omitempty"`
	Variables    map[string]interface{} `json:"variables,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
	Bookmarks    map[string]interface{} `json:"bookmarks,omitempty"`
}

type fieldResult struct {
	Instruction string `json:"instruction"`
	Status      string `json:"status"`
	Text        string `json:"text"`
	Error       string `json:"error,omitempty"`
}

type evalResponse struct {
	Results []fieldResult `json:"results"`
}

type conditionResponse struct {
	Condition bool `json:"condition"`
	Valid     bool `json:"valid"`
}

type server struct {
	app     *app
	metrics *docfield.Metrics
}

// newHandler wires the HTTP API. Metrics are registered with reg.
func newHandler(a *app, reg *prometheus.Registry) (http.Handler, error) {
	metrics, err := docfield.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	s := &server{app: a, metrics: metrics}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/eval", s.Eval)
		r.Post("/condition", s.Condition)
	})
	return r, nil
}

func (s *server) newEvaluator(req evalRequest) *docfield.Evaluator {
	var extra []docfield.ValueResolver
	if len(req.Merge) > 0 {
		extra = append(extra, docfield.NewMapResolver(docfield.ResolveMergeField, req.Merge))
	}
	ec := s.app.newContext(extra, docfield.WithMetrics(s.metrics))
	seed(ec, req.Properties, req.Variables, req.Bookmarks)
	return docfield.NewEvaluator(ec)
}

// maxRequestBody bounds the JSON body of an API request.
const maxRequestBody = 1 << 20

func decode(w http.ResponseWriter, r *http.Request) (evalRequest, bool) {
	var req evalRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return req, false
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	if req.Instruction != "" {
		req.Instructions = append([]string{req.Instruction}, req.Instructions...)
	}
	if len(req.Instructions) == 0 {
		http.Error(w, "No instruction given", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// Eval handles POST /v1/eval. Instructions share one context.
func (s *server) Eval(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	ev := s.newEvaluator(req)

	resp := evalResponse{Results: make([]fieldResult, 0, len(req.Instructions))}
	for _, text := range req.Instructions {
		res, err := ev.Eval(r.Context(), docfield.NewFieldInstruction(text))
		if err != nil {
			s.fail(w, err)
			return
		}
		fr := fieldResult{
			Instruction: text,
			Status:      res.Status.String(),
			Text:        res.DisplayText(docfield.Parse(text).FieldType),
		}
		if res.Err != nil {
			fr.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, fr)
	}
	s.write(w, resp)
}

// Condition handles POST /v1/condition for the first instruction.
func (s *server) Condition(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	cond, valid, err := s.newEvaluator(req).EvaluateIfCondition(r.Context(), req.Instructions[0])
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, conditionResponse{Condition: cond, Valid: valid})
}

func (s *server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if docfield.IsResolverError(err) {
		status = http.StatusBadGateway
	}
	s.app.logger.Error("evaluation failed: %v", err)
	http.Error(w, err.Error(), status)
}

func (s *server) write(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.app.logger.Error("encoding response: %v", err)
	}
}
