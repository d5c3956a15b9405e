/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package srv

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-usbhla/pkg/analyzer"
	"jinr.ru/greenlab/go-usbhla/pkg/config"
	"jinr.ru/greenlab/go-usbhla/pkg/filter"
	"jinr.ru/greenlab/go-usbhla/pkg/log"
	"jinr.ru/greenlab/go-usbhla/pkg/store"
	"jinr.ru/greenlab/go-usbhla/pkg/token"
)

// MaxTokenBody limits the size of an uploaded token capture
const MaxTokenBody = 64 << 20

//go:embed swagger.json
var swaggerJSON []byte

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	state *store.State
	doc   *loads.Document
	// AccessLog receives one line per request
	AccessLog io.Writer
}

func NewApiServer(ctx context.Context, cfg *config.Config, state *store.State) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.Api.Address, cfg.Api.Port)
	doc, err := loads.Analyzed(json.RawMessage(swaggerJSON), "")
	if err != nil {
		return nil, ErrSwagger{Err: err}
	}
	s := &ApiServer{
		Context:   ctx,
		Config:    cfg,
		state:     state,
		doc:       doc,
		AccessLog: log.Writer(),
	}
	s.configureRouter()
	return s, nil
}

// Handler returns the router wrapped with recovery, CORS and access logging
func (s *ApiServer) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(s.AccessLog,
		handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(cors(s.Router)))
}

// Run serves the API until the context is done
func (s *ApiServer) Run() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Api.Address, s.Config.Api.Port)
	log.Info("Starting API server: address: %s version: %s", addr, s.doc.Spec().Info.Version)
	httpServer := &http.Server{
		Handler:           s.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-s.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type RespError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/captures", s.handleCaptures()).Methods("GET")
	subRouter.HandleFunc("/captures/{name}", s.handleCapture()).Methods("GET")
	subRouter.HandleFunc("/captures/{name}", s.handleCaptureDecode()).Methods("POST")
	subRouter.HandleFunc("/captures/{name}", s.handleCaptureDelete()).Methods("DELETE")
	subRouter.HandleFunc("/captures/{name}/records", s.handleRecords()).Methods("GET")
	subRouter.HandleFunc("/captures/{name}/records/{seq:[0-9]+}", s.handleRecord()).Methods("GET")
	subRouter.HandleFunc("/captures/{name}/channels", s.handleChannels()).Methods("GET")

	s.Router.HandleFunc("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(swaggerJSON)
	}).Methods("GET")
	s.Router.Handle("/docs", middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     "docs",
		SpecURL:  "/swagger.json",
		Title:    s.doc.Spec().Info.Title,
	}, http.NotFoundHandler())).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var bucketErr store.ErrBucketNotFound
	var recordErr store.ErrRecordNotFound
	var filterErr filter.ErrFilterCompile
	var queryErr ErrQueryParam
	var kindErr token.ErrTokenKind
	switch {
	case errors.As(err, &bucketErr), errors.As(err, &recordErr):
		code = http.StatusNotFound
	case errors.As(err, &filterErr), errors.As(err, &queryErr), errors.As(err, &kindErr):
		code = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(RespError{Code: code, Message: err.Error()})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	i, err := strconv.ParseInt(v, 0, 64)
	if err != nil || i < 0 {
		return 0, ErrQueryParam{Name: name, Value: v}
	}
	return int(i), nil
}

func (s *ApiServer) handleCaptures() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling captures request")
		captures, err := s.state.GetAllCaptures()
		if err != nil {
			writeError(w, err)
			return
		}
		if captures == nil {
			captures = []*store.Capture{}
		}
		writeJSON(w, captures)
	}
}

func (s *ApiServer) handleCapture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.state.GetCapture(mux.Vars(r)["name"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, c)
	}
}

func (s *ApiServer) handleCaptureDecode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		log.Debug("Handling capture decode request: %s", name)
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxTokenBody))
		if err != nil {
			writeError(w, err)
			return
		}
		tokens, err := token.Parse(body)
		if err != nil {
			writeError(w, ErrQueryParam{Name: "body", Value: err.Error()})
			return
		}
		opts := []analyzer.Option{analyzer.WithDecoderConfig(s.Config.Decoder)}
		base, err := queryInt(r, "base", s.Config.Decoder.Base)
		if err != nil {
			writeError(w, err)
			return
		}
		opts = append(opts, analyzer.WithBase(base))
		if v := r.URL.Query().Get("endpoint"); v != "" {
			ep, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, ErrQueryParam{Name: "endpoint", Value: v})
				return
			}
			opts = append(opts, analyzer.WithDesignatedEndpoint(ep))
		}
		c, err := s.state.Ingest(name, tokens, opts...)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, c)
	}
}

func (s *ApiServer) handleCaptureDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.state.DeleteCapture(mux.Vars(r)["name"]); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, RespError{Code: http.StatusOK, Message: "deleted"})
	}
}

func (s *ApiServer) handleRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		f, err := filter.Compile(r.URL.Query().Get("filter"))
		if err != nil {
			writeError(w, err)
			return
		}
		after, err := queryInt(r, "after", 0)
		if err != nil {
			writeError(w, err)
			return
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			writeError(w, err)
			return
		}
		log.Debug("Handling records request: capture: %s filter: %s after: %d limit: %d", name, f, after, limit)
		records, err := s.state.GetRecords(name, store.Query{After: uint64(after), Limit: limit, Filter: f})
		if err != nil {
			writeError(w, err)
			return
		}
		if records == nil {
			records = []*analyzer.Record{}
		}
		writeJSON(w, records)
	}
}

func (s *ApiServer) handleRecord() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		seq, err := strconv.ParseUint(vars["seq"], 10, 64)
		if err != nil {
			writeError(w, ErrQueryParam{Name: "seq", Value: vars["seq"]})
			return
		}
		rec, err := s.state.GetRecord(vars["name"], seq)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, rec)
	}
}

func (s *ApiServer) handleChannels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.state.GetChannels(mux.Vars(r)["name"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, entries)
	}
}
