package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"vccore/pkg/apierror"
	"vccore/pkg/configuration"
	"vccore/pkg/jose"
	"vccore/pkg/logger"
	"vccore/pkg/presentation"
	"vccore/pkg/signing"
	"vccore/pkg/statestore"
	"vccore/pkg/vcmodel"
)

type service interface {
	Close(ctx context.Context) error
}

func main() {
	var (
		wg       = &sync.WaitGroup{}
		ctx      = context.Background()
		services = make(map[string]service)
	)

	cfg, err := configuration.New(ctx)
	if err != nil {
		panic(err)
	}

	log, err := logger.New("vc_verifier", cfg.Common.Log.FolderPath, cfg.Common.Production)
	if err != nil {
		panic(err)
	}
	mainLog := log.New("main")

	store := statestore.NewMemory()
	services["stateStore"] = closerFunc(func(context.Context) error { store.Stop(); return nil })

	registry := newDemoKeyRegistry()
	core := presentation.New(cfg.Verifier.Identifier, store, &presentation.SDJWTVerifier{Resolver: registry})
	core.Status = &presentation.HTTPStatusResolver{}

	if cfg.Verifier.SigningKeyPath != "" {
		signingKey, err := jose.ParseSigningKey(cfg.Verifier.SigningKeyPath)
		if err != nil {
			panic(err)
		}
		signer, err := signing.NewSoftwareSigner(signingKey, cfg.Verifier.Identifier+"#key-1")
		if err != nil {
			panic(err)
		}
		core.Signer = signer
	}

	httpService := newHTTPServer(cfg.Verifier.APIServer.Addr, core, registry, log.New("http"))
	services["httpService"] = httpService

	// Handle sigterm and await termChan signal
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan // Blocks here until interrupted

	mainLog.Info("HALTING SIGNAL!")

	for serviceName, svc := range services {
		if err := svc.Close(ctx); err != nil {
			mainLog.Trace("serviceName", serviceName, "error", err)
		}
	}

	wg.Wait() // Block here until are workers are done

	mainLog.Info("Stopped")
}

type closerFunc func(ctx context.Context) error

func (f closerFunc) Close(ctx context.Context) error { return f(ctx) }

// httpServer adapts presentation.Core's operations onto the wire endpoints
// of spec.md §6 using stdlib net/http.
type httpServer struct {
	core     *presentation.Core
	registry *demoKeyRegistry
	log      *logger.Log
	server   *http.Server
}

func newHTTPServer(addr string, core *presentation.Core, registry *demoKeyRegistry, log *logger.Log) *httpServer {
	s := &httpServer{core: core, registry: registry, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /create_request", s.handleCreateRequest)
	mux.HandleFunc("GET /request_object/{token}", s.handleRequestObject)
	mux.HandleFunc("POST /response", s.handleResponse)
	mux.HandleFunc("POST /issuer_keys", s.handleRegisterIssuerKey)

	s.server = &http.Server{Addr: addr, Handler: s.withLogging(mux)}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Trace("listen_error", "error", err)
		}
	}()
	s.log.Info("started", "addr", addr)

	return s
}

func (s *httpServer) Close(ctx context.Context) error {
	s.log.Info("Quit")
	return s.server.Shutdown(ctx)
}

func (s *httpServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.log.Info("request", "method", r.Method, "url", r.URL.String())
	})
}

func (s *httpServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var in presentation.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	result, err := s.core.CreateRequest(r.Context(), in)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *httpServer) handleRequestObject(w http.ResponseWriter, r *http.Request) {
	req, jws, err := s.core.RequestObject(r.Context(), r.PathValue("token"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if jws != "" {
		w.Header().Set("Content-Type", "application/oauth-authz-req+jwt")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(jws))
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *httpServer) handleResponse(w http.ResponseWriter, r *http.Request) {
	var in presentation.ResponseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	result, err := s.core.Response(r.Context(), in)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRegisterIssuerKey lets a demo deployment register the public key
// of a trusted issuer under the kid its credentials carry, standing in for
// the issuer JWK set / trust list lookup a production verifier would do.
func (s *httpServer) handleRegisterIssuerKey(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Kid string       `json:"kid"`
		JWK *vcmodel.JWK `json:"jwk"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	if in.Kid == "" || in.JWK == nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, "kid and jwk are required"))
		return
	}
	s.registry.Register(in.Kid, in.JWK)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		_ = apierror.WriteJSON(w, apiErr)
		return
	}
	_ = apierror.WriteJSON(w, apierror.New(apierror.ErrServerError, fmt.Sprintf("%v", err)))
}
