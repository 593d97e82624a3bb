package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"vccore/pkg/apierror"
	"vccore/pkg/configuration"
	"vccore/pkg/issuance"
	"vccore/pkg/jose"
	"vccore/pkg/keyresolver"
	"vccore/pkg/logger"
	"vccore/pkg/openid4vci"
	"vccore/pkg/signing"
	"vccore/pkg/statestore"
)

type service interface {
	Close(ctx context.Context) error
}

func main() {
	var wg sync.WaitGroup
	ctx := context.Background()

	services := make(map[string]service)

	cfg, err := configuration.New(ctx)
	if err != nil {
		panic(err)
	}

	log, err := logger.New("vc_issuer", cfg.Common.Log.FolderPath, cfg.Common.Production)
	if err != nil {
		panic(err)
	}

	signingKey, err := jose.ParseSigningKey(cfg.Issuer.SigningKeyPath)
	if err != nil {
		panic(err)
	}
	signer, err := signing.NewSoftwareSigner(signingKey, cfg.Issuer.Identifier+"#key-1")
	if err != nil {
		panic(err)
	}

	store := statestore.NewMemory()
	services["stateStore"] = closerFunc(func(context.Context) error { store.Stop(); return nil })

	core := issuance.New(cfg.Issuer.Identifier, store, newMemoryDatastore(), newDemoSubject(), signer, issuerMetadata(cfg.Issuer.Identifier))
	core.DIDResolver = keyresolver.NewLocalResolver()

	httpService := newHTTPServer(cfg.Issuer.APIServer.Addr, core, log.New("http"))
	services["httpService"] = httpService

	// Handle sigterm and await termChan signal
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan // Blocks here until interrupted

	mainLog := log.New("main")
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

// issuerMetadata builds the credential_issuer metadata document advertising
// a single demonstration SD-JWT VC configuration.
func issuerMetadata(issuer string) *openid4vci.CredentialIssuerMetadataParameters {
	return &openid4vci.CredentialIssuerMetadataParameters{
		CredentialIssuer:           issuer,
		CredentialEndpoint:         issuer + "/credential",
		DeferredCredentialEndpoint: issuer + "/deferred_credential",
		NotificationEndpoint:       issuer + "/notification",
		CredentialConfigurationsSupported: map[string]openid4vci.CredentialConfigurationsSupported{
			"pid_sd_jwt": {
				Format:                               "dc+sd-jwt",
				VCT:                                  "urn:eudi:pid:1",
				CryptographicBindingMethodsSupported: []string{"jwk"},
				CredentialSigningAlgValuesSupported:  []string{"ES256"},
				ProofTypesSupported: map[string]openid4vci.ProofsTypesSupported{
					"jwt": {ProofSigningAlgValuesSupported: []string{"ES256"}},
				},
				CredentialDefinition: openid4vci.CredentialDefinition{
					Type:              []string{"VerifiableCredential", "PersonIdentificationData"},
					CredentialSubject: map[string]openid4vci.CredentialSubject{},
				},
			},
		},
	}
}

// httpServer adapts issuance.Core's operations onto the wire endpoints of
// spec.md §6 using stdlib net/http, the way a collaborator outside the
// core is expected to drive it.
type httpServer struct {
	core   *issuance.Core
	log    *logger.Log
	server *http.Server
}

func newHTTPServer(addr string, core *issuance.Core, log *logger.Log) *httpServer {
	s := &httpServer{core: core, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-credential-issuer", s.handleMetadata)
	mux.HandleFunc("POST /create_offer", s.handleCreateOffer)
	mux.HandleFunc("GET /credential_offer/{token}", s.handleCredentialOffer)
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("POST /nonce", s.handleNonce)
	mux.HandleFunc("POST /credential", s.handleCredential)
	mux.HandleFunc("POST /deferred_credential", s.handleDeferredCredential)
	mux.HandleFunc("POST /notification", s.handleNotification)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /status_list/revocation", s.handleStatusList)

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

func (s *httpServer) handleMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Metadata)
}

func (s *httpServer) handleStatusList(w http.ResponseWriter, r *http.Request) {
	token, err := s.core.StatusListCredential(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/statuslist+jwt")
	_, _ = w.Write([]byte(token))
}

func (s *httpServer) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var in issuance.CreateOfferInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	result, err := s.core.CreateOffer(r.Context(), in)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *httpServer) handleCredentialOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.core.CredentialOffer(r.Context(), r.PathValue("token"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *httpServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	req := &openid4vci.TokenRequest{
		DPOP:              r.Header.Get("DPoP"),
		GrantType:         r.PostFormValue("grant_type"),
		PreAuthorizedCode: r.PostFormValue("pre-authorized_code"),
		TXCode:            r.PostFormValue("tx_code"),
		Code:              r.PostFormValue("code"),
		RedirectURI:       r.PostFormValue("redirect_uri"),
		ClientID:          r.PostFormValue("client_id"),
		CodeVerifier:      r.PostFormValue("code_verifier"),
	}
	resp, err := s.core.Token(r.Context(), req)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *httpServer) handleNonce(w http.ResponseWriter, r *http.Request) {
	resp, err := s.core.Nonce(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *httpServer) handleCredential(w http.ResponseWriter, r *http.Request) {
	var req openid4vci.CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	req.Authorization = r.Header.Get("Authorization")
	req.DPoP = r.Header.Get("DPoP")

	resp, err := s.core.Credential(r.Context(), bearerToken(req.Authorization), &req)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *httpServer) handleDeferredCredential(w http.ResponseWriter, r *http.Request) {
	var req openid4vci.DeferredCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	resp, err := s.core.DeferredCredential(r.Context(), bearerToken(r.Header.Get("Authorization")), &req)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *httpServer) handleNotification(w http.ResponseWriter, r *http.Request) {
	var req openid4vci.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	if err := s.core.Notification(r.Context(), bearerToken(r.Header.Get("Authorization")), &req); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *httpServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req issuance.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, apierror.New(apierror.ErrInvalidRequest, err.Error()))
		return
	}
	resp, err := s.core.Register(r.Context(), bearerToken(r.Header.Get("Authorization")), &req)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func bearerToken(header string) string {
	return strings.TrimPrefix(header, "Bearer ")
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
