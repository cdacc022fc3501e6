// Package httpapi exposes the registrar workflow over HTTP.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/communitylink/registrar/internal/app"
	"github.com/communitylink/registrar/internal/app/services/registration"
	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/domain/community"
	"github.com/communitylink/registrar/internal/errors"
	"github.com/communitylink/registrar/internal/httputil"
	"github.com/communitylink/registrar/internal/logging"
	"github.com/communitylink/registrar/internal/middleware"
)

// PublicPaths are served without session authentication. Deep-link capture
// prefixes end in "/" and match any identifier.
var PublicPaths = []string{"/", "/healthz", "/metrics", "/user/", "/member/"}

type handler struct {
	app *app.Application
	log *logging.Logger
}

// NewHandler returns the registrar router.
func NewHandler(application *app.Application, log *logging.Logger) *mux.Router {
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/", h.root).Methods(http.MethodGet)

	// Deep-link capture routes: stash the identifier, bounce to the dashboard.
	r.HandleFunc("/user/{id}", h.capturePending(storage.RoleUser)).Methods(http.MethodGet)
	r.HandleFunc("/member/{id}", h.capturePending(storage.RoleMember)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", h.session).Methods(http.MethodGet)
	api.HandleFunc("/session/connect", h.connect).Methods(http.MethodPost)
	api.HandleFunc("/wallets", h.wallets).Methods(http.MethodGet)
	api.HandleFunc("/communities", h.register).Methods(http.MethodPost)
	api.HandleFunc("/communities/{id}/rules", h.getRules).Methods(http.MethodGet)
	api.HandleFunc("/communities/{id}/rules", h.updateRules).Methods(http.MethodPut)

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "registrar"})
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"service": "registrar"})
}

// capturePending stores the deep-link identifier and redirects to the
// dashboard root. The identifier is stored as-is, without validation.
func (h *handler) capturePending(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := h.app.Registration.CapturePending(r.Context(), role, id); err != nil {
			httputil.WriteError(w, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

type sessionResponse struct {
	State              string `json:"state"`
	Email              string `json:"email"`
	PendingUserID      string `json:"pending_user_id,omitempty"`
	PendingMemberID    string `json:"pending_member_id,omitempty"`
	WalletAddress      string `json:"wallet_address,omitempty"`
	WalletNetwork      string `json:"wallet_network,omitempty"`
	WalletCachePresent bool   `json:"wallet_cached"`
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		httputil.WriteError(w, errors.Unauthorized("session required"))
		return
	}

	resp := sessionResponse{
		State: string(h.app.Gating.StateFor(&session)),
		Email: session.Email,
	}
	if id, err := h.app.Registration.PendingFor(r.Context(), storage.RoleUser); err == nil {
		resp.PendingUserID = id
	}
	if id, err := h.app.Registration.PendingFor(r.Context(), storage.RoleMember); err == nil {
		resp.PendingMemberID = id
	}
	if cached, err := h.app.Wallets.Cached(r.Context()); err == nil {
		resp.WalletAddress = cached.Address
		resp.WalletNetwork = cached.NetworkName
		resp.WalletCachePresent = true
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *handler) connect(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		httputil.WriteError(w, errors.Unauthorized("session required"))
		return
	}

	if err := h.app.Gating.Connect(r.Context(), session); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"state": string(h.app.Gating.StateFor(&session)),
	})
}

func (h *handler) wallets(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		httputil.WriteError(w, errors.Unauthorized("session required"))
		return
	}

	authToken, connected := h.app.Gating.AuthToken(session.UserID)
	if !connected {
		httputil.WriteError(w, errors.Unauthorized("wallet not connected"))
		return
	}

	list, resolution, err := h.app.Wallets.List(r.Context(), authToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"wallets":  list,
		"resolved": resolution,
	})
}

type registerRequest struct {
	CommunityID string `json:"communityId"`
	Name        string `json:"name"`
	Rules       string `json:"rules"`
}

type registerResponse struct {
	Community  community.Community `json:"community"`
	UniqueLink string              `json:"uniqueLink"`
	TxHash     string              `json:"txHash,omitempty"`
	ChainError string              `json:"chainError,omitempty"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		httputil.WriteError(w, errors.Unauthorized("session required"))
		return
	}

	var payload registerRequest
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}

	// Registration is reachable only after the wallet connect step, mirroring
	// the dashboard gating. The resolved wallet itself stays best effort.
	authToken, connected := h.app.Gating.AuthToken(session.UserID)
	if !connected {
		httputil.WriteError(w, errors.Unauthorized("wallet not connected"))
		return
	}

	result, err := h.app.Registration.Register(r.Context(), session, registration.Input{
		CommunityID: payload.CommunityID,
		Name:        payload.Name,
		Rules:       payload.Rules,
		AuthToken:   authToken,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := registerResponse{
		Community:  result.Community,
		UniqueLink: result.Community.UniqueLink,
		TxHash:     result.TxHash,
	}
	if result.ChainErr != nil {
		resp.ChainError = result.ChainErr.Error()
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

type rulesResponse struct {
	CommunityID string `json:"communityId"`
	Rules       string `json:"rules"`
	Found       bool   `json:"found"`
}

func (h *handler) getRules(w http.ResponseWriter, r *http.Request) {
	communityID := mux.Vars(r)["id"]

	record, found, err := h.app.Rules.Get(r.Context(), communityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := rulesResponse{CommunityID: communityID, Found: found}
	if found {
		resp.Rules = record.Rules
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type updateRulesRequest struct {
	Rules string `json:"rules"`
}

func (h *handler) updateRules(w http.ResponseWriter, r *http.Request) {
	communityID := mux.Vars(r)["id"]

	var payload updateRulesRequest
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}

	updated, err := h.app.Rules.Update(r.Context(), communityID, payload.Rules)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rulesResponse{
		CommunityID: updated.CommunityID,
		Rules:       updated.Rules,
		Found:       true,
	})
}
