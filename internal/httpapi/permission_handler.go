package httpapi

import (
	"net/http"
	"strings"

	"grocer-be/internal/permission"
)

// DeviceIDHeader names the install whose permission policy a request reads.
const DeviceIDHeader = "X-Device-ID"

type permissionsRequest struct {
	Statuses map[string]string `json:"statuses"`
}

type permissionsResponse struct {
	State                 permission.State            `json:"state"`
	ShowScreen            *bool                       `json:"show_screen,omitempty"`
	OfferSettingsRedirect bool                        `json:"offer_settings_redirect"`
	Prompts               []permission.SettingsPrompt `json:"prompts"`
}

// reconciler builds a per-request reconciler over the statuses the client
// reported and the device's stored policy.
func (h *Handler) reconciler(w http.ResponseWriter, r *http.Request, needStatuses bool) (*permission.Reconciler, bool) {
	if h.prefs == nil {
		respondError(w, r, http.StatusServiceUnavailable, "preferences_unavailable", "preference store not configured")
		return nil, false
	}

	deviceID := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
	if deviceID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_request", DeviceIDHeader+" header is required")
		return nil, false
	}

	device := permission.ReportedDevice{}
	if needStatuses {
		var req permissionsRequest
		if !decodeJSON(w, r, &req) {
			return nil, false
		}
		d, err := permission.ParseReported(req.Statuses)
		if err != nil {
			handleError(w, r, err)
			return nil, false
		}
		device = d
	}

	return permission.NewReconciler(device, h.prefs.Scoped("permissions:"+deviceID)), true
}

func advise(state permission.State) permissionsResponse {
	prompts := []permission.SettingsPrompt{}
	for _, k := range permission.DeniedKinds(state) {
		prompts = append(prompts, permission.NewSettingsPrompt(k))
	}
	return permissionsResponse{
		State:                 state,
		OfferSettingsRedirect: permission.ShouldOfferSettingsRedirect(state),
		Prompts:               prompts,
	}
}

func (h *Handler) evaluatePermissions(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reconciler(w, r, true)
	if !ok {
		return
	}

	show, err := rec.ShouldPromptNow(r.Context(), h.now())
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := advise(rec.State())
	resp.ShowScreen = &show
	respondJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) requestPermissions(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reconciler(w, r, true)
	if !ok {
		return
	}

	state, err := rec.RequestAll(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, advise(state))
}

func (h *Handler) markPermissionsSeen(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reconciler(w, r, false)
	if !ok {
		return
	}

	if err := rec.MarkScreenSeen(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	if err := rec.RecordCheckTimestamp(r.Context(), h.now()); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
