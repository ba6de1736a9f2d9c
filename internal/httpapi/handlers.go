package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HukkaMehu/LePetPal/internal/command"
	"github.com/HukkaMehu/LePetPal/internal/dispenser"
	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
	"github.com/HukkaMehu/LePetPal/internal/speaker"
	"github.com/HukkaMehu/LePetPal/internal/store"
	"github.com/HukkaMehu/LePetPal/internal/video"
)

// handlers holds the collaborators every route needs. Kept unexported —
// Server is the only public entry point, mirroring how BaseAgent hides
// its mux behind Start.
type handlers struct {
	manager   *command.Manager
	store     store.RequestStore
	dispenser dispenser.Dispenser
	speaker   speaker.Speaker
	video     *video.Passthrough
	logger    platform.Logger
}

func registerRoutes(mux *http.ServeMux, h *handlers) {
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/video_feed", h.videoFeed)
	mux.HandleFunc("/command", h.command)
	mux.HandleFunc("/status/", h.statusByID)
	mux.HandleFunc("/status", h.statusNoID)
	mux.HandleFunc("/dispense_treat", h.dispenseTreat)
	mux.HandleFunc("/speak", h.speak)
	mux.HandleFunc("/estop", h.estop)
}

// health always returns 200 (spec.md §4.H, §8: "/health is pure").
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "api": apiVersion, "version": buildVersion})
}

func (h *handlers) videoFeed(w http.ResponseWriter, r *http.Request) {
	if h.video == nil {
		writeJSONError(w, platform.NewDomainError("video_feed", platform.CodeHardware, "video source not configured", nil))
		return
	}
	h.video.ServeHTTP(w, r)
}

type commandRequest struct {
	Prompt  string                 `json:"prompt"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type commandResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// command implements POST /command (spec.md §4.H, §6). "go home" is
// routed to InterruptAndHome and is always 202; every other prompt goes
// through the admission algorithm and may be rejected 409.
func (h *handlers) command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, platform.NewDomainError("command", platform.CodeInvalid, "method not allowed", nil))
		return
	}
	var body commandRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, platform.NewDomainError("command", platform.CodeInvalid, "malformed request body", err))
		return
	}

	prompt, err := domain.ParsePrompt(body.Prompt)
	if err != nil {
		writeJSONError(w, platform.NewDomainError("command", platform.CodeInvalid, err.Error(), err))
		return
	}

	ctx := platform.ContextWithRequestID(r.Context(), string(store.NewRequestID()))

	if prompt == domain.PromptGoHome {
		id := h.manager.InterruptAndHome(ctx)
		writeJSON(w, http.StatusAccepted, commandResponse{RequestID: string(id), Status: "accepted"})
		return
	}

	id, err := h.manager.Start(ctx, prompt)
	if err != nil {
		if errors.Is(err, platform.ErrBusy) {
			writeJSONError(w, platform.NewDomainError("command", platform.CodeBusy, "a command is already active", err))
			return
		}
		writeJSONError(w, platform.NewDomainError("command", platform.CodeHardware, err.Error(), err))
		return
	}
	writeJSON(w, http.StatusAccepted, commandResponse{RequestID: string(id), Status: "accepted"})
}

type statusResponse struct {
	State      string   `json:"state"`
	Phase      *string  `json:"phase"`
	Confidence *float64 `json:"confidence"`
	Message    string   `json:"message"`
	DurationMs *int64   `json:"duration_ms"`
}

// unknownIDMessage is the fixed body spec.md §4.H and §8 scenario 6 pin
// down verbatim for an id that was never issued.
const unknownIDMessage = "unknown request_id"

func (h *handlers) statusByID(w http.ResponseWriter, r *http.Request) {
	id := domain.RequestID(r.URL.Path[len("/status/"):])
	if id == "" {
		h.statusNoID(w, r)
		return
	}
	st, ok := h.store.Get(id)
	if !ok {
		// Documented quirk (spec.md §4.H): 200, not 404, with a synthetic
		// failure body — kept for client compatibility.
		writeJSON(w, http.StatusOK, statusResponse{State: string(domain.StateFailed), Message: unknownIDMessage})
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(st))
}

// statusNoIDResponse reports the currently-occupied request id, or null
// when the slot is idle — the cheap operator convenience SPEC_FULL.md's
// supplemented feature 4 describes.
type statusNoIDResponse struct {
	RequestID *string `json:"request_id"`
}

// statusNoID is the supplemented convenience route GET /status (no id):
// it doesn't require a client to already hold a request id just to learn
// whether the arm is busy.
func (h *handlers) statusNoID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.manager.ActiveRequestID()
	if !ok {
		writeJSON(w, http.StatusOK, statusNoIDResponse{})
		return
	}
	s := string(id)
	writeJSON(w, http.StatusOK, statusNoIDResponse{RequestID: &s})
}

func toStatusResponse(st domain.Status) statusResponse {
	return statusResponse{
		State:      string(st.State),
		Phase:      st.Phase,
		Confidence: st.Confidence,
		Message:    st.Message,
		DurationMs: st.DurationMs,
	}
}

type dispenseRequest struct {
	DurationMs int `json:"duration_ms"`
}

func (h *handlers) dispenseTreat(w http.ResponseWriter, r *http.Request) {
	var body dispenseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, platform.NewDomainError("dispense_treat", platform.CodeInvalid, "malformed request body", err))
		return
	}
	if err := h.dispenser.Dispense(r.Context(), body.DurationMs); err != nil {
		writeJSONError(w, platform.NewDomainError("dispense_treat", platform.CodeHardware, err.Error(), err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type speakRequest struct {
	Text string `json:"text"`
}

func (h *handlers) speak(w http.ResponseWriter, r *http.Request) {
	var body speakRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, platform.NewDomainError("speak", platform.CodeInvalid, "malformed request body", err))
		return
	}
	if body.Text == "" {
		writeJSONError(w, platform.NewDomainError("speak", platform.CodeInvalid, "text must not be empty", nil))
		return
	}
	if err := h.speaker.Speak(r.Context(), body.Text); err != nil {
		if errors.Is(err, platform.ErrInvalidInput) {
			writeJSONError(w, platform.NewDomainError("speak", platform.CodeInvalid, err.Error(), err))
			return
		}
		writeJSONError(w, platform.NewDomainError("speak", platform.CodeTTS, err.Error(), err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// estop is the supplemented emergency-stop endpoint (SPEC_FULL.md
// supplemented feature 3): it calls ArmDriver.Stop outside the
// admission/worker machinery entirely, distinct from "go home", which
// still drives the arm through a full homing motion. An e-stop must take
// effect synchronously and regardless of slot occupancy, so this route
// waits for Stop to return rather than handing back a request id to poll.
func (h *handlers) estop(w http.ResponseWriter, r *http.Request) {
	ctx := platform.ContextWithRequestID(r.Context(), string(store.NewRequestID()))
	if err := h.manager.Stop(ctx); err != nil {
		writeJSONError(w, platform.NewDomainError("estop", platform.CodeHardware, err.Error(), err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
