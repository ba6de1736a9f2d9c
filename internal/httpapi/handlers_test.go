package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HukkaMehu/LePetPal/internal/arm"
	"github.com/HukkaMehu/LePetPal/internal/command"
	"github.com/HukkaMehu/LePetPal/internal/dispenser"
	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/policy"
	"github.com/HukkaMehu/LePetPal/internal/safety"
	"github.com/HukkaMehu/LePetPal/internal/speaker"
	"github.com/HukkaMehu/LePetPal/internal/store"
)

func newTestMux(t *testing.T) (*http.ServeMux, store.RequestStore) {
	t.Helper()
	s := store.NewInMemoryStore(nil)
	mgr := command.New(command.Options{
		Store:   s,
		Driver:  arm.NewMockDriver("rad", nil),
		Gate:    safety.NewJointGate("", true, nil),
		Factory: policy.NewScriptedFactory(),
		RateHz:  1000,
	})
	mux := http.NewServeMux()
	registerRoutes(mux, &handlers{
		manager:   mgr,
		store:     s,
		dispenser: dispenser.NewMockDispenser(nil),
		speaker:   speaker.NewMockSpeaker(nil),
	})
	return mux, s
}

func TestHealth_AlwaysOK(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCommand_InvalidPrompt(t *testing.T) {
	mux, _ := newTestMux(t)
	body, _ := json.Marshal(commandRequest{Prompt: "dance"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommand_BusyRejection(t *testing.T) {
	mux, _ := newTestMux(t)
	body, _ := json.Marshal(commandRequest{Prompt: string(domain.PromptPickUpBall)})

	rec1 := httptest.NewRecorder()
	mux.ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(body)))
	assert.Equal(t, http.StatusAccepted, rec1.Code)

	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec2.Code)
}

func TestCommand_GoHomeAlwaysAccepted(t *testing.T) {
	mux, _ := newTestMux(t)
	body, _ := json.Marshal(commandRequest{Prompt: string(domain.PromptGoHome)})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(body)))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestStatus_UnknownID(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/DEADBEEF", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed", body.State)
	assert.Equal(t, unknownIDMessage, body.Message)
}

func TestStatus_KnownID_EventuallySucceeds(t *testing.T) {
	mux, s := newTestMux(t)
	body, _ := json.Marshal(commandRequest{Prompt: string(domain.PromptGetTreat)})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted commandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, ok := s.Get(domain.RequestID(accepted.RequestID))
		if ok && st.State.IsTerminal() {
			assert.Equal(t, "succeeded", string(st.State))
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("request never reached a terminal state")
}

func TestStatusNoID_IdleReportsNull(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body statusNoIDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.RequestID)
}

func TestStatusNoID_ReportsActiveRequest(t *testing.T) {
	mux, _ := newTestMux(t)
	cmdBody, _ := json.Marshal(commandRequest{Prompt: string(domain.PromptPickUpBall)})
	startRec := httptest.NewRecorder()
	mux.ServeHTTP(startRec, httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(cmdBody)))
	require.Equal(t, http.StatusAccepted, startRec.Code)
	var accepted commandResponse
	require.NoError(t, json.Unmarshal(startRec.Body.Bytes(), &accepted))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var body statusNoIDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.RequestID)
	assert.Equal(t, accepted.RequestID, *body.RequestID)
}

func TestEstop_StopsDriverSynchronously(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/estop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stopped", body["status"])
}

func TestDispenseTreat_NegativeDurationIsNoop(t *testing.T) {
	mux, _ := newTestMux(t)
	body, _ := json.Marshal(dispenseRequest{DurationMs: -100})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dispense_treat", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSpeak_EmptyTextRejected(t *testing.T) {
	mux, _ := newTestMux(t)
	body, _ := json.Marshal(speakRequest{Text: ""})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/speak", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpeak_HappyPath(t *testing.T) {
	mux, _ := newTestMux(t)
	body, _ := json.Marshal(speakRequest{Text: "good dog"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/speak", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
