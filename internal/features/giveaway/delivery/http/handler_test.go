package http

import (
	"bufio"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/common/middleware"
	"github.com/GDG-UAM/website-sub002/internal/common/validation"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models/dto"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/notifier"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository/memory"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/service"
)

const (
	testBotToken = "123456:test-token"
	adminID      = 1
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		panic(err)
	}
}

type testEnv struct {
	router *gin.Engine
	svc    service.GiveawayService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	broker := notifier.NewLocalBroker()
	counts, err := notifier.NewCountNotifier(broker, 4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = counts.Close(time.Second) })

	svc := service.NewGiveawayService(memory.NewRepository(), memory.NewLocker(), counts, service.Options{}, nil)
	h := NewGiveawayHandler(svc, broker, Config{
		AdminIDs:  []string{strconv.Itoa(adminID)},
		Heartbeat: time.Minute,
	}, nil)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler(zap.NewNop()),
		middleware.TelegramIdentity(testBotToken, 0, zap.NewNop()))
	h.RegisterRoutes(r.Group("/api/v1"))

	return &testEnv{router: r, svc: svc}
}

// initData signs a Telegram init data string for the given user id.
func initData(userID int64) string {
	values := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":` + strconv.FormatInt(userID, 10) + `,"first_name":"Test"}`,
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values[k]
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(testBotToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	q := url.Values{}
	for k, v := range values {
		q.Set(k, v)
	}
	q.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return q.Encode()
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, auth string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set(middleware.InitDataHeader, auth)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	body := decode[middleware.ErrorResponse](t, w)
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func (e *testEnv) activeGiveaway(t *testing.T, maxWinners int, req models.Requirements) string {
	t.Helper()
	admin := initData(adminID)

	duration := int64(3600)
	w := e.do(t, http.MethodPost, "/giveaways", dto.CreateGiveawayRequest{
		Title:        "Sticker pack",
		MaxWinners:   maxWinners,
		DurationS:    &duration,
		Requirements: req,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.GiveawayResponse](t, w)
	assert.Equal(t, models.GiveawayStatusDraft, created.Status)
	assert.False(t, created.IsOpen)

	w = e.do(t, http.MethodPatch, "/giveaways/"+created.ID+"/status", dto.StatusRequest{Status: models.GiveawayStatusActive}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return created.ID
}

func joinBody(anonID string) dto.JoinRequest {
	return dto.JoinRequest{AcceptTerms: true, AnonID: anonID}
}

func TestGiveawayFlow(t *testing.T) {
	e := newTestEnv(t)
	admin := initData(adminID)
	id := e.activeGiveaway(t, 1, models.Requirements{})

	w := e.do(t, http.MethodPost, "/giveaways/"+id+"/entries", joinBody("device-1"), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[dto.JoinResponse](t, w)
	assert.NotEmpty(t, first.ID)

	w = e.do(t, http.MethodPost, "/giveaways/"+id+"/entries", joinBody("device-1"), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ErrCodeAlreadyJoined, errorCode(t, w))

	w = e.do(t, http.MethodPost, "/giveaways/"+id+"/entries", dto.JoinRequest{AcceptTerms: true}, initData(77))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/giveaways/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	projection := decode[dto.GiveawayResponse](t, w)
	assert.True(t, projection.IsOpen)
	assert.Equal(t, 2, projection.EntryCount)
	assert.Positive(t, projection.SecondsLeft)
	assert.Nil(t, projection.Draw)

	w = e.do(t, http.MethodGet, "/giveaways/"+id+"/winners", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[dto.WinnersResponse](t, w).Drawn)

	w = e.do(t, http.MethodPost, "/giveaways/"+id+"/winners", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	drawn := decode[dto.DrawResponse](t, w)
	require.Len(t, drawn.Winners, 1)
	assert.Equal(t, 2, drawn.Commit.InputSize)
	assert.Len(t, drawn.Commit.Seed, 64)

	w = e.do(t, http.MethodPost, "/giveaways/"+id+"/winners", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, drawn, decode[dto.DrawResponse](t, w))

	w = e.do(t, http.MethodPost, "/giveaways/"+id+"/entries", joinBody("device-late"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.ErrCodeGiveawayClosed, errorCode(t, w))

	w = e.do(t, http.MethodGet, "/giveaways/"+id+"/winners", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	winners := decode[dto.WinnersResponse](t, w)
	require.Len(t, winners.Winners, 1)
	assert.True(t, winners.Drawn)
	assert.Equal(t, drawn.Winners[0], winners.Winners[0].EntryID)
	assert.Equal(t, models.ProofKindDraw, winners.Winners[0].Proof.Kind)
	if winners.Winners[0].IdentityKind == models.IdentityUser {
		require.NotNil(t, winners.Winners[0].UserID)
		assert.Equal(t, "77", *winners.Winners[0].UserID)
	} else {
		assert.Nil(t, winners.Winners[0].UserID)
	}

	w = e.do(t, http.MethodPatch, "/giveaways/"+id+"/winners", dto.RerollRequest{Position: new(int)}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rerolled := decode[dto.DrawResponse](t, w)
	assert.NotEqual(t, drawn.Winners[0], rerolled.Winners[0])
	assert.Equal(t, models.ProofKindReroll, rerolled.Proofs[0].Kind)
	assert.Equal(t, drawn.Winners[0], rerolled.Proofs[0].Replaced)

	w = e.do(t, http.MethodGet, "/giveaways/"+id+"/draw/verify", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[dto.VerifyResponse](t, w)
	assert.True(t, report.Valid, report.Reason)
	assert.Equal(t, drawn.Commit, report.Commit)
	require.Len(t, report.Checks, 1)
	assert.True(t, report.Checks[0].Checked)
}

func TestRerollWithoutAlternatives(t *testing.T) {
	e := newTestEnv(t)
	admin := initData(adminID)
	id := e.activeGiveaway(t, 2, models.Requirements{})

	for _, anon := range []string{"device-1", "device-2"} {
		w := e.do(t, http.MethodPost, "/giveaways/"+id+"/entries", joinBody(anon), "")
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := e.do(t, http.MethodPost, "/giveaways/"+id+"/winners", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, decode[dto.DrawResponse](t, w).Winners, 2)

	one := 1
	w = e.do(t, http.MethodPatch, "/giveaways/"+id+"/winners", dto.RerollRequest{Position: &one}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperrors.ErrCodeNoAlternativeCandidates, errorCode(t, w))

	two := 2
	w = e.do(t, http.MethodPatch, "/giveaways/"+id+"/winners", dto.RerollRequest{Position: &two}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckRegistration(t *testing.T) {
	e := newTestEnv(t)
	id := e.activeGiveaway(t, 1, models.Requirements{})

	w := e.do(t, http.MethodPost, "/giveaways/"+id+"/entries", joinBody("device-1"), "")
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, "/giveaways/"+id+"/entries", dto.JoinRequest{AcceptTerms: true}, initData(42))
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name  string
		query string
		auth  string
		want  bool
	}{
		{"anonymous registered", "?anonId=device-1", "", true},
		{"anonymous unknown", "?anonId=device-2", "", false},
		{"no identity", "", "", false},
		{"user registered", "", initData(42), true},
		{"user wins over anon id", "?anonId=device-1", initData(43), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodGet, "/giveaways/"+id+"/entries/check"+tt.query, nil, tt.auth)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[dto.RegisteredResponse](t, w).Registered)
		})
	}
}

func TestJoinRejections(t *testing.T) {
	e := newTestEnv(t)
	open := e.activeGiveaway(t, 1, models.Requirements{})
	loginOnly := e.activeGiveaway(t, 1, models.Requirements{MustBeLoggedIn: true})

	t.Run("malformed anon id", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/giveaways/"+open+"/entries", joinBody("has spaces"), "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[middleware.ValidationErrorResponse](t, w)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "anonId", body.Errors[0].Details["field"])
	})

	t.Run("terms not accepted", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/giveaways/"+open+"/entries", dto.JoinRequest{AnonID: "device-1"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperrors.ErrCodeValidation, errorCode(t, w))
	})

	t.Run("anonymous without id", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/giveaways/"+open+"/entries", dto.JoinRequest{AcceptTerms: true}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login required", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/giveaways/"+loginOnly+"/entries", joinBody("device-1"), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, apperrors.ErrCodeLoginRequired, errorCode(t, w))

		w = e.do(t, http.MethodPost, "/giveaways/"+loginOnly+"/entries", dto.JoinRequest{AcceptTerms: true}, initData(5))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("unknown giveaway", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/giveaways/missing/entries", joinBody("device-1"), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apperrors.ErrCodeGiveawayNotFound, errorCode(t, w))
	})

	t.Run("forged init data", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/giveaways/"+open+"/entries", joinBody("device-1"), initData(5)+"x")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOperatorRoutesRequireAdmin(t *testing.T) {
	e := newTestEnv(t)
	id := e.activeGiveaway(t, 1, models.Requirements{})

	routes := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodPost, "/giveaways", dto.CreateGiveawayRequest{Title: "x", MaxWinners: 1}},
		{http.MethodPatch, "/giveaways/" + id + "/status", dto.StatusRequest{Status: models.GiveawayStatusPaused}},
		{http.MethodPost, "/giveaways/" + id + "/winners", nil},
		{http.MethodPatch, "/giveaways/" + id + "/winners", dto.RerollRequest{Position: new(int)}},
		{http.MethodPost, "/giveaways/" + id + "/disqualifications", dto.DisqualifyRequest{EntryID: "e"}},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, e.do(t, rt.method, rt.path, rt.body, "").Code)
			assert.Equal(t, http.StatusForbidden, e.do(t, rt.method, rt.path, rt.body, initData(2)).Code)
		})
	}
}

func TestOperatorValidation(t *testing.T) {
	e := newTestEnv(t)
	admin := initData(adminID)
	id := e.activeGiveaway(t, 1, models.Requirements{})

	w := e.do(t, http.MethodPost, "/giveaways", dto.CreateGiveawayRequest{Title: "No window", MaxWinners: 1}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeValidation, errorCode(t, w))

	w = e.do(t, http.MethodPatch, "/giveaways/"+id+"/status", map[string]string{"status": "archived"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPatch, "/giveaways/"+id+"/winners", map[string]int{"position": -1}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPatch, "/giveaways/"+id+"/winners", dto.RerollRequest{Position: new(int)}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code, "reroll before draw")

	w = e.do(t, http.MethodGet, "/giveaways/"+id+"/draw/verify", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "verify before draw")

	w = e.do(t, http.MethodPost, "/giveaways/"+id+"/disqualifications", dto.DisqualifyRequest{EntryID: "missing"}, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrCodeEntryNotFound, errorCode(t, w))
}

func TestDisqualifyRoute(t *testing.T) {
	e := newTestEnv(t)
	id := e.activeGiveaway(t, 1, models.Requirements{})

	w := e.do(t, http.MethodPost, "/giveaways/"+id+"/entries", joinBody("device-1"), "")
	require.Equal(t, http.StatusCreated, w.Code)
	entry := decode[dto.JoinResponse](t, w)

	w = e.do(t, http.MethodPost, "/giveaways/"+id+"/disqualifications", dto.DisqualifyRequest{EntryID: entry.ID}, initData(adminID))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/giveaways/"+id, nil, "")
	assert.Equal(t, 0, decode[dto.GiveawayResponse](t, w).EntryCount)
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" || ev.data != "" {
				return ev
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestEventsStream(t *testing.T) {
	e := newTestEnv(t)
	id := e.activeGiveaway(t, 1, models.Requirements{})

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/giveaways/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	readCount := func() int {
		ev := readEvent(t, reader)
		require.Equal(t, notifier.EventCount, ev.name)
		var payload notifier.CountPayload
		require.NoError(t, json.Unmarshal([]byte(ev.data), &payload), ev.data)
		return payload.Count
	}

	assert.Equal(t, 0, readCount())

	_, err = e.svc.TryJoin(ctx, id, service.JoinInput{
		Identity:      models.AnonymousIdentity("device-1"),
		AcceptedTerms: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, readCount())
}

func TestEventsUnknownGiveaway(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/giveaways/missing/events", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
