package webapp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/domain/finance"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/infra/logger"
	"github.com/Spok95/construction-bot/internal/testutil"
)

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions("secret", 0)
	assert.Equal(t, 30*time.Minute, s.TTL())

	tok, err := s.Issue(42)
	require.NoError(t, err)
	id, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	var claims jwt.RegisteredClaims
	_, _, err = jwt.NewParser().ParseUnverified(tok, &claims)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "42", claims.Subject)
}

func TestSessionRejects(t *testing.T) {
	s := NewSessions("secret", time.Minute)
	tok, err := s.Issue(1)
	require.NoError(t, err)

	_, err = NewSessions("other", time.Minute).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newHandler(t *testing.T) (*Handler, *Sessions, *users.User, *users.User) {
	t.Helper()
	us := testutil.NewUsers()
	client := us.Add(10, "Заказчик", users.RoleClient)
	other := us.Add(11, "Чужой", users.RoleClient)
	ps := testutil.NewProjects(projects.Project{ID: 1, Name: "Дом", Address: "ул. Садовая, 1", CustomerID: client.ID, OdooID: 5})
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	fin := &testutil.Finance{ByProject: map[int64][]finance.Record{1: {
		{Date: day, Kind: finance.KindIncome, Amount: 1000000},
		{Date: day, Kind: finance.KindMaterial, StageName: "Фундамент", Name: "Бетон", Amount: 300000},
		{Date: day, Kind: finance.KindService, StageName: "Фундамент", Name: "Заливка", Amount: 100000},
	}}}
	sess := NewSessions("secret", time.Hour)
	h := NewHandler(sess, us, ps, fin, logger.Discard(), time.UTC)
	h.now = func() time.Time { return day.Add(12 * time.Hour) }
	return h, sess, client, other
}

func get(t *testing.T, h *Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webapp/api/report?"+query, nil))
	return rec
}

func TestReport(t *testing.T) {
	h, sess, client, _ := newHandler(t)
	tok, err := sess.Issue(client.ID)
	require.NoError(t, err)

	rec := get(t, h, fmt.Sprintf("token=%s&project=1&period=month", tok))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Дом", body["project"])
	assert.Equal(t, "400000", body["expense"])
	assert.Equal(t, "600000", body["balance"])
	assert.Equal(t, "75", body["material_share"])
	assert.Len(t, body["transactions"], 3)
}

func TestReportAccess(t *testing.T) {
	h, sess, _, other := newHandler(t)

	rec := get(t, h, "token=bad&project=1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := sess.Issue(other.ID)
	require.NoError(t, err)
	rec = get(t, h, fmt.Sprintf("token=%s&project=1", tok))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(t, h, fmt.Sprintf("token=%s&project=404", tok))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportBadPeriod(t *testing.T) {
	h, sess, client, _ := newHandler(t)
	tok, err := sess.Issue(client.ID)
	require.NoError(t, err)
	rec := get(t, h, fmt.Sprintf("token=%s&project=1&period=decade", tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
