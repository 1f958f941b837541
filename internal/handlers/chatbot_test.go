package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sebencms/internal/chatbot"
	"sebencms/internal/models"
	"sebencms/internal/store"
)

type fakeChatbot struct {
	steps  []models.FlowStep
	req    chatbot.SaveLeadRequest
	client chatbot.Client
	err    error
}

func (f *fakeChatbot) Flow(context.Context) ([]models.FlowStep, error) { return f.steps, f.err }

func (f *fakeChatbot) SaveLead(_ context.Context, req chatbot.SaveLeadRequest, c chatbot.Client) (*chatbot.SaveLeadResult, error) {
	f.req, f.client = req, c
	if f.err != nil {
		return nil, f.err
	}
	if err := chatbot.ValidateField(req.Field, req.Value); err != nil {
		return nil, err
	}
	return &chatbot.SaveLeadResult{
		LeadID:  42,
		Status:  models.LeadStatusInProgress,
		Answers: map[string]string{req.Field: req.Value},
	}, nil
}

type fakeLeads struct {
	filter   store.LeadFilter
	lead     *models.ChatbotLead
	messages []models.ChatbotMessage
}

func (f *fakeLeads) List(_ context.Context, lf store.LeadFilter) (store.Page[models.ChatbotLead], error) {
	f.filter = lf
	return store.Page[models.ChatbotLead]{Page: 1, PerPage: 20}, nil
}

func (f *fakeLeads) FindByID(_ context.Context, id int64) (*models.ChatbotLead, error) {
	if f.lead == nil || f.lead.ID != id {
		return nil, store.ErrNotFound
	}
	return f.lead, nil
}

func (f *fakeLeads) Messages(context.Context, int64) ([]models.ChatbotMessage, error) {
	return f.messages, nil
}

func TestChatbotFlow(t *testing.T) {
	h := NewChatbot(&fakeChatbot{steps: chatbot.DefaultSteps()}, &fakeLeads{})

	rec := httptest.NewRecorder()
	h.Flow(rec, httptest.NewRequest(http.MethodGet, "/chatbot/flow", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	steps := decode(t, rec)["data"].(map[string]any)["steps"].([]any)
	require.Len(t, steps, 4)
	assert.Equal(t, "greeting", steps[0].(map[string]any)["key"])
	assert.Equal(t, true, steps[0].(map[string]any)["is_button"])
}

func TestChatbotSaveLead(t *testing.T) {
	svc := &fakeChatbot{}
	h := NewChatbot(svc, &fakeLeads{})

	req := jsonRequest(http.MethodPost, "/chatbot/leads", `{"field":"email","value":"a@b.com","utm":{"source":"ad"}}`)
	req.Header.Set("User-Agent", "widget/1.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	h.SaveLead(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"lead_id":42,"status":"in_progress","answers":{"email":"a@b.com"}}}`, rec.Body.String())
	assert.Equal(t, chatbot.Client{IP: "203.0.113.9", UA: "widget/1.0"}, svc.client)
	assert.JSONEq(t, `{"source":"ad"}`, string(svc.req.UTM))
}

func TestChatbotSaveLeadScalarValues(t *testing.T) {
	svc := &fakeChatbot{}
	h := NewChatbot(svc, &fakeLeads{})

	rec := httptest.NewRecorder()
	h.SaveLead(rec, jsonRequest(http.MethodPost, "/chatbot/leads",
		`{"lead_id":"5","field":"phone","value":9123456789,"answers":{"age":30}}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(5), svc.req.LeadID)
	assert.Equal(t, "9123456789", svc.req.Value)
	assert.Equal(t, map[string]string{"age": "30"}, svc.req.Answers)
}

func TestChatbotSaveLeadBadLeadID(t *testing.T) {
	h := NewChatbot(&fakeChatbot{}, &fakeLeads{})

	rec := httptest.NewRecorder()
	h.SaveLead(rec, jsonRequest(http.MethodPost, "/chatbot/leads", `{"lead_id":"first","field":"name","value":"Ana"}`))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []any{"The lead id field must be an integer."}, fieldMessages(t, rec, "lead_id"))
}

func TestChatbotSaveLeadInvalidPhone(t *testing.T) {
	h := NewChatbot(&fakeChatbot{}, &fakeLeads{})

	rec := httptest.NewRecorder()
	h.SaveLead(rec, jsonRequest(http.MethodPost, "/chatbot/leads", `{"field":"phone","value":"1234567890"}`))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []any{"The value field format is invalid."}, fieldMessages(t, rec, "value"))
}

func TestChatbotSaveLeadServerError(t *testing.T) {
	h := NewChatbot(&fakeChatbot{err: errors.New("tx failed")}, &fakeLeads{})

	rec := httptest.NewRecorder()
	h.SaveLead(rec, jsonRequest(http.MethodPost, "/chatbot/leads", `{"completed":true}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChatbotLeadsFilter(t *testing.T) {
	leads := &fakeLeads{}
	h := NewChatbot(&fakeChatbot{}, leads)

	rec := httptest.NewRecorder()
	h.Leads(rec, httptest.NewRequest(http.MethodGet,
		"/chatbot/leads?q=ana&status=submitted&date_from=2026-01-02&date_to=2026-01-31T23:00:00Z&sort=name&page=3&per_page=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.LeadFilter{
		Query:    "ana",
		Status:   "submitted",
		DateFrom: "2026-01-02",
		DateTo:   "2026-01-31",
		Sort:     "name",
		Page:     3,
		PerPage:  7,
	}, leads.filter)
	assert.Equal(t, []any{}, decode(t, rec)["data"])
}

func TestChatbotLeadsBadDate(t *testing.T) {
	h := NewChatbot(&fakeChatbot{}, &fakeLeads{})

	rec := httptest.NewRecorder()
	h.Leads(rec, httptest.NewRequest(http.MethodGet, "/chatbot/leads?date_from=yesterday", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, fieldMessages(t, rec, "date_from"))
}

func TestChatbotShowLead(t *testing.T) {
	step := "email"
	leads := &fakeLeads{
		lead: &models.ChatbotLead{ID: 4, Status: models.LeadStatusSubmitted, Answers: map[string]string{}},
		messages: []models.ChatbotMessage{
			{ID: 1, Direction: models.DirectionUser, Content: "a@b.com", StepKey: &step},
		},
	}
	h := NewChatbot(&fakeChatbot{}, leads)

	rec := serve(t, http.MethodGet, "/chatbot/leads/{id}", h.ShowLead,
		httptest.NewRequest(http.MethodGet, "/chatbot/leads/4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	_, hasMessages := decode(t, rec)["data"].(map[string]any)["messages"]
	assert.False(t, hasMessages)

	rec = serve(t, http.MethodGet, "/chatbot/leads/{id}", h.ShowLead,
		httptest.NewRequest(http.MethodGet, "/chatbot/leads/4?include=meta,messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode(t, rec)["data"].(map[string]any)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["type"])
	assert.Equal(t, "email", msgs[0].(map[string]any)["step_key"])

	rec = serve(t, http.MethodGet, "/chatbot/leads/{id}", h.ShowLead,
		httptest.NewRequest(http.MethodGet, "/chatbot/leads/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", true},
		{"2026-03-04", "2026-03-04", true},
		{"2026-03-04T10:00:00+02:00", "2026-03-04", true},
		{"04/03/2026", "", false},
	}
	for _, tt := range tests {
		got, ok := parseDay(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseDay(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
