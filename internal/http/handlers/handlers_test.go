package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babetranslator-backend/internal/data/kv"
	convrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/conversation"
	userrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/user"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
	"github.com/yungbote/babetranslator-backend/internal/services"
)

const testMaxImage = 1024

func newTestRouter(t *testing.T, extractor services.TextExtractor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	store := kv.NewMemory()
	users := userrepo.NewRegistry(store, log)
	convs := convrepo.NewStore(store, log)
	ing := services.NewIngestionService(log, convs, extractor, time.Second, nil)
	quota := services.NewQuotaGate(log, users, services.DefaultQuotaPolicy(), nil)
	orch := services.NewOrchestrator(log, users, convs, ing, quota, services.Capabilities{
		Extractor: extractor,
		Analyzer:  services.StubAnalyzer{},
		Replier:   services.StubReplyGenerator{},
		Timeout:   time.Second,
	}, services.OrchestratorConfig{}, nil)

	uh := NewUserHandler(log, orch)
	mh := NewMessageHandler(log, orch, testMaxImage)
	rh := NewReplyHandler(log, orch)
	hh := NewHealthHandler("test")

	r := gin.New()
	r.GET("/", hh.Root)
	r.GET("/healthcheck", hh.HealthCheck)
	r.GET("/api/personality-types", hh.PersonalityTypes)
	r.PUT("/api/users/:id", uh.UpsertProfile)
	r.GET("/api/users/:id", uh.GetUser)
	r.GET("/api/users/:id/quota", uh.GetQuota)
	r.GET("/api/users/:id/conversation", uh.GetConversation)
	r.POST("/api/users/:id/messages", mh.IngestText)
	r.POST("/api/users/:id/screenshots", mh.IngestScreenshot)
	r.POST("/api/extract-text", mh.ExtractText)
	r.POST("/api/users/:id/replies", rh.GenerateReply)
	r.POST("/api/analyze", rh.Analyze)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func multipartImage(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="shot.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	_ = w.Close()
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func TestRootAndHealth(t *testing.T) {
	r := newTestRouter(t, services.StubExtractor{})

	rec := doJSON(t, r, http.MethodGet, "/healthcheck", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}

	var root struct {
		Message string `json:"message"`
		Version string `json:"version"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/", ""), &root)
	if root.Message != "Babe Translator API" || root.Version != "test" {
		t.Fatalf("root: %+v", root)
	}

	var types struct {
		PersonalityTypes []string `json:"personality_types"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/personality-types", ""), &types)
	if len(types.PersonalityTypes) != 16 {
		t.Fatalf("want 16 personality types, got %d", len(types.PersonalityTypes))
	}
}

func TestUpsertAndGetUser(t *testing.T) {
	r := newTestRouter(t, services.StubExtractor{})

	rec := doJSON(t, r, http.MethodGet, "/api/users/u1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: want 404, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/users/u1", `{"personality_type":"intj","is_member":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert: %d %s", rec.Code, rec.Body.String())
	}
	var got struct {
		User struct {
			ID              string `json:"id"`
			PersonalityType string `json:"personality_type"`
			IsMember        bool   `json:"is_member"`
		} `json:"user"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/users/u1", ""), &got)
	if got.User.ID != "u1" || got.User.PersonalityType != "INTJ" || !got.User.IsMember {
		t.Fatalf("user: %+v", got.User)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/users/u1", `{"personality_type":"ABCD"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad personality: want 400, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/users/u2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("empty upsert: %d %s", rec.Code, rec.Body.String())
	}
}

func TestIngestTextAndConversation(t *testing.T) {
	r := newTestRouter(t, services.StubExtractor{})

	rec := doJSON(t, r, http.MethodPost, "/api/users/u1/messages", `{"content":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank content: want 400, got %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodGet, "/api/users/u1/conversation", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("rejected ingest created a conversation: %d", rec.Code)
	}

	for i, text := range []string{"hi", "there"} {
		rec := doJSON(t, r, http.MethodPost, "/api/users/u1/messages", `{"content":"`+text+`"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("ingest %d: %d %s", i, rec.Code, rec.Body.String())
		}
		var res struct {
			Count int `json:"count"`
		}
		decode(t, rec, &res)
		if res.Count != i+1 {
			t.Fatalf("count: want %d, got %d", i+1, res.Count)
		}
	}

	var conv struct {
		UserID   string `json:"user_id"`
		Count    int    `json:"count"`
		Messages []struct {
			Content string `json:"content"`
			Source  string `json:"source"`
		} `json:"messages"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/users/u1/conversation", ""), &conv)
	if conv.UserID != "u1" || conv.Count != 2 || conv.Messages[0].Content != "hi" || conv.Messages[1].Source != "typed" {
		t.Fatalf("conversation: %+v", conv)
	}
}

func TestIngestScreenshot(t *testing.T) {
	cases := []struct {
		name        string
		extractor   services.TextExtractor
		contentType string
		size        int
		wantStatus  int
		wantCode    string
		wantDegrade bool
	}{
		{name: "ok", extractor: services.StubExtractor{}, contentType: "image/png", size: 10, wantStatus: http.StatusCreated},
		{name: "degraded", extractor: services.NoExtractor{}, contentType: "image/jpeg", size: 10, wantStatus: http.StatusCreated, wantDegrade: true},
		{name: "not an image", extractor: services.StubExtractor{}, contentType: "text/plain", size: 10, wantStatus: http.StatusBadRequest, wantCode: "validation_failed"},
		{name: "too large", extractor: services.StubExtractor{}, contentType: "image/png", size: testMaxImage + 1, wantStatus: http.StatusRequestEntityTooLarge, wantCode: "image_too_large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(t, tc.extractor)
			body, ct := multipartImage(t, tc.contentType, bytes.Repeat([]byte{0x89}, tc.size))
			req := httptest.NewRequest(http.MethodPost, "/api/users/u1/screenshots", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want %d, got %d (%s)", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantCode != "" {
				var eb errorBody
				decode(t, rec, &eb)
				if eb.Error.Code != tc.wantCode {
					t.Fatalf("code: want %q, got %q", tc.wantCode, eb.Error.Code)
				}
				return
			}
			var res struct {
				Degraded bool `json:"degraded"`
				Message  struct {
					Content string `json:"content"`
					Source  string `json:"source"`
				} `json:"message"`
			}
			decode(t, rec, &res)
			if res.Degraded != tc.wantDegrade || res.Message.Source != "screenshot" {
				t.Fatalf("result: %+v", res)
			}
			if tc.wantDegrade && res.Message.Content != services.PlaceholderUnavailable {
				t.Fatalf("placeholder not used: %q", res.Message.Content)
			}
		})
	}
}

func TestIngestScreenshotRawBody(t *testing.T) {
	r := newTestRouter(t, services.StubExtractor{})
	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/screenshots", bytes.NewReader([]byte("fakepng")))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("raw body: %d %s", rec.Code, rec.Body.String())
	}
}

func TestExtractText(t *testing.T) {
	r := newTestRouter(t, services.StubExtractor{})
	body, ct := multipartImage(t, "image/png", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/api/extract-text", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Text string `json:"text"`
	}
	decode(t, rec, &res)
	if res.Text == "" {
		t.Fatalf("empty text")
	}

	r = newTestRouter(t, services.NoExtractor{})
	body, ct = multipartImage(t, "image/png", []byte("img"))
	req = httptest.NewRequest(http.MethodPost, "/api/extract-text", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("unavailable extractor: want 502, got %d", rec.Code)
	}
}

func TestGenerateReplyQuota(t *testing.T) {
	r := newTestRouter(t, services.StubExtractor{})

	rec := doJSON(t, r, http.MethodPost, "/api/users/u1/replies", `{"message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message: want 400, got %d", rec.Code)
	}

	for i := 0; i < 3; i++ {
		rec := doJSON(t, r, http.MethodPost, "/api/users/u1/replies", `{"message":"miss you"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("reply %d: %d %s", i, rec.Code, rec.Body.String())
		}
		var res struct {
			Replies []struct {
				Content string `json:"content"`
			} `json:"replies"`
			Analysis struct {
				Emotion string `json:"emotion"`
			} `json:"analysis"`
			Remaining int `json:"remaining"`
		}
		decode(t, rec, &res)
		if len(res.Replies) == 0 || res.Analysis.Emotion == "" || res.Remaining != 2-i {
			t.Fatalf("reply %d: %+v", i, res)
		}
	}

	rec = doJSON(t, r, http.MethodPost, "/api/users/u1/replies", `{"message":"again"}`)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("fourth reply: want 402, got %d", rec.Code)
	}
	var eb errorBody
	decode(t, rec, &eb)
	if eb.Error.Code != "quota_exceeded" {
		t.Fatalf("code: %q", eb.Error.Code)
	}

	var st struct {
		Used      int `json:"used"`
		Remaining int `json:"remaining"`
		Limit     int `json:"limit"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/users/u1/quota", ""), &st)
	if st.Used != 3 || st.Remaining != 0 || st.Limit != 3 {
		t.Fatalf("quota: %+v", st)
	}

	var conv struct {
		Count int `json:"count"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/users/u1/conversation", ""), &conv)
	if conv.Count != 4 {
		t.Fatalf("denied message must stay appended: count %d", conv.Count)
	}
}

func TestAnalyze(t *testing.T) {
	r := newTestRouter(t, services.StubExtractor{})
	rec := doJSON(t, r, http.MethodPost, "/api/analyze", `{"content":"I am tired"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, r, http.MethodPost, "/api/analyze", `{"content":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty analyze: want 400, got %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodPost, "/api/analyze", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: want 400, got %d", rec.Code)
	}
}
