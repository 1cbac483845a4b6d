package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/api/middleware"
	"github.com/luhive/luhive-backend/pkg/enums"
)

type testRequest struct {
	method string
	path   string
	body   string
	params map[string]string
	userID *uuid.UUID
}

func (tr testRequest) build() *http.Request {
	var body io.Reader
	if tr.body != "" {
		body = strings.NewReader(tr.body)
	}
	req := httptest.NewRequest(tr.method, tr.path, body)
	if tr.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rc := chi.NewRouteContext()
	for k, v := range tr.params {
		rc.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if tr.userID != nil {
		ctx = middleware.WithPrincipal(ctx, middleware.Principal{UserID: *tr.userID, Role: enums.SystemRoleUser})
	}
	return req.WithContext(ctx)
}

func serve(h http.Handler, tr testRequest) *httptest.ResponseRecorder {
	return serveRequest(h, tr.build())
}

func serveRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, resp.Body.String())
	}
	return payload.Error.Code
}
