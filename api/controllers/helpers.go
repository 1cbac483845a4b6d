package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/api/middleware"
	"github.com/luhive/luhive-backend/api/validators"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}

// actorID returns the authenticated caller or an UNAUTHORIZED error.
func actorID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

// viewerID returns the caller when one is authenticated.
func viewerID(r *http.Request) *uuid.UUID {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return nil
	}
	return &id
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
