package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/application"
	"github.com/packlane/fulfillment-service/internal/domain"
)

var errInvalidShipmentFilter = errors.New("invalid shipment_id filter")

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, errors.New("invalid " + param)
	}
	return id, nil
}

func listQueryFromRequest(r *http.Request) application.ListQuery {
	return application.ListQuery{
		Page:  parseIntDefault(r.URL.Query().Get("page"), 1),
		Limit: parseIntDefault(r.URL.Query().Get("limit"), 50),
	}
}

// requireIdentity fetches the resolved caller; a missing identity means a
// route was registered outside the identity middleware.
func requireIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
		return domain.Identity{}, false
	}
	return identity, true
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	code := "VALIDATION_ERROR"
	msg := err.Error()
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, code, msg, err)
	writeError(w, http.StatusBadRequest, code, msg)
}

// readManifest extracts the CSV payload from either a multipart form
// field named "file" or a raw text/csv body.
func readManifest(r *http.Request, maxBytes int64) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return "", nil, errors.New("unreadable multipart form")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, errors.New("missing file field")
		}
		defer file.Close()
		payload, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			return "", nil, errors.New("unreadable file payload")
		}
		return header.Filename, payload, nil
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return "", nil, errors.New("unreadable request body")
	}
	return "manifest.csv", payload, nil
}
