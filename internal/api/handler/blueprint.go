package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daap14/contractd/internal/api/middleware"
	"github.com/daap14/contractd/internal/api/response"
	"github.com/daap14/contractd/internal/api/validation"
	"github.com/daap14/contractd/internal/blueprint"
)

// timeFormat is the wire format of every timestamp in API responses.
const timeFormat = "2006-01-02T15:04:05Z"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type positionBody struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type createFieldRequest struct {
	Type     string        `json:"type"`
	Label    string        `json:"label"`
	Position *positionBody `json:"position,omitempty"`
}

// createBlueprintRequest is the request body for POST /api/blueprints.
type createBlueprintRequest struct {
	Name   string               `json:"name"`
	Fields []createFieldRequest `json:"fields"`
}

type fieldResponse struct {
	FieldID  string       `json:"fieldId"`
	Type     string       `json:"type"`
	Label    string       `json:"label"`
	Position positionBody `json:"position"`
}

// blueprintResponse is the API representation of a blueprint.
type blueprintResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Fields    []fieldResponse `json:"fields"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

func toBlueprintResponse(bp *blueprint.Blueprint) blueprintResponse {
	fields := make([]fieldResponse, len(bp.Fields))
	for i, f := range bp.Fields {
		fields[i] = fieldResponse{
			FieldID:  f.ID.String(),
			Type:     string(f.Type),
			Label:    f.Label,
			Position: positionBody{X: f.Position.X, Y: f.Position.Y},
		}
	}
	return blueprintResponse{
		ID:        bp.ID.String(),
		Name:      bp.Name,
		Fields:    fields,
		CreatedAt: bp.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: bp.UpdatedAt.UTC().Format(timeFormat),
	}
}

// BlueprintHandler handles the blueprint registry endpoints.
type BlueprintHandler struct {
	svc *blueprint.Service
}

// NewBlueprintHandler creates a new BlueprintHandler.
func NewBlueprintHandler(svc *blueprint.Service) *BlueprintHandler {
	return &BlueprintHandler{svc: svc}
}

// Create handles POST /api/blueprints.
func (h *BlueprintHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createBlueprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	inputs := make([]validation.BlueprintFieldInput, len(req.Fields))
	for i, f := range req.Fields {
		inputs[i] = validation.BlueprintFieldInput{Type: f.Type, Label: f.Label}
	}
	fieldErrors := validation.ValidateCreateBlueprintRequest(validation.CreateBlueprintRequest{
		Name:      req.Name,
		Fields:    inputs,
		HasFields: req.Fields != nil,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	specs := make([]blueprint.FieldSpec, len(req.Fields))
	for i, f := range req.Fields {
		specs[i] = blueprint.FieldSpec{
			Type:  blueprint.FieldType(strings.TrimSpace(f.Type)),
			Label: f.Label,
		}
		if f.Position != nil {
			specs[i].Position = blueprint.Position{X: f.Position.X, Y: f.Position.Y}
		}
	}

	bp, err := h.svc.Create(r.Context(), req.Name, specs)
	if err != nil {
		switch {
		case errors.Is(err, blueprint.ErrInvalidFieldType):
			response.Err(w, http.StatusBadRequest, "INVALID_FIELD_TYPE", strings.TrimPrefix(err.Error(), blueprint.ErrInvalidFieldType.Error()+": "), requestID)
		case errors.Is(err, blueprint.ErrInvalidBlueprint):
			response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
		case errors.Is(err, blueprint.ErrDuplicateBlueprintName):
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", "Blueprint with this name already exists", requestID)
		default:
			slog.Error("failed to create blueprint", "error", err, "name", req.Name)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create blueprint", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toBlueprintResponse(bp), requestID)
}

// List handles GET /api/blueprints.
func (h *BlueprintHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	blueprints, err := h.svc.List(r.Context())
	if err != nil {
		slog.Error("failed to list blueprints", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list blueprints", requestID)
		return
	}

	items := make([]blueprintResponse, 0, len(blueprints))
	for i := range blueprints {
		items = append(items, toBlueprintResponse(&blueprints[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /api/blueprints/{id}.
func (h *BlueprintHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	bp, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, blueprint.ErrBlueprintNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Blueprint not found", requestID)
			return
		}
		slog.Error("failed to get blueprint", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get blueprint", requestID)
		return
	}

	response.Success(w, http.StatusOK, toBlueprintResponse(bp), requestID)
}

// parseID reads the {id} URL parameter, writing a 400 when it is not a UUID.
func parseID(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return uuid.Nil, false
	}
	return id, true
}
