package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/daap14/contractd/internal/api/middleware"
	"github.com/daap14/contractd/internal/api/response"
	"github.com/daap14/contractd/internal/api/validation"
	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/contract"
	"github.com/daap14/contractd/internal/lifecycle"
)

// createContractRequest is the request body for POST /api/contracts.
type createContractRequest struct {
	Name        string `json:"name"`
	BlueprintID string `json:"blueprintId"`
}

type fieldValueBody struct {
	FieldID string          `json:"fieldId"`
	Type    string          `json:"type"`
	Label   string          `json:"label,omitempty"`
	Value   json.RawMessage `json:"value"`
}

// updateFieldsRequest is the request body for PUT /api/contracts/{id}/fields.
type updateFieldsRequest struct {
	FieldValues []fieldValueBody `json:"fieldValues"`
}

// updateStatusRequest is the request body for PUT /api/contracts/{id}/status.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// contractResponse is the API representation of a contract. FieldValues is
// nil on list items and always present, possibly empty, on full records.
type contractResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	BlueprintID   string            `json:"blueprintId"`
	BlueprintName string            `json:"blueprintName"`
	Status        string            `json:"status"`
	FieldValues   *[]fieldValueBody `json:"fieldValues,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     string            `json:"createdAt"`
	UpdatedAt     string            `json:"updatedAt"`
}

type nextStatusesResponse struct {
	CurrentStatus string   `json:"currentStatus"`
	NextStatuses  []string `json:"nextStatuses"`
}

func toContractResponse(c *contract.Contract, withValues bool) contractResponse {
	resp := contractResponse{
		ID:            c.ID.String(),
		Name:          c.Name,
		BlueprintID:   c.BlueprintID.String(),
		BlueprintName: c.BlueprintName,
		Status:        string(c.Status),
		Version:       c.Version,
		CreatedAt:     c.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:     c.UpdatedAt.UTC().Format(timeFormat),
	}
	if !withValues {
		return resp
	}

	values := make([]fieldValueBody, 0, len(c.FieldValues))
	for _, fv := range c.FieldValues {
		raw, err := contract.EncodeValue(fv.Value)
		if err != nil {
			slog.Error("failed to encode field value", "error", err, "contractId", c.ID, "fieldId", fv.FieldID)
			raw = json.RawMessage("null")
		}
		values = append(values, fieldValueBody{
			FieldID: fv.FieldID.String(),
			Type:    string(fv.Type()),
			Label:   fv.Label,
			Value:   raw,
		})
	}
	resp.FieldValues = &values
	return resp
}

func statusStrings(statuses []lifecycle.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// ContractHandler handles the contract store endpoints.
type ContractHandler struct {
	svc *contract.Service
}

// NewContractHandler creates a new ContractHandler.
func NewContractHandler(svc *contract.Service) *ContractHandler {
	return &ContractHandler{svc: svc}
}

// Create handles POST /api/contracts.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	blueprintID, fieldErrors := validation.ValidateCreateContractRequest(validation.CreateContractRequest{
		Name:        req.Name,
		BlueprintID: req.BlueprintID,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	c, err := h.svc.Create(r.Context(), req.Name, blueprintID)
	if err != nil {
		switch {
		case errors.Is(err, blueprint.ErrBlueprintNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Blueprint not found", requestID)
		case errors.Is(err, contract.ErrInvalidContract):
			response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
		default:
			slog.Error("failed to create contract", "error", err, "blueprintId", blueprintID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create contract", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toContractResponse(c, true), requestID)
}

// List handles GET /api/contracts with optional ?status= and ?blueprintId= filters.
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var filter contract.ListFilter
	var fieldErrors []validation.FieldError

	statuses, err := contract.ParseStatusFilter(strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		fieldErrors = append(fieldErrors, validation.FieldError{
			Field:   "status",
			Message: "status must be a contract status or one of: all, active, pending, signed",
		})
	}
	filter.Statuses = statuses

	if v := strings.TrimSpace(r.URL.Query().Get("blueprintId")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			fieldErrors = append(fieldErrors, validation.FieldError{Field: "blueprintId", Message: "blueprintId must be a valid UUID"})
		} else {
			filter.BlueprintID = &id
		}
	}

	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", fieldErrors, requestID)
		return
	}

	contracts, err := h.svc.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list contracts", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list contracts", requestID)
		return
	}

	items := make([]contractResponse, 0, len(contracts))
	for i := range contracts {
		items = append(items, toContractResponse(&contracts[i], false))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /api/contracts/{id}.
func (h *ContractHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	c, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get", id, requestID)
		return
	}

	response.Success(w, http.StatusOK, toContractResponse(c, true), requestID)
}

// UpdateFields handles PUT /api/contracts/{id}/fields.
func (h *ContractHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req updateFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	inputs := make([]validation.FieldValueInput, len(req.FieldValues))
	for i, fv := range req.FieldValues {
		inputs[i] = validation.FieldValueInput{FieldID: fv.FieldID, Type: fv.Type, Value: fv.Value}
	}
	values, fieldErrors := validation.ValidateFieldValues(inputs, req.FieldValues != nil)
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	c, err := h.svc.UpdateFields(r.Context(), id, values)
	if err != nil {
		h.writeError(w, err, "update fields of", id, requestID)
		return
	}

	response.Success(w, http.StatusOK, toContractResponse(c, true), requestID)
}

// UpdateStatus handles PUT /api/contracts/{id}/status.
func (h *ContractHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if fieldErrors := validation.ValidateUpdateStatusRequest(req.Status); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Status is required", fieldErrors, requestID)
		return
	}

	c, err := h.svc.UpdateStatus(r.Context(), id, lifecycle.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		h.writeError(w, err, "update status of", id, requestID)
		return
	}

	response.Success(w, http.StatusOK, toContractResponse(c, true), requestID)
}

// NextStatuses handles GET /api/contracts/{id}/next-statuses.
func (h *ContractHandler) NextStatuses(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	current, next, err := h.svc.NextStatuses(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get next statuses of", id, requestID)
		return
	}

	response.Success(w, http.StatusOK, nextStatusesResponse{
		CurrentStatus: string(current),
		NextStatuses:  statusStrings(next),
	}, requestID)
}

// writeError maps contract store and lifecycle errors to responses.
// Lifecycle and state errors carry user-facing messages and are passed through.
func (h *ContractHandler) writeError(w http.ResponseWriter, err error, action string, id uuid.UUID, requestID string) {
	switch {
	case errors.Is(err, contract.ErrNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Contract not found", requestID)
	case errors.Is(err, contract.ErrIllegalState):
		response.Err(w, http.StatusBadRequest, "ILLEGAL_STATE", err.Error(), requestID)
	case errors.Is(err, contract.ErrFieldMismatch):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Field values do not match the contract",
			[]validation.FieldError{{Field: "fieldValues", Message: strings.TrimPrefix(err.Error(), contract.ErrFieldMismatch.Error()+": ")}},
			requestID)
	case errors.Is(err, lifecycle.ErrSameStatus):
		response.Err(w, http.StatusBadRequest, "SAME_STATUS", err.Error(), requestID)
	case errors.Is(err, lifecycle.ErrUnknownStatus):
		response.Err(w, http.StatusBadRequest, "UNKNOWN_STATUS", err.Error(), requestID)
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		response.Err(w, http.StatusBadRequest, "ILLEGAL_TRANSITION", err.Error(), requestID)
	case errors.Is(err, contract.ErrVersionConflict):
		response.Err(w, http.StatusConflict, "VERSION_CONFLICT", "Contract was modified concurrently, retry the request", requestID)
	default:
		slog.Error("failed to "+action+" contract", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", requestID)
	}
}
