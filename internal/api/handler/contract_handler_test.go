package handler_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/contractd/internal/api/handler"
	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/contract"
	"github.com/daap14/contractd/internal/lifecycle"
)

type contractFixture struct {
	bp       *blueprint.Blueprint
	repo     *mockContractRepo
	svc      *contract.Service
	handler  *handler.ContractHandler
	contract *contract.Contract
}

// newContractFixture stores an NDA blueprint and one CREATED contract built from it.
func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()

	bpRepo := newMockBlueprintRepo()
	bp, err := blueprint.NewService(bpRepo).Create(context.Background(), "NDA", []blueprint.FieldSpec{
		{Type: blueprint.FieldText, Label: "Party"},
		{Type: blueprint.FieldDate, Label: "Date"},
		{Type: blueprint.FieldSignature, Label: "Sign"},
	})
	require.NoError(t, err)

	repo := newMockContractRepo()
	svc := contract.NewService(repo, bpRepo)
	c, err := svc.Create(context.Background(), "Acme NDA", bp.ID)
	require.NoError(t, err)

	return &contractFixture{bp: bp, repo: repo, svc: svc, handler: handler.NewContractHandler(svc), contract: c}
}

func (f *contractFixture) idParam() map[string]string {
	return map[string]string{"id": f.contract.ID.String()}
}

func (f *contractFixture) setStatus(t *testing.T, statuses ...lifecycle.Status) {
	t.Helper()
	for _, s := range statuses {
		_, err := f.svc.UpdateStatus(context.Background(), f.contract.ID, s)
		require.NoError(t, err)
	}
}

func (f *contractFixture) fieldValuesBody(values ...interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(f.contract.FieldValues))
	for i, fv := range f.contract.FieldValues {
		out[i] = map[string]interface{}{
			"fieldId": fv.FieldID.String(),
			"type":    string(fv.Type()),
			"value":   values[i],
		}
	}
	return out
}

// ===== POST /api/contracts =====

func TestContractCreate_Success(t *testing.T) {
	t.Parallel()

	// Arrange
	f := newContractFixture(t)
	body := mustJSON(t, map[string]interface{}{"name": "Beta NDA", "blueprintId": f.bp.ID.String()})

	// Act
	req, w := makeChiRequest(http.MethodPost, "/api/contracts", body, nil)
	f.handler.Create(w, req)

	// Assert
	assert.Equal(t, http.StatusCreated, w.Code)

	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Beta NDA", data["name"])
	assert.Equal(t, "NDA", data["blueprintName"])
	assert.Equal(t, "CREATED", data["status"])
	assert.Equal(t, float64(1), data["version"])

	values := data["fieldValues"].([]interface{})
	require.Len(t, values, 3)
	for i, v := range values {
		fv := v.(map[string]interface{})
		assert.Equal(t, f.bp.Fields[i].ID.String(), fv["fieldId"])
		assert.Equal(t, string(f.bp.Fields[i].Type), fv["type"])
		assert.Equal(t, f.bp.Fields[i].Label, fv["label"])
		assert.Contains(t, fv, "value")
		assert.Nil(t, fv["value"])
	}
}

func TestContractCreate_Validation(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)

	req, w := makeChiRequest(http.MethodPost, "/api/contracts", []byte(`{"name":""}`), nil)
	f.handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env["code"])
	assert.Len(t, env["details"].([]interface{}), 2)
}

func TestContractCreate_BlueprintNotFound(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	body := mustJSON(t, map[string]interface{}{"name": "Orphan", "blueprintId": uuid.NewString()})

	req, w := makeChiRequest(http.MethodPost, "/api/contracts", body, nil)
	f.handler.Create(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := parseEnvelope(t, w)
	assert.Equal(t, "NOT_FOUND", env["code"])
	assert.Equal(t, "Blueprint not found", env["error"])
}

// ===== GET /api/contracts =====

func TestContractList_FiltersAndOmitsValues(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	second, err := f.svc.Create(context.Background(), "Second", f.bp.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), second.ID, lifecycle.StatusApproved)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"Second", "Acme NDA"}},
		{query: "?status=all", want: []string{"Second", "Acme NDA"}},
		{query: "?status=CREATED", want: []string{"Acme NDA"}},
		{query: "?status=pending", want: []string{"Second", "Acme NDA"}},
		{query: "?status=signed", want: []string{}},
		{query: "?blueprintId=" + f.bp.ID.String() + "&status=APPROVED", want: []string{"Second"}},
		{query: "?blueprintId=" + uuid.NewString(), want: []string{}},
	}

	for _, tt := range tests {
		req, w := makeChiRequest(http.MethodGet, "/api/contracts"+tt.query, nil, nil)
		f.handler.List(w, req)

		require.Equal(t, http.StatusOK, w.Code, tt.query)
		env := parseEnvelope(t, w)
		assert.Equal(t, float64(len(tt.want)), env["count"], tt.query)

		names := []string{}
		for _, item := range env["data"].([]interface{}) {
			obj := item.(map[string]interface{})
			assert.NotContains(t, obj, "fieldValues", tt.query)
			names = append(names, obj["name"].(string))
		}
		assert.Equal(t, tt.want, names, tt.query)
	}
}

func TestContractList_InvalidQuery(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)

	for _, q := range []string{"?status=PAID", "?blueprintId=nope"} {
		req, w := makeChiRequest(http.MethodGet, "/api/contracts"+q, nil, nil)
		f.handler.List(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, "VALIDATION_ERROR", parseEnvelope(t, w)["code"], q)
	}
}

func TestContractList_RepositoryError(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.repo.listFn = func(_ context.Context, _ contract.ListFilter) ([]contract.Contract, error) {
		return nil, errors.New("db down")
	}

	req, w := makeChiRequest(http.MethodGet, "/api/contracts", nil, nil)
	f.handler.List(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", parseEnvelope(t, w)["code"])
}

// ===== GET /api/contracts/{id} =====

func TestContractGetByID(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)

	req, w := makeChiRequest(http.MethodGet, "/api/contracts/x", nil, f.idParam())
	f.handler.GetByID(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, f.contract.ID.String(), data["id"])
	assert.Len(t, data["fieldValues"].([]interface{}), 3)
}

func TestContractGetByID_BlueprintWithoutFieldsKeepsEmptyValues(t *testing.T) {
	t.Parallel()

	// Arrange
	bpRepo := newMockBlueprintRepo()
	bp, err := blueprint.NewService(bpRepo).Create(context.Background(), "Empty", nil)
	require.NoError(t, err)
	svc := contract.NewService(newMockContractRepo(), bpRepo)
	c, err := svc.Create(context.Background(), "Blank", bp.ID)
	require.NoError(t, err)
	h := handler.NewContractHandler(svc)

	// Act
	req, w := makeChiRequest(http.MethodGet, "/api/contracts/x", nil, map[string]string{"id": c.ID.String()})
	h.GetByID(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fieldValues":[]`)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, data["fieldValues"])
}

// unencodableValue is a text value whose raw form cannot be marshalled.
type unencodableValue struct {
	contract.TextValue
}

func (unencodableValue) Raw() any { return make(chan int) }

func TestContractGetByID_UnencodableValueIsLoggedAsNull(t *testing.T) {
	// Not parallel: swaps the default logger.
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	f := newContractFixture(t)
	broken := *f.contract
	broken.FieldValues = []contract.FieldValue{{FieldID: uuid.New(), Label: "Party", Value: unencodableValue{}}}
	f.repo.getByIDFn = func(_ context.Context, _ uuid.UUID) (*contract.Contract, error) {
		return &broken, nil
	}

	req, w := makeChiRequest(http.MethodGet, "/api/contracts/x", nil, f.idParam())
	f.handler.GetByID(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	values := parseEnvelope(t, w)["data"].(map[string]interface{})["fieldValues"].([]interface{})
	require.Len(t, values, 1)
	assert.Nil(t, values[0].(map[string]interface{})["value"])
	assert.Contains(t, logs.String(), "failed to encode field value")
	assert.Contains(t, logs.String(), broken.FieldValues[0].FieldID.String())
	assert.Contains(t, logs.String(), broken.ID.String())
}

func TestContractGetByID_Errors(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)

	req, w := makeChiRequest(http.MethodGet, "/api/contracts/x", nil, map[string]string{"id": uuid.NewString()})
	f.handler.GetByID(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Contract not found", parseEnvelope(t, w)["error"])

	req, w = makeChiRequest(http.MethodGet, "/api/contracts/x", nil, map[string]string{"id": "123"})
	f.handler.GetByID(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", parseEnvelope(t, w)["code"])

	f.repo.getByIDFn = func(_ context.Context, _ uuid.UUID) (*contract.Contract, error) {
		return nil, errors.New("timeout")
	}
	req, w = makeChiRequest(http.MethodGet, "/api/contracts/x", nil, f.idParam())
	f.handler.GetByID(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ===== PUT /api/contracts/{id}/fields =====

func TestContractUpdateFields_Success(t *testing.T) {
	t.Parallel()

	// Arrange
	f := newContractFixture(t)
	body := mustJSON(t, map[string]interface{}{"fieldValues": f.fieldValuesBody("Acme", "2025-01-15", nil)})

	// Act
	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/fields", body, f.idParam())
	f.handler.UpdateFields(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	values := data["fieldValues"].([]interface{})
	assert.Equal(t, "Acme", values[0].(map[string]interface{})["value"])
	assert.Equal(t, "Party", values[0].(map[string]interface{})["label"])
	assert.Equal(t, "2025-01-15", values[1].(map[string]interface{})["value"])
	assert.Nil(t, values[2].(map[string]interface{})["value"])
	assert.Equal(t, float64(2), data["version"])
}

func TestContractUpdateFields_NotAnArray(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)

	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/fields", []byte(`{}`), f.idParam())
	f.handler.UpdateFields(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env["code"])
	detail := env["details"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "fieldValues must be an array", detail["message"])
}

func TestContractUpdateFields_WrongValueKind(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	body := mustJSON(t, map[string]interface{}{"fieldValues": f.fieldValuesBody("Acme", nil, "yes")})

	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/fields", body, f.idParam())
	f.handler.UpdateFields(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", parseEnvelope(t, w)["code"])
}

func TestContractUpdateFields_Mismatch(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	values := f.fieldValuesBody("Acme", nil, nil)[:2]

	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/fields", mustJSON(t, map[string]interface{}{"fieldValues": values}), f.idParam())
	f.handler.UpdateFields(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env["code"])
	detail := env["details"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "expected 3 field values, got 2", detail["message"])
}

func TestContractUpdateFields_LockedContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.setStatus(t, lifecycle.StatusApproved, lifecycle.StatusSent, lifecycle.StatusSigned, lifecycle.StatusLocked)
	body := mustJSON(t, map[string]interface{}{"fieldValues": f.fieldValuesBody("Mallory", nil, nil)})

	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/fields", body, f.idParam())
	f.handler.UpdateFields(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	assert.Equal(t, "ILLEGAL_STATE", env["code"])
	assert.Equal(t, "Cannot modify contract in LOCKED status", env["error"])
}

func TestContractUpdateFields_NotFound(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	body := mustJSON(t, map[string]interface{}{"fieldValues": []interface{}{}})

	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/fields", body, map[string]string{"id": uuid.NewString()})
	f.handler.UpdateFields(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ===== PUT /api/contracts/{id}/status =====

func TestContractUpdateStatus_Success(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)

	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/status", []byte(`{"status":"APPROVED"}`), f.idParam())
	f.handler.UpdateStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "APPROVED", data["status"])
}

func TestContractUpdateStatus_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{name: "missing", body: `{}`, wantCode: "VALIDATION_ERROR", wantMsg: "Status is required"},
		{name: "same", body: `{"status":"CREATED"}`, wantCode: "SAME_STATUS", wantMsg: "Contract is already in status: CREATED"},
		{
			name:     "skip ahead",
			body:     `{"status":"SIGNED"}`,
			wantCode: "ILLEGAL_TRANSITION",
			wantMsg:  "Cannot transition from CREATED to SIGNED. Allowed: APPROVED, REVOKED",
		},
		{
			name:     "not a status",
			body:     `{"status":"PAID"}`,
			wantCode: "ILLEGAL_TRANSITION",
			wantMsg:  "Cannot transition from CREATED to PAID. Allowed: APPROVED, REVOKED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newContractFixture(t)

			req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/status", []byte(tt.body), f.idParam())
			f.handler.UpdateStatus(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := parseEnvelope(t, w)
			assert.Equal(t, tt.wantCode, env["code"])
			assert.Equal(t, tt.wantMsg, env["error"])
		})
	}
}

func TestContractUpdateStatus_VersionConflict(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.repo.updateStatusFn = func(_ context.Context, _ uuid.UUID, _ int, _ lifecycle.Status) (*contract.Contract, error) {
		return nil, contract.ErrVersionConflict
	}

	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/status", []byte(`{"status":"APPROVED"}`), f.idParam())
	f.handler.UpdateStatus(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "VERSION_CONFLICT", parseEnvelope(t, w)["code"])
}

func TestContractUpdateStatus_TerminalContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.setStatus(t, lifecycle.StatusRevoked)

	req, w := makeChiRequest(http.MethodPut, "/api/contracts/x/status", []byte(`{"status":"APPROVED"}`), f.idParam())
	f.handler.UpdateStatus(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot transition from REVOKED to APPROVED. No transitions allowed", parseEnvelope(t, w)["error"])
}

// ===== GET /api/contracts/{id}/next-statuses =====

func TestContractNextStatuses(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.setStatus(t, lifecycle.StatusApproved, lifecycle.StatusSent)

	req, w := makeChiRequest(http.MethodGet, "/api/contracts/x/next-statuses", nil, f.idParam())
	f.handler.NextStatuses(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "SENT", data["currentStatus"])
	assert.Equal(t, []interface{}{"SIGNED", "REVOKED"}, data["nextStatuses"])
}

func TestContractNextStatuses_TerminalIsEmptyList(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.setStatus(t, lifecycle.StatusRevoked)

	req, w := makeChiRequest(http.MethodGet, "/api/contracts/x/next-statuses", nil, f.idParam())
	f.handler.NextStatuses(w, req)

	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, data["nextStatuses"])
}
