package handler

import (
	"net/http"

	"github.com/daap14/contractd/internal/api/middleware"
	"github.com/daap14/contractd/internal/api/response"
	"github.com/daap14/contractd/internal/lifecycle"
)

type lifecycleResponse struct {
	Statuses       []string            `json:"statuses"`
	Initial        string              `json:"initial"`
	Terminal       []string            `json:"terminal"`
	Transitions    map[string][]string `json:"transitions"`
	EditableFields []string            `json:"editableIn"`
}

// LifecycleHandler serves GET /api/lifecycle, the static transition table
// clients use to render status controls.
type LifecycleHandler struct {
	body lifecycleResponse
}

// NewLifecycleHandler builds the response once from the lifecycle package.
func NewLifecycleHandler() *LifecycleHandler {
	all := lifecycle.AllStatuses()
	body := lifecycleResponse{
		Statuses:       statusStrings(all),
		Initial:        string(lifecycle.StatusCreated),
		Terminal:       []string{},
		Transitions:    make(map[string][]string, len(all)),
		EditableFields: []string{},
	}
	for from, to := range lifecycle.Transitions() {
		body.Transitions[string(from)] = statusStrings(to)
	}
	for _, s := range all {
		if s.IsTerminal() {
			body.Terminal = append(body.Terminal, string(s))
		}
		if lifecycle.CanModifyFields(s) {
			body.EditableFields = append(body.EditableFields, string(s))
		}
	}
	return &LifecycleHandler{body: body}
}

// ServeHTTP writes the transition table.
func (h *LifecycleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, h.body, middleware.GetRequestID(r.Context()))
}
