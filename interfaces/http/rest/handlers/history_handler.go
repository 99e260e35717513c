package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mindmesh-backend/application/commands"
	commandbus "mindmesh-backend/application/commands/bus"
	"mindmesh-backend/application/queries"
	querybus "mindmesh-backend/application/queries/bus"
	"mindmesh-backend/domain/graph"
	"mindmesh-backend/pkg/auth"
	"mindmesh-backend/pkg/common"
	pkgerrors "mindmesh-backend/pkg/errors"
	"mindmesh-backend/pkg/utils"
)

// HistoryHandler handles history and revert HTTP requests
type HistoryHandler struct {
	commandBus   *commandbus.CommandBus
	queryBus     *querybus.QueryBus
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(
	commandBus *commandbus.CommandBus,
	queryBus *querybus.QueryBus,
	maxBodyBytes int64,
	logger *zap.Logger,
) *HistoryHandler {
	return &HistoryHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// RevertRequest asks for the map to be restored to a historical point: a
// snapshot, or the state just before a given event.
type RevertRequest struct {
	SnapshotID string `json:"snapshotId,omitempty" validate:"required_without=EventID,omitempty,uuid"`
	EventID    string `json:"eventId,omitempty" validate:"omitempty,uuid"`
}

// RecordChangeRequest carries the state of the map before and after one
// committed edit.
type RecordChangeRequest struct {
	OldState graph.State `json:"oldState"`
	NewState graph.State `json:"newState"`
}

// Revert handles POST /maps/{mapID}/revert
func (h *HistoryHandler) Revert(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "unauthorized")
		return
	}

	var req RevertRequest
	if err := common.ParseJSONBody(r, &req, h.maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SnapshotID == "" && req.EventID == "" {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "either snapshotId or eventId is required")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.RevertMapCommand{
		MapID:      chi.URLParam(r, "mapID"),
		UserID:     user.UserID,
		SnapshotID: req.SnapshotID,
		EventID:    req.EventID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// RecordChange handles POST /maps/{mapID}/changes
func (h *HistoryHandler) RecordChange(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "unauthorized")
		return
	}

	var req RecordChangeRequest
	if err := common.ParseJSONBody(r, &req, h.maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.RecordChangeCommand{
		MapID:    chi.URLParam(r, "mapID"),
		UserID:   user.UserID,
		OldState: req.OldState,
		NewState: req.NewState,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetHistory handles GET /maps/{mapID}/history
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetHistoryQuery{
		MapID:  chi.URLParam(r, "mapID"),
		UserID: user.UserID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetSnapshot handles GET /maps/{mapID}/snapshots/{snapshotID}
func (h *HistoryHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetSnapshotStateQuery{
		MapID:      chi.URLParam(r, "mapID"),
		SnapshotID: chi.URLParam(r, "snapshotID"),
		UserID:     user.UserID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// respondError maps application errors onto the HTTP status contract.
func (h *HistoryHandler) respondError(w http.ResponseWriter, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		common.RespondErrorWithDetails(w, appErr.HTTPStatus, string(appErr.Type), appErr.Message, appErr.Details)
		return
	}
	h.logger.Error("Unhandled error", zap.Error(err))
	common.RespondError(w, http.StatusInternalServerError, common.StandardErrorCodes.InternalError, "internal error")
}
