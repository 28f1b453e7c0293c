package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"serverlist/pkg/address"
	"serverlist/pkg/coordinator"
	"serverlist/pkg/log"
	"serverlist/pkg/models"
	"serverlist/pkg/store"
)

// serverRequest is the body of add and edit requests.
type serverRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// listServers handles GET /servers requests.
func (api *APIServer) listServers(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.list.Snapshot())
}

// addServer handles POST /servers requests.
func (api *APIServer) addServer(ctx echo.Context) error {
	var req serverRequest
	if err := ctx.Bind(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid add request body")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	log.Info().
		Str("name", req.Name).
		Str("address", req.Address).
		Msg("Add server request")

	entry, err := api.list.Add(ctx.Request().Context(), req.Name, req.Address)
	if err != nil {
		return api.mutationError(ctx, err, entry)
	}

	return ctx.JSON(http.StatusCreated, entry)
}

// editServer handles PUT /servers/{id} requests.
func (api *APIServer) editServer(ctx echo.Context) error {
	id := ctx.Param("id")

	var req serverRequest
	if err := ctx.Bind(&req); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("Invalid edit request body")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	log.Info().
		Str("id", id).
		Str("name", req.Name).
		Str("address", req.Address).
		Msg("Edit server request")

	entry, err := api.list.Edit(ctx.Request().Context(), id, req.Name, req.Address)
	if err != nil {
		return api.mutationError(ctx, err, entry)
	}

	return ctx.JSON(http.StatusOK, entry)
}

// deleteServer handles DELETE /servers/{id} requests.
func (api *APIServer) deleteServer(ctx echo.Context) error {
	id := ctx.Param("id")

	log.Info().Str("id", id).Msg("Delete server request")

	if err := api.list.Delete(ctx.Request().Context(), id); err != nil {
		return api.mutationError(ctx, err, models.ServerEntry{})
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "Server deleted successfully",
		"id":      id,
	})
}

// reloadServers handles POST /servers/reload requests.
func (api *APIServer) reloadServers(ctx echo.Context) error {
	log.Info().Msg("Reload server list request")

	if err := api.list.LoadAll(ctx.Request().Context()); err != nil {
		return api.mutationError(ctx, err, models.ServerEntry{})
	}

	return ctx.JSON(http.StatusOK, api.list.Snapshot())
}

// mutationError maps coordinator errors to responses. A failed save still
// applied the change, so the entry is returned alongside the error.
func (api *APIServer) mutationError(ctx echo.Context, err error, entry models.ServerEntry) error {
	var ioErr *store.IOError

	switch {
	case errors.Is(err, address.ErrInvalidAddress):
		log.Warn().Err(err).Msg("Invalid server address")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid server address",
		})
	case errors.Is(err, coordinator.ErrNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "Server not found",
		})
	case errors.Is(err, coordinator.ErrClosed):
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Server list is closed",
		})
	case errors.As(err, &ioErr):
		log.Error().Err(err).Str("path", ioErr.Path).Msg("Change applied but not saved")
		body := map[string]any{
			"error": "Failed to save server list",
		}
		if entry.ID != "" {
			body["server"] = entry
		}
		return ctx.JSON(http.StatusInternalServerError, body)
	default:
		log.Error().Err(err).Msg("Server list request failed")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}
}
