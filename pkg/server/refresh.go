package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"serverlist/pkg/log"
	"serverlist/pkg/models"
)

type filterRequest struct {
	Filter string `json:"filter"`
}

// refreshServer handles POST /servers/{id}/refresh requests.
func (api *APIServer) refreshServer(ctx echo.Context) error {
	id := ctx.Param("id")

	force := false
	if raw := ctx.QueryParam("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": "Invalid force parameter",
			})
		}
		force = parsed
	}

	log.Debug().Str("id", id).Bool("force", force).Msg("Refresh server request")

	if err := api.list.Refresh(id, force); err != nil {
		return api.mutationError(ctx, err, models.ServerEntry{})
	}

	return ctx.JSON(http.StatusAccepted, map[string]any{
		"message": "Refresh started",
		"id":      id,
		"force":   force,
	})
}

// setFilter handles PUT /filter requests.
func (api *APIServer) setFilter(ctx echo.Context) error {
	var req filterRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	return ctx.JSON(http.StatusOK, api.list.SetFilter(req.Filter))
}
