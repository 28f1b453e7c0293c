package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"serverlist/pkg/address"
	"serverlist/pkg/log"
	"serverlist/pkg/models"
	"serverlist/pkg/probe"
)

const iconContentType = "image/png"

// serverIcon handles GET /servers/{id}/icon requests.
func (api *APIServer) serverIcon(ctx echo.Context) error {
	entry, err := api.list.Entry(ctx.Param("id"))
	if err != nil {
		return api.mutationError(ctx, err, models.ServerEntry{})
	}

	if len(entry.Icon) == 0 {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "Server has no icon",
		})
	}

	return ctx.Blob(http.StatusOK, iconContentType, entry.Icon)
}

// serverHistory handles GET /servers/{id}/history requests.
func (api *APIServer) serverHistory(ctx echo.Context) error {
	if api.history == nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "Probe history is not enabled",
		})
	}

	entry, err := api.list.Entry(ctx.Param("id"))
	if err != nil {
		return api.mutationError(ctx, err, models.ServerEntry{})
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": "Invalid limit parameter",
			})
		}
	}

	records, err := api.history.Recent(ctx.Request().Context(), entry.Address, limit)
	if err != nil {
		log.Error().Err(err).Str("address", entry.Address).Msg("Failed to read probe history")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"id":      entry.ID,
		"address": entry.Address,
		"records": records,
	})
}

// ping handles GET /ping?address= requests. The list is not touched.
func (api *APIServer) ping(ctx echo.Context) error {
	raw := ctx.QueryParam("address")
	if _, err := address.Parse(raw); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid server address",
		})
	}

	result, err := api.prober.Probe(ctx.Request().Context(), raw, api.probeTimeout)
	if err != nil {
		if errors.Is(err, address.ErrInvalidAddress) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": "Invalid server address",
			})
		}
		log.Warn().Err(err).Str("address", raw).Msg("Ad-hoc probe failed")
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"error":   "Probe failed",
			"reason":  probe.Reason(err),
			"address": raw,
		})
	}

	return ctx.JSON(http.StatusOK, result)
}
