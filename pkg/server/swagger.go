package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"serverlist/pkg/log"

	"github.com/labstack/echo/v4"
)

//go:embed web/swagger-ui.html web/swagger.yml
var webFS embed.FS

func (api *APIServer) serveSwaggerUI(ctx echo.Context) error {
	tmpl, err := template.ParseFS(webFS, "web/swagger-ui.html")
	if err != nil {
		log.Error().Err(err).Msg("Failed to load template")
		return ctx.String(http.StatusInternalServerError, fmt.Sprintf("Failed to load template: %v", err))
	}

	data := struct {
		Title       string
		SwaggerPath string
	}{
		Title:       "Server List API Documentation",
		SwaggerPath: "/swagger.yml",
	}

	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(http.StatusOK)
	return tmpl.Execute(ctx.Response().Writer, data)
}

func (api *APIServer) serveSwaggerSpec(ctx echo.Context) error {
	spec, err := webFS.ReadFile("web/swagger.yml")
	if err != nil {
		log.Error().Err(err).Msg("Failed to read embedded swagger spec")
		return ctx.String(http.StatusInternalServerError, "Failed to read swagger spec")
	}
	return ctx.Blob(http.StatusOK, "application/yaml", spec)
}
