package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core/settings"
)

type settingsApi struct {
	svc settings.ServiceInterface
}

func registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := settingsApi{svc: deps.SettingsSvc}

	sg := g.Group("/settings", jwt, adminMiddleware())
	sg.GET("/marker-match-filters", api.markerMatchFilters)
	sg.PUT("/marker-match-filters", api.setMarkerMatchFilters)
}

// Handlers

func (api *settingsApi) markerMatchFilters(ctx echo.Context) error {
	filters, err := api.svc.MarkerMatchFilters()
	if err != nil {
		return errors.Wrap(err, "querying marker-match filters")
	}
	return ctx.JSON(http.StatusOK, MarkerMatchFiltersResponse{
		Filters: filters,
		Known:   settings.KnownFilters,
	})
}

func (api *settingsApi) setMarkerMatchFilters(ctx echo.Context) error {
	var data MarkerMatchFiltersRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkerMatchFiltersRequest")
	}
	if err := api.svc.SetMarkerMatchFilters(data.Filters); err != nil {
		return err
	}

	filters, err := api.svc.MarkerMatchFilters()
	if err != nil {
		return errors.Wrap(err, "querying marker-match filters")
	}
	return ctx.JSON(http.StatusOK, MarkerMatchFiltersResponse{
		Filters: filters,
		Known:   settings.KnownFilters,
	})
}

type (
	MarkerMatchFiltersRequest struct {
		Filters []string `json:"filters"`
	}

	MarkerMatchFiltersResponse struct {
		Filters []string `json:"filters"`
		Known   []string `json:"known"`
	}
)
