package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/widgetboard/internal/api/v1"
	"github.com/gosuda/widgetboard/internal/api/ws"
)

func registerAuthRoutes(api huma.API, authSvc v1.AuthService) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store v1.DataStore) {
	v1.RegisterDashboardRoutes(api, store)
	v1.RegisterWidgetRoutes(api, store)
}

func registerAdminRoutes(api huma.API, registrar v1.Registrar) {
	v1.RegisterRegistrationRoutes(api, registrar)
}

func registerCableRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/cable", hub.ServeCable)
}
