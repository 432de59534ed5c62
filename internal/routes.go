package internal

import (
	"net/http"

	"chathelper/internal/controllers"
	"chathelper/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/store", http.HandlerFunc(apiController.GetStore))
	routers.Get("/settings", http.HandlerFunc(apiController.GetSettings))
	return routers
}
