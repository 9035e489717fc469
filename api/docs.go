package api

import (
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

const specRoute = "/swagger/doc.json"

// RegisterDocs serves the OpenAPI document and a Swagger UI pointing at it.
func RegisterDocs(router *gin.Engine, specFile string) {
	if specFile == "" {
		return
	}
	router.StaticFile(specRoute, specFile)
	router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(specRoute))))
}
