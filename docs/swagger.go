package docs

import "github.com/swaggo/swag"

// @title Food Delivery Platform API
// @version 1.0
// @description Customer ordering and driver dashboard API
// @host localhost:8080
// @BasePath /api/v1
var SwaggerInfo = &swag.Spec{
	Version:     "1.0",
	Host:        "localhost:8080",
	BasePath:    "/api/v1",
	Title:       "Food Delivery Platform API",
	Description: "Customer ordering and driver dashboard API",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
