package main

import (
	"log"

	"fido2backend/app"
	"fido2backend/config"
	"fido2backend/routes"
)

func main() {
	config.LoadEnv()

	application := app.MustNew()
	defer application.Close()

	routes.RegisterRoutes(application.Router, application)

	log.Printf("listening on :%s", application.Config.Port)
	if err := application.Router.Run(":" + application.Config.Port); err != nil {
		log.Fatal(err)
	}
}
