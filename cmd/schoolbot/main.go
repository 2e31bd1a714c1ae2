package main

import (
	"log"

	corecmd "github.com/m3rciful/schoolbot/core/cmd"
	"github.com/m3rciful/schoolbot/school/app"
	"github.com/m3rciful/schoolbot/school/config"
)

func main() {
	err := corecmd.Run(corecmd.Options[*config.Config, *app.App]{
		LoadConfig: config.Load,
		Bootstrap:  app.New,
	})
	if err != nil {
		log.Fatalf("schoolbot: %v", err)
	}
}
