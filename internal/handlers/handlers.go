package handlers

import (
	"time"

	"account-api/internal/config"
)

type Handlers struct {
	app *config.Application
}

func New(app *config.Application) *Handlers {
	return &Handlers{app: app}
}

var startTime = time.Now()
