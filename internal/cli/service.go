package cli

import "envlock/internal/app"

func newAppService() app.Service {
	return app.NewService()
}
