package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"quizflow/config"
	"quizflow/flow"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	Flow *flow.Engine
}
