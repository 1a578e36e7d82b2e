package migrations

import (
	"ticket-tracker/internal/store"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		return store.EnsureSchema(app.DB())
	}, func(app core.App) error {
		_, err := app.DB().NewQuery("DROP TABLE IF EXISTS scrape_runs").Execute()
		return err
	})
}
