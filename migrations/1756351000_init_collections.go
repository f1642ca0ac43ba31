package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		matches := core.NewBaseCollection("matches")
		matches.Fields.Add(
			&core.TextField{Name: "match_name", Required: true},
			&core.TextField{Name: "venue"},
			&core.DateField{Name: "match_datetime"},
			&core.DateField{Name: "booking_opens_at"},
		)
		if err := app.Save(matches); err != nil {
			return err
		}

		stands := core.NewBaseCollection("stands")
		stands.Fields.Add(
			&core.RelationField{Name: "match_id", CollectionId: matches.Id, MaxSelect: 1, Required: true},
			&core.TextField{Name: "stand_name", Required: true},
			&core.NumberField{Name: "total_tickets", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.NumberField{Name: "available_tickets", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.NumberField{Name: "price", Min: types.Pointer(0.0)},
		)
		if err := app.Save(stands); err != nil {
			return err
		}

		queue := core.NewBaseCollection("queue")
		queue.Fields.Add(
			&core.TextField{Name: "user_id", Required: true},
			&core.RelationField{Name: "match_id", CollectionId: matches.Id, MaxSelect: 1, Required: true},
			&core.DateField{Name: "joined_at", Required: true},
			&core.DateField{Name: "processing_at"},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"waiting", "processing", "completed", "expired"},
			},
		)
		queue.AddIndex("idx_queue_match_status_joined", false, "match_id, status, joined_at", "")
		queue.AddIndex("idx_queue_user_match", false, "user_id, match_id", "")
		return app.Save(queue)
	}, func(app core.App) error {
		for _, name := range []string{"queue", "stands", "matches"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
