package initializers

import (
	"context"
	"database/sql"
	"sort"
)

// defaultCatalog is the make/model list the vehicle pickers start with.
var defaultCatalog = map[string][]string{
	"Audi":       {"A3", "A4", "A6", "Q4 e-tron", "Q5"},
	"BMW":        {"1-Serie", "3-Serie", "5-Serie", "i4", "iX3", "X3"},
	"Ford":       {"Fiesta", "Focus", "Kuga", "Mustang Mach-E"},
	"Hyundai":    {"i20", "i30", "Ioniq 5", "Kona", "Tucson"},
	"Kia":        {"Ceed", "EV6", "Niro", "Picanto", "Sportage"},
	"Mercedes":   {"A-Klasse", "C-Klasse", "E-Klasse", "EQA", "GLC"},
	"Peugeot":    {"208", "2008", "308", "3008", "e-208"},
	"Skoda":      {"Enyaq", "Fabia", "Kodiaq", "Octavia", "Superb"},
	"Tesla":      {"Model 3", "Model S", "Model X", "Model Y"},
	"Toyota":     {"Aygo X", "C-HR", "Corolla", "RAV4", "Yaris"},
	"Volkswagen": {"Golf", "ID.3", "ID.4", "Passat", "Polo", "Tiguan", "Up"},
	"Volvo":      {"EX30", "V60", "V90", "XC40", "XC60", "XC90"},
}

// InitDefaults is called once on application start to ensure
// the vehicle make and model catalog exists.
func InitDefaults(ctx context.Context, db *sql.DB) error {
	makes := make([]string, 0, len(defaultCatalog))
	for name := range defaultCatalog {
		makes = append(makes, name)
	}
	sort.Strings(makes)

	for _, name := range makes {
		makeID, err := ensureMake(ctx, db, name)
		if err != nil {
			return err
		}
		for _, model := range defaultCatalog[name] {
			if err := ensureModel(ctx, db, makeID, model); err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureMake(ctx context.Context, db *sql.DB, name string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, "SELECT id FROM vehicle_makes WHERE name = $1", name).Scan(&id)
	if err == sql.ErrNoRows {
		err = db.QueryRowContext(ctx, "INSERT INTO vehicle_makes (name) VALUES ($1) RETURNING id", name).Scan(&id)
		if err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}
	return id, nil
}

func ensureModel(ctx context.Context, db *sql.DB, makeID, name string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO vehicle_models (make_id, name) VALUES ($1, $2)
		ON CONFLICT (make_id, name) DO NOTHING
	`, makeID, name)
	return err
}
