package datastore

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mediqueue/mediqueue/internal/platform/db"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type DepartmentDefault struct {
	Name                    string  `yaml:"name"`
	DisplayName             string  `yaml:"display_name"`
	Description             string  `yaml:"description"`
	ConsultationFee         float64 `yaml:"consultation_fee"`
	AverageConsultationTime int     `yaml:"average_consultation_time"`
	ColorCode               string  `yaml:"color_code"`
}

type SettingDefault struct {
	Key         string      `yaml:"key"`
	Value       interface{} `yaml:"value"`
	Type        string      `yaml:"type"`
	Description string      `yaml:"description"`
}

// Defaults is the starter data inserted into an empty store.
type Defaults struct {
	Departments []DepartmentDefault `yaml:"departments"`
	Settings    []SettingDefault    `yaml:"settings"`
}

// LoadDefaults parses the embedded defaults document.
func LoadDefaults() (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		return nil, fmt.Errorf("parse defaults: %w", err)
	}
	return &d, nil
}

// Seed inserts default departments and clinic settings into tables that are
// still empty. Each table is filled by a single statement, so a failure leaves
// it empty and the next run tries again. Tables that already hold rows are
// left alone, so Seed can run on every startup.
func Seed(ctx context.Context, q db.DBTX, logger zerolog.Logger) error {
	d, err := LoadDefaults()
	if err != nil {
		return err
	}

	n, err := count(ctx, q, "departments")
	if err != nil {
		return err
	}
	if n == 0 && len(d.Departments) > 0 {
		rows := make([][]interface{}, 0, len(d.Departments))
		for _, dep := range d.Departments {
			rows = append(rows, []interface{}{dep.Name, dep.DisplayName, dep.Description,
				dep.ConsultationFee, dep.AverageConsultationTime, dep.ColorCode, true})
		}
		query, args := insertRows(`INSERT INTO departments (name, display_name, description,
			consultation_fee, average_consultation_time, color_code, is_active) VALUES `, rows)
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("seed departments: %w", err)
		}
		logger.Info().Int("count", len(d.Departments)).Msg("seeded default departments")
	}

	n, err = count(ctx, q, "clinic_settings")
	if err != nil {
		return err
	}
	if n == 0 && len(d.Settings) > 0 {
		rows := make([][]interface{}, 0, len(d.Settings))
		for _, s := range d.Settings {
			raw, err := json.Marshal(s.Value)
			if err != nil {
				return fmt.Errorf("encode setting %s: %w", s.Key, err)
			}
			rows = append(rows, []interface{}{s.Key, raw, s.Type, s.Description})
		}
		query, args := insertRows(`INSERT INTO clinic_settings (setting_key, setting_value,
			setting_type, description) VALUES `, rows)
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("seed clinic settings: %w", err)
		}
		logger.Info().Int("count", len(d.Settings)).Msg("seeded default clinic settings")
	}
	return nil
}

// insertRows appends one placeholder tuple per row to prefix and flattens
// the values into args.
func insertRows(prefix string, rows [][]interface{}) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(prefix)
	var args []interface{}
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			args = append(args, v)
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteByte(')')
	}
	return b.String(), args
}

func count(ctx context.Context, q db.DBTX, table string) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
