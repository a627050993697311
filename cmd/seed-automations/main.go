// Command seed-automations loads a YAML rule pack into an operator's account.
// Useful for bootstrapping new accounts with a sensible starter ruleset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"leadpilot_backend/internal/automation"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/config"
	"leadpilot_backend/platform/db"
	"leadpilot_backend/platform/logger"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Automations []seedAutomation `yaml:"automations"`
}

type seedAutomation struct {
	Name     string   `yaml:"name"`
	Trigger  string   `yaml:"trigger"`
	Channel  string   `yaml:"channel"`
	Template string   `yaml:"template"`
	Enabled  *bool    `yaml:"enabled"`
	MinScore *int     `yaml:"minScore"`
	MaxScore *int     `yaml:"maxScore"`
	IntentIn []string `yaml:"intentIn"`
	StageIn  []string `yaml:"stageIn"`
}

func main() {
	var (
		filePath string
		email    string
	)
	flag.StringVar(&filePath, "file", "automations.yaml", "path to the YAML rule pack")
	flag.StringVar(&email, "email", "", "email of the operator to seed")
	flag.Parse()

	if email == "" {
		fmt.Fprintln(os.Stderr, "usage: seed-automations -email operator@example.com [-file automations.yaml]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)

	data, err := os.ReadFile(filePath)
	if err != nil {
		panic("failed to read rule pack: " + err.Error())
	}

	var seeds seedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		panic("failed to parse rule pack: " + err.Error())
	}
	if len(seeds.Automations) == 0 {
		panic("rule pack contains no automations")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	user, err := users.NewRepository(pool).GetByEmail(ctx, email)
	if err != nil {
		panic("failed to resolve operator: " + err.Error())
	}

	repo := automation.NewRepository(pool)
	for _, seed := range seeds.Automations {
		enabled := true
		if seed.Enabled != nil {
			enabled = *seed.Enabled
		}

		created, err := repo.Create(ctx, automation.CreateParams{
			UserID:      user.ID,
			Name:        seed.Name,
			TriggerName: seed.Trigger,
			Channel:     seed.Channel,
			Template:    seed.Template,
			Enabled:     enabled,
			MinScore:    seed.MinScore,
			MaxScore:    seed.MaxScore,
			IntentIn:    seed.IntentIn,
			StageIn:     seed.StageIn,
		})
		if err != nil {
			log.Error("failed to seed automation", "name", seed.Name, "error", err)
			os.Exit(1)
		}
		log.Info("automation seeded", "id", created.ID.String(), "name", created.Name, "trigger", created.TriggerName)
	}

	log.Info("rule pack seeded", "count", len(seeds.Automations), "operator", email)
}
