package main

import (
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/propboard/propboard/internal/models"
	"github.com/propboard/propboard/pkg/config"
	"github.com/propboard/propboard/pkg/database"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down, or seed")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment(), database.PoolOptions{
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch *direction {
	case "up":
		migrateUp(db)
	case "down":
		migrateDown(db)
	case "seed":
		seed(db)
	default:
		logrus.Fatalf("Unknown direction: %s (use up, down, or seed)", *direction)
	}
}

func migrateUp(db *database.DB) {
	logrus.Info("Running migrations...")

	err := db.AutoMigrate(
		&models.Projection{},
		&models.Lineup{},
		&models.LineupEntry{},
		&models.Explanation{},
	)
	if err != nil {
		logrus.Fatalf("Migration failed: %v", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_projections_sport ON projections(sport)",
		"CREATE INDEX IF NOT EXISTS idx_projections_confidence ON projections(confidence)",
		"CREATE INDEX IF NOT EXISTS idx_lineups_user_submitted ON lineups(user_id, is_submitted)",
		"CREATE INDEX IF NOT EXISTS idx_explanations_created ON explanations(created_at)",
	}
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			logrus.Warnf("Failed to create index: %v", err)
		}
	}

	logrus.Info("Migrations completed successfully")
}

func migrateDown(db *database.DB) {
	logrus.Info("Rolling back migrations...")

	tables := []interface{}{
		&models.Explanation{},
		&models.LineupEntry{},
		&models.Lineup{},
		&models.Projection{},
	}
	for _, table := range tables {
		if err := db.Migrator().DropTable(table); err != nil {
			logrus.Warnf("Failed to drop table: %v", err)
		}
	}

	logrus.Info("Rollback completed")
}

func seed(db *database.DB) {
	logrus.Info("Seeding sample projections...")

	now := time.Now().UTC()
	projections := []models.Projection{
		{ExternalID: "seed_1", PlayerName: "LeBron James", Team: "LAL", Sport: "NBA", League: "NBA", StatType: "points", Line: 27.5, Confidence: 84.2, Odds: -115, ExpectedValue: 0.12, KellyPct: 3.8, RiskLevel: "low", Recommendation: "over", FetchedAt: now},
		{ExternalID: "seed_2", PlayerName: "Stephen Curry", Team: "GSW", Sport: "NBA", League: "NBA", StatType: "threes", Line: 4.5, Confidence: 71.5, Odds: -110, ExpectedValue: 0.08, KellyPct: 2.1, RiskLevel: "medium", Recommendation: "over", FetchedAt: now},
		{ExternalID: "seed_3", PlayerName: "Nikola Jokic", Team: "DEN", Sport: "NBA", League: "NBA", StatType: "rebounds", Line: 12.5, Confidence: 78.9, Odds: -120, ExpectedValue: 0.10, KellyPct: 2.9, RiskLevel: "low", Recommendation: "over", FetchedAt: now},
		{ExternalID: "seed_4", PlayerName: "Patrick Mahomes", Team: "KC", Sport: "NFL", League: "NFL", StatType: "passing_yards", Line: 285.5, Confidence: 66.0, Odds: -105, ExpectedValue: 0.05, KellyPct: 1.4, RiskLevel: "medium", Recommendation: "under", FetchedAt: now},
		{ExternalID: "seed_5", PlayerName: "Aaron Judge", Team: "NYY", Sport: "MLB", League: "MLB", StatType: "total_bases", Line: 1.5, Confidence: 59.3, Odds: 100, ExpectedValue: 0.03, KellyPct: 0.8, RiskLevel: "high", Recommendation: "over", FetchedAt: now},
		{ExternalID: "seed_6", PlayerName: "Connor McDavid", Team: "EDM", Sport: "NHL", League: "NHL", StatType: "shots_on_goal", Line: 3.5, Confidence: 73.7, Odds: -112, ExpectedValue: 0.09, KellyPct: 2.4, RiskLevel: "medium", Recommendation: "over", FetchedAt: now},
	}

	for _, p := range projections {
		if err := db.Where("external_id = ?", p.ExternalID).FirstOrCreate(&p).Error; err != nil {
			logrus.Warnf("Failed to seed projection %s: %v", p.ExternalID, err)
		}
	}

	logrus.Infof("Seeded %d projections", len(projections))
}
