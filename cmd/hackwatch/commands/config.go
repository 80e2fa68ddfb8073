package commands

import (
	"database/sql"
	"fmt"
	"time"

	"hackwatch/lib/configutil"
	"hackwatch/lib/pagearchive"
	"hackwatch/lib/scrapers/geekhack"
	"hackwatch/lib/serviceutil"
	"hackwatch/lib/sqliteutil"
	"hackwatch/services/tracker"
	trackerdb "hackwatch/services/tracker/db"
)

type DatabaseConfig struct {
	File string `json:"file"`
}

type ArchiveConfig struct {
	// non-empty enables archiving of every fetched listing page
	Dir string `json:"dir"`
}

type Config struct {
	Database DatabaseConfig `json:"database"`
	// board slugs to scan, in order; empty means all known boards
	Boards []string `json:"boards"`
	// pause between listing page fetches, 3 seconds when omitted
	RequestDelaySeconds int           `json:"request_delay_seconds"`
	Archive             ArchiveConfig `json:"archive"`
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.Database.File == "" {
		cfg.Database.File = "hackwatch.db"
	}
	if cfg.RequestDelaySeconds == 0 {
		cfg.RequestDelaySeconds = 3
	}
	return cfg
}

func resolveBoards(cfg Config) []geekhack.Board {
	if len(cfg.Boards) == 0 {
		return geekhack.Boards
	}
	boards := make([]geekhack.Board, 0, len(cfg.Boards))
	for _, slug := range cfg.Boards {
		board, ok := geekhack.BoardBySlug(slug)
		if !ok {
			serviceutil.Fatal("unknown board in config", fmt.Errorf("no board with slug %q", slug))
		}
		boards = append(boards, board)
	}
	return boards
}

func openStore(cfg Config) (tracker.Store, *sql.DB) {
	database, err := sqliteutil.OpenDB(trackerdb.Schema, cfg.Database.File)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	return tracker.NewStore(database), database
}

// buildScanner wires the geekhack client, store and scanner together
// from config. The returned closer releases the database and, when
// configured, the page archive.
func buildScanner(cfg Config) (tracker.Scanner, func()) {
	store, database := openStore(cfg)

	var archive *pagearchive.Archive
	if cfg.Archive.Dir != "" {
		var err error
		archive, err = pagearchive.Open(cfg.Archive.Dir)
		if err != nil {
			serviceutil.Fatal("failed to open page archive", err)
		}
	}

	client := geekhack.NewClient(geekhack.ClientOptions{Archive: archive})
	scanner := tracker.NewScanner(client, store, tracker.ScannerOptions{
		Boards:    resolveBoards(cfg),
		PageDelay: time.Duration(cfg.RequestDelaySeconds) * time.Second,
	})

	return scanner, func() {
		database.Close()
		if archive != nil {
			archive.Close()
		}
	}
}
