package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/champquiz/go-server/internal/catalog"
	"github.com/champquiz/go-server/internal/hint"
	"github.com/champquiz/go-server/internal/httpserver"
	"github.com/champquiz/go-server/internal/store"
	"os"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := catalog.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load champion catalog")
	}
	log.Info().Int("champions", catalog.Size()).Msg("catalog loaded")

	db, err := openDB(getEnv("DB_PATH", "./data/champquiz.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	oracle := hint.NewFromEnv()
	mem := store.NewMemoryStore()
	srv := httpserver.New(mem, db, oracle)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting champquiz-go")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" { return v }
	return def
}
