package main

import (
	"context"
	"flag"
	"log"

	"exam-access-backend/internal/config"
	"exam-access-backend/internal/domain/model"
	pg "exam-access-backend/internal/infra/db/postgres"
	red "exam-access-backend/internal/infra/redis"
)

// Sets up a clean, predictable database state for manual end-to-end testing:
// schema, empty tables, a manager and a student, and one issued code.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/4] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	log.Println("[2/4] Creating schema...")
	if _, err := pool.Exec(ctx, pg.Schema); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	log.Println("[3/4] Wiping existing data...")
	if _, err := pool.Exec(ctx, `TRUNCATE users, access_codes RESTART IDENTITY CASCADE;`); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Println("[4/4] Seeding users...")
	userRepo := pg.NewPostgresUserRepo(pool)
	manager, _ := model.NewUser("", "e2e_manager", model.RoleManager)
	student, _ := model.NewUser("", "e2e_student", model.RoleStudent)
	for _, u := range []*model.User{manager, student} {
		if err := userRepo.Save(ctx, nil, u); err != nil {
			log.Fatalf("failed to save user %s: %v", u.Username, err)
		}
	}

	log.Printf("manager id: %s", manager.ID)
	log.Printf("student id: %s", student.ID)
	log.Println("--- E2E Environment Ready ---")
}
