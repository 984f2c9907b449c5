package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"exam-access-backend/internal/config"
	"exam-access-backend/internal/domain/model"
	pg "exam-access-backend/internal/infra/db/postgres"
	"exam-access-backend/internal/infra/logging"
	"exam-access-backend/internal/retry"
	"exam-access-backend/internal/usecase"
)

// Seeds a demo manager, a handful of students, and one access code per tier.
// Idempotent: does nothing when users already exist.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	logger := logging.New(cfg.Log, true)
	userRepo := pg.NewPostgresUserRepo(pool)
	codeRepo := pg.NewAccessCodeRepo(pool)
	userUC := usecase.NewUserUseCase(userRepo)
	codeUC := usecase.NewAccessCodeUseCase(codeRepo, userRepo, retry.Policy{
		IsLockTimeout: pg.IsLockTimeout,
		IsDuplicate:   pg.IsDuplicateKey,
	}, cfg.Codes.OpTimeout, logger).WithTxManager(pg.NewTxManager(pool))

	if n, err := userUC.Count(ctx); err != nil {
		log.Fatalf("count users: %v", err)
	} else if n > 0 {
		fmt.Printf("%d users already present. No changes.\n", n)
		return
	}

	manager, err := userUC.Register(ctx, "demo_manager", model.RoleManager)
	if err != nil {
		log.Fatalf("register manager: %v", err)
	}
	fmt.Printf("seeded manager: %s (id=%s)\n", manager.Username, manager.ID)

	for i, entry := range model.PaymentTiers() {
		student, code, err := codeUC.IssueForNewUser(ctx,
			fmt.Sprintf("demo_student_%d", i+1), model.RoleStudent, &manager.ID, entry.Amount)
		if err != nil {
			log.Fatalf("seed tier %d: %v", entry.Amount, err)
		}
		fmt.Printf("seeded: %s -> %s (tier=%s, days=%d)\n",
			student.Username, code.Code, code.Tier, code.DurationDays)
	}

	fmt.Println("Seeding complete.")
}
