package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/database"
	"github.com/prepdesk/prepdesk-backend/internal/logger"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/prepdesk/prepdesk-backend/internal/service"
)

// Seeds 50 demo students, all with the password "prepdesk123".
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	studentRepo := repository.NewStudentRepository(pool)
	authService := service.NewAuthService(cfg, nil)
	studentService := service.NewStudentService(studentRepo, authService)

	fmt.Println("=== Seeding 50 Students ===")

	names := []string{
		"Alice Walker", "Ben Carter", "Chloe Davis", "Daniel Evans", "Emma Foster",
		"Felix Grant", "Grace Harris", "Henry Irwin", "Isla Jones", "Jack Kim",
		"Katie Lewis", "Liam Moore", "Mia Nolan", "Noah Owens", "Olivia Price",
		"Peter Quinn", "Quinn Reyes", "Ruby Scott", "Sam Turner", "Tara Usman",
		"Umar Vance", "Vera White", "Will Xu", "Xena Young", "Yara Zane",
		"Aaron Bell", "Bella Cruz", "Caleb Dunn", "Daisy East", "Ethan Ford",
		"Fiona Gray", "George Hale", "Hana Ito", "Ivan Jacobs", "Julia Knight",
		"Kyle Lang", "Lena Marsh", "Mason North", "Nina Ortiz", "Owen Park",
		"Paula Reed", "Rhys Stone", "Sofia Tran", "Tom Underhill", "Una Vogel",
		"Victor Webb", "Wendy Xiong", "Yusuf Adams", "Zara Brooks", "Zane Cole",
	}

	successCount := 0
	for i, name := range names {
		email := fmt.Sprintf("%s%d@example.com",
			strings.ToLower(strings.Split(name, " ")[0]), i+1)

		req := &model.RegisterStudentRequest{
			Name:     name,
			Email:    email,
			Password: "prepdesk123",
		}

		if _, err := studentService.Register(ctx, req); err != nil {
			if errors.Is(err, service.ErrEmailTaken) {
				fmt.Printf("Skipping %s: already exists\n", email)
				continue
			}
			fmt.Printf("Error creating student %s (%s): %v\n", name, email, err)
			continue
		}

		successCount++
		if (i+1)%10 == 0 {
			fmt.Printf("Created %d students...\n", i+1)
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", successCount, len(names))
}
