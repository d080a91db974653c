package main

import (
	"context"
	"log"
	"os"

	"dataspot/internal/db"
	"dataspot/internal/domain"
	"dataspot/internal/repository"
	"dataspot/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	email := "testuser@dataspot.store"

	u, err := repo.GetByEmail(ctx, email)
	if err != nil {
		log.Fatalf("lookup failed: %v", err)
	}
	if u != nil {
		log.Printf("user already exists id=%d\n", u.ID)
	} else {
		u = &domain.User{
			Name:           "Test User",
			Email:          email,
			PhoneNumber:    "0241234567",
			ApprovalStatus: domain.ApprovalApproved,
		}
		if err := repo.Create(ctx, u); err != nil {
			log.Fatalf("create user failed: %v", err)
		}
		log.Printf("user created id=%d\n", u.ID)
	}

	service.InitJWT(jwtSecret)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
