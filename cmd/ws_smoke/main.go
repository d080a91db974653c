package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"dataspot/internal/db"
	"dataspot/internal/domain"
	"dataspot/internal/repository"
	"dataspot/internal/service"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// Connects to the deposit settlement stream as a smoke user and prints
// whatever arrives. Run it alongside a manual Paystack test payment to watch
// the settlement push land.
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
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	ur := repository.NewUserRepository(pool)
	ctx := context.Background()

	email := "ws-smoke@dataspot.store"
	u, err := ur.GetByEmail(ctx, email)
	if err != nil {
		log.Fatalf("lookup: %v", err)
	}
	if u == nil {
		u = &domain.User{
			Name:           "WS Smoke",
			Email:          email,
			ApprovalStatus: domain.ApprovalApproved,
		}
		if err := ur.Create(ctx, u); err != nil {
			log.Fatalf("create user: %v", err)
		}
	}

	service.InitJWT(jwtSecret)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		log.Fatalf("gen token: %v", err)
	}

	// 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	wsURL := fmt.Sprintf("ws://127.0.0.1:%s/ws/deposits?token=%s", port, token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	log.Printf("connected as user %d, waiting for settlement events (60s)", u.ID)

	// read errors are sticky on a websocket conn, so one overall deadline
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("read ended: %v", err)
			break
		}
		log.Printf("got: %s", string(msg))
	}

	log.Println("smoke finished")
}
