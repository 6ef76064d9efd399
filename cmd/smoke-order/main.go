package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"sliceline.app/internal/sim"
)

func main() {
	base := os.Getenv("SLICELINE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := sim.NewClient(base)
	email := fmt.Sprintf("smoke-%d@sim.sliceline.app", rand.Int63())
	password := fmt.Sprintf("pw-%d", rand.Int63())

	if err := client.Register(ctx, "smoke diner", email, password); err != nil {
		log.Fatalf("register: %v", err)
	}
	if err := client.Logout(ctx); err != nil {
		log.Fatalf("logout: %v", err)
	}
	if err := client.Login(ctx, email, password); err != nil {
		log.Fatalf("login: %v", err)
	}

	menu, err := client.Menu(ctx)
	if err != nil {
		log.Fatalf("menu: %v", err)
	}
	if len(menu) == 0 {
		log.Fatal("menu is empty; run migrate seed first")
	}

	item := menu[0]
	receipt, err := client.Order(ctx, 1, 1, []sim.OrderItem{{
		MenuID:      item.ID,
		Description: item.Title,
		Price:       item.Price,
	}})
	if err != nil {
		log.Fatalf("order: %v", err)
	}
	if receipt.JWT == "" {
		log.Fatal("order succeeded but no factory receipt was returned")
	}

	fmt.Printf("✅ order smoke test passed: diner=%s item=%s\n", email, item.Title)
}
