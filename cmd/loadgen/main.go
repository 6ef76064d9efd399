package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sliceline.app/internal/sim"
)

func main() {
	log.SetFlags(0)
	var (
		base      = flag.String("url", envOr("SLICELINE_API_URL", "http://localhost:8080"), "API base URL")
		scenario  = flag.String("scenario", "lunchRush", "Traffic scenario: lunchRush or dinerChurn")
		duration  = flag.Duration("duration", time.Minute, "How long to run")
		franchise = flag.Int("franchise", 1, "Franchise id to order from")
		store     = flag.Int("store", 1, "Store id to order from")
		seed      = flag.Int64("seed", 0, "Random seed (0 = time-based)")
	)
	flag.Parse()

	sc, err := sim.ScenarioByName(*scenario)
	if err != nil {
		log.Fatal(err)
	}
	gen := sim.NewGenerator(sc, *seed)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	log.Printf("running %s against %s for %s", sc.Name, *base, *duration)

	var stats sim.Counter
	client := sim.NewClient(*base)
	var menu []sim.MenuItem

	newDiner := func() error {
		d := gen.NextDiner()
		if err := client.Register(ctx, d.Name, d.Email, d.Password); err != nil {
			return err
		}
		stats.Registered++
		return nil
	}

	if err := newDiner(); err != nil {
		log.Fatalf("register: %v", err)
	}
	if menu, err = client.Menu(ctx); err != nil {
		log.Fatalf("menu: %v", err)
	}
	if len(menu) == 0 {
		log.Fatal("menu is empty; run migrate seed first")
	}

	for ctx.Err() == nil {
		p := gen.NextPurchase(*franchise, *store)
		items := make([]sim.OrderItem, 0, p.ItemCount)
		for i := 0; i < p.ItemCount; i++ {
			m := menu[(stats.Items+i)%len(menu)]
			items = append(items, sim.OrderItem{MenuID: m.ID, Description: m.Title, Price: m.Price})
		}

		if _, err := client.Order(ctx, p.FranchiseID, p.StoreID, items); err != nil {
			if ctx.Err() != nil {
				break
			}
			stats.Failures++
			log.Printf("order failed: %v", err)
		} else {
			stats.AddOrder(items)
		}

		if gen.ShouldChurn() {
			_ = client.Logout(ctx)
			client = sim.NewClient(*base)
			if err := newDiner(); err != nil {
				if ctx.Err() != nil {
					break
				}
				stats.Failures++
				log.Printf("register failed: %v", err)
			}
		}

		select {
		case <-ctx.Done():
		case <-time.After(gen.Pause()):
		}
	}

	fmt.Printf("scenario=%s orders=%d items=%d revenue=%.4f diners=%d failures=%d\n",
		sc.Name, stats.Orders, stats.Items, stats.Revenue, stats.Registered, stats.Failures)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
