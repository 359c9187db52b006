// Command kds is a terminal kitchen display. It logs in as a staff user,
// polls the order list on the kitchen cadence, and reprints the active
// queue on every fetch. Pressing Enter forces an immediate refresh.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scanbite/api/internal/config"
	"github.com/scanbite/api/internal/poll"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type orderList struct {
	Orders []struct {
		OrderNumber   string `json:"order_number"`
		Status        string `json:"status"`
		EstimatedTime int32  `json:"estimated_time"`
		PlacedAgo     string `json:"placed_ago"`
	} `json:"orders"`
}

func main() {
	baseURL := flag.String("api", "http://localhost:8081", "API base URL")
	email := flag.String("email", "", "Staff email")
	password := flag.String("password", "", "Staff password")
	status := flag.String("status", "CONFIRMED", "Order status to watch")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	cfg := config.Load()

	token, err := login(*baseURL, *email, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	fetch := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "GET",
			fmt.Sprintf("%s/orders?status=%s", *baseURL, *status), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("list orders: status %d", resp.StatusCode)
		}

		var list orderList
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			return err
		}
		render(*status, list)
		return nil
	}

	intervals := poll.Intervals{
		CustomerTracker: cfg.Poll.CustomerTracker,
		KitchenDisplay:  cfg.Poll.KitchenDisplay,
		WaiterCalls:     cfg.Poll.WaiterCalls,
		Dashboard:       cfg.Poll.Dashboard,
	}
	poller := poll.New(poll.ViewKitchenDisplay, intervals, fetch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Enter = manual refresh.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if !poller.Refresh() {
				log.Println("refresh already in progress")
			}
		}
	}()

	poller.Run(ctx)
}

func login(baseURL, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := http.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	return tr.AccessToken, nil
}

func render(status string, list orderList) {
	fmt.Printf("\n== %s orders (%s) ==\n", status, time.Now().Format("15:04:05"))
	if len(list.Orders) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, o := range list.Orders {
		fmt.Printf("  %-12s est %2dm  placed %s\n", o.OrderNumber, o.EstimatedTime, o.PlacedAgo)
	}
}
