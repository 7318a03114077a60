package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
)

// Request structure, must match what the payment gateway expects.
type paymentRequest struct {
	CardNumber  string `json:"card_number"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
}

var currencies = []string{"USD", "EUR", "GBP"}

func main() {
	targetURL := flag.String("target", "http://localhost:8080/api/v1/payments", "Target URL for sending payments")
	rps := flag.Int("rps", 20, "Requests per second")
	flag.Parse()

	log.Printf("Starting generator: target=%s, rps=%d\n", *targetURL, *rps)

	ticker := time.NewTicker(time.Second / time.Duration(*rps))
	defer ticker.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ticker.C:
			// Send in a goroutine so a slow gateway does not block the ticker.
			go sendRequest(*targetURL)
		case <-ctx.Done():
			log.Println("Shutting down generator...")
			return
		}
	}
}

func sendRequest(url string) {
	year := time.Now().Year() + 1 + rand.Intn(4)
	reqData := paymentRequest{
		CardNumber:  faker.CCNumber(),
		ExpiryMonth: 1 + rand.Intn(12),
		ExpiryYear:  year,
		CVV:         "123",
		Currency:    currencies[rand.Intn(len(currencies))],
		Amount:      int64(1 + rand.Intn(100000)),
	}

	body, err := json.Marshal(reqData)
	if err != nil {
		log.Printf("ERROR: failed to marshal request: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		log.Printf("ERROR: failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cko-Idempotency-Key", uuid.New().String())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("ERROR: failed to send request: %v", err)
		return
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	switch resp.StatusCode {
	case http.StatusCreated:
		log.Printf("INFO: payment created, status: %d", resp.StatusCode)
	case http.StatusBadRequest:
		// faker occasionally produces 13-digit numbers the gateway rejects
		log.Printf("INFO: payment rejected by validation, status: %d", resp.StatusCode)
	default:
		log.Printf("WARN: unexpected status code: %d", resp.StatusCode)
	}
}
