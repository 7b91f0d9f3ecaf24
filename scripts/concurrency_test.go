//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the borrowing API.
//
// Usage:
//
//	JWT_SECRET=<secret> go run ./scripts/concurrency_test.go <book_id> [readers]
//
// What it does:
//  1. Mints a token for each of N synthetic readers (default 20).
//  2. Fires one POST /borrowings per reader, all for the same book, simultaneously.
//  3. Reads the book back and checks that successful borrowings never exceed the
//     inventory that was available and that the inventory never drops below zero.
//
// Prerequisites:
//   - Server must be running with the same JWT_SECRET.
//   - The book must exist.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"library-service/internal/auth"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	Reader     string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_URL")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}
	secret := os.Getenv("JWT_SECRET")

	args := os.Args[1:]
	if len(args) < 1 || secret == "" {
		log.Fatal("Usage: JWT_SECRET=<secret> go run ./scripts/concurrency_test.go <book_id> [readers]")
	}
	bookID := args[0]
	readers := 20
	if len(args) >= 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			log.Fatalf("invalid reader count %q", args[1])
		}
		readers = n
	}

	client := &http.Client{Timeout: 10 * time.Second}
	before, err := inventory(client, serverAddr, bookID)
	if err != nil {
		log.Fatalf("reading book: %v", err)
	}

	fmt.Printf("=== Borrowing Concurrency Test ===\n")
	fmt.Printf("Server    : %s\n", serverAddr)
	fmt.Printf("Book      : %s\n", bookID)
	fmt.Printf("Inventory : %d\n", before)
	fmt.Printf("Readers   : %d\n\n", readers)

	tokens := make([]string, readers)
	for i := range tokens {
		email := fmt.Sprintf("stress-%d-%s@example.com", i, uuid.NewString()[:8])
		tokens[i], err = auth.GenerateToken(secret, uuid.New(), email, false, time.Hour)
		if err != nil {
			log.Fatalf("minting token: %v", err)
		}
	}

	returnDate := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	results := make([]borrowResult, readers)
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})
	for i, token := range tokens {
		wg.Add(1)
		go func(idx int, token string) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(client, serverAddr, token, bookID, returnDate)
			results[idx].Reader = strconv.Itoa(idx)
		}(i, token)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var borrowed, unavailable, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] reader=%-4s err=%v\n", r.Reader, r.Err)
		case r.StatusCode == http.StatusCreated:
			borrowed++
		case r.StatusCode == http.StatusBadRequest:
			unavailable++
		default:
			failures++
			fmt.Printf("  [FAIL] reader=%-4s status=%d %s\n", r.Reader, r.StatusCode, r.Message)
		}
	}

	after, err := inventory(client, serverAddr, bookID)
	if err != nil {
		log.Fatalf("reading book: %v", err)
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed     : %d\n", borrowed)
	fmt.Printf("Unavailable  : %d\n", unavailable)
	fmt.Printf("Failures     : %d\n", failures)
	fmt.Printf("Inventory    : %d -> %d\n\n", before, after)

	fmt.Println("--- Invariant Check ---")
	ok := true
	if borrowed > before {
		fmt.Printf("[FAIL] %d borrowings succeeded but only %d copies were available\n", borrowed, before)
		ok = false
	}
	if after < 0 {
		fmt.Printf("[FAIL] inventory went negative: %d\n", after)
		ok = false
	}
	if before-after != borrowed {
		fmt.Printf("[FAIL] inventory moved by %d but %d borrowings succeeded\n", before-after, borrowed)
		ok = false
	}
	if ok {
		fmt.Println("[ OK ] inventory and borrowings agree")
	}

	if !ok || failures > 0 {
		os.Exit(1)
	}
}

func attemptBorrow(client *http.Client, serverAddr, token, bookID, returnDate string) borrowResult {
	body, _ := json.Marshal(map[string]string{"book": bookID, "expected_return_date": returnDate})
	req, err := http.NewRequest(http.MethodPost, serverAddr+"/borrowings", bytes.NewReader(body))
	if err != nil {
		return borrowResult{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return borrowResult{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return borrowResult{StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}
	msg, _ := parsed["error"].(string)
	return borrowResult{StatusCode: resp.StatusCode, Message: msg}
}

func inventory(client *http.Client, serverAddr, bookID string) (int, error) {
	resp, err := client.Get(fmt.Sprintf("%s/books/%s", serverAddr, bookID))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var book struct {
		Inventory int `json:"inventory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return 0, err
	}
	return book.Inventory, nil
}
