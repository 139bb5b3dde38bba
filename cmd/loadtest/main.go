// Package main is a load generator for the sequencer's HTTP submission
// endpoint. It mints caller wallets, signs JWTs for them, and submits
// signed payload envelopes at a target rate.
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/wallet"
)

// Command line flags
var (
	baseURL     = flag.String("url", "http://localhost:8080", "Sequencer base URL")
	duration    = flag.Duration("duration", 1*time.Minute, "Test duration")
	numWallets  = flag.Int("wallets", 100, "Number of caller wallets")
	keysFile    = flag.String("keys-file", "", "File of hex private keys; reused across runs when set")
	concurrency = flag.Int("concurrency", 10, "Number of concurrent clients")
	rate        = flag.Float64("rate", 100, "Target submissions per second")
	fee         = flag.Uint64("fee", 100000, "Fee attached to each submission")
	payloadSize = flag.Int("payload-size", 256, "Size of the random data inside each envelope")
	jwtSecret   = flag.String("jwt-secret", "", "JWT secret shared with the sequencer")
)

// Stats tracks submission outcomes.
type Stats struct {
	successCount uint64
	failureCount uint64
	latencySum   uint64
}

// caller is one submitting identity: a wallet plus its bearer token.
type caller struct {
	wallet *wallet.Wallet
	token  string
}

type submitRequest struct {
	Payload string `json:"payload"`
	Fee     uint64 `json:"fee"`
}

// envelope is the payload shape submitted to the sequencer: opaque data
// signed by the caller's wallet, the way a real client would wrap a
// transaction. The sequencer carries it without inspecting it.
type envelope struct {
	Nonce     string `json:"nonce"`
	Data      string `json:"data"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

func main() {
	flag.Parse()

	if *jwtSecret == "" {
		log.Fatal("-jwt-secret is required")
	}
	if *numWallets < 1 {
		log.Fatal("-wallets must be at least 1")
	}

	fmt.Printf("Load Test Configuration:\n")
	fmt.Printf("  URL: %s\n", *baseURL)
	fmt.Printf("  Duration: %s\n", *duration)
	fmt.Printf("  Wallets: %d\n", *numWallets)
	fmt.Printf("  Concurrency: %d\n", *concurrency)
	fmt.Printf("  Target rate: %.0f/s\n", *rate)
	fmt.Printf("  Fee: %d\n", *fee)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		fmt.Println("\nShutting down...")
		cancel()
	}()

	fmt.Printf("Preparing %d caller wallets...\n", *numWallets)
	wallets, err := loadWallets(*numWallets, *keysFile)
	if err != nil {
		log.Fatalf("Failed to prepare wallets: %v", err)
	}

	if err := checkSigning(wallets[0]); err != nil {
		log.Fatalf("Wallet signing check failed: %v", err)
	}

	callers, err := mintTokens(wallets, *jwtSecret)
	if err != nil {
		log.Fatalf("Failed to mint tokens: %v", err)
	}

	stats := &Stats{}
	client := &http.Client{Timeout: 10 * time.Second}

	interval := time.Duration(float64(time.Second) * float64(*concurrency) / *rate)

	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			runWorker(ctx, client, callers, stats, interval)
		}(i)
	}

	reportDone := make(chan struct{})
	go reportLoop(ctx, stats, reportDone)

	wg.Wait()
	close(reportDone)

	success := atomic.LoadUint64(&stats.successCount)
	failure := atomic.LoadUint64(&stats.failureCount)
	total := success + failure
	fmt.Printf("\nResults:\n")
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d\n", success)
	fmt.Printf("  Failure: %d\n", failure)
	if success > 0 {
		fmt.Printf("  Mean latency: %.2fms\n",
			float64(atomic.LoadUint64(&stats.latencySum))/float64(success))
	}
}

// loadWallets reuses identities from path when set, generating any shortfall
// and writing the full set back so the next run submits as the same callers.
func loadWallets(n int, path string) ([]*wallet.Wallet, error) {
	var wallets []*wallet.Wallet

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, line := range strings.Fields(string(data)) {
			w, err := wallet.Import(line)
			if err != nil {
				return nil, fmt.Errorf("bad key in %s: %w", path, err)
			}
			wallets = append(wallets, w)
			if len(wallets) == n {
				break
			}
		}
	}

	for len(wallets) < n {
		w, err := wallet.New()
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}

	if path != "" {
		var buf bytes.Buffer
		for _, w := range wallets {
			buf.WriteString(w.ExportPrivateKey())
			buf.WriteByte('\n')
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
			return nil, err
		}
	}

	return wallets, nil
}

// checkSigning runs one sign/verify round trip so bad key material fails the
// run before any load is generated.
func checkSigning(w *wallet.Wallet) error {
	digest := sha256.Sum256([]byte("loadtest"))

	sig, err := w.Sign(digest[:])
	if err != nil {
		return err
	}

	ok, err := wallet.VerifySignature(w.PublicKey, digest[:], sig)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("signature did not verify")
	}
	return nil
}

// mintTokens signs a JWT per wallet carrying its address, the claim the
// submission endpoint reads.
func mintTokens(wallets []*wallet.Wallet, secret string) ([]caller, error) {
	tokenAuth := jwtauth.New("HS256", []byte(secret), nil)

	callers := make([]caller, 0, len(wallets))
	for _, w := range wallets {
		_, token, err := tokenAuth.Encode(map[string]interface{}{
			"address": w.Address,
			"role":    "user",
			"exp":     time.Now().Add(24 * time.Hour).Unix(),
		})
		if err != nil {
			return nil, err
		}
		callers = append(callers, caller{wallet: w, token: token})
	}

	return callers, nil
}

func runWorker(ctx context.Context, client *http.Client, callers []caller, stats *Stats, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			submitOne(ctx, client, callers[rand.Intn(len(callers))], stats)
		}
	}
}

// buildEnvelope assembles a signed payload: a fresh nonce and random data,
// signed by the caller's wallet key.
func buildEnvelope(w *wallet.Wallet, size int) ([]byte, error) {
	nonce, err := wallet.GenerateNonce()
	if err != nil {
		return nil, err
	}

	data := make([]byte, size)
	rand.Read(data)

	digest := sha256.Sum256(append([]byte(nonce), data...))
	sig, err := w.Sign(digest[:])
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope{
		Nonce:     nonce,
		Data:      base64.StdEncoding.EncodeToString(data),
		PublicKey: hex.EncodeToString(w.PublicKey),
		Signature: hex.EncodeToString(sig),
	})
}

func submitOne(ctx context.Context, client *http.Client, c caller, stats *Stats) {
	payload, err := buildEnvelope(c.wallet, *payloadSize)
	if err != nil {
		atomic.AddUint64(&stats.failureCount, 1)
		return
	}

	body, err := json.Marshal(submitRequest{
		Payload: base64.StdEncoding.EncodeToString(payload),
		Fee:     *fee,
	})
	if err != nil {
		atomic.AddUint64(&stats.failureCount, 1)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		*baseURL+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		atomic.AddUint64(&stats.failureCount, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		atomic.AddUint64(&stats.failureCount, 1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		atomic.AddUint64(&stats.successCount, 1)
		atomic.AddUint64(&stats.latencySum, uint64(time.Since(start).Milliseconds()))
	} else {
		atomic.AddUint64(&stats.failureCount, 1)
	}
}

func reportLoop(ctx context.Context, stats *Stats, done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			fmt.Printf("  progress: success=%d failure=%d\n",
				atomic.LoadUint64(&stats.successCount),
				atomic.LoadUint64(&stats.failureCount))
		}
	}
}
