// Package config loads the storefront's runtime configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"crypto/ed25519"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Config holds the runtime configuration for a storefront instance.
type Config struct {
	// ListenAddr is the HTTP bind address, e.g. ":8080".
	ListenAddr string

	// RPCEndpoint is the ledger node's JSON-RPC URL.
	RPCEndpoint string
	// RPCTimeout bounds each individual RPC round trip.
	RPCTimeout time.Duration

	// Mint is the token the storefront charges in.
	Mint ed25519.PublicKey

	// MerchantWallet receives payments. When MERCHANT_WALLET is unset it
	// defaults to the signing key's public key.
	MerchantWallet ed25519.PublicKey

	// MerchantKey signs and pays for lazy merchant token account creation.
	MerchantKey ed25519.PrivateKey

	// Price is the fixed per-purchase price in whole tokens. Quantization
	// into raw units happens against the mint's declared decimals.
	Price decimal.Decimal

	// Label is the storefront name shown by wallets.
	Label string

	// EmitAfterConfirm delays the registration event until the merchant
	// account is observed on the ledger, instead of publishing it as soon
	// as a creation transaction is handed out.
	EmitAfterConfirm bool

	// RateLimit is the per-client request rate for the HTTP API, in
	// requests per second.
	RateLimit float64

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		RPCEndpoint:      getEnv("RPC_ENDPOINT", "https://api.devnet.solana.com"),
		RPCTimeout:       getEnvDuration("RPC_TIMEOUT", 10*time.Second),
		Label:            getEnv("STORE_LABEL", "Barcode POS"),
		EmitAfterConfirm: getEnvBool("EMIT_AFTER_CONFIRM", false),
		RateLimit:        getEnvFloat("RATE_LIMIT", 10),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	mint := os.Getenv("MINT_ADDRESS")
	if mint == "" {
		return nil, errors.New("MINT_ADDRESS is required")
	}
	mintKey, err := base58.Decode(mint)
	if err != nil || len(mintKey) != ed25519.PublicKeySize {
		return nil, errors.New("MINT_ADDRESS is not a valid base58 address")
	}
	cfg.Mint = mintKey

	secret := os.Getenv("MERCHANT_SECRET_KEY")
	if secret == "" {
		return nil, errors.New("MERCHANT_SECRET_KEY is required")
	}
	secretKey, err := base58.Decode(secret)
	if err != nil || len(secretKey) != ed25519.PrivateKeySize {
		return nil, errors.New("MERCHANT_SECRET_KEY is not a valid base58 ed25519 private key")
	}
	cfg.MerchantKey = secretKey

	if wallet := os.Getenv("MERCHANT_WALLET"); wallet != "" {
		walletKey, err := base58.Decode(wallet)
		if err != nil || len(walletKey) != ed25519.PublicKeySize {
			return nil, errors.New("MERCHANT_WALLET is not a valid base58 address")
		}
		cfg.MerchantWallet = walletKey
	} else {
		cfg.MerchantWallet = cfg.MerchantKey.Public().(ed25519.PublicKey)
	}

	price := getEnv("PRICE", "0.2")
	cfg.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, errors.Wrapf(err, "PRICE %q is not a valid decimal", price)
	}
	if cfg.Price.Sign() <= 0 {
		return nil, errors.Errorf("PRICE %q must be positive", price)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return def
}
