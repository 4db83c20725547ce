// Command devtoken mints a session token for a wallet, for local testing.
//
//	JWT_SECRET=... go run ./cmd/devtoken 0xabc...
package main

import (
	"fmt"
	"os"

	"github.com/mmynk/esusu/internal/auth"
	"github.com/mmynk/esusu/internal/chain"
	"github.com/mmynk/esusu/internal/config"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: devtoken <wallet-address>")
		os.Exit(2)
	}
	wallet, err := chain.NormalizeAddress(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tok, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL).Generate(wallet)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
