package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-d", "-s", "-i", "-t", "-k", "-w", "-o", "-r", "-b"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN; empty selects the in-memory store
//	-s string   JWT HMAC secret key
//	-i string   JWT issuer
//	-t int      access token validity, minutes
//	-k int      bcrypt cost
//	-w int      concurrent bcrypt computations
//	-o duration store call timeout
//	-r int      login/register requests per minute per client IP
//	-b int      rate limiter burst
//
// Unknown flags (including -c/-config) are filtered out with flagx.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("authkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrHTTP, "a", cfg.EndpointAddrHTTP, "HTTP address")
	fs.StringVar(&cfg.EndpointAddrGRPC, "g", cfg.EndpointAddrGRPC, "gRPC address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.StringVar(&cfg.Issuer, "i", cfg.Issuer, "token issuer")
	accessTokenValidity := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.IntVar(&cfg.HashCost, "k", cfg.HashCost, "bcrypt cost")
	fs.IntVar(&cfg.HashConcurrency, "w", cfg.HashConcurrency, "concurrent bcrypt computations")
	fs.DurationVar(&cfg.StoreTimeout, "o", cfg.StoreTimeout, "store call timeout")
	fs.IntVar(&cfg.LoginRateLimit, "r", cfg.LoginRateLimit, "auth requests per minute per IP")
	fs.IntVar(&cfg.LoginRateBurst, "b", cfg.LoginRateBurst, "auth rate limiter burst")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		}
	})
	return nil
}
