// Command keygen writes the RSA key pair used to sign access tokens.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/logger"
	"github.com/rs/zerolog/log"
)

const (
	privateKeyFile = "jwt-private.key"
	publicKeyFile  = "jwt-public.key"
)

func main() {
	dir := flag.String("dir", "certs", "directory to write the key pair to")
	bits := flag.Int("bits", 2048, "RSA key size in bits")
	force := flag.Bool("force", false, "overwrite existing keys")
	flag.Parse()

	logger.Init("info", true)

	if err := writeKeyPair(*dir, *bits, *force); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate key pair")
	}
	log.Info().Str("dir", *dir).Int("bits", *bits).Msg("Key pair written")
}

func writeKeyPair(dir string, bits int, force bool) error {
	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	if !force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists, use -force to replace it", p)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}

	privPEM, pubPEM, err := auth.GenerateKeyPair(bits)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}
