package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/reloaded/internal/domain-adapters/gateways"
)

func runVerify(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var (
		sha256  = fs.String("sha256", "", "Expected SHA-256 (case-insensitive)")
		sig     = fs.String("sig", "", "Detached OpenPGP signature: local file or http(s) URL")
		keyring = fs.String("keyring", "", "Trusted public keyring file (armored or binary)")
		keysURL = fs.String("keys-url", "", "URL to KEYS file with trusted public keys")
		auto    = fs.Bool("all", false, "Pick up <file>.sha256 and <file>.asc automatically")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reloaded verify <file> [options]

Verify a package against an expected hash and/or a detached OpenPGP signature.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  reloaded verify notes.apk --sha256 9F86D081884C7D65...
  reloaded verify notes.apk --sig notes.apk.asc --keyring trusted.asc
  reloaded verify notes.apk --all --keyring trusted.asc
`)
	}

	filePath := parseWithArg(fs, args, "file path")

	if err := executeVerify(ctx, filePath, *sha256, *sig, *keyring, *keysURL, *auto); err != nil {
		exitWithError(err)
	}
}

func executeVerify(ctx context.Context, filePath, sha256, sig, keyring, keysURL string, auto bool) error {
	if auto {
		if sha256 == "" && fileExists(filePath+".sha256") {
			data, err := os.ReadFile(filePath + ".sha256") //nolint:gosec // G304: sidecar of the verified file
			if err != nil {
				return err
			}
			if fields := strings.Fields(string(data)); len(fields) > 0 {
				sha256 = fields[0]
			}
		}
		if sig == "" && fileExists(filePath+".asc") {
			sig = filePath + ".asc"
		}
	}

	if sha256 == "" && sig == "" {
		return fmt.Errorf("nothing to verify: pass --sha256 and/or --sig")
	}

	fmt.Printf("🔍 Verifying %s\n\n", filepath.Base(filePath))

	verified := 0
	failed := 0

	if sha256 != "" {
		fmt.Printf("📋 Verifying checksum...\n")
		if err := gateways.NewChecksumVerifier().VerifyChecksum(ctx, filePath, sha256); err != nil {
			fmt.Printf("❌ Checksum verification FAILED: %v\n\n", err)
			failed++
		} else {
			fmt.Printf("✅ Checksum verified\n\n")
			verified++
		}
	}

	if sig != "" {
		fmt.Printf("🔐 Verifying OpenPGP signature...\n")
		if err := verifySignature(ctx, filePath, sig, keyring, keysURL); err != nil {
			fmt.Printf("❌ Signature verification FAILED: %v\n\n", err)
			failed++
		} else {
			fmt.Printf("✅ Signature verified\n\n")
			verified++
		}
	}

	fmt.Printf("Summary: %d verified, %d failed\n", verified, failed)
	if failed > 0 {
		return fmt.Errorf("verification failed")
	}
	return nil
}

func verifySignature(ctx context.Context, filePath, sig, keyring, keysURL string) error {
	verifier := gateways.NewGPGVerifier()

	if keyring != "" {
		if err := verifier.ImportKeyFromFile(keyring); err != nil {
			return err
		}
	}
	if keysURL != "" {
		if err := verifier.ImportKeysFromURL(ctx, keysURL); err != nil {
			return err
		}
	}
	if verifier.KeyringSize() == 0 {
		return fmt.Errorf("no trusted keys: pass --keyring or --keys-url")
	}

	if strings.HasPrefix(sig, "http://") || strings.HasPrefix(sig, "https://") {
		return verifier.VerifySignature(ctx, filePath, sig)
	}
	return verifier.VerifySignatureFromFile(filePath, sig)
}
