package main

import (
	"flag"
	"fmt"
	"os"

	"arenachain/crypto"
)

const passphraseEnv = "ARENA_KEYSTORE_PASSPHRASE"

func main() {
	out := flag.String("out", "authority.keystore", "Path to write the encrypted keystore")
	flag.Parse()

	passphrase := os.Getenv(passphraseEnv)
	if passphrase == "" {
		fmt.Fprintf(os.Stderr, "%s must be set\n", passphraseEnv)
		os.Exit(1)
	}

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}

	if err := crypto.SaveKeystore(*out, key, passphrase); err != nil {
		fmt.Fprintf(os.Stderr, "keystore write failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("address: %s\nkeystore: %s\n", key.PubKey().Address().String(), *out)
}
