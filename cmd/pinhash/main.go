package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gorilla/securecookie"

	"kioskboard/internal/auth"
)

// pinhash prints the bcrypt hash to put in KIOSK_STAFF_PIN_HASH or config.json.
// With -session-key it prints a random KIOSK_SESSION_KEY instead.
func main() {
	pin := flag.String("pin", "", "Staff PIN (read from stdin when empty)")
	sessionKey := flag.Bool("session-key", false, "Print a random session cookie key and exit")
	flag.Parse()

	if *sessionKey {
		key := securecookie.GenerateRandomKey(32)
		if key == nil {
			fmt.Fprintln(os.Stderr, "Error generating random key")
			os.Exit(1)
		}
		fmt.Println(hex.EncodeToString(key))
		return
	}

	value := *pin
	if value == "" {
		fmt.Fprint(os.Stderr, "Staff PIN: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "Error reading PIN: %v\n", err)
			os.Exit(1)
		}
		value = strings.TrimSpace(line)
	}

	hash, err := auth.HashPIN(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (minimum %d digits)\n", err, auth.MinPINLength)
		os.Exit(1)
	}
	fmt.Println(hash)
}
