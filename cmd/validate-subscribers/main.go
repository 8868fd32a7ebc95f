package main

import (
	"fmt"
	"os"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
)

/* validate-subscribers - Standalone CLI tool to validate subscribers.yaml
 * Usage: go run cmd/validate-subscribers/main.go [subscribers.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	subscribersFile := "subscribers.yaml"
	if len(os.Args) > 1 {
		subscribersFile = os.Args[1]
	}

	fmt.Printf("Validating subscribers file: %s\n", subscribersFile)

	subs, err := subscriber.LoadFile(subscribersFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d subscriber(s):\n", len(subs))

	for i, sub := range subs {
		fmt.Printf("\n%d. Subscriber: %s\n", i+1, sub.ID)
		fmt.Printf("   Name:        %s\n", sub.Name)
		fmt.Printf("   Base URL:    %s\n", sub.BaseURL)
		fmt.Printf("   Webhook URL: %s\n", sub.WebhookURL())
		fmt.Printf("   Verify path: %s\n", sub.VerifyPath)
		fmt.Printf("   Enabled:     %t\n", sub.Enabled)
		if sub.Timeout > 0 {
			fmt.Printf("   Timeout:     %s\n", sub.Timeout)
		}
	}

	fmt.Printf("\n✓ All subscribers are valid!\n")
	os.Exit(0)
}
