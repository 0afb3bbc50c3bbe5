package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"localhost/claude-bridge/internal/tokensource"
)

// authCommand returns the 'auth' subcommand for managing provider API keys
// stored in the OS keyring. Providers configured with api_key = "keyring"
// read the keys managed here.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage provider API keys in the OS keyring",
		Commands: []*cli.Command{
			authSetCommand(),
			authRemoveCommand(),
		},
	}
}

// authSetCommand returns the 'auth set' subcommand.
func authSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a provider's API key",
		ArgsUsage: "<provider>",
		Action:    authSetAction,
	}
}

// authRemoveCommand returns the 'auth rm' subcommand.
func authRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove a provider's API key",
		ArgsUsage: "<provider>",
		Action:    authRemoveAction,
	}
}

func authSetAction(ctx context.Context, cmd *cli.Command) error {
	provider := cmd.Args().First()
	if provider == "" {
		return fmt.Errorf("provider name is required")
	}

	apiKey, err := readSecureInput(ctx, fmt.Sprintf("Enter API key for %s: ", provider))
	if err != nil {
		return err
	}
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if err := tokensource.Store(provider, apiKey); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("API key for %s saved to keyring\n", provider)
	return nil
}

func authRemoveAction(ctx context.Context, cmd *cli.Command) error {
	provider := cmd.Args().First()
	if provider == "" {
		return fmt.Errorf("provider name is required")
	}

	if err := tokensource.Delete(provider); err != nil {
		return fmt.Errorf("failed to remove API key: %w", err)
	}

	fmt.Printf("API key for %s removed from keyring\n", provider)
	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
