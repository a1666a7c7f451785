package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethanbaker/credlink/pkg/sdk"
	"github.com/ethanbaker/credlink/pkg/utils"
)

const usage = `Commands:
  health                                   show backend status
  start <provider> <name> <email>          print the authorization url for gmail or outlook
  process <code> <state> [requestId]       complete a flow with a forwarded code and state
  save <provider> <name> <email> <secret>  store a hubspot api key or streak token
  release <requestId>                      release a request id held by the guard
  exit`

var client *sdk.Client

func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.EnvFiles()...)

	port := cfg.GetFirst("PORT", "API_PORT")
	if port == "" {
		port = utils.DefaultPort
	}

	baseURL := cfg.GetWithDefault("CREDLINK_URL", "http://localhost:"+port)
	client = sdk.NewClient(baseURL, cfg.Get("API_KEY"))

	// Start interactive session
	ctx := context.Background()
	if err := startInteractiveSession(ctx, baseURL); err != nil {
		log.Fatalf("[COMMANDLINE]: Failed to run interactive session: %v", err)
	}
}

// startInteractiveSession reads commands from stdin and sends them to the backend
func startInteractiveSession(ctx context.Context, baseURL string) error {
	fmt.Printf("Credential linking console for %s. Type 'help' for commands, 'exit' to quit.\n", baseURL)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\n> ")

		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" {
			break
		}

		output, err := execute(ctx, fields[0], fields[1:])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		fmt.Println(output)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	return nil
}

func execute(ctx context.Context, command string, args []string) (string, error) {
	switch command {
	case "help":
		return usage, nil

	case "health":
		health, err := client.Health(ctx)
		if err != nil {
			return "", err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s (environment: %s, guard: %s)", health.Status, health.Environment, health.Guard)
		for _, name := range []string{"n8n", "google", "microsoft"} {
			fmt.Fprintf(&b, "\n  %s: %s", name, health.Services[name])
		}
		return b.String(), nil

	case "start":
		if len(args) != 3 {
			return "", fmt.Errorf("usage: start <provider> <name> <email>")
		}
		return client.StartOAuth(ctx, args[0], &sdk.StartOAuthRequest{Name: args[1], Email: args[2]})

	case "process":
		if len(args) < 2 || len(args) > 3 {
			return "", fmt.Errorf("usage: process <code> <state> [requestId]")
		}

		req := &sdk.ProcessCallbackRequest{Code: args[0], State: args[1]}
		if len(args) == 3 {
			req.RequestID = args[2]
		}

		res, err := client.ProcessCallback(ctx, req)
		if err != nil {
			return "", err
		}
		return describe(res), nil

	case "save":
		if len(args) != 4 {
			return "", fmt.Errorf("usage: save <provider> <name> <email> <secret>")
		}

		// HubSpot reads apiKey and Streak reads token, so send the secret as both
		res, err := client.SaveCredentials(ctx, args[0], &sdk.SaveCredentialsRequest{
			Name:   args[1],
			Email:  args[2],
			APIKey: args[3],
			Token:  args[3],
		})
		if err != nil {
			return "", err
		}
		return describe(res), nil

	case "release":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: release <requestId>")
		}

		res, err := client.ReleaseRequest(ctx, args[0])
		if err != nil {
			return "", err
		}
		if !res.Released {
			return fmt.Sprintf("Request %s was not held", res.RequestID), nil
		}
		return fmt.Sprintf("Request %s released", res.RequestID), nil

	default:
		return "", fmt.Errorf("unknown command '%s', type 'help' for commands", command)
	}
}

func describe(res *sdk.LinkResponse) string {
	out := res.Message
	if res.CredentialID != "" {
		out += fmt.Sprintf(" (credential id: %s)", res.CredentialID)
	}
	return out
}
