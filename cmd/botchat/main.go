// Command botchat talks to a running bot builder server: it seeds the demo bot
// and opens interactive live chat sessions.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/transport/ws"
)

var (
	serverAddr  string
	botID       int64
	userSession string
	chatMode    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "botchat",
	Short: "Client for the bot builder server",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive conversation with a bot",
	RunE:  runChat,
}

var seedCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Create the demo bot unless it already exists",
	RunE:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8080", "bot builder server address")

	chatCmd.Flags().Int64Var(&botID, "bot", 0, "bot ID to talk to")
	chatCmd.Flags().StringVar(&userSession, "session", domain.DefaultUserSession, "user session name")
	chatCmd.Flags().BoolVar(&chatMode, "direct", false, "answer with the bot's model instead of its scenario")
	_ = chatCmd.MarkFlagRequired("bot")

	rootCmd.AddCommand(chatCmd, seedCmd)
}

func wsAddress(server string) string {
	addr := strings.TrimSuffix(server, "/") + "/v1/ws"
	switch {
	case strings.HasPrefix(addr, "https://"):
		return "wss://" + strings.TrimPrefix(addr, "https://")
	case strings.HasPrefix(addr, "http://"):
		return "ws://" + strings.TrimPrefix(addr, "http://")
	default:
		return addr
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	var result domain.DemoBotResult
	resp, err := resty.New().
		SetBaseURL(strings.TrimSuffix(serverAddr, "/")).
		SetTimeout(30 * time.Second).
		R().
		SetContext(cmd.Context()).
		SetResult(&result).
		Post("/v1/demo/bot")
	if err != nil {
		return fmt.Errorf("seed demo bot: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("seed demo bot: server returned %s: %s", resp.Status(), resp.String())
	}
	if result.Bot == nil {
		return fmt.Errorf("seed demo bot: empty response")
	}

	verb := "Found"
	if result.Created {
		verb = "Created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s demo bot %q with id %d\n", verb, result.Bot.Name, result.Bot.ID)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	addr := wsAddress(serverAddr)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connecting to %s...\n", addr)

	client, err := Dial(addr, botID, userSession)
	if err != nil {
		return err
	}
	defer client.Close()

	frameType := ws.TypeTurn
	if chatMode {
		frameType = ws.TypeChat
	}

	fmt.Fprintf(out, "Connected to bot %d as %q.\n", botID, userSession)
	fmt.Fprintln(out, "Type a message and press Enter. An empty line advances the scenario. /quit exits.")

	go func() {
		for {
			line, err := client.Read()
			if err != nil {
				select {
				case <-client.done:
				default:
					if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						fmt.Fprintf(os.Stderr, "read error: %v\n", err)
					}
				}
				return
			}
			fmt.Fprintf(out, "\n%s\n> ", line)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	if frameType == ws.TypeTurn {
		if _, err := client.Send(frameType, nil); err != nil {
			return err
		}
	}

	for {
		fmt.Fprint(out, "> ")
		select {
		case <-interrupt:
			fmt.Fprintln(out, "\nInterrupted")
			return nil
		case input, ok := <-lines:
			if !ok {
				return nil
			}
			input = strings.TrimSpace(input)
			if input == "/quit" {
				fmt.Fprintln(out, "Bye!")
				return nil
			}

			var message *string
			if input != "" {
				message = &input
			} else if frameType == ws.TypeChat {
				continue
			}
			if _, err := client.Send(frameType, message); err != nil {
				fmt.Fprintf(os.Stderr, "send error: %v\n", err)
			}
		}
	}
}
