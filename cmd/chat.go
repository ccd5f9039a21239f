package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recipebox/recipebox/internal/chat"
	"github.com/recipebox/recipebox/internal/dependency"
)

var (
	chatMessage      string
	chatConversation string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "s", "cli:direct", "Conversation ID")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}
	defer container.Agent().Stop()

	svc := container.Chat()
	if chatMessage != "" {
		return runSingleMessage(svc)
	}
	return runInteractive(svc)
}

// runSingleMessage sends one message and prints the reply.
func runSingleMessage(svc *chat.Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	reply, err := svc.SendText(ctx, chatConversation, chatMessage, printProgress)
	if err != nil {
		return err
	}
	printResponse(reply.Text)
	return nil
}

// runInteractive reads lines from stdin and runs one turn per line.
func runInteractive(svc *chat.Service) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit)\n\n", logo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("You: ")

		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		}
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		reply, err := svc.SendText(ctx, chatConversation, line, printProgress)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			continue
		}
		printResponse(reply.Text)
	}
}

func printProgress(text string) {
	fmt.Printf("  ↳ %s\n", text)
}

func printResponse(text string) {
	fmt.Printf("\n%s recipebox\n%s\n\n", logo, text)
}
