package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"character-chat/backend/internal/chatui"
	"character-chat/backend/internal/models"
)

func main() {
	serverPtr := flag.String("server", envOr("CHAT_SERVER", "http://localhost:8081"), "Chat server base URL")
	characterPtr := flag.String("character", "", "Character ID to chat with")
	listPtr := flag.Bool("list", false, "List available characters")
	watchPtr := flag.Bool("watch", false, "Print the character's new turns as they are stored")
	helpPtr := flag.Bool("help", false, "Show usage information")
	flag.Parse()

	if *helpPtr || (!*listPtr && *characterPtr == "") {
		fmt.Println("Chat Usage:")
		fmt.Println("  -list                 List available characters")
		fmt.Println("  -character <id>       Chat with a character")
		fmt.Println("  -character <id> -watch  Follow a character's conversation")
		fmt.Println("  -server <url>         Server base URL (default $CHAT_SERVER or http://localhost:8081)")
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := chatui.NewClient(*serverPtr, nil)

	var err error
	switch {
	case *listPtr:
		err = listCharacters(ctx, client, os.Stdout)
	case *watchPtr:
		err = watch(ctx, client, *characterPtr, os.Stdout)
	default:
		err = chat(ctx, client, *characterPtr, os.Stdin, os.Stdout)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func listCharacters(ctx context.Context, client *chatui.Client, out io.Writer) error {
	characters, err := client.Characters(ctx)
	if err != nil {
		return err
	}
	if len(characters) == 0 {
		fmt.Fprintln(out, "No characters yet.")
		return nil
	}
	for _, c := range characters {
		fmt.Fprintf(out, "%-24s %s\n", c.ID, c.Name)
	}
	return nil
}

func watch(ctx context.Context, client *chatui.Client, id string, out io.Writer) error {
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", id)
	return client.Watch(ctx, id, func(m models.Message) {
		printTurn(out, "", m)
	})
}

func chat(ctx context.Context, client *chatui.Client, id string, in io.Reader, out io.Writer) error {
	character, err := client.Character(ctx, id)
	if err != nil {
		return err
	}
	history, err := client.Messages(ctx, id)
	if err != nil {
		return err
	}

	state := chatui.NewState(*character, history)
	name := character.Name
	fmt.Fprintf(out, "Chatting with %s. Empty line or Ctrl+D to quit.\n\n", name)
	for _, turn := range state.Turns() {
		printTurn(out, name, turn)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			return nil
		}

		if _, err := state.Begin(line); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}

		reply, err := client.Send(ctx, id, line)
		if err != nil {
			state.Fail()
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "! Failed to send message: %v\n", err)
			continue
		}

		printTurn(out, name, state.Complete(reply))
	}
}

func printTurn(out io.Writer, name string, m models.Message) {
	speaker := "You"
	if m.Role == models.RoleModel {
		speaker = name
		if speaker == "" {
			speaker = m.CharacterID
		}
	}
	fmt.Fprintf(out, "%s: %s\n", speaker, m.Content)
}
