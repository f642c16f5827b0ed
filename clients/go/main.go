// relay CLI - Command line client for ubo-relay-chat
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lahnaomar31/ubo-relay-char/clients/go/relay"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("RELAY_URL")
	client := relay.NewClient(baseURL)
	client.Token = os.Getenv("RELAY_TOKEN")
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "register":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: relay register <username> <password>")
			os.Exit(1)
		}
		user, err := client.Register(os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Registered as: %s (%s)\n", user.Username, user.ID)

	case "login":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: relay login <username> <password>")
			os.Exit(1)
		}
		user, err := client.Login(os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Connected as: %s\n", user.Username)
		fmt.Printf("export RELAY_TOKEN=%s\n", client.Token)

	case "users":
		users, err := client.ListUsers()
		exitOnError(err)
		for _, u := range users {
			fmt.Printf("  %s  %s\n", u.ID, u.Username)
		}

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: relay send <recipient_id> <text>")
			os.Exit(1)
		}
		msg, err := client.SendMessage(os.Args[2], os.Args[3], "")
		exitOnError(err)
		fmt.Printf("Sent at %s\n", msg.Timestamp.Format("2006-01-02 15:04:05"))

	case "history":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: relay history <recipient_id>")
			os.Exit(1)
		}
		messages, err := client.Conversation(os.Args[2])
		exitOnError(err)
		printMessages(messages)

	case "rooms":
		rooms, err := client.ListRooms()
		exitOnError(err)
		for _, room := range rooms {
			fmt.Printf("  %s  %s (%d msgs)\n", room.ID, room.Name, room.MessageCount)
		}

	case "room-send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: relay room-send <room_id> <text>")
			os.Exit(1)
		}
		msg, err := client.SendRoomMessage(os.Args[2], os.Args[3], "")
		exitOnError(err)
		fmt.Printf("Sent at %s\n", msg.Timestamp.Format("2006-01-02 15:04:05"))

	case "room-history":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: relay room-history <room_id>")
			os.Exit(1)
		}
		messages, err := client.RoomMessages(os.Args[2])
		exitOnError(err)
		printMessages(messages)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`relay CLI - minimal messaging client

Usage: relay <command> [options]

Commands:
  register <username> <password>   Create an account
  login <username> <password>      Log in and print a session token
  users                            List other users
  send <recipient_id> <text>       Send a direct message
  history <recipient_id>           Read a conversation
  rooms                            List rooms
  room-send <room_id> <text>       Send a room message
  room-history <room_id>           Read a room's messages
  health                           Check server health

Environment:
  RELAY_URL     Server URL (default: http://localhost:8080)
  RELAY_TOKEN   Session token from login`)
}

func printMessages(messages []relay.Message) {
	for _, msg := range messages {
		ts := msg.Timestamp.Format("2006-01-02 15:04:05")
		body := msg.Text
		if body == "" && msg.Image != "" {
			body = "[image] " + msg.Image
		}
		fmt.Printf("[%s] %s: %s\n", ts, msg.Sender, body)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
