package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/thereayou/roomlite/internal/bus"
	"github.com/thereayou/roomlite/internal/chat"
	"github.com/thereayou/roomlite/internal/config"
	"github.com/thereayou/roomlite/internal/models"
	"github.com/thereayou/roomlite/internal/session"
	"github.com/thereayou/roomlite/internal/store"
	"github.com/thereayou/roomlite/pkg/imaging"
)

func main() {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	cfg := config.Load()

	st, err := store.Open(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer st.Close()

	b := bus.New()
	go b.Run()
	defer b.Stop()

	svc := chat.NewService(st, b, chat.WithLatency(cfg.LatencyMin, cfg.LatencyMax))
	gate := session.NewGate(svc)

	unsubscribe := b.Subscribe(printEvent)
	defer unsubscribe()

	var current *models.User
	var currentRoom *models.Room

	// Восстанавливаем сессию после перезапуска
	if u, err := svc.Restore(); err == nil && u != nil {
		current = u
		fmt.Printf("welcome back, %s\n", u.Name)
	}

	fmt.Println("roomlite — type 'help' for commands")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "help":
			printHelp()

		case "register":
			if len(args) != 4 {
				fmt.Println("usage: register <name> <email> <password>")
				continue
			}
			user, err := svc.Register(args[1], args[2], args[3])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			current = &user

		case "login":
			if len(args) != 3 {
				fmt.Println("usage: login <email> <password>")
				continue
			}
			user, err := svc.Login(args[1], args[2])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			current = &user

		case "logout":
			if current == nil {
				fmt.Println("not logged in")
				continue
			}
			if err := svc.Logout(current.ID); err != nil {
				fmt.Println("error:", err)
				continue
			}
			current = nil
			currentRoom = nil

		case "users":
			users, err := svc.ListUsers()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, u := range users {
				marker := " "
				if u.Online {
					marker = "*"
				}
				fmt.Printf("%s %s  %s  %s\n", marker, u.ID, u.Name, u.Email)
			}

		case "rooms":
			rooms, err := svc.ListRooms()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, r := range rooms {
				lock := ""
				if r.IsPrivate {
					lock = " [private]"
				}
				fmt.Printf("%s  %s%s\n", r.ID, r.Name, lock)
			}

		case "create":
			if current == nil {
				fmt.Println("log in first")
				continue
			}
			if len(args) < 2 {
				fmt.Println("usage: create <name> [password]")
				continue
			}
			req := chat.CreateRoom{Name: args[1], OwnerID: current.ID}
			if len(args) > 2 {
				req.IsPrivate = true
				req.Password = args[2]
			}
			room, err := svc.CreateRoom(req)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("created", room.ID)

		case "delete":
			if current == nil || len(args) != 2 {
				fmt.Println("usage (logged in): delete <room-id>")
				continue
			}
			roomID, err := uuid.Parse(args[1])
			if err != nil {
				fmt.Println("invalid room id")
				continue
			}
			if err := svc.DeleteRoom(roomID, current.ID); err != nil {
				fmt.Println("error:", err)
			}

		case "join":
			if len(args) < 2 {
				fmt.Println("usage: join <room-id> [password]")
				continue
			}
			roomID, err := uuid.Parse(args[1])
			if err != nil {
				fmt.Println("invalid room id")
				continue
			}
			join, err := gate.Begin(roomID)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if join.State() == session.StateChallenge {
				if len(args) < 3 {
					fmt.Println("room is private, password required: join <room-id> <password>")
					continue
				}
				if err := join.Submit(args[2]); err != nil {
					fmt.Println("error:", err)
					continue
				}
			}
			room := join.Room()
			currentRoom = &room
			fmt.Printf("joined %s\n", room.Name)
			for _, m := range join.Messages() {
				fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.SenderName, renderContent(m))
			}

		case "say":
			if current == nil || currentRoom == nil {
				fmt.Println("log in and join a room first")
				continue
			}
			if len(args) < 2 {
				fmt.Println("usage: say <text>")
				continue
			}
			_, err := svc.SendMessage(chat.SendMessage{
				RoomID:   currentRoom.ID,
				SenderID: current.ID,
				Content:  strings.Join(args[1:], " "),
				Kind:     models.KindText,
			})
			if err != nil {
				fmt.Println("error:", err)
			}

		case "avatar":
			if current == nil || len(args) != 2 {
				fmt.Println("usage (logged in): avatar <image-file>")
				continue
			}
			payload, err := encodeImageFile(args[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			user, err := svc.UpdateProfile(current.ID, chat.ProfileUpdate{Avatar: payload})
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			current = &user

		case "sendimg":
			if current == nil || currentRoom == nil || len(args) != 2 {
				fmt.Println("usage (in a room): sendimg <image-file>")
				continue
			}
			payload, err := encodeImageFile(args[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			_, err = svc.SendMessage(chat.SendMessage{
				RoomID:   currentRoom.ID,
				SenderID: current.ID,
				Content:  payload,
				Kind:     models.KindImage,
			})
			if err != nil {
				fmt.Println("error:", err)
			}

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command, type 'help'")
		}
	}
}

func renderContent(m models.Message) string {
	if m.Kind == models.KindImage {
		return "[image]"
	}
	return m.Content
}

func encodeImageFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return imaging.Encode(f)
}

func printEvent(ev bus.Event) {
	switch p := ev.Payload.(type) {
	case models.Message:
		fmt.Printf("\n[%s] %s: %s\n> ", p.CreatedAt.Format("15:04"), p.SenderName, renderContent(p))
	case models.Room:
		fmt.Printf("\n* room created: %s\n> ", p.Name)
	case bus.RoomDeleted:
		fmt.Printf("\n* room deleted: %s\n> ", p.RoomID)
	case models.User:
		fmt.Printf("\n* user update: %s\n> ", p.Name)
	case bus.UserLeft:
		fmt.Printf("\n* user left: %s\n> ", p.UserID)
	}
}

func printHelp() {
	fmt.Println(`commands:
  register <name> <email> <password>
  login <email> <password>
  logout
  users
  rooms
  create <name> [password]   create a room, password makes it private
  delete <room-id>
  join <room-id> [password]
  say <text>
  avatar <image-file>        set your avatar
  sendimg <image-file>       send an image message
  quit`)
}
