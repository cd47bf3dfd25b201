package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"pong-chat/domain"
	"pong-chat/repositories"
	"pong-chat/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const previewLength = 48

type Config struct {
	StorageDriver  string `env:"STORAGE_DRIVER,default=sqlite"`
	SQLitePath     string `env:"SQLITE_PATH,default=chat.db"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=data/badger"`
}

func main() {
	// 1. Load config, flags override the environment
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	userID := flag.String("user", "", "User whose conversations are listed")
	with := flag.String("with", "", "Show the full conversation with this user")
	driver := flag.String("driver", config.StorageDriver, "Storage driver (sqlite|badger)")
	flag.Parse()
	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}
	config.StorageDriver = *driver

	// 2. Open the store without interfering with a running relay
	logger := logs.GetLoggerFromString("WARN")
	repository, closeStore, err := openReadOnly(config, logger)
	if err != nil {
		log.Fatalf("Failed to open message store: %v", err)
	}
	defer closeStore()

	messages := services.NewMessageService(logger, repository, nil, nil, 0, 10*time.Second)
	ctx := context.Background()

	if *with != "" {
		conversation, err := messages.GetConversation(ctx, *userID, *with)
		if err != nil {
			log.Fatalf("Failed to read conversation: %v", err)
		}
		renderConversation(*userID, conversation)
		return
	}

	conversations, err := messages.GetUserConversations(ctx, *userID)
	if err != nil {
		log.Fatalf("Failed to read conversations: %v", err)
	}
	renderConversations(*userID, conversations)
}

func openReadOnly(config Config, logger *slog.Logger) (repositories.IMessageRepository, func(), error) {
	if config.StorageDriver == "badger" {
		// BypassLockGuard allows opening while the relay holds the lock
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithReadOnly(true).
			WithBypassLockGuard(true).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewBadgerMessageRepository(db, logger), func() { _ = db.Close() }, nil
	}

	db, err := repositories.OpenSQLite(config.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	repository, err := repositories.NewSQLiteMessageRepository(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository, func() { _ = repository.Close() }, nil
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderConversations(userID string, conversations []domain.Conversation) {
	color.New(color.FgGreen, color.OpBold).Printf("Conversations of %s (%d)\n", userID, len(conversations))
	table := newTable([]string{"With", "Messages", "Unread", "Last", "Preview"})
	for _, c := range conversations {
		last := c.Messages[0]
		unread := fmt.Sprint(c.Unread)
		if c.Unread > 0 {
			unread = color.Yellow.Sprint(unread)
		}
		table.Append([]string{
			c.Counterpart,
			fmt.Sprint(len(c.Messages)),
			unread,
			last.CreatedAt.Local().Format(time.DateTime),
			preview(last.Content),
		})
	}
	table.Render()
}

// renderConversation prints the oldest message first, like a chat window.
func renderConversation(userID string, messages []domain.Message) {
	table := newTable([]string{"At", "From", "Read", "Content"})
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		from := m.SenderID
		if m.SenderID == userID {
			from = color.Cyan.Sprint(from)
		}
		read := "-"
		if m.ReadAt != nil {
			read = m.ReadAt.Local().Format(time.TimeOnly)
		}
		table.Append([]string{m.CreatedAt.Local().Format(time.DateTime), from, read, m.Content})
	}
	table.Render()
}

func preview(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength-1]) + "…"
}
