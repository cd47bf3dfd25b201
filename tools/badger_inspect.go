package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pong-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

// Dumps the Badger message store of a stopped relay.
// With -port the web inspector is served instead until interrupted.
func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, idx:user:, idx:pair:)")
	port := flag.Int("port", 0, "Serve the web inspector on this port")
	flag.Parse()

	db, err := database.LoadBadger(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if *port > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		database.StartDebugServer(db, *port, "/inspect", repositories.MessageMapper)
		fmt.Printf("Inspector available at http://localhost:%d/inspect?prefix=%s\n", *port, *prefix)
		<-ctx.Done()
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Type", "Timestamp", "ID", "Namespace", "Detail", "Read"})

	counts := map[string]int{}
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			counts[keyFamily(key)]++
			if !strings.HasPrefix(key, *prefix) {
				continue
			}
			if err := item.Value(func(v []byte) error {
				row := repositories.MessageMapper(key, v)
				table.Append([]string{row.Type, row.Timestamp, row.EntityID, row.Namespace, row.Detail, row.Scores})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	for _, family := range []string{"msg", "idx:user", "idx:pair", "other"} {
		fmt.Printf("%-9s %d\n", family, counts[family])
	}
}

func keyFamily(key string) string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		return "msg"
	case strings.HasPrefix(key, "idx:user:"):
		return "idx:user"
	case strings.HasPrefix(key, "idx:pair:"):
		return "idx:pair"
	default:
		return "other"
	}
}
