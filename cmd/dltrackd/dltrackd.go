// Command dltrackd runs the object tracker as an HTTP daemon: it accepts
// coin spends, reconstructs store state from them, and serves the current
// head of every tracked object.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net"
	"net/http"

	_ "github.com/mattn/go-sqlite3"

	"datalayer/store"
	"datalayer/track"
)

func main() {
	ctx := context.Background()

	var (
		addr   = flag.String("addr", "localhost:2423", "server listen address")
		dbfile = flag.String("db", "datalayer.db", "path to db")
	)

	flag.Parse()

	db, err := sql.Open("sqlite3", *dbfile)
	if err != nil {
		log.Fatalf("error opening db: %s", err)
	}
	defer db.Close()

	st, err := store.New(db)
	if err != nil {
		log.Fatal(err)
	}
	tracker := track.NewTracker(st)
	defer tracker.Close()
	err = tracker.Restore(ctx)
	if err != nil {
		log.Fatal(err)
	}

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("listening on %s", listener.Addr())

	s := &track.Server{Tracker: tracker, Store: st}
	http.HandleFunc("/spend", s.Spend)
	http.HandleFunc("/head", s.Head)
	http.HandleFunc("/heads", s.Heads)
	http.Serve(listener, nil)
}
