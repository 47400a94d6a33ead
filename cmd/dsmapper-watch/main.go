// Command dsmapper-watch follows a running mapper's state feed in the terminal.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/lxzan/gws"
	"github.com/spf13/pflag"

	"github.com/soar/dsmapper/internal/hub"
)

type handler struct {
	gws.BuiltinEventHandler
	w     *watcher
	quit  bool
	debug bool
}

func (h *handler) OnOpen(socket *gws.Conn) {
	log.Printf("Connected to %s", socket.RemoteAddr())
	if !h.quit {
		return
	}
	data, _ := json.Marshal(hub.ClientMessage{Type: "quit"})
	if err := socket.WriteMessage(gws.OpcodeText, data); err != nil {
		log.Printf("Failed to send quit: %v", err)
	}
}

func (h *handler) OnClose(socket *gws.Conn, err error) {
	log.Printf("Connection closed: %v", err)
}

func (h *handler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	if h.debug {
		log.Printf("[DEBUG] %s", message.Bytes())
	}

	var msg hub.WSMessage
	if err := json.Unmarshal(message.Bytes(), &msg); err != nil {
		log.Printf("Error parsing message: %v", err)
		return
	}
	for _, line := range h.w.Apply(msg) {
		fmt.Println(line)
	}
	if h.w.Stopped() {
		socket.WriteClose(1000, nil)
	}
}

func main() {
	fs := pflag.NewFlagSet("dsmapper-watch", pflag.ExitOnError)
	addr := fs.StringP("addr", "a", "127.0.0.1:8080", "status page address of the mapper")
	quit := fs.Bool("quit", false, "ask the mapper to stop, then print its final state")
	debug := fs.BoolP("verbose", "v", false, "log raw messages")
	_ = fs.Parse(os.Args[1:])

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	h := &handler{w: &watcher{}, quit: *quit, debug: *debug}

	socket, _, err := gws.NewClient(h, &gws.ClientOption{Addr: u.String()})
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", u.String(), err)
	}
	socket.ReadLoop()

	if h.w.Stopped() {
		os.Exit(0)
	}
	os.Exit(1)
}
