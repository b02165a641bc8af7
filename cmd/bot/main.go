// Command bot is a reference CLI client: it logs in, seats itself, marks
// ready, and places random orders (random suit, side, price and size,
// chosen without looking at its hand),
// the same scripted-trader role the teacher's cmd/client/client.go played
// for the exchange server, generalized from one-shot order placement to a
// long-lived session with both an RPC path and an update stream.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"os"
	"strconv"
	"time"

	"figgie/internal/market"
	"figgie/internal/protocol"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:58828", "address of the figgie server")
	username := flag.String("username", "", "username to log in as (required)")
	which := flag.Int("which", 0, "suffixes -username with N, for launching several bots at once")
	roomId := flag.String("room", "", "room id to join; empty auto-joins the first non-full room")
	flag.Parse()

	if *username == "" {
		fmt.Println("Error: -username is required")
		flag.Usage()
		os.Exit(1)
	}
	name := *username
	if *which > 0 {
		name += strconv.Itoa(*which)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	if err := sendRequest(conn, protocol.Request{Type: protocol.ReqLogin, Username: name, RoomId: *roomId}); err != nil {
		log.Fatalf("login failed: %v", err)
	}
	fmt.Printf("connected to %s as %s\n", *serverAddr, name)

	go readUpdates(conn)

	if err := sendRequest(conn, protocol.Request{Type: protocol.ReqStartPlaying}); err != nil {
		log.Printf("start-playing failed: %v", err)
	}
	if err := sendRequest(conn, protocol.Request{Type: protocol.ReqReady, Ready: true}); err != nil {
		log.Printf("ready failed: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var nextId market.OrderId
	for {
		time.Sleep(time.Second + time.Duration(rng.Intn(2000))*time.Millisecond)
		nextId++
		order := market.Order{
			Owner:  market.Username(name),
			Symbol: market.Suits[rng.Intn(4)],
			Dir:    market.Dir(rng.Intn(2)),
			Price:  market.Price(1 + rng.Intn(50)),
			Size:   market.Size(1 + rng.Intn(3)),
			Id:     nextId,
		}
		if err := sendRequest(conn, protocol.Request{Type: protocol.ReqOrder, Order: order}); err != nil {
			log.Printf("order failed: %v", err)
		}
	}
}

// sendRequest writes one length-prefixed protocol frame and waits for its
// reply frame, mirroring the teacher client's synchronous
// sendPlaceOrder/sendCancelOrder helpers but generalized to the shared
// Request encoding.
func sendRequest(conn net.Conn, req protocol.Request) error {
	frame := protocol.EncodeRequest(req)
	if err := writeLengthPrefixed(conn, frame); err != nil {
		return err
	}
	_, err := readLengthPrefixed(conn)
	return err
}

// readUpdates continuously reads frames off the stream and prints the
// subset of fields relevant to a human operator, the same role the
// teacher client's readReports played for execution reports.
func readUpdates(conn net.Conn) {
	for {
		buf, err := readLengthPrefixed(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}
		if len(buf) < 2 {
			continue
		}
		fmt.Printf("<- update kind=%d (%d bytes)\n", buf[1], len(buf))
	}
}

func writeLengthPrefixed(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	return buf, err
}

