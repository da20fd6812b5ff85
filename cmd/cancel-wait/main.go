// Command cancel-wait blocks waiting for reader and card changes, and shows
// how a blocked wait is interrupted from another goroutine. Press Ctrl-C to
// cancel the wait and exit.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SimplyPrint/pcsc"
)

func main() {
	ctx, err := pcsc.EstablishContext(pcsc.ScopeSystem)
	if err != nil {
		log.Fatalf("Failed to establish context: %v", err)
	}
	defer ctx.Release()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nCancelling...")
		if err := ctx.Cancel(); err != nil {
			log.Fatalf("Failed to cancel: %v", err)
		}
	}()

	readers, err := ctx.ListReadersAll()
	if err != nil {
		log.Fatalf("Failed to list readers: %v", err)
	}

	// The PnP pseudo reader wakes the wait when readers come and go.
	states := []pcsc.ReaderState{pcsc.NewReaderState(pcsc.PnPNotification)}
	for _, name := range readers {
		states = append(states, pcsc.NewReaderState(name))
	}

	fmt.Printf("Watching %d reader(s), press Ctrl-C to stop\n", len(readers))

	for {
		err := ctx.GetStatusChange(states, -1)
		if errors.Is(err, pcsc.ErrCancelled) {
			fmt.Println("Wait cancelled")
			return
		}
		if err != nil {
			log.Fatalf("Failed to wait for status change: %v", err)
		}

		for i := range states {
			rs := &states[i]
			if !rs.Changed() {
				continue
			}
			if rs.Reader == pcsc.PnPNotification {
				rs.SyncCurrentState()
				continue
			}
			switch {
			case rs.EventState&pcsc.StatePresent != 0:
				fmt.Printf("%s: card present, ATR %s\n", rs.Reader, hex.EncodeToString(rs.Atr))
			case rs.EventState&pcsc.StateEmpty != 0:
				fmt.Printf("%s: card removed\n", rs.Reader)
			case rs.EventState&pcsc.StateUnknown != 0:
				fmt.Printf("%s: reader gone\n", rs.Reader)
			}
			rs.SyncCurrentState()
		}

		// Refresh the watch list: drop dead entries, add new readers.
		kept := states[:0]
		for _, rs := range states {
			if rs.Reader == pcsc.PnPNotification || rs.EventState&pcsc.StateUnknown == 0 {
				kept = append(kept, rs)
			}
		}
		states = kept

		readers, err = ctx.ListReadersAll()
		if err != nil {
			log.Fatalf("Failed to list readers: %v", err)
		}
		for _, name := range readers {
			if !watching(states, name) {
				states = append(states, pcsc.NewReaderState(name))
			}
		}
	}
}

func watching(states []pcsc.ReaderState, name string) bool {
	for _, rs := range states {
		if rs.Reader == name {
			return true
		}
	}
	return false
}
