package main

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/SimplyPrint/pcsc"
	"github.com/SimplyPrint/pcsc/internal/data"
)

func main() {
	ctx, err := pcsc.EstablishContext(pcsc.ScopeSystem)
	if err != nil {
		log.Fatalf("Failed to establish context: %v", err)
	}
	defer ctx.Release()

	readers, err := ctx.ListReadersAll()
	if err != nil {
		log.Fatalf("Failed to list readers: %v", err)
	}

	if len(readers) == 0 {
		fmt.Println("No readers found")
		return
	}

	states := make([]pcsc.ReaderState, len(readers))
	for i, name := range readers {
		states[i] = pcsc.NewReaderState(name)
	}
	// Timeout zero resolves the current state without blocking.
	if err := ctx.GetStatusChange(states, 0); err != nil {
		log.Fatalf("Failed to query reader state: %v", err)
	}

	for _, rs := range states {
		fmt.Printf("%s\n", rs.Reader)

		if known, ok := data.Lookup(rs.Reader); ok {
			fmt.Printf("  Model:  %s (%s, %s)\n", known.Model, known.Vendor, known.Interface)
		}

		switch {
		case rs.EventState&pcsc.StateUnavailable != 0:
			fmt.Println("  Status: unavailable")
		case rs.EventState&pcsc.StateMute != 0:
			fmt.Println("  Status: card present (mute)")
		case rs.EventState&pcsc.StatePresent != 0:
			fmt.Println("  Status: card present")
			if len(rs.Atr) > 0 {
				fmt.Printf("  ATR:    %s\n", hex.EncodeToString(rs.Atr))
			}
		default:
			fmt.Println("  Status: empty")
		}
	}
}
