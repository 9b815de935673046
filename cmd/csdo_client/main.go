package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/canopen-go/csdo/pkg/can/socketcan"
	"github.com/canopen-go/csdo/pkg/node"
	"github.com/canopen-go/csdo/pkg/od"
	"github.com/canopen-go/csdo/pkg/sdo"
)

var defaultNodeID = 0x20
var defaultCanInterface = "vcan0"

func main() {
	log.SetLevel(log.DebugLevel)

	canInterface := flag.String("i", defaultCanInterface, "socketcan interface e.g. can0,vcan0")
	nodeID := flag.Int("n", defaultNodeID, "local node id")
	edsPath := flag.String("p", "", "client-parameter EDS path")
	index := flag.Uint("index", 0x1018, "object index to read")
	subindex := flag.Uint("sub", 1, "object sub-index to read")
	timeoutMs := flag.Uint("timeout", 1000, "SDO response timeout in milliseconds")
	flag.Parse()

	bus, err := socketcan.New(*canInterface)
	if err != nil {
		fmt.Printf("could not open interface %v: %v\n", *canInterface, err)
		os.Exit(1)
	}
	if err := bus.Connect(); err != nil {
		fmt.Printf("could not connect to interface %v: %v\n", *canInterface, err)
		os.Exit(1)
	}

	dict := od.NewObjectDictionary()
	if *edsPath != "" {
		loaded, err := od.Load(*edsPath)
		if err != nil {
			fmt.Printf("error loading EDS: %v\n", err)
			os.Exit(1)
		}
		dict = loaded
	} else {
		entry := od.NewEntry(0x1280)
		entry.Set(1, []byte{0x00, 0x06, 0x00, 0x00})
		entry.Set(2, []byte{0x80, 0x05, 0x00, 0x00})
		entry.Set(3, byteOf(uint8(*nodeID)))
		dict.AddEntry(entry)
	}

	n := node.NewWithTimerService(bus, dict, uint8(*nodeID), 1)
	if err := n.Init(); err != nil {
		fmt.Printf("error enabling client slots: %v\n", err)
		os.Exit(1)
	}

	buf := make([]byte, 8)
	read, err := n.ReadRaw(sdo.Key{Index: uint16(*index), Subindex: uint8(*subindex)}, buf, uint32(*timeoutMs))
	if err != nil {
		fmt.Printf("SDO upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("x%x:x%x = % x\n", *index, *subindex, buf[:read])

	time.Sleep(100 * time.Millisecond)
}

func byteOf(v uint8) []byte {
	return []byte{v}
}
