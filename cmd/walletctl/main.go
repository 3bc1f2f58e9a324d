// walletctl is a reference UI collaborator: a small demo CLI that
// exercises the device worker end to end, answering PIN and
// passphrase prompts through a bubbletea program instead of a real
// desktop wallet host.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/keepkey-host/kkcore/internal/config"
	"github.com/keepkey-host/kkcore/internal/device"
	"github.com/keepkey-host/kkcore/internal/worker"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	serial := fs.String("serial", "", "device serial number")
	vendorID := fs.String("vendor-id", "2b24", "device vendor id (hex)")
	productID := fs.String("product-id", "0002", "device product id (hex)")
	bus := fs.Int("bus", 0, "USB bus number, used when serial is empty")
	address := fs.Int("address", 0, "USB device address, used when serial is empty")

	switch cmd {
	case "features":
		fs.Parse(os.Args[2:])
		runFeatures(descriptorFromFlags(*serial, *vendorID, *productID, *bus, *address))
	case "address":
		coinName := fs.String("coin", "Bitcoin", "coin name")
		scriptType := fs.String("script-type", "", "script type, empty for device default")
		path := fs.String("path", "m/44'/0'/0'/0/0", "BIP-32 derivation path")
		show := fs.Bool("show", true, "display the address on the device screen")
		fs.Parse(os.Args[2:])
		nlist, err := parsePath(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "walletctl: bad path:", err)
			os.Exit(1)
		}
		runAddress(descriptorFromFlags(*serial, *vendorID, *productID, *bus, *address), worker.GetAddressParams{
			AddressNList: nlist,
			CoinName:     *coinName,
			ScriptType:   *scriptType,
			ShowDisplay:  *show,
		})
	case "update-firmware":
		path := fs.String("file", "", "path to firmware image")
		fs.Parse(os.Args[2:])
		if *path == "" {
			fmt.Fprintln(os.Stderr, "walletctl: -file is required")
			os.Exit(1)
		}
		runUpdateFirmware(descriptorFromFlags(*serial, *vendorID, *productID, *bus, *address), fileFirmwareSource(*path))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: walletctl <features|address|update-firmware> [flags]")
}

func descriptorFromFlags(serial, vendorHex, productHex string, bus, addr int) device.Descriptor {
	vid, _ := strconv.ParseUint(vendorHex, 16, 16)
	pid, _ := strconv.ParseUint(productHex, 16, 16)
	return device.Descriptor{
		VendorID:  uint16(vid),
		ProductID: uint16(pid),
		Bus:       bus,
		Address:   addr,
		Serial:    serial,
	}
}

func runFeatures(desc device.Descriptor) {
	c := worker.NewClient(config.Load(), nil, nil)
	h := c.Acquire(desc)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	f, err := h.GetFeatures(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "walletctl:", err)
		os.Exit(1)
	}
	fmt.Printf("label:      %s\n", f.Label)
	fmt.Printf("version:    %s\n", f.Version)
	fmt.Printf("bootloader: %v\n", f.BootloaderMode)
}
