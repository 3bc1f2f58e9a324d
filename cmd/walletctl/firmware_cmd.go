package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/keepkey-host/kkcore/internal/config"
	"github.com/keepkey-host/kkcore/internal/device"
	"github.com/keepkey-host/kkcore/internal/interactive"
	"github.com/keepkey-host/kkcore/internal/worker"
)

func runUpdateFirmware(desc device.Descriptor, source FirmwareSource) {
	bytes, err := source()
	if err != nil {
		fmt.Fprintln(os.Stderr, "walletctl: read firmware image:", err)
		os.Exit(1)
	}

	err = runInteractive(func(emit func(interactive.PromptEvent)) (<-chan error, handleSurface) {
		c := worker.NewClient(config.Load(), nil, emit)
		h := c.Acquire(desc)
		done := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			done <- h.UpdateFirmware(ctx, bytes)
		}()
		return done, h
	})

	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("walletctl: "+err.Error()))
		os.Exit(1)
	}
	fmt.Println("firmware update complete")
}
