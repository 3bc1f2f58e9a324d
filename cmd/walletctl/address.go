package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"

	"github.com/keepkey-host/kkcore/internal/config"
	"github.com/keepkey-host/kkcore/internal/device"
	"github.com/keepkey-host/kkcore/internal/interactive"
	"github.com/keepkey-host/kkcore/internal/worker"
)

func runAddress(desc device.Descriptor, params worker.GetAddressParams) {
	var resultAddr string
	err := runInteractive(func(emit func(interactive.PromptEvent)) (<-chan error, handleSurface) {
		c := worker.NewClient(config.Load(), nil, emit)
		h := c.Acquire(desc)
		done := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			addr, err := h.GetAddress(ctx, params)
			if err == nil {
				resultAddr = addr.Address
			}
			done <- err
		}()
		return done, h
	})

	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("walletctl: "+err.Error()))
		os.Exit(1)
	}

	fmt.Println(resultAddr)
	if cerr := clipboard.WriteAll(resultAddr); cerr == nil {
		fmt.Fprintln(os.Stderr, hintStyle.Render("(copied to clipboard)"))
	}
}
