package main

import "os"

// FirmwareSource supplies a firmware image on demand. The core never
// chooses a firmware version itself; a real wallet host would back
// this with a signed-release catalogue, but this demo CLI just reads
// a local file path handed in on the command line.
type FirmwareSource func() ([]byte, error)

func fileFirmwareSource(path string) FirmwareSource {
	return func() ([]byte, error) {
		return os.ReadFile(path)
	}
}
