package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// onOff is the value of an auto|on|off flag.
type onOff uint8

const (
	onOffAuto onOff = iota
	onOffOn
	onOffOff
)

func parseOnOff(flag, value string) (onOff, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return onOffAuto, nil
	case "on":
		return onOffOn, nil
	case "off":
		return onOffOff, nil
	}
	return onOffAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// resolve turns auto into the answer for an interactive w.
func (m onOff) resolve(w io.Writer) bool {
	switch m {
	case onOffOn:
		return true
	case onOffOff:
		return false
	}
	f, ok := w.(*os.File)
	return ok && isTerminal(f) && os.Getenv("TERM") != "dumb"
}
