package embed

import (
	"fmt"
	"os"
	"strings"
)

// Device is the compute device a model runs on.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// ParseDevice validates a configured device name. Empty means auto.
func ParseDevice(s string) (Device, error) {
	switch d := Device(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DeviceAuto:
		return DeviceAuto, nil
	case DeviceCPU, DeviceCUDA:
		return d, nil
	default:
		return "", fmt.Errorf("unknown device %q (want auto, cpu or cuda)", s)
	}
}

// ResolveDevice turns auto into a concrete device: cuda when an accelerator
// is visible to the process, otherwise cpu.
func ResolveDevice(d Device) Device {
	if d != DeviceAuto && d != "" {
		return d
	}
	if acceleratorVisible() {
		return DeviceCUDA
	}
	return DeviceCPU
}

func acceleratorVisible() bool {
	v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES")
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	return v != "" && v != "-1" && v != "none"
}
