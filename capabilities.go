package fastpath

import "fmt"

// APIVersion is the driver API version offered during capability
// registration. The broker rejects registrations whose major version it
// does not support.
type APIVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// DriverAPIVersion is the driver API version this module implements.
var DriverAPIVersion = APIVersion{Major: 1, Minor: 0, Patch: 0}

// InterfaceMode describes how an interface provides its fast path.
type InterfaceMode uint8

const (
	// ModeGeneric is a software fast path layered on top of the
	// interface's regular processing pipeline.
	ModeGeneric InterfaceMode = iota
	// ModeNative is a fast path offloaded to the interface driver.
	ModeNative
)

func (m InterfaceMode) String() string {
	switch m {
	case ModeGeneric:
		return "generic"
	case ModeNative:
		return "native"
	default:
		return fmt.Sprintf("InterfaceMode(%d)", uint8(m))
	}
}

// HookLayer is the pipeline layer a hook point lives at.
type HookLayer uint8

// HookL2 is the only layer a generic datapath hooks.
const HookL2 HookLayer = 2

// HookSubLayer distinguishes inspection from injection at a hook point.
type HookSubLayer uint8

const (
	// HookInspect observes frames flowing through the pipeline.
	HookInspect HookSubLayer = iota
	// HookInject feeds frames into the pipeline.
	HookInject
)

// HookID identifies one hook point exposed to the host pipeline.
type HookID struct {
	Layer     HookLayer
	Direction Direction
	SubLayer  HookSubLayer
}

// GenericHooks returns the hook points a generic datapath exposes:
// inspect and inject on both directions at L2.
func GenericHooks() []HookID {
	return []HookID{
		{Layer: HookL2, Direction: RX, SubLayer: HookInspect},
		{Layer: HookL2, Direction: TX, SubLayer: HookInject},
		{Layer: HookL2, Direction: RX, SubLayer: HookInject},
		{Layer: HookL2, Direction: TX, SubLayer: HookInspect},
	}
}

// Capabilities describes an interface's fast path support. It is
// registered with the capability broker when the interface attaches.
type Capabilities struct {
	Mode    InterfaceMode
	Version APIVersion
	Hooks   []HookID
}
